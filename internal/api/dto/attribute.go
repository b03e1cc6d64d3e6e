package dto

type StateAllocationResponse struct {
	State         string  `json:"state"`
	DriveSeconds  float64 `json:"drive_seconds"`
	ManeuverCount int     `json:"maneuver_count"`
}

type AttributeResponse struct {
	VehicleID         string                    `json:"vehicle_id"`
	TripID            string                    `json:"trip_id"`
	Mode              string                    `json:"mode"`
	LegSecondsTotal   float64                   `json:"leg_seconds_total"`
	TotalDriveSeconds float64                   `json:"total_drive_seconds"`
	Maneuvers         int                       `json:"maneuvers"`
	Samples           int                       `json:"samples"`
	CacheHits         int                       `json:"cache_hits"`
	Allocations       []StateAllocationResponse `json:"allocations"`
}
