package dto

type HealthResponse struct {
	Status         string `json:"status"`
	Service        string `json:"service"`
	CellResolution int    `json:"cell_resolution"`
	CellLevel      int    `json:"cell_level"`
	CacheSize      int    `json:"cache_size"`
	Timestamp      int64  `json:"timestamp"`
}
