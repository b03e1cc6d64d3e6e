package dto

type ClassifyPointsRequest struct {
	Lat []float64 `json:"lat"`
	Lon []float64 `json:"lon"`
}

type ClassifyMetadata struct {
	TotalPoints int `json:"total_points"`
	CacheHits   int `json:"cache_hits"`
	CacheMisses int `json:"cache_misses"`
}

type ClassifyPerformance struct {
	ClassificationTimeSec float64 `json:"classification_time_sec"`
	ThroughputPtsSec      int     `json:"throughput_pts_sec"`
}

type ClassifyPointsResponse struct {
	States      []string            `json:"states"`
	Cells       []string            `json:"cells"`
	Metadata    ClassifyMetadata    `json:"metadata"`
	Performance ClassifyPerformance `json:"performance"`
}
