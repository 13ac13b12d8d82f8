package models

type CongestionLevel string

const (
	CongestionLow      CongestionLevel = "LOW"
	CongestionModerate CongestionLevel = "MODERATE"
	CongestionHigh     CongestionLevel = "HIGH"
)

// QueueAnalyticsSnapshot is derived per request from the current entry set and
// never persisted.
type QueueAnalyticsSnapshot struct {
	Department         Department      `json:"department"`
	WaitingCount       int             `json:"waiting_count"`
	ServingCount       int             `json:"serving_count"`
	AvgWaitSeconds     float64         `json:"avg_wait_time_seconds"`
	MaxWaitSeconds     float64         `json:"max_wait_time_seconds"`
	CurrentWaitSeconds float64         `json:"current_wait_seconds"`
	TotalPatientsToday int             `json:"total_patients"`
	CongestionLevel    CongestionLevel `json:"congestion_level"`
}

// QueueStats is the global roll-up across all departments.
type QueueStats struct {
	Waiting        int     `json:"waiting"`
	Serving        int     `json:"serving"`
	Completed      int     `json:"completed"`
	Skipped        int     `json:"skipped"`
	Total          int     `json:"total"`
	AvgWaitMinutes float64 `json:"avg_wait_minutes"`
}
