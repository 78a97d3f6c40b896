package models

import "time"

// SDGSummary aggregates participation for one goal.
type SDGSummary struct {
	Number                int            `json:"number"`
	Name                  string         `json:"name"`
	Color                 string         `json:"color"`
	Participants          int            `json:"participants"`
	TotalPoints           int            `json:"total_points"`
	ActivityCount         int            `json:"activity_count"`
	ParticipantsByFaculty map[string]int `json:"participants_by_faculty"`
}

// FacultySummary aggregates engagement for one faculty.
type FacultySummary struct {
	Faculty           string  `json:"faculty"`
	Students          int     `json:"students"`
	TotalPoints       int     `json:"total_points"`
	AveragePoints     float64 `json:"average_points"`
	Activities        int     `json:"activities"`
	AverageActivities float64 `json:"average_activities"`
}

// EventSummary aggregates registrations and feedback for one event.
type EventSummary struct {
	EventID        string  `json:"event_id"`
	Title          string  `json:"title"`
	Registered     int     `json:"registered"`
	Attended       int     `json:"attended"`
	Cancelled      int     `json:"cancelled"`
	AttendanceRate float64 `json:"attendance_rate"`
	AverageRating  float64 `json:"average_rating"`
	FeedbackCount  int     `json:"feedback_count"`
	Favorites      int     `json:"favorites"`
}

// RewardSummary aggregates redemptions for one reward.
type RewardSummary struct {
	RewardID       string  `json:"reward_id"`
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	PointCost      int     `json:"point_cost"`
	Redemptions    int     `json:"redemptions"`
	RedemptionRate float64 `json:"redemption_rate"`
	InitialStock   int     `json:"initial_stock"`
	Stock          int     `json:"stock"`
	PointsSpent    int     `json:"points_spent"`
}

// RewardCategorySummary pools reward summaries sharing a category.
type RewardCategorySummary struct {
	Category       string  `json:"category"`
	Rewards        int     `json:"rewards"`
	Redemptions    int     `json:"redemptions"`
	PointsSpent    int     `json:"points_spent"`
	RedemptionRate float64 `json:"redemption_rate"`
}

// AnalyticsOverview holds programme-wide totals.
type AnalyticsOverview struct {
	Students              int       `json:"students"`
	Faculties             int       `json:"faculties"`
	TotalPoints           int       `json:"total_points"`
	Activities            int       `json:"activities"`
	Events                int       `json:"events"`
	Registrations         int       `json:"registrations"`
	Attended              int       `json:"attended"`
	AverageAttendanceRate float64   `json:"average_attendance_rate"`
	BadgesAwarded         int       `json:"badges_awarded"`
	Redemptions           int       `json:"redemptions"`
	ActiveGoals           int       `json:"active_goals"`
	IntegrityFaults       int       `json:"integrity_faults"`
	GeneratedAt           time.Time `json:"generated_at"`
}

// AnalyticsSystemMetrics represents system level analytics captured from instrumentation.
type AnalyticsSystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	SnapshotLoads            uint64    `json:"snapshot_loads"`
	AverageSnapshotLoadMs    float64   `json:"average_snapshot_load_ms"`
	AggregationCount         uint64    `json:"aggregation_count"`
	AverageAggregationMs     float64   `json:"average_aggregation_ms"`
	IntegrityFaults          uint64    `json:"integrity_faults"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// LeaderboardPeriod selects which point total ranks the leaderboard.
type LeaderboardPeriod string

const (
	PeriodTotal   LeaderboardPeriod = "total"
	PeriodWeekly  LeaderboardPeriod = "weekly"
	PeriodMonthly LeaderboardPeriod = "monthly"
)

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	StudentID   string `json:"student_id,omitempty"`
	DisplayName string `json:"display_name"`
	Faculty     string `json:"faculty"`
	Points      int    `json:"points"`
	Badges      int    `json:"badges"`
}
