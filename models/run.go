package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ScrapeRun is the operational record for one source within a cycle.
type ScrapeRun struct {
	ID                int64      `json:"id" db:"id"`
	Source            string     `json:"source" db:"source"`
	StartedAt         time.Time  `json:"started_at" db:"started_at"`
	FinishedAt        *time.Time `json:"finished_at" db:"finished_at"`
	Status            RunStatus  `json:"status" db:"status"`
	ListingsFound     int        `json:"listings_found" db:"listings_found"`
	ListingsNew       int        `json:"listings_new" db:"listings_new"`
	ListingsDuplicate int        `json:"listings_duplicate" db:"listings_duplicate"`
	ListingsSkipped   int        `json:"listings_skipped" db:"listings_skipped"`
	ErrorsCount       int        `json:"errors_count" db:"errors_count"`
	ErrorMessage      string     `json:"error_message" db:"error_message"`
}

// SourceStats aggregates run history per source for the ops surface.
type SourceStats struct {
	Source        string     `json:"source" db:"source"`
	LastRunAt     *time.Time `json:"last_run_at" db:"last_run_at"`
	LastRunStatus string     `json:"last_run_status" db:"last_run_status"`
	TotalListings int        `json:"total_listings" db:"total_listings"`
	SuccessRate   float64    `json:"success_rate" db:"success_rate"`
}
