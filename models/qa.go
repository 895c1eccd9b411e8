package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type TestRunStatus string

const (
	TestRunStatusIdle      TestRunStatus = "idle"
	TestRunStatusRunning   TestRunStatus = "running"
	TestRunStatusCompleted TestRunStatus = "completed"
	TestRunStatusFailed    TestRunStatus = "failed"
)

// TestRun documents one synthetic QA cycle.
type TestRun struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	StartedAt   time.Time     `json:"started_at" db:"started_at"`
	CompletedAt *time.Time    `json:"completed_at" db:"completed_at"`
	Status      TestRunStatus `json:"status" db:"status"`
	IssuesFound int           `json:"issues_found" db:"issues_found"`
}

// TestResult is the outcome of a single check inside a run.
type TestResult struct {
	ID        int64     `json:"id" db:"id"`
	RunID     uuid.UUID `json:"run_id" db:"run_id"`
	TestName  string    `json:"test_name" db:"test_name"`
	Passed    bool      `json:"passed" db:"passed"`
	Score     int       `json:"score" db:"score"`
	Details   string    `json:"details" db:"details"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// AdminAlert is an operator-facing incident. AlertType doubles as the
// dedup key: identical types within 24h are suppressed unless the
// severity is critical.
type AdminAlert struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	AlertType string          `json:"alert_type" db:"alert_type"`
	Severity  AlertSeverity   `json:"severity" db:"severity"`
	Message   string          `json:"message" db:"message"`
	Details   json.RawMessage `json:"details" db:"details"`
	Sent      bool            `json:"sent" db:"sent"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Admin alert types raised by the QA agent and repair controller.
const (
	AlertTypeScraperBroken       = "scraper_broken"
	AlertTypeRepairExhausted     = "repair_exhausted"
	AlertTypeNotificationQuality = "notification_quality"
	AlertTypeConstraintViolation = "constraint_violation"
	AlertTypeCircuitBreakerOpen  = "circuit_breaker_open"
	AlertTypePipelineFailure     = "pipeline_failure"
)
