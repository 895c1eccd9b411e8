package models

import "time"

type HealthStatus string

const (
	HealthStatusHealthy     HealthStatus = "healthy"
	HealthStatusNeedsRepair HealthStatus = "needs_repair"
	HealthStatusRepaired    HealthStatus = "repaired"
	HealthStatusFailed      HealthStatus = "failed"
)

// Threshold of consecutive zero-new-listing cycles before a source is
// flagged for repair.
const ZeroRunRepairThreshold = 2

// ScraperHealth tracks the operational state of one source. The health
// state machine owns the derived counters; the repair controller may
// overwrite CurrentURL, CurrentSelectors and HeaderProfile.
type ScraperHealth struct {
	Source               string       `json:"source" db:"source"`
	CurrentURL           string       `json:"current_url" db:"current_url"`
	BackupURLs           []string     `json:"backup_urls" db:"backup_urls"`
	CurrentSelectors     string       `json:"current_selectors" db:"current_selectors"` // selector set name
	BackupSelectors      []string     `json:"backup_selectors" db:"backup_selectors"`
	HeaderProfile        string       `json:"header_profile" db:"header_profile"`
	ConsecutiveFailures  int          `json:"consecutive_failures" db:"consecutive_failures"`
	ConsecutiveZeroRuns  int          `json:"consecutive_zero_runs" db:"consecutive_zero_runs"`
	IsInRepairMode       bool         `json:"is_in_repair_mode" db:"is_in_repair_mode"`
	RepairAttempts       int          `json:"repair_attempts" db:"repair_attempts"`
	LastSuccessfulRunAt  *time.Time   `json:"last_successful_run_at" db:"last_successful_run_at"`
	LastFailedRunAt      *time.Time   `json:"last_failed_run_at" db:"last_failed_run_at"`
	LastQACheckAt        *time.Time   `json:"last_qa_check_at" db:"last_qa_check_at"`
	Status               HealthStatus `json:"status" db:"status"`
	UpdatedAt            time.Time    `json:"updated_at" db:"updated_at"`
}

// CircuitBreakerState is the persisted singleton gating the QA agent.
// While now < PausedUntil the QA agent must no-op.
type CircuitBreakerState struct {
	ID                  int64      `json:"id" db:"id"`
	ConsecutiveFailures int        `json:"consecutive_failures" db:"consecutive_failures"`
	LastFailureAt       *time.Time `json:"last_failure_at" db:"last_failure_at"`
	PausedUntil         *time.Time `json:"paused_until" db:"paused_until"`
	MaxFailures         int        `json:"max_failures" db:"max_failures"`
	PauseMinutes        int        `json:"pause_minutes" db:"pause_minutes"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// Paused reports whether the breaker is holding the QA agent closed.
func (s *CircuitBreakerState) Paused(now time.Time) bool {
	return s.PausedUntil != nil && now.Before(*s.PausedUntil)
}

// RepairStep is one structured remediation attempt, logged regardless
// of outcome.
type RepairStep struct {
	Strategy  string            `json:"strategy"`
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Details   map[string]string `json:"details,omitempty"`
}
