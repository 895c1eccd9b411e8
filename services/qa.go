package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/amirsamani13/househunt-hq-sub000/config"
	"github.com/amirsamani13/househunt-hq-sub000/models"
)

// StatusCircuitBreakerActive is reported when the QA agent refuses to
// run because the breaker is open.
const StatusCircuitBreakerActive = "circuit_breaker_active"

// testRunRetention bounds how long synthetic run history is kept.
const testRunRetention = 7 * 24 * time.Hour

// maxRepairPerStreak caps auto-repair escalations for one failure
// streak before the agent gives up and pages the operator.
const maxRepairPerStreak = 3

// healthScorePassThreshold mirrors the notification quality threshold.
const healthScorePassThreshold = 70

// QAStore is the slice of the store the QA agent needs.
type QAStore interface {
	GetCircuitBreaker(ctx context.Context) (*models.CircuitBreakerState, error)
	UpsertCircuitBreaker(ctx context.Context, cb *models.CircuitBreakerState) error
	CreateTestRun(ctx context.Context, run *models.TestRun) error
	UpdateTestRun(ctx context.Context, run *models.TestRun) error
	InsertTestResult(ctx context.Context, r *models.TestResult) error
	DeleteTestRunsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	InsertListing(ctx context.Context, l *models.Listing) (bool, error)
	DeleteListing(ctx context.Context, id uuid.UUID) error
	DeleteListingsBySource(ctx context.Context, source string) (int64, error)
	InsertProfile(ctx context.Context, p *models.Profile) error
	DeleteProfile(ctx context.Context, userID uuid.UUID) error
	InsertAlert(ctx context.Context, a *models.Alert) error
	DeleteAlertsForUser(ctx context.Context, userID uuid.UUID) error
	GetNotificationByPair(ctx context.Context, userID, listingID uuid.UUID) (*models.NotificationRecord, error)
	DeleteNotificationsForUser(ctx context.Context, userID uuid.UUID) error
	ListScraperHealth(ctx context.Context) ([]models.ScraperHealth, error)
}

// DispatchFunc runs one notification sweep so injected synthetic
// listings get matched inside the QA cycle.
type DispatchFunc func(ctx context.Context) (int, error)

// RepairFunc escalates one failing source to the repair controller.
type RepairFunc func(ctx context.Context, sourceID string) error

// QAResult summarizes one invocation of the agent.
type QAResult struct {
	Status string
	Issues int
}

// QAAgent runs the synthetic end-to-end scenario plus per-source health
// scoring on a timer, self-pausing through the circuit breaker when it
// keeps failing.
type QAAgent struct {
	store    QAStore
	alerts   *AdminAlertService
	dispatch DispatchFunc
	repair   RepairFunc
	cfg      config.QAConfig
}

func NewQAAgent(store QAStore, alerts *AdminAlertService, dispatch DispatchFunc, repair RepairFunc, cfg config.QAConfig) *QAAgent {
	return &QAAgent{store: store, alerts: alerts, dispatch: dispatch, repair: repair, cfg: cfg}
}

// RunCycle executes one full QA cycle. While the breaker is open it
// performs no test execution and no store writes.
func (a *QAAgent) RunCycle(ctx context.Context) (*QAResult, error) {
	cb, err := a.loadBreaker(ctx)
	if err != nil {
		return nil, err
	}
	if cb.Paused(time.Now()) {
		log.Printf("QA cycle skipped: circuit breaker open until %s", cb.PausedUntil.Format(time.RFC3339))
		return &QAResult{Status: StatusCircuitBreakerActive}, nil
	}

	run := &models.TestRun{
		ID:        uuid.New(),
		StartedAt: time.Now(),
		Status:    models.TestRunStatusRunning,
	}
	if err := a.store.CreateTestRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create test run: %w", err)
	}

	issues := 0
	issues += a.runConstraintProbe(ctx, run)

	synth, setupOK := a.runSyntheticSetup(ctx, run)
	if !setupOK {
		issues++
	} else {
		issues += a.runMatchingScenario(ctx, run, synth)
	}
	issues += a.runHealthChecks(ctx, run)
	a.cleanup(ctx, synth)

	now := time.Now()
	run.CompletedAt = &now
	run.IssuesFound = issues
	if issues > 0 {
		run.Status = models.TestRunStatusFailed
	} else {
		run.Status = models.TestRunStatusCompleted
	}
	if err := a.store.UpdateTestRun(ctx, run); err != nil {
		log.Printf("Warning: update test run %s: %v", run.ID, err)
	}

	a.updateBreaker(ctx, cb, issues > 0)

	log.Printf("QA cycle %s: %s, %d issues", run.ID, run.Status, issues)
	return &QAResult{Status: string(run.Status), Issues: issues}, nil
}

func (a *QAAgent) loadBreaker(ctx context.Context) (*models.CircuitBreakerState, error) {
	cb, err := a.store.GetCircuitBreaker(ctx)
	if err != nil {
		return nil, fmt.Errorf("load circuit breaker: %w", err)
	}
	if cb == nil {
		cb = &models.CircuitBreakerState{
			ID:           1,
			MaxFailures:  a.cfg.MaxFailures,
			PauseMinutes: a.cfg.PauseMinutes,
			UpdatedAt:    time.Now(),
		}
	}
	return cb, nil
}

// runConstraintProbe inserts and immediately deletes a throwaway
// listing to confirm the store still accepts well-formed data.
func (a *QAAgent) runConstraintProbe(ctx context.Context, run *models.TestRun) int {
	result := &models.TestResult{RunID: run.ID, TestName: "constraint_probe", Score: 100, CreatedAt: time.Now()}

	probe := syntheticListing("probe")
	inserted, err := a.store.InsertListing(ctx, probe)
	switch {
	case err != nil:
		result.Details = fmt.Sprintf("insert rejected: %v", err)
	case !inserted:
		result.Details = "probe external id unexpectedly already present"
	default:
		if err := a.store.DeleteListing(ctx, probe.ID); err != nil {
			result.Details = fmt.Sprintf("delete failed: %v", err)
		} else {
			result.Passed = true
		}
	}
	if !result.Passed {
		result.Score = 0
	}
	a.record(ctx, result)

	if !result.Passed {
		a.raise(ctx, models.AlertTypeConstraintViolation, models.SeverityCritical,
			fmt.Sprintf("constraint probe failed: %s", result.Details), nil)
		return 1
	}
	return 0
}

// syntheticRun holds the entities one QA cycle creates and must clean
// up.
type syntheticRun struct {
	userID     uuid.UUID
	listingIDs []uuid.UUID
}

func (a *QAAgent) runSyntheticSetup(ctx context.Context, run *models.TestRun) (*syntheticRun, bool) {
	result := &models.TestResult{RunID: run.ID, TestName: "synthetic_user_alert", Score: 100, CreatedAt: time.Now()}

	userID := uuid.New()
	profile := &models.Profile{
		UserID: userID,
		Email:  fmt.Sprintf("%s%s@example.com", SyntheticEmailPrefix, userID),
	}
	minPrice, maxPrice := 500, 2500
	alert := &models.Alert{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      "qa synthetic alert",
		MinPrice:  &minPrice,
		MaxPrice:  &maxPrice,
		Cities:    []string{"Groningen"},
		IsActive:  true,
		CreatedAt: time.Now(),
	}

	synth := &syntheticRun{userID: userID}
	if err := a.store.InsertProfile(ctx, profile); err != nil {
		result.Details = fmt.Sprintf("insert profile: %v", err)
	} else if err := a.store.InsertAlert(ctx, alert); err != nil {
		result.Details = fmt.Sprintf("insert alert: %v", err)
	} else {
		result.Passed = true
	}
	if !result.Passed {
		result.Score = 0
	}
	a.record(ctx, result)

	if !result.Passed {
		a.raise(ctx, models.AlertTypePipelineFailure, models.SeverityWarning,
			fmt.Sprintf("synthetic setup failed: %s", result.Details), nil)
		return synth, false
	}
	return synth, true
}

// runMatchingScenario injects a listing engineered to match the
// synthetic alert, triggers a dispatch sweep and asserts a scored
// NotificationRecord exists.
func (a *QAAgent) runMatchingScenario(ctx context.Context, run *models.TestRun, synth *syntheticRun) int {
	result := &models.TestResult{RunID: run.ID, TestName: "notification_quality", Score: 100, CreatedAt: time.Now()}

	listing := syntheticListing("match")
	listing.City = "Groningen"
	listing.Price = 1200
	if _, err := a.store.InsertListing(ctx, listing); err != nil {
		result.Score = 0
		result.Details = fmt.Sprintf("inject listing: %v", err)
		a.record(ctx, result)
		a.raise(ctx, models.AlertTypePipelineFailure, models.SeverityWarning, result.Details, nil)
		return 1
	}
	synth.listingIDs = append(synth.listingIDs, listing.ID)

	if a.dispatch != nil {
		if _, err := a.dispatch(ctx); err != nil {
			log.Printf("Warning: QA dispatch sweep: %v", err)
		}
	}
	time.Sleep(500 * time.Millisecond)

	record, err := a.store.GetNotificationByPair(ctx, synth.userID, listing.ID)
	switch {
	case err != nil:
		result.Score = 0
		result.Details = fmt.Sprintf("lookup notification: %v", err)
	case record == nil:
		result.Score = 0
		result.Details = "no notification record created for synthetic match"
	case record.QualityScore == nil:
		result.Score = 0
		result.Details = "notification record has no quality score"
	default:
		result.Score = *record.QualityScore
		result.Passed = result.Score >= QualityPassThreshold
		result.Details = fmt.Sprintf("quality score %d, issues %v", result.Score, record.QualityIssues)
	}
	a.record(ctx, result)

	if !result.Passed {
		a.raise(ctx, models.AlertTypeNotificationQuality, models.SeverityWarning,
			fmt.Sprintf("notification quality check failed: %s", result.Details), nil)
		return 1
	}
	return 0
}

// runHealthChecks scores every known source and escalates failing ones
// to auto-repair, capped per failure streak.
func (a *QAAgent) runHealthChecks(ctx context.Context, run *models.TestRun) int {
	healths, err := a.store.ListScraperHealth(ctx)
	if err != nil {
		log.Printf("Warning: list scraper health: %v", err)
		return 1
	}

	issues := 0
	now := time.Now()
	for i := range healths {
		h := &healths[i]
		score, details := scoreSourceHealth(h, now)

		result := &models.TestResult{
			RunID:     run.ID,
			TestName:  fmt.Sprintf("source_health_%s", h.Source),
			Passed:    score >= healthScorePassThreshold,
			Score:     score,
			Details:   details,
			CreatedAt: now,
		}
		a.record(ctx, result)
		if result.Passed {
			continue
		}
		issues++

		if h.RepairAttempts >= maxRepairPerStreak {
			a.raise(ctx, models.AlertTypeRepairExhausted, models.SeverityCritical,
				fmt.Sprintf("source %s still unhealthy after %d repair attempts", h.Source, h.RepairAttempts),
				map[string]string{"source": h.Source, "details": details})
			continue
		}
		if a.repair != nil {
			if err := a.repair(ctx, h.Source); err != nil {
				log.Printf("Warning: QA repair escalation for %s: %v", h.Source, err)
				a.raise(ctx, models.AlertTypeScraperBroken, models.SeverityWarning,
					fmt.Sprintf("source %s failed repair: %v", h.Source, err),
					map[string]string{"source": h.Source})
			}
		}
	}
	return issues
}

// scoreSourceHealth applies the fixed deductions for one source.
func scoreSourceHealth(h *models.ScraperHealth, now time.Time) (int, string) {
	score := 100
	var reasons []string

	if h.LastSuccessfulRunAt == nil || now.Sub(*h.LastSuccessfulRunAt) > 24*time.Hour {
		score -= 50
		reasons = append(reasons, "no successful run in 24h")
	}
	if h.IsInRepairMode {
		score -= 30
		reasons = append(reasons, "in repair mode")
	}
	if h.ConsecutiveFailures > 3 {
		score -= 20
		reasons = append(reasons, fmt.Sprintf("%d consecutive failures", h.ConsecutiveFailures))
	}

	if score < 0 {
		score = 0
	}
	if len(reasons) == 0 {
		return score, "healthy"
	}
	return score, fmt.Sprintf("%v", reasons)
}

// cleanup removes everything this cycle created plus stale run history.
func (a *QAAgent) cleanup(ctx context.Context, synth *syntheticRun) {
	if synth != nil {
		if err := a.store.DeleteNotificationsForUser(ctx, synth.userID); err != nil {
			log.Printf("Warning: QA cleanup notifications: %v", err)
		}
		if err := a.store.DeleteAlertsForUser(ctx, synth.userID); err != nil {
			log.Printf("Warning: QA cleanup alerts: %v", err)
		}
		if err := a.store.DeleteProfile(ctx, synth.userID); err != nil {
			log.Printf("Warning: QA cleanup profile: %v", err)
		}
		for _, id := range synth.listingIDs {
			if err := a.store.DeleteListing(ctx, id); err != nil {
				log.Printf("Warning: QA cleanup listing %s: %v", id, err)
			}
		}
	}

	// Catch listings leaked by a cycle that died before its cleanup.
	if _, err := a.store.DeleteListingsBySource(ctx, syntheticSource); err != nil {
		log.Printf("Warning: QA synthetic listing sweep: %v", err)
	}
	if _, err := a.store.DeleteTestRunsBefore(ctx, time.Now().Add(-testRunRetention)); err != nil {
		log.Printf("Warning: QA retention sweep: %v", err)
	}
}

// updateBreaker applies the circuit breaker transition for a finished
// cycle and raises the critical alert when it trips.
func (a *QAAgent) updateBreaker(ctx context.Context, cb *models.CircuitBreakerState, failed bool) {
	now := time.Now()
	tripped := ApplyQAOutcome(cb, failed, now)
	if err := a.store.UpsertCircuitBreaker(ctx, cb); err != nil {
		log.Printf("Warning: persist circuit breaker: %v", err)
	}
	if tripped {
		a.raise(ctx, models.AlertTypeCircuitBreakerOpen, models.SeverityCritical,
			fmt.Sprintf("QA circuit breaker open after %d consecutive failed cycles, paused until %s",
				cb.ConsecutiveFailures, cb.PausedUntil.Format(time.RFC3339)), nil)
	}
}

// ApplyQAOutcome is the pure breaker transition: failures accumulate
// until the threshold opens the breaker; a clean run resets it.
// Returns true when this outcome tripped the breaker.
func ApplyQAOutcome(cb *models.CircuitBreakerState, failed bool, now time.Time) bool {
	cb.UpdatedAt = now
	if !failed {
		cb.ConsecutiveFailures = 0
		return false
	}

	cb.ConsecutiveFailures++
	cb.LastFailureAt = &now
	if cb.ConsecutiveFailures < cb.MaxFailures {
		return false
	}
	pausedUntil := now.Add(time.Duration(cb.PauseMinutes) * time.Minute)
	cb.PausedUntil = &pausedUntil
	return true
}

func (a *QAAgent) record(ctx context.Context, r *models.TestResult) {
	if err := a.store.InsertTestResult(ctx, r); err != nil {
		log.Printf("Warning: record test result %s: %v", r.TestName, err)
	}
}

func (a *QAAgent) raise(ctx context.Context, alertType string, severity models.AlertSeverity, message string, details map[string]string) {
	if a.alerts == nil {
		return
	}
	if err := a.alerts.Raise(ctx, alertType, severity, message, details); err != nil {
		log.Printf("Warning: raise admin alert %s: %v", alertType, err)
	}
}

// syntheticSource labels QA-owned listings so sweeps can find them.
const syntheticSource = "qa-synthetic"

// syntheticListing builds a plausible throwaway listing whose external
// id can never collide with a real source URL.
func syntheticListing(kind string) *models.Listing {
	id := uuid.New()
	now := time.Now()
	bedrooms := 2
	bathrooms := 1
	return &models.Listing{
		ID:            id,
		ExternalID:    fmt.Sprintf("https://qa.invalid/%s/%s", kind, id),
		Source:        syntheticSource,
		Title:         fmt.Sprintf("QA synthetic listing %s", id),
		Description:   "Synthetic record created by the QA agent; removed at the end of the cycle.",
		Price:         1200,
		Bedrooms:      &bedrooms,
		Bathrooms:     &bathrooms,
		Address:       "Teststraat 1, Groningen",
		City:          "Groningen",
		PostalCode:    "9711AA",
		PropertyType:  "apartment",
		URL:           fmt.Sprintf("https://qa.invalid/%s/%s", kind, id),
		FirstSeenAt:   now,
		LastUpdatedAt: now,
		IsActive:      true,
	}
}
