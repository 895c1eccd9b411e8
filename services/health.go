package services

import (
	"context"
	"fmt"
	"time"

	"github.com/amirsamani13/househunt-hq-sub000/config"
	"github.com/amirsamani13/househunt-hq-sub000/httputil"
	"github.com/amirsamani13/househunt-hq-sub000/models"
)

// HealthStore is the slice of the store the health machine needs.
type HealthStore interface {
	GetScraperHealth(ctx context.Context, source string) (*models.ScraperHealth, error)
	ListScraperHealth(ctx context.Context) ([]models.ScraperHealth, error)
	UpsertScraperHealth(ctx context.Context, h *models.ScraperHealth) error
}

// ApplyRunSuccess records a run that produced at least one validated
// listing: all failure counters reset and the source is healthy again.
func ApplyRunSuccess(h *models.ScraperHealth, now time.Time) {
	h.ConsecutiveFailures = 0
	h.ConsecutiveZeroRuns = 0
	h.RepairAttempts = 0
	h.IsInRepairMode = false
	h.Status = models.HealthStatusHealthy
	h.LastSuccessfulRunAt = &now
	h.UpdatedAt = now
}

// ApplyZeroRun records a run that completed but produced zero new
// listings. At the threshold the source is flagged for repair.
func ApplyZeroRun(h *models.ScraperHealth, now time.Time) {
	h.ConsecutiveZeroRuns++
	if h.ConsecutiveZeroRuns >= models.ZeroRunRepairThreshold {
		h.Status = models.HealthStatusNeedsRepair
	}
	h.UpdatedAt = now
}

// ApplyRunFailure records a run that threw (network or parse error).
func ApplyRunFailure(h *models.ScraperHealth, now time.Time) {
	h.ConsecutiveFailures++
	h.LastFailedRunAt = &now
	h.UpdatedAt = now
}

// ApplyRepairSuccess marks a source repaired with counters reset, so
// the next fetch proceeds immediately.
func ApplyRepairSuccess(h *models.ScraperHealth, now time.Time) {
	h.ConsecutiveFailures = 0
	h.ConsecutiveZeroRuns = 0
	h.IsInRepairMode = false
	h.Status = models.HealthStatusRepaired
	h.UpdatedAt = now
}

// ApplyRepairFailure leaves the source in repair mode.
func ApplyRepairFailure(h *models.ScraperHealth, now time.Time) {
	h.IsInRepairMode = true
	h.Status = models.HealthStatusFailed
	h.UpdatedAt = now
}

// HealthService persists health transitions and materializes records
// for sources that have none yet.
type HealthService struct {
	store HealthStore
}

func NewHealthService(store HealthStore) *HealthService {
	return &HealthService{store: store}
}

// GetOrCreate fetches the health record for a source, seeding one from
// the source config on first sight. Callers fetch this before any
// fallible operation so failure paths always have state to update.
func (s *HealthService) GetOrCreate(ctx context.Context, src *config.SourceConfig) (*models.ScraperHealth, error) {
	h, err := s.store.GetScraperHealth(ctx, src.ID)
	if err != nil {
		return nil, fmt.Errorf("get health for %s: %w", src.ID, err)
	}
	if h != nil {
		return h, nil
	}

	h = seedHealth(src, time.Now())
	if err := s.store.UpsertScraperHealth(ctx, h); err != nil {
		return nil, fmt.Errorf("seed health for %s: %w", src.ID, err)
	}
	return h, nil
}

func seedHealth(src *config.SourceConfig, now time.Time) *models.ScraperHealth {
	h := &models.ScraperHealth{
		Source:        src.ID,
		HeaderProfile: httputil.DefaultProfileName,
		Status:        models.HealthStatusHealthy,
		UpdatedAt:     now,
	}
	if len(src.IndexURLs) > 0 {
		h.CurrentURL = src.IndexURLs[0]
		h.BackupURLs = src.IndexURLs[1:]
	}
	if len(src.SelectorSets) > 0 {
		h.CurrentSelectors = src.SelectorSets[0].Name
		for _, set := range src.SelectorSets[1:] {
			h.BackupSelectors = append(h.BackupSelectors, set.Name)
		}
	}
	return h
}

// RecordOutcome applies the transition for one finished run and
// persists the result.
func (s *HealthService) RecordOutcome(ctx context.Context, h *models.ScraperHealth, newListings int, runErr error) error {
	now := time.Now()
	switch {
	case runErr != nil:
		ApplyRunFailure(h, now)
	case newListings > 0:
		ApplyRunSuccess(h, now)
	default:
		ApplyZeroRun(h, now)
	}
	return s.store.UpsertScraperHealth(ctx, h)
}
