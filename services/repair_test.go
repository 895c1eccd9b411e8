package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/amirsamani13/househunt-hq-sub000/config"
	"github.com/amirsamani13/househunt-hq-sub000/httputil"
	"github.com/amirsamani13/househunt-hq-sub000/models"
)

type fakeHealthStore struct {
	saved []*models.ScraperHealth
}

func (f *fakeHealthStore) GetScraperHealth(ctx context.Context, source string) (*models.ScraperHealth, error) {
	return nil, nil
}

func (f *fakeHealthStore) ListScraperHealth(ctx context.Context) ([]models.ScraperHealth, error) {
	return nil, nil
}

func (f *fakeHealthStore) UpsertScraperHealth(ctx context.Context, h *models.ScraperHealth) error {
	copied := *h
	f.saved = append(f.saved, &copied)
	return nil
}

// substringProbe reports a match when its marker appears in the page.
type substringProbe struct {
	name   string
	marker string
}

func (p substringProbe) Name() string { return p.name }

func (p substringProbe) MatchCount(html string) int {
	if strings.Contains(html, p.marker) {
		return 1
	}
	return 0
}

func repairHealth(currentURL string, backups ...string) *models.ScraperHealth {
	return &models.ScraperHealth{
		Source:           "pararius",
		CurrentURL:       currentURL,
		BackupURLs:       backups,
		CurrentSelectors: "default",
		BackupSelectors:  []string{"compact"},
		HeaderProfile:    httputil.DefaultProfileName,
		Status:           models.HealthStatusNeedsRepair,
	}
}

func TestRepairPromotesBackupURL(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer dead.Close()
	alive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer alive.Close()

	store := &fakeHealthStore{}
	ctrl := NewRepairController(http.DefaultClient, store, nil)

	h := repairHealth(dead.URL, alive.URL)
	ok, steps := ctrl.Repair(context.Background(), &config.SourceConfig{ID: "pararius"}, h, nil)
	if !ok {
		t.Fatalf("repair should succeed, steps: %+v", steps)
	}
	if h.CurrentURL != alive.URL {
		t.Fatalf("current URL = %s, want promoted backup %s", h.CurrentURL, alive.URL)
	}
	if len(h.BackupURLs) != 1 || h.BackupURLs[0] != dead.URL {
		t.Fatalf("old URL should move to backups: %v", h.BackupURLs)
	}
	if h.Status != models.HealthStatusRepaired {
		t.Fatalf("status = %s, want repaired", h.Status)
	}
	if h.RepairAttempts != 1 {
		t.Fatalf("repair attempts = %d, every pass increments", h.RepairAttempts)
	}
	if steps[0].Strategy != StrategyURLRotation || !steps[0].Success {
		t.Fatalf("first step should be a successful URL rotation: %+v", steps[0])
	}
	if len(store.saved) == 0 {
		t.Fatal("repair outcome should be persisted")
	}
}

func TestRepairRotatesSelectors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><div class="new-markup">listings</div></html>`))
	}))
	defer srv.Close()

	store := &fakeHealthStore{}
	ctrl := NewRepairController(http.DefaultClient, store, nil)

	h := repairHealth(srv.URL)
	probes := map[string]SelectorProbe{
		"default": substringProbe{name: "default", marker: "old-markup"},
		"compact": substringProbe{name: "compact", marker: "new-markup"},
	}

	ok, steps := ctrl.Repair(context.Background(), &config.SourceConfig{ID: "pararius"}, h, probes)
	if !ok {
		t.Fatalf("repair should succeed, steps: %+v", steps)
	}
	if h.CurrentSelectors != "compact" {
		t.Fatalf("current selectors = %s, want compact", h.CurrentSelectors)
	}
	if len(h.BackupSelectors) != 1 || h.BackupSelectors[0] != "default" {
		t.Fatalf("old set should move to backups: %v", h.BackupSelectors)
	}
	if steps[1].Strategy != StrategySelectorRotation || !steps[1].Success {
		t.Fatalf("second step should be a successful selector rotation: %+v", steps[1])
	}
}

func TestRepairAllStrategiesExhausted(t *testing.T) {
	blocked := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "HEAD" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte("captcha required"))
	}))
	defer blocked.Close()

	store := &fakeHealthStore{}
	ctrl := NewRepairController(http.DefaultClient, store, nil)

	h := repairHealth(blocked.URL)
	h.BackupURLs = nil

	ok, steps := ctrl.Repair(context.Background(), &config.SourceConfig{ID: "pararius"}, h, nil)
	if ok {
		t.Fatal("repair should fail when every strategy fails")
	}
	if len(steps) != 3 {
		t.Fatalf("got %d steps, want all 3 strategies logged", len(steps))
	}
	if !h.IsInRepairMode {
		t.Fatal("failed repair should leave the source in repair mode")
	}
	if h.RepairAttempts != 1 {
		t.Fatalf("repair attempts = %d, want 1", h.RepairAttempts)
	}
	if h.Status != models.HealthStatusFailed {
		t.Fatalf("status = %s, want failed", h.Status)
	}
}

func TestRepairVerificationRevertsSuccess(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer dead.Close()
	alive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer alive.Close()

	verify := func(ctx context.Context, src *config.SourceConfig, h *models.ScraperHealth) (int, error) {
		return 0, nil
	}
	ctrl := NewRepairController(http.DefaultClient, &fakeHealthStore{}, verify)

	h := repairHealth(dead.URL, alive.URL)
	ok, steps := ctrl.Repair(context.Background(), &config.SourceConfig{ID: "pararius"}, h, nil)
	if ok {
		t.Fatal("a failing verification scrape must revert success")
	}
	last := steps[len(steps)-1]
	if last.Strategy != "verification_scrape" || last.Success {
		t.Fatalf("last step should be the failed verification: %+v", last)
	}
	if h.Status != models.HealthStatusFailed {
		t.Fatalf("status = %s, want failed after reverted verification", h.Status)
	}
}
