package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/amirsamani13/househunt-hq-sub000/models"
)

type fakeDispatchStore struct {
	mu          sync.Mutex
	listings    []models.Listing
	alerts      []models.Alert
	profiles    map[uuid.UUID]*models.Profile
	claims      map[[2]uuid.UUID]*models.NotificationRecord
	deactivated map[uuid.UUID]bool
	touched     int
}

func newFakeDispatchStore() *fakeDispatchStore {
	return &fakeDispatchStore{
		profiles:    make(map[uuid.UUID]*models.Profile),
		claims:      make(map[[2]uuid.UUID]*models.NotificationRecord),
		deactivated: make(map[uuid.UUID]bool),
	}
}

func (f *fakeDispatchStore) GetActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Alert{}, f.alerts...), nil
}

func (f *fakeDispatchStore) GetRecentActiveListings(ctx context.Context, since time.Time) ([]models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Listing
	for _, l := range f.listings {
		if !f.deactivated[l.ID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeDispatchStore) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles[userID], nil
}

func (f *fakeDispatchStore) ClaimNotification(ctx context.Context, n *models.NotificationRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]uuid.UUID{n.UserID, n.ListingID}
	if _, exists := f.claims[key]; exists {
		return false, nil
	}
	stored := *n
	f.claims[key] = &stored
	return true, nil
}

func (f *fakeDispatchStore) UpdateNotificationResult(ctx context.Context, n *models.NotificationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *n
	f.claims[[2]uuid.UUID{n.UserID, n.ListingID}] = &stored
	return nil
}

func (f *fakeDispatchStore) DeactivateListing(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deactivated[id] = true
	return nil
}

func (f *fakeDispatchStore) TouchListing(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched++
	return nil
}

type countingSender struct {
	mu    sync.Mutex
	sends int
	fail  bool
}

func (c *countingSender) Send(to, subject, htmlBody, textBody string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends++
	if c.fail {
		return errTestProvider
	}
	return nil
}

var errTestProvider = errors.New("provider rejected")

func dispatchFixture(t *testing.T, liveURL string) (*fakeDispatchStore, *models.Alert, *models.Listing) {
	t.Helper()
	store := newFakeDispatchStore()

	listing := groningenListing()
	listing.ID = uuid.New()
	listing.URL = liveURL
	listing.FirstSeenAt = time.Now()
	listing.IsActive = true
	store.listings = []models.Listing{*listing}

	userID := uuid.New()
	alert := &models.Alert{
		ID:       uuid.New(),
		UserID:   userID,
		Name:     "groningen centrum",
		Cities:   []string{"Groningen"},
		IsActive: true,
	}
	store.alerts = []models.Alert{*alert}
	store.profiles[userID] = &models.Profile{UserID: userID, Email: "user@example.com"}

	return store, alert, listing
}

func TestDispatchExactlyOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store, alert, listing := dispatchFixture(t, srv.URL)
	sender := &countingSender{}
	d := NewDispatcher(store, srv.Client(), sender, nil, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.DispatchCycle(context.Background()); err != nil {
				t.Errorf("DispatchCycle: %v", err)
			}
		}()
	}
	wg.Wait()

	if sender.sends != 1 {
		t.Fatalf("sends = %d, want exactly 1", sender.sends)
	}
	record := store.claims[[2]uuid.UUID{alert.UserID, listing.ID}]
	if record == nil {
		t.Fatal("expected one notification record")
	}
	if record.Status != models.NotificationStatusSent {
		t.Fatalf("status = %s, want sent", record.Status)
	}
	if record.QualityScore == nil || *record.QualityScore < QualityPassThreshold {
		t.Fatalf("quality score = %v, want >= %d", record.QualityScore, QualityPassThreshold)
	}
}

func TestDispatchDeadLinkDeactivates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	store, _, listing := dispatchFixture(t, srv.URL)
	sender := &countingSender{}
	d := NewDispatcher(store, srv.Client(), sender, nil, time.Hour)

	if _, err := d.DispatchCycle(context.Background()); err != nil {
		t.Fatalf("DispatchCycle: %v", err)
	}

	if sender.sends != 0 {
		t.Fatalf("sends = %d, want 0 for dead link", sender.sends)
	}
	if !store.deactivated[listing.ID] {
		t.Fatal("410 should deactivate the listing")
	}
	if len(store.claims) != 0 {
		t.Fatal("no claim should exist for a dead listing")
	}
}

func TestDispatchFailedSendNotRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store, alert, listing := dispatchFixture(t, srv.URL)
	sender := &countingSender{fail: true}
	d := NewDispatcher(store, srv.Client(), sender, nil, time.Hour)

	if _, err := d.DispatchCycle(context.Background()); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if _, err := d.DispatchCycle(context.Background()); err != nil {
		t.Fatalf("second cycle: %v", err)
	}

	if sender.sends != 1 {
		t.Fatalf("sends = %d, the claimed pair must not retry", sender.sends)
	}
	record := store.claims[[2]uuid.UUID{alert.UserID, listing.ID}]
	if record == nil || record.Status != models.NotificationStatusFailed {
		t.Fatalf("record = %+v, want failed status", record)
	}
	if record.DeliveryError == "" {
		t.Fatal("delivery error should be captured")
	}
}

func TestDispatchNoSenderSkipsBeforeClaim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store, alert, listing := dispatchFixture(t, srv.URL)
	d := NewDispatcher(store, srv.Client(), nil, nil, time.Hour)

	sent, err := d.DispatchCycle(context.Background())
	if err != nil {
		t.Fatalf("DispatchCycle without a mail sender: %v", err)
	}
	if sent != 0 {
		t.Fatalf("sent = %d, want 0 without a mail sender", sent)
	}
	if len(store.claims) != 0 {
		t.Fatal("pair must stay unclaimed so it dispatches once mail is configured")
	}

	// Mail comes back: the same pair is still deliverable.
	sender := &countingSender{}
	d = NewDispatcher(store, srv.Client(), sender, nil, time.Hour)
	if _, err := d.DispatchCycle(context.Background()); err != nil {
		t.Fatalf("DispatchCycle: %v", err)
	}
	if sender.sends != 1 {
		t.Fatalf("sends = %d, want 1 after the sender is configured", sender.sends)
	}
	record := store.claims[[2]uuid.UUID{alert.UserID, listing.ID}]
	if record == nil || record.Status != models.NotificationStatusSent {
		t.Fatalf("record = %+v, want sent", record)
	}
}

func TestDispatchNoSenderStillRecordsSynthetic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store, alert, listing := dispatchFixture(t, srv.URL)
	store.profiles[alert.UserID].Email = SyntheticEmailPrefix + "xyz@example.com"
	d := NewDispatcher(store, srv.Client(), nil, nil, time.Hour)

	if _, err := d.DispatchCycle(context.Background()); err != nil {
		t.Fatalf("DispatchCycle: %v", err)
	}
	record := store.claims[[2]uuid.UUID{alert.UserID, listing.ID}]
	if record == nil || record.Status != models.NotificationStatusSent {
		t.Fatalf("synthetic traffic needs no provider, got %+v", record)
	}
}

func TestDispatchSkipsPausedAndSynthetic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store, alert, listing := dispatchFixture(t, srv.URL)
	sender := &countingSender{}
	d := NewDispatcher(store, srv.Client(), sender, nil, time.Hour)

	store.profiles[alert.UserID].NotificationsPaused = true
	if _, err := d.DispatchCycle(context.Background()); err != nil {
		t.Fatalf("DispatchCycle: %v", err)
	}
	if sender.sends != 0 || len(store.claims) != 0 {
		t.Fatal("paused profile must be skipped before any claim")
	}

	store.profiles[alert.UserID].NotificationsPaused = false
	store.profiles[alert.UserID].Email = SyntheticEmailPrefix + "abc@example.com"
	if _, err := d.DispatchCycle(context.Background()); err != nil {
		t.Fatalf("DispatchCycle: %v", err)
	}
	if sender.sends != 0 {
		t.Fatal("synthetic address must never reach the provider")
	}
	record := store.claims[[2]uuid.UUID{alert.UserID, listing.ID}]
	if record == nil || record.Status != models.NotificationStatusSent {
		t.Fatalf("synthetic match should still produce a sent record, got %+v", record)
	}
	if record.QualityScore == nil {
		t.Fatal("synthetic record should carry a quality score")
	}
}
