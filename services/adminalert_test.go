package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/amirsamani13/househunt-hq-sub000/models"
)

type fakeAlertStore struct {
	alerts []models.AdminAlert
}

func (f *fakeAlertStore) InsertAdminAlert(ctx context.Context, a *models.AdminAlert) error {
	f.alerts = append(f.alerts, *a)
	return nil
}

func (f *fakeAlertStore) GetRecentAdminAlertByType(ctx context.Context, alertType string, since time.Time) (*models.AdminAlert, error) {
	for i := len(f.alerts) - 1; i >= 0; i-- {
		a := f.alerts[i]
		if a.AlertType == alertType && !a.CreatedAt.Before(since) {
			return &a, nil
		}
	}
	return nil, nil
}

func (f *fakeAlertStore) GetAdminAlertByID(ctx context.Context, id uuid.UUID) (*models.AdminAlert, error) {
	for i := range f.alerts {
		if f.alerts[i].ID == id {
			a := f.alerts[i]
			return &a, nil
		}
	}
	return nil, nil
}

func (f *fakeAlertStore) GetLatestAdminAlert(ctx context.Context) (*models.AdminAlert, error) {
	var latest *models.AdminAlert
	for i := range f.alerts {
		if latest == nil || f.alerts[i].CreatedAt.After(latest.CreatedAt) {
			latest = &f.alerts[i]
		}
	}
	if latest == nil {
		return nil, nil
	}
	a := *latest
	return &a, nil
}

func (f *fakeAlertStore) GetUnsentAdminAlerts(ctx context.Context, limit int) ([]models.AdminAlert, error) {
	var out []models.AdminAlert
	for _, a := range f.alerts {
		if !a.Sent {
			out = append(out, a)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeAlertStore) MarkAdminAlertSent(ctx context.Context, id uuid.UUID) error {
	for i := range f.alerts {
		if f.alerts[i].ID == id {
			f.alerts[i].Sent = true
		}
	}
	return nil
}

func seedAlert(store *fakeAlertStore, alertType string, createdAt time.Time) uuid.UUID {
	id := uuid.New()
	store.alerts = append(store.alerts, models.AdminAlert{
		ID:        id,
		AlertType: alertType,
		Severity:  models.SeverityWarning,
		Message:   alertType + " raised",
		CreatedAt: createdAt,
	})
	return id
}

func TestDispatchByIDSendsAndMarks(t *testing.T) {
	store := &fakeAlertStore{}
	id := seedAlert(store, "scraper_failure", time.Now())
	sender := &countingSender{}
	svc := NewAdminAlertService(store, sender, "ops@example.com")

	if err := svc.DispatchByID(context.Background(), id); err != nil {
		t.Fatalf("DispatchByID: %v", err)
	}
	if sender.sends != 1 {
		t.Fatalf("sends = %d, want 1", sender.sends)
	}
	if !store.alerts[0].Sent {
		t.Fatal("alert should be marked sent")
	}

	if err := svc.DispatchByID(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error for unknown alert id")
	}
}

func TestDispatchLatestPicksNewest(t *testing.T) {
	store := &fakeAlertStore{}
	seedAlert(store, "scraper_failure", time.Now().Add(-2*time.Hour))
	newest := seedAlert(store, "notification_quality", time.Now())
	sender := &countingSender{}
	svc := NewAdminAlertService(store, sender, "ops@example.com")

	if err := svc.DispatchLatest(context.Background()); err != nil {
		t.Fatalf("DispatchLatest: %v", err)
	}
	if sender.sends != 1 {
		t.Fatalf("sends = %d, want 1", sender.sends)
	}
	for _, a := range store.alerts {
		if a.ID == newest && !a.Sent {
			t.Fatal("newest alert should be the one sent")
		}
		if a.ID != newest && a.Sent {
			t.Fatal("older alert should stay queued")
		}
	}

	empty := NewAdminAlertService(&fakeAlertStore{}, sender, "ops@example.com")
	if err := empty.DispatchLatest(context.Background()); err != nil {
		t.Fatalf("DispatchLatest with no alerts: %v", err)
	}
}

func TestDispatchRequiresConfiguredMail(t *testing.T) {
	store := &fakeAlertStore{}
	id := seedAlert(store, "scraper_failure", time.Now())
	svc := NewAdminAlertService(store, nil, "")

	if err := svc.DispatchByID(context.Background(), id); err == nil {
		t.Fatal("expected error without a configured sender")
	}
	sent, err := svc.DispatchPending(context.Background(), 10)
	if err != nil || sent != 0 {
		t.Fatalf("DispatchPending = (%d, %v), want quiet no-op", sent, err)
	}
	if store.alerts[0].Sent {
		t.Fatal("alert must stay queued when mail is unconfigured")
	}
}
