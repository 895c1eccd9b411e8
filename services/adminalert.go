package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/amirsamani13/househunt-hq-sub000/models"
	"github.com/amirsamani13/househunt-hq-sub000/notify"
)

// adminAlertDedupWindow suppresses repeat alerts of one type.
const adminAlertDedupWindow = 24 * time.Hour

// AdminAlertStore is the slice of the store the alert channel needs.
type AdminAlertStore interface {
	InsertAdminAlert(ctx context.Context, a *models.AdminAlert) error
	GetRecentAdminAlertByType(ctx context.Context, alertType string, since time.Time) (*models.AdminAlert, error)
	GetAdminAlertByID(ctx context.Context, id uuid.UUID) (*models.AdminAlert, error)
	GetLatestAdminAlert(ctx context.Context) (*models.AdminAlert, error)
	GetUnsentAdminAlerts(ctx context.Context, limit int) ([]models.AdminAlert, error)
	MarkAdminAlertSent(ctx context.Context, id uuid.UUID) error
}

// AdminAlertService is the durable operator-facing incident channel:
// alerts are persisted first and delivered by a separate sweep, so a
// mail outage never loses an incident.
type AdminAlertService struct {
	store      AdminAlertStore
	email      notify.EmailSender
	adminEmail string
}

func NewAdminAlertService(store AdminAlertStore, email notify.EmailSender, adminEmail string) *AdminAlertService {
	return &AdminAlertService{store: store, email: email, adminEmail: adminEmail}
}

// Raise records an incident. Repeats of the same alert type within 24h
// are suppressed unless the severity is critical.
func (s *AdminAlertService) Raise(ctx context.Context, alertType string, severity models.AlertSeverity, message string, details map[string]string) error {
	if severity != models.SeverityCritical {
		recent, err := s.store.GetRecentAdminAlertByType(ctx, alertType, time.Now().Add(-adminAlertDedupWindow))
		if err != nil {
			return fmt.Errorf("dedup lookup for %s: %w", alertType, err)
		}
		if recent != nil {
			return nil
		}
	}

	var raw json.RawMessage
	if len(details) > 0 {
		raw, _ = json.Marshal(details)
	}

	alert := &models.AdminAlert{
		ID:        uuid.New(),
		AlertType: alertType,
		Severity:  severity,
		Message:   message,
		Details:   raw,
		CreatedAt: time.Now(),
	}
	if err := s.store.InsertAdminAlert(ctx, alert); err != nil {
		return fmt.Errorf("insert admin alert %s: %w", alertType, err)
	}
	log.Printf("Admin alert [%s/%s]: %s", severity, alertType, message)
	return nil
}

// DispatchPending emails queued alerts to the operator address and
// marks them sent. Returns the number delivered.
func (s *AdminAlertService) DispatchPending(ctx context.Context, limit int) (int, error) {
	if s.email == nil || s.adminEmail == "" {
		return 0, nil
	}

	alerts, err := s.store.GetUnsentAdminAlerts(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("load unsent admin alerts: %w", err)
	}

	sent := 0
	for i := range alerts {
		alert := &alerts[i]
		if err := s.send(ctx, alert); err != nil {
			log.Printf("Warning: deliver admin alert %s: %v", alert.ID, err)
			continue
		}
		sent++
	}
	return sent, nil
}

// DispatchByID delivers one alert immediately, ahead of the queue. A
// resend of an already-sent alert is allowed.
func (s *AdminAlertService) DispatchByID(ctx context.Context, id uuid.UUID) error {
	alert, err := s.store.GetAdminAlertByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load admin alert %s: %w", id, err)
	}
	if alert == nil {
		return fmt.Errorf("admin alert %s not found", id)
	}
	return s.send(ctx, alert)
}

// DispatchLatest delivers the most recently raised alert. No alerts at
// all is not an error.
func (s *AdminAlertService) DispatchLatest(ctx context.Context) error {
	alert, err := s.store.GetLatestAdminAlert(ctx)
	if err != nil {
		return fmt.Errorf("load latest admin alert: %w", err)
	}
	if alert == nil {
		return nil
	}
	return s.send(ctx, alert)
}

func (s *AdminAlertService) send(ctx context.Context, alert *models.AdminAlert) error {
	if s.email == nil || s.adminEmail == "" {
		return fmt.Errorf("admin email delivery not configured")
	}

	subject := fmt.Sprintf("[%s] %s", alert.Severity, alert.AlertType)
	body := renderAdminAlert(alert)
	if err := s.email.Send(s.adminEmail, subject, body, body); err != nil {
		return err
	}
	if !alert.Sent {
		if err := s.store.MarkAdminAlertSent(ctx, alert.ID); err != nil {
			return fmt.Errorf("mark admin alert %s sent: %w", alert.ID, err)
		}
		alert.Sent = true
	}
	return nil
}

func renderAdminAlert(alert *models.AdminAlert) string {
	body := fmt.Sprintf("%s\n\nType: %s\nSeverity: %s\nRaised: %s\n",
		alert.Message, alert.AlertType, alert.Severity, alert.CreatedAt.Format(time.RFC3339))
	if len(alert.Details) > 0 {
		body += fmt.Sprintf("\nDetails: %s\n", string(alert.Details))
	}
	return body
}
