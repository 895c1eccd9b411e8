package services

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amirsamani13/househunt-hq-sub000/models"
	"github.com/amirsamani13/househunt-hq-sub000/notify"
)

// SyntheticEmailPrefix marks QA-owned accounts. Matching records are
// claimed and scored like real traffic but never reach a provider.
const SyntheticEmailPrefix = "qa-test-"

// DispatchStore is the slice of the store the dispatcher needs.
type DispatchStore interface {
	GetActiveAlerts(ctx context.Context) ([]models.Alert, error)
	GetRecentActiveListings(ctx context.Context, since time.Time) ([]models.Listing, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	ClaimNotification(ctx context.Context, n *models.NotificationRecord) (bool, error)
	UpdateNotificationResult(ctx context.Context, n *models.NotificationRecord) error
	DeactivateListing(ctx context.Context, id uuid.UUID) error
	TouchListing(ctx context.Context, id uuid.UUID) error
}

// Dispatcher matches recent listings against active alerts and delivers
// each match at most once. The unique claim insert on
// (user_id, property_id) is the only synchronization between
// overlapping cycles.
type Dispatcher struct {
	store    DispatchStore
	liveness *http.Client
	email    notify.EmailSender
	sms      notify.SMSSender
	lookback time.Duration
}

func NewDispatcher(store DispatchStore, liveness *http.Client, email notify.EmailSender, sms notify.SMSSender, lookback time.Duration) *Dispatcher {
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	return &Dispatcher{
		store:    store,
		liveness: liveness,
		email:    email,
		sms:      sms,
		lookback: lookback,
	}
}

// DispatchCycle runs one full sweep. Per-pair failures are logged and
// never abort the batch; the returned count is successful sends.
func (d *Dispatcher) DispatchCycle(ctx context.Context) (int, error) {
	listings, err := d.store.GetRecentActiveListings(ctx, time.Now().Add(-d.lookback))
	if err != nil {
		return 0, fmt.Errorf("load recent listings: %w", err)
	}
	if len(listings) == 0 {
		return 0, nil
	}

	alerts, err := d.store.GetActiveAlerts(ctx)
	if err != nil {
		return 0, fmt.Errorf("load active alerts: %w", err)
	}

	alive := make(map[uuid.UUID]bool, len(listings))
	profiles := make(map[uuid.UUID]*models.Profile)
	sent := 0

	for i := range listings {
		listing := &listings[i]
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		live, checked := alive[listing.ID]
		if !checked {
			live = d.checkLiveness(ctx, listing)
			alive[listing.ID] = live
		}
		if !live {
			continue
		}

		for j := range alerts {
			alert := &alerts[j]

			profile, ok := profiles[alert.UserID]
			if !ok {
				profile, err = d.store.GetProfile(ctx, alert.UserID)
				if err != nil {
					log.Printf("Warning: load profile %s: %v", alert.UserID, err)
					continue
				}
				profiles[alert.UserID] = profile
			}
			if profile == nil || profile.Email == "" || profile.NotificationsPaused {
				continue
			}

			if !Matches(alert, listing) {
				continue
			}

			if d.deliver(ctx, alert, listing, profile) {
				sent++
			}
		}
	}

	return sent, nil
}

// deliver claims the (user, listing) pair and, when the claim wins,
// makes exactly one send attempt. The record is updated once and never
// deleted; a failed send is not retried.
func (d *Dispatcher) deliver(ctx context.Context, alert *models.Alert, listing *models.Listing, profile *models.Profile) bool {
	synthetic := strings.HasPrefix(strings.ToLower(profile.Email), SyntheticEmailPrefix)

	// No mail provider configured. Leave the pair unclaimed so it
	// dispatches once mail comes back; synthetic traffic never needs
	// the provider.
	if !synthetic && d.email == nil {
		return false
	}

	alertID := alert.ID
	record := &models.NotificationRecord{
		ID:        uuid.New(),
		UserID:    alert.UserID,
		ListingID: listing.ID,
		AlertID:   &alertID,
		Status:    models.NotificationStatusPending,
		CreatedAt: time.Now(),
	}

	won, err := d.store.ClaimNotification(ctx, record)
	if err != nil {
		log.Printf("Warning: claim notification %s/%s: %v", alert.UserID, listing.ID, err)
		return false
	}
	if !won {
		return false
	}

	subject, htmlBody, textBody := RenderListingEmail(alert, listing)
	score, issues := ScoreMessage(textBody, listing)
	record.QualityScore = &score
	record.QualityIssues = issues

	var sendErr error
	if synthetic {
		// QA traffic exercises the full pipeline minus the provider.
	} else {
		sendErr = d.email.Send(profile.Email, subject, htmlBody, textBody)
		if sendErr == nil && d.sms != nil && profile.Phone != "" {
			if err := d.sms.Send(profile.Phone, renderSMS(listing)); err != nil {
				log.Printf("Warning: sms to %s: %v", profile.Phone, err)
			}
		}
	}

	now := time.Now()
	if sendErr != nil {
		record.Status = models.NotificationStatusFailed
		record.DeliveryError = sendErr.Error()
	} else {
		record.Status = models.NotificationStatusSent
		record.SentAt = &now
	}
	if err := d.store.UpdateNotificationResult(ctx, record); err != nil {
		log.Printf("Warning: update notification %s: %v", record.ID, err)
	}

	return sendErr == nil
}

// checkLiveness probes the listing's public URL (HEAD, fallback GET).
// A 404/410 deactivates the listing; any other reachable answer bumps
// its last_updated_at.
func (d *Dispatcher) checkLiveness(ctx context.Context, listing *models.Listing) bool {
	status, err := d.probe(ctx, "HEAD", listing.URL)
	if err != nil || status == http.StatusMethodNotAllowed {
		status, err = d.probe(ctx, "GET", listing.URL)
	}
	if err != nil {
		// Unreachable is not dead; the next sweep retries.
		return true
	}

	if status == http.StatusNotFound || status == http.StatusGone {
		if err := d.store.DeactivateListing(ctx, listing.ID); err != nil {
			log.Printf("Warning: deactivate listing %s: %v", listing.ID, err)
		}
		return false
	}

	if err := d.store.TouchListing(ctx, listing.ID); err != nil {
		log.Printf("Warning: touch listing %s: %v", listing.ID, err)
	}
	return true
}

func (d *Dispatcher) probe(ctx context.Context, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := d.liveness.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
