package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// NotificationRecord claims a (user, listing) pair for exactly one send
// attempt. The store enforces uniqueness on (user_id, property_id);
// the insert that wins the claim is the only one allowed to send.
type NotificationRecord struct {
	ID            uuid.UUID          `json:"id" db:"id"`
	UserID        uuid.UUID          `json:"user_id" db:"user_id"`
	ListingID     uuid.UUID          `json:"property_id" db:"property_id"`
	AlertID       *uuid.UUID         `json:"alert_id" db:"alert_id"`
	Status        NotificationStatus `json:"status" db:"status"`
	DeliveryError string             `json:"delivery_error" db:"delivery_error"`
	QualityScore  *int               `json:"quality_score" db:"quality_score"`
	QualityIssues []string           `json:"quality_issues" db:"quality_issues"`
	CreatedAt     time.Time          `json:"created_at" db:"created_at"`
	SentAt        *time.Time         `json:"sent_at" db:"sent_at"`
}
