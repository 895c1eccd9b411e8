package models

import (
	"time"

	"github.com/google/uuid"
)

// Alert is a user's saved search criteria. Created and edited outside
// this daemon; consumed read-only by the matching engine. Nil bounds
// and empty sets impose no constraint.
type Alert struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	Name          string    `json:"name" db:"name"`
	MinPrice      *int      `json:"min_price" db:"min_price"`
	MaxPrice      *int      `json:"max_price" db:"max_price"`
	MinBedrooms   *int      `json:"min_bedrooms" db:"min_bedrooms"`
	MaxBedrooms   *int      `json:"max_bedrooms" db:"max_bedrooms"`
	MinSurfaceM2  *int      `json:"min_surface_m2" db:"min_surface_m2"`
	Cities        []string  `json:"cities" db:"cities"`
	PropertyTypes []string  `json:"property_types" db:"property_types"`
	Furnished     []string  `json:"furnished" db:"furnished"`
	Sources       []string  `json:"sources" db:"sources"`
	PostalCodes   []string  `json:"postal_codes" db:"postal_codes"`
	Keywords      []string  `json:"keywords" db:"keywords"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Profile carries a user's contact details and notification switch.
// Owned by the account system; consumed read-only here.
type Profile struct {
	UserID              uuid.UUID `json:"user_id" db:"user_id"`
	Email               string    `json:"email" db:"email"`
	Phone               string    `json:"phone" db:"phone"`
	NotificationsPaused bool      `json:"notifications_paused" db:"notifications_paused"`
}
