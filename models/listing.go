package models

import (
	"time"

	"github.com/google/uuid"
)

// Listing is a single scraped rental property record. Once validated
// and stored it is immutable except for IsActive and LastUpdatedAt.
type Listing struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	ExternalID    string     `json:"external_id" db:"external_id"` // canonical listing URL, unique per store
	Source        string     `json:"source" db:"source"`
	Title         string     `json:"title" db:"title"`
	Description   string     `json:"description" db:"description"`
	Price         int        `json:"price" db:"price"` // monthly rent, EUR
	Bedrooms      *int       `json:"bedrooms" db:"bedrooms"`
	Bathrooms     *int       `json:"bathrooms" db:"bathrooms"`
	SurfaceM2     *int       `json:"surface_m2" db:"surface_m2"`
	Address       string     `json:"address" db:"address"`
	City          string     `json:"city" db:"city"`
	PostalCode    string     `json:"postal_code" db:"postal_code"`
	PropertyType  string     `json:"property_type" db:"property_type"`
	Furnished     string     `json:"furnished" db:"furnished"`
	URL           string     `json:"url" db:"url"`
	ImageURLs     []string   `json:"image_urls" db:"image_urls"`
	Features      []string   `json:"features" db:"features"`
	FirstSeenAt   time.Time  `json:"first_seen_at" db:"first_seen_at"`
	LastUpdatedAt time.Time  `json:"last_updated_at" db:"last_updated_at"`
	IsActive      bool       `json:"is_active" db:"is_active"`
}

// Plausibility bounds for validated listings.
const (
	MinPlausiblePrice    = 200
	MaxPlausiblePrice    = 5000
	MinPlausibleBedrooms = 1
	MaxPlausibleBedrooms = 6
	MinPlausibleBaths    = 1
	MaxPlausibleBaths    = 4
)
