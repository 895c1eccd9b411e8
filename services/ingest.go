package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirsamani13/househunt-hq-sub000/models"
)

// IngestOutcome classifies what happened to one extracted listing.
type IngestOutcome int

const (
	IngestInserted IngestOutcome = iota
	IngestDuplicate
	IngestSkipped
)

// ListingWriter is the slice of the store the ingest path needs.
type ListingWriter interface {
	InsertListing(ctx context.Context, l *models.Listing) (bool, error)
}

// IngestService persists validated listings with first-seen-wins
// deduplication on the external identifier.
type IngestService struct {
	store ListingWriter
}

func NewIngestService(store ListingWriter) *IngestService {
	return &IngestService{store: store}
}

// Ingest re-validates and stores a listing. The validation pass here is
// independent of the extractor's own checks so a bad record cannot slip
// through an intermediate transformation. A duplicate external id is
// not an error and never updates the stored row.
func (s *IngestService) Ingest(ctx context.Context, listing *models.Listing) (IngestOutcome, error) {
	if err := ValidateListing(listing); err != nil {
		return IngestSkipped, nil
	}

	inserted, err := s.store.InsertListing(ctx, listing)
	if err != nil {
		return IngestSkipped, fmt.Errorf("insert listing %s: %w", listing.ExternalID, err)
	}
	if !inserted {
		return IngestDuplicate, nil
	}
	return IngestInserted, nil
}

// ValidateListing applies the plausibility checks shared by the
// extractor and the ingest path.
func ValidateListing(l *models.Listing) error {
	if l == nil {
		return fmt.Errorf("nil listing")
	}
	if len(strings.TrimSpace(l.Title)) < 3 {
		return fmt.Errorf("title too short")
	}
	if l.ExternalID == "" {
		return fmt.Errorf("missing external id")
	}
	if l.Price < models.MinPlausiblePrice || l.Price > models.MaxPlausiblePrice {
		return fmt.Errorf("implausible price %d", l.Price)
	}
	if l.Bedrooms != nil && (*l.Bedrooms < models.MinPlausibleBedrooms || *l.Bedrooms > models.MaxPlausibleBedrooms) {
		return fmt.Errorf("implausible bedrooms %d", *l.Bedrooms)
	}
	if l.Bathrooms != nil && (*l.Bathrooms < models.MinPlausibleBaths || *l.Bathrooms > models.MaxPlausibleBaths) {
		return fmt.Errorf("implausible bathrooms %d", *l.Bathrooms)
	}
	return nil
}
