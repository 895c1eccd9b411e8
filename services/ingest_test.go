package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/amirsamani13/househunt-hq-sub000/models"
)

type fakeListingWriter struct {
	seen map[string]bool
}

func (f *fakeListingWriter) InsertListing(ctx context.Context, l *models.Listing) (bool, error) {
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[l.ExternalID] {
		return false, nil
	}
	f.seen[l.ExternalID] = true
	return true, nil
}

func validListing() *models.Listing {
	l := groningenListing()
	l.ID = uuid.New()
	l.ExternalID = "https://example.nl/huur/woning-" + l.ID.String()
	l.FirstSeenAt = time.Now()
	l.LastUpdatedAt = l.FirstSeenAt
	return l
}

func TestIngestDedupIdempotence(t *testing.T) {
	svc := NewIngestService(&fakeListingWriter{})
	listing := validListing()

	outcome, err := svc.Ingest(context.Background(), listing)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if outcome != IngestInserted {
		t.Fatalf("first outcome = %v, want inserted", outcome)
	}

	outcome, err = svc.Ingest(context.Background(), listing)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if outcome != IngestDuplicate {
		t.Fatalf("second outcome = %v, want duplicate", outcome)
	}
}

func TestIngestSecondValidationPass(t *testing.T) {
	writer := &fakeListingWriter{}
	svc := NewIngestService(writer)

	bad := validListing()
	bad.Price = 199

	outcome, err := svc.Ingest(context.Background(), bad)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if outcome != IngestSkipped {
		t.Fatalf("outcome = %v, want skipped", outcome)
	}
	if len(writer.seen) != 0 {
		t.Fatal("invalid listing must not reach the store")
	}
}

func TestValidateListingBounds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*models.Listing)
		valid  bool
	}{
		{"ok", func(l *models.Listing) {}, true},
		{"price low", func(l *models.Listing) { l.Price = 199 }, false},
		{"price min", func(l *models.Listing) { l.Price = 200 }, true},
		{"price max", func(l *models.Listing) { l.Price = 5000 }, true},
		{"price high", func(l *models.Listing) { l.Price = 5001 }, false},
		{"bedrooms zero", func(l *models.Listing) { l.Bedrooms = intp(0) }, false},
		{"bedrooms seven", func(l *models.Listing) { l.Bedrooms = intp(7) }, false},
		{"bathrooms five", func(l *models.Listing) { l.Bathrooms = intp(5) }, false},
		{"nil counts", func(l *models.Listing) { l.Bedrooms = nil; l.Bathrooms = nil }, true},
		{"short title", func(l *models.Listing) { l.Title = "ab" }, false},
		{"no external id", func(l *models.Listing) { l.ExternalID = "" }, false},
	}

	for _, tc := range cases {
		l := validListing()
		tc.mutate(l)
		err := ValidateListing(l)
		if tc.valid && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.valid && err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}
