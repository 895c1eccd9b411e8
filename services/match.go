package services

import (
	"strings"

	"github.com/amirsamani13/househunt-hq-sub000/models"
)

// Matches reports whether a listing satisfies every constraint an alert
// specifies. Unset bounds and empty sets impose no constraint, and a
// bound only rejects when the listing provides a comparable value that
// violates it. Pure function, no storage.
func Matches(alert *models.Alert, listing *models.Listing) bool {
	if alert.MinPrice != nil && listing.Price < *alert.MinPrice {
		return false
	}
	if alert.MaxPrice != nil && listing.Price > *alert.MaxPrice {
		return false
	}
	if alert.MinBedrooms != nil && listing.Bedrooms != nil && *listing.Bedrooms < *alert.MinBedrooms {
		return false
	}
	if alert.MaxBedrooms != nil && listing.Bedrooms != nil && *listing.Bedrooms > *alert.MaxBedrooms {
		return false
	}
	if alert.MinSurfaceM2 != nil && listing.SurfaceM2 != nil && *listing.SurfaceM2 < *alert.MinSurfaceM2 {
		return false
	}

	if !setIncludes(alert.Cities, listing.City) {
		return false
	}
	if !setIncludes(alert.PropertyTypes, listing.PropertyType) {
		return false
	}
	if !setIncludes(alert.Furnished, listing.Furnished) {
		return false
	}
	if !setIncludes(alert.Sources, listing.Source) {
		return false
	}

	if !postalMatches(alert.PostalCodes, listing) {
		return false
	}
	if !keywordMatches(alert.Keywords, listing) {
		return false
	}

	return true
}

// setIncludes is case-insensitive inclusion. An empty set imposes no
// constraint, and a listing that never provided the field cannot be
// rejected on it.
func setIncludes(set []string, value string) bool {
	if len(set) == 0 {
		return true
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return true
	}
	for _, s := range set {
		if strings.EqualFold(strings.TrimSpace(s), value) {
			return true
		}
	}
	return false
}

// postalMatches accepts when any requested postal code appears as a
// substring of the listing's postal code or full address.
func postalMatches(codes []string, listing *models.Listing) bool {
	if len(codes) == 0 {
		return true
	}
	haystack := strings.ToLower(listing.PostalCode + " " + listing.Address)
	for _, code := range codes {
		code = strings.ToLower(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		if strings.Contains(haystack, code) {
			return true
		}
	}
	return false
}

// keywordMatches accepts when any keyword appears in the title,
// description or address.
func keywordMatches(keywords []string, listing *models.Listing) bool {
	if len(keywords) == 0 {
		return true
	}
	haystack := strings.ToLower(listing.Title + " " + listing.Description + " " + listing.Address)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}
