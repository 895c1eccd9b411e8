package services

import (
	"testing"

	"github.com/amirsamani13/househunt-hq-sub000/models"
)

func intp(v int) *int { return &v }

func groningenListing() *models.Listing {
	return &models.Listing{
		Title:        "Ruim appartement aan de Vismarkt",
		Description:  "Licht appartement met balkon",
		Price:        800,
		Bedrooms:     intp(2),
		SurfaceM2:    intp(65),
		Address:      "Vismarkt 10, Groningen",
		City:         "Groningen",
		PostalCode:   "9711JV",
		PropertyType: "apartment",
		Source:       "pararius",
	}
}

func TestMatchesBoundsAndCity(t *testing.T) {
	alert := &models.Alert{
		MinPrice: intp(500),
		MaxPrice: intp(1000),
		Cities:   []string{"Groningen"},
	}

	if !Matches(alert, groningenListing()) {
		t.Fatal("expected match for in-range Groningen listing")
	}

	pricey := groningenListing()
	pricey.Price = 1200
	if Matches(alert, pricey) {
		t.Fatal("price 1200 should not match max 1000")
	}

	elsewhere := groningenListing()
	elsewhere.City = "Utrecht"
	if Matches(alert, elsewhere) {
		t.Fatal("Utrecht should not match cities=[Groningen]")
	}
}

func TestMatchesEmptyAlertMatchesEverything(t *testing.T) {
	alert := &models.Alert{}
	if !Matches(alert, groningenListing()) {
		t.Fatal("an alert with no constraints should match every listing")
	}
	if !Matches(alert, &models.Listing{Price: 4999}) {
		t.Fatal("an alert with no constraints should match a sparse listing")
	}
}

func TestMatchesMissingListingFieldNeverRejects(t *testing.T) {
	alert := &models.Alert{MinBedrooms: intp(2), MinSurfaceM2: intp(50)}

	listing := groningenListing()
	listing.Bedrooms = nil
	listing.SurfaceM2 = nil
	if !Matches(alert, listing) {
		t.Fatal("bounds must not reject when the listing has no comparable value")
	}

	listing.Bedrooms = intp(1)
	if Matches(alert, listing) {
		t.Fatal("1 bedroom should reject min_bedrooms=2")
	}
}

func TestMatchesPostalCodeSubstring(t *testing.T) {
	alert := &models.Alert{PostalCodes: []string{"9711"}}
	if !Matches(alert, groningenListing()) {
		t.Fatal("postal prefix should match listing postal code")
	}

	inAddressOnly := groningenListing()
	inAddressOnly.PostalCode = ""
	inAddressOnly.Address = "Vismarkt 10, 9711JV Groningen"
	if !Matches(alert, inAddressOnly) {
		t.Fatal("postal prefix should match inside the address")
	}

	other := groningenListing()
	other.PostalCode = "1012AB"
	other.Address = "Damrak 1, Amsterdam"
	if Matches(alert, other) {
		t.Fatal("unrelated postal code should not match")
	}
}

func TestMatchesKeywords(t *testing.T) {
	alert := &models.Alert{Keywords: []string{"balkon"}}
	if !Matches(alert, groningenListing()) {
		t.Fatal("keyword in description should match")
	}

	alert = &models.Alert{Keywords: []string{"garage"}}
	if Matches(alert, groningenListing()) {
		t.Fatal("absent keyword should not match")
	}
}

func TestMatchesSourceAndTypeSets(t *testing.T) {
	alert := &models.Alert{Sources: []string{"kamernet"}}
	if Matches(alert, groningenListing()) {
		t.Fatal("source pararius should not match sources=[kamernet]")
	}

	alert = &models.Alert{PropertyTypes: []string{"Apartment", "studio"}}
	if !Matches(alert, groningenListing()) {
		t.Fatal("property type inclusion should be case-insensitive")
	}
}

func TestMatchesUnknownFieldNeverRejectsOnSets(t *testing.T) {
	alert := &models.Alert{Furnished: []string{"furnished"}}

	unknown := groningenListing()
	if unknown.Furnished != "" {
		t.Fatal("fixture should carry no furnishing value")
	}
	if !Matches(alert, unknown) {
		t.Fatal("a listing without a furnishing value must not be rejected by a furnishing filter")
	}

	shell := groningenListing()
	shell.Furnished = "shell"
	if Matches(alert, shell) {
		t.Fatal("shell should not match furnished=[furnished]")
	}

	furnished := groningenListing()
	furnished.Furnished = "Furnished"
	if !Matches(alert, furnished) {
		t.Fatal("furnishing inclusion should be case-insensitive")
	}

	cityAlert := &models.Alert{Cities: []string{"Groningen"}}
	noCity := groningenListing()
	noCity.City = ""
	noCity.Address = "Ergens 1"
	if !Matches(cityAlert, noCity) {
		t.Fatal("a listing without a city must not be rejected by a city filter")
	}
}
