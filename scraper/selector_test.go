package scraper

import (
	"testing"

	"github.com/amirsamani13/househunt-hq-sub000/config"
)

func testSelectorSet(t *testing.T) *SelectorSet {
	t.Helper()
	set, err := NewSelectorSet(config.SelectorSetConfig{
		Name:     "default",
		Price:    `€\s*([\d.,]+)\s*per maand`,
		Bedrooms: `(\d+)\s*slaapkamers?`,
		Surface:  `(\d+)\s*m²`,
		Address:  `<span class="address">([^<]+)</span>`,
		City:     `<span class="city">([^<]+)</span>`,
	})
	if err != nil {
		t.Fatalf("compile selector set: %v", err)
	}
	return set
}

func TestSelectorSetExtract(t *testing.T) {
	set := testSelectorSet(t)

	html := `<html><body>
		<span class="address">Oosterstraat 12a</span>
		<span class="city">Groningen</span>
		<div class="price">€ 1.250 per maand</div>
		<div>3 slaapkamers</div>
		<div>85 m²</div>
	</body></html>`

	fields := set.Extract(html)
	if fields.Price == nil || *fields.Price != 1250 {
		t.Fatalf("price = %v, want 1250", fields.Price)
	}
	if fields.Bedrooms == nil || *fields.Bedrooms != 3 {
		t.Fatalf("bedrooms = %v, want 3", fields.Bedrooms)
	}
	if fields.SurfaceM2 == nil || *fields.SurfaceM2 != 85 {
		t.Fatalf("surface = %v, want 85", fields.SurfaceM2)
	}
	if fields.Address != "Oosterstraat 12a" {
		t.Fatalf("address = %q", fields.Address)
	}
	if fields.City != "Groningen" {
		t.Fatalf("city = %q", fields.City)
	}
}

func TestSelectorSetExtractMissingFields(t *testing.T) {
	set := testSelectorSet(t)

	fields := set.Extract(`<html><body>nothing here</body></html>`)
	if fields.Price != nil {
		t.Fatalf("expected nil price, got %d", *fields.Price)
	}
	if fields.Address != "" {
		t.Fatalf("expected empty address, got %q", fields.Address)
	}
}

func TestSelectorSetMatchCount(t *testing.T) {
	set := testSelectorSet(t)

	full := `<span class="address">Herestraat 1</span> €950 per maand, 2 slaapkamers`
	if got := set.MatchCount(full); got != 3 {
		t.Fatalf("MatchCount = %d, want 3", got)
	}
	if got := set.MatchCount("empty page"); got != 0 {
		t.Fatalf("MatchCount on empty page = %d, want 0", got)
	}
}

func TestParseNumeric(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"1250", 1250},
		{"1.250", 1250},
		{"1,250", 1250},
		{"1.250,50", 1250},
		{"950.00", 950},
		{" 850 ", 850},
	}
	for _, tc := range cases {
		got, err := parseNumeric(tc.in)
		if err != nil {
			t.Fatalf("parseNumeric(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parseNumeric(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}

	if _, err := parseNumeric("no digits"); err == nil {
		t.Fatal("expected error for input without digits")
	}
}

func TestNewSelectorSetRejectsBadPattern(t *testing.T) {
	_, err := NewSelectorSet(config.SelectorSetConfig{Name: "broken", Price: `€(`})
	if err == nil {
		t.Fatal("expected compile error")
	}
}

func TestSelectorSetExtractFurnishedAndFeatures(t *testing.T) {
	set, err := NewSelectorSet(config.SelectorSetConfig{
		Name:      "default",
		Furnished: `interior.{0,40}?(furnished|upholstered|shell)`,
		Features:  `<li class="feature">([^<]+)</li>`,
	})
	if err != nil {
		t.Fatalf("compile set: %v", err)
	}

	html := `<html><body>
		<dt>Interior</dt><dd>Furnished</dd>
		<ul>
			<li class="feature">Balcony</li>
			<li class="feature">Garden</li>
			<li class="feature">balcony</li>
			<li class="feature"> </li>
		</ul>
	</body></html>`

	f := set.Extract(html)
	if f.Furnished != "Furnished" {
		t.Fatalf("furnished = %q, want Furnished", f.Furnished)
	}
	if len(f.Features) != 2 || f.Features[0] != "Balcony" || f.Features[1] != "Garden" {
		t.Fatalf("features = %v, want deduped [Balcony Garden]", f.Features)
	}
}
