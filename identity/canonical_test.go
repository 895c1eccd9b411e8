package identity

import "testing"

func TestCanonicalListingURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://www.pararius.com/apartment-for-rent/groningen/abc123/", "https://pararius.com/apartment-for-rent/groningen/abc123"},
		{"HTTPS://Pararius.COM/listing/1?utm_source=share#photos", "https://pararius.com/listing/1"},
		{"http://kamernet.nl:80/en/for-rent/room-utrecht", "http://kamernet.nl/en/for-rent/room-utrecht"},
		{"https://funda.nl/huur/amsterdam/appartement-123", "https://funda.nl/huur/amsterdam/appartement-123"},
		{"  https://funda.nl/huur/x/ ", "https://funda.nl/huur/x"},
	}

	for _, c := range cases {
		if got := CanonicalListingURL(c.in); got != c.want {
			t.Fatalf("CanonicalListingURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCanonicalListingURL_SameListingDifferentQuery(t *testing.T) {
	a := CanonicalListingURL("https://pararius.com/listing/9?page=2")
	b := CanonicalListingURL("https://www.pararius.com/listing/9#contact")
	if a != b {
		t.Fatalf("expected identical identifiers, got %q and %q", a, b)
	}
}

func TestSlugFromURL(t *testing.T) {
	got := SlugFromURL("https://pararius.com/apartment-for-rent/spacious-2-bedroom-flat/")
	if got != "spacious 2 bedroom flat" {
		t.Fatalf("unexpected slug %q", got)
	}
}
