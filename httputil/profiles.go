package httputil

import "net/http"

// HeaderProfile is one browser identity used for fetching. The repair
// controller rotates through profiles when a source starts blocking the
// current one; the winning profile name is persisted per source.
type HeaderProfile struct {
	Name    string
	Headers map[string]string
}

const DefaultProfileName = "desktop"

var profiles = []HeaderProfile{
	{
		Name: "desktop",
		Headers: map[string]string{
			"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9,nl;q=0.8",
		},
	},
	{
		Name: "mobile",
		Headers: map[string]string{
			"User-Agent":      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "nl-NL,nl;q=0.9,en;q=0.8",
		},
	},
	{
		Name: "alt-desktop",
		Headers: map[string]string{
			"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
			"Accept":          "text/html,application/xhtml+xml",
			"Accept-Language": "en-GB,en;q=0.9",
		},
	},
}

// Profiles returns the rotation order used by anti-bot mitigation.
func Profiles() []HeaderProfile {
	return profiles
}

// ProfileByName returns the named profile, falling back to the default.
func ProfileByName(name string) HeaderProfile {
	for _, p := range profiles {
		if p.Name == name {
			return p
		}
	}
	return profiles[0]
}

// Apply sets the profile headers on a request.
func (p HeaderProfile) Apply(req *http.Request) {
	for k, v := range p.Headers {
		req.Header.Set(k, v)
	}
}
