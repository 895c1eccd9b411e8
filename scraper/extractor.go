package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/amirsamani13/househunt-hq-sub000/httputil"
	"github.com/amirsamani13/househunt-hq-sub000/identity"
	"github.com/amirsamani13/househunt-hq-sub000/models"
)

const maxPageBytes = 2 * 1024 * 1024

// Title values a source emits when its own template has no data.
var titleSentinels = []string{
	"field missing",
	"undefined",
	"null",
	"untitled",
}

// Extractor fetches a single listing page and turns it into a
// validated Listing. A page that cannot be extracted or fails
// plausibility checks yields (nil, nil): a skip, not a pipeline error.
type Extractor struct {
	client *http.Client
}

func NewExtractor(client *http.Client) *Extractor {
	return &Extractor{client: client}
}

// ExtractListing fetches pageURL and extracts a listing using the
// first selector set that produces a plausible price. Only transport
// errors are returned as errors.
func (e *Extractor) ExtractListing(ctx context.Context, pageURL, source, defaultType string, sets []*SelectorSet, profile httputil.HeaderProfile) (*models.Listing, error) {
	html, err := e.fetchPage(ctx, pageURL, profile)
	if err != nil {
		return nil, err
	}
	return e.BuildListing(html, pageURL, source, defaultType, sets), nil
}

// BuildListing extracts and validates a listing from already-fetched
// HTML. Exposed separately so the QA agent and tests can run the
// extraction chain without a network.
func (e *Extractor) BuildListing(html, pageURL, source, defaultType string, sets []*SelectorSet) *models.Listing {
	title := extractTitle(html, pageURL)
	if !titleIsUsable(title) {
		return nil
	}

	var fields Fields
	for _, set := range sets {
		fields = set.Extract(html)
		if fields.Price != nil {
			break
		}
	}

	if fields.Price == nil {
		return nil
	}
	if *fields.Price < models.MinPlausiblePrice || *fields.Price > models.MaxPlausiblePrice {
		return nil
	}
	if fields.Bedrooms != nil && (*fields.Bedrooms < models.MinPlausibleBedrooms || *fields.Bedrooms > models.MaxPlausibleBedrooms) {
		return nil
	}
	if fields.Bathrooms != nil && (*fields.Bathrooms < models.MinPlausibleBaths || *fields.Bathrooms > models.MaxPlausibleBaths) {
		return nil
	}

	now := time.Now()
	listing := &models.Listing{
		ID:            uuid.New(),
		ExternalID:    identity.CanonicalListingURL(pageURL),
		Source:        source,
		Title:         title,
		Description:   extractDescription(html),
		Price:         *fields.Price,
		Bedrooms:      fields.Bedrooms,
		Bathrooms:     fields.Bathrooms,
		SurfaceM2:     fields.SurfaceM2, // opportunistic, never validated
		Address:       fields.Address,
		City:          cityFromFields(fields),
		PostalCode:    fields.Postal,
		PropertyType:  defaultType,
		Furnished:     fields.Furnished,
		URL:           pageURL,
		ImageURLs:     extractImageURLs(html),
		Features:      fields.Features,
		FirstSeenAt:   now,
		LastUpdatedAt: now,
		IsActive:      true,
	}
	return listing
}

func (e *Extractor) fetchPage(ctx context.Context, pageURL string, profile httputil.HeaderProfile) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", err
	}
	profile.Apply(req)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// extractTitle walks the preference chain: page heading, document
// title, social meta tag, then the URL's last path segment.
func extractTitle(html, pageURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		if t := strings.TrimSpace(doc.Find("h1").First().Text()); t != "" {
			return collapseSpaces(t)
		}
		if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
			return collapseSpaces(t)
		}
		if t, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(t) != "" {
			return collapseSpaces(strings.TrimSpace(t))
		}
	}
	return identity.SlugFromURL(pageURL)
}

func titleIsUsable(title string) bool {
	if len(title) < 3 {
		return false
	}
	lower := strings.ToLower(title)
	for _, sentinel := range titleSentinels {
		if strings.Contains(lower, sentinel) {
			return false
		}
	}
	return true
}

func extractDescription(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	if d, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		return strings.TrimSpace(d)
	}
	if d, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		return strings.TrimSpace(d)
	}
	return ""
}

func extractImageURLs(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var urls []string
	doc.Find(`meta[property="og:image"]`).Each(func(_ int, sel *goquery.Selection) {
		if u, ok := sel.Attr("content"); ok {
			u = strings.TrimSpace(u)
			if u == "" {
				return
			}
			if _, dup := seen[u]; dup {
				return
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	})
	return urls
}

// cityFromFields falls back to the last comma-separated component of
// the address when no dedicated city rule matched.
func cityFromFields(f Fields) string {
	if f.City != "" {
		return f.City
	}
	parts := strings.Split(f.Address, ",")
	if len(parts) >= 2 {
		return strings.TrimSpace(parts[len(parts)-1])
	}
	return ""
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
