package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/amirsamani13/househunt-hq-sub000/httputil"
)

// SourceAdapter fetches a source's index page and extracts candidate
// listing URLs with the source's configured link patterns. Each pattern
// yields its own candidate list so the orchestrator can try every
// (index URL, pattern) combination.
type SourceAdapter struct {
	client   *http.Client
	patterns []*regexp.Regexp
}

func NewSourceAdapter(client *http.Client, linkPatterns []string) (*SourceAdapter, error) {
	patterns := make([]*regexp.Regexp, 0, len(linkPatterns))
	for _, p := range linkPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("link pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}
	return &SourceAdapter{client: client, patterns: patterns}, nil
}

// FetchIndex downloads an index page. Non-2xx responses are errors so
// the orchestrator can fall through to the next candidate URL.
func (a *SourceAdapter) FetchIndex(ctx context.Context, indexURL string, profile httputil.HeaderProfile) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", indexURL, nil)
	if err != nil {
		return "", err
	}
	profile.Apply(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch index %s: status %d", indexURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// LinkSets pulls listing URLs out of index HTML, one candidate list
// per configured pattern, in pattern order. Relative links are resolved
// against the index URL, duplicates dropped in order, and each list
// capped at max (0 means no cap). Patterns matching nothing produce no
// list.
func (a *SourceAdapter) LinkSets(html, indexURL string, max int) [][]string {
	base, err := url.Parse(indexURL)
	if err != nil {
		base = nil
	}

	var sets [][]string
	for _, re := range a.patterns {
		matches := re.FindAllStringSubmatch(html, -1)
		if len(matches) == 0 {
			continue
		}

		seen := make(map[string]struct{})
		var links []string
		for _, m := range matches {
			// A capture group isolates the URL from surrounding
			// markup like href="..."; without one the whole match is
			// the URL.
			raw := m[0]
			if len(m) > 1 && m[1] != "" {
				raw = m[1]
			}
			link := absolutize(base, strings.TrimSpace(raw))
			if link == "" {
				continue
			}
			if _, dup := seen[link]; dup {
				continue
			}
			seen[link] = struct{}{}
			links = append(links, link)
			if max > 0 && len(links) >= max {
				break
			}
		}
		if len(links) > 0 {
			sets = append(sets, links)
		}
	}
	return sets
}

// ExtractLinks returns the first pattern's candidates, for callers that
// only need one list.
func (a *SourceAdapter) ExtractLinks(html, indexURL string, max int) []string {
	sets := a.LinkSets(html, indexURL, max)
	if len(sets) == 0 {
		return nil
	}
	return sets[0]
}

func absolutize(base *url.URL, link string) string {
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	if base == nil {
		return ""
	}
	ref, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
