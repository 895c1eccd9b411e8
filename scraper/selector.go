package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/amirsamani13/househunt-hq-sub000/config"
)

// FieldExtractor pulls structured fields out of a listing page. The
// regex-backed SelectorSet is the only implementation today; keeping
// the interface lets a structured-parser variant slot in without
// touching the orchestration.
type FieldExtractor interface {
	Name() string
	Extract(html string) Fields
	MatchCount(html string) int
}

// Fields is the raw extraction result before validation. Nil pointers
// mean the field was not found on the page.
type Fields struct {
	Price     *int
	Bedrooms  *int
	Bathrooms *int
	SurfaceM2 *int
	Address   string
	City      string
	Postal    string
	Furnished string
	Features  []string
}

// SelectorSet is one named, compiled collection of field rules.
type SelectorSet struct {
	name      string
	price     *regexp.Regexp
	bedrooms  *regexp.Regexp
	bathrooms *regexp.Regexp
	surface   *regexp.Regexp
	address   *regexp.Regexp
	city      *regexp.Regexp
	postal    *regexp.Regexp
	furnished *regexp.Regexp
	features  *regexp.Regexp
}

func NewSelectorSet(cfg config.SelectorSetConfig) (*SelectorSet, error) {
	s := &SelectorSet{name: cfg.Name}

	compile := func(field, pattern string) (*regexp.Regexp, error) {
		if pattern == "" {
			return nil, nil
		}
		re, err := regexp.Compile("(?is)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("selector set %s, field %s: %w", cfg.Name, field, err)
		}
		return re, nil
	}

	var err error
	if s.price, err = compile("price", cfg.Price); err != nil {
		return nil, err
	}
	if s.bedrooms, err = compile("bedrooms", cfg.Bedrooms); err != nil {
		return nil, err
	}
	if s.bathrooms, err = compile("bathrooms", cfg.Bathrooms); err != nil {
		return nil, err
	}
	if s.surface, err = compile("surface", cfg.Surface); err != nil {
		return nil, err
	}
	if s.address, err = compile("address", cfg.Address); err != nil {
		return nil, err
	}
	if s.city, err = compile("city", cfg.City); err != nil {
		return nil, err
	}
	if s.postal, err = compile("postal", cfg.Postal); err != nil {
		return nil, err
	}
	if s.furnished, err = compile("furnished", cfg.Furnished); err != nil {
		return nil, err
	}
	if s.features, err = compile("features", cfg.Features); err != nil {
		return nil, err
	}
	return s, nil
}

// NewSelectorSets compiles every configured set in order, current set
// first.
func NewSelectorSets(cfgs []config.SelectorSetConfig) ([]*SelectorSet, error) {
	sets := make([]*SelectorSet, 0, len(cfgs))
	for _, c := range cfgs {
		s, err := NewSelectorSet(c)
		if err != nil {
			return nil, err
		}
		sets = append(sets, s)
	}
	return sets, nil
}

func (s *SelectorSet) Name() string {
	return s.name
}

func (s *SelectorSet) Extract(html string) Fields {
	f := Fields{}
	if v, ok := s.extractInt(s.price, html); ok {
		f.Price = &v
	}
	if v, ok := s.extractInt(s.bedrooms, html); ok {
		f.Bedrooms = &v
	}
	if v, ok := s.extractInt(s.bathrooms, html); ok {
		f.Bathrooms = &v
	}
	if v, ok := s.extractInt(s.surface, html); ok {
		f.SurfaceM2 = &v
	}
	f.Address = s.extractString(s.address, html)
	f.City = s.extractString(s.city, html)
	f.Postal = s.extractString(s.postal, html)
	f.Furnished = s.extractString(s.furnished, html)
	f.Features = s.extractAll(s.features, html)
	return f
}

// MatchCount reports how many of the key fields (price, bedrooms,
// address) the set finds in the page. The repair controller uses this
// to decide whether the current selectors still fit the site's markup.
func (s *SelectorSet) MatchCount(html string) int {
	count := 0
	if s.price != nil && s.price.MatchString(html) {
		count++
	}
	if s.bedrooms != nil && s.bedrooms.MatchString(html) {
		count++
	}
	if s.address != nil && s.address.MatchString(html) {
		count++
	}
	return count
}

func (s *SelectorSet) extractInt(re *regexp.Regexp, html string) (int, bool) {
	if re == nil {
		return 0, false
	}
	m := re.FindStringSubmatch(html)
	if len(m) < 2 {
		return 0, false
	}
	v, err := parseNumeric(m[1])
	if err != nil {
		return 0, false
	}
	return v, true
}

// maxFeatureTags caps how many feature tags one page can contribute.
const maxFeatureTags = 20

// extractAll collects every distinct capture of a repeating rule, in
// page order.
func (s *SelectorSet) extractAll(re *regexp.Regexp, html string) []string {
	if re == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, m := range re.FindAllStringSubmatch(html, -1) {
		if len(m) < 2 {
			continue
		}
		v := strings.TrimSpace(m[1])
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
		if len(out) >= maxFeatureTags {
			break
		}
	}
	return out
}

func (s *SelectorSet) extractString(re *regexp.Regexp, html string) string {
	if re == nil {
		return ""
	}
	m := re.FindStringSubmatch(html)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// parseNumeric handles both "1.250" (Dutch thousands) and "1,250.50"
// style figures; decimal cents are dropped.
func parseNumeric(raw string) (int, error) {
	raw = strings.TrimSpace(raw)

	// Strip a 2-digit decimal tail like ",50" or ".50".
	if len(raw) > 3 {
		tail := raw[len(raw)-3:]
		if (tail[0] == ',' || tail[0] == '.') && isDigits(tail[1:]) {
			raw = raw[:len(raw)-3]
		}
	}

	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, fmt.Errorf("no digits in %q", raw)
	}
	return strconv.Atoi(b.String())
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
