package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amirsamani13/househunt-hq-sub000/config"
	"github.com/amirsamani13/househunt-hq-sub000/httputil"
	"github.com/amirsamani13/househunt-hq-sub000/models"
)

const (
	StrategyURLRotation      = "url_rotation"
	StrategySelectorRotation = "selector_rotation"
	StrategyHeaderRotation   = "header_rotation"
)

// minRepairContentLength is the smallest body a real index page should
// have; anything shorter is treated as a block page.
const minRepairContentLength = 2048

var blockIndicators = []string{
	"captcha",
	"access denied",
	"are you a robot",
	"unusual traffic",
	"cloudflare",
	"request blocked",
}

// SelectorProbe checks how well a named selector set still fits a
// page's markup.
type SelectorProbe interface {
	Name() string
	MatchCount(html string) int
}

// VerifyFunc runs a single validation scrape of a source with its
// current health state and reports how many listings validated.
type VerifyFunc func(ctx context.Context, src *config.SourceConfig, h *models.ScraperHealth) (int, error)

// RepairController walks the graduated remediation strategies for a
// broken source: URL rotation, selector rotation, header-profile
// rotation. Each attempt is logged as a structured step regardless of
// outcome.
type RepairController struct {
	client *http.Client
	store  HealthStore
	verify VerifyFunc
}

func NewRepairController(client *http.Client, store HealthStore, verify VerifyFunc) *RepairController {
	return &RepairController{client: client, store: store, verify: verify}
}

// Repair mutates h in place (current URL, selector set, header profile)
// and persists the outcome. probes maps selector set names to compiled
// sets for the source. Returns overall success plus the step log.
func (c *RepairController) Repair(ctx context.Context, src *config.SourceConfig, h *models.ScraperHealth, probes map[string]SelectorProbe) (bool, []models.RepairStep) {
	var steps []models.RepairStep
	fixed := false

	strategies := []func(context.Context, *models.ScraperHealth, map[string]SelectorProbe) models.RepairStep{
		c.rotateURL,
		c.rotateSelectors,
		c.rotateHeaders,
	}
	for _, strategy := range strategies {
		step := strategy(ctx, h, probes)
		steps = append(steps, step)
		if step.Success {
			fixed = true
			break
		}
	}

	if fixed && c.verify != nil {
		step := models.RepairStep{Strategy: "verification_scrape", Timestamp: time.Now()}
		n, err := c.verify(ctx, src, h)
		switch {
		case err != nil:
			step.Message = fmt.Sprintf("verification scrape failed: %v", err)
			fixed = false
		case n == 0:
			step.Message = "verification scrape produced no validated listings"
			fixed = false
		default:
			step.Success = true
			step.Message = fmt.Sprintf("verification scrape validated %d listings", n)
		}
		steps = append(steps, step)
	}

	now := time.Now()
	h.RepairAttempts++
	if fixed {
		ApplyRepairSuccess(h, now)
	} else {
		ApplyRepairFailure(h, now)
	}
	if err := c.store.UpsertScraperHealth(ctx, h); err != nil {
		steps = append(steps, models.RepairStep{
			Strategy:  "persist_state",
			Message:   fmt.Sprintf("persist health: %v", err),
			Timestamp: now,
		})
	}

	return fixed, steps
}

// rotateURL HEADs the current index URL and, when it is unhealthy,
// promotes the first responsive backup.
func (c *RepairController) rotateURL(ctx context.Context, h *models.ScraperHealth, _ map[string]SelectorProbe) models.RepairStep {
	step := models.RepairStep{Strategy: StrategyURLRotation, Timestamp: time.Now()}

	if c.headOK(ctx, h.CurrentURL, h.HeaderProfile) {
		step.Message = "current URL responds, nothing to rotate"
		return step
	}

	for i, backup := range h.BackupURLs {
		if !c.headOK(ctx, backup, h.HeaderProfile) {
			continue
		}
		old := h.CurrentURL
		h.CurrentURL = backup
		h.BackupURLs = append(append([]string{}, h.BackupURLs[:i]...), h.BackupURLs[i+1:]...)
		h.BackupURLs = append(h.BackupURLs, old)
		step.Success = true
		step.Message = fmt.Sprintf("promoted backup URL %s", backup)
		step.Details = map[string]string{"previous": old, "current": backup}
		return step
	}

	step.Message = "current URL unhealthy and no backup responded"
	return step
}

// rotateSelectors fetches the current index page and promotes the first
// backup selector set whose key fields still match the markup.
func (c *RepairController) rotateSelectors(ctx context.Context, h *models.ScraperHealth, probes map[string]SelectorProbe) models.RepairStep {
	step := models.RepairStep{Strategy: StrategySelectorRotation, Timestamp: time.Now()}

	html, err := c.fetch(ctx, h.CurrentURL, httputil.ProfileByName(h.HeaderProfile))
	if err != nil {
		step.Message = fmt.Sprintf("fetch %s: %v", h.CurrentURL, err)
		return step
	}

	if probe, ok := probes[h.CurrentSelectors]; ok && probe.MatchCount(html) > 0 {
		step.Message = "current selector set still matches"
		return step
	}

	for i, name := range h.BackupSelectors {
		probe, ok := probes[name]
		if !ok || probe.MatchCount(html) == 0 {
			continue
		}
		old := h.CurrentSelectors
		h.CurrentSelectors = name
		h.BackupSelectors = append(append([]string{}, h.BackupSelectors[:i]...), h.BackupSelectors[i+1:]...)
		if old != "" {
			h.BackupSelectors = append(h.BackupSelectors, old)
		}
		step.Success = true
		step.Message = fmt.Sprintf("promoted selector set %s", name)
		step.Details = map[string]string{"previous": old, "current": name}
		return step
	}

	step.Message = "no selector set matches the current markup"
	return step
}

// rotateHeaders re-fetches the current URL under each header profile
// and persists the first one that gets a real page back.
func (c *RepairController) rotateHeaders(ctx context.Context, h *models.ScraperHealth, _ map[string]SelectorProbe) models.RepairStep {
	step := models.RepairStep{Strategy: StrategyHeaderRotation, Timestamp: time.Now()}

	for _, profile := range httputil.Profiles() {
		html, err := c.fetch(ctx, h.CurrentURL, profile)
		if err != nil {
			continue
		}
		if len(html) < minRepairContentLength || looksBlocked(html) {
			continue
		}
		h.HeaderProfile = profile.Name
		step.Success = true
		step.Message = fmt.Sprintf("header profile %s gets real content", profile.Name)
		step.Details = map[string]string{"profile": profile.Name}
		return step
	}

	step.Message = "every header profile is blocked or empty"
	return step
}

func (c *RepairController) headOK(ctx context.Context, rawURL, profileName string) bool {
	if rawURL == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, "HEAD", rawURL, nil)
	if err != nil {
		return false
	}
	httputil.ProfileByName(profileName).Apply(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (c *RepairController) fetch(ctx context.Context, rawURL string, profile httputil.HeaderProfile) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return "", err
	}
	profile.Apply(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func looksBlocked(html string) bool {
	lower := strings.ToLower(html)
	for _, indicator := range blockIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}
