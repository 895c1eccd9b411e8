package scraper

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/amirsamani13/househunt-hq-sub000/config"
	"github.com/amirsamani13/househunt-hq-sub000/httputil"
	"github.com/amirsamani13/househunt-hq-sub000/models"
	"github.com/amirsamani13/househunt-hq-sub000/services"
	"github.com/amirsamani13/househunt-hq-sub000/storage"
)

// verifyScrapeCap bounds how many listings a repair verification scrape
// will fetch.
const verifyScrapeCap = 3

// Orchestrator drives the scrape cycle: per source it resolves health
// state, repairs if needed, walks the (index URL x link pattern)
// combinations until one yields validated listings, and records the
// outcome in both stores.
type Orchestrator struct {
	cfg       *config.Config
	clients   *httputil.Clients
	extractor *Extractor
	ingest    *services.IngestService
	health    *services.HealthService
	repair    *services.RepairController
	ops       *storage.SQLiteStore

	adapters map[string]*SourceAdapter
	sets     map[string]map[string]*SelectorSet
}

func NewOrchestrator(cfg *config.Config, clients *httputil.Clients, store *storage.PostgresStore, ops *storage.SQLiteStore) (*Orchestrator, error) {
	o := &Orchestrator{
		cfg:       cfg,
		clients:   clients,
		extractor: NewExtractor(clients.Scraping),
		ingest:    services.NewIngestService(store),
		health:    services.NewHealthService(store),
		ops:       ops,
		adapters:  make(map[string]*SourceAdapter),
		sets:      make(map[string]map[string]*SelectorSet),
	}
	o.repair = services.NewRepairController(clients.Scraping, store, o.verifyScrape)

	for id, src := range cfg.Sources {
		adapter, err := NewSourceAdapter(clients.Scraping, src.LinkPatterns)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", id, err)
		}
		sets, err := NewSelectorSets(src.SelectorSets)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", id, err)
		}
		byName := make(map[string]*SelectorSet, len(sets))
		for _, s := range sets {
			byName[s.Name()] = s
		}
		o.adapters[id] = adapter
		o.sets[id] = byName
	}
	return o, nil
}

// RunAll scrapes every configured source sequentially in stable order.
func (o *Orchestrator) RunAll(ctx context.Context) {
	ids := make([]string, 0, len(o.cfg.Sources))
	for id := range o.cfg.Sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		if err := o.RunSource(ctx, id); err != nil {
			log.Printf("Warning: scrape %s: %v", id, err)
		}
	}
}

// RunSource scrapes one source end to end and records run, log and
// health state. Per-listing extraction failures are skips, not errors;
// the returned error means the whole run threw.
func (o *Orchestrator) RunSource(ctx context.Context, sourceID string) error {
	src, ok := o.cfg.Sources[sourceID]
	if !ok {
		return fmt.Errorf("unknown source %q", sourceID)
	}

	run := &models.ScrapeRun{
		Source:    sourceID,
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	runID, err := o.ops.CreateRun(run)
	if err != nil {
		log.Printf("Warning: create run record for %s: %v", sourceID, err)
	}
	run.ID = runID

	// Health state is resolved before anything that can fail, so every
	// failure path below has a record to update.
	health, err := o.health.GetOrCreate(ctx, src)
	if err != nil {
		o.finishRun(run, models.RunStatusFailed, err)
		return err
	}

	if health.Status == models.HealthStatusNeedsRepair {
		o.repairSource(ctx, src, health)
	}

	runErr := o.scrapeSource(ctx, src, health, run)

	if err := o.health.RecordOutcome(ctx, health, run.ListingsNew, runErr); err != nil {
		log.Printf("Warning: record health for %s: %v", sourceID, err)
	}

	if runErr != nil {
		o.finishRun(run, models.RunStatusFailed, runErr)
		return runErr
	}
	o.finishRun(run, models.RunStatusCompleted, nil)
	o.logRun(run)
	return nil
}

// RepairSource forces a repair pass for one source, used by the
// repair_source operational command.
func (o *Orchestrator) RepairSource(ctx context.Context, sourceID string) error {
	src, ok := o.cfg.Sources[sourceID]
	if !ok {
		return fmt.Errorf("unknown source %q", sourceID)
	}
	health, err := o.health.GetOrCreate(ctx, src)
	if err != nil {
		return err
	}
	if !o.repairSource(ctx, src, health) {
		return fmt.Errorf("repair failed for %s", sourceID)
	}
	return nil
}

// repairSource runs the repair controller synchronously and logs every
// structured step.
func (o *Orchestrator) repairSource(ctx context.Context, src *config.SourceConfig, health *models.ScraperHealth) bool {
	probes := make(map[string]services.SelectorProbe, len(o.sets[src.ID]))
	for name, set := range o.sets[src.ID] {
		probes[name] = set
	}

	ok, steps := o.repair.Repair(ctx, src, health, probes)
	for _, step := range steps {
		level := models.LogLevelInfo
		if !step.Success {
			level = models.LogLevelWarn
		}
		if err := o.ops.Log(nil, level, fmt.Sprintf("repair %s: %s", step.Strategy, step.Message), src.ID); err != nil {
			log.Printf("Warning: write repair log: %v", err)
		}
	}
	log.Printf("Repair %s: success=%v (%d steps)", src.ID, ok, len(steps))
	return ok
}

// scrapeSource walks candidate (index URL, link pattern) combinations
// in health order and stops at the first that yields at least one
// validated listing. A pattern whose links all fail validation does not
// end the page; the next pattern still gets its turn on the same HTML.
func (o *Orchestrator) scrapeSource(ctx context.Context, src *config.SourceConfig, health *models.ScraperHealth, run *models.ScrapeRun) error {
	adapter := o.adapters[src.ID]
	profile := httputil.ProfileByName(health.HeaderProfile)
	sets := o.orderedSets(src.ID, health)
	delay := time.Duration(src.RateLimitMS) * time.Millisecond

	var lastErr error
	attempted := 0
	tried := make(map[string]struct{})

	for _, indexURL := range candidateURLs(src, health) {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		html, err := adapter.FetchIndex(ctx, indexURL, profile)
		if err != nil {
			lastErr = err
			run.ErrorsCount++
			continue
		}
		attempted++

		for _, links := range adapter.LinkSets(html, indexURL, src.MaxListings) {
			// Overlapping patterns may repeat links; a link that
			// already failed this run is not refetched.
			fresh := links[:0:0]
			for _, link := range links {
				if _, dup := tried[link]; dup {
					continue
				}
				tried[link] = struct{}{}
				fresh = append(fresh, link)
			}
			if len(fresh) == 0 {
				continue
			}

			validated := o.processLinks(ctx, src, sets, profile, fresh, delay, run)
			if validated > 0 {
				return nil
			}
		}
	}

	// Only a run where no index page could be fetched at all counts as
	// thrown; a reachable source with nothing extractable is a zero run.
	if attempted == 0 && lastErr != nil {
		return fmt.Errorf("all index URLs failed for %s: %w", src.ID, lastErr)
	}
	return nil
}

func (o *Orchestrator) processLinks(ctx context.Context, src *config.SourceConfig, sets []*SelectorSet, profile httputil.HeaderProfile, links []string, delay time.Duration, run *models.ScrapeRun) int {
	validated := 0
	for _, link := range links {
		if ctx.Err() != nil {
			return validated
		}

		listing, err := o.extractor.ExtractListing(ctx, link, src.ID, src.PropertyType, sets, profile)
		if err != nil {
			run.ErrorsCount++
			log.Printf("Warning: extract %s: %v", link, err)
			time.Sleep(delay)
			continue
		}
		run.ListingsFound++

		if listing == nil {
			run.ListingsSkipped++
			time.Sleep(delay)
			continue
		}
		validated++

		outcome, err := o.ingest.Ingest(ctx, listing)
		if err != nil {
			run.ErrorsCount++
			log.Printf("Warning: ingest %s: %v", listing.ExternalID, err)
		} else {
			switch outcome {
			case services.IngestInserted:
				run.ListingsNew++
			case services.IngestDuplicate:
				run.ListingsDuplicate++
			case services.IngestSkipped:
				run.ListingsSkipped++
			}
		}

		time.Sleep(delay)
	}
	return validated
}

// verifyScrape is the repair controller's validation hook: a bounded
// scrape with the repaired state that only counts, never stores.
func (o *Orchestrator) verifyScrape(ctx context.Context, src *config.SourceConfig, health *models.ScraperHealth) (int, error) {
	adapter := o.adapters[src.ID]
	profile := httputil.ProfileByName(health.HeaderProfile)
	sets := o.orderedSets(src.ID, health)

	html, err := adapter.FetchIndex(ctx, health.CurrentURL, profile)
	if err != nil {
		return 0, err
	}
	links := adapter.ExtractLinks(html, health.CurrentURL, verifyScrapeCap)

	validated := 0
	for _, link := range links {
		listing, err := o.extractor.ExtractListing(ctx, link, src.ID, src.PropertyType, sets, profile)
		if err == nil && listing != nil {
			validated++
		}
	}
	return validated, nil
}

// orderedSets returns the source's selector sets with the health
// record's current set first.
func (o *Orchestrator) orderedSets(sourceID string, health *models.ScraperHealth) []*SelectorSet {
	byName := o.sets[sourceID]
	var ordered []*SelectorSet
	if current, ok := byName[health.CurrentSelectors]; ok {
		ordered = append(ordered, current)
	}
	for _, name := range health.BackupSelectors {
		if set, ok := byName[name]; ok {
			ordered = append(ordered, set)
		}
	}
	if len(ordered) == 0 {
		names := make([]string, 0, len(byName))
		for name := range byName {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			ordered = append(ordered, byName[name])
		}
	}
	return ordered
}

// candidateURLs lists index URLs in try order: the health record's
// current and backup URLs when present, else the static config.
func candidateURLs(src *config.SourceConfig, health *models.ScraperHealth) []string {
	var urls []string
	seen := make(map[string]struct{})
	add := func(u string) {
		if u == "" {
			return
		}
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}

	add(health.CurrentURL)
	for _, u := range health.BackupURLs {
		add(u)
	}
	for _, u := range src.IndexURLs {
		add(u)
	}
	return urls
}

func (o *Orchestrator) finishRun(run *models.ScrapeRun, status models.RunStatus, runErr error) {
	now := time.Now()
	run.FinishedAt = &now
	run.Status = status
	if runErr != nil {
		run.ErrorMessage = runErr.Error()
	}
	if err := o.ops.UpdateRun(run); err != nil {
		log.Printf("Warning: update run record for %s: %v", run.Source, err)
	}
}

func (o *Orchestrator) logRun(run *models.ScrapeRun) {
	msg := fmt.Sprintf("scrape finished: %d found, %d new, %d duplicate, %d skipped, %d errors",
		run.ListingsFound, run.ListingsNew, run.ListingsDuplicate, run.ListingsSkipped, run.ErrorsCount)
	if err := o.ops.Log(&run.ID, models.LogLevelInfo, msg, run.Source); err != nil {
		log.Printf("Warning: write run log: %v", err)
	}
	log.Printf("[%s] %s", run.Source, msg)
}
