package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/use-agent/harvester/cache"
	"github.com/use-agent/harvester/config"
	"github.com/use-agent/harvester/dom"
	"github.com/use-agent/harvester/engine"
	"github.com/use-agent/harvester/models"
)

// Options configures a Harvester.
type Options struct {
	// Delay is the fixed pause before every network fetch.
	Delay time.Duration

	// MinDelay is the lowest per-request delay a caller may ask for.
	MinDelay time.Duration

	Policy       Policy
	MaxRetries   int
	RetryBackoff time.Duration
	MaxBackoff   time.Duration

	// Timeout bounds a single page fetch. 0 leaves it to the engine.
	Timeout time.Duration

	MaxIndexPages int
	Limit         int

	// Locators and Records are the default rules; per-request rules are
	// merged over them.
	Locators models.LocatorRules
	Records  models.RecordRules
}

// OptionsFromConfig maps application configuration to Options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	policy, err := ParsePolicy(cfg.Harvest.FailurePolicy)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Delay:         cfg.Harvest.Delay,
		MinDelay:      cfg.Harvest.MinDelay,
		Policy:        policy,
		MaxRetries:    cfg.Harvest.MaxRetries,
		RetryBackoff:  cfg.Harvest.RetryBackoff,
		MaxBackoff:    cfg.Harvest.MaxBackoff,
		Timeout:       cfg.Fetch.Timeout,
		MaxIndexPages: cfg.Harvest.MaxIndexPages,
		Limit:         cfg.Harvest.Limit,
		Locators:      cfg.Harvest.Locators.Merge(config.DefaultLocatorRules),
		Records:       cfg.Harvest.Records.Merge(config.DefaultRecordRules),
	}, nil
}

// Request describes one crawl. Either IndexURL or Locators must be set;
// explicit Locators skip the index scan.
type Request struct {
	IndexURL string
	Locators []models.Locator

	LocatorRules  models.LocatorRules
	RecordRules   models.RecordRules
	MaxIndexPages int
	Limit         int

	// Delay overrides the configured pause. It is raised to MinDelay.
	Delay time.Duration
}

// Result is the outcome of a crawl. It is returned alongside errors too,
// holding whatever was harvested before the crawl stopped.
type Result struct {
	Locators []models.Locator
	Batch    models.Batch
	Report   models.Report

	LocatorDuration time.Duration
	HarvestDuration time.Duration
}

// Harvester crawls target pages strictly one at a time. Concurrent calls
// are serialized so fetches never overlap, whatever the caller.
type Harvester struct {
	mu      sync.Mutex
	running atomic.Bool

	fetcher engine.Fetcher
	pages   *cache.Cache
	opts    Options
	sleep   sleepFunc
}

// New creates a Harvester. pages may be nil to disable caching.
func New(fetcher engine.Fetcher, pages *cache.Cache, opts Options) *Harvester {
	if opts.Policy == "" {
		opts.Policy = PolicySkip
	}
	if opts.MaxIndexPages <= 0 {
		opts.MaxIndexPages = 1
	}
	return &Harvester{
		fetcher: fetcher,
		pages:   pages,
		opts:    opts,
		sleep:   sleepCtx,
	}
}

// Busy reports whether a crawl is in progress.
func (h *Harvester) Busy() bool {
	return h.running.Load()
}

func (h *Harvester) lock() func() {
	h.mu.Lock()
	h.running.Store(true)
	return func() {
		h.running.Store(false)
		h.mu.Unlock()
	}
}

// Harvest scans the index (unless locators are given) and harvests every
// target page.
func (h *Harvester) Harvest(ctx context.Context, req Request) (*Result, error) {
	defer h.lock()()

	p := h.pacer(req.Delay)
	locators := req.Locators
	var locatorDuration time.Duration

	if len(locators) == 0 {
		if req.IndexURL == "" {
			return nil, models.NewHarvestError(models.ErrCodeInvalidInput, "index_url or locators is required", nil)
		}
		start := time.Now()
		var err error
		locators, err = h.collectLocators(ctx, p, req.IndexURL, req.LocatorRules, req.MaxIndexPages, req.Limit)
		if err != nil {
			return nil, err
		}
		locatorDuration = time.Since(start)
	} else {
		var err error
		if locators, err = checkLocators(locators); err != nil {
			return nil, err
		}
		if limit := h.limit(req.Limit); limit > 0 && len(locators) > limit {
			locators = locators[:limit]
		}
	}

	res, err := h.run(ctx, p, locators, req.RecordRules)
	if res != nil {
		res.Locators = locators
		res.LocatorDuration = locatorDuration
	}
	return res, err
}

// CollectLocators scans an index page, following "next page" links up to
// maxPages pages, and returns the locators in page order truncated to limit.
// Zero maxPages or limit use the configured values.
func (h *Harvester) CollectLocators(ctx context.Context, indexURL string, rules models.LocatorRules, maxPages, limit int) ([]models.Locator, error) {
	defer h.lock()()
	return h.collectLocators(ctx, h.pacer(0), indexURL, rules, maxPages, limit)
}

// Run harvests the given locators in order with the default pause.
func (h *Harvester) Run(ctx context.Context, locators []models.Locator, rules models.RecordRules) (*Result, error) {
	locators, err := checkLocators(locators)
	if err != nil {
		return nil, err
	}
	defer h.lock()()
	res, err := h.run(ctx, h.pacer(0), locators, rules)
	if res != nil {
		res.Locators = locators
	}
	return res, err
}

func (h *Harvester) pacer(delay time.Duration) pacer {
	if delay <= 0 {
		delay = h.opts.Delay
	} else if delay < h.opts.MinDelay {
		delay = h.opts.MinDelay
	}
	return pacer{delay: delay, sleep: h.sleep}
}

func (h *Harvester) limit(n int) int {
	if n > 0 {
		return n
	}
	return h.opts.Limit
}

func (h *Harvester) collectLocators(ctx context.Context, p pacer, indexURL string, rules models.LocatorRules, maxPages, limit int) ([]models.Locator, error) {
	sel, err := compileLocatorRules(rules.Merge(h.opts.Locators))
	if err != nil {
		return nil, err
	}
	if err := validateURL(indexURL); err != nil {
		return nil, err
	}
	if maxPages <= 0 {
		maxPages = h.opts.MaxIndexPages
	}
	limit = h.limit(limit)

	locators := []models.Locator{}
	visited := map[string]bool{}
	pageURL := indexURL

	for page := 1; page <= maxPages; page++ {
		visited[pageURL] = true

		fetched, _, _, err := h.fetch(ctx, p, pageURL)
		if err != nil {
			return nil, fmt.Errorf("harvest: index %s: %w", pageURL, err)
		}
		doc, err := dom.Parse([]byte(fetched.HTML), fetched.ContentType)
		if err != nil {
			return nil, models.NewHarvestError(models.ErrCodeParse, "index page "+pageURL, err)
		}

		base := baseURL(fetched.FinalURL, pageURL)
		found := extractLocators(doc, base, sel)
		locators = append(locators, found...)
		slog.Info("index page scanned", "url", pageURL, "page", page, "locators", len(found))

		if limit > 0 && len(locators) >= limit {
			break
		}
		next, ok := nextIndexPage(doc, base, sel.next)
		if !ok || visited[next] {
			break
		}
		pageURL = next
	}

	if limit > 0 && len(locators) > limit {
		locators = locators[:limit]
	}
	return locators, nil
}

func (h *Harvester) run(ctx context.Context, p pacer, locators []models.Locator, rules models.RecordRules) (*Result, error) {
	x, err := NewRecordExtractor(rules.Merge(h.opts.Records))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res := &Result{
		Batch: make(models.Batch, 0, len(locators)),
		Report: models.Report{
			Requested: len(locators),
			Failed:    []models.Failure{},
		},
	}
	finish := func(aborted bool) {
		res.Report.Aborted = aborted
		res.Report.Duration = time.Since(start)
		res.HarvestDuration = res.Report.Duration
	}

	// fail records a page failure and reports whether the crawl must stop.
	fail := func(loc models.Locator, attempts int, err error) bool {
		he := models.AsHarvestError(err)
		res.Report.Failed = append(res.Report.Failed, models.Failure{
			Locator:  loc,
			Code:     he.Code,
			Message:  he.Error(),
			Status:   he.StatusCode,
			Attempts: attempts,
		})
		slog.Warn("page not harvested", "url", loc.URL, "code", he.Code,
			"status", he.StatusCode, "attempts", attempts, "error", err)
		return h.opts.Policy == PolicyAbort
	}

	for i, loc := range locators {
		if err := ctx.Err(); err != nil {
			finish(true)
			return res, err
		}

		page, attempts, cached, err := h.fetch(ctx, p, loc.URL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				finish(true)
				return res, ctxErr
			}
			if fail(loc, attempts, err) {
				finish(true)
				return res, fmt.Errorf("harvest: aborted at %s: %w", loc.URL, err)
			}
			continue
		}
		if cached {
			res.Report.CacheHits++
		}

		doc, err := dom.Parse([]byte(page.HTML), page.ContentType)
		if err != nil {
			err = models.NewHarvestError(models.ErrCodeParse, "target page "+loc.URL, err)
			if fail(loc, attempts, err) {
				finish(true)
				return res, fmt.Errorf("harvest: aborted at %s: %w", loc.URL, err)
			}
			continue
		}

		rec, stats := x.Extract(doc, loc)
		if !stats.TableFound {
			res.Report.MissingTables++
		}
		res.Report.SkippedRows += stats.Skipped
		res.Batch = append(res.Batch, rec)
		res.Report.Harvested++

		slog.Info("page harvested", "url", loc.URL, "n", i+1, "of", len(locators),
			"fields", rec.Len(), "skipped_rows", stats.Skipped, "cached", cached)
	}

	finish(false)
	return res, nil
}

// fetch returns the page at target, from the cache when possible. Network
// fetches are preceded by the pacer's pause; under PolicyRetry transient
// failures are retried with exponential backoff. attempts counts network
// fetches.
func (h *Harvester) fetch(ctx context.Context, p pacer, target string) (page *engine.FetchResult, attempts int, cached bool, err error) {
	if page, ok := h.pages.Get(target); ok {
		return page, 0, true, nil
	}

	for attempts = 1; ; attempts++ {
		if err := p.Wait(ctx); err != nil {
			return nil, attempts - 1, false, err
		}

		page, err = h.fetcher.Fetch(ctx, &engine.FetchRequest{URL: target, Timeout: h.opts.Timeout})
		if err == nil {
			h.pages.Set(target, page)
			return page, attempts, false, nil
		}

		if ctx.Err() != nil || h.opts.Policy != PolicyRetry || attempts > h.opts.MaxRetries || !retryable(err) {
			return nil, attempts, false, err
		}

		wait := backoff(h.opts.RetryBackoff, h.opts.MaxBackoff, attempts)
		slog.Warn("fetch failed, retrying", "url", target, "attempt", attempts, "backoff", wait, "error", err)
		if err := h.sleep(ctx, wait); err != nil {
			return nil, attempts, false, err
		}
	}
}

func validateURL(raw string) error {
	if err := checkAbsolute(raw); err != nil {
		return models.NewHarvestError(models.ErrCodeInvalidInput, "invalid index URL "+raw, err)
	}
	return nil
}

func checkAbsolute(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("absolute http(s) URL required")
	}
	return nil
}

// checkLocators returns a copy of caller-supplied locators with URL filled
// from Href when empty. Every URL must be absolute http(s); there is no
// index page to resolve a relative href against.
func checkLocators(locators []models.Locator) ([]models.Locator, error) {
	out := make([]models.Locator, len(locators))
	for i, loc := range locators {
		if loc.URL == "" {
			loc.URL = loc.Href
		}
		if err := checkAbsolute(loc.URL); err != nil {
			return nil, models.NewHarvestError(models.ErrCodeInvalidInput,
				fmt.Sprintf("locator %d: invalid URL %q", i, loc.URL), err)
		}
		out[i] = loc
	}
	return out, nil
}

// baseURL picks the URL hrefs on a page resolve against: the final URL after
// redirects, falling back to the requested one.
func baseURL(final, requested string) *url.URL {
	for _, raw := range []string{final, requested} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err == nil {
			return u
		}
	}
	return nil
}
