// Package scout orchestrates movie searches against the target listing
// site. It drives the shared headless browser through three extraction
// strategies in priority order, resolves stream URLs for candidates,
// and deduplicates the accumulated results.
package scout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"filmseek/movie"
	"filmseek/scout/internal/browser"
	"filmseek/scout/internal/extract"
	"filmseek/scout/internal/navigate"
	"filmseek/scout/internal/stream"
)

// ErrBrowserUnavailable means Chrome could not be started. Fatal to a
// search attempt, not retried.
var ErrBrowserUnavailable = browser.ErrUnavailable

// loader fetches a page's rendered markup under a profile and timeout.
type loader interface {
	LoadHTML(ctx context.Context, pageURL string, profile browser.Profile, timeout time.Duration) (string, error)
}

// streamResolver finds a stream URL for a detail page, "" when absent.
type streamResolver interface {
	Resolve(ctx context.Context, detailURL string) string
}

// Searcher runs the search strategies in priority order (search page,
// homepage browse, category browse), stopping early once enough
// deduplicated results accumulate. Safe for concurrent use; identical
// in-flight queries collapse onto one scrape.
type Searcher struct {
	cfg     Config
	logger  *slog.Logger
	manager *browser.Manager
	loader  loader
	streams streamResolver
	group   singleflight.Group
	sem     *semaphore.Weighted
}

// New creates a Searcher owning a lazily-started browser session.
func New(cfg Config, logger *slog.Logger) *Searcher {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	mgr := browser.NewManager(browser.Config{
		RemoteURL:       cfg.RemoteBrowserURL,
		MemoryLimit:     cfg.BrowserMemoryLimit,
		RecycleInterval: cfg.BrowserRecycleInterval,
		UserAgents:      cfg.UserAgents,
		BlockedDomains:  cfg.BlockedDomains,
		Logger:          logger,
	})
	ld := &pageLoader{mgr: mgr, settle: cfg.SettleDelay, logger: logger}

	s := &Searcher{
		cfg:     cfg,
		logger:  logger,
		manager: mgr,
		loader:  ld,
		sem:     semaphore.NewWeighted(int64(cfg.StreamConcurrency)),
	}
	// Detail pages load with the full profile: stream embeds attach
	// through script.
	s.streams = stream.NewResolver(func(ctx context.Context, pageURL string, timeout time.Duration) (string, error) {
		return ld.LoadHTML(ctx, pageURL, browser.Full(), timeout)
	}, cfg.StreamTimeout, logger)
	return s
}

// BrowserActive reports whether the shared Chrome process is running.
func (s *Searcher) BrowserActive() bool {
	return s.manager != nil && s.manager.Active()
}

// Close shuts the browser session down. Safe when nothing was started.
func (s *Searcher) Close() error {
	if s.manager != nil {
		return s.manager.Close()
	}
	return nil
}

// Search returns up to maxResults deduplicated records for the query.
// An empty query short-circuits without touching the browser. Only a
// browser that cannot start surfaces as an error; strategy and page
// faults degrade to partial or empty results.
func (s *Searcher) Search(ctx context.Context, query string, maxResults int) ([]movie.Record, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}
	if maxResults <= 0 {
		maxResults = 20
	}

	key := fmt.Sprintf("%s|%d", query, maxResults)
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.runStrategies(ctx, query, maxResults)
	})
	if err != nil {
		return nil, err
	}
	return v.([]movie.Record), nil
}

func (s *Searcher) runStrategies(ctx context.Context, query string, maxResults int) ([]movie.Record, error) {
	strategies := []struct {
		name string
		run  func(context.Context, string, int) ([]movie.Record, error)
	}{
		{"search-page", s.searchPage},
		{"homepage-browse", s.homepageBrowse},
		{"category-browse", s.categoryBrowse},
	}

	var all []movie.Record
	for _, st := range strategies {
		start := time.Now()
		records, err := st.run(ctx, query, maxResults)
		if err != nil {
			if errors.Is(err, browser.ErrUnavailable) {
				return nil, err
			}
			// A failing strategy contributes zero results; the machine
			// still advances.
			s.logger.Warn("scout: strategy failed", "strategy", st.name, "error", err)
			continue
		}
		s.logger.Debug("scout: strategy done",
			"strategy", st.name, "records", len(records), "elapsed", time.Since(start))
		all = append(all, records...)
		if len(dedupeByTitle(all)) >= maxResults {
			break
		}
	}

	unique := dedupeByTitle(all)
	if len(unique) > maxResults {
		unique = unique[:maxResults]
	}
	return unique, nil
}

// searchPage hits the site's search endpoint directly. Highest
// precision strategy; the only one that resolves streams.
func (s *Searcher) searchPage(ctx context.Context, query string, maxResults int) ([]movie.Record, error) {
	searchURL := fmt.Sprintf("%s%s?s=%s", s.cfg.BaseURL, s.cfg.SearchPath, url.QueryEscape(query))

	rawHTML, err := s.loader.LoadHTML(ctx, searchURL, s.profile(), s.cfg.ListingTimeout)
	if err != nil {
		return nil, err
	}

	records, err := extract.Movies([]byte(rawHTML), extract.Options{
		Query:      query,
		BaseURL:    s.cfg.BaseURL,
		Source:     movie.SourceSearch,
		MaxRecords: maxResults,
	})
	if err != nil {
		return nil, err
	}

	if s.cfg.ResolveStreams {
		s.resolveStreams(ctx, records)
	}
	return records, nil
}

// homepageBrowse scans homepage movie links. Fallback strategy.
func (s *Searcher) homepageBrowse(ctx context.Context, query string, _ int) ([]movie.Record, error) {
	rawHTML, err := s.loader.LoadHTML(ctx, s.cfg.BaseURL, s.profile(), s.cfg.ListingTimeout)
	if err != nil {
		return nil, err
	}
	return extract.Browse([]byte(rawHTML), extract.Options{
		Query:      query,
		BaseURL:    s.cfg.BaseURL,
		Source:     movie.SourceBrowse,
		MaxRecords: s.cfg.BrowseLinkLimit,
	})
}

// categoryBrowse walks category pages found on the homepage. Lowest
// precision, bounded by MaxCategoryPages and CategoryResultTarget.
func (s *Searcher) categoryBrowse(ctx context.Context, query string, _ int) ([]movie.Record, error) {
	rawHTML, err := s.loader.LoadHTML(ctx, s.cfg.BaseURL, s.profile(), s.cfg.ListingTimeout)
	if err != nil {
		return nil, err
	}
	urls, err := extract.CategoryLinks([]byte(rawHTML), s.cfg.BaseURL, s.cfg.MaxCategoryPages)
	if err != nil {
		return nil, err
	}

	var records []movie.Record
	for _, u := range urls {
		page, err := s.loader.LoadHTML(ctx, u, s.profile(), s.cfg.CategoryTimeout)
		if err != nil {
			s.logger.Debug("scout: category page failed", "url", u, "error", err)
			continue
		}
		recs, err := extract.Movies([]byte(page), extract.Options{
			Query:   query,
			BaseURL: s.cfg.BaseURL,
			Source:  movie.SourceCategory,
		})
		if err != nil {
			continue
		}
		records = append(records, recs...)
		if len(records) >= s.cfg.CategoryResultTarget {
			break
		}
	}
	return records, nil
}

// resolveStreams rewrites canonical URLs to stream URLs where one can
// be found, with bounded concurrency. Indices are disjoint so the
// goroutines never race.
func (s *Searcher) resolveStreams(ctx context.Context, records []movie.Record) {
	var wg sync.WaitGroup
	for i := range records {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(rec *movie.Record) {
			defer wg.Done()
			defer s.sem.Release(1)
			if u := s.streams.Resolve(ctx, rec.DetailPageURL); u != "" {
				rec.CanonicalURL = u
			}
		}(&records[i])
	}
	wg.Wait()
}

func (s *Searcher) profile() browser.Profile {
	if s.cfg.ResourceProfile == "full" {
		return browser.Full()
	}
	return browser.Light()
}

// pageLoader is the production loader: a fresh stealth page per load,
// closed in all paths to bound renderer memory.
type pageLoader struct {
	mgr    *browser.Manager
	settle time.Duration
	logger *slog.Logger
}

func (l *pageLoader) LoadHTML(ctx context.Context, pageURL string, profile browser.Profile, timeout time.Duration) (string, error) {
	page, err := l.mgr.NewPage(ctx, profile)
	if err != nil {
		return "", err
	}
	defer page.Close()

	return navigate.Load(ctx, page, pageURL, navigate.Options{
		Timeout:       timeout,
		SettleDelay:   l.settle,
		DismissPopups: true,
		Logger:        l.logger,
	})
}
