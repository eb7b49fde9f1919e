// Package service is the application facade: it chains the cache
// tiers, the live scraper, and the external workflow endpoint into one
// search operation and shapes the API response envelope.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"filmseek/cache"
	"filmseek/merge"
	"filmseek/movie"
	"filmseek/scout"
)

const (
	emptyQueryMessage  = "Please enter a search term"
	unavailableMessage = "Search temporarily unavailable. Please try again later."

	defaultExternalTimeout = 10 * time.Second
)

// Searcher is the live scraping backend.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]movie.Record, error)
	BrowserActive() bool
}

// External fetches results from the workflow endpoint.
type External interface {
	Fetch(ctx context.Context, query string, maxResults int) ([]movie.Record, error)
}

// Response is the envelope every search returns.
type Response struct {
	Query      string         `json:"query"`
	Results    []movie.Record `json:"results"`
	Total      int            `json:"total"`
	SearchTime float64        `json:"search_time"`
	Source     string         `json:"source"`
	Cached     bool           `json:"cached"`
	Message    string         `json:"message"`
}

// Config wires a Service. Searcher is required; Memory, Store and
// External are each optional and their tiers are skipped when nil.
type Config struct {
	Searcher        Searcher
	External        External
	Memory          *cache.Memory
	Store           *cache.Store
	ExternalTimeout time.Duration
	Logger          *slog.Logger
}

// Service answers search requests. Safe for concurrent use.
type Service struct {
	searcher        Searcher
	external        External
	memory          *cache.Memory
	store           *cache.Store
	externalTimeout time.Duration
	logger          *slog.Logger
}

// New creates a Service from cfg.
func New(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ExternalTimeout <= 0 {
		cfg.ExternalTimeout = defaultExternalTimeout
	}
	return &Service{
		searcher:        cfg.Searcher,
		external:        cfg.External,
		memory:          cfg.Memory,
		store:           cfg.Store,
		externalTimeout: cfg.ExternalTimeout,
		logger:          cfg.Logger,
	}
}

// Search runs the tiered lookup: memory cache, persistent cache,
// catalog, then a live scrape optionally merged with external results.
// Faults never propagate as errors; they degrade to an empty response
// with an explanatory message.
func (s *Service) Search(ctx context.Context, query string, maxResults int, useExternal bool) Response {
	start := time.Now()
	if maxResults <= 0 {
		maxResults = 20
	}

	resp := Response{Query: query, Results: []movie.Record{}}
	if strings.TrimSpace(query) == "" {
		resp.Message = emptyQueryMessage
		return resp
	}

	if records, source, cached := s.lookup(ctx, query, maxResults); records != nil {
		resp.Results = records
		if cached {
			// Catalog hits already carry a db suffix from the store.
			resp.Results = withSuffix(records, movie.SuffixCached)
		}
		resp.Total = len(resp.Results)
		resp.Source = source
		resp.Cached = cached
		resp.SearchTime = seconds(start)
		resp.Message = fmt.Sprintf("Found %d movies", resp.Total)
		return resp
	}

	records, err := s.searcher.Search(ctx, query, maxResults)
	if err != nil {
		if errors.Is(err, scout.ErrBrowserUnavailable) {
			s.logger.Error("service: browser unavailable", "query", query, "error", err)
		} else {
			s.logger.Error("service: search failed", "query", query, "error", err)
		}
		resp.Message = unavailableMessage
		resp.SearchTime = seconds(start)
		return resp
	}

	if useExternal && s.external != nil {
		records = s.mergeExternal(ctx, query, maxResults, records)
	}
	if len(records) > maxResults {
		records = records[:maxResults]
	}

	if len(records) > 0 {
		s.remember(ctx, query, maxResults, records)
	}

	resp.Results = records
	resp.Total = len(records)
	resp.Source = sourceLive
	resp.SearchTime = seconds(start)
	resp.Message = fmt.Sprintf("Found %d movies in %.1fs", resp.Total, resp.SearchTime)
	return resp
}

const (
	sourceLive    = "live"
	sourceMemory  = "memory-cache"
	sourceDB      = "database-cache"
	sourceCatalog = "database-catalog"
)

// catalogMinimum is how many catalog matches count as a usable answer
// without going to the live site.
const catalogMinimum = 3

func (s *Service) lookup(ctx context.Context, query string, maxResults int) ([]movie.Record, string, bool) {
	if s.memory != nil {
		if records, ok := s.memory.Get(query, maxResults); ok {
			return records, sourceMemory, true
		}
	}
	if s.store == nil {
		return nil, "", false
	}

	records, hit, err := s.store.GetSearch(ctx, query)
	if err != nil {
		s.logger.Warn("service: persistent cache read failed", "query", query, "error", err)
	} else if hit {
		if len(records) > maxResults {
			records = records[:maxResults]
		}
		if s.memory != nil {
			s.memory.Set(query, maxResults, records)
		}
		return records, sourceDB, true
	}

	catalog, err := s.store.SearchCatalog(ctx, query, maxResults)
	if err != nil {
		s.logger.Warn("service: catalog search failed", "query", query, "error", err)
		return nil, "", false
	}
	if len(catalog) >= catalogMinimum {
		if s.memory != nil {
			s.memory.Set(query, maxResults, catalog)
		}
		return catalog, sourceCatalog, false
	}
	return nil, "", false
}

func (s *Service) mergeExternal(ctx context.Context, query string, maxResults int, primary []movie.Record) []movie.Record {
	fetchCtx, cancel := context.WithTimeout(ctx, s.externalTimeout)
	defer cancel()

	external, err := s.external.Fetch(fetchCtx, query, maxResults)
	if err != nil {
		// External results are additive only; the scrape stands alone.
		s.logger.Warn("service: external fetch failed", "query", query, "error", err)
		return primary
	}
	return merge.Records(primary, external, s.logger)
}

func (s *Service) remember(ctx context.Context, query string, maxResults int, records []movie.Record) {
	if s.memory != nil {
		s.memory.Set(query, maxResults, records)
	}
	if s.store == nil {
		return
	}
	if err := s.store.PutSearch(ctx, query, records); err != nil {
		s.logger.Warn("service: persistent cache write failed", "query", query, "error", err)
	}
	if err := s.store.StoreMovies(ctx, query, records); err != nil {
		s.logger.Warn("service: catalog write failed", "query", query, "error", err)
	}
}

// Health reports liveness details for the health endpoint.
type Health struct {
	Status        string `json:"status"`
	BrowserActive bool   `json:"browser_active"`
	CacheEntries  int    `json:"cache_entries"`
}

// CheckHealth snapshots service health.
func (s *Service) CheckHealth() Health {
	h := Health{Status: "healthy"}
	if s.searcher != nil {
		h.BrowserActive = s.searcher.BrowserActive()
	}
	if s.memory != nil {
		h.CacheEntries = s.memory.Len()
	}
	return h
}

// CacheStats aggregates both cache tiers.
type CacheStats struct {
	MemoryEntries int          `json:"memory_entries"`
	Store         *cache.Stats `json:"store,omitempty"`
}

// ReadCacheStats collects statistics from both tiers.
func (s *Service) ReadCacheStats(ctx context.Context) (CacheStats, error) {
	var cs CacheStats
	if s.memory != nil {
		cs.MemoryEntries = s.memory.Len()
	}
	if s.store != nil {
		st, err := s.store.ReadStats(ctx)
		if err != nil {
			return cs, err
		}
		cs.Store = &st
	}
	return cs, nil
}

// ClearCache empties the memory tier and the persistent search rows.
func (s *Service) ClearCache(ctx context.Context) error {
	if s.memory != nil {
		s.memory.Purge()
	}
	if s.store != nil {
		return s.store.Clear(ctx)
	}
	return nil
}

// Cleanup prunes expired persistent-tier rows. Best effort.
func (s *Service) Cleanup(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.Cleanup(ctx); err != nil {
		s.logger.Warn("service: cleanup failed", "error", err)
	}
}

func withSuffix(records []movie.Record, suffix string) []movie.Record {
	out := make([]movie.Record, len(records))
	copy(out, records)
	for i := range out {
		if !strings.HasSuffix(out[i].Source, suffix) {
			out[i].Source += suffix
		}
	}
	return out
}

func seconds(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Second)
}
