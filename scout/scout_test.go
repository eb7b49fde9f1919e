package scout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"golang.org/x/sync/semaphore"

	"filmseek/movie"
	"filmseek/scout/internal/browser"
	"filmseek/scout/internal/navigate"
)

const testBase = "https://www.5movierulz.irish"

type fakeLoader struct {
	pages map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeLoader) LoadHTML(ctx context.Context, pageURL string, profile browser.Profile, timeout time.Duration) (string, error) {
	f.calls = append(f.calls, pageURL)
	if err, ok := f.errs[pageURL]; ok {
		return "", err
	}
	if page, ok := f.pages[pageURL]; ok {
		return page, nil
	}
	return "", fmt.Errorf("%w: no fixture for %s", navigate.ErrFailed, pageURL)
}

type fakeStreams struct {
	byDetail map[string]string
}

func (f *fakeStreams) Resolve(ctx context.Context, detailURL string) string {
	return f.byDetail[detailURL]
}

func newTestSearcher(cfg Config, ld loader, sr streamResolver) *Searcher {
	cfg.applyDefaults()
	if sr == nil {
		sr = &fakeStreams{}
	}
	return &Searcher{
		cfg:     cfg,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		loader:  ld,
		streams: sr,
		sem:     semaphore.NewWeighted(int64(cfg.StreamConcurrency)),
	}
}

func listingPage(count int) string {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 0; i < count; i++ {
		fmt.Fprintf(&sb,
			`<div class="post"><span class="title">Batman Part %d (200%d)</span><a href="/batman-%d/">Details</a></div>`,
			i, i, i)
	}
	sb.WriteString("</body></html>")
	return sb.String()
}

func TestSearchEmptyQueryShortCircuits(t *testing.T) {
	ld := &fakeLoader{}
	s := newTestSearcher(Config{}, ld, nil)

	for _, q := range []string{"", "   ", "\n\t"} {
		records, err := s.Search(context.Background(), q, 5)
		if err != nil {
			t.Fatalf("Search(%q): %v", q, err)
		}
		if len(records) != 0 {
			t.Errorf("Search(%q) = %d records, want 0", q, len(records))
		}
	}
	if len(ld.calls) != 0 {
		t.Errorf("empty query touched the loader: %v", ld.calls)
	}
}

func TestSearchStopsAfterFirstStrategy(t *testing.T) {
	ld := &fakeLoader{pages: map[string]string{
		testBase + "/search_movies?s=batman": listingPage(8),
	}}
	s := newTestSearcher(Config{}, ld, nil)

	records, err := s.Search(context.Background(), "batman", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("got %d records, want 5", len(records))
	}
	for i, r := range records {
		if r.CanonicalURL == "" {
			t.Errorf("record %d has empty canonical URL", i)
		}
		if r.Source != movie.SourceSearch {
			t.Errorf("record %d source = %q", i, r.Source)
		}
		want := fmt.Sprintf("%s/batman-%d/", testBase, i)
		if r.CanonicalURL != want {
			t.Errorf("record %d = %q, want %q (discovery order)", i, r.CanonicalURL, want)
		}
	}
	// Enough results from the search page: later strategies never ran.
	if len(ld.calls) != 1 {
		t.Errorf("loader calls = %v, want only the search page", ld.calls)
	}
}

func TestSearchFallsThroughStrategies(t *testing.T) {
	homepage := `<html><body>
		<a href="/batman-homepage-movie/">Batman Homepage (2001)</a>
		<nav><a href="/category/action/">Action</a></nav>
	</body></html>`
	categoryPage := `<html><body>
		<div class="post"><span class="title">Batman Category (1999)</span><a href="/batman-category/">Details</a></div>
	</body></html>`

	ld := &fakeLoader{
		pages: map[string]string{
			testBase:                      homepage,
			testBase + "/category/action/": categoryPage,
		},
		errs: map[string]error{
			testBase + "/search_movies?s=batman": fmt.Errorf("%w: boom", navigate.ErrFailed),
		},
	}
	s := newTestSearcher(Config{}, ld, nil)

	records, err := s.Search(context.Background(), "batman", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2: %+v", len(records), records)
	}
	if records[0].Source != movie.SourceBrowse {
		t.Errorf("record 0 source = %q, want browse before category", records[0].Source)
	}
	if records[1].Source != movie.SourceCategory {
		t.Errorf("record 1 source = %q", records[1].Source)
	}
}

func TestSearchTitleDedupAcrossStrategies(t *testing.T) {
	searchPage := `<html><body>
		<div class="post"><span class="title">Batman Begins (2005)</span><a href="/batman-begins/">Details</a></div>
	</body></html>`
	// Homepage repeats the same title with different casing plus one
	// new entry.
	homepage := `<html><body>
		<a href="/batman-begins-movie/">BATMAN BEGINS (2005)</a>
		<a href="/batman-returns-movie/">Batman Returns (1992)</a>
	</body></html>`

	ld := &fakeLoader{pages: map[string]string{
		testBase + "/search_movies?s=batman": searchPage,
		testBase:                            homepage,
	}}
	s := newTestSearcher(Config{}, ld, nil)

	records, err := s.Search(context.Background(), "batman", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	titles := make(map[string]int)
	for _, r := range records {
		titles[r.TitleKey()]++
	}
	if titles["batman begins (2005)"] != 1 {
		t.Errorf("duplicate title survived dedup: %+v", records)
	}
	// First-seen (search page) version wins.
	if records[0].Source != movie.SourceSearch {
		t.Errorf("record 0 source = %q, want search-page version kept", records[0].Source)
	}
}

func TestSearchBrowserUnavailable(t *testing.T) {
	ld := &fakeLoader{errs: map[string]error{
		testBase + "/search_movies?s=batman": fmt.Errorf("%w: no chrome", browser.ErrUnavailable),
		testBase:                            fmt.Errorf("%w: no chrome", browser.ErrUnavailable),
	}}
	s := newTestSearcher(Config{}, ld, nil)

	_, err := s.Search(context.Background(), "batman", 5)
	if !errors.Is(err, ErrBrowserUnavailable) {
		t.Fatalf("err = %v, want ErrBrowserUnavailable", err)
	}
}

func TestSearchResolvesStreams(t *testing.T) {
	ld := &fakeLoader{pages: map[string]string{
		testBase + "/search_movies?s=batman": listingPage(1),
	}}
	sr := &fakeStreams{byDetail: map[string]string{
		testBase + "/batman-0/": "https://streamlare.com/v/abc",
	}}
	cfg := Config{ResolveStreams: true}
	s := newTestSearcher(cfg, ld, sr)

	records, err := s.Search(context.Background(), "batman", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].CanonicalURL != "https://streamlare.com/v/abc" {
		t.Errorf("canonical = %q, want stream URL", records[0].CanonicalURL)
	}
	if records[0].DetailPageURL != testBase+"/batman-0/" {
		t.Errorf("detail page = %q, must keep discovery page", records[0].DetailPageURL)
	}
}

func TestDedupeByTitleIdempotent(t *testing.T) {
	records := []movie.Record{
		{Title: "Batman Begins", CanonicalURL: "http://a"},
		{Title: " batman begins ", CanonicalURL: "http://b"},
		{Title: "Batman Returns", CanonicalURL: "http://c"},
	}
	once := dedupeByTitle(records)
	if len(once) != 2 {
		t.Fatalf("got %d, want 2", len(once))
	}
	twice := dedupeByTitle(once)
	if len(twice) != len(once) {
		t.Fatalf("dedupe not idempotent: %d then %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("record %d changed on second pass", i)
		}
	}
}
