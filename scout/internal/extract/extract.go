// Package extract locates movie entries in captured listing-page
// markup. Candidate containers are collected through an ordered
// selector list, matched against the query, and resolved into records.
// Target-site markup is unstable: selector misses, absent titles and
// unmatched containers are filtered, never errors.
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"filmseek/movie"
)

// containerSelectors find candidate movie containers, in priority
// order. Class-substring forms first: the target site's entry markup is
// class soup and the substring forms are the ones that reliably hit.
var containerSelectors = []string{
	`div[class*=film]`,
	".post",
	".entry",
	"article",
	".movie-item",
	".film-item",
	".search-result",
	".result-item",
	`div[class*=post]`,
	`div[class*=movie]`,
	`li[class*=post]`,
	`li[class*=movie]`,
	".film-poster",
	".movie-poster",
	".content-box",
	".movie-box",
}

// linkSelectors find bare movie links when no container matched around them.
var linkSelectors = []string{
	`a[href*=movie]`,
	`a[href*=watch]`,
	`a[href*=download]`,
	`a[href*=online]`,
	"h1 a", "h2 a", "h3 a", "h4 a",
}

var genreSelectors = []string{".genre", ".category", ".meta"}

// maxContainers bounds per-page processing regardless of markup size.
const maxContainers = 100

// Options configures one extraction run.
type Options struct {
	// Query is the user's search term; containers that do not match it
	// are skipped.
	Query string

	// BaseURL resolves relative hrefs and image sources.
	BaseURL string

	// Source is the provenance tag stamped on every emitted record.
	Source string

	// MaxRecords stops container processing early once reached. 0 means
	// no limit.
	MaxRecords int
}

// Movies extracts movie records from raw listing-page markup.
func Movies(rawHTML []byte, opts Options) ([]movie.Record, error) {
	doc, err := html.Parse(bytes.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("extract: parse HTML: %w", err)
	}

	res, err := newResolver(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	var records []movie.Record
	for _, n := range collectContainers(doc) {
		if opts.MaxRecords > 0 && len(records) >= opts.MaxRecords {
			break
		}
		records = append(records, containerRecords(n, opts.Query, res)...)
	}

	if opts.MaxRecords > 0 && len(records) > opts.MaxRecords {
		records = records[:opts.MaxRecords]
	}
	for i := range records {
		records[i].Source = opts.Source
	}
	return records, nil
}

// collectContainers accumulates matches from every selector that yields
// at least one hit, then deduplicates by serialized markup so the same
// DOM node is never processed twice. Order is selector-list order then
// document order; downstream dedup priority depends on it.
func collectContainers(doc *html.Node) []*html.Node {
	var all []*html.Node
	for _, sel := range containerSelectors {
		all = append(all, querySelectorAll(doc, sel)...)
	}
	for _, sel := range linkSelectors {
		all = append(all, querySelectorAll(doc, sel)...)
	}

	seen := make(map[string]bool, len(all))
	var unique []*html.Node
	for _, n := range all {
		markup := renderNode(n)
		if seen[markup] {
			continue
		}
		seen[markup] = true
		unique = append(unique, n)
		if len(unique) >= maxContainers {
			break
		}
	}
	return unique
}

// containerRecords turns one candidate container into zero or more
// records. A container with more than one link and more than one image
// is treated as a batch container holding several listings.
func containerRecords(n *html.Node, query string, res *resolver) []movie.Record {
	title := resolveTitle(n)
	if len(title) < 2 || !Matches(title, query) {
		return nil
	}

	links := matchDescendants(n, "a[href]")
	images := matchDescendants(n, "img")
	if len(links) > 1 && len(images) > 1 {
		return batchRecords(links, images, query, res)
	}

	pageURL := ""
	if isLink(n) {
		pageURL = res.resolve(getAttr(n, "href"))
	} else if link := querySelector(n, "a[href]"); link != nil {
		pageURL = res.resolve(getAttr(link, "href"))
	}
	if pageURL == "" {
		// No resolvable URL; the record would be undeduplicatable.
		return nil
	}

	poster := ""
	if img := querySelector(n, "img"); img != nil {
		if src := getAttr(img, "src"); src != "" && !strings.HasPrefix(src, "data:") {
			poster = res.resolve(src)
		}
	}

	genre := ""
	for _, sel := range genreSelectors {
		if elem := querySelector(n, sel); elem != nil {
			if g := CleanText(collectText(elem)); g != "" {
				genre = g
				break
			}
		}
	}

	rec := movie.Record{
		Title:         ApplyLanguageQualifier(title, pageURL),
		CanonicalURL:  pageURL,
		DetailPageURL: pageURL,
		PosterURL:     poster,
		Genre:         genre,
	}
	rec.Normalize()
	return []movie.Record{rec}
}

// resolver resolves scraped hrefs against the site base URL.
type resolver struct {
	base *url.URL
}

func newResolver(baseURL string) (*resolver, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("extract: parse base URL %q: %w", baseURL, err)
	}
	return &resolver{base: base}, nil
}

func (r *resolver) resolve(href string) string {
	href = movie.TrimURL(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return r.base.ResolveReference(ref).String()
}
