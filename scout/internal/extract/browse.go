package extract

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"filmseek/movie"
)

// browseLinkSelectors find movie links on a homepage or browse page.
var browseLinkSelectors = []string{
	`a[href*=movie]`,
	`a[href*=film]`,
	`a[href*=watch]`,
}

// categoryLinkSelectors find category navigation links.
var categoryLinkSelectors = []string{
	`a[href*=category]`,
	`a[href*=genre]`,
	"nav a",
	".menu a",
}

// Browse extracts matching records from bare movie links on a browse
// page. Lower precision than Movies: the link text is the title and the
// poster comes from the link's parent, when present.
func Browse(rawHTML []byte, opts Options) ([]movie.Record, error) {
	doc, err := html.Parse(bytes.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("extract: parse HTML: %w", err)
	}
	res, err := newResolver(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	links := collectLinks(doc, browseLinkSelectors, opts.MaxRecords)

	var records []movie.Record
	for _, link := range links {
		title := CleanTitle(collectText(link))
		if len(title) < 2 || !Matches(title, opts.Query) {
			continue
		}
		pageURL := res.resolve(getAttr(link, "href"))
		if pageURL == "" {
			continue
		}

		poster := ""
		if link.Parent != nil {
			if img := querySelector(link.Parent, "img"); img != nil {
				if src := getAttr(img, "src"); src != "" && !strings.HasPrefix(src, "data:") {
					poster = res.resolve(src)
				}
			}
		}

		rec := movie.Record{
			Title:         ApplyLanguageQualifier(title, pageURL),
			CanonicalURL:  pageURL,
			DetailPageURL: pageURL,
			PosterURL:     poster,
			Source:        opts.Source,
		}
		rec.Normalize()
		records = append(records, rec)
	}
	return records, nil
}

// CategoryLinks returns up to limit category page URLs found in a
// homepage document, deduplicated, in discovery order.
func CategoryLinks(rawHTML []byte, baseURL string, limit int) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("extract: parse HTML: %w", err)
	}
	res, err := newResolver(baseURL)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var urls []string
	for _, link := range collectLinks(doc, categoryLinkSelectors, 0) {
		href := getAttr(link, "href")
		if !strings.Contains(strings.ToLower(href), "category") {
			continue
		}
		u := res.resolve(href)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
		if limit > 0 && len(urls) >= limit {
			break
		}
	}
	return urls, nil
}

// collectLinks accumulates selector matches, deduplicating nodes by
// serialized markup, capped at limit when limit > 0.
func collectLinks(doc *html.Node, selectors []string, limit int) []*html.Node {
	seen := make(map[string]bool)
	var links []*html.Node
	for _, sel := range selectors {
		for _, n := range querySelectorAll(doc, sel) {
			markup := renderNode(n)
			if seen[markup] {
				continue
			}
			seen[markup] = true
			links = append(links, n)
			if limit > 0 && len(links) >= limit {
				return links
			}
		}
	}
	return links
}
