// Package stream resolves a playable stream URL from a movie detail
// page. Absence of a stream is expected and common, not exceptional:
// every fault path yields "" and the record falls back to its detail
// page URL.
package stream

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// providerFragments is the fixed allow-list of streaming-provider name
// fragments recognised in link and embed URLs.
var providerFragments = []string{"streamlare", "vcdnlare"}

// rawPatterns scan unparsed markup when no structural match was found;
// provider URLs sometimes live in inline script blobs.
var rawPatterns = []*regexp.Regexp{
	regexp.MustCompile(`href=["']([^"']*streamlare[^"']*)["']`),
	regexp.MustCompile(`href=["']([^"']*vcdnlare[^"']*)["']`),
	regexp.MustCompile(`src=["']([^"']*streamlare[^"']*)["']`),
	regexp.MustCompile(`src=["']([^"']*vcdnlare[^"']*)["']`),
}

// LoadFunc fetches a page's rendered markup. Provided by the
// orchestrator so resolution shares the browser session.
type LoadFunc func(ctx context.Context, pageURL string, timeout time.Duration) (string, error)

// Resolver finds stream URLs on detail pages.
type Resolver struct {
	load    LoadFunc
	timeout time.Duration
	logger  *slog.Logger
}

// NewResolver creates a Resolver. The timeout is per detail page and
// should be shorter than the listing-page budget since resolution runs
// once per candidate.
func NewResolver(load LoadFunc, timeout time.Duration, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{load: load, timeout: timeout, logger: logger}
}

// Resolve loads the detail page and returns the first stream URL found,
// or "" when there is none or the page failed to load. Faults are
// logged, never propagated: a missing stream for one candidate must not
// abort the search.
func (r *Resolver) Resolve(ctx context.Context, detailURL string) string {
	rawHTML, err := r.load(ctx, detailURL, r.timeout)
	if err != nil {
		r.logger.Debug("stream: detail page load failed", "url", detailURL, "error", err)
		return ""
	}
	return FindInHTML(rawHTML)
}

// FindInHTML scans detail-page markup for a stream URL. Structural
// matches first (provider anchors, provider iframes, /v/ player paths),
// then raw-markup patterns, then a loose watch-online anchor heuristic.
// The first match wins.
func FindInHTML(rawHTML string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err == nil {
		if u := findStructural(doc); u != "" {
			return u
		}
	}

	for _, re := range rawPatterns {
		if m := re.FindStringSubmatch(rawHTML); m != nil {
			return m[1]
		}
	}

	if doc != nil {
		return findLoose(doc)
	}
	return ""
}

func findStructural(doc *html.Node) string {
	var providerHit, playerHit string
	walk(doc, func(n *html.Node) {
		var u string
		switch n.DataAtom {
		case atom.A:
			u = attr(n, "href")
		case atom.Iframe:
			u = attr(n, "src")
		default:
			return
		}
		if u == "" {
			return
		}
		if providerHit == "" && hasProvider(u) {
			providerHit = u
		}
		if playerHit == "" && strings.Contains(u, "stream") && strings.Contains(u, "/v/") {
			playerHit = u
		}
	})
	if providerHit != "" {
		return providerHit
	}
	return playerHit
}

// findLoose accepts "watch ... online" anchor text pointing at anything
// stream-shaped. Lowest-confidence tier.
func findLoose(doc *html.Node) string {
	var hit string
	walk(doc, func(n *html.Node) {
		if hit != "" || n.DataAtom != atom.A {
			return
		}
		href := attr(n, "href")
		if href == "" {
			return
		}
		text := strings.ToLower(nodeText(n))
		if strings.Contains(text, "watch") && strings.Contains(text, "online") &&
			(hasProvider(href) || strings.Contains(href, "stream")) {
			hit = href
		}
	})
	return hit
}

func hasProvider(u string) bool {
	for _, f := range providerFragments {
		if strings.Contains(u, f) {
			return true
		}
	}
	return false
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return sb.String()
}
