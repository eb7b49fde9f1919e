// Package movie defines the canonical search result record shared by the
// scraping pipeline, the external workflow client, and the HTTP API.
package movie

import (
	"regexp"
	"strings"
)

// Source tags. The base tag identifies the pipeline that produced a
// record; suffixes are appended for observability only and never take
// part in deduplication.
const (
	SourceSearch   = "movierulz-search"
	SourceBrowse   = "movierulz-browse"
	SourceCategory = "movierulz-category"
	SourceExternal = "external-workflow"

	SuffixCached = "-cached"
	SuffixDB     = "-db"
)

// Record is one movie search result.
type Record struct {
	// Title is free text and may embed year, quality and language tokens.
	Title string `json:"title"`

	// CanonicalURL is the playable stream URL when resolved, else the
	// detail page URL. It is the cross-source deduplication key and is
	// never empty in a list returned to a caller.
	CanonicalURL string `json:"url"`

	// DetailPageURL is the listing or detail page the record was
	// discovered on.
	DetailPageURL string `json:"movie_page,omitempty"`

	Source    string `json:"source"`
	Year      string `json:"year"`
	PosterURL string `json:"poster,omitempty"`
	Genre     string `json:"genre"`
	Rating    string `json:"rating"`
}

// Key returns the deduplication key: the canonical URL with embedded
// newline and surrounding whitespace noise removed.
func (r Record) Key() string {
	return TrimURL(r.CanonicalURL)
}

// TitleKey returns the title-based deduplication key used before
// canonical URLs are resolved.
func (r Record) TitleKey() string {
	return strings.ToLower(strings.TrimSpace(r.Title))
}

// Normalize fills defaulted fields in place.
func (r *Record) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	if r.Year == "" {
		r.Year = YearFromTitle(r.Title)
	}
	if r.Genre == "" {
		r.Genre = "Unknown"
	}
	if r.Rating == "" {
		r.Rating = "N/A"
	}
	if r.DetailPageURL == "" {
		r.DetailPageURL = r.CanonicalURL
	}
}

var newlineReplacer = strings.NewReplacer("\n", "", "\r", "", "\t", "")

// TrimURL strips embedded newlines, tabs and surrounding whitespace.
// Scraped hrefs occasionally carry markup noise.
func TrimURL(u string) string {
	return strings.TrimSpace(newlineReplacer.Replace(u))
}

var yearRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// YearFromTitle returns the first 4-digit year in [1900,2099] found in
// the title, or "N/A".
func YearFromTitle(title string) string {
	if m := yearRe.FindString(title); m != "" {
		return m
	}
	return "N/A"
}
