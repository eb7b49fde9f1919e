package extract

import (
	"strings"

	"golang.org/x/net/html"

	"filmseek/movie"
)

// batchRecords disambiguates a container that packs several listings
// into one element (more than one link and more than one image). The
// i-th link is paired with the i-th image, falling back to the first
// image when the index runs out. Positional pairing is best-effort: it
// can mispair when link and image counts diverge from markup
// irregularities.
func batchRecords(links, images []*html.Node, query string, res *resolver) []movie.Record {
	var records []movie.Record

	for i, link := range links {
		href := getAttr(link, "href")
		if href == "" {
			continue
		}

		img := images[0]
		if i < len(images) {
			img = images[i]
		}

		poster := ""
		if src := getAttr(img, "src"); src != "" && !strings.HasPrefix(src, "data:") {
			poster = res.resolve(src)
		}

		title := CleanTitle(getAttr(img, "alt"))
		if title == "" {
			title = titleFromURL(href, query)
		}
		if title == "" || !Matches(title, query) {
			continue
		}

		pageURL := res.resolve(href)
		if pageURL == "" {
			continue
		}

		rec := movie.Record{
			Title:         ApplyLanguageQualifier(title, pageURL),
			CanonicalURL:  pageURL,
			DetailPageURL: pageURL,
			PosterURL:     poster,
		}
		rec.Normalize()
		records = append(records, rec)
	}

	return records
}

// titleFromURL derives a title from a movie URL path segment, e.g.
// "/rrr-2022-movie-watch-online-free" -> "rrr 2022".
func titleFromURL(href, query string) string {
	queryTokens := tokenize(query)
	for _, part := range strings.Split(href, "/") {
		lower := strings.ToLower(part)
		hit := strings.Contains(lower, "movie-watch")
		if !hit {
			for _, q := range queryTokens {
				if strings.Contains(lower, q) {
					hit = true
					break
				}
			}
		}
		if !hit {
			continue
		}
		title := strings.ReplaceAll(part, "-", " ")
		title = placeholderRe.ReplaceAllString(title, "")
		return CleanText(title)
	}
	return ""
}
