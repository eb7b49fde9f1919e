package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// titleSelectors are tried in order against a container before falling
// back to free-text heuristics.
var titleSelectors = []string{
	"h1", "h2", "h3", "h4",
	".title", ".movie-title", ".post-title", ".entry-title",
}

// skipPrefixes mark lines that are navigation chrome, not titles.
var skipPrefixes = []string{"watch", "download", "free", "online"}

// suffixRe strips trailing pipe-delimited site chrome such as
// "| Watch Online" or "| Search Results".
var suffixRe = regexp.MustCompile(`(?i)\s*\|\s*(search results|movierulz|watch|download|free).*$`)

// resolveTitle resolves a display title for a container, trying in order:
// heading/title-class sub-elements, the first meaningful text line, the
// container's own link text, a descendant link's text, and finally the
// title attribute.
func resolveTitle(n *html.Node) string {
	for _, sel := range titleSelectors {
		if elem := querySelector(n, sel); elem != nil {
			if t := CleanTitle(collectText(elem)); t != "" {
				return t
			}
		}
	}

	for _, line := range collectLines(n) {
		if len(line) <= 3 {
			continue
		}
		lower := strings.ToLower(line)
		skip := false
		for _, p := range skipPrefixes {
			if strings.HasPrefix(lower, p) {
				skip = true
				break
			}
		}
		if !skip {
			return CleanTitle(line)
		}
	}

	if isLink(n) {
		if t := CleanTitle(collectText(n)); t != "" {
			return t
		}
	} else if link := querySelector(n, "a"); link != nil {
		if t := CleanTitle(collectText(link)); t != "" {
			return t
		}
	}

	return CleanTitle(getAttr(n, "title"))
}

// CleanTitle trims a title and strips trailing pipe-delimited suffixes.
func CleanTitle(title string) string {
	title = CleanText(title)
	title = suffixRe.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}

// knownLanguages are the language path markers the target site uses.
var knownLanguages = []string{"malayalam", "telugu", "tamil", "hindi", "english"}

const genericPlaceholder = "movie watch online free"

var placeholderRe = regexp.MustCompile(`(?i)movie\s+watch\s+online\s+free`)

// ApplyLanguageQualifier rewrites a generic placeholder title using the
// language marker embedded in the page URL, when both are present.
// "Movie Watch Online Free" becomes "Telugu Movie" for a /telugu/ URL.
// Display-quality heuristic only.
func ApplyLanguageQualifier(title, pageURL string) string {
	if !placeholderRe.MatchString(title) {
		return title
	}
	lowerURL := strings.ToLower(pageURL)
	for _, lang := range knownLanguages {
		if strings.Contains(lowerURL, lang) {
			qualified := strings.ToUpper(lang[:1]) + lang[1:] + " Movie"
			return CleanText(placeholderRe.ReplaceAllString(title, qualified))
		}
	}
	return title
}

func isLink(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.A && getAttr(n, "href") != ""
}
