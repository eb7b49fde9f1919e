package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// querySelectorAll returns all nodes matching a simple CSS selector.
// Supported subset:
//   - tag: "article", "li"
//   - .class: ".post", ".entry"
//   - tag.class: "div.content"
//   - tag[attr]: "a[href]"
//   - tag[attr=val]: "div[role=main]"
//   - tag[attr*=val]: `div[class*=film]`, `a[href*=movie]` (substring)
//   - combinations separated by space (descendant combinator)
//
// Listing sites decorate the same entry with inconsistent class soup, so
// the substring form carries most of the container discovery.
func querySelectorAll(doc *html.Node, selector string) []*html.Node {
	parts := strings.Fields(selector)
	if len(parts) == 0 {
		return nil
	}

	matches := matchSimple(doc, parts[0])

	for i := 1; i < len(parts); i++ {
		var next []*html.Node
		for _, parent := range matches {
			next = append(next, matchDescendants(parent, parts[i])...)
		}
		matches = next
	}

	return matches
}

// querySelector returns the first match or nil.
func querySelector(root *html.Node, selector string) *html.Node {
	if m := querySelectorAll(root, selector); len(m) > 0 {
		return m[0]
	}
	return nil
}

// matchSimple finds all nodes in the subtree (root included) matching a
// single selector part.
func matchSimple(root *html.Node, sel string) []*html.Node {
	m := parseSimpleSelector(sel)
	var results []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if matchesSelector(n, m) {
			results = append(results, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return results
}

// matchDescendants is matchSimple excluding the root itself.
func matchDescendants(root *html.Node, sel string) []*html.Node {
	var results []*html.Node
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		results = append(results, matchSimple(c, sel)...)
	}
	return results
}

type simpleSelector struct {
	tag     string
	class   string
	attrKey string
	attrVal string
	attrSub bool // attrVal is a substring match ([attr*=val])
}

// parseSimpleSelector parses "tag.class", "tag[attr*=val]", etc.
func parseSimpleSelector(sel string) simpleSelector {
	var s simpleSelector

	if idx := strings.IndexByte(sel, '['); idx >= 0 {
		attrPart := strings.TrimRight(sel[idx+1:], "]")
		sel = sel[:idx]
		if eqIdx := strings.IndexByte(attrPart, '='); eqIdx >= 0 {
			key := attrPart[:eqIdx]
			if strings.HasSuffix(key, "*") {
				key = strings.TrimSuffix(key, "*")
				s.attrSub = true
			}
			s.attrKey = key
			s.attrVal = strings.Trim(attrPart[eqIdx+1:], `"'`)
		} else {
			s.attrKey = attrPart
		}
	}

	if idx := strings.IndexByte(sel, '.'); idx >= 0 {
		s.class = sel[idx+1:]
		sel = sel[:idx]
	}

	s.tag = sel
	return s
}

func matchesSelector(n *html.Node, s simpleSelector) bool {
	if n.Type != html.ElementNode {
		return false
	}

	if s.tag != "" && n.Data != s.tag {
		return false
	}

	if s.class != "" {
		found := false
		for _, c := range strings.Fields(getAttr(n, "class")) {
			if c == s.class {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if s.attrKey != "" {
		val, ok := lookupAttr(n, s.attrKey)
		if !ok {
			return false
		}
		if s.attrVal != "" {
			if s.attrSub {
				if !strings.Contains(val, s.attrVal) {
					return false
				}
			} else if val != s.attrVal {
				return false
			}
		}
	}

	return true
}

func getAttr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}
