package adapter

import (
	"html"
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// firstMatch returns the first capture group of the first pattern that
// matches, cleaned of markup and entities.
func firstMatch(body string, patterns ...*regexp.Regexp) string {
	for _, pattern := range patterns {
		if m := pattern.FindStringSubmatch(body); len(m) > 1 {
			return cleanFragment(m[1])
		}
	}
	return ""
}

// cleanFragment strips nested tags, decodes entities, and collapses whitespace.
func cleanFragment(fragment string) string {
	stripped := tagPattern.ReplaceAllString(fragment, " ")
	return cleanText(html.UnescapeString(stripped))
}

// absoluteURL resolves protocol-relative and path-relative hrefs against a base.
func absoluteURL(href, base string) string {
	href = strings.TrimSpace(href)
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	case strings.HasPrefix(href, "/"):
		return strings.TrimRight(base, "/") + href
	default:
		return href
	}
}
