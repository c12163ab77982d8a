// Package crawl turns website pages into addressable text records: it
// discovers page URLs from sitemaps, fetches and parses HTML, extracts
// heading/paragraph/list-item lines with their DOM locations, and groups
// them into heading-delimited sections.
package crawl

import (
	"net/url"
	"strings"
)

// PathHierarchy derives the ordered list of cumulative path prefixes for
// a URL, used as coarse site-area filter scopes. Leading and trailing
// slashes are stripped; a pathless URL yields nil.
//
//	/foo/bar/ -> ["foo", "foo/bar"]
func PathHierarchy(rawURL string) []string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return nil
	}

	segments := strings.Split(path, "/")
	result := make([]string, 0, len(segments))
	prefix := ""
	for _, segment := range segments {
		prefix += segment
		result = append(result, prefix)
		prefix += "/"
	}
	return result
}
