package crawl

import (
	"strings"

	"github.com/google/uuid"
)

// SectionID derives the deterministic content-addressed identifier for a
// section from its URL and heading breadcrumb: a UUIDv5 over the URL
// namespace. Identical inputs always yield the identical id, across
// processes, which is what lets parallel crawl workers produce section
// and section-line records that join without any shared key generator.
// The id is order-sensitive in titles.
func SectionID(url string, titles []string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url+strings.Join(titles, ""))).String()
}
