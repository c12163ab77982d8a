package storage

// PageLine is one indexable unit of text: a single visual line from a
// heading, paragraph or list item on a crawled page. Records are written
// once per crawl pass and never mutated; a re-crawl produces a full
// replacement set.
type PageLine struct {
	Text     string   `json:"text"`     // single non-empty line of element text
	URL      string   `json:"url"`      // page path (domain stripped in relative mode)
	Tag      string   `json:"tag"`      // h1..h6, p or li
	Location string   `json:"location"` // CSS-selector-like path to the source element
	Sections []string `json:"sections"` // cumulative URL path prefixes, most specific last
	Titles   []string `json:"titles"`   // page title, then nearest enclosing heading
}

// Section is a logical content block keyed by its heading breadcrumb.
// Its ID is derived from url+titles, so independent crawl passes over an
// unchanged page produce the same ID.
type Section struct {
	ID       string   `json:"id"`
	URL      string   `json:"url"`
	Sections []string `json:"sections"`
	Titles   []string `json:"titles"` // breadcrumb ending in this section's own heading
}

// SectionLine is a line of body text scoped to a Section. SectionID is a
// non-owning back-reference resolved by lookup at query time.
type SectionLine struct {
	Text      string `json:"text"`
	SectionID string `json:"section_id"`
	Location  string `json:"location"`
}

// ScoredLine pairs a PageLine with its vector similarity score.
type ScoredLine struct {
	Line  PageLine
	Score float32
}

// Collection names. LineCollection holds one point per PageLine and
// serves all search traffic; the section collections hold the grouped
// view produced by the section crawl.
const (
	LineCollection        = "site"
	SectionCollection     = "sections"
	SectionLineCollection = "abstracts"
)
