package search

import "github.com/bull/site-search/internal/storage"

// Hit is one query-time search result: the matched record, the
// similarity score when the source ranks (exact matches carry none),
// and a marked-up preview of the matched text. Hits are constructed per
// query and never persisted.
type Hit struct {
	Payload   storage.PageLine `json:"payload"`
	Score     *float32         `json:"score,omitempty"`
	Highlight string           `json:"highlight"`
}
