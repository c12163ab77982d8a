package search

import (
	"context"
	"unicode/utf8"
)

// DefaultBudget is the maximum number of hits returned per query across
// both sources.
const DefaultBudget = 5

// shortQueryMax is the query length (in characters) at or below which
// embedding similarity is considered too ambiguous to trust; such
// queries fall back to literal body-text matching instead.
const shortQueryMax = 3

// ExactSearcher and SemanticSearcher are the matcher collaborators of
// the fusion policy, kept narrow so tests can count calls.
type ExactSearcher interface {
	Search(ctx context.Context, query, section string, tags []string) ([]Hit, error)
}

// SemanticSearcher embeds the query and searches the vector index.
type SemanticSearcher interface {
	Search(ctx context.Context, query, section string) ([]Hit, error)
}

// HybridSearcher fuses exact and semantic results into one ranked,
// length-bounded list. Exact heading matches always come first: a
// documentation site's headings are curated phrasing, so a literal
// heading match is the highest-precision signal. The remaining budget is
// filled from the semantic matcher for longer queries, or from exact
// body matches for short ones. The semantic matcher is skipped entirely
// when heading matches already fill the budget, avoiding the embedding
// call. A line returned by both passes is not deduplicated.
type HybridSearcher struct {
	exact    ExactSearcher
	semantic SemanticSearcher
	budget   int
}

// NewHybridSearcher creates a hybrid searcher with the given result
// budget. budget <= 0 selects DefaultBudget.
func NewHybridSearcher(exact ExactSearcher, semantic SemanticSearcher, budget int) *HybridSearcher {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &HybridSearcher{
		exact:    exact,
		semantic: semantic,
		budget:   budget,
	}
}

// Search runs the fusion policy for one query, optionally scoped to a
// path-hierarchy section. The result is never longer than the budget;
// zero hits from both sources yields an empty list, not an error.
func (h *HybridSearcher) Search(ctx context.Context, query, section string) ([]Hit, error) {
	headingHits, err := h.exact.Search(ctx, query, section, HeadingTags)
	if err != nil {
		return nil, err
	}
	if len(headingHits) >= h.budget {
		return headingHits[:h.budget], nil
	}

	remaining := h.budget - len(headingHits)

	var supplement []Hit
	if utf8.RuneCountInString(query) > shortQueryMax {
		supplement, err = h.semantic.Search(ctx, query, section)
	} else {
		supplement, err = h.exact.Search(ctx, query, section, BodyTags)
	}
	if err != nil {
		return nil, err
	}
	if len(supplement) > remaining {
		supplement = supplement[:remaining]
	}

	return append(headingHits, supplement...), nil
}
