package search

import (
	"context"
	"fmt"

	"github.com/bull/site-search/internal/storage"
)

// MatcherPageSize is the internal page size of each matcher, independent
// of the fusion budget. The fusion layer truncates further.
const MatcherPageSize = 5

// HeadingTags and BodyTags are the tag-class scopes the fusion policy
// uses when supplementing.
var (
	HeadingTags = []string{"h1", "h2", "h3", "h4", "h5", "h6"}
	BodyTags    = []string{"p", "li"}
)

// TextIndex is the store capability the exact matcher needs: a
// filter-only scan over the text/keyword indexes.
type TextIndex interface {
	SearchText(ctx context.Context, collection string, filter storage.Filter, limit int) ([]storage.PageLine, error)
}

// ExactMatcher finds literal/prefix matches against the indexed text,
// optionally scoped by path-hierarchy section and tag class. Results
// come back in store scan order and carry no score.
type ExactMatcher struct {
	index      TextIndex
	collection string
	pageSize   int
}

// NewExactMatcher creates an exact matcher over collection.
func NewExactMatcher(index TextIndex, collection string) *ExactMatcher {
	return &ExactMatcher{
		index:      index,
		collection: collection,
		pageSize:   MatcherPageSize,
	}
}

// Search returns up to the matcher page size of hits whose text contains
// query (prefix semantics via the store's prefix tokenizer), restricted
// to the given section scope and tag classes when non-empty.
func (m *ExactMatcher) Search(ctx context.Context, query, section string, tags []string) ([]Hit, error) {
	filter := storage.And{storage.TextMatch{Field: "text", Value: query}}
	if section != "" {
		filter = append(filter, storage.Equals{Field: "sections", Value: section})
	}
	if len(tags) > 0 {
		filter = append(filter, storage.AnyOf{Field: "tag", Values: tags})
	}

	lines, err := m.index.SearchText(ctx, m.collection, filter, m.pageSize)
	if err != nil {
		return nil, fmt.Errorf("exact search: %w", err)
	}

	hits := make([]Hit, 0, len(lines))
	for _, line := range lines {
		hits = append(hits, Hit{
			Payload:   line,
			Highlight: preview(line.Text, query),
		})
	}
	return hits, nil
}
