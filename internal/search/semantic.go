package search

import (
	"context"
	"fmt"

	"github.com/bull/site-search/internal/storage"
)

// VectorIndex is the store capability the semantic matcher needs: a
// k-nearest-neighbor query with payload filtering.
type VectorIndex interface {
	SearchVector(ctx context.Context, collection string, vector []float32, filter storage.Filter, limit int) ([]storage.ScoredLine, error)
}

// Encoder embeds query text into the collection's vector space.
type Encoder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SemanticMatcher finds nearest neighbors of the embedded query,
// optionally scoped by path-hierarchy section. Score ties are returned
// in store-defined order.
type SemanticMatcher struct {
	index      VectorIndex
	encoder    Encoder
	collection string
	pageSize   int
}

// NewSemanticMatcher creates a semantic matcher over collection.
func NewSemanticMatcher(index VectorIndex, encoder Encoder, collection string) *SemanticMatcher {
	return &SemanticMatcher{
		index:      index,
		encoder:    encoder,
		collection: collection,
		pageSize:   MatcherPageSize,
	}
}

// Search embeds query and returns up to the matcher page size of nearest
// neighbors with similarity scores. The highlight still marks the
// verbatim query text: the embedding may match a paraphrase, in which
// case the preview is returned unmarked.
func (m *SemanticMatcher) Search(ctx context.Context, query, section string) ([]Hit, error) {
	vector, err := m.encoder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var filter storage.Filter
	if section != "" {
		filter = storage.Equals{Field: "sections", Value: section}
	}

	scored, err := m.index.SearchVector(ctx, m.collection, vector, filter, m.pageSize)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}

	hits := make([]Hit, 0, len(scored))
	for _, s := range scored {
		score := s.Score
		hits = append(hits, Hit{
			Payload:   s.Line,
			Score:     &score,
			Highlight: preview(s.Line.Text, query),
		})
	}
	return hits, nil
}
