package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/site-search/internal/storage"
)

type fakeTextIndex struct {
	gotCollection string
	gotFilter     storage.Filter
	gotLimit      int
	lines         []storage.PageLine
	err           error
}

func (f *fakeTextIndex) SearchText(ctx context.Context, collection string, filter storage.Filter, limit int) ([]storage.PageLine, error) {
	f.gotCollection = collection
	f.gotFilter = filter
	f.gotLimit = limit
	return f.lines, f.err
}

func TestExactMatcher_FilterConstruction(t *testing.T) {
	index := &fakeTextIndex{}
	matcher := NewExactMatcher(index, storage.LineCollection)

	_, err := matcher.Search(context.Background(), "collections", "qdrant/concepts", HeadingTags)
	require.NoError(t, err)

	assert.Equal(t, storage.LineCollection, index.gotCollection)
	assert.Equal(t, MatcherPageSize, index.gotLimit)

	filter, ok := index.gotFilter.(storage.And)
	require.True(t, ok, "expected a conjunction filter")
	require.Len(t, filter, 3)
	assert.Equal(t, storage.TextMatch{Field: "text", Value: "collections"}, filter[0])
	assert.Equal(t, storage.Equals{Field: "sections", Value: "qdrant/concepts"}, filter[1])
	assert.Equal(t, storage.AnyOf{Field: "tag", Values: HeadingTags}, filter[2])
}

func TestExactMatcher_NoScopes(t *testing.T) {
	index := &fakeTextIndex{}
	matcher := NewExactMatcher(index, storage.LineCollection)

	_, err := matcher.Search(context.Background(), "points", "", nil)
	require.NoError(t, err)

	filter, ok := index.gotFilter.(storage.And)
	require.True(t, ok)
	require.Len(t, filter, 1)
	assert.Equal(t, storage.TextMatch{Field: "text", Value: "points"}, filter[0])
}

func TestExactMatcher_HitsHaveNoScore(t *testing.T) {
	index := &fakeTextIndex{lines: []storage.PageLine{
		{Text: "Create a collection", Tag: "h2", URL: "/docs/collections"},
	}}
	matcher := NewExactMatcher(index, storage.LineCollection)

	hits, err := matcher.Search(context.Background(), "collection", "", HeadingTags)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Nil(t, hits[0].Score)
	assert.Equal(t, "Create a <b>collection</b>", hits[0].Highlight)
}

func TestExactMatcher_PropagatesError(t *testing.T) {
	index := &fakeTextIndex{err: errors.New("scroll failed")}
	matcher := NewExactMatcher(index, storage.LineCollection)

	_, err := matcher.Search(context.Background(), "points", "", nil)
	assert.ErrorContains(t, err, "scroll failed")
}

type fakeVectorIndex struct {
	gotCollection string
	gotVector     []float32
	gotFilter     storage.Filter
	gotLimit      int
	scored        []storage.ScoredLine
	err           error
}

func (f *fakeVectorIndex) SearchVector(ctx context.Context, collection string, vector []float32, filter storage.Filter, limit int) ([]storage.ScoredLine, error) {
	f.gotCollection = collection
	f.gotVector = vector
	f.gotFilter = filter
	f.gotLimit = limit
	return f.scored, f.err
}

type fakeEncoder struct {
	vector []float32
	err    error
}

func (f *fakeEncoder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vector, f.err
}

func TestSemanticMatcher_Search(t *testing.T) {
	index := &fakeVectorIndex{scored: []storage.ScoredLine{
		{Line: storage.PageLine{Text: "The authentication flow uses API keys", Tag: "p"}, Score: 0.91},
		{Line: storage.PageLine{Text: "Sign requests with a token", Tag: "p"}, Score: 0.85},
	}}
	encoder := &fakeEncoder{vector: []float32{0.1, 0.2, 0.3}}
	matcher := NewSemanticMatcher(index, encoder, storage.LineCollection)

	hits, err := matcher.Search(context.Background(), "authentication flow", "qdrant")
	require.NoError(t, err)

	assert.Equal(t, storage.LineCollection, index.gotCollection)
	assert.Equal(t, encoder.vector, index.gotVector)
	assert.Equal(t, MatcherPageSize, index.gotLimit)
	assert.Equal(t, storage.Equals{Field: "sections", Value: "qdrant"}, index.gotFilter)

	require.Len(t, hits, 2)
	require.NotNil(t, hits[0].Score)
	assert.InDelta(t, 0.91, float64(*hits[0].Score), 1e-6)
	assert.Equal(t, "The <b>authentication flow</b> uses API keys", hits[0].Highlight)
	// Paraphrase match: the query text does not occur, so no markers.
	assert.Equal(t, "Sign requests with a token", hits[1].Highlight)
}

func TestSemanticMatcher_NoSectionFilter(t *testing.T) {
	index := &fakeVectorIndex{}
	matcher := NewSemanticMatcher(index, &fakeEncoder{vector: []float32{1}}, storage.LineCollection)

	_, err := matcher.Search(context.Background(), "error handling", "")
	require.NoError(t, err)
	assert.Nil(t, index.gotFilter)
}

func TestSemanticMatcher_EmbedError(t *testing.T) {
	index := &fakeVectorIndex{}
	matcher := NewSemanticMatcher(index, &fakeEncoder{err: errors.New("rate limited")}, storage.LineCollection)

	_, err := matcher.Search(context.Background(), "error handling", "")
	assert.ErrorContains(t, err, "rate limited")
}
