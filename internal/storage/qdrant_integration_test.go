//go:build integration

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 4

// setupTestStore connects to a local Qdrant instance. Skips if Qdrant is
// not running.
func setupTestStore(t *testing.T) *Store {
	store, err := NewStore("localhost", 6334)
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}
	return store
}

func testVector(v float32) []float32 {
	vec := make([]float32, testDim)
	for i := range vec {
		vec[i] = v
	}
	return vec
}

func TestLineUploadAndTextSearch(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.RecreateCollection(ctx, LineCollection, testDim))

	lines := []PageLine{
		{
			Text:     "Create a collection",
			URL:      "/docs/collections",
			Tag:      "h2",
			Location: "html > body > article > h2",
			Sections: []string{"docs", "docs/collections"},
			Titles:   []string{"Collections", "Create a collection"},
		},
		{
			Text:     "A collection is a named set of points.",
			URL:      "/docs/collections",
			Tag:      "p",
			Location: "html > body > article > p:nth-of-type(1)",
			Sections: []string{"docs", "docs/collections"},
			Titles:   []string{"Collections", "Create a collection"},
		},
	}
	vectors := [][]float32{testVector(0.1), testVector(0.2)}
	require.NoError(t, store.UploadLines(ctx, lines, vectors))

	// Qdrant indexes asynchronously.
	time.Sleep(200 * time.Millisecond)

	// Prefix match restricted to heading tags.
	results, err := store.SearchText(ctx, LineCollection, And{
		TextMatch{Field: "text", Value: "colle"},
		AnyOf{Field: "tag", Values: []string{"h1", "h2", "h3", "h4", "h5", "h6"}},
	}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Create a collection", results[0].Text)
	assert.Equal(t, []string{"docs", "docs/collections"}, results[0].Sections)
	assert.Equal(t, []string{"Collections", "Create a collection"}, results[0].Titles)

	// Section scope filters out other parts of the site.
	results, err = store.SearchText(ctx, LineCollection, And{
		TextMatch{Field: "text", Value: "collection"},
		Equals{Field: "sections", Value: "other/section"},
	}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVectorSearch(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.RecreateCollection(ctx, LineCollection, testDim))

	lines := []PageLine{
		{Text: "near", URL: "/a", Tag: "p", Sections: []string{"a"}},
		{Text: "far", URL: "/b", Tag: "p", Sections: []string{"b"}},
	}
	vectors := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
	}
	require.NoError(t, store.UploadLines(ctx, lines, vectors))
	time.Sleep(200 * time.Millisecond)

	results, err := store.SearchVector(ctx, LineCollection, []float32{1, 0, 0, 0}, nil, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "near", results[0].Line.Text)
	assert.Greater(t, results[0].Score, results[1].Score)

	// Filtered query only sees matching payloads.
	results, err = store.SearchVector(ctx, LineCollection, []float32{1, 0, 0, 0},
		Equals{Field: "sections", Value: "b"}, 2)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "far", results[0].Line.Text)
}

func TestUploadSections_DeterministicIDs(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.RecreateCollection(ctx, SectionCollection, testDim))

	section := Section{
		ID:       "7cb47bbc-d7a3-5b62-9cf2-2a0c33b81c9b",
		URL:      "/docs/collections",
		Sections: []string{"docs", "docs/collections"},
		Titles:   []string{"Collections", "Create a collection"},
	}

	// Uploading the same section twice overwrites in place.
	require.NoError(t, store.UploadSections(ctx, []Section{section}, [][]float32{testVector(0.3)}))
	require.NoError(t, store.UploadSections(ctx, []Section{section}, [][]float32{testVector(0.3)}))
	time.Sleep(200 * time.Millisecond)

	results, err := store.SearchVector(ctx, SectionCollection, testVector(0.3), nil, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestUploadLines_VectorCountMismatch(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	err := store.UploadLines(context.Background(),
		[]PageLine{{Text: "a"}, {Text: "b"}},
		[][]float32{testVector(0.1)})
	assert.ErrorIs(t, err, ErrVectorCountMismatch)
}

func TestUploadLines_DimensionMismatch(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.RecreateCollection(ctx, LineCollection, testDim))

	err := store.UploadLines(ctx,
		[]PageLine{{Text: "a"}},
		[][]float32{make([]float32, testDim+1)})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = store.SearchVector(ctx, LineCollection, make([]float32, testDim+1), nil, 5)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestEnsureCollection_Idempotent(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.RecreateCollection(ctx, LineCollection, testDim))
	require.NoError(t, store.EnsureCollection(ctx, LineCollection, testDim))
	require.NoError(t, store.EnsureCollection(ctx, LineCollection, testDim))
}
