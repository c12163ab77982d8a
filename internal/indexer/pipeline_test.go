package indexer

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/site-search/internal/storage"
)

// stubEmbedder returns one vector per text whose single component is the
// text length, making vector/payload pairing checkable.
type stubEmbedder struct {
	batches int
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	s.batches++
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text))}
	}
	return vectors, nil
}

func (s *stubEmbedder) Dimension() int { return 1 }

type recordingStore struct {
	recreated    []string
	dims         []int
	lines        []storage.PageLine
	lineVectors  [][]float32
	sections     []storage.Section
	sectionVecs  [][]float32
	sectionLines []storage.SectionLine
}

func (s *recordingStore) RecreateCollection(ctx context.Context, name string, dim int) error {
	s.recreated = append(s.recreated, name)
	s.dims = append(s.dims, dim)
	return nil
}

func (s *recordingStore) UploadLines(ctx context.Context, lines []storage.PageLine, vectors [][]float32) error {
	s.lines = append(s.lines, lines...)
	s.lineVectors = append(s.lineVectors, vectors...)
	return nil
}

func (s *recordingStore) UploadSections(ctx context.Context, sections []storage.Section, vectors [][]float32) error {
	s.sections = append(s.sections, sections...)
	s.sectionVecs = append(s.sectionVecs, vectors...)
	return nil
}

func (s *recordingStore) UploadSectionLines(ctx context.Context, lines []storage.SectionLine, vectors [][]float32) error {
	s.sectionLines = append(s.sectionLines, lines...)
	return nil
}

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestIndexAll(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, LinesFile,
		`{"text":"Collections","url":"/docs","tag":"h1","location":"html > body > article > h1","sections":["docs"],"titles":["Collections"]}
{"text":"A collection is a named set of points.","url":"/docs","tag":"p","location":"html > body > article > p","sections":["docs"],"titles":["Collections","Collections"]}
`)
	writeFixture(t, dir, SectionsFile,
		`{"id":"7cb47bbc-d7a3-5b62-9cf2-2a0c33b81c9b","url":"/docs","sections":["docs"],"titles":["Collections","Collections"]}
`)
	writeFixture(t, dir, SectionLinesFile,
		`{"text":"A collection is a named set of points.","section_id":"7cb47bbc-d7a3-5b62-9cf2-2a0c33b81c9b","location":"html > body > article > p"}
`)

	embedder := &stubEmbedder{}
	store := &recordingStore{}
	pipeline := NewPipeline(embedder, store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	result, err := pipeline.IndexAll(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Lines)
	assert.Equal(t, 1, result.Sections)
	assert.Equal(t, 1, result.SectionLines)

	assert.Equal(t, []string{
		storage.LineCollection,
		storage.SectionCollection,
		storage.SectionLineCollection,
	}, store.recreated)
	assert.Equal(t, []int{1, 1, 1}, store.dims)

	// Vector i pairs with payload i.
	require.Len(t, store.lineVectors, 2)
	assert.Equal(t, float32(len(store.lines[0].Text)), store.lineVectors[0][0])
	assert.Equal(t, float32(len(store.lines[1].Text)), store.lineVectors[1][0])

	// Sections embed their joined title breadcrumb, not raw text.
	require.Len(t, store.sectionVecs, 1)
	assert.Equal(t, float32(len("Collections Collections")), store.sectionVecs[0][0])

	assert.Equal(t, 3, embedder.batches)
}

func TestIndexAll_MissingFile(t *testing.T) {
	pipeline := NewPipeline(&stubEmbedder{}, &recordingStore{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := pipeline.IndexAll(context.Background(), t.TempDir())
	assert.ErrorContains(t, err, "open records")
}
