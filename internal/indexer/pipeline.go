// Package indexer uploads crawled record files into the vector store:
// it embeds record texts in order-preserving batches and pairs vector i
// with payload i through upload.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bull/site-search/internal/crawl"
	"github.com/bull/site-search/internal/storage"
)

// Record file names produced by the crawl stage and consumed here.
const (
	LinesFile        = "lines.jsonl"
	SectionsFile     = "sections.jsonl"
	SectionLinesFile = "section_lines.jsonl"
)

// chunkSize bounds how many records are embedded and uploaded per pass,
// keeping memory flat on large sites.
const chunkSize = 256

// Embedder is the encoder collaborator: order-preserving batch
// embedding with a fixed vector dimension.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Store is the subset of storage the pipeline drives.
type Store interface {
	RecreateCollection(ctx context.Context, name string, dim int) error
	UploadLines(ctx context.Context, lines []storage.PageLine, vectors [][]float32) error
	UploadSections(ctx context.Context, sections []storage.Section, vectors [][]float32) error
	UploadSectionLines(ctx context.Context, lines []storage.SectionLine, vectors [][]float32) error
}

// Result contains statistics about an indexing run.
type Result struct {
	Lines        int
	Sections     int
	SectionLines int
	Duration     time.Duration
}

// Pipeline rebuilds the search collections from crawled JSONL files.
type Pipeline struct {
	embedder Embedder
	store    Store
	logger   *slog.Logger
}

// NewPipeline creates an indexing pipeline.
func NewPipeline(embedder Embedder, store Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// IndexAll rebuilds all three collections from the record files in
// dataDir. Collections are dropped and recreated: indexing is a full
// replacement, not an incremental merge.
func (p *Pipeline) IndexAll(ctx context.Context, dataDir string) (*Result, error) {
	start := time.Now()
	result := &Result{}

	lines, err := readRecords[storage.PageLine](filepath.Join(dataDir, LinesFile))
	if err != nil {
		return nil, err
	}
	if err := p.indexLines(ctx, lines); err != nil {
		return nil, err
	}
	result.Lines = len(lines)

	sections, err := readRecords[storage.Section](filepath.Join(dataDir, SectionsFile))
	if err != nil {
		return nil, err
	}
	if err := p.indexSections(ctx, sections); err != nil {
		return nil, err
	}
	result.Sections = len(sections)

	sectionLines, err := readRecords[storage.SectionLine](filepath.Join(dataDir, SectionLinesFile))
	if err != nil {
		return nil, err
	}
	if err := p.indexSectionLines(ctx, sectionLines); err != nil {
		return nil, err
	}
	result.SectionLines = len(sectionLines)

	result.Duration = time.Since(start)
	p.logger.Info("indexing complete",
		"lines", result.Lines,
		"sections", result.Sections,
		"section_lines", result.SectionLines,
		"duration", result.Duration,
	)
	return result, nil
}

// indexLines embeds page line texts and uploads them to the line
// collection, chunk by chunk.
func (p *Pipeline) indexLines(ctx context.Context, lines []storage.PageLine) error {
	if err := p.store.RecreateCollection(ctx, storage.LineCollection, p.embedder.Dimension()); err != nil {
		return fmt.Errorf("recreate %s: %w", storage.LineCollection, err)
	}

	for start := 0; start < len(lines); start += chunkSize {
		end := min(start+chunkSize, len(lines))
		chunk := lines[start:end]

		texts := make([]string, len(chunk))
		for i, line := range chunk {
			texts[i] = line.Text
		}
		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed lines %d-%d: %w", start, end, err)
		}
		if err := p.store.UploadLines(ctx, chunk, vectors); err != nil {
			return fmt.Errorf("upload lines %d-%d: %w", start, end, err)
		}
		p.logger.Debug("uploaded lines", "from", start, "to", end)
	}
	return nil
}

// indexSections embeds the joined title breadcrumb of each section. The
// section's own deterministic ID keys the point, so re-runs over
// unchanged pages overwrite in place.
func (p *Pipeline) indexSections(ctx context.Context, sections []storage.Section) error {
	if err := p.store.RecreateCollection(ctx, storage.SectionCollection, p.embedder.Dimension()); err != nil {
		return fmt.Errorf("recreate %s: %w", storage.SectionCollection, err)
	}

	for start := 0; start < len(sections); start += chunkSize {
		end := min(start+chunkSize, len(sections))
		chunk := sections[start:end]

		texts := make([]string, len(chunk))
		for i, section := range chunk {
			texts[i] = strings.Join(section.Titles, " ")
		}
		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed sections %d-%d: %w", start, end, err)
		}
		if err := p.store.UploadSections(ctx, chunk, vectors); err != nil {
			return fmt.Errorf("upload sections %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func (p *Pipeline) indexSectionLines(ctx context.Context, lines []storage.SectionLine) error {
	if err := p.store.RecreateCollection(ctx, storage.SectionLineCollection, p.embedder.Dimension()); err != nil {
		return fmt.Errorf("recreate %s: %w", storage.SectionLineCollection, err)
	}

	for start := 0; start < len(lines); start += chunkSize {
		end := min(start+chunkSize, len(lines))
		chunk := lines[start:end]

		texts := make([]string, len(chunk))
		for i, line := range chunk {
			texts[i] = line.Text
		}
		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed section lines %d-%d: %w", start, end, err)
		}
		if err := p.store.UploadSectionLines(ctx, chunk, vectors); err != nil {
			return fmt.Errorf("upload section lines %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func readRecords[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open records: %w", err)
	}
	defer f.Close()

	records, err := crawl.ReadJSONL[T](f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return records, nil
}
