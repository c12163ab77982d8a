package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultUploadBatchSize is the number of points sent per upsert call.
	DefaultUploadBatchSize = 64

	// DefaultUploadParallel is the number of concurrent upsert calls
	// during bulk upload. Batches are independent, so interleaving them
	// is safe.
	DefaultUploadParallel = 2
)

// Store wraps the Qdrant client with connection management, collection
// setup and the typed record operations the indexer and matchers need.
type Store struct {
	client    *qdrant.Client
	host      string
	port      int
	batchSize int
	parallel  int

	mu   sync.Mutex
	dims map[string]int // vector dimension per collection created this process
}

// Option configures a Store.
type Option func(*Store)

// WithUploadBatchSize sets the number of points per upsert call.
func WithUploadBatchSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithUploadParallel sets the number of concurrent upsert calls during
// bulk upload.
func WithUploadParallel(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.parallel = n
		}
	}
}

// NewStore creates a new Qdrant-backed store with health validation.
// It performs a health check with retry on startup and fails fast if
// Qdrant is unreachable.
func NewStore(host string, port int, opts ...Option) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	store := &Store{
		client:    client,
		host:      host,
		port:      port,
		batchSize: DefaultUploadBatchSize,
		parallel:  DefaultUploadParallel,
		dims:      make(map[string]int),
	}
	for _, opt := range opts {
		opt(store)
	}

	ctx := context.Background()
	if err := store.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	return store, nil
}

// healthCheckWithRetry performs a health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *Store) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(exponentialBackoff, ctx))
}

// Health performs a single health check against Qdrant.
func (s *Store) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollection ensures a collection exists with the given vector
// dimension (cosine distance) and payload indexes. Idempotent.
func (s *Store) EnsureCollection(ctx context.Context, name string, dim int) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, existing := range collections {
		if existing == name {
			s.recordDim(name, dim)
			return nil
		}
	}
	return s.createCollection(ctx, name, dim)
}

// RecreateCollection drops the collection if it exists and creates it
// fresh. Used by the offline indexer for full rebuilds.
func (s *Store) RecreateCollection(ctx context.Context, name string, dim int) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, existing := range collections {
		if existing == name {
			if err := s.client.DeleteCollection(ctx, name); err != nil {
				return fmt.Errorf("failed to delete collection %s: %w", name, err)
			}
			break
		}
	}
	return s.createCollection(ctx, name, dim)
}

func (s *Store) createCollection(ctx context.Context, name string, dim int) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	if err := s.createPayloadIndexes(ctx, name); err != nil {
		return fmt.Errorf("failed to create payload indexes: %w", err)
	}
	s.recordDim(name, dim)
	return nil
}

func (s *Store) recordDim(collection string, dim int) {
	s.mu.Lock()
	s.dims[collection] = dim
	s.mu.Unlock()
}

// checkVectors validates vector dimensions against the collection's
// configured size, when this process created or verified the collection.
func (s *Store) checkVectors(collection string, vectors [][]float32) error {
	s.mu.Lock()
	dim, ok := s.dims[collection]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	for _, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: got %d, collection %s expects %d", ErrDimensionMismatch, len(v), collection, dim)
		}
	}
	return nil
}

// createPayloadIndexes creates the indexes the matchers filter on:
// keyword indexes for equality/any-of filters and a prefix-tokenized
// text index on the text field for exact/prefix matching.
// Without these, filtered scans degrade badly on large sites.
func (s *Store) createPayloadIndexes(ctx context.Context, collection string) error {
	for _, field := range []string{"sections", "tag", "section_id"} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}

	for _, field := range []string{"text", "titles"} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeText.Enum(),
			FieldIndexParams: &qdrant.PayloadIndexParams{
				IndexParams: &qdrant.PayloadIndexParams_TextIndexParams{
					TextIndexParams: &qdrant.TextIndexParams{
						Tokenizer:   qdrant.TokenizerType_Prefix,
						MinTokenLen: qdrant.PtrOf(uint64(1)),
						MaxTokenLen: qdrant.PtrOf(uint64(20)),
						Lowercase:   qdrant.PtrOf(true),
					},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to create text index for field %s: %w", field, err)
		}
	}

	return nil
}

// Close closes the Qdrant client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// upsertWithRetry performs one upsert call with exponential backoff.
func (s *Store) upsertWithRetry(ctx context.Context, collection string, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         points,
		})
		return err
	}, backoff.WithContext(exponentialBackoff, ctx))
}

// uploadPoints upserts points in batches, running up to s.parallel
// batches concurrently. Vector/payload pairing is fixed before batching,
// so interleaved batches cannot mismatch records.
func (s *Store) uploadPoints(ctx context.Context, collection string, points []*qdrant.PointStruct) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)

	for start := 0; start < len(points); start += s.batchSize {
		end := min(start+s.batchSize, len(points))
		batch := points[start:end]
		g.Go(func() error {
			if err := s.upsertWithRetry(gctx, collection, batch); err != nil {
				return fmt.Errorf("failed to upsert batch %d-%d: %w", start, end, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// UploadLines stores page line records with their embedding vectors in
// the line collection. vectors[i] must be the embedding of lines[i].
func (s *Store) UploadLines(ctx context.Context, lines []PageLine, vectors [][]float32) error {
	if len(lines) != len(vectors) {
		return fmt.Errorf("%w: %d vectors for %d lines", ErrVectorCountMismatch, len(vectors), len(lines))
	}
	if err := s.checkVectors(LineCollection, vectors); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(lines))
	for i, line := range lines {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.New().String()),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(linePayload(line)),
		}
	}
	return s.uploadPoints(ctx, LineCollection, points)
}

// UploadSections stores section records in the section collection. The
// point ID is the section's own deterministic ID, so re-indexing an
// unchanged page overwrites in place.
func (s *Store) UploadSections(ctx context.Context, sections []Section, vectors [][]float32) error {
	if len(sections) != len(vectors) {
		return fmt.Errorf("%w: %d vectors for %d sections", ErrVectorCountMismatch, len(vectors), len(sections))
	}
	if err := s.checkVectors(SectionCollection, vectors); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(sections))
	for i, section := range sections {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(section.ID),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"url":      section.URL,
				"sections": toAnyList(section.Sections),
				"titles":   toAnyList(section.Titles),
			}),
		}
	}
	return s.uploadPoints(ctx, SectionCollection, points)
}

// UploadSectionLines stores section line records in the section line
// collection, keyed by random UUIDs with a section_id back-reference.
func (s *Store) UploadSectionLines(ctx context.Context, lines []SectionLine, vectors [][]float32) error {
	if len(lines) != len(vectors) {
		return fmt.Errorf("%w: %d vectors for %d section lines", ErrVectorCountMismatch, len(vectors), len(lines))
	}
	if err := s.checkVectors(SectionLineCollection, vectors); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(lines))
	for i, line := range lines {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.New().String()),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"text":       line.Text,
				"section_id": line.SectionID,
				"location":   line.Location,
			}),
		}
	}
	return s.uploadPoints(ctx, SectionLineCollection, points)
}

// SearchText performs a filter-only scan against the collection's text
// and keyword indexes. Results come back in store scan order without
// scores.
func (s *Store) SearchText(ctx context.Context, collection string, filter Filter, limit int) ([]PageLine, error) {
	results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: collection,
		Filter:         compileFilter(filter),
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scroll %s: %w", collection, err)
	}

	lines := make([]PageLine, 0, len(results))
	for _, result := range results {
		lines = append(lines, lineFromPayload(result.Payload))
	}
	return lines, nil
}

// SearchVector performs a k-nearest-neighbor query against the
// collection's vector index, returning payloads with similarity scores
// in descending score order.
func (s *Store) SearchVector(ctx context.Context, collection string, vector []float32, filter Filter, limit int) ([]ScoredLine, error) {
	if err := s.checkVectors(collection, [][]float32{vector}); err != nil {
		return nil, err
	}
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         compileFilter(filter),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}

	hits := make([]ScoredLine, 0, len(results))
	for _, result := range results {
		hits = append(hits, ScoredLine{
			Line:  lineFromPayload(result.Payload),
			Score: result.Score,
		})
	}
	return hits, nil
}

func linePayload(line PageLine) map[string]any {
	return map[string]any{
		"text":     line.Text,
		"url":      line.URL,
		"tag":      line.Tag,
		"location": line.Location,
		"sections": toAnyList(line.Sections),
		"titles":   toAnyList(line.Titles),
	}
}

func lineFromPayload(payload map[string]*qdrant.Value) PageLine {
	return PageLine{
		Text:     payload["text"].GetStringValue(),
		URL:      payload["url"].GetStringValue(),
		Tag:      payload["tag"].GetStringValue(),
		Location: payload["location"].GetStringValue(),
		Sections: fromAnyList(payload["sections"]),
		Titles:   fromAnyList(payload["titles"]),
	}
}

// toAnyList converts a string slice for qdrant.NewValueMap, which
// handles only []interface{} lists.
func toAnyList(values []string) []any {
	list := make([]any, len(values))
	for i, v := range values {
		list[i] = v
	}
	return list
}

func fromAnyList(value *qdrant.Value) []string {
	if value == nil || value.GetListValue() == nil {
		return nil
	}
	values := value.GetListValue().Values
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.GetStringValue())
	}
	return out
}
