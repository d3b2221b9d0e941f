package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pdf-study-platform/internal/index"
	"pdf-study-platform/internal/logger"
	"pdf-study-platform/internal/telemetry"
	"pdf-study-platform/models"
)

// Embedder is the embedding backend surface the retriever needs.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// ChunkStorer is the persistence surface the retriever needs.
type ChunkStorer interface {
	SaveChunks(ctx context.Context, documentID, userID string, chunks []models.Chunk, vectors [][]float32) error
	LoadChunks(ctx context.Context, documentID string) ([]models.StoredChunk, error)
	DeleteChunks(ctx context.Context, documentID string) (int64, error)
}

// cachedIndex pairs a built vector index with the chunk metadata its
// positions refer to.
type cachedIndex struct {
	flat     *index.Flat
	chunks   []models.Chunk
	lastUsed time.Time
}

// Retriever runs the ingestion pipeline (segment, embed, index, persist) and
// serves semantic search. Built indices are held in a bounded LRU cache and
// rebuilt from stored vectors on a miss; stored embeddings are cheap to
// reload but expensive to recompute.
type Retriever struct {
	segmenter *Segmenter
	embedder  Embedder
	store     ChunkStorer
	metrics   *telemetry.Metrics

	mu        sync.Mutex
	cache     map[string]*cachedIndex
	cacheSize int
}

func NewRetriever(segmenter *Segmenter, embedder Embedder, store ChunkStorer, cacheSize int, metrics *telemetry.Metrics) *Retriever {
	if cacheSize <= 0 {
		cacheSize = 64
	}
	return &Retriever{
		segmenter: segmenter,
		embedder:  embedder,
		store:     store,
		metrics:   metrics,
		cache:     make(map[string]*cachedIndex),
		cacheSize: cacheSize,
	}
}

// Ingest runs the full pipeline for one document and persists the result.
// All-or-nothing: a zero-chunk document or a failed embedding batch aborts
// with nothing persisted. Returns the number of chunks indexed.
func (r *Retriever) Ingest(ctx context.Context, documentID, userID string, pages []string) (int, error) {
	start := time.Now()

	chunks := r.segmenter.ChunkPages(pages)
	if len(chunks) == 0 {
		return 0, ErrNoExtractableText
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding failed for document %s: %w", documentID, err)
	}

	flat, err := index.NewFlat(vectors)
	if err != nil {
		return 0, fmt.Errorf("index build failed for document %s: %w", documentID, err)
	}

	if err := r.store.SaveChunks(ctx, documentID, userID, chunks, vectors); err != nil {
		return 0, err
	}

	r.cachePut(documentID, &cachedIndex{flat: flat, chunks: chunks, lastUsed: time.Now()})

	if r.metrics != nil {
		r.metrics.RecordIngest(time.Since(start).Seconds(), int64(len(chunks)), "completed")
	}
	logger.Info("Document ingested", "document_id", documentID, "chunks", len(chunks), "duration_ms", time.Since(start).Milliseconds())

	return len(chunks), nil
}

// Search embeds the query and returns up to topK chunks ranked by score,
// best first. Identical query and index state always produce identical
// output. Unknown documents fail with ErrDocumentNotFound.
func (r *Retriever) Search(ctx context.Context, documentID, query string, topK int) ([]models.SearchResult, error) {
	start := time.Now()

	if topK <= 0 {
		topK = 5
	}

	entry, err := r.indexFor(ctx, documentID)
	if err != nil {
		return nil, err
	}

	queryVec, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}

	neighbors, err := entry.flat.Search(queryVec, topK)
	if err != nil {
		return nil, fmt.Errorf("index search failed: %w", err)
	}

	results := make([]models.SearchResult, 0, len(neighbors))
	for _, n := range neighbors {
		chunk := entry.chunks[n.Position]
		results = append(results, models.SearchResult{
			Text:       chunk.Text,
			PageNumber: chunk.PageNumber,
			Score:      index.Score(n.Distance),
		})
	}

	if r.metrics != nil {
		r.metrics.RecordSearch(time.Since(start).Seconds(), len(results))
	}

	return results, nil
}

// Chunks returns the document's chunks in position order, for callers that
// need raw context rather than ranked results.
func (r *Retriever) Chunks(ctx context.Context, documentID string) ([]models.Chunk, error) {
	entry, err := r.indexFor(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return entry.chunks, nil
}

// Delete removes the document's chunks from storage and drops its cached
// index.
func (r *Retriever) Delete(ctx context.Context, documentID string) error {
	r.mu.Lock()
	delete(r.cache, documentID)
	r.mu.Unlock()

	deleted, err := r.store.DeleteChunks(ctx, documentID)
	if err != nil {
		return err
	}
	logger.Info("Document chunks deleted", "document_id", documentID, "count", deleted)
	return nil
}

// EvictIdle drops cached indices unused for longer than maxIdle. Returns the
// number evicted. Evicted documents are rebuilt from storage on next search.
func (r *Retriever) EvictIdle(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	evicted := 0
	for id, entry := range r.cache {
		if entry.lastUsed.Before(cutoff) {
			delete(r.cache, id)
			evicted++
		}
	}
	return evicted
}

// indexFor returns the cached index for a document, rebuilding it from the
// chunk store on a miss.
func (r *Retriever) indexFor(ctx context.Context, documentID string) (*cachedIndex, error) {
	r.mu.Lock()
	if entry, ok := r.cache[documentID]; ok {
		entry.lastUsed = time.Now()
		r.mu.Unlock()
		return entry, nil
	}
	r.mu.Unlock()

	stored, err := r.store.LoadChunks(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, ErrDocumentNotFound
	}

	chunks := make([]models.Chunk, len(stored))
	vectors := make([][]float32, len(stored))
	for i, sc := range stored {
		chunks[i] = models.Chunk{Text: sc.Text, PageNumber: sc.PageNumber}
		vectors[i] = sc.Vector
	}

	flat, err := index.NewFlat(vectors)
	if err != nil {
		return nil, fmt.Errorf("index rebuild failed for document %s: %w", documentID, err)
	}

	entry := &cachedIndex{flat: flat, chunks: chunks, lastUsed: time.Now()}
	r.cachePut(documentID, entry)
	logger.Debug("Index rebuilt from storage", "document_id", documentID, "chunks", len(chunks))

	return entry, nil
}

// cachePut inserts an entry, evicting the least recently used entry when the
// cache is full.
func (r *Retriever) cachePut(documentID string, entry *cachedIndex) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.cache[documentID]; !exists && len(r.cache) >= r.cacheSize {
		oldestID := ""
		var oldest time.Time
		for id, e := range r.cache {
			if oldestID == "" || e.lastUsed.Before(oldest) {
				oldestID = id
				oldest = e.lastUsed
			}
		}
		if oldestID != "" {
			delete(r.cache, oldestID)
		}
	}

	r.cache[documentID] = entry
}
