package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"pdf-study-platform/models"
)

// fakeEmbedder returns canned vectors keyed by exact text.
type fakeEmbedder struct {
	vectors map[string][]float32
	fail    bool
	calls   int
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("embedding backend down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := f.vectors[t]
		if !ok {
			v = []float32{0, 0}
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

// memoryChunkStore is an in-memory ChunkStorer.
type memoryChunkStore struct {
	docs map[string][]models.StoredChunk
}

func newMemoryChunkStore() *memoryChunkStore {
	return &memoryChunkStore{docs: make(map[string][]models.StoredChunk)}
}

func (m *memoryChunkStore) SaveChunks(ctx context.Context, documentID, userID string, chunks []models.Chunk, vectors [][]float32) error {
	stored := make([]models.StoredChunk, len(chunks))
	for i, c := range chunks {
		stored[i] = models.StoredChunk{
			DocumentID: documentID,
			UserID:     userID,
			Position:   i,
			PageNumber: c.PageNumber,
			Text:       c.Text,
			Vector:     vectors[i],
		}
	}
	m.docs[documentID] = stored
	return nil
}

func (m *memoryChunkStore) LoadChunks(ctx context.Context, documentID string) ([]models.StoredChunk, error) {
	return m.docs[documentID], nil
}

func (m *memoryChunkStore) DeleteChunks(ctx context.Context, documentID string) (int64, error) {
	n := int64(len(m.docs[documentID]))
	delete(m.docs, documentID)
	return n, nil
}

func testEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vectors: map[string][]float32{
		"alpha": {0, 0},
		"beta":  {1, 0},
		"gamma": {5, 0},
		"query": {0.9, 0},
	}}
}

func newTestRetriever(embedder Embedder, store ChunkStorer, cacheSize int) *Retriever {
	return NewRetriever(NewSegmenter(1000, 200), embedder, store, cacheSize, nil)
}

func TestIngestRejectsBlankDocument(t *testing.T) {
	store := newMemoryChunkStore()
	r := newTestRetriever(testEmbedder(), store, 8)

	_, err := r.Ingest(context.Background(), "doc1", "user1", []string{"", "   "})
	if !errors.Is(err, ErrNoExtractableText) {
		t.Fatalf("expected ErrNoExtractableText, got %v", err)
	}
	if len(store.docs) != 0 {
		t.Errorf("expected nothing persisted after failed ingest")
	}
}

func TestIngestAbortsOnEmbeddingFailure(t *testing.T) {
	store := newMemoryChunkStore()
	embedder := testEmbedder()
	embedder.fail = true
	r := newTestRetriever(embedder, store, 8)

	_, err := r.Ingest(context.Background(), "doc1", "user1", []string{"alpha"})
	if err == nil {
		t.Fatalf("expected error when embedding fails")
	}
	if len(store.docs) != 0 {
		t.Errorf("expected nothing persisted after failed ingest")
	}
}

func TestIngestAndSearchRanksByDistance(t *testing.T) {
	store := newMemoryChunkStore()
	r := newTestRetriever(testEmbedder(), store, 8)

	n, err := r.Ingest(context.Background(), "doc1", "user1", []string{"alpha", "beta", "gamma"})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 chunks, got %d", n)
	}

	results, err := r.Search(context.Background(), "doc1", "query", 3)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	// Query vector sits closest to beta, then alpha, then gamma.
	if results[0].Text != "beta" || results[1].Text != "alpha" || results[2].Text != "gamma" {
		t.Errorf("unexpected ranking: %q, %q, %q", results[0].Text, results[1].Text, results[2].Text)
	}
	if results[0].PageNumber != 2 {
		t.Errorf("expected best match from page 2, got %d", results[0].PageNumber)
	}
	for i, res := range results {
		if res.Score <= 0 || res.Score > 1 {
			t.Errorf("result %d: score %f out of (0,1]", i, res.Score)
		}
		if i > 0 && res.Score > results[i-1].Score {
			t.Errorf("result %d: scores not descending", i)
		}
	}
}

func TestSearchUnknownDocument(t *testing.T) {
	r := newTestRetriever(testEmbedder(), newMemoryChunkStore(), 8)

	_, err := r.Search(context.Background(), "missing", "query", 5)
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestSearchRebuildsIndexFromStorage(t *testing.T) {
	store := newMemoryChunkStore()
	r1 := newTestRetriever(testEmbedder(), store, 8)

	if _, err := r1.Ingest(context.Background(), "doc1", "user1", []string{"alpha", "beta"}); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	// A fresh retriever has an empty cache but shares the store.
	r2 := newTestRetriever(testEmbedder(), store, 8)
	results, err := r2.Search(context.Background(), "doc1", "query", 2)
	if err != nil {
		t.Fatalf("search after rebuild failed: %v", err)
	}
	if len(results) != 2 || results[0].Text != "beta" {
		t.Errorf("expected rebuilt index to serve identical ranking")
	}
}

func TestSearchAfterLRUEviction(t *testing.T) {
	store := newMemoryChunkStore()
	r := newTestRetriever(testEmbedder(), store, 1)

	if _, err := r.Ingest(context.Background(), "doc1", "user1", []string{"alpha"}); err != nil {
		t.Fatalf("ingest doc1 failed: %v", err)
	}
	if _, err := r.Ingest(context.Background(), "doc2", "user1", []string{"beta"}); err != nil {
		t.Fatalf("ingest doc2 failed: %v", err)
	}

	// doc1 was evicted by the 1-entry cache; search reloads it.
	results, err := r.Search(context.Background(), "doc1", "query", 1)
	if err != nil {
		t.Fatalf("search evicted document failed: %v", err)
	}
	if len(results) != 1 || results[0].Text != "alpha" {
		t.Errorf("expected doc1 served after eviction, got %v", results)
	}
}

func TestEvictIdleDropsStaleEntries(t *testing.T) {
	store := newMemoryChunkStore()
	r := newTestRetriever(testEmbedder(), store, 8)

	if _, err := r.Ingest(context.Background(), "doc1", "user1", []string{"alpha"}); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	if n := r.EvictIdle(time.Hour); n != 0 {
		t.Errorf("expected no evictions for fresh entry, got %d", n)
	}
	if n := r.EvictIdle(0); n != 1 {
		t.Errorf("expected 1 eviction with zero idle allowance, got %d", n)
	}

	// Still searchable via reload.
	if _, err := r.Search(context.Background(), "doc1", "query", 1); err != nil {
		t.Errorf("search after idle eviction failed: %v", err)
	}
}

func TestDeleteRemovesDocument(t *testing.T) {
	store := newMemoryChunkStore()
	r := newTestRetriever(testEmbedder(), store, 8)

	if _, err := r.Ingest(context.Background(), "doc1", "user1", []string{"alpha"}); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if err := r.Delete(context.Background(), "doc1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := r.Search(context.Background(), "doc1", "query", 1); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound after delete, got %v", err)
	}
}
