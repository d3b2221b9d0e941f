package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"pdf-study-platform/internal/ai"
	"pdf-study-platform/models"
	"pdf-study-platform/services"
)

type fakeDocumentGetter struct {
	docs map[string]*models.PDFDocument
}

func (f *fakeDocumentGetter) GetDocument(ctx context.Context, documentID, userID string) (*models.PDFDocument, error) {
	doc, ok := f.docs[documentID]
	if !ok || doc.UserID != userID {
		return nil, services.ErrDocumentNotFound
	}
	return doc, nil
}

type fakeChunkSearcher struct {
	results []models.SearchResult
	err     error
}

func (f *fakeChunkSearcher) Search(ctx context.Context, documentID, query string, topK int) ([]models.SearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func newSearchRouter(docs documentGetter, searcher chunkSearcher, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/documents/search", func(c *gin.Context) {
		c.Set("user_id", userID)
	}, handleSearch(docs, searcher))
	return router
}

func postSearch(t *testing.T, router *gin.Engine, req models.SearchRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/documents/search", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, r)
	return w
}

func TestSearchReturnsRankedResults(t *testing.T) {
	docs := &fakeDocumentGetter{docs: map[string]*models.PDFDocument{
		"doc-1": {ID: "doc-1", UserID: "alice", Status: models.StatusCompleted},
	}}
	searcher := &fakeChunkSearcher{results: []models.SearchResult{
		{Text: "The mitochondria produces ATP.", PageNumber: 2, Score: 0.9},
		{Text: "Cells divide by mitosis.", PageNumber: 5, Score: 0.4},
	}}

	router := newSearchRouter(docs, searcher, "alice")
	w := postSearch(t, router, models.SearchRequest{DocumentID: "doc-1", Query: "what produces ATP"})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Results []models.SearchResult `json:"results"`
		Total   int                   `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 2 || len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got total=%d len=%d", resp.Total, len(resp.Results))
	}
	if resp.Results[0].PageNumber != 2 || resp.Results[0].Score <= resp.Results[1].Score {
		t.Errorf("expected best match first, got %+v", resp.Results)
	}
}

func TestSearchForeignDocumentNotFound(t *testing.T) {
	docs := &fakeDocumentGetter{docs: map[string]*models.PDFDocument{
		"doc-1": {ID: "doc-1", UserID: "alice", Status: models.StatusCompleted},
	}}
	searcher := &fakeChunkSearcher{}

	router := newSearchRouter(docs, searcher, "mallory")
	w := postSearch(t, router, models.SearchRequest{DocumentID: "doc-1", Query: "anything"})

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another user's document, got %d", w.Code)
	}
}

func TestSearchUnprocessedDocumentConflict(t *testing.T) {
	docs := &fakeDocumentGetter{docs: map[string]*models.PDFDocument{
		"doc-1": {ID: "doc-1", UserID: "alice", Status: models.StatusProcessing},
	}}
	searcher := &fakeChunkSearcher{}

	router := newSearchRouter(docs, searcher, "alice")
	w := postSearch(t, router, models.SearchRequest{DocumentID: "doc-1", Query: "anything"})

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a still-processing document, got %d", w.Code)
	}
}

func TestSearchBackendUnavailable(t *testing.T) {
	docs := &fakeDocumentGetter{docs: map[string]*models.PDFDocument{
		"doc-1": {ID: "doc-1", UserID: "alice", Status: models.StatusCompleted},
	}}
	searcher := &fakeChunkSearcher{err: fmt.Errorf("query embedding failed: %w", ai.ErrUnavailable)}

	router := newSearchRouter(docs, searcher, "alice")
	w := postSearch(t, router, models.SearchRequest{DocumentID: "doc-1", Query: "anything"})

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when the embedding backend is down, got %d", w.Code)
	}
}
