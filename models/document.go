package models

import "time"

// Chunk is a bounded span of document text tagged with its source page.
// Page numbers are 1-indexed. Chunks are immutable once created.
type Chunk struct {
	Text       string `bson:"text" json:"text"`
	PageNumber int    `bson:"page_number" json:"page_number"`
}

// StoredChunk is the canonical persisted representation of an embedded chunk.
// One document per chunk in the pdf_chunks collection; Position is the chunk's
// index inside its document's vector index.
type StoredChunk struct {
	DocumentID  string    `bson:"document_id"`
	UserID      string    `bson:"user_id"`
	Position    int       `bson:"position"`
	PageNumber  int       `bson:"page_number"`
	Text        string    `bson:"text,omitempty"`
	Compressed  []byte    `bson:"compressed,omitempty"`
	Compression string    `bson:"compression,omitempty"`
	Vector      []float32 `bson:"vector"`
	CreatedAt   time.Time `bson:"created_at"`
}

// SearchResult is a chunk ranked against a query. Score is 1/(1+L2 distance),
// bounded in (0,1], higher is more similar. Not persisted.
type SearchResult struct {
	Text       string  `json:"text"`
	PageNumber int     `json:"page_number"`
	Score      float64 `json:"score"`
}

// PDFDocument tracks an uploaded PDF through ingestion.
type PDFDocument struct {
	ID           string     `bson:"_id" json:"id"`
	UserID       string     `bson:"user_id" json:"user_id"`
	Filename     string     `bson:"filename" json:"filename"`
	FilePath     string     `bson:"file_path,omitempty" json:"-"`
	Size         int64      `bson:"size" json:"size"`
	Status       string     `bson:"status" json:"status"`
	Progress     int        `bson:"progress" json:"progress"`
	NumPages     int        `bson:"num_pages,omitempty" json:"num_pages,omitempty"`
	NumChunks    int        `bson:"num_chunks,omitempty" json:"num_chunks,omitempty"`
	ErrorMessage string     `bson:"error_message,omitempty" json:"error_message,omitempty"`
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at" json:"updated_at"`
	ProcessedAt  *time.Time `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
}

// Processing status constants for PDFDocument.Status.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// UploadResponse is returned after a successful upload.
type UploadResponse struct {
	ID             string  `json:"id"`
	Filename       string  `json:"filename"`
	Status         string  `json:"status"`
	NumPages       int     `json:"num_pages,omitempty"`
	NumChunks      int     `json:"num_chunks,omitempty"`
	TaskID         string  `json:"task_id,omitempty"`
	ProcessingTime float64 `json:"processing_time,omitempty"`
}

// SearchRequest runs a semantic search over an ingested document.
type SearchRequest struct {
	DocumentID string `json:"document_id" binding:"required"`
	Query      string `json:"query" binding:"required,min=1"`
	TopK       int    `json:"top_k,omitempty"`
}

// AskRequest asks a question about an ingested document.
type AskRequest struct {
	DocumentID string `json:"document_id" binding:"required"`
	Question   string `json:"question" binding:"required,min=1"`
	TopK       int    `json:"top_k,omitempty"`
}

// AnswerResponse carries a generated answer with its source chunks.
type AnswerResponse struct {
	Answer         string         `json:"answer"`
	SourceChunks   []SearchResult `json:"source_chunks"`
	ProcessingTime float64        `json:"processing_time"`
}
