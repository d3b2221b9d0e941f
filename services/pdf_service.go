package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pdf-study-platform/internal/logger"
	"pdf-study-platform/models"
)

// PDFService owns document records and drives a document through the
// ingestion pipeline: stored file, extracted pages, embedded chunks,
// searchable index.
type PDFService struct {
	pdfs       *mongo.Collection
	extractor  *PDFExtractor
	retriever  *Retriever
	quizStore  *QuizStore
	storageDir string
}

func NewPDFService(db *mongo.Database, extractor *PDFExtractor, retriever *Retriever, quizStore *QuizStore, storageDir string) *PDFService {
	return &PDFService{
		pdfs:       db.Collection("pdfs"),
		extractor:  extractor,
		retriever:  retriever,
		quizStore:  quizStore,
		storageDir: storageDir,
	}
}

// CreateDocument stores the uploaded file on disk and inserts a pending
// document record. Each upload gets its own server-generated ID, so
// concurrent uploads never collide.
func (s *PDFService) CreateDocument(ctx context.Context, userID, filename string, data []byte) (*models.PDFDocument, error) {
	if err := os.MkdirAll(s.storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	id := uuid.NewString()
	path := filepath.Join(s.storageDir, id+".pdf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to store uploaded file: %w", err)
	}

	now := time.Now()
	doc := &models.PDFDocument{
		ID:        id,
		UserID:    userID,
		Filename:  filename,
		FilePath:  path,
		Size:      int64(len(data)),
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.pdfs.InsertOne(ctx, doc); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to insert document record: %w", err)
	}

	return doc, nil
}

// Process runs extraction and ingestion for a stored document, updating its
// status as it goes. A failure marks the document failed with the error
// message; nothing ingested remains behind.
func (s *PDFService) Process(ctx context.Context, doc *models.PDFDocument) error {
	if err := s.setStatus(ctx, doc.ID, models.StatusProcessing, ""); err != nil {
		return err
	}

	extraction, err := s.extractor.ExtractPages(ctx, doc.FilePath)
	if err != nil {
		s.setStatus(context.Background(), doc.ID, models.StatusFailed, err.Error())
		return err
	}

	s.setProgress(ctx, doc.ID, 50)

	numChunks, err := s.retriever.Ingest(ctx, doc.ID, doc.UserID, extraction.Pages)
	if err != nil {
		s.setStatus(context.Background(), doc.ID, models.StatusFailed, err.Error())
		return err
	}

	now := time.Now()
	_, err = s.pdfs.UpdateOne(ctx,
		bson.M{"_id": doc.ID},
		bson.M{"$set": bson.M{
			"status":       models.StatusCompleted,
			"progress":     100,
			"num_pages":    extraction.NumPages,
			"num_chunks":   numChunks,
			"processed_at": now,
			"updated_at":   now,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark document completed: %w", err)
	}

	logger.Info("Document processed",
		"document_id", doc.ID,
		"pages", extraction.NumPages,
		"chunks", numChunks,
		"words", extraction.WordCount,
	)
	return nil
}

// GetDocument loads a document owned by the given user.
func (s *PDFService) GetDocument(ctx context.Context, documentID, userID string) (*models.PDFDocument, error) {
	var doc models.PDFDocument
	err := s.pdfs.FindOne(ctx, bson.M{"_id": documentID, "user_id": userID}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return &doc, nil
}

// ListDocuments returns one page of a user's documents, most recent first,
// along with the total count.
func (s *PDFService) ListDocuments(ctx context.Context, userID string, page, limit int) ([]models.PDFDocument, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	skip := int64(page-1) * int64(limit)

	cursor, err := s.pdfs.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetSkip(skip).
			SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []models.PDFDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode documents: %w", err)
	}

	total, err := s.pdfs.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return docs, total, nil
}

// DeleteDocument removes the document record, its stored file, its chunks
// and index, and any quizzes built from it.
func (s *PDFService) DeleteDocument(ctx context.Context, documentID, userID string) error {
	doc, err := s.GetDocument(ctx, documentID, userID)
	if err != nil {
		return err
	}

	if err := s.retriever.Delete(ctx, documentID); err != nil {
		return err
	}
	if s.quizStore != nil {
		if err := s.quizStore.DeleteByDocument(ctx, documentID); err != nil {
			return err
		}
	}

	if doc.FilePath != "" {
		if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to remove stored file", "path", doc.FilePath, "error", err)
		}
	}

	if _, err := s.pdfs.DeleteOne(ctx, bson.M{"_id": documentID, "user_id": userID}); err != nil {
		return fmt.Errorf("failed to delete document record: %w", err)
	}

	logger.Info("Document deleted", "document_id", documentID)
	return nil
}

func (s *PDFService) setStatus(ctx context.Context, documentID, status, errorMessage string) error {
	update := bson.M{
		"status":     status,
		"updated_at": time.Now(),
	}
	if errorMessage != "" {
		update["error_message"] = errorMessage
	}

	_, err := s.pdfs.UpdateOne(ctx, bson.M{"_id": documentID}, bson.M{"$set": update})
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	return nil
}

func (s *PDFService) setProgress(ctx context.Context, documentID string, progress int) {
	_, err := s.pdfs.UpdateOne(ctx,
		bson.M{"_id": documentID},
		bson.M{"$set": bson.M{"progress": progress, "updated_at": time.Now()}},
	)
	if err != nil {
		logger.Warn("Failed to update document progress", "document_id", documentID, "error", err)
	}
}
