package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"pdf-study-platform/internal/logger"
	"pdf-study-platform/services"
)

const TaskIngestPDF = "pdf:ingest"

type PDFIngestPayload struct {
	DocumentID string `json:"document_id"`
	UserID     string `json:"user_id"`
}

// NewPDFIngestTask enqueues ingestion of an uploaded document.
func NewPDFIngestTask(documentID, userID string) (*asynq.Task, error) {
	payload, err := json.Marshal(PDFIngestPayload{
		DocumentID: documentID,
		UserID:     userID,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestPDF,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("critical"),
	), nil
}

// TaskProcessor handles background ingestion tasks.
type TaskProcessor struct {
	pdfService *services.PDFService
}

func NewTaskProcessor(pdfService *services.PDFService) *TaskProcessor {
	return &TaskProcessor{pdfService: pdfService}
}

func (p *TaskProcessor) IngestPDF(ctx context.Context, t *asynq.Task) error {
	var payload PDFIngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("Ingesting document", "document_id", payload.DocumentID, "user_id", payload.UserID)

	doc, err := p.pdfService.GetDocument(ctx, payload.DocumentID, payload.UserID)
	if err != nil {
		// A deleted document cannot be ingested later either.
		return fmt.Errorf("document lookup failed: %v: %w", err, asynq.SkipRetry)
	}

	if err := p.pdfService.Process(ctx, doc); err != nil {
		logger.Error("Document ingestion failed", "document_id", payload.DocumentID, "error", err)
		return err // Will retry
	}

	logger.Info("Document ingested successfully", "document_id", payload.DocumentID)
	return nil
}
