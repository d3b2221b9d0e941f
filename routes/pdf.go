package routes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"pdf-study-platform/internal/ai"
	"pdf-study-platform/internal/config"
	"pdf-study-platform/internal/logger"
	"pdf-study-platform/internal/queue"
	"pdf-study-platform/middleware"
	"pdf-study-platform/models"
	"pdf-study-platform/services"
	"pdf-study-platform/utils"
)

// documentGetter and chunkSearcher are the narrow service surfaces the
// search handler needs; *services.PDFService and *services.Retriever
// satisfy them.
type documentGetter interface {
	GetDocument(ctx context.Context, documentID, userID string) (*models.PDFDocument, error)
}

type chunkSearcher interface {
	Search(ctx context.Context, documentID, query string, topK int) ([]models.SearchResult, error)
}

// SetupPDFRoutes registers document upload, status, listing, deletion,
// semantic search and question answering under an authenticated group.
func SetupPDFRoutes(router *gin.Engine, cfg *config.Config, pdfService *services.PDFService, retriever *services.Retriever, answerService *services.AnswerService, queueClient *asynq.Client, authMiddleware *middleware.AuthMiddleware) {
	docs := router.Group("/documents")
	docs.Use(authMiddleware.RequireAuth())

	docs.POST("", handleUpload(cfg, pdfService, queueClient))
	docs.GET("", handleListDocuments(pdfService))
	docs.GET("/:documentID", handleDocumentStatus(pdfService))
	docs.DELETE("/:documentID", handleDeleteDocument(pdfService))
	docs.POST("/search", handleSearch(pdfService, retriever))
	docs.POST("/ask", handleAsk(pdfService, answerService))
}

func handleUpload(cfg *config.Config, pdfService *services.PDFService, queueClient *asynq.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)

		if err := c.Request.ParseMultipartForm(cfg.MaxFileSize); err != nil {
			utils.RespondWithPayloadTooLarge(c, "File size exceeds maximum limit")
			return
		}

		file, header, err := c.Request.FormFile("pdf")
		if err != nil {
			utils.RespondWithBadRequest(c, "No PDF file provided", nil)
			return
		}
		defer file.Close()

		ct := header.Header.Get("Content-Type")
		if !strings.Contains(ct, "pdf") && !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
			utils.RespondWithBadRequest(c, "Only PDF files are allowed", nil)
			return
		}

		if header.Size > cfg.MaxFileSize {
			utils.RespondWithPayloadTooLarge(c, "File size exceeds maximum limit")
			return
		}

		data, err := io.ReadAll(io.LimitReader(file, cfg.MaxFileSize+1))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to read uploaded file", nil)
			return
		}
		if int64(len(data)) > cfg.MaxFileSize {
			utils.RespondWithPayloadTooLarge(c, "File size exceeds maximum limit")
			return
		}
		if len(data) < 5 || string(data[:4]) != "%PDF" {
			utils.RespondWithBadRequest(c, "File does not appear to be a valid PDF", nil)
			return
		}

		doc, err := pdfService.CreateDocument(c.Request.Context(), userID, header.Filename, data)
		if err != nil {
			logger.Error("Failed to create document", "error", err)
			utils.RespondWithInternalError(c, "Failed to store document", nil)
			return
		}

		// Small uploads are processed inline so the caller gets a ready
		// document in one round trip. Larger ones go through the worker.
		if doc.Size <= cfg.SyncProcessingLimit {
			start := time.Now()
			if err := pdfService.Process(c.Request.Context(), doc); err != nil {
				respondProcessingError(c, err)
				return
			}

			processed, err := pdfService.GetDocument(c.Request.Context(), doc.ID, userID)
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to load processed document", nil)
				return
			}

			c.JSON(http.StatusCreated, models.UploadResponse{
				ID:             processed.ID,
				Filename:       processed.Filename,
				Status:         processed.Status,
				NumPages:       processed.NumPages,
				NumChunks:      processed.NumChunks,
				ProcessingTime: time.Since(start).Seconds(),
			})
			return
		}

		task, err := queue.NewPDFIngestTask(doc.ID, userID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to create processing task", nil)
			return
		}

		info, err := queueClient.Enqueue(task)
		if err != nil {
			logger.Error("Failed to enqueue ingestion task", "document_id", doc.ID, "error", err)
			utils.RespondWithInternalError(c, "Failed to enqueue processing task", nil)
			return
		}

		c.JSON(http.StatusAccepted, models.UploadResponse{
			ID:       doc.ID,
			Filename: doc.Filename,
			Status:   models.StatusPending,
			TaskID:   info.ID,
		})
	}
}

func handleDocumentStatus(pdfService *services.PDFService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		documentID := c.Param("documentID")

		doc, err := pdfService.GetDocument(c.Request.Context(), documentID, userID)
		if err != nil {
			if errors.Is(err, services.ErrDocumentNotFound) {
				utils.RespondWithNotFound(c, "Document not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to load document", nil)
			return
		}

		c.JSON(http.StatusOK, doc)
	}
}

func handleListDocuments(pdfService *services.PDFService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)

		page := 1
		limit := 10
		if p, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && p > 0 {
			page = p
		}
		if l, err := strconv.Atoi(c.DefaultQuery("limit", "10")); err == nil && l > 0 && l <= 100 {
			limit = l
		}

		docs, total, err := pdfService.ListDocuments(c.Request.Context(), userID, page, limit)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list documents", nil)
			return
		}
		if docs == nil {
			docs = []models.PDFDocument{}
		}

		c.JSON(http.StatusOK, gin.H{
			"documents": docs,
			"pagination": gin.H{
				"page":        page,
				"limit":       limit,
				"total":       total,
				"total_pages": (total + int64(limit) - 1) / int64(limit),
			},
		})
	}
}

func handleDeleteDocument(pdfService *services.PDFService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		documentID := c.Param("documentID")

		if err := pdfService.DeleteDocument(c.Request.Context(), documentID, userID); err != nil {
			if errors.Is(err, services.ErrDocumentNotFound) {
				utils.RespondWithNotFound(c, "Document not found")
				return
			}
			logger.Error("Failed to delete document", "document_id", documentID, "error", err)
			utils.RespondWithInternalError(c, "Failed to delete document", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Document deleted", "id": documentID})
	}
}

func handleSearch(docs documentGetter, searcher chunkSearcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)

		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		doc, err := docs.GetDocument(c.Request.Context(), req.DocumentID, userID)
		if err != nil {
			if errors.Is(err, services.ErrDocumentNotFound) {
				utils.RespondWithNotFound(c, "Document not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to load document", nil)
			return
		}
		if doc.Status != models.StatusCompleted {
			respondProcessingError(c, services.ErrDocumentNotReady)
			return
		}

		results, err := searcher.Search(c.Request.Context(), req.DocumentID, req.Query, req.TopK)
		if err != nil {
			respondProcessingError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"results": results,
			"total":   len(results),
		})
	}
}

func handleAsk(pdfService *services.PDFService, answerService *services.AnswerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)

		var req models.AskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		doc, err := pdfService.GetDocument(c.Request.Context(), req.DocumentID, userID)
		if err != nil {
			if errors.Is(err, services.ErrDocumentNotFound) {
				utils.RespondWithNotFound(c, "Document not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to load document", nil)
			return
		}
		if doc.Status != models.StatusCompleted {
			respondProcessingError(c, services.ErrDocumentNotReady)
			return
		}

		answer, err := answerService.Ask(c.Request.Context(), req.DocumentID, req.Question, req.TopK)
		if err != nil {
			respondProcessingError(c, err)
			return
		}

		c.JSON(http.StatusOK, answer)
	}
}

// respondProcessingError maps service errors from the ingestion and
// generation paths onto HTTP statuses.
func respondProcessingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrDocumentNotFound):
		utils.RespondWithNotFound(c, "Document not found")
	case errors.Is(err, services.ErrDocumentNotReady):
		utils.RespondWithError(c, http.StatusConflict, "document_not_ready",
			"Document has not finished processing", nil)
	case errors.Is(err, services.ErrInvalidPDF):
		utils.RespondWithBadRequest(c, "File could not be parsed as a PDF", nil)
	case errors.Is(err, services.ErrNoExtractableText):
		utils.RespondWithError(c, http.StatusUnprocessableEntity, "no_extractable_text",
			"Document contains no extractable text", nil)
	case errors.Is(err, ai.ErrUnavailable):
		utils.RespondWithServiceUnavailable(c, "AI backend is temporarily unavailable. Please try again later.")
	case errors.Is(err, context.DeadlineExceeded):
		utils.RespondWithError(c, http.StatusGatewayTimeout, "timeout", "Processing timed out", nil)
	default:
		logger.Error("Request failed", "path", c.FullPath(), "error", err)
		utils.RespondWithInternalError(c, "Request failed", nil)
	}
}
