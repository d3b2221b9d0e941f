package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"pdf-study-platform/internal/logger"
)

// PDFExtractor extracts per-page text from PDF files.
type PDFExtractor struct {
	maxFileSize int64
}

func NewPDFExtractor(maxFileSize int64) *PDFExtractor {
	return &PDFExtractor{maxFileSize: maxFileSize}
}

// ExtractionResult contains the extracted pages plus basic stats.
type ExtractionResult struct {
	Pages          []string
	NumPages       int
	WordCount      int
	CharacterCount int
	ProcessingTime time.Duration
}

// ExtractPages parses a PDF file and returns one text string per page, in
// page order. Pages that fail to render are kept as empty strings so page
// numbering stays aligned. Returns ErrNoExtractableText when every page is
// blank, ErrInvalidPDF when the file does not parse at all.
func (e *PDFExtractor) ExtractPages(ctx context.Context, filePath string) (*ExtractionResult, error) {
	start := time.Now()

	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) <= 0 {
			return nil, fmt.Errorf("context deadline exceeded before extraction")
		}
	}

	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat PDF file: %w", err)
	}
	if e.maxFileSize > 0 && stat.Size() > e.maxFileSize {
		return nil, fmt.Errorf("pdf too large for in-memory extraction: %d bytes", stat.Size())
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF file: %w", err)
	}

	return e.ExtractPagesFromBytes(ctx, content, start)
}

// ExtractPagesFromBytes extracts pages from an in-memory PDF.
func (e *PDFExtractor) ExtractPagesFromBytes(ctx context.Context, content []byte, start time.Time) (*ExtractionResult, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	hasText := false

	for i := 1; i <= numPages; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("Failed to extract text from page", "page", i, "error", err)
			pages = append(pages, "")
			continue
		}

		if strings.TrimSpace(text) != "" {
			hasText = true
		}
		pages = append(pages, text)
	}

	if !hasText {
		return nil, ErrNoExtractableText
	}

	result := &ExtractionResult{
		Pages:          pages,
		NumPages:       numPages,
		ProcessingTime: time.Since(start),
	}
	for _, p := range pages {
		result.WordCount += len(strings.Fields(p))
		result.CharacterCount += len(p)
	}

	return result, nil
}
