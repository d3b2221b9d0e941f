package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"pdf-study-platform/internal/logger"
)

// AttemptExport flattens a quiz attempt for export.
type AttemptExport struct {
	AttemptID   string    `json:"attempt_id"`
	QuizID      string    `json:"quiz_id"`
	DocumentID  string    `json:"document_id"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	Percentage  float64   `json:"percentage"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// AttemptExportData is the full export payload.
type AttemptExportData struct {
	ExportDate    time.Time       `json:"export_date"`
	TotalAttempts int             `json:"total_attempts"`
	AvgPercentage float64         `json:"avg_percentage"`
	Attempts      []AttemptExport `json:"attempts"`
}

// ExportService exports a user's quiz attempt history as JSON or Excel.
type ExportService struct {
	store *QuizStore
}

func NewExportService(store *QuizStore) *ExportService {
	return &ExportService{store: store}
}

// BuildExport collects the user's attempts into an export payload.
func (es *ExportService) BuildExport(ctx context.Context, userID string) (*AttemptExportData, error) {
	attempts, err := es.store.ListAttempts(ctx, userID)
	if err != nil {
		return nil, err
	}

	SortAttemptsByDate(attempts)

	data := &AttemptExportData{
		ExportDate:    time.Now(),
		TotalAttempts: len(attempts),
		Attempts:      make([]AttemptExport, len(attempts)),
	}

	sum := 0.0
	for i, a := range attempts {
		data.Attempts[i] = AttemptExport{
			AttemptID:   a.ID,
			QuizID:      a.QuizID,
			DocumentID:  a.DocumentID,
			Score:       a.Result.Score,
			Total:       a.Result.Total,
			Percentage:  a.Result.Percentage,
			SubmittedAt: a.SubmittedAt,
		}
		sum += a.Result.Percentage
	}
	if len(attempts) > 0 {
		data.AvgPercentage = sum / float64(len(attempts))
	}

	return data, nil
}

// StreamExport streams the export directly to the HTTP response.
func (es *ExportService) StreamExport(c *gin.Context, data *AttemptExportData, format string) error {
	switch format {
	case "json":
		jsonData, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}

		c.Header("Content-Disposition", "attachment; filename=quiz_attempts.json")
		c.Header("Content-Length", strconv.Itoa(len(jsonData)))
		c.Data(http.StatusOK, "application/json", jsonData)

	case "excel":
		buf, err := es.buildExcel(data)
		if err != nil {
			return err
		}

		c.Header("Content-Disposition", "attachment; filename=quiz_attempts.xlsx")
		c.Header("Content-Length", strconv.Itoa(buf.Len()))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())

	default:
		return fmt.Errorf("unsupported format: %s", format)
	}

	return nil
}

func (es *ExportService) buildExcel(data *AttemptExportData) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("Error closing Excel file", "error", err)
		}
	}()

	sheetName := "Quiz Attempts"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"Attempt ID", "Quiz ID", "Document ID", "Score", "Total", "Percentage", "Submitted At"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIdx, a := range data.Attempts {
		row := rowIdx + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), a.AttemptID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), a.QuizID)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), a.DocumentID)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), a.Score)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), a.Total)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), a.Percentage)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), a.SubmittedAt.Format("2006-01-02 15:04:05"))
	}

	for i := range headers {
		col := fmt.Sprintf("%c:%c", 'A'+i, 'A'+i)
		f.SetColWidth(sheetName, col, col, 20)
	}

	summarySheet := "Summary"
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	summaryRows := [][]interface{}{
		{"Export Date", data.ExportDate.Format("2006-01-02 15:04:05")},
		{"Total Attempts", data.TotalAttempts},
		{"Average Percentage", fmt.Sprintf("%.1f", data.AvgPercentage)},
	}
	for i, row := range summaryRows {
		for j, cell := range row {
			f.SetCellValue(summarySheet, fmt.Sprintf("%c%d", 'A'+j, i+1), cell)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	return &buf, nil
}
