package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pdf-study-platform/models"
)

// TextGenerator is the plain-text generation surface used for answer
// synthesis.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// AnswerService answers free-form questions about a document by retrieving
// relevant chunks and synthesizing a grounded reply.
type AnswerService struct {
	retriever *Retriever
	generator TextGenerator
	topK      int
}

func NewAnswerService(retriever *Retriever, generator TextGenerator, topK int) *AnswerService {
	if topK <= 0 {
		topK = 5
	}
	return &AnswerService{retriever: retriever, generator: generator, topK: topK}
}

const answerSystemPrompt = "You are a helpful study assistant. Answer questions using only the provided document excerpts. " +
	"If the excerpts do not contain the answer, say so instead of guessing."

// Ask retrieves the chunks most relevant to the question and asks the model
// to answer from them. The returned response includes the source chunks so
// the caller can show citations.
func (s *AnswerService) Ask(ctx context.Context, documentID, question string, topK int) (*models.AnswerResponse, error) {
	start := time.Now()

	if topK <= 0 {
		topK = s.topK
	}

	results, err := s.retriever.Search(ctx, documentID, question, topK)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no relevant content found in document %s", documentID)
	}

	answer, err := s.generator.GenerateText(ctx, answerSystemPrompt, buildAnswerPrompt(question, results))
	if err != nil {
		return nil, err
	}

	return &models.AnswerResponse{
		Answer:         answer,
		SourceChunks:   results,
		ProcessingTime: time.Since(start).Seconds(),
	}, nil
}

func buildAnswerPrompt(question string, results []models.SearchResult) string {
	var sb strings.Builder
	sb.WriteString("Based on the following context:\n\n")
	for i, res := range results {
		sb.WriteString(fmt.Sprintf("Context %d (page %d):\n%s\n\n", i+1, res.PageNumber, res.Text))
	}
	sb.WriteString("Please answer this question: ")
	sb.WriteString(question)
	return sb.String()
}
