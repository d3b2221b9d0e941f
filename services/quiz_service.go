package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"pdf-study-platform/internal/ai"
	"pdf-study-platform/internal/logger"
	"pdf-study-platform/internal/telemetry"
	"pdf-study-platform/models"
)

// StructuredGenerator is the generation backend surface the quiz service
// needs.
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, systemPrompt, userPrompt string) *ai.StructuredResult
}

// ChunkSource supplies document chunks for quiz context.
type ChunkSource interface {
	Chunks(ctx context.Context, documentID string) ([]models.Chunk, error)
}

// DocumentSource resolves a document scoped to its owning user, for
// ownership and readiness checks.
type DocumentSource interface {
	GetDocument(ctx context.Context, documentID, userID string) (*models.PDFDocument, error)
}

// QuizService generates quizzes from document content and grades
// submissions against the stored answer key.
type QuizService struct {
	docs         DocumentSource
	chunks       ChunkSource
	generator    StructuredGenerator
	store        *QuizStore
	numQuestions int
	maxQuestions int
	metrics      *telemetry.Metrics
}

func NewQuizService(docs DocumentSource, chunks ChunkSource, generator StructuredGenerator, store *QuizStore, numQuestions, maxQuestions int, metrics *telemetry.Metrics) *QuizService {
	if numQuestions <= 0 {
		numQuestions = 5
	}
	if maxQuestions <= 0 {
		maxQuestions = 20
	}
	return &QuizService{
		docs:         docs,
		chunks:       chunks,
		generator:    generator,
		store:        store,
		numQuestions: numQuestions,
		maxQuestions: maxQuestions,
		metrics:      metrics,
	}
}

// GenerateQuiz builds a multiple-choice quiz from a document's chunks and
// persists it so later submissions can be graded. Malformed questions in the
// model reply are replaced with placeholders rather than dropped.
func (s *QuizService) GenerateQuiz(ctx context.Context, documentID, userID string, numQuestions int) (*models.Quiz, error) {
	if numQuestions <= 0 {
		numQuestions = s.numQuestions
	}
	if numQuestions > s.maxQuestions {
		numQuestions = s.maxQuestions
	}

	// Resolve the document through the owner's scope before touching chunks,
	// so one user cannot generate quizzes over another user's document.
	doc, err := s.docs.GetDocument(ctx, documentID, userID)
	if err != nil {
		return nil, err
	}
	if doc.Status != models.StatusCompleted {
		return nil, ErrDocumentNotReady
	}

	chunks, err := s.chunks.Chunks(ctx, documentID)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	combined := strings.Join(texts, "\n\n")

	systemPrompt, userPrompt := buildQuizPrompts(documentID, combined, numQuestions)

	result := s.generator.GenerateStructured(ctx, systemPrompt, userPrompt)
	if result.Failed() {
		if result.RawResponse != "" {
			logger.Error("Quiz generation returned unparsable output", "document_id", documentID, "raw_preview", result.RawResponse)
		}
		return nil, fmt.Errorf("quiz generation failed: %s", result.Err)
	}

	rawQuestions, ok := result.Object["questions"].([]any)
	if !ok {
		return nil, fmt.Errorf("quiz generation failed: response has no questions list")
	}
	if len(rawQuestions) == 0 {
		return nil, fmt.Errorf("quiz generation failed: model returned zero questions")
	}

	questions, repaired := RepairQuestions(rawQuestions)
	if repaired > 0 {
		logger.Warn("Replaced malformed quiz questions", "document_id", documentID, "repaired", repaired, "total", len(questions))
		if s.metrics != nil {
			s.metrics.RecordQuizRepair(int64(repaired))
		}
	}

	quiz := &models.Quiz{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		UserID:     userID,
		Questions:  questions,
		CreatedAt:  time.Now(),
	}

	if s.store != nil {
		if err := s.store.SaveQuiz(ctx, quiz); err != nil {
			return nil, err
		}
	}

	return quiz, nil
}

// SubmitQuiz grades a submission against the stored quiz and records the
// attempt.
func (s *QuizService) SubmitQuiz(ctx context.Context, quizID, userID string, answers map[string]int) (*models.QuizAttempt, error) {
	quiz, err := s.store.GetQuiz(ctx, quizID, userID)
	if err != nil {
		return nil, err
	}

	result := Grade(quiz.Questions, NormalizeAnswers(answers))

	attempt := &models.QuizAttempt{
		ID:          uuid.NewString(),
		QuizID:      quiz.ID,
		DocumentID:  quiz.DocumentID,
		UserID:      userID,
		Result:      result,
		SubmittedAt: time.Now(),
	}

	if err := s.store.SaveAttempt(ctx, attempt); err != nil {
		return nil, err
	}

	return attempt, nil
}

// Grade scores a submission. Pure function, no I/O: an unanswered question
// or a selected index outside the answer list counts as incorrect;
// percentage is 100*score/total, zero for an empty quiz.
func Grade(questions []models.QuizQuestion, answers map[int]int) models.GradeResult {
	result := models.GradeResult{
		Total:    len(questions),
		Feedback: make([]models.QuestionFeedback, 0, len(questions)),
	}

	for i, q := range questions {
		correct := q.CorrectIndex()
		fb := models.QuestionFeedback{
			QuestionIndex: i,
			CorrectAnswer: correct,
			Explanation:   q.Explanation,
		}

		selected, answered := answers[i]
		switch {
		case !answered:
			fb.Result = "unanswered"
		case selected == correct && selected >= 0 && selected < len(q.Answers):
			fb.Result = "correct"
			fb.SelectedAnswer = &selected
			result.Score++
		default:
			fb.Result = "incorrect"
			fb.SelectedAnswer = &selected
		}

		result.Feedback = append(result.Feedback, fb)
	}

	if result.Total > 0 {
		result.Percentage = 100 * float64(result.Score) / float64(result.Total)
	}

	return result
}

// NormalizeAnswers converts JSON object keys (always strings) to question
// indices. Keys that are not integers are dropped, leaving those questions
// unanswered.
func NormalizeAnswers(answers map[string]int) map[int]int {
	out := make(map[int]int, len(answers))
	for k, v := range answers {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 {
			continue
		}
		out[idx] = v
	}
	return out
}

// RepairQuestions validates each raw question from the model and replaces
// malformed elements with deterministic placeholders, keeping the list
// length unchanged. Returns the repaired questions and how many were
// replaced. Every returned question has at least two answers with exactly
// one marked correct.
func RepairQuestions(raw []any) ([]models.QuizQuestion, int) {
	questions := make([]models.QuizQuestion, len(raw))
	repaired := 0

	for i, el := range raw {
		if q, ok := parseQuestion(el); ok {
			questions[i] = q
			continue
		}
		questions[i] = placeholderQuestion(i)
		repaired++
	}

	return questions, repaired
}

func parseQuestion(el any) (models.QuizQuestion, bool) {
	obj, ok := el.(map[string]any)
	if !ok {
		return models.QuizQuestion{}, false
	}

	questionText, _ := obj["question"].(string)
	if strings.TrimSpace(questionText) == "" {
		return models.QuizQuestion{}, false
	}

	explanation, _ := obj["explanation"].(string)
	if strings.TrimSpace(explanation) == "" {
		return models.QuizQuestion{}, false
	}

	rawAnswers, ok := obj["answers"].([]any)
	if !ok || len(rawAnswers) < 2 {
		return models.QuizQuestion{}, false
	}

	answers := make([]models.QuizAnswer, 0, len(rawAnswers))
	for _, ra := range rawAnswers {
		answerObj, ok := ra.(map[string]any)
		if !ok {
			return models.QuizQuestion{}, false
		}
		text, _ := answerObj["text"].(string)
		if strings.TrimSpace(text) == "" {
			return models.QuizQuestion{}, false
		}
		isCorrect, _ := answerObj["is_correct"].(bool)
		answers = append(answers, models.QuizAnswer{Text: text, IsCorrect: isCorrect})
	}

	q := models.QuizQuestion{
		Question:    questionText,
		Answers:     answers,
		Explanation: explanation,
	}
	if q.CorrectIndex() == -1 {
		return models.QuizQuestion{}, false
	}

	return q, true
}

func placeholderQuestion(index int) models.QuizQuestion {
	return models.QuizQuestion{
		Question: fmt.Sprintf("Question %d could not be generated correctly.", index+1),
		Answers: []models.QuizAnswer{
			{Text: "This question needs to be regenerated", IsCorrect: true},
			{Text: "Option B", IsCorrect: false},
			{Text: "Option C", IsCorrect: false},
			{Text: "Option D", IsCorrect: false},
		},
		Explanation: "The generated question was malformed and has been replaced.",
	}
}

func buildQuizPrompts(documentID, content string, numQuestions int) (string, string) {
	title := documentID
	if len(title) > 8 {
		title = title[:8]
	}

	systemPrompt := "You are an expert quiz creator. Your task is to create multiple-choice questions based on the provided document content. " +
		"Each question should test understanding of key concepts from the document."

	userPrompt := fmt.Sprintf(`Create a quiz with %d multiple-choice questions based on this document titled "Document %s".

DOCUMENT CONTENT:
%s

INSTRUCTIONS:
1. Each question should have 4 answer choices (A, B, C, D)
2. Exactly one answer should be marked as correct
3. Include an explanation for why the correct answer is right
4. Questions should cover key concepts from throughout the document
5. Questions should test understanding, not just memorization

FORMAT YOUR RESPONSE AS A JSON OBJECT with this structure:
{
    "questions": [
        {
            "question": "Question text goes here?",
            "answers": [
                { "text": "Option A", "is_correct": false },
                { "text": "Option B", "is_correct": true },
                { "text": "Option C", "is_correct": false },
                { "text": "Option D", "is_correct": false }
            ],
            "explanation": "Explanation of why the correct answer is right"
        }
    ]
}`, numQuestions, title, content)

	return systemPrompt, userPrompt
}

// SortAttemptsByDate orders attempts newest first; used by export when the
// store returns unsorted data.
func SortAttemptsByDate(attempts []models.QuizAttempt) {
	sort.SliceStable(attempts, func(i, j int) bool {
		return attempts[i].SubmittedAt.After(attempts[j].SubmittedAt)
	})
}
