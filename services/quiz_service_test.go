package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"pdf-study-platform/internal/ai"
	"pdf-study-platform/models"
)

type fakeDocSource struct {
	docs map[string]*models.PDFDocument
}

func (f *fakeDocSource) GetDocument(ctx context.Context, documentID, userID string) (*models.PDFDocument, error) {
	doc, ok := f.docs[documentID]
	if !ok || doc.UserID != userID {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

type fakeChunkSource struct {
	chunks []models.Chunk
	calls  int
}

func (f *fakeChunkSource) Chunks(ctx context.Context, documentID string) ([]models.Chunk, error) {
	f.calls++
	return f.chunks, nil
}

type fakeStructuredGenerator struct {
	result *ai.StructuredResult
	calls  int
}

func (f *fakeStructuredGenerator) GenerateStructured(ctx context.Context, systemPrompt, userPrompt string) *ai.StructuredResult {
	f.calls++
	return f.result
}

func wellFormedQuestionObject() map[string]any {
	return map[string]any{
		"question": "What powers the cell?",
		"answers": []any{
			map[string]any{"text": "The mitochondria", "is_correct": true},
			map[string]any{"text": "The cell wall", "is_correct": false},
		},
		"explanation": "The mitochondria produces ATP.",
	}
}

func TestGenerateQuizRejectsForeignDocument(t *testing.T) {
	docs := &fakeDocSource{docs: map[string]*models.PDFDocument{
		"doc-1": {ID: "doc-1", UserID: "alice", Status: models.StatusCompleted},
	}}
	chunks := &fakeChunkSource{chunks: []models.Chunk{{Text: "content", PageNumber: 1}}}
	generator := &fakeStructuredGenerator{result: &ai.StructuredResult{Object: map[string]any{"questions": []any{wellFormedQuestionObject()}}}}

	svc := NewQuizService(docs, chunks, generator, nil, 5, 20, nil)

	_, err := svc.GenerateQuiz(context.Background(), "doc-1", "mallory", 5)
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound for another user's document, got %v", err)
	}
	if chunks.calls != 0 {
		t.Errorf("expected no chunk access for a foreign document, got %d calls", chunks.calls)
	}
	if generator.calls != 0 {
		t.Errorf("expected no generation for a foreign document, got %d calls", generator.calls)
	}
}

func TestGenerateQuizRequiresCompletedDocument(t *testing.T) {
	docs := &fakeDocSource{docs: map[string]*models.PDFDocument{
		"doc-1": {ID: "doc-1", UserID: "alice", Status: models.StatusProcessing},
	}}
	chunks := &fakeChunkSource{chunks: []models.Chunk{{Text: "content", PageNumber: 1}}}
	generator := &fakeStructuredGenerator{result: &ai.StructuredResult{Object: map[string]any{"questions": []any{wellFormedQuestionObject()}}}}

	svc := NewQuizService(docs, chunks, generator, nil, 5, 20, nil)

	_, err := svc.GenerateQuiz(context.Background(), "doc-1", "alice", 5)
	if !errors.Is(err, ErrDocumentNotReady) {
		t.Fatalf("expected ErrDocumentNotReady for a processing document, got %v", err)
	}
	if generator.calls != 0 {
		t.Errorf("expected no generation before the document is ready, got %d calls", generator.calls)
	}
}

func TestGenerateQuizFromOwnedDocument(t *testing.T) {
	docs := &fakeDocSource{docs: map[string]*models.PDFDocument{
		"doc-1": {ID: "doc-1", UserID: "alice", Status: models.StatusCompleted},
	}}
	chunks := &fakeChunkSource{chunks: []models.Chunk{{Text: "The mitochondria produces ATP.", PageNumber: 1}}}
	generator := &fakeStructuredGenerator{result: &ai.StructuredResult{Object: map[string]any{"questions": []any{wellFormedQuestionObject()}}}}

	svc := NewQuizService(docs, chunks, generator, nil, 5, 20, nil)

	quiz, err := svc.GenerateQuiz(context.Background(), "doc-1", "alice", 5)
	if err != nil {
		t.Fatalf("expected quiz for the owning user, got %v", err)
	}
	if quiz.UserID != "alice" || quiz.DocumentID != "doc-1" {
		t.Errorf("unexpected quiz ownership: %+v", quiz)
	}
	if len(quiz.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(quiz.Questions))
	}
	if quiz.Questions[0].CorrectIndex() != 0 {
		t.Errorf("expected first answer correct, got index %d", quiz.Questions[0].CorrectIndex())
	}
}

func sampleQuestion(correctIdx int) models.QuizQuestion {
	answers := make([]models.QuizAnswer, 4)
	for i := range answers {
		answers[i] = models.QuizAnswer{Text: "Option", IsCorrect: i == correctIdx}
	}
	return models.QuizQuestion{
		Question:    "What is tested here?",
		Answers:     answers,
		Explanation: "Because the document says so.",
	}
}

func TestGradeSingleCorrectAnswer(t *testing.T) {
	questions := []models.QuizQuestion{sampleQuestion(1)}

	result := Grade(questions, map[int]int{0: 1})

	if result.Score != 1 || result.Total != 1 {
		t.Errorf("expected 1/1, got %d/%d", result.Score, result.Total)
	}
	if result.Percentage != 100.0 {
		t.Errorf("expected 100%%, got %f", result.Percentage)
	}
	if len(result.Feedback) != 1 {
		t.Fatalf("expected 1 feedback item, got %d", len(result.Feedback))
	}
	fb := result.Feedback[0]
	if fb.QuestionIndex != 0 || fb.Result != "correct" {
		t.Errorf("unexpected feedback: %+v", fb)
	}
	if fb.SelectedAnswer == nil || *fb.SelectedAnswer != 1 {
		t.Errorf("expected selected answer 1 in feedback")
	}
	if fb.CorrectAnswer != 1 {
		t.Errorf("expected correct answer 1 in feedback, got %d", fb.CorrectAnswer)
	}
}

func TestGradeUnansweredAndOutOfRange(t *testing.T) {
	questions := []models.QuizQuestion{
		sampleQuestion(0),
		sampleQuestion(2),
		sampleQuestion(3),
	}

	// Question 0 unanswered, question 1 wrong, question 2 out of range.
	result := Grade(questions, map[int]int{1: 0, 2: 99})

	if result.Score != 0 {
		t.Errorf("expected score 0, got %d", result.Score)
	}
	if result.Feedback[0].Result != "unanswered" {
		t.Errorf("expected unanswered, got %s", result.Feedback[0].Result)
	}
	if result.Feedback[1].Result != "incorrect" {
		t.Errorf("expected incorrect, got %s", result.Feedback[1].Result)
	}
	if result.Feedback[2].Result != "incorrect" {
		t.Errorf("expected out-of-range selection graded incorrect, got %s", result.Feedback[2].Result)
	}
}

func TestGradeEmptyQuiz(t *testing.T) {
	result := Grade(nil, map[int]int{})

	if result.Score != 0 || result.Total != 0 {
		t.Errorf("expected 0/0, got %d/%d", result.Score, result.Total)
	}
	if result.Percentage != 0 {
		t.Errorf("expected 0%% for empty quiz, got %f", result.Percentage)
	}
}

func TestGradeIsPure(t *testing.T) {
	questions := []models.QuizQuestion{sampleQuestion(1), sampleQuestion(3)}
	answers := map[int]int{0: 1, 1: 0}

	first := Grade(questions, answers)
	second := Grade(questions, answers)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("grading identical inputs produced different results")
	}
}

func TestNormalizeAnswers(t *testing.T) {
	got := NormalizeAnswers(map[string]int{"0": 1, "2": 3, "bogus": 0, "-1": 2})

	want := map[int]int{0: 1, 2: 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRepairQuestionsKeepsWellFormed(t *testing.T) {
	raw := []any{
		map[string]any{
			"question": "What color is the sky?",
			"answers": []any{
				map[string]any{"text": "Blue", "is_correct": true},
				map[string]any{"text": "Green", "is_correct": false},
				map[string]any{"text": "Red", "is_correct": false},
				map[string]any{"text": "Plaid", "is_correct": false},
			},
			"explanation": "Rayleigh scattering favors blue light.",
		},
	}

	questions, repaired := RepairQuestions(raw)

	if repaired != 0 {
		t.Errorf("expected no repairs, got %d", repaired)
	}
	if len(questions) != 1 || questions[0].Question != "What color is the sky?" {
		t.Errorf("well-formed question was altered: %+v", questions)
	}
	if questions[0].CorrectIndex() != 0 {
		t.Errorf("expected correct index 0, got %d", questions[0].CorrectIndex())
	}
}

func TestRepairQuestionsReplacesMalformed(t *testing.T) {
	raw := []any{
		"not an object",
		map[string]any{"question": "", "answers": []any{}, "explanation": "x"},
		map[string]any{
			// No answer marked correct.
			"question": "Q?",
			"answers": []any{
				map[string]any{"text": "A", "is_correct": false},
				map[string]any{"text": "B", "is_correct": false},
			},
			"explanation": "E",
		},
		map[string]any{
			// Two answers marked correct.
			"question": "Q?",
			"answers": []any{
				map[string]any{"text": "A", "is_correct": true},
				map[string]any{"text": "B", "is_correct": true},
			},
			"explanation": "E",
		},
		map[string]any{
			// Missing explanation.
			"question": "Q?",
			"answers": []any{
				map[string]any{"text": "A", "is_correct": true},
				map[string]any{"text": "B", "is_correct": false},
			},
		},
	}

	questions, repaired := RepairQuestions(raw)

	if len(questions) != len(raw) {
		t.Fatalf("repair changed list length: %d vs %d", len(questions), len(raw))
	}
	if repaired != len(raw) {
		t.Errorf("expected all %d elements repaired, got %d", len(raw), repaired)
	}

	for i, q := range questions {
		if len(q.Answers) < 2 {
			t.Errorf("question %d: fewer than 2 answers", i)
		}
		correct := 0
		for _, a := range q.Answers {
			if a.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			t.Errorf("question %d: %d answers marked correct, want exactly 1", i, correct)
		}
		if q.CorrectIndex() != 0 {
			t.Errorf("question %d: placeholder should mark first answer correct", i)
		}
	}
}

func TestBuildQuizPromptsIncludeContentAndCount(t *testing.T) {
	system, user := buildQuizPrompts("abcdef1234567890", "The mitochondria is the powerhouse of the cell.", 7)

	if system == "" {
		t.Errorf("expected non-empty system prompt")
	}
	for _, want := range []string{"7 multiple-choice questions", "Document abcdef12", "mitochondria", "is_correct"} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q", want)
		}
	}
}
