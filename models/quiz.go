package models

import "time"

// QuizAnswer is one multiple-choice option.
type QuizAnswer struct {
	Text      string `bson:"text" json:"text"`
	IsCorrect bool   `bson:"is_correct" json:"is_correct"`
}

// QuizQuestion is a validated multiple-choice question. Invariant: at least
// two answers and exactly one with IsCorrect set.
type QuizQuestion struct {
	Question    string       `bson:"question" json:"question"`
	Answers     []QuizAnswer `bson:"answers" json:"answers"`
	Explanation string       `bson:"explanation" json:"explanation"`
}

// CorrectIndex returns the position of the correct answer, or -1 when the
// question violates the exactly-one-correct invariant.
func (q QuizQuestion) CorrectIndex() int {
	idx := -1
	for i, a := range q.Answers {
		if a.IsCorrect {
			if idx != -1 {
				return -1
			}
			idx = i
		}
	}
	return idx
}

// QuizRequest asks for a quiz generated from an ingested document.
type QuizRequest struct {
	DocumentID   string `json:"document_id" binding:"required"`
	NumQuestions int    `json:"num_questions,omitempty"`
}

// QuizResponse carries a generated quiz.
type QuizResponse struct {
	QuizID    string         `json:"quiz_id"`
	Questions []QuizQuestion `json:"questions"`
}

// QuizSubmission maps question index (JSON object keys arrive as strings) to
// the selected answer index.
type QuizSubmission struct {
	QuizID  string         `json:"quiz_id" binding:"required"`
	Answers map[string]int `json:"answers" binding:"required"`
}

// QuestionFeedback explains the grading of a single question.
type QuestionFeedback struct {
	QuestionIndex  int    `bson:"question_index" json:"question_index"`
	Result         string `bson:"result" json:"result"` // correct, incorrect, unanswered
	SelectedAnswer *int   `bson:"selected_answer,omitempty" json:"selected_answer,omitempty"`
	CorrectAnswer  int    `bson:"correct_answer" json:"correct_answer"`
	Explanation    string `bson:"explanation,omitempty" json:"explanation,omitempty"`
}

// GradeResult is the outcome of grading a quiz submission.
type GradeResult struct {
	Score      int                `bson:"score" json:"score"`
	Total      int                `bson:"total" json:"total"`
	Percentage float64            `bson:"percentage" json:"percentage"`
	Feedback   []QuestionFeedback `bson:"feedback" json:"feedback"`
}

// Quiz is a generated quiz persisted so submissions can be graded against the
// answer key later.
type Quiz struct {
	ID         string         `bson:"_id"`
	DocumentID string         `bson:"document_id"`
	UserID     string         `bson:"user_id"`
	Questions  []QuizQuestion `bson:"questions"`
	CreatedAt  time.Time      `bson:"created_at"`
}

// QuizAttempt records a graded submission.
type QuizAttempt struct {
	ID          string      `bson:"_id"`
	QuizID      string      `bson:"quiz_id"`
	DocumentID  string      `bson:"document_id"`
	UserID      string      `bson:"user_id"`
	Result      GradeResult `bson:"result"`
	SubmittedAt time.Time   `bson:"submitted_at"`
}
