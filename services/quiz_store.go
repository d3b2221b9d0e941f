package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pdf-study-platform/models"
)

// QuizStore persists generated quizzes and graded attempts.
type QuizStore struct {
	quizzes  *mongo.Collection
	attempts *mongo.Collection
}

func NewQuizStore(db *mongo.Database) *QuizStore {
	return &QuizStore{
		quizzes:  db.Collection("quizzes"),
		attempts: db.Collection("quiz_attempts"),
	}
}

func (s *QuizStore) SaveQuiz(ctx context.Context, quiz *models.Quiz) error {
	if _, err := s.quizzes.InsertOne(ctx, quiz); err != nil {
		return fmt.Errorf("failed to save quiz: %w", err)
	}
	return nil
}

// GetQuiz loads a quiz owned by the given user. Unknown or foreign quizzes
// return ErrQuizNotFound.
func (s *QuizStore) GetQuiz(ctx context.Context, quizID, userID string) (*models.Quiz, error) {
	var quiz models.Quiz
	err := s.quizzes.FindOne(ctx, bson.M{"_id": quizID, "user_id": userID}).Decode(&quiz)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to load quiz: %w", err)
	}
	return &quiz, nil
}

func (s *QuizStore) SaveAttempt(ctx context.Context, attempt *models.QuizAttempt) error {
	if _, err := s.attempts.InsertOne(ctx, attempt); err != nil {
		return fmt.Errorf("failed to save quiz attempt: %w", err)
	}
	return nil
}

// ListAttempts returns a user's graded attempts, most recent first.
func (s *QuizStore) ListAttempts(ctx context.Context, userID string) ([]models.QuizAttempt, error) {
	cursor, err := s.attempts.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "submitted_at", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer cursor.Close(ctx)

	var attempts []models.QuizAttempt
	if err := cursor.All(ctx, &attempts); err != nil {
		return nil, fmt.Errorf("failed to decode attempts: %w", err)
	}
	return attempts, nil
}

// DeleteByDocument removes quizzes and attempts tied to a deleted document.
func (s *QuizStore) DeleteByDocument(ctx context.Context, documentID string) error {
	if _, err := s.quizzes.DeleteMany(ctx, bson.M{"document_id": documentID}); err != nil {
		return fmt.Errorf("failed to delete quizzes: %w", err)
	}
	if _, err := s.attempts.DeleteMany(ctx, bson.M{"document_id": documentID}); err != nil {
		return fmt.Errorf("failed to delete attempts: %w", err)
	}
	return nil
}
