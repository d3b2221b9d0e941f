package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	// Create indexes
	err = createIndexes(client, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(client *mongo.Client, dbName string) error {
	db := client.Database(dbName)

	usersCollection := db.Collection("users")
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := usersCollection.Indexes().CreateMany(context.Background(), userIndexes)
	if err != nil {
		return err
	}

	pdfsCollection := db.Collection("pdfs")
	pdfIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}
	_, err = pdfsCollection.Indexes().CreateMany(context.Background(), pdfIndexes)
	if err != nil {
		return err
	}

	// Chunk records are fetched per document ordered by position.
	pdfChunksCollection := db.Collection("pdf_chunks")
	pdfChunkIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "document_id", Value: 1}, {Key: "position", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
	}
	_, err = pdfChunksCollection.Indexes().CreateMany(context.Background(), pdfChunkIndexes)
	if err != nil {
		return err
	}

	quizzesCollection := db.Collection("quizzes")
	quizIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "document_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}
	_, err = quizzesCollection.Indexes().CreateMany(context.Background(), quizIndexes)
	if err != nil {
		return err
	}

	attemptsCollection := db.Collection("quiz_attempts")
	attemptIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "quiz_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "submitted_at", Value: -1}},
		},
	}
	_, err = attemptsCollection.Indexes().CreateMany(context.Background(), attemptIndexes)
	if err != nil {
		return err
	}

	return nil
}
