package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pdf-study-platform/models"
	"pdf-study-platform/utils"
)

// ChunkStore persists embedded chunks in the pdf_chunks collection. It is
// the canonical store: vector indices are rebuilt from it on cache misses.
type ChunkStore struct {
	collection *mongo.Collection
	pdfs       *mongo.Collection
}

func NewChunkStore(db *mongo.Database) *ChunkStore {
	return &ChunkStore{
		collection: db.Collection("pdf_chunks"),
		pdfs:       db.Collection("pdfs"),
	}
}

// SaveChunks writes all chunks of a document in one insert. Chunk text is
// compressed before storage when large enough to be worth it. Callers must
// pass vectors aligned 1:1 with chunks.
func (s *ChunkStore) SaveChunks(ctx context.Context, documentID, userID string, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks to save for document %s", documentID)
	}

	now := time.Now()
	docs := make([]interface{}, 0, len(chunks))
	for i, chunk := range chunks {
		stored := models.StoredChunk{
			DocumentID: documentID,
			UserID:     userID,
			Position:   i,
			PageNumber: chunk.PageNumber,
			Vector:     vectors[i],
			CreatedAt:  now,
		}

		compressed, algorithm, err := utils.CompressText(chunk.Text)
		if err != nil {
			return fmt.Errorf("failed to compress chunk %d: %w", i, err)
		}
		if algorithm == utils.CompressionNone {
			stored.Text = chunk.Text
		} else {
			stored.Compressed = compressed
			stored.Compression = string(algorithm)
		}

		docs = append(docs, stored)
	}

	if _, err := s.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}
	return nil
}

// LoadChunks returns all chunks of a document ordered by position, with text
// decompressed. A stored record with neither plain nor compressed text is
// corrupt and fails the load.
func (s *ChunkStore) LoadChunks(ctx context.Context, documentID string) ([]models.StoredChunk, error) {
	cursor, err := s.collection.Find(ctx,
		bson.M{"document_id": documentID},
		options.Find().SetSort(bson.D{{Key: "position", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer cursor.Close(ctx)

	var stored []models.StoredChunk
	if err := cursor.All(ctx, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode chunks: %w", err)
	}

	for i := range stored {
		if stored[i].Text != "" {
			continue
		}
		if len(stored[i].Compressed) == 0 {
			return nil, fmt.Errorf("chunk %d of document %s has no text", stored[i].Position, documentID)
		}
		text, err := utils.DecompressText(stored[i].Compressed, utils.CompressionAlgorithm(stored[i].Compression))
		if err != nil {
			return nil, fmt.Errorf("failed to decompress chunk %d: %w", stored[i].Position, err)
		}
		stored[i].Text = text
		stored[i].Compressed = nil
	}

	return stored, nil
}

// DeleteOrphans removes chunks whose owning document record no longer
// exists. A failed delete can leave chunks behind; this reclaims them.
func (s *ChunkStore) DeleteOrphans(ctx context.Context) (int64, error) {
	ids, err := s.collection.Distinct(ctx, "document_id", bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to list chunk document ids: %w", err)
	}

	var removed int64
	for _, raw := range ids {
		id, ok := raw.(string)
		if !ok {
			continue
		}
		n, err := s.pdfs.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
		if err != nil {
			return removed, fmt.Errorf("failed to check document %s: %w", id, err)
		}
		if n > 0 {
			continue
		}
		deleted, err := s.DeleteChunks(ctx, id)
		if err != nil {
			return removed, err
		}
		removed += deleted
	}
	return removed, nil
}

// DeleteChunks removes every chunk of a document. Returns the number of
// chunks deleted.
func (s *ChunkStore) DeleteChunks(ctx context.Context, documentID string) (int64, error) {
	res, err := s.collection.DeleteMany(ctx, bson.M{"document_id": documentID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks: %w", err)
	}
	return res.DeletedCount, nil
}
