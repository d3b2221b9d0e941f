package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrUnavailable marks transport-level failures against the Gemini backends
// (network, auth, rate limit). Callers use errors.Is to distinguish these
// from validation or not-found conditions.
var ErrUnavailable = errors.New("ai backend unavailable")

// EmbeddingClient produces fixed-dimension embedding vectors via the Google
// Generative AI API. Constructed once at startup and injected into services.
type EmbeddingClient struct {
	client *genai.Client
	model  string
}

func NewEmbeddingClient(ctx context.Context, apiKey, model string) (*EmbeddingClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &EmbeddingClient{client: client, model: model}, nil
}

// EmbedBatch embeds all texts in a single request. An empty input returns an
// empty result without a network call. A failure fails the whole batch; there
// are no partial results. All returned vectors share one dimensionality.
func (c *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	model := c.client.EmbeddingModel(c.model)
	batch := model.NewBatch()
	for _, text := range texts {
		// Replacing newlines with spaces improves embedding quality.
		batch.AddContent(genai.Text(normalizeForEmbedding(text)))
	}

	resp, err := model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("%w: batch embed: %v", ErrUnavailable, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrUnavailable, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	dim := 0
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at position %d", ErrUnavailable, i)
		}
		if dim == 0 {
			dim = len(emb.Values)
		} else if len(emb.Values) != dim {
			return nil, fmt.Errorf("embedding dimension mismatch: %d vs %d", len(emb.Values), dim)
		}
		vectors[i] = emb.Values
	}

	return vectors, nil
}

// EmbedOne embeds a single text as a 1-element batch. An empty string is
// treated as valid input, not a degenerate case.
func (c *EmbeddingClient) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *EmbeddingClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func normalizeForEmbedding(text string) string {
	return strings.ReplaceAll(text, "\n", " ")
}
