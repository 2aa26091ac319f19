package googleEmbedding

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/akolanti/ResearchAPI/internal/rag/embedding"
	"github.com/akolanti/ResearchAPI/pkg/logger_i"
	"google.golang.org/genai"
)

var logger *logger_i.Logger
var once sync.Once
var embeddingClient *client

const retryDelay = 5 * time.Second

type client struct {
	genAi     *genai.Client
	model     string
	dimension int32
}

func newGoogleEmbedder(ctx context.Context, modelName string, apikey string, dimension int32, httpClient *http.Client) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apikey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		logger.Error("Error creating Google Embedding client", "error", err)
		return
	}
	embeddingClient = &client{
		genAi:     c,
		model:     modelName,
		dimension: dimension,
	}
	logger.Info("Google Embedding client created", "model", modelName)
}

// GetGoogleEmbeddingClient returns nil when the client could not be created.
func GetGoogleEmbeddingClient(ctx context.Context, modelName string, apikey string, dimension int32, httpClient *http.Client) embedding.Embedder {
	once.Do(func() {
		logger = logger_i.NewLogger("google_embedding")
		newGoogleEmbedder(ctx, modelName, apikey, dimension, httpClient)
	})

	if embeddingClient == nil {
		return nil
	}
	return embeddingClient
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	log := logger.Ctx(ctx)
	result, err := c.genAi.Models.EmbedContent(ctx, c.model, genai.Text(query), c.config("RETRIEVAL_QUERY"))
	if err != nil {
		log.Error("Error getting query embedding from Google", "error", err)
		return nil, err
	}
	if result == nil || len(result.Embeddings) == 0 {
		return nil, embedding.ErrEmptyResponse
	}
	return result.Embeddings[0].Values, nil
}

// BatchEmbedding sends all texts in one request and retries once after a rate limit.
func (c *client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	log := logger.Ctx(ctx).With("count", len(chunks))

	res, err := c.doCall(ctx, getContent(chunks))
	if err != nil && doRetry(err, log) {
		log.Debug("Retrying after rate limit", "delay", retryDelay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
		res, err = c.doCall(ctx, getContent(chunks))
	}
	if err != nil {
		log.Error("Error getting Embeddings from Google", "error", err)
		return nil, err
	}
	return toVectors(res, len(chunks))
}

func (c *client) doCall(ctx context.Context, content []*genai.Content) (*genai.EmbedContentResponse, error) {
	return c.genAi.Models.EmbedContent(ctx, c.model, content, c.config("RETRIEVAL_DOCUMENT"))
}

func (c *client) config(taskType string) *genai.EmbedContentConfig {
	dim := c.dimension
	return &genai.EmbedContentConfig{OutputDimensionality: &dim, TaskType: taskType}
}

func toVectors(res *genai.EmbedContentResponse, want int) ([][]float32, error) {
	if res == nil || len(res.Embeddings) != want {
		return nil, embedding.ErrEmptyResponse
	}
	out := make([][]float32, 0, want)
	for _, e := range res.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, errors.New("google embedding: empty vector in batch")
		}
		out = append(out, e.Values)
	}
	return out, nil
}
