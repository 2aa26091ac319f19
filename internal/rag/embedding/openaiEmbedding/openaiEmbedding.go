package openaiEmbedding

import (
	"context"
	"fmt"

	"github.com/akolanti/ResearchAPI/internal/rag/embedding"
	"github.com/akolanti/ResearchAPI/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type client struct {
	api        openai.Client
	model      string
	dimensions int64
	logger     *logger_i.Logger
}

// New builds an embedder over the OpenAI embeddings endpoint. Extra request options
// (base URL, http client) are appended after the key.
func New(apiKey string, model string, dimensions int, opts ...option.RequestOption) embedding.Embedder {
	all := append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &client{
		api:        openai.NewClient(all...),
		model:      model,
		dimensions: int64(dimensions),
		logger:     logger_i.NewLogger("openai_embedding"),
	}
}

func (c *client) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.BatchEmbedding(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *client) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	log := c.logger.Ctx(ctx)

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(c.model),
	}
	if c.dimensions > 0 {
		params.Dimensions = openai.Int(c.dimensions)
	}

	resp, err := c.api.Embeddings.New(ctx, params)
	if err != nil {
		log.Error("Error getting embeddings from OpenAI", "error", err, "count", len(texts))
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: asked for %d, got %d", embedding.ErrEmptyResponse, len(texts), len(resp.Data))
	}

	// data may arrive out of order
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = vec
	}
	log.Debug("Embedded batch", "count", len(texts))
	return out, nil
}
