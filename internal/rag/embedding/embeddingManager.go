package embedding

import (
	"context"
	"errors"
	"fmt"
)

var ErrEmptyResponse = errors.New("embedding provider returned no vectors")

type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
	// BatchEmbedding returns one vector per input text, in input order.
	BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedInBatches issues one BatchEmbedding call per batchSize texts and stops at the
// first failing batch. Vectors of batches that completed are returned with the error.
func EmbedInBatches(ctx context.Context, e Embedder, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = len(texts)
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		vectors, err := e.BatchEmbedding(ctx, texts[start:end])
		if err != nil {
			return out, fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
		if len(vectors) != end-start {
			return out, fmt.Errorf("batch %d-%d: expected %d vectors, got %d", start, end, end-start, len(vectors))
		}
		out = append(out, vectors...)
	}
	return out, nil
}
