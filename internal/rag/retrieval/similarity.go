package retrieval

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/akolanti/ResearchAPI/internal/config"
	"github.com/akolanti/ResearchAPI/internal/domain/commonModels"
)

var ErrDimensionMismatch = errors.New("embedding dimensions differ")

// CosineSimilarity returns dot(a,b)/(|a||b|), or 0 when either vector has zero norm.
// Vectors of different length are an error: they come from different embedding models.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Rank scores every chunk carrying an embedding and returns the topK best, highest
// first. Equal scores keep their input order.
func Rank(query []float32, chunks []commonModels.ChunkWithDoc, topK int) ([]commonModels.ScoredChunk, error) {
	if topK <= 0 {
		topK = config.DefaultTopK
	}

	scored := make([]commonModels.ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		if !c.HasEmbedding() {
			continue
		}
		score, err := CosineSimilarity(query, c.Embedding)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", c.Id, err)
		}
		scored = append(scored, commonModels.ScoredChunk{Chunk: c, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}
