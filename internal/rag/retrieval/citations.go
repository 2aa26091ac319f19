package retrieval

import (
	"math"
	"strings"

	"github.com/akolanti/ResearchAPI/internal/domain/commonModels"
)

const (
	quoteLimit  = 240
	rankDecay   = 0.1
	sourceLabel = "document"
)

// GenerateCitations maps ranked results to citations numbered from 1 in rank order.
// Relevance is the similarity score decayed by rank position.
func GenerateCitations(ranked []commonModels.ScoredChunk) []commonModels.Citation {
	citations := make([]commonModels.Citation, 0, len(ranked))
	for i, r := range ranked {
		decay := math.Max(0, 1-rankDecay*float64(i))
		citations = append(citations, commonModels.Citation{
			Id:        i + 1,
			Source:    citationSource(r.Chunk),
			Url:       r.Chunk.DocSource,
			Title:     r.Chunk.DocTitle,
			Quote:     quote(r.Chunk.Content),
			Relevance: r.Score * decay,
		})
	}
	return citations
}

func citationSource(c commonModels.ChunkWithDoc) string {
	if c.DocType != "" {
		return string(c.DocType)
	}
	return sourceLabel
}

func quote(content string) string {
	q := strings.Join(strings.Fields(content), " ")
	r := []rune(q)
	if len(r) <= quoteLimit {
		return q
	}
	return strings.TrimSpace(string(r[:quoteLimit])) + "…"
}
