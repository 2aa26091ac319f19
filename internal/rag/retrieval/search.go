package retrieval

import (
	"context"
	"time"

	"github.com/akolanti/ResearchAPI/internal/config"
	"github.com/akolanti/ResearchAPI/internal/domain/commonModels"
	"github.com/akolanti/ResearchAPI/internal/metrics"
	"github.com/akolanti/ResearchAPI/internal/rag/ingest"
	"github.com/akolanti/ResearchAPI/pkg/logger_i"
	"github.com/akolanti/ResearchAPI/pkg/result"
)

type SearchRequest struct {
	Query       string                 `json:"query"`
	TopK        int                    `json:"top_k,omitempty"`
	DocumentIds []string               `json:"document_ids,omitempty"`
	Types       []commonModels.DocType `json:"types,omitempty"`
}

type SearchResponse struct {
	Results   []commonModels.ScoredChunk `json:"results"`
	Citations []commonModels.Citation    `json:"citations"`
}

type Searcher interface {
	Search(ctx context.Context, userId string, req SearchRequest) result.Result[SearchResponse]
	// SearchWithEmbedding ranks against an already computed query vector.
	SearchWithEmbedding(ctx context.Context, userId string, query []float32, req SearchRequest) result.Result[SearchResponse]
}

type service struct {
	store   commonModels.DocumentStore
	indexer ingest.Indexer
	logger  *logger_i.Logger
}

func NewService(store commonModels.DocumentStore, indexer ingest.Indexer) Searcher {
	return &service{
		store:   store,
		indexer: indexer,
		logger:  logger_i.NewLogger("Retrieval"),
	}
}

func (s *service) Search(ctx context.Context, userId string, req SearchRequest) result.Result[SearchResponse] {
	emb := s.indexer.GenerateQueryEmbedding(ctx, req.Query)
	if !emb.IsOk() {
		return result.Fail[SearchResponse](emb)
	}
	return s.SearchWithEmbedding(ctx, userId, emb.Value(), req)
}

func (s *service) SearchWithEmbedding(ctx context.Context, userId string, query []float32, req SearchRequest) result.Result[SearchResponse] {
	log := s.logger.Ctx(ctx)
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("retrieval", time.Since(start)) }()

	topK := req.TopK
	if topK <= 0 {
		topK = config.DefaultTopK
	}
	topK = min(topK, config.MaxTopK)

	chunks, err := s.store.SearchableChunks(ctx, commonModels.ChunkFilter{
		UserId:      userId,
		DocumentIds: req.DocumentIds,
		Types:       req.Types,
	})
	if err != nil {
		log.Error("Loading searchable chunks failed", "error", err)
		return result.Err[SearchResponse](result.KindStorage, err)
	}

	ranked, err := Rank(query, chunks, topK)
	if err != nil {
		log.Error("Ranking failed", "error", err)
		return result.Err[SearchResponse](result.KindEmbedding, err)
	}
	log.Debug("Search ranked", "candidates", len(chunks), "returned", len(ranked))

	return result.Ok(SearchResponse{
		Results:   ranked,
		Citations: GenerateCitations(ranked),
	})
}
