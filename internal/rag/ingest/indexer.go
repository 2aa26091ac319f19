package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/akolanti/ResearchAPI/internal/config"
	"github.com/akolanti/ResearchAPI/internal/domain/commonModels"
	"github.com/akolanti/ResearchAPI/internal/metrics"
	"github.com/akolanti/ResearchAPI/internal/rag/embedding"
	"github.com/akolanti/ResearchAPI/pkg/logger_i"
	"github.com/akolanti/ResearchAPI/pkg/result"
	"github.com/google/uuid"
)

var logger = logger_i.NewLogger("Document Ingestion")

// Indexer turns documents into persisted, embedded chunks.
type Indexer interface {
	// IndexDocument chunks and embeds doc. On an embedding failure the chunks stay
	// persisted without vectors and are returned alongside a KindEmbedding error.
	IndexDocument(ctx context.Context, doc commonModels.Document) result.Result[[]commonModels.DocChunk]
	// ReembedDocument embeds the persisted chunks that still lack a vector.
	ReembedDocument(ctx context.Context, documentId string) result.Result[[]commonModels.DocChunk]
	GenerateQueryEmbedding(ctx context.Context, query string) result.Result[[]float32]
}

type Options struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
}

func DefaultOptions() Options {
	return Options{
		ChunkSize:    config.ChunkSize,
		ChunkOverlap: config.ChunkOverlap,
		BatchSize:    config.EmbeddingBatchSize,
	}
}

type indexer struct {
	store    commonModels.DocumentStore
	embedder embedding.Embedder
	opts     Options
}

func NewIndexer(store commonModels.DocumentStore, embedder embedding.Embedder, opts Options) Indexer {
	return &indexer{store: store, embedder: embedder, opts: opts}
}

func (ix *indexer) IndexDocument(ctx context.Context, doc commonModels.Document) result.Result[[]commonModels.DocChunk] {
	log := logger.Ctx(ctx).With("documentId", doc.Id)

	pieces, err := SplitText(doc.Content, ix.opts.ChunkSize, ix.opts.ChunkOverlap)
	if err != nil {
		return result.Err[[]commonModels.DocChunk](result.KindInvalidInput, err)
	}

	chunks := make([]commonModels.DocChunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = commonModels.DocChunk{
			Id:         uuid.NewString(),
			DocumentId: doc.Id,
			Content:    p.Content,
			ChunkIndex: i,
			Overlap:    p.Overlap,
		}
	}
	log.Debug("Document split", "chunks", len(chunks))

	if err = ix.store.SaveChunks(ctx, doc.Id, chunks); err != nil {
		log.Error("Failed to persist chunks", "error", err)
		return result.Err[[]commonModels.DocChunk](result.KindStorage, err)
	}

	return ix.embedChunks(ctx, doc.Id, chunks)
}

func (ix *indexer) ReembedDocument(ctx context.Context, documentId string) result.Result[[]commonModels.DocChunk] {
	chunks, err := ix.store.GetChunks(ctx, documentId)
	if err != nil {
		return result.Err[[]commonModels.DocChunk](result.KindStorage, err)
	}
	if len(chunks) == 0 {
		return result.Err[[]commonModels.DocChunk](result.KindInvalidInput, commonModels.ErrNotFound)
	}
	return ix.embedChunks(ctx, documentId, chunks)
}

// embedChunks fills in missing vectors batch by batch and writes back whatever was
// embedded, even when a later batch fails.
func (ix *indexer) embedChunks(ctx context.Context, documentId string, chunks []commonModels.DocChunk) result.Result[[]commonModels.DocChunk] {
	log := logger.Ctx(ctx).With("documentId", documentId)

	var (
		pending []int
		texts   []string
	)
	for i, c := range chunks {
		if !c.HasEmbedding() {
			pending = append(pending, i)
			texts = append(texts, c.Content)
		}
	}
	if len(pending) == 0 {
		return result.Ok(chunks)
	}

	start := time.Now()
	vectors, embedErr := embedding.EmbedInBatches(ctx, ix.embedder, texts, ix.opts.BatchSize)
	metrics.CaptureExecutionMetrics("embedding_batch", time.Since(start))

	updates := make(map[int][]float32, len(vectors))
	for j, vec := range vectors {
		idx := pending[j]
		chunks[idx].Embedding = vec
		updates[chunks[idx].ChunkIndex] = vec
	}
	if len(updates) > 0 {
		if err := ix.store.UpdateChunkEmbeddings(ctx, documentId, updates); err != nil {
			log.Error("Failed to write embeddings", "error", err)
			return result.Partial(chunks, result.KindStorage, err)
		}
	}

	if embedErr != nil {
		log.Error("Embedding failed, chunks left unsearchable", "embedded", len(vectors), "pending", len(pending), "error", embedErr)
		return result.Partial(chunks, result.KindEmbedding, embedErr)
	}
	log.Info("Document embedded", "chunks", len(chunks), "embedded", len(vectors))
	return result.Ok(chunks)
}

func (ix *indexer) GenerateQueryEmbedding(ctx context.Context, query string) result.Result[[]float32] {
	if strings.TrimSpace(query) == "" {
		return result.Err[[]float32](result.KindInvalidInput, ErrEmptyQuery)
	}
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	vec, err := ix.embedder.GetEmbedding(ctx, query)
	if err == nil && len(vec) == 0 {
		err = embedding.ErrEmptyResponse
	}
	return result.From(vec, err, result.KindEmbedding)
}
