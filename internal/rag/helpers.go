package rag

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/akolanti/ResearchAPI/internal/domain/commonModels"
	"github.com/akolanti/ResearchAPI/internal/domain/jobModel"
	"github.com/akolanti/ResearchAPI/internal/metrics"
	"github.com/akolanti/ResearchAPI/internal/rag/retrieval"
	"github.com/akolanti/ResearchAPI/internal/rag/vectorDB"
	"github.com/akolanti/ResearchAPI/pkg/logger_i"
	"github.com/akolanti/ResearchAPI/pkg/result"
)

const (
	embeddingStatusComplete = "complete"
	embeddingStatusPending  = "pending"
)

func returnOutput(job jobModel.Job, ans string) jobModel.Job {
	job.JobPayload.Answer = ans
	job.CurrentStep = jobModel.Complete
	job.Status = jobModel.JobStatusComplete
	return job
}

func logOutput(job jobModel.Job, status jobModel.InternalStatus, log *logger_i.Logger) jobModel.Job {
	job.CurrentStep = status
	log.Debug("ProcessRequest", "step", job.CurrentStep)
	return job
}

func (s *service) jobError(job jobModel.Job, err error, message string, canRetry bool) jobModel.Job {
	s.logger.Error(message, "jobId", job.Id, "error", err)

	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, commonModels.ErrNotFound):
		code = http.StatusNotFound
	case result.KindOf(err) == result.KindInvalidInput:
		code = http.StatusBadRequest
	}

	job.Error = jobModel.JobError{
		Code:    code,
		Message: message,
		Retry:   canRetry,
	}
	job.Status = jobModel.JobStatusError
	job.CurrentStep = jobModel.Error
	return job
}

func sourcesOf(citations []commonModels.Citation) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range citations {
		key := c.Title
		if c.Url != "" {
			key = c.Url
		}
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}

func (s *service) executeEmbeddingStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job) result.Result[[]float32] {
	*job = logOutput(*job, jobModel.EmbeddingAPICall, log)
	return s.indexer.GenerateQueryEmbedding(ctx, job.JobPayload.Question)
}

func (s *service) executeCacheCheckStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, emb []float32) (vectorDB.CachedAnswer, bool) {
	*job = logOutput(*job, jobModel.CacheCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("cache_lookup", time.Since(start)) }()

	ans, found, err := s.cache.GetCachedAnswer(ctx, job.UserId, emb)
	if err != nil {
		log.Warn("Semantic cache unavailable", "error", err)
		return vectorDB.CachedAnswer{}, false
	}
	metrics.CaptureCacheLookup("semantic", found)
	return ans, found
}

func (s *service) executeRetrievalStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, emb []float32) result.Result[retrieval.SearchResponse] {
	*job = logOutput(*job, jobModel.RetrievalCall, log)
	return s.searcher.SearchWithEmbedding(ctx, job.UserId, emb, retrieval.SearchRequest{Query: job.JobPayload.Question})
}

func (s *service) executeLLMStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, matches retrieval.SearchResponse, history []jobModel.JobPayload) result.Result[string] {
	*job = logOutput(*job, jobModel.LLMCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	prompt := buildChatPrompt(job.JobPayload.Question, matches, history)
	answer, err := s.llmProvider.Generate(ctx, prompt)
	return result.From(answer, err, result.KindLLM)
}

// finishIndexing records chunk counts on the job and the document. An embedding
// failure leaves the document indexed but unsearchable and marks the job retryable.
func (s *service) finishIndexing(ctx context.Context, job jobModel.Job, doc commonModels.Document, chunks []commonModels.DocChunk, err error) jobModel.Job {
	embedded := 0
	for _, c := range chunks {
		if c.HasEmbedding() {
			embedded++
		}
	}
	job.JobPayload.ChunkCount = len(chunks)
	job.JobPayload.EmbedFailed = err != nil && result.KindOf(err) == result.KindEmbedding

	if len(chunks) > 0 {
		status := embeddingStatusComplete
		if embedded < len(chunks) {
			status = embeddingStatusPending
		}
		meta := make(map[string]any, len(doc.Metadata)+3)
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		meta["chunk_count"] = len(chunks)
		meta["embedded_chunks"] = embedded
		meta["embedding_status"] = status
		if metaErr := s.documents.UpdateDocumentMetadata(ctx, doc.UserId, doc.Id, meta); metaErr != nil {
			s.logger.Ctx(ctx).Warn("Could not record indexing status", "documentId", doc.Id, "error", metaErr)
		}
	}
	if embedded > 0 {
		// answers cached before these chunks were searchable may now be wrong
		if cacheErr := s.cache.InvalidateUser(ctx, doc.UserId); cacheErr != nil {
			s.logger.Ctx(ctx).Warn("Could not drop cached answers", "userId", doc.UserId, "error", cacheErr)
		}
	}

	if err != nil {
		switch result.KindOf(err) {
		case result.KindEmbedding:
			return s.jobError(job, err, "EMBEDDING_FAILURE", true)
		case result.KindInvalidInput:
			return s.jobError(job, err, "INVALID_DOCUMENT", false)
		default:
			return s.jobError(job, err, "INDEXING_FAILURE", true)
		}
	}

	job.CurrentStep = jobModel.Complete
	job.Status = jobModel.JobStatusComplete
	return job
}
