package rag

import (
	"context"
	"errors"
	"time"

	"github.com/akolanti/ResearchAPI/internal/config"
	"github.com/akolanti/ResearchAPI/internal/domain/commonModels"
	"github.com/akolanti/ResearchAPI/internal/domain/jobModel"
	"github.com/akolanti/ResearchAPI/internal/metrics"
	"github.com/akolanti/ResearchAPI/internal/rag/ingest"
	"github.com/akolanti/ResearchAPI/internal/rag/llm"
	"github.com/akolanti/ResearchAPI/internal/rag/retrieval"
	"github.com/akolanti/ResearchAPI/internal/rag/vectorDB"
	"github.com/akolanti/ResearchAPI/pkg/logger_i"
	"github.com/google/uuid"
)

// Service is what the worker calls. Storage, embedding and model clients stay behind it.
type Service interface {
	ProcessRequest(ctx context.Context, job jobModel.Job, messageHistory []jobModel.JobPayload) jobModel.Job
	IndexDocument(ctx context.Context, job jobModel.Job) jobModel.Job
	ReembedDocument(ctx context.Context, job jobModel.Job) jobModel.Job
}

type service struct {
	cache       vectorDB.SemanticCache
	llmProvider llm.Provider
	indexer     ingest.Indexer
	searcher    retrieval.Searcher
	documents   commonModels.DocumentStore
	logger      *logger_i.Logger
}

func NewService(cache vectorDB.SemanticCache, provider llm.Provider, indexer ingest.Indexer, searcher retrieval.Searcher, documents commonModels.DocumentStore) Service {
	return &service{
		cache:       cache,
		llmProvider: provider,
		indexer:     indexer,
		searcher:    searcher,
		documents:   documents,
		logger:      logger_i.NewLogger("RAG Service"),
	}
}

func (s *service) ProcessRequest(ctx context.Context, jobt jobModel.Job, messageHistory []jobModel.JobPayload) jobModel.Job {
	log := s.logger.Ctx(ctx).With("jobId", jobt.Id)

	processContext, cancel := context.WithTimeout(ctx, config.JobTimeout)
	defer cancel()

	jobt.CurrentStep = jobModel.RAGCall

	queryEmbedding := s.executeEmbeddingStep(processContext, log, &jobt)
	if !queryEmbedding.IsOk() {
		return s.jobError(jobt, queryEmbedding.Error(), "EMBEDDING_FAILURE", true)
	}

	// a follow-up is answered against the conversation, so only first turns share answers
	cacheable := len(messageHistory) == 0
	if cacheable {
		if cached, found := s.executeCacheCheckStep(processContext, log, &jobt, queryEmbedding.Value()); found {
			jobt.JobPayload.Citations = cached.Citations
			return returnOutput(jobt, cached.Answer)
		}
	}

	matches := s.executeRetrievalStep(processContext, log, &jobt, queryEmbedding.Value())
	if !matches.IsOk() {
		return s.jobError(jobt, matches.Error(), "RETRIEVAL_FAILURE", true)
	}
	jobt.JobPayload.Citations = matches.Value().Citations
	jobt.JobPayload.Sources = sourcesOf(matches.Value().Citations)

	answer := s.executeLLMStep(processContext, log, &jobt, matches.Value(), messageHistory)
	if !answer.IsOk() {
		return s.jobError(jobt, answer.Error(), "LLM_GENERATION_FAILURE", true)
	}

	if !cacheable {
		return returnOutput(jobt, answer.Value())
	}

	// the request context may already be done once the job is answered
	cacheCtx := context.WithoutCancel(ctx)
	userId, vec := jobt.UserId, queryEmbedding.Value()
	toCache := vectorDB.CachedAnswer{Answer: answer.Value(), Citations: jobt.JobPayload.Citations}
	go func() {
		saveCtx, cancel := context.WithTimeout(cacheCtx, 10*time.Second)
		defer cancel()
		if err := s.cache.SaveToCache(saveCtx, userId, uuid.NewString(), vec, toCache); err != nil {
			s.logger.Error("Failed to save to cache", "error", err)
		}
	}()

	return returnOutput(jobt, answer.Value())
}

func (s *service) IndexDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_indexing", time.Since(start)) }()

	job.CurrentStep = jobModel.IndexInit
	doc, err := s.documents.GetDocument(ctx, job.UserId, job.JobPayload.DocumentId)
	if err != nil {
		return s.jobError(job, err, "DOCUMENT_LOOKUP_FAILURE", !errors.Is(err, commonModels.ErrNotFound))
	}

	job.CurrentStep = jobModel.IndexChunking
	res := s.indexer.IndexDocument(ctx, doc)
	return s.finishIndexing(ctx, job, doc, res.Value(), res.Error())
}

func (s *service) ReembedDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_reembedding", time.Since(start)) }()

	doc, err := s.documents.GetDocument(ctx, job.UserId, job.JobPayload.DocumentId)
	if err != nil {
		return s.jobError(job, err, "DOCUMENT_LOOKUP_FAILURE", !errors.Is(err, commonModels.ErrNotFound))
	}

	job.CurrentStep = jobModel.IndexEmbedding
	res := s.indexer.ReembedDocument(ctx, doc.Id)
	return s.finishIndexing(ctx, job, doc, res.Value(), res.Error())
}
