package adapter

import (
	"fmt"
	"time"

	"github.com/akolanti/ResearchAPI/internal/api"
	"github.com/akolanti/ResearchAPI/internal/domain/commonModels"
	"github.com/akolanti/ResearchAPI/internal/domain/jobModel"
	"github.com/akolanti/ResearchAPI/internal/rag/retrieval"
)

func ToInitJobResponse(job jobModel.Job) api.InitJobResponse {
	return api.InitJobResponse{
		Id:         job.Id,
		StatusURL:  fmt.Sprintf("/status/%s", job.Id),
		ChatId:     job.ChatId,
		DocumentId: job.JobPayload.DocumentId,
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {
	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{Status: string(job.Status)}
	switch job.JobType {
	case jobModel.JobTypeIndex, jobModel.JobTypeReembed:
		if job.Status != jobModel.JobStatusQueued {
			result.Index = &api.IndexResponse{
				DocumentId:  job.JobPayload.DocumentId,
				ChunkCount:  job.JobPayload.ChunkCount,
				EmbedFailed: job.JobPayload.EmbedFailed,
			}
		}
	case jobModel.JobTypeResearch:
		result.Research = job.JobPayload.ResearchResult
	default:
		result.RAGExternalResponse = ToRAGExternalStatus(job.JobPayload)
	}

	return api.JobResponse{
		Id:        job.Id,
		ChatId:    job.ChatId,
		JobType:   string(job.JobType),
		Step:      string(job.CurrentStep),
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToRAGExternalStatus(ragData jobModel.JobPayload) *api.RAGResponse {
	if ragData.Answer == "" && len(ragData.Sources) == 0 {
		return nil
	}

	return &api.RAGResponse{
		Question:  ragData.Question,
		Answer:    ragData.Answer,
		Sources:   ragData.Sources,
		Citations: ragData.Citations,
	}
}

func ToDocumentResponse(doc commonModels.Document, chunks []commonModels.DocChunk) api.DocumentResponse {
	embedded := 0
	for _, c := range chunks {
		if c.HasEmbedding() {
			embedded++
		}
	}
	return api.DocumentResponse{
		Id:         doc.Id,
		Title:      doc.Title,
		Type:       doc.Type,
		Source:     doc.Source,
		Metadata:   doc.Metadata,
		ChunkCount: len(chunks),
		Embedded:   embedded,
		CreatedAt:  doc.CreatedAt,
	}
}

func ToSearchResponse(res retrieval.SearchResponse) api.SearchResponse {
	out := api.SearchResponse{
		Results:   res.Results,
		Citations: res.Citations,
	}
	if out.Results == nil {
		out.Results = []commonModels.ScoredChunk{}
	}
	if out.Citations == nil {
		out.Citations = []commonModels.Citation{}
	}
	// vectors are internal
	for i := range out.Results {
		out.Results[i].Chunk.Embedding = nil
	}
	return out
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}
