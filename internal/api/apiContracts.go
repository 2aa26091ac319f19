package api

import (
	"time"

	"github.com/akolanti/ResearchAPI/internal/domain/commonModels"
	"github.com/akolanti/ResearchAPI/internal/domain/researchModel"
)

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	ChatId    string            `json:"chat_id,omitempty" example:"chat_550"`
	JobType   string            `json:"job_type,omitempty" example:"Query"`
	Step      string            `json:"current_step,omitempty" example:"LLM"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type RAGResponse struct {
	Question  string                  `json:"question"`
	Answer    string                  `json:"answer"`
	Sources   []string                `json:"sources"`
	Citations []commonModels.Citation `json:"citations,omitempty"`
}

type IndexResponse struct {
	DocumentId  string `json:"document_id"`
	ChunkCount  int    `json:"chunk_count"`
	EmbedFailed bool   `json:"embed_failed"`
}

type Result struct {
	Status              string                            `json:"status"`
	RAGExternalResponse *RAGResponse                      `json:"rag_response,omitempty"`
	Index               *IndexResponse                    `json:"index,omitempty"`
	Research            *researchModel.DeepResearchResult `json:"research,omitempty"`
}

type InitJobResponse struct {
	Id         string `json:"id"`
	StatusURL  string `json:"status_url"`
	ChatId     string `json:"chat_id,omitempty"`
	DocumentId string `json:"document_id,omitempty"`
}

type DocumentResponse struct {
	Id         string               `json:"id"`
	Title      string               `json:"title"`
	Type       commonModels.DocType `json:"type"`
	Source     string               `json:"source,omitempty"`
	Metadata   map[string]any       `json:"metadata,omitempty"`
	ChunkCount int                  `json:"chunk_count"`
	Embedded   int                  `json:"embedded_chunks"`
	CreatedAt  time.Time            `json:"created_at"`
}

type SearchResponse struct {
	Results   []commonModels.ScoredChunk `json:"results"`
	Citations []commonModels.Citation    `json:"citations"`
}

type SaveResearchResponse struct {
	Id string `json:"id"`
}

// requests---------------------

type ChatRequest struct {
	Message string `json:"message" validate:"required"`
	ChatID  string `json:"chatID,omitempty"`
}

type CreateDocumentRequest struct {
	Title    string         `json:"title" validate:"required,max=300"`
	Content  string         `json:"content" validate:"required"`
	Type     string         `json:"type,omitempty" validate:"omitempty,oneof=upload web knowledge_base"`
	Source   string         `json:"source,omitempty" validate:"omitempty,url"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type UrlDocumentRequest struct {
	Url   string `json:"url" validate:"required,url"`
	Title string `json:"title,omitempty" validate:"max=300"`
}

type SearchRequest struct {
	Query       string   `json:"query" validate:"required"`
	TopK        int      `json:"top_k,omitempty" validate:"min=0,max=50"`
	DocumentIds []string `json:"document_ids,omitempty"`
	Types       []string `json:"types,omitempty" validate:"dive,oneof=upload web knowledge_base"`
}

type ResearchRequest struct {
	Query string `json:"query" validate:"required,max=1000"`
}
