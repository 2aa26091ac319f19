package jobModel

import (
	"context"
	"time"

	"github.com/akolanti/ResearchAPI/internal/domain/commonModels"
	"github.com/akolanti/ResearchAPI/internal/domain/researchModel"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	UserQueryInit    InternalStatus = "Init"
	CacheCall        InternalStatus = "CacheCall"
	RAGCall          InternalStatus = "RAG"
	LLMCall          InternalStatus = "LLM"
	RetrievalCall    InternalStatus = "Retrieval"
	EmbeddingAPICall InternalStatus = "EmbeddingAPI"
	RedisCall        InternalStatus = "Redis"

	IndexInit       InternalStatus = "IndexInit"
	IndexChunking   InternalStatus = "IndexChunking"
	IndexEmbedding  InternalStatus = "IndexEmbedding"
	ResearchStarted InternalStatus = "ResearchStarted"
	Error           InternalStatus = "Error"

	Complete InternalStatus = "Complete"

	JobTypeQuery    JobType = "Query"
	JobTypeIndex    JobType = "Index"
	JobTypeReembed  JobType = "Reembed"
	JobTypeResearch JobType = "Research"
)

type Job struct {
	Id          string         `json:"id"`
	UserId      string         `json:"user_id"`
	ChatId      string         `json:"chat_id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

// Finished reports whether the job reached a terminal status.
func (j Job) Finished() bool {
	return j.Status == JobStatusComplete || j.Status == JobStatusError
}

func (j Job) OwnedBy(userId string) bool {
	return j.UserId != "" && j.UserId == userId
}

// ResearchReady reports whether a research job finished with a report to save.
func (j Job) ResearchReady() bool {
	return j.JobType == JobTypeResearch && j.Status == JobStatusComplete && j.JobPayload.ResearchResult != nil
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

type JobPayload struct {
	Question  string                  `json:"question,omitempty"`
	Answer    string                  `json:"answer,omitempty"`
	Sources   []string                `json:"sources,omitempty"`
	Citations []commonModels.Citation `json:"citations,omitempty"`

	DocumentId  string `json:"document_id,omitempty"`
	ChunkCount  int    `json:"chunk_count,omitempty"`
	EmbedFailed bool   `json:"embed_failed,omitempty"`

	ResearchQuery  string                            `json:"research_query,omitempty"`
	ResearchResult *researchModel.DeepResearchResult `json:"research_result,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}

// MessageStore keeps chat history per owner. A chat id is only visible to the user
// that started it.
type MessageStore interface {
	ValidateChatId(ctx context.Context, userId string, id string) bool
	TrySaveChat(ctx context.Context, userId string, id string, JobPayload JobPayload) error
	InitNewChat(ctx context.Context, userId string, id string) error
	// GetMessageHistory returns up to limit of the latest exchanges, oldest first.
	GetMessageHistory(ctx context.Context, userId string, chatId string, limit int) ([]JobPayload, error)
}
