package commonModels

import (
	"context"
	"errors"
	"time"
)

type DocType string

const (
	Upload        DocType = "upload"
	Web           DocType = "web"
	KnowledgeBase DocType = "knowledge_base"
)

func (t DocType) Valid() bool {
	switch t {
	case Upload, Web, KnowledgeBase:
		return true
	}
	return false
}

// FileType is the on-disk format of an uploaded document.
type FileType string

var PDF FileType = "PDF"
var DOCX FileType = "DOCX"
var TXT FileType = "TXT"
var ERR FileType = "ERROR"

var ErrNotFound = errors.New("not found")

type Document struct {
	Id        string         `json:"id"`
	UserId    string         `json:"user_id"`
	Title     string         `json:"title"`
	Type      DocType        `json:"type"`
	Source    string         `json:"source,omitempty"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// DocChunk is a contiguous slice of a document. Overlap is the number of leading
// runes shared with the previous chunk of the same document.
type DocChunk struct {
	Id         string         `json:"id"`
	DocumentId string         `json:"document_id"`
	Content    string         `json:"content"`
	ChunkIndex int            `json:"chunk_index"`
	Overlap    int            `json:"overlap"`
	Embedding  []float32      `json:"embedding,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func (c DocChunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// ChunkWithDoc is a chunk joined with the fields of its document needed for citations.
type ChunkWithDoc struct {
	DocChunk
	DocTitle  string  `json:"doc_title"`
	DocType   DocType `json:"doc_type"`
	DocSource string  `json:"doc_source,omitempty"`
}

type ChunkFilter struct {
	UserId      string
	DocumentIds []string
	Types       []DocType
}

type ScoredChunk struct {
	Chunk ChunkWithDoc `json:"chunk"`
	Score float64      `json:"score"`
}

type Citation struct {
	Id        int     `json:"id"`
	Source    string  `json:"source"`
	Url       string  `json:"url,omitempty"`
	Title     string  `json:"title"`
	Quote     string  `json:"quote"`
	Relevance float64 `json:"relevance"`
}

type UserSummary struct {
	UserId         string    `json:"user_id"`
	Documents      int       `json:"documents"`
	Chunks         int       `json:"chunks"`
	EmbeddedChunks int       `json:"embedded_chunks"`
	SavedResearch  int       `json:"saved_research"`
	GeneratedAt    time.Time `json:"generated_at"`
}

type DocumentStore interface {
	CreateDocument(ctx context.Context, doc Document) error
	GetDocument(ctx context.Context, userId string, id string) (Document, error)
	UpdateDocumentMetadata(ctx context.Context, userId string, id string, metadata map[string]any) error
	// SaveChunks replaces all chunks of a document in one batch.
	SaveChunks(ctx context.Context, documentId string, chunks []DocChunk) error
	// UpdateChunkEmbeddings writes embeddings keyed by chunk index.
	UpdateChunkEmbeddings(ctx context.Context, documentId string, embeddings map[int][]float32) error
	GetChunks(ctx context.Context, documentId string) ([]DocChunk, error)
	// SearchableChunks returns the filtered chunks that carry an embedding, in a stable order.
	SearchableChunks(ctx context.Context, filter ChunkFilter) ([]ChunkWithDoc, error)
	Summary(ctx context.Context, userId string) (UserSummary, error)
}
