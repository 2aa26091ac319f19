package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/akolanti/ResearchAPI/internal/data/store"
	"github.com/akolanti/ResearchAPI/internal/domain/commonModels"
	"github.com/akolanti/ResearchAPI/pkg/result"
)

type mockEmbedder struct {
	batchFunc func(ctx context.Context, texts []string) ([][]float32, error)
	calls     int
}

func (m *mockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (m *mockEmbedder) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls++
	return m.batchFunc(ctx, texts)
}

func unitVectors(texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out
}

func newDoc() commonModels.Document {
	return commonModels.Document{
		Id:      "doc-1",
		UserId:  "user-1",
		Type:    commonModels.KnowledgeBase,
		Content: strings.Repeat("retrieval augmented generation ", 40),
	}
}

func TestIndexDocument_EmbedsInBatches(t *testing.T) {
	ctx := context.Background()
	docs := store.InitInMemoryDocumentStore()
	_ = docs.CreateDocument(ctx, newDoc())

	em := &mockEmbedder{batchFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
		return unitVectors(texts), nil
	}}
	ix := NewIndexer(docs, em, Options{ChunkSize: 100, ChunkOverlap: 10, BatchSize: 5})

	res := ix.IndexDocument(ctx, newDoc())
	if !res.IsOk() {
		t.Fatalf("IndexDocument failed: %v", res.Error())
	}
	chunks := res.Value()
	if len(chunks) < 6 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	wantCalls := (len(chunks) + 4) / 5
	if em.calls != wantCalls {
		t.Errorf("expected %d embedding calls, got %d", wantCalls, em.calls)
	}
	for i, c := range chunks {
		if c.ChunkIndex != i || !c.HasEmbedding() {
			t.Errorf("chunk %d not indexed/embedded: %+v", i, c)
		}
	}

	searchable, _ := docs.SearchableChunks(ctx, commonModels.ChunkFilter{UserId: "user-1"})
	if len(searchable) != len(chunks) {
		t.Errorf("expected all chunks searchable, got %d", len(searchable))
	}
}

func TestIndexDocument_EmbeddingFailureKeepsChunks(t *testing.T) {
	ctx := context.Background()
	docs := store.InitInMemoryDocumentStore()
	_ = docs.CreateDocument(ctx, newDoc())

	failing := &mockEmbedder{batchFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("quota exceeded")
	}}
	ix := NewIndexer(docs, failing, Options{ChunkSize: 100, ChunkOverlap: 10, BatchSize: 100})

	res := ix.IndexDocument(ctx, newDoc())
	if res.Kind() != result.KindEmbedding {
		t.Fatalf("expected embedding error, got kind %q", res.Kind())
	}
	if !errors.Is(res.Error(), result.ErrEmbedding) {
		t.Errorf("expected errors.Is ErrEmbedding")
	}

	stored, _ := docs.GetChunks(ctx, "doc-1")
	if len(stored) == 0 {
		t.Fatal("chunks should be persisted structurally")
	}
	searchable, _ := docs.SearchableChunks(ctx, commonModels.ChunkFilter{UserId: "user-1"})
	if len(searchable) != 0 {
		t.Errorf("chunks without embeddings must not be searchable")
	}

	// retry keeps the same boundaries
	working := &mockEmbedder{batchFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
		return unitVectors(texts), nil
	}}
	retry := NewIndexer(docs, working, Options{ChunkSize: 100, ChunkOverlap: 10, BatchSize: 100})
	again := retry.ReembedDocument(ctx, "doc-1")
	if !again.IsOk() {
		t.Fatalf("ReembedDocument failed: %v", again.Error())
	}
	for i, c := range again.Value() {
		if c.Id != stored[i].Id || c.Content != stored[i].Content {
			t.Errorf("chunk %d boundaries changed on re-embed", i)
		}
	}

	// idempotent: nothing left to embed
	calls := working.calls
	_ = retry.ReembedDocument(ctx, "doc-1")
	if working.calls != calls {
		t.Errorf("re-embedding an embedded document should not call the API")
	}
}

func TestIndexDocument_RejectsEmptyBeforeExternalCalls(t *testing.T) {
	em := &mockEmbedder{batchFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
		t.Fatal("embedder must not be called")
		return nil, nil
	}}
	ix := NewIndexer(store.InitInMemoryDocumentStore(), em, DefaultOptions())

	res := ix.IndexDocument(context.Background(), commonModels.Document{Id: "d", Content: "  "})
	if res.Kind() != result.KindInvalidInput {
		t.Errorf("expected invalid input, got %q", res.Kind())
	}
}

func TestGetFileType(t *testing.T) {
	tests := []struct {
		path     string
		expected commonModels.FileType
	}{
		{"test.pdf", commonModels.PDF},
		{"DOC.DOCX", commonModels.DOCX},
		{"notes.txt", commonModels.TXT},
		{"image.png", commonModels.ERR},
	}

	for _, tt := range tests {
		if got := GetFileType(tt.path); got != tt.expected {
			t.Errorf("GetFileType(%s) = %v; want %v", tt.path, got, tt.expected)
		}
	}
}
