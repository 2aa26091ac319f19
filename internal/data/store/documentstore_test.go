package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akolanti/ResearchAPI/internal/data/store"
	"github.com/akolanti/ResearchAPI/internal/domain/commonModels"
	"github.com/akolanti/ResearchAPI/internal/domain/researchModel"
)

func TestInMemoryDocumentStore_SearchableChunks(t *testing.T) {
	ctx := context.Background()
	s := store.InitInMemoryDocumentStore()
	now := time.Now()

	_ = s.CreateDocument(ctx, commonModels.Document{Id: "d1", UserId: "u1", Type: commonModels.Upload, CreatedAt: now})
	_ = s.CreateDocument(ctx, commonModels.Document{Id: "d2", UserId: "u1", Type: commonModels.Web, CreatedAt: now.Add(time.Second)})
	_ = s.CreateDocument(ctx, commonModels.Document{Id: "d3", UserId: "u2", Type: commonModels.Web, CreatedAt: now})

	_ = s.SaveChunks(ctx, "d1", []commonModels.DocChunk{{ChunkIndex: 0}, {ChunkIndex: 1}})
	_ = s.SaveChunks(ctx, "d2", []commonModels.DocChunk{{ChunkIndex: 0}})
	_ = s.SaveChunks(ctx, "d3", []commonModels.DocChunk{{ChunkIndex: 0}})
	_ = s.UpdateChunkEmbeddings(ctx, "d1", map[int][]float32{1: {1, 0}})
	_ = s.UpdateChunkEmbeddings(ctx, "d2", map[int][]float32{0: {0, 1}})
	_ = s.UpdateChunkEmbeddings(ctx, "d3", map[int][]float32{0: {0, 1}})

	tests := []struct {
		name   string
		filter commonModels.ChunkFilter
		want   []string
	}{
		{"all of user", commonModels.ChunkFilter{UserId: "u1"}, []string{"d1", "d2"}},
		{"by type", commonModels.ChunkFilter{UserId: "u1", Types: []commonModels.DocType{commonModels.Web}}, []string{"d2"}},
		{"by document", commonModels.ChunkFilter{UserId: "u1", DocumentIds: []string{"d1"}}, []string{"d1"}},
		{"other user", commonModels.ChunkFilter{UserId: "u3"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.SearchableChunks(ctx, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d chunks, got %d", len(tt.want), len(got))
			}
			for i, c := range got {
				if c.DocumentId != tt.want[i] {
					t.Errorf("chunk %d: expected doc %s, got %s", i, tt.want[i], c.DocumentId)
				}
			}
		})
	}

	sum, _ := s.Summary(ctx, "u1")
	if sum.Documents != 2 || sum.Chunks != 3 || sum.EmbeddedChunks != 2 {
		t.Errorf("unexpected summary %+v", sum)
	}
}

func TestInMemoryDocumentStore_ResearchOwnership(t *testing.T) {
	ctx := context.Background()
	s := store.InitInMemoryDocumentStore()

	_ = s.SaveResult(ctx, "u1", researchModel.DeepResearchResult{Id: "r1", Query: "q"})

	if _, err := s.GetResult(ctx, "u2", "r1"); !errors.Is(err, commonModels.ErrNotFound) {
		t.Errorf("other user should not see result, got %v", err)
	}
	list, _ := s.ListResults(ctx, "u1")
	if len(list) != 1 || list[0].Id != "r1" {
		t.Errorf("unexpected list %+v", list)
	}
}
