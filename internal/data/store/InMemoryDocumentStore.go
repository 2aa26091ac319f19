package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/akolanti/ResearchAPI/internal/domain/commonModels"
	"github.com/akolanti/ResearchAPI/internal/domain/researchModel"
	"github.com/google/uuid"
)

// InMemoryDocumentStore backs documents, chunks and saved research when Postgres is
// not configured.
type InMemoryDocumentStore struct {
	mu       sync.RWMutex
	docs     map[string]commonModels.Document
	chunks   map[string][]commonModels.DocChunk
	research map[string]researchModel.DeepResearchResult
}

func InitInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{
		docs:     make(map[string]commonModels.Document),
		chunks:   make(map[string][]commonModels.DocChunk),
		research: make(map[string]researchModel.DeepResearchResult),
	}
}

func (s *InMemoryDocumentStore) CreateDocument(ctx context.Context, doc commonModels.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.Id] = doc
	return nil
}

func (s *InMemoryDocumentStore) GetDocument(ctx context.Context, userId string, id string) (commonModels.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok || doc.UserId != userId {
		return commonModels.Document{}, commonModels.ErrNotFound
	}
	return doc, nil
}

func (s *InMemoryDocumentStore) UpdateDocumentMetadata(ctx context.Context, userId string, id string, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok || doc.UserId != userId {
		return commonModels.ErrNotFound
	}
	doc.Metadata = metadata
	s.docs[id] = doc
	return nil
}

func (s *InMemoryDocumentStore) SaveChunks(ctx context.Context, documentId string, chunks []commonModels.DocChunk) error {
	stored := make([]commonModels.DocChunk, len(chunks))
	for i, c := range chunks {
		if c.Id == "" {
			c.Id = uuid.NewString()
		}
		c.DocumentId = documentId
		stored[i] = c
	}
	sort.SliceStable(stored, func(i, j int) bool { return stored[i].ChunkIndex < stored[j].ChunkIndex })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[documentId] = stored
	return nil
}

func (s *InMemoryDocumentStore) UpdateChunkEmbeddings(ctx context.Context, documentId string, embeddings map[int][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chunks := s.chunks[documentId]
	for i := range chunks {
		if emb, ok := embeddings[chunks[i].ChunkIndex]; ok {
			chunks[i].Embedding = emb
		}
	}
	return nil
}

func (s *InMemoryDocumentStore) GetChunks(ctx context.Context, documentId string) ([]commonModels.DocChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]commonModels.DocChunk, len(s.chunks[documentId]))
	copy(out, s.chunks[documentId])
	return out, nil
}

func (s *InMemoryDocumentStore) SearchableChunks(ctx context.Context, filter commonModels.ChunkFilter) ([]commonModels.ChunkWithDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]commonModels.Document, 0)
	for _, d := range s.docs {
		if d.UserId != filter.UserId || !matchesFilter(d, filter) {
			continue
		}
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].Id < docs[j].Id
		}
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})

	var out []commonModels.ChunkWithDoc
	for _, d := range docs {
		for _, c := range s.chunks[d.Id] {
			if !c.HasEmbedding() {
				continue
			}
			out = append(out, commonModels.ChunkWithDoc{
				DocChunk:  c,
				DocTitle:  d.Title,
				DocType:   d.Type,
				DocSource: d.Source,
			})
		}
	}
	return out, nil
}

func matchesFilter(d commonModels.Document, filter commonModels.ChunkFilter) bool {
	if len(filter.DocumentIds) > 0 && !contains(filter.DocumentIds, d.Id) {
		return false
	}
	if len(filter.Types) > 0 {
		found := false
		for _, t := range filter.Types {
			if t == d.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func (s *InMemoryDocumentStore) Summary(ctx context.Context, userId string) (commonModels.UserSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := commonModels.UserSummary{UserId: userId, GeneratedAt: time.Now().UTC()}
	for id, d := range s.docs {
		if d.UserId != userId {
			continue
		}
		sum.Documents++
		for _, c := range s.chunks[id] {
			sum.Chunks++
			if c.HasEmbedding() {
				sum.EmbeddedChunks++
			}
		}
	}
	for _, r := range s.research {
		if r.UserId == userId {
			sum.SavedResearch++
		}
	}
	return sum, nil
}

func (s *InMemoryDocumentStore) SaveResult(ctx context.Context, userId string, result researchModel.DeepResearchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	result.UserId = userId
	s.research[result.Id] = result
	return nil
}

func (s *InMemoryDocumentStore) GetResult(ctx context.Context, userId string, id string) (researchModel.DeepResearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.research[id]
	if !ok || r.UserId != userId {
		return researchModel.DeepResearchResult{}, commonModels.ErrNotFound
	}
	return r, nil
}

func (s *InMemoryDocumentStore) ListResults(ctx context.Context, userId string) ([]researchModel.ResultSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []researchModel.ResultSummary{}
	for _, r := range s.research {
		if r.UserId != userId {
			continue
		}
		out = append(out, researchModel.ResultSummary{
			Id:             r.Id,
			Query:          r.Query,
			Title:          r.Outline.Title,
			TotalWordCount: r.TotalWordCount,
			TotalSources:   r.TotalSources,
			CreatedAt:      r.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
