package rag_test

import (
	"context"

	"github.com/akolanti/ResearchAPI/internal/rag/llm"
	"github.com/akolanti/ResearchAPI/internal/rag/vectorDB"
)

// MockCache implements vectorDB.SemanticCache
type MockCache struct {
	OnGetCachedAnswer func(ctx context.Context, userId string, queryVector []float32) (vectorDB.CachedAnswer, bool, error)
	OnSaveToCache     func(ctx context.Context, userId string, id string, vector []float32, answer vectorDB.CachedAnswer) error
	OnInvalidateUser  func(ctx context.Context, userId string) error
}

func (m *MockCache) InvalidateUser(ctx context.Context, userId string) error {
	if m.OnInvalidateUser != nil {
		return m.OnInvalidateUser(ctx, userId)
	}
	return nil
}

func (m *MockCache) GetCachedAnswer(ctx context.Context, userId string, v []float32) (vectorDB.CachedAnswer, bool, error) {
	if m.OnGetCachedAnswer != nil {
		return m.OnGetCachedAnswer(ctx, userId, v)
	}
	return vectorDB.CachedAnswer{}, false, nil
}

func (m *MockCache) SaveToCache(ctx context.Context, userId string, id string, v []float32, a vectorDB.CachedAnswer) error {
	if m.OnSaveToCache != nil {
		return m.OnSaveToCache(ctx, userId, id, v, a)
	}
	return nil
}

type MockEmbedder struct {
	OnGetEmbedding   func(ctx context.Context, text string) ([]float32, error)
	OnBatchEmbedding func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if m.OnBatchEmbedding != nil {
		return m.OnBatchEmbedding(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, query)
	}
	return []float32{1, 0}, nil
}

// MockLLM implements llm.Provider
type MockLLM struct {
	OnGenerate func(ctx context.Context, prompt llm.Prompt) (string, error)
}

func (m *MockLLM) Generate(ctx context.Context, prompt llm.Prompt) (string, error) {
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, prompt)
	}
	return "mocked llm response", nil
}
