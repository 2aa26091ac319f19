package vectorDB

import (
	"context"
	"sync"

	"github.com/akolanti/ResearchAPI/internal/config"
	"github.com/akolanti/ResearchAPI/internal/rag/retrieval"
)

type memoryEntry struct {
	userId string
	vector []float32
	answer CachedAnswer
}

// MemoryCache is the in-process fallback used when Qdrant is unreachable. It scans
// linearly and keeps at most maxEntries, dropping the oldest.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    []memoryEntry
	maxEntries int
	cutoff     float64
}

func NewMemoryCache(maxEntries int) *MemoryCache {
	return &MemoryCache{maxEntries: maxEntries, cutoff: config.CacheSimilarityCutoff}
}

func (m *MemoryCache) GetCachedAnswer(ctx context.Context, userId string, queryVector []float32) (CachedAnswer, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var (
		best  CachedAnswer
		found bool
	)
	for _, e := range m.entries {
		if e.userId != userId {
			continue
		}
		score, err := retrieval.CosineSimilarity(queryVector, e.vector)
		if err != nil {
			continue
		}
		if score >= m.cutoff && (!found || score > best.Score) {
			best = e.answer
			best.Score = score
			found = true
		}
	}
	return best, found, nil
}

func (m *MemoryCache) InvalidateUser(ctx context.Context, userId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.userId != userId {
			kept = append(kept, e)
		}
	}
	clear(m.entries[len(kept):])
	m.entries = kept
	return nil
}

func (m *MemoryCache) SaveToCache(ctx context.Context, userId string, id string, vector []float32, answer CachedAnswer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, memoryEntry{userId: userId, vector: vector, answer: answer})
	if m.maxEntries > 0 && len(m.entries) > m.maxEntries {
		m.entries = m.entries[len(m.entries)-m.maxEntries:]
	}
	return nil
}
