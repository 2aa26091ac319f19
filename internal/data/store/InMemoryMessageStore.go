package store

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/ResearchAPI/internal/config"
	"github.com/akolanti/ResearchAPI/internal/domain/jobModel"
)

type chatLog struct {
	owner     string
	exchanges []jobModel.JobPayload
	expiresAt time.Time
}

// InMemoryMessageStore keeps chat history per chat id. Like the redis list, a chat's
// TTL is refreshed on every write.
type InMemoryMessageStore struct {
	mu    sync.RWMutex
	chats map[string]*chatLog
	ttl   time.Duration
	now   func() time.Time
}

func InitMessageStore() *InMemoryMessageStore {
	return NewInMemoryMessageStore(config.RedisMessageStoreTTL, time.Now)
}

func NewInMemoryMessageStore(ttl time.Duration, now func() time.Time) *InMemoryMessageStore {
	return &InMemoryMessageStore{
		chats: make(map[string]*chatLog),
		ttl:   ttl,
		now:   now,
	}
}

// live returns the chat if it exists, belongs to userId and has not expired. Callers
// hold the lock.
func (s *InMemoryMessageStore) live(userId string, chatId string) (*chatLog, bool) {
	c, ok := s.chats[chatId]
	if !ok || userId == "" || c.owner != userId || s.now().After(c.expiresAt) {
		return nil, false
	}
	return c, true
}

func (s *InMemoryMessageStore) ValidateChatId(ctx context.Context, userId string, chatId string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.live(userId, chatId)
	return ok
}

func (s *InMemoryMessageStore) TrySaveChat(ctx context.Context, userId string, id string, exchange jobModel.JobPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.live(userId, id)
	if !ok {
		return ErrInvalidChatId
	}
	c.exchanges = append(c.exchanges, exchange)
	c.expiresAt = s.now().Add(s.ttl)
	inMemLogger.Ctx(ctx).Debug("Saved exchange to chat", "chatId", id, "length", len(c.exchanges))
	return nil
}

// InitNewChat starts an empty history owned by userId. An id held by another live
// owner is refused.
func (s *InMemoryMessageStore) InitNewChat(ctx context.Context, userId string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if userId == "" {
		return ErrInvalidChatId
	}
	if c, ok := s.chats[id]; ok && c.owner != userId && !s.now().After(c.expiresAt) {
		return ErrInvalidChatId
	}
	s.chats[id] = &chatLog{owner: userId, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *InMemoryMessageStore) GetMessageHistory(ctx context.Context, userId string, chatId string, limit int) ([]jobModel.JobPayload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.live(userId, chatId)
	if !ok {
		return nil, ErrInvalidChatId
	}
	history := c.exchanges
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	out := make([]jobModel.JobPayload, len(history))
	copy(out, history)
	return out, nil
}
