package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/akolanti/ResearchAPI/internal/config"
	"github.com/akolanti/ResearchAPI/internal/data/redisStore"
	"github.com/akolanti/ResearchAPI/internal/domain/jobModel"
	"github.com/akolanti/ResearchAPI/pkg/logger_i"
)

const chatKeyPrefix = "chat:"

var ErrInvalidChatId = errors.New("invalid chat id")

// chatKey scopes the history list to its owner, so another user's chat id never
// resolves.
func chatKey(userId string, chatId string) string {
	return chatKeyPrefix + userId + ":" + chatId
}

type RedisMessageStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

// GetRedisMessageStore returns nil when redis is offline.
func GetRedisMessageStore(ctx context.Context, opts redisStore.Options) *RedisMessageStore {
	s := redisStore.GetRedisStore(ctx, opts, config.RedisMessageStore)
	if s == nil {
		return nil
	}
	return NewRedisMessageStore(s)
}

func NewRedisMessageStore(s *redisStore.Store) *RedisMessageStore {
	return &RedisMessageStore{
		store:  s,
		logger: logger_i.NewLogger("MessageStore"),
	}
}

func (s *RedisMessageStore) ValidateChatId(ctx context.Context, userId string, chatId string) bool {
	if userId == "" || chatId == "" {
		return false
	}
	log := s.logger.Ctx(ctx).With("chatId", chatId)
	isFound, err := s.store.Exists(ctx, chatKey(userId, chatId))
	if err != nil {
		log.Error("Failed to check if chatId exists", "error", err)
		return false
	}
	return isFound
}

func (s *RedisMessageStore) TrySaveChat(ctx context.Context, userId string, id string, conversation jobModel.JobPayload) error {
	if !s.ValidateChatId(ctx, userId, id) {
		s.logger.Ctx(ctx).Warn("Refusing to save to unknown chat", "chatId", id)
		return ErrInvalidChatId
	}
	return s.saveChat(ctx, chatKey(userId, id), id, conversation)
}

func (s *RedisMessageStore) saveChat(ctx context.Context, key string, id string, conversation jobModel.JobPayload) error {
	log := s.logger.Ctx(ctx).With("chatId", id)
	data, err := json.Marshal(conversation)
	if err != nil {
		return err
	}
	if err = s.store.ListPush(ctx, key, data, config.RedisMessageStoreTTL); err != nil {
		log.Error("Error saving chat", "error", err)
		return err
	}
	log.Debug("Saved chat successfully")
	return nil
}

// InitNewChat resets the history; an empty marker entry keeps the key alive.
func (s *RedisMessageStore) InitNewChat(ctx context.Context, userId string, id string) error {
	if userId == "" {
		return ErrInvalidChatId
	}
	s.logger.Ctx(ctx).Debug("Initializing new chat", "chatId", id)
	key := chatKey(userId, id)
	if err := s.store.Del(ctx, key); err != nil {
		return err
	}
	return s.saveChat(ctx, key, id, jobModel.JobPayload{})
}

func (s *RedisMessageStore) GetMessageHistory(ctx context.Context, userId string, chatId string, limit int) ([]jobModel.JobPayload, error) {
	log := s.logger.Ctx(ctx).With("chatId", chatId)
	if !s.ValidateChatId(ctx, userId, chatId) {
		return nil, ErrInvalidChatId
	}

	raw, err := s.store.ListGetLast(ctx, chatKey(userId, chatId), int64(limit))
	if err != nil {
		log.Error("Error getting history", "error", err)
		return nil, err
	}

	history := make([]jobModel.JobPayload, 0, len(raw))
	for _, entry := range raw {
		var payload jobModel.JobPayload
		if err := json.Unmarshal([]byte(entry), &payload); err != nil {
			log.Warn("Skipping corrupt history entry", "error", err)
			continue
		}
		if payload.Question == "" && payload.Answer == "" {
			continue
		}
		history = append(history, payload)
	}
	return history, nil
}
