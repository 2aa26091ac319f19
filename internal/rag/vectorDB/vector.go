package vectorDB

import (
	"context"

	"github.com/akolanti/ResearchAPI/internal/domain/commonModels"
)

// CachedAnswer is a previous chat answer keyed by its question embedding.
type CachedAnswer struct {
	Answer    string                  `json:"answer"`
	Citations []commonModels.Citation `json:"citations,omitempty"`
	Score     float64                 `json:"-"`
}

// SemanticCache finds answers to questions close enough to one already answered for
// the same user.
type SemanticCache interface {
	GetCachedAnswer(ctx context.Context, userId string, queryVector []float32) (CachedAnswer, bool, error)
	SaveToCache(ctx context.Context, userId string, id string, vector []float32, answer CachedAnswer) error
	// InvalidateUser drops every cached answer of userId, e.g. after their searchable
	// chunks changed.
	InvalidateUser(ctx context.Context, userId string) error
}
