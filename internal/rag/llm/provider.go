package llm

import (
	"context"
	"errors"
)

var ErrEmptyCompletion = errors.New("llm returned an empty completion")

// Prompt is one system + user exchange. JSON asks the provider for a JSON object reply
// where it supports that.
type Prompt struct {
	System string
	User   string
	JSON   bool
}

type Provider interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}
