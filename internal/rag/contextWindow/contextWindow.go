package contextWindow

import (
	"fmt"
	"unicode/utf8"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Id      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// Tokens is estimated from Content when zero.
	Tokens int `json:"tokens,omitempty"`
}

type Window struct {
	Included           []Message `json:"included"`
	TotalTokens        int       `json:"total_tokens"`
	ExcludedMessageIds []string  `json:"excluded_message_ids"`
}

// EstimateTokens approximates a token count as one token per four characters.
func EstimateTokens(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

func tokensOf(m Message) int {
	if m.Tokens > 0 {
		return m.Tokens
	}
	return EstimateTokens(m.Content)
}

// Select fits messages into maxTokens. System messages are admitted first, then the
// remaining messages newest first until one does not fit. Included messages keep
// their original order.
func Select(messages []Message, maxTokens int) Window {
	keep := make([]bool, len(messages))
	total := 0

	// system messages skip what does not fit; history stops at the first overflow so
	// the kept conversation stays contiguous
	admit := func(system bool) {
		for i := len(messages) - 1; i >= 0; i-- {
			if (messages[i].Role == RoleSystem) != system {
				continue
			}
			t := tokensOf(messages[i])
			if total+t > maxTokens {
				if system {
					continue
				}
				return
			}
			keep[i] = true
			total += t
		}
	}
	admit(true)
	admit(false)

	w := Window{
		Included:           make([]Message, 0, len(messages)),
		ExcludedMessageIds: []string{},
		TotalTokens:        total,
	}
	for i, m := range messages {
		if keep[i] {
			w.Included = append(w.Included, m)
		} else {
			w.ExcludedMessageIds = append(w.ExcludedMessageIds, m.Id)
		}
	}
	return w
}

// SummarizeExcluded describes what Select left out, or returns "" when nothing was.
func SummarizeExcluded(w Window, messages []Message) string {
	if len(w.ExcludedMessageIds) == 0 {
		return ""
	}
	excluded := make(map[string]bool, len(w.ExcludedMessageIds))
	for _, id := range w.ExcludedMessageIds {
		excluded[id] = true
	}
	chars := 0
	for _, m := range messages {
		if excluded[m.Id] {
			chars += utf8.RuneCountInString(m.Content)
		}
	}
	return fmt.Sprintf("[%d earlier messages (%d characters) omitted]", len(w.ExcludedMessageIds), chars)
}
