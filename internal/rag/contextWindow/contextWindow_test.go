package contextWindow

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
)

func msg(id string, role Role, tokens int) Message {
	return Message{Id: id, Role: role, Content: strings.Repeat("abcd", tokens)}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"ääää", 1},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.in); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSelect_AllFit(t *testing.T) {
	messages := []Message{msg("s", RoleSystem, 5), msg("u1", RoleUser, 5), msg("a1", RoleAssistant, 5)}
	w := Select(messages, 100)
	if len(w.ExcludedMessageIds) != 0 {
		t.Errorf("expected no exclusions, got %v", w.ExcludedMessageIds)
	}
	if w.TotalTokens != 15 || len(w.Included) != 3 {
		t.Errorf("unexpected window %+v", w)
	}
}

func TestSelect_KeepsSystemAndNewest(t *testing.T) {
	messages := []Message{
		msg("s", RoleSystem, 10),
		msg("u1", RoleUser, 10),
		msg("a1", RoleAssistant, 10),
		msg("u2", RoleUser, 10),
	}
	w := Select(messages, 30)

	var ids []string
	for _, m := range w.Included {
		ids = append(ids, m.Id)
	}
	if strings.Join(ids, ",") != "s,a1,u2" {
		t.Errorf("expected s,a1,u2 in original order, got %v", ids)
	}
	if strings.Join(w.ExcludedMessageIds, ",") != "u1" {
		t.Errorf("expected u1 excluded, got %v", w.ExcludedMessageIds)
	}
	if got := SummarizeExcluded(w, messages); got != "[1 earlier messages (40 characters) omitted]" {
		t.Errorf("unexpected summary %q", got)
	}
}

func TestSelect_NeverExceedsBudget(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	roles := []Role{RoleSystem, RoleUser, RoleAssistant}

	for round := 0; round < 200; round++ {
		var messages []Message
		for i := 0; i < rng.Intn(12); i++ {
			messages = append(messages, Message{
				Id:     fmt.Sprintf("m%d", i),
				Role:   roles[rng.Intn(len(roles))],
				Tokens: rng.Intn(50) + 1,
			})
		}
		budget := rng.Intn(150)

		w := Select(messages, budget)
		if w.TotalTokens > budget {
			t.Fatalf("round %d: total %d exceeds budget %d", round, w.TotalTokens, budget)
		}
		if len(w.Included)+len(w.ExcludedMessageIds) != len(messages) {
			t.Fatalf("round %d: messages lost", round)
		}
	}
}

func TestSummarizeExcluded_EmptyWhenNothingExcluded(t *testing.T) {
	messages := []Message{msg("u", RoleUser, 1)}
	if got := SummarizeExcluded(Select(messages, 10), messages); got != "" {
		t.Errorf("expected empty summary, got %q", got)
	}
}

func TestSelect_HistoryStaysContiguous(t *testing.T) {
	messages := []Message{
		msg("old-small", RoleUser, 1),
		msg("big", RoleAssistant, 50),
		msg("new", RoleUser, 5),
	}
	w := Select(messages, 10)
	if len(w.Included) != 1 || w.Included[0].Id != "new" {
		t.Errorf("expected only the newest message, got %+v", w.Included)
	}
}
