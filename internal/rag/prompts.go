package rag

import (
	"fmt"
	"strings"

	"github.com/akolanti/ResearchAPI/internal/config"
	"github.com/akolanti/ResearchAPI/internal/domain/jobModel"
	"github.com/akolanti/ResearchAPI/internal/rag/contextWindow"
	"github.com/akolanti/ResearchAPI/internal/rag/llm"
	"github.com/akolanti/ResearchAPI/internal/rag/retrieval"
)

const citationInstruction = "Cite the numbered context passages you use with markers like [1]. If the context does not contain the answer, say so."

func historyMessages(history []jobModel.JobPayload) []contextWindow.Message {
	messages := []contextWindow.Message{{
		Id:      "system",
		Role:    contextWindow.RoleSystem,
		Content: config.ModelContext + " " + citationInstruction,
	}}
	for i, h := range history {
		if h.Question != "" {
			messages = append(messages, contextWindow.Message{
				Id: fmt.Sprintf("q%d", i), Role: contextWindow.RoleUser, Content: h.Question,
			})
		}
		if h.Answer != "" {
			messages = append(messages, contextWindow.Message{
				Id: fmt.Sprintf("a%d", i), Role: contextWindow.RoleAssistant, Content: h.Answer,
			})
		}
	}
	return messages
}

// buildChatPrompt fits the conversation into the chat token budget and appends the
// retrieved passages and the question.
func buildChatPrompt(question string, matches retrieval.SearchResponse, history []jobModel.JobPayload) llm.Prompt {
	messages := historyMessages(history)
	window := contextWindow.Select(messages, config.ChatContextMaxTokens)

	var system []string
	var sb strings.Builder
	if summary := contextWindow.SummarizeExcluded(window, messages); summary != "" {
		sb.WriteString(summary)
		sb.WriteString("\n")
	}
	for _, m := range window.Included {
		if m.Role == contextWindow.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
	}

	var user strings.Builder
	if sb.Len() > 0 {
		user.WriteString("Conversation so far:\n")
		user.WriteString(sb.String())
		user.WriteString("\n")
	}
	user.WriteString("Context:\n")
	if len(matches.Results) == 0 {
		user.WriteString("(no matching documents)\n")
	}
	for i, r := range matches.Results {
		fmt.Fprintf(&user, "[%d] %s\n%s\n\n", i+1, r.Chunk.DocTitle, r.Chunk.Content)
	}
	fmt.Fprintf(&user, "\nUser Question: %s", question)

	return llm.Prompt{
		System: strings.Join(system, "\n"),
		User:   user.String(),
	}
}
