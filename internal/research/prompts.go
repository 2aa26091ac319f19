package research

import (
	"fmt"
	"strings"

	"github.com/akolanti/ResearchAPI/internal/domain/researchModel"
	"github.com/akolanti/ResearchAPI/internal/rag/llm"
	"github.com/akolanti/ResearchAPI/internal/research/websearch"
)

const (
	maxSections = 8

	outlineSystem = "You plan research reports. Reply with a single JSON object and nothing else."
	sectionSystem = "You write one section of a research report from the numbered web results you are given. " +
		"Cite results inline with their number in square brackets, e.g. [2]. Do not invent sources. " +
		"Write plain markdown paragraphs without a heading."
)

func outlinePrompt(query string) llm.Prompt {
	return llm.Prompt{
		System: outlineSystem,
		User: fmt.Sprintf(`Create an outline for a research report on: %q

Return JSON of the form:
{"title": "...", "summary": "...", "sections": [{"title": "...", "description": "...", "keywords": ["...", "..."]}]}

Use between 3 and %d sections. Keywords are web search terms for that section.`, query, maxSections),
		JSON: true,
	}
}

func sectionPrompt(query string, stub researchModel.OutlineSection, results []websearch.Result) llm.Prompt {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Report topic: %s\nSection: %s\n", query, stub.Title)
	if stub.Description != "" {
		fmt.Fprintf(&sb, "Section goal: %s\n", stub.Description)
	}
	sb.WriteString("\nWeb results:\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "[%d] %s (%s)\n%s\n\n", i+1, r.Title, r.Url, r.Snippet)
	}
	sb.WriteString("Write the section now.")
	return llm.Prompt{System: sectionSystem, User: sb.String()}
}

func searchQuery(stub researchModel.OutlineSection) string {
	if len(stub.Keywords) > 0 {
		return strings.Join(stub.Keywords, " ")
	}
	return stub.Title
}
