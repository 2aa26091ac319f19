package mcpserver

import (
	"context"
	"errors"
	"strings"

	"github.com/akolanti/ResearchAPI/internal/config"
	"github.com/akolanti/ResearchAPI/internal/domain/commonModels"
	"github.com/akolanti/ResearchAPI/internal/domain/researchModel"
	"github.com/akolanti/ResearchAPI/internal/rag/retrieval"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var ErrEmptyQuery = errors.New("query is required")

type SearchInput struct {
	Query       string   `json:"query" jsonschema:"what to look for in the indexed documents"`
	TopK        int      `json:"top_k,omitempty" jsonschema:"maximum number of results (default 5, at most 50)"`
	DocumentIds []string `json:"document_ids,omitempty" jsonschema:"restrict the search to these documents"`
}

type SearchOutput struct {
	Results   []SearchResult          `json:"results"`
	Citations []commonModels.Citation `json:"citations"`
	Count     int                     `json:"count"`
}

type SearchResult struct {
	DocumentId string  `json:"document_id"`
	Title      string  `json:"title"`
	Source     string  `json:"source,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

type ResearchInput struct {
	Query string `json:"query" jsonschema:"the research question or topic"`
}

type ResearchOutput struct {
	Title            string                 `json:"title"`
	Report           string                 `json:"report"`
	Sources          []researchModel.Source `json:"sources"`
	DegradedSections []string               `json:"degraded_sections,omitempty"`
	TotalWordCount   int                    `json:"total_word_count"`
}

type tools struct {
	*Server
	userId string
}

func (t tools) searchDocuments(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, SearchOutput{}, ErrEmptyQuery
	}
	res := t.ports.Searcher.Search(ctx, t.userId, retrieval.SearchRequest{
		Query:       in.Query,
		TopK:        in.TopK,
		DocumentIds: in.DocumentIds,
	})
	if !res.IsOk() {
		t.logger.Ctx(ctx).Warn("MCP search failed", "userId", t.userId, "error", res.Error())
		return nil, SearchOutput{}, res.Error()
	}

	ranked := res.Value()
	out := SearchOutput{
		Results:   make([]SearchResult, len(ranked.Results)),
		Citations: ranked.Citations,
		Count:     len(ranked.Results),
	}
	if out.Citations == nil {
		out.Citations = []commonModels.Citation{}
	}
	for i, r := range ranked.Results {
		out.Results[i] = SearchResult{
			DocumentId: r.Chunk.DocumentId,
			Title:      r.Chunk.DocTitle,
			Source:     r.Chunk.DocSource,
			ChunkIndex: r.Chunk.ChunkIndex,
			Score:      r.Score,
			Content:    r.Chunk.Content,
		}
	}
	return nil, out, nil
}

func (t tools) deepResearch(ctx context.Context, _ *mcp.CallToolRequest, in ResearchInput) (*mcp.CallToolResult, ResearchOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, ResearchOutput{}, ErrEmptyQuery
	}
	ctx, cancel := context.WithTimeout(ctx, config.ResearchJobTimeout)
	defer cancel()

	log := t.logger.Ctx(ctx).With("userId", t.userId)
	log.Info("MCP deep research started")
	res := t.ports.Research.Run(ctx, in.Query, nil)
	if !res.IsOk() {
		log.Warn("MCP deep research failed", "kind", res.Kind(), "error", res.Error())
		return nil, ResearchOutput{}, res.Error()
	}

	report := res.Value()
	out := ResearchOutput{
		Title:            report.Outline.Title,
		Report:           report.Report,
		Sources:          report.References,
		DegradedSections: report.DegradedSections,
		TotalWordCount:   report.TotalWordCount,
	}
	if out.Sources == nil {
		out.Sources = []researchModel.Source{}
	}
	return nil, out, nil
}
