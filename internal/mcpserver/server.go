// Package mcpserver exposes document search and deep research as MCP tools over
// streamable HTTP.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/akolanti/ResearchAPI/internal/config"
	"github.com/akolanti/ResearchAPI/internal/rag/retrieval"
	"github.com/akolanti/ResearchAPI/internal/research"
	"github.com/akolanti/ResearchAPI/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const Version = "1.0.0"

var (
	ErrMissingSearcher = errors.New("mcp: document searcher is required")
	ErrMissingResearch = errors.New("mcp: research service is required")
)

type Ports struct {
	Searcher retrieval.Searcher
	Research research.Service
}

func (p Ports) Validate() error {
	if p.Searcher == nil {
		return ErrMissingSearcher
	}
	if p.Research == nil {
		return ErrMissingResearch
	}
	return nil
}

type Server struct {
	ports  Ports
	logger *logger_i.Logger
}

func NewServer(ports Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	return &Server{ports: ports, logger: logger_i.NewLogger("MCP")}, nil
}

// ForUser builds an MCP server whose tools act on behalf of userId.
func (s *Server) ForUser(userId string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "research-api", Version: Version}, nil)
	t := tools{Server: s, userId: userId}
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_documents",
		Description: "Semantic search over the caller's indexed documents. Returns ranked chunks with numbered citations.",
	}, t.searchDocuments)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "deep_research",
		Description: "Researches a topic on the web section by section and returns a cited markdown report.",
	}, t.deepResearch)
	return srv
}

// Handler serves MCP over streamable HTTP. It runs stateless so each request is bound
// to the user the auth middleware put on its context.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		userId := userIdFrom(r.Context())
		if userId == "" {
			s.logger.Ctx(r.Context()).Warn("MCP request without a user")
			return nil
		}
		return s.ForUser(userId)
	}, &mcp.StreamableHTTPOptions{Stateless: true, JSONResponse: true})
}

func userIdFrom(ctx context.Context) string {
	user, _ := ctx.Value(config.USER_ID_KEY).(string)
	return user
}
