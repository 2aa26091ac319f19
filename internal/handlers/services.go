package handlers

import (
	"net/http"

	"github.com/akolanti/ResearchAPI/internal/data/cache"
	"github.com/akolanti/ResearchAPI/internal/domain/commonModels"
	"github.com/akolanti/ResearchAPI/internal/rag/retrieval"
	"github.com/akolanti/ResearchAPI/internal/research"
	"github.com/akolanti/ResearchAPI/pkg/logger_i"
)

// Services are the synchronous dependencies of the handlers. Everything slow goes
// through the job handler instead.
type Services struct {
	Documents    commonModels.DocumentStore
	Searcher     retrieval.Searcher
	Research     research.Service
	SummaryCache cache.Cache
	HttpClient   *http.Client
}

var (
	services Services
	logRH    = logger_i.NewLogger("RequestHandler")
)

func InitServiceHandler(s Services) {
	services = s
	logRH.Info("Request handlers ready")
}
