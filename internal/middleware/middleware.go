package middleware

import (
	"net/http"

	"github.com/akolanti/ResearchAPI/internal/handlers"
	"github.com/akolanti/ResearchAPI/internal/metrics"
	"github.com/akolanti/ResearchAPI/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

var ChatHandler = Wrap(handlers.ChatHandler)
var GetStatusHandler = Wrap(handlers.GetStatusHandler)

var CreateDocumentHandler = Wrap(handlers.CreateDocumentHandler)
var UploadDocumentHandler = Wrap(handlers.UploadDocumentHandler)
var UrlDocumentHandler = Wrap(handlers.UrlDocumentHandler)
var GetDocumentHandler = Wrap(handlers.GetDocumentHandler)
var ReembedDocumentHandler = Wrap(handlers.ReembedDocumentHandler)

var SearchHandler = Wrap(handlers.SearchHandler)

var ResearchHandler = Wrap(handlers.ResearchHandler)
var SaveResearchHandler = Wrap(handlers.SaveResearchHandler)
var ListResearchHandler = Wrap(handlers.ListResearchHandler)
var GetResearchHandler = Wrap(handlers.GetResearchHandler)

var SummaryHandler = Wrap(handlers.SummaryHandler)

// Wrap runs trace injection, authentication and rate limiting before next and
// counts the response status.
func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK} //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec})

		defer func() { metrics.CaptureRequest(routePattern(r), r.Method, rec.Status) }() //metrics

		if !handleBadRequest(re) {
			return
		}
		next(rec, re.req)
	}
}

// WrapHandler is Wrap for mounted handlers such as the MCP endpoint.
func WrapHandler(next http.Handler) http.Handler {
	return Wrap(next.ServeHTTP)
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

func processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re.logger.Debug("New request received")

	for _, step := range []func(requestResponseStruct) requestResponseStruct{injectTrace, authenticate, rateLimiter} {
		re = step(re)
		if re.badRequest.isBadRequest {
			return re
		}
	}
	return re
}
