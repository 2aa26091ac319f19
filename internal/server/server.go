package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/akolanti/ResearchAPI/internal/adapter/utils"
	"github.com/akolanti/ResearchAPI/internal/config"
	"github.com/akolanti/ResearchAPI/internal/handlers"
	"github.com/akolanti/ResearchAPI/internal/middleware"
	"github.com/akolanti/ResearchAPI/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

var (
	server  *http.Server
	_logger = logger_i.NewLogger("Server")
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
}

// RegisterRoutes mounts the API on r. mcpHandler may be nil.
func RegisterRoutes(r chi.Router, mcpHandler http.Handler) {
	r.Get("/health", handlers.GetHandler)

	r.Post("/chat", middleware.ChatHandler)
	r.Get("/status/{id}", middleware.GetStatusHandler)

	r.Post("/documents", middleware.CreateDocumentHandler)
	r.Post("/documents/upload", middleware.UploadDocumentHandler)
	r.Post("/documents/url", middleware.UrlDocumentHandler)
	r.Get("/documents/{id}", middleware.GetDocumentHandler)
	r.Post("/documents/{id}/reembed", middleware.ReembedDocumentHandler)

	r.Post("/search", middleware.SearchHandler)

	r.Post("/research", middleware.ResearchHandler)
	r.Get("/research", middleware.ListResearchHandler)
	r.Post("/research/{jobId}/save", middleware.SaveResearchHandler)
	r.Get("/research/{id}", middleware.GetResearchHandler)

	r.Get("/summary", middleware.SummaryHandler)

	if mcpHandler != nil {
		r.Handle("/mcp", extendWriteDeadline(middleware.WrapHandler(mcpHandler), config.ResearchJobTimeout+30*time.Second))
	}
}

// extendWriteDeadline lifts the server write timeout for long tool calls.
func extendWriteDeadline(next http.Handler, d time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := http.NewResponseController(w).SetWriteDeadline(time.Now().Add(d)); err != nil && !errors.Is(err, http.ErrNotSupported) {
			_logger.Warn("Could not extend write deadline", "error", err)
		}
		next.ServeHTTP(w, r)
	})
}

func CreateServer(listenAddr string, mcpHandler http.Handler) {
	r := utils.NewRouter()
	RegisterRoutes(r, mcpHandler)

	server = &http.Server{
		Addr:         listenAddr,
		Handler:      r,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err.Error(), "addr", listenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		server.SetKeepAlivesEnabled(false)

		if err := server.Shutdown(ctx); err != nil {
			_logger.Error("Could not shutdown gracefully", "error", err)
		}

		//close workers
		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully is shutting down")
	case <-ctx.Done():
		_logger.Info("Force Shut down")
		os.Exit(1)
	}
}
