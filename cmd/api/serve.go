package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/ResearchAPI/internal/config"
	"github.com/akolanti/ResearchAPI/internal/customHttpClient"
	"github.com/akolanti/ResearchAPI/internal/data/cache"
	"github.com/akolanti/ResearchAPI/internal/data/postgres"
	"github.com/akolanti/ResearchAPI/internal/data/redisStore"
	"github.com/akolanti/ResearchAPI/internal/data/store"
	"github.com/akolanti/ResearchAPI/internal/domain/commonModels"
	jobmodel "github.com/akolanti/ResearchAPI/internal/domain/jobModel"
	"github.com/akolanti/ResearchAPI/internal/domain/researchModel"
	"github.com/akolanti/ResearchAPI/internal/handlers"
	"github.com/akolanti/ResearchAPI/internal/job"
	"github.com/akolanti/ResearchAPI/internal/mcpserver"
	"github.com/akolanti/ResearchAPI/internal/middleware"
	"github.com/akolanti/ResearchAPI/internal/rag"
	"github.com/akolanti/ResearchAPI/internal/rag/embedding"
	"github.com/akolanti/ResearchAPI/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/ResearchAPI/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/ResearchAPI/internal/rag/ingest"
	"github.com/akolanti/ResearchAPI/internal/rag/llm"
	"github.com/akolanti/ResearchAPI/internal/rag/llm/gemini"
	"github.com/akolanti/ResearchAPI/internal/rag/llm/openaiLLM"
	"github.com/akolanti/ResearchAPI/internal/rag/retrieval"
	"github.com/akolanti/ResearchAPI/internal/rag/vectorDB"
	"github.com/akolanti/ResearchAPI/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/ResearchAPI/internal/research"
	"github.com/akolanti/ResearchAPI/internal/research/websearch"
	"github.com/akolanti/ResearchAPI/internal/server"
	"github.com/akolanti/ResearchAPI/internal/worker"
	"github.com/akolanti/ResearchAPI/pkg/logger_i"
	"github.com/openai/openai-go/option"
	"github.com/spf13/cobra"
)

const memoryCacheEntries = 1000

func serveCMD(cfgPath *string) *cobra.Command {
	var listenAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the worker pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(*cfgPath, listenAddr)
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen-addr", "", "server listen address (overrides listen_addr)")
	return cmd
}

func serve(cfgPath string, listenAddr string) error {
	settings, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logger_i.Init(settings.Prod, settings.LogLevel)
	logger := logger_i.NewLogger("main")
	if listenAddr == "" {
		listenAddr = settings.ListenAddr
	}

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel := make(chan bool, 1)
	var workerWaitGroup sync.WaitGroup

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	redisOpts := redisStore.Options{Addr: settings.RedisAddr, Password: settings.RedisPassword, PoolSize: settings.RedisPoolSize}
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		DispatcherChannel: dispatcherChannel,
	}
	jobStore := store.GetRedisJobStore(serviceContext, redisOpts)
	messageStore := store.GetRedisMessageStore(serviceContext, redisOpts)
	if jobStore == nil || messageStore == nil {
		if !config.FALLBACK_REDIS_TO_INTERNALSTORE {
			return fmt.Errorf("redis is offline at %s", settings.RedisAddr)
		}
		logger.Error("Redis stores are offline, using in-memory stores")
		serviceConfig.JobStore = store.InitInMemoryJobStore()
		serviceConfig.MessageStore = store.InitMessageStore()
	} else {
		serviceConfig.JobStore = jobStore
		serviceConfig.MessageStore = messageStore
	}
	jobService := job.InitJobService(serviceConfig)

	documents, results, closeDocuments := openDocumentStore(serviceContext, settings, logger)
	defer closeDocuments()

	httpClient := customHttpClient.Get()
	llmProvider, embedder := buildModels(serviceContext, settings, httpClient)
	if llmProvider == nil || embedder == nil {
		logger.Error("Model provider failed to initialize. Shutting down.", "provider", settings.LLMProvider,
			"LLMProvider", llmProvider != nil, "Embedder", embedder != nil)
		return fmt.Errorf("%s models are unavailable", settings.LLMProvider)
	}

	var semanticCache vectorDB.SemanticCache = vectorDB.NewMemoryCache(memoryCacheEntries)
	if q := qdrantDB.GetQuadrantClient(serviceContext, qdrantDB.Options{
		Host:      settings.QdrantHost,
		Port:      settings.QdrantPort,
		Dimension: uint64(settings.EmbeddingDimensions),
	}); q != nil {
		semanticCache = q
	} else {
		logger.Warn("Qdrant is offline, semantic cache is in memory")
	}

	webSearch, err := websearch.New(websearch.Provider(settings.SearchProvider), settings.SearchAPIKey, httpClient)
	if err != nil {
		logger.Error("Web search failed to initialize", "provider", settings.SearchProvider, "error", err)
		return err
	}
	webSearch = websearch.WithCache(
		websearch.WithGuard(webSearch, config.SearchRatePerSecond, config.SearchBurst),
		cache.New(serviceContext, redisOpts, "search:"),
		config.SearchCacheTTL,
	)

	indexer := ingest.NewIndexer(documents, embedder, ingest.DefaultOptions())
	searcher := retrieval.NewService(documents, indexer)
	researchService := research.NewService(llmProvider, webSearch, results, research.DefaultOptions())
	ragService := rag.NewService(semanticCache, llmProvider, indexer, searcher, documents)

	handlers.InitJobHandler(jobService)
	handlers.InitServiceHandler(handlers.Services{
		Documents:    documents,
		Searcher:     searcher,
		Research:     researchService,
		SummaryCache: cache.New(serviceContext, redisOpts, "api:"),
		HttpClient:   httpClient,
	})
	middleware.ConfigureAuth(settings.JWTSecret, settings.AuthBypass)
	middleware.ConfigureRateLimit(settings.RateLimitPerSecond, settings.RateLimitBurst)
	if settings.AuthBypass {
		logger.Warn("Authentication bypass is on")
	}

	mcpServer, err := mcpserver.NewServer(mcpserver.Ports{Searcher: searcher, Research: researchService})
	if err != nil {
		return err
	}

	//init worker pool
	worker.InitServices(jobService, ragService, researchService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices: func() {
			closeExternalServices()
			customHttpClient.CloseIdle()
		},
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr, mcpServer.Handler())

	<-stopExecution
	logger.Info("Server stopped")
	return nil
}

// openDocumentStore prefers Postgres and falls back to memory when it is unreachable.
func openDocumentStore(ctx context.Context, settings config.Settings, logger *logger_i.Logger) (commonModels.DocumentStore, researchModel.ResultStore, func()) {
	pg, err := postgres.Open(ctx, settings.PostgresDSN)
	if err == nil {
		if err = postgres.Migrate(settings.PostgresDSN, "up", 0); err == nil {
			logger.Info("Postgres document store ready")
			return pg, pg, func() { _ = pg.Close() }
		}
		_ = pg.Close()
	}
	logger.Error("Postgres is unavailable, documents are kept in memory", "error", err)
	mem := store.InitInMemoryDocumentStore()
	return mem, mem, func() {}
}

func buildModels(ctx context.Context, settings config.Settings, httpClient *http.Client) (llm.Provider, embedding.Embedder) {
	switch settings.LLMProvider {
	case config.LLMProviderGemini:
		return gemini.GetGeminiClient(ctx, settings.GeminiModel, settings.GoogleAPIKey, httpClient),
			googleEmbedding.GetGoogleEmbeddingClient(ctx, settings.GoogleEmbedModel, settings.GoogleAPIKey, int32(settings.EmbeddingDimensions), httpClient)
	default:
		return openaiLLM.New(settings.OpenAIAPIKey, settings.OpenAIChatModel, option.WithHTTPClient(httpClient)),
			openaiEmbedding.New(settings.OpenAIAPIKey, settings.OpenAIEmbedModel, settings.EmbeddingDimensions, option.WithHTTPClient(httpClient))
	}
}
