package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/akolanti/ResearchAPI/internal/api"
	"github.com/akolanti/ResearchAPI/internal/config"
	"github.com/akolanti/ResearchAPI/internal/data/cache"
	"github.com/akolanti/ResearchAPI/internal/data/store"
	"github.com/akolanti/ResearchAPI/internal/domain/commonModels"
	"github.com/akolanti/ResearchAPI/internal/domain/jobModel"
	"github.com/akolanti/ResearchAPI/internal/domain/researchModel"
	"github.com/akolanti/ResearchAPI/internal/job"
	"github.com/akolanti/ResearchAPI/internal/rag/ingest"
	"github.com/akolanti/ResearchAPI/internal/rag/retrieval"
	"github.com/akolanti/ResearchAPI/internal/research"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	userA = "user-a"
	userB = "user-b"
)

type stubEmbedder struct {
	err error
}

func (s stubEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{1, 0}, nil
}

func (s stubEmbedder) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, s.err
}

type harness struct {
	docs   *store.InMemoryDocumentStore
	jobs   *job.Service
	router *chi.Mux
}

func newHarness(t *testing.T, embedder stubEmbedder) harness {
	t.Helper()
	docs := store.InitInMemoryDocumentStore()
	jobs := job.InitJobService(job.ServiceConfig{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 1),
		JobStore:          store.InitInMemoryJobStore(),
		MessageStore:      store.InitMessageStore(),
	})
	indexer := ingest.NewIndexer(docs, embedder, ingest.Options{ChunkSize: 200, ChunkOverlap: 20, BatchSize: 10})

	prevHandler, prevServices := handlerInstance, services
	handlerInstance = &JobHandler{service: jobs}
	services = Services{
		Documents:    docs,
		Searcher:     retrieval.NewService(docs, indexer),
		Research:     research.NewService(nil, nil, docs, research.DefaultOptions()),
		SummaryCache: cache.NewInMemory(),
		HttpClient:   http.DefaultClient,
	}
	t.Cleanup(func() { handlerInstance, services = prevHandler, prevServices })

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			user := req.Header.Get("X-User-Id")
			next.ServeHTTP(w, req.WithContext(context.WithValue(req.Context(), config.USER_ID_KEY, user)))
		})
	})
	r.Post("/chat", ChatHandler)
	r.Get("/status/{id}", GetStatusHandler)
	r.Post("/documents", CreateDocumentHandler)
	r.Post("/documents/upload", UploadDocumentHandler)
	r.Post("/documents/url", UrlDocumentHandler)
	r.Get("/documents/{id}", GetDocumentHandler)
	r.Post("/documents/{id}/reembed", ReembedDocumentHandler)
	r.Post("/search", SearchHandler)
	r.Post("/research", ResearchHandler)
	r.Get("/research", ListResearchHandler)
	r.Post("/research/{jobId}/save", SaveResearchHandler)
	r.Get("/research/{id}", GetResearchHandler)
	r.Get("/summary", SummaryHandler)

	return harness{docs: docs, jobs: jobs, router: r}
}

func (h harness) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-User-Id", user)
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

func (h harness) queued(t *testing.T) jobModel.Job {
	t.Helper()
	select {
	case j := <-h.jobs.JobChannel:
		return j
	default:
		t.Fatal("expected a queued job")
		return jobModel.Job{}
	}
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}

func TestChatHandler(t *testing.T) {
	h := newHarness(t, stubEmbedder{})

	rr := h.do(t, http.MethodPost, "/chat", userA, api.ChatRequest{Message: "hello"})
	require.Equal(t, http.StatusAccepted, rr.Code)
	resp := decode[api.InitJobResponse](t, rr)
	assert.NotEmpty(t, resp.ChatId)
	assert.Equal(t, "/status/"+resp.Id, resp.StatusURL)

	j := h.queued(t)
	assert.Equal(t, jobModel.JobTypeQuery, j.JobType)
	assert.Equal(t, userA, j.UserId)
	assert.Equal(t, "hello", j.JobPayload.Question)

	rr = h.do(t, http.MethodPost, "/chat", userA, api.ChatRequest{Message: "again", ChatID: resp.ChatId})
	assert.Equal(t, http.StatusAccepted, rr.Code)

	rr = h.do(t, http.MethodPost, "/chat", userA, api.ChatRequest{Message: "x", ChatID: "unknown"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = h.do(t, http.MethodPost, "/chat", userB, api.ChatRequest{Message: "x", ChatID: resp.ChatId})
	assert.Equal(t, http.StatusBadRequest, rr.Code, "chat ids are scoped to their owner")

	rr = h.do(t, http.MethodPost, "/chat", userA, api.ChatRequest{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = h.do(t, http.MethodPost, "/chat", userA, "{not json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetStatusHandler_Ownership(t *testing.T) {
	h := newHarness(t, stubEmbedder{})
	rr := h.do(t, http.MethodPost, "/chat", userA, api.ChatRequest{Message: "hello"})
	id := decode[api.InitJobResponse](t, rr).Id

	rr = h.do(t, http.MethodGet, "/status/"+id, userA, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	status := decode[api.JobResponse](t, rr)
	assert.Equal(t, string(jobModel.JobStatusQueued), status.Result.Status)

	rr = h.do(t, http.MethodGet, "/status/"+id, userB, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateDocumentHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{name: "Valid", body: api.CreateDocumentRequest{Title: "Notes", Content: "Some text"}, wantStatus: http.StatusAccepted},
		{name: "Whitespace_Content", body: api.CreateDocumentRequest{Title: "Notes", Content: "   "}, wantStatus: http.StatusBadRequest},
		{name: "Missing_Title", body: api.CreateDocumentRequest{Content: "text"}, wantStatus: http.StatusBadRequest},
		{name: "Bad_Type", body: api.CreateDocumentRequest{Title: "t", Content: "text", Type: "video"}, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, stubEmbedder{})
			rr := h.do(t, http.MethodPost, "/documents", userA, tt.body)
			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus != http.StatusAccepted {
				assert.Empty(t, h.jobs.JobChannel, "nothing is queued for a rejected document")
				return
			}

			resp := decode[api.InitJobResponse](t, rr)
			doc, err := h.docs.GetDocument(context.Background(), userA, resp.DocumentId)
			require.NoError(t, err)
			assert.Equal(t, commonModels.KnowledgeBase, doc.Type)

			j := h.queued(t)
			assert.Equal(t, jobModel.JobTypeIndex, j.JobType)
			assert.Equal(t, resp.DocumentId, j.JobPayload.DocumentId)
		})
	}
}

func TestDocumentHandlers_OwnershipAndReembed(t *testing.T) {
	h := newHarness(t, stubEmbedder{})
	rr := h.do(t, http.MethodPost, "/documents", userA, api.CreateDocumentRequest{Title: "Notes", Content: "Some text"})
	docId := decode[api.InitJobResponse](t, rr).DocumentId
	h.queued(t)

	rr = h.do(t, http.MethodGet, "/documents/"+docId, userA, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	doc := decode[api.DocumentResponse](t, rr)
	assert.Equal(t, "Notes", doc.Title)
	assert.Zero(t, doc.ChunkCount)

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/documents/"+docId, userB, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodPost, "/documents/"+docId+"/reembed", userB, nil).Code)

	rr = h.do(t, http.MethodPost, "/documents/"+docId+"/reembed", userA, nil)
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, jobModel.JobTypeReembed, h.queued(t).JobType)
}

func TestUploadDocumentHandler(t *testing.T) {
	t.Chdir(t.TempDir())
	h := newHarness(t, stubEmbedder{})

	upload := func(name, filename, content string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		if name != "" {
			require.NoError(t, mw.WriteField("document_name", name))
		}
		part, err := mw.CreateFormFile("document", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/documents/upload", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("X-User-Id", userA)
		rr := httptest.NewRecorder()
		h.router.ServeHTTP(rr, req)
		return rr
	}

	rr := upload("Handbook", "handbook.txt", "Refunds take five days.")
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	docId := decode[api.InitJobResponse](t, rr).DocumentId
	doc, err := h.docs.GetDocument(context.Background(), userA, docId)
	require.NoError(t, err)
	assert.Equal(t, commonModels.Upload, doc.Type)
	assert.Equal(t, "Refunds take five days.", strings.TrimSpace(doc.Content))
	assert.Equal(t, jobModel.JobTypeIndex, h.queued(t).JobType)

	assert.Equal(t, http.StatusBadRequest, upload("", "a.txt", "text").Code)
	assert.Equal(t, http.StatusBadRequest, upload("Image", "a.png", "text").Code)
}

func TestUrlDocumentHandler(t *testing.T) {
	page := `<html><head><title>Refund Policy</title></head><body><article>
<h1>Refund Policy</h1>
<p>Refunds are processed within five business days of the request being received by the support team. Customers receive an email once the refund has been issued to the original payment method.</p>
<p>Orders that were shipped internationally may take up to ten business days because the carrier has to confirm the return. Store credit is issued immediately for any order that qualifies.</p>
<p>If a refund has not arrived after ten business days, contact support with the order number and the date of the return so the case can be escalated.</p>
</article></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/data.json" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{}`))
			return
		}
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	h := newHarness(t, stubEmbedder{})
	services.HttpClient = srv.Client()

	rr := h.do(t, http.MethodPost, "/documents/url", userA, api.UrlDocumentRequest{Url: srv.URL + "/refunds"})
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	docId := decode[api.InitJobResponse](t, rr).DocumentId
	doc, err := h.docs.GetDocument(context.Background(), userA, docId)
	require.NoError(t, err)
	assert.Equal(t, commonModels.Web, doc.Type)
	assert.Equal(t, srv.URL+"/refunds", doc.Source)
	assert.Contains(t, doc.Content, "five business days")

	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, "/documents/url", userA, api.UrlDocumentRequest{Url: srv.URL + "/data.json"}).Code)
	assert.Equal(t, http.StatusBadGateway, h.do(t, http.MethodPost, "/documents/url", userA, api.UrlDocumentRequest{Url: srv.URL + "/missing"}).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, "/documents/url", userA, api.UrlDocumentRequest{Url: "not a url"}).Code)
}

func TestSearchHandler(t *testing.T) {
	h := newHarness(t, stubEmbedder{})
	ctx := context.Background()
	require.NoError(t, h.docs.CreateDocument(ctx, commonModels.Document{Id: "d1", UserId: userA, Title: "Handbook", Type: commonModels.KnowledgeBase, Content: "Refunds take five days."}))
	require.NoError(t, h.docs.SaveChunks(ctx, "d1", []commonModels.DocChunk{
		{Id: "c1", DocumentId: "d1", Content: "Refunds take five days.", ChunkIndex: 0, Embedding: []float32{1, 0}},
	}))

	rr := h.do(t, http.MethodPost, "/search", userA, api.SearchRequest{Query: "refunds"})
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[api.SearchResponse](t, rr)
	require.Len(t, resp.Results, 1)
	assert.Nil(t, resp.Results[0].Chunk.Embedding, "vectors are not returned")
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, "Handbook", resp.Citations[0].Title)

	rr = h.do(t, http.MethodPost, "/search", userB, api.SearchRequest{Query: "refunds"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[api.SearchResponse](t, rr).Results)

	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, "/search", userA, api.SearchRequest{}).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, "/search", userA, api.SearchRequest{Query: "q", TopK: 51}).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, "/search", userA, api.SearchRequest{Query: "q", Types: []string{"video"}}).Code)
}

func TestSearchHandler_EmbeddingFailure(t *testing.T) {
	h := newHarness(t, stubEmbedder{err: errors.New("provider down")})
	rr := h.do(t, http.MethodPost, "/search", userA, api.SearchRequest{Query: "refunds"})
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestResearchHandlers(t *testing.T) {
	h := newHarness(t, stubEmbedder{})

	rr := h.do(t, http.MethodPost, "/research", userA, api.ResearchRequest{Query: "state of solar power"})
	require.Equal(t, http.StatusAccepted, rr.Code)
	jobId := decode[api.InitJobResponse](t, rr).Id
	queued := h.queued(t)
	assert.Equal(t, jobModel.JobTypeResearch, queued.JobType)
	assert.Equal(t, "state of solar power", queued.JobPayload.ResearchQuery)

	// still queued
	assert.Equal(t, http.StatusConflict, h.do(t, http.MethodPost, "/research/"+jobId+"/save", userA, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodPost, "/research/"+jobId+"/save", userB, nil).Code)

	queued.Status = jobModel.JobStatusComplete
	queued.JobPayload.ResearchResult = &researchModel.DeepResearchResult{Id: "res-1", Query: queued.JobPayload.ResearchQuery, Outline: researchModel.Outline{Title: "Solar"}}
	require.NoError(t, h.jobs.JobStore.SaveJob(context.Background(), queued))

	rr = h.do(t, http.MethodPost, "/research/"+jobId+"/save", userA, nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "res-1", decode[api.SaveResearchResponse](t, rr).Id)

	// a retried save is accepted and does not duplicate the result
	rr = h.do(t, http.MethodPost, "/research/"+jobId+"/save", userA, nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "res-1", decode[api.SaveResearchResponse](t, rr).Id)

	rr = h.do(t, http.MethodGet, "/research", userA, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]researchModel.ResultSummary](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, "Solar", list[0].Title)

	rr = h.do(t, http.MethodGet, "/research/res-1", userA, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Solar", decode[researchModel.DeepResearchResult](t, rr).Outline.Title)

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/research/res-1", userB, nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, "/research", userA, api.ResearchRequest{}).Code)
}

func TestSaveResearchHandler_WrongJobType(t *testing.T) {
	h := newHarness(t, stubEmbedder{})
	rr := h.do(t, http.MethodPost, "/chat", userA, api.ChatRequest{Message: "hello"})
	id := decode[api.InitJobResponse](t, rr).Id
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodPost, "/research/"+id+"/save", userA, nil).Code)
}

func TestSummaryHandler_Cache(t *testing.T) {
	h := newHarness(t, stubEmbedder{})
	ctx := context.Background()
	require.NoError(t, h.docs.CreateDocument(ctx, commonModels.Document{Id: "d1", UserId: userA, Title: "a", Type: commonModels.Upload, Content: "x"}))

	rr := h.do(t, http.MethodGet, "/summary", userA, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "MISS", rr.Header().Get("X-Cache"))
	assert.Equal(t, 1, decode[commonModels.UserSummary](t, rr).Documents)

	require.NoError(t, h.docs.CreateDocument(ctx, commonModels.Document{Id: "d2", UserId: userA, Title: "b", Type: commonModels.Upload, Content: "y"}))
	rr = h.do(t, http.MethodGet, "/summary", userA, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "HIT", rr.Header().Get("X-Cache"))
	assert.Equal(t, 1, decode[commonModels.UserSummary](t, rr).Documents, "served from cache until the TTL passes")

	rr = h.do(t, http.MethodGet, "/summary", userB, nil)
	assert.Equal(t, "MISS", rr.Header().Get("X-Cache"), "cache is per user")
	assert.Zero(t, decode[commonModels.UserSummary](t, rr).Documents)
}
