package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRoutes(t *testing.T) {
	r := chi.NewRouter()
	RegisterRoutes(r, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	routes := map[string]bool{}
	require.NoError(t, chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes[method+" "+route] = true
		return nil
	}))
	for _, want := range []string{
		"GET /health",
		"POST /chat",
		"GET /status/{id}",
		"POST /documents",
		"POST /documents/upload",
		"POST /documents/url",
		"GET /documents/{id}",
		"POST /documents/{id}/reembed",
		"POST /search",
		"POST /research",
		"GET /research",
		"POST /research/{jobId}/save",
		"GET /research/{id}",
		"GET /summary",
		"POST /mcp",
	} {
		assert.True(t, routes[want], "missing route %s", want)
	}
}

func TestRoutes_AuthAndHealth(t *testing.T) {
	r := chi.NewRouter()
	RegisterRoutes(r, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	for _, path := range []string{"/summary", "/mcp"} {
		rr = httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
}
