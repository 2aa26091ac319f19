package handlers

import (
	"net/http"

	"github.com/akolanti/ResearchAPI/internal/adapter"
	"github.com/akolanti/ResearchAPI/internal/api"
	"github.com/akolanti/ResearchAPI/internal/domain/commonModels"
	"github.com/akolanti/ResearchAPI/internal/rag/retrieval"
)

// SearchHandler godoc
// @Summary      Search documents
// @Description  Ranks the caller's embedded chunks against the query and returns them with citations.
// @Tags         Search
// @Accept       json
// @Produce      json
// @Param        request  body      api.SearchRequest  true  "Query and filters"
// @Success      200      {object}  api.SearchResponse
// @Failure      400      {object}  api.JobResponse
// @Failure      502      {object}  api.JobResponse "Embedding provider failure"
// @Router       /search [post]
func SearchHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}
	var req api.SearchRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", err.Error())
		return
	}

	types := make([]commonModels.DocType, len(req.Types))
	for i, t := range req.Types {
		types[i] = commonModels.DocType(t)
	}
	res := services.Searcher.Search(ctx, userIdFrom(ctx), retrieval.SearchRequest{
		Query:       req.Query,
		TopK:        req.TopK,
		DocumentIds: req.DocumentIds,
		Types:       types,
	})
	if !res.IsOk() {
		logRH.Ctx(ctx).Warn("Search failed", "kind", res.Kind(), "error", res.Error())
		WriteErrorResponse(w, statusFor(res.Error()), "", "Search failed")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToSearchResponse(res.Value()))
}
