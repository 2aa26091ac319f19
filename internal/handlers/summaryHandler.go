package handlers

import (
	"net/http"

	"github.com/akolanti/ResearchAPI/internal/config"
	"github.com/akolanti/ResearchAPI/internal/domain/commonModels"
	"github.com/akolanti/ResearchAPI/internal/metrics"
)

func summaryCacheKey(userId string) string {
	return "summary:" + userId
}

// SummaryHandler godoc
// @Summary      Usage summary
// @Description  Counts of the caller's documents, chunks and saved research. Cached for a minute.
// @Tags         Summary
// @Produce      json
// @Success      200  {object}  commonModels.UserSummary
// @Router       /summary [get]
func SummaryHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}
	log := logRH.Ctx(ctx)
	userId := userIdFrom(ctx)
	key := summaryCacheKey(userId)

	var cached commonModels.UserSummary
	if services.SummaryCache != nil {
		found, err := services.SummaryCache.Get(ctx, key, &cached)
		if err != nil {
			log.Warn("Summary cache read failed", "error", err)
		} else {
			metrics.CaptureCacheLookup("summary", found)
			if found {
				w.Header().Set("X-Cache", "HIT")
				writeJsonResponse(w, http.StatusOK, cached)
				return
			}
		}
	}

	summary, err := services.Documents.Summary(ctx, userId)
	if err != nil {
		log.Error("Building summary failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Storage error")
		return
	}
	if services.SummaryCache != nil {
		if err = services.SummaryCache.Set(ctx, key, summary, config.SummaryCacheTTL); err != nil {
			log.Warn("Summary cache write failed", "error", err)
		}
	}
	w.Header().Set("X-Cache", "MISS")
	writeJsonResponse(w, http.StatusOK, summary)
}
