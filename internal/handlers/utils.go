package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/akolanti/ResearchAPI/internal/adapter"
	"github.com/akolanti/ResearchAPI/internal/adapter/utils"
	"github.com/akolanti/ResearchAPI/internal/config"
	"github.com/akolanti/ResearchAPI/internal/domain/commonModels"
	"github.com/akolanti/ResearchAPI/pkg/result"
)

const maxJSONBody = 10 << 20

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// headers are gone, only log
		logRH.Error("Error encoding response", "error", err)
	}
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

// decodeAndValidate reads a JSON body into dest and runs its validate tags.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return errors.New("malformed JSON body")
	}
	return utils.ValidateStruct(dest)
}

func validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		logRH.Ctx(ctx).Warn("context error", "error", ctx.Err())
		return false
	}
	return true
}

func userIdFrom(ctx context.Context) string {
	user, _ := ctx.Value(config.USER_ID_KEY).(string)
	return user
}

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, commonModels.ErrNotFound) {
		return http.StatusNotFound
	}
	switch result.KindOf(err) {
	case result.KindInvalidInput:
		return http.StatusBadRequest
	case result.KindEmbedding, result.KindLLM, result.KindSearch:
		return http.StatusBadGateway
	case result.KindCanceled:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func getTargetDirectory() (string, string) {
	root, err := os.Getwd()
	if err != nil {
		return "", "Storage Error"
	}

	targetDir := filepath.Join(root, "temporary_data")
	if err := os.MkdirAll(targetDir, 0750); err != nil {
		return "", "Storage Error"
	}
	return targetDir, ""
}
