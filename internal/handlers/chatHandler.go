package handlers

import (
	"net/http"

	"github.com/akolanti/ResearchAPI/internal/adapter"
	"github.com/akolanti/ResearchAPI/internal/adapter/utils"
	"github.com/akolanti/ResearchAPI/internal/api"
	"github.com/akolanti/ResearchAPI/internal/domain/jobModel"
	"github.com/akolanti/ResearchAPI/internal/job"
)

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ChatHandler godoc
// @Summary      Start a new chat job
// @Description  Accepts a message, initializes a background processing job, and returns a job ID to track status.
// @Tags         Messaging
// @Accept       json
// @Produce      json
// @Param        request  body      api.ChatRequest      true  "Chat Message and optional Chat ID"
// @Success      202      {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400      {object}  api.JobResponse      "Invalid request data or chat ID"
// @Router       /chat [post]
func ChatHandler(w http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	if !validateContext(ctx) {
		return
	}
	log := logRH.Ctx(ctx)

	var requestData api.ChatRequest
	if err := decodeAndValidate(w, request, &requestData); err != nil {
		log.Warn("Bad Chat Request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, requestData.ChatID, err.Error())
		return
	}
	if !ValidateChatRequest(ctx, userIdFrom(ctx), requestData) {
		WriteErrorResponse(w, http.StatusBadRequest, requestData.ChatID, "Unknown chat id")
		return
	}

	chatId := requestData.ChatID
	isNewChat := chatId == ""
	if isNewChat {
		chatId = utils.GetNewUUID()
		log.Debug("New Chat request", "chatId", chatId)
	}

	newJob := job.NewJob(ctx, jobModel.JobTypeQuery, jobModel.JobPayload{Question: requestData.Message})
	newJob.ChatId = chatId
	if err := CreateNewJob(ctx, newJob, isNewChat); err != nil {
		WriteErrorResponse(w, http.StatusServiceUnavailable, newJob.Id, "Could not queue job")
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob))
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the current status of a specific job using its ID.
// @Tags         Job Status
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse   "Successful retrieval of job status"
// @Failure      404  {object}  api.JobResponse   "Job not found"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}
	idString := utils.GetChiURLParam(r, "id")
	result, isFound := GetJobStatus(ctx, userIdFrom(ctx), idString)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}
