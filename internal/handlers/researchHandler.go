package handlers

import (
	"net/http"

	"github.com/akolanti/ResearchAPI/internal/adapter"
	"github.com/akolanti/ResearchAPI/internal/adapter/utils"
	"github.com/akolanti/ResearchAPI/internal/api"
	"github.com/akolanti/ResearchAPI/internal/domain/jobModel"
	"github.com/akolanti/ResearchAPI/internal/job"
)

// ResearchHandler godoc
// @Summary      Start deep research
// @Description  Queues a deep research job: outline, per-section web research and report assembly.
// @Tags         Research
// @Accept       json
// @Produce      json
// @Param        request  body      api.ResearchRequest  true  "Research query"
// @Success      202      {object}  api.InitJobResponse
// @Failure      400      {object}  api.JobResponse
// @Router       /research [post]
func ResearchHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}
	var req api.ResearchRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", err.Error())
		return
	}

	researchJob := job.NewJob(ctx, jobModel.JobTypeResearch, jobModel.JobPayload{ResearchQuery: req.Query})
	if err := CreateNewJob(ctx, researchJob, false); err != nil {
		WriteErrorResponse(w, http.StatusServiceUnavailable, researchJob.Id, "Could not queue job")
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(researchJob))
}

// SaveResearchHandler godoc
// @Summary      Save a research result
// @Description  Persists the report of a completed research job.
// @Tags         Research
// @Produce      json
// @Param        jobId  path      string  true  "Research job ID"
// @Success      201    {object}  api.SaveResearchResponse
// @Failure      404    {object}  api.JobResponse
// @Failure      409    {object}  api.JobResponse "The job has not completed"
// @Router       /research/{jobId}/save [post]
func SaveResearchHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}
	jobId := utils.GetChiURLParam(r, "jobId")
	userId := userIdFrom(ctx)

	j, found := GetJobStatus(ctx, userId, jobId)
	if !found || j.JobType != jobModel.JobTypeResearch {
		WriteErrorResponse(w, http.StatusNotFound, jobId, "Research job not found")
		return
	}
	if !j.ResearchReady() {
		WriteErrorResponse(w, http.StatusConflict, jobId, "Research job has not completed")
		return
	}

	res := *j.JobPayload.ResearchResult
	if err := services.Research.Save(ctx, userId, res); err != nil {
		logRH.Ctx(ctx).Error("Saving research failed", "jobId", jobId, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, jobId, "Storage error")
		return
	}
	writeJsonResponse(w, http.StatusCreated, api.SaveResearchResponse{Id: res.Id})
}

// ListResearchHandler godoc
// @Summary      List saved research
// @Tags         Research
// @Produce      json
// @Success      200  {array}  researchModel.ResultSummary
// @Router       /research [get]
func ListResearchHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}
	list, err := services.Research.List(ctx, userIdFrom(ctx))
	if err != nil {
		logRH.Ctx(ctx).Error("Listing research failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Storage error")
		return
	}
	writeJsonResponse(w, http.StatusOK, list)
}

// GetResearchHandler godoc
// @Summary      Get saved research
// @Tags         Research
// @Produce      json
// @Param        id   path      string  true  "Research ID"
// @Success      200  {object}  researchModel.DeepResearchResult
// @Failure      404  {object}  api.JobResponse
// @Router       /research/{id} [get]
func GetResearchHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	res, err := services.Research.Get(ctx, userIdFrom(ctx), id)
	if err != nil {
		WriteErrorResponse(w, statusFor(err), id, "Research not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, res)
}
