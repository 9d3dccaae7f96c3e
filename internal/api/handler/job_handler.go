package handler

import (
	"encoding/json"
	"net/http"

	"autosolver/internal/api/middleware"
	"autosolver/internal/common"
	"autosolver/internal/domain/model"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"go.uber.org/zap"
)

type JobHandler struct {
	jobs JobLookup
}

func NewJobHandler(jobs JobLookup) *JobHandler {
	return &JobHandler{jobs: jobs}
}

func (h *JobHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{jobID}", h.getJob)
}

func (h *JobHandler) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Get(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, job)
}

// WorkerHandler is the HTTP entry point for dispatched jobs.
type WorkerHandler struct {
	runner    JobExecutor
	tokenAuth *jwtauth.JWTAuth
	log       *zap.Logger
}

func NewWorkerHandler(runner JobExecutor, tokenAuth *jwtauth.JWTAuth, log *zap.Logger) *WorkerHandler {
	return &WorkerHandler{runner: runner, tokenAuth: tokenAuth, log: log}
}

func (h *WorkerHandler) RegisterRoutes(r chi.Router) {
	r.Use(jwtauth.Verifier(h.tokenAuth))
	r.Use(middleware.DispatchAuthenticator)
	r.Post("/jobs", h.runJob)
}

func (h *WorkerHandler) runJob(w http.ResponseWriter, r *http.Request) {
	var msg model.DispatchMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil || msg.JobID == "" {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: job_id is required")
		return
	}
	tokenJobID, _ := middleware.GetJobIDFromContext(r.Context())
	if tokenJobID != msg.JobID {
		common.RespondWithError(w, http.StatusForbidden, "Token was not issued for this job")
		return
	}

	job, err := h.runner.Run(r.Context(), msg.JobID)
	if err != nil {
		h.log.Error("worker run failed", zap.String("job_id", msg.JobID), zap.Error(err))
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, job)
}
