package handler

import (
	"net/http"

	"autosolver/internal/app/service"
	"autosolver/internal/common"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CronHandler struct {
	triggers ScheduledTrigger
	log      *zap.Logger
}

func NewCronHandler(triggers ScheduledTrigger, log *zap.Logger) *CronHandler {
	return &CronHandler{triggers: triggers, log: log}
}

func (h *CronHandler) RegisterRoutes(r chi.Router) {
	r.Get("/heartbeat", h.heartbeat)
	r.Get("/solve", h.solve)
}

type heartbeatResponse struct {
	Message string                    `json:"message"`
	Results []service.HeartbeatResult `json:"results"`
}

func (h *CronHandler) heartbeat(w http.ResponseWriter, r *http.Request) {
	results, err := h.triggers.Heartbeat(r.Context())
	if err != nil {
		h.log.Error("heartbeat failed", zap.Error(err))
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, heartbeatResponse{Message: "Heartbeat completed", Results: results})
}

func (h *CronHandler) solve(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.triggers.ScheduledSolve(r.Context())
	if err != nil {
		h.log.Error("scheduled solve failed", zap.Error(err))
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, outcome)
}
