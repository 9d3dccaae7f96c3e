package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"autosolver/internal/app/service"
	"autosolver/internal/common"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type SolveHandler struct {
	solver    ManualSolver
	defaults  service.CredentialDefaults
	validator *validator.Validate
	log       *zap.Logger
}

func NewSolveHandler(solver ManualSolver, defaults service.CredentialDefaults, log *zap.Logger) *SolveHandler {
	return &SolveHandler{solver: solver, defaults: defaults, validator: validator.New(), log: log}
}

func (h *SolveHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.manualSolve)
}

func (h *SolveHandler) manualSolve(w http.ResponseWriter, r *http.Request) {
	var req service.ManualSolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	result, err := h.solver.Manual(r.Context(), req, h.defaults)
	if err != nil {
		h.log.Warn("manual solve failed", zap.String("platform", string(req.Platform)), zap.Error(err))
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}

func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return fmt.Sprintf("validation error: %s - %s", ve[0].Field(), ve[0].Tag())
	}
	return "validation error: invalid request"
}
