package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"autosolver/internal/common"
	"autosolver/internal/platform/telegram"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type TelegramHandler struct {
	commands CommandHandler
	log      *zap.Logger
}

func NewTelegramHandler(commands CommandHandler, log *zap.Logger) *TelegramHandler {
	return &TelegramHandler{commands: commands, log: log}
}

func (h *TelegramHandler) RegisterRoutes(r chi.Router) {
	r.Post("/telegram", h.handleUpdate)
}

// handleUpdate always acknowledges; any other status makes Telegram redeliver.
func (h *TelegramHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var upd telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		h.log.Warn("invalid telegram update", zap.Error(err))
		common.RespondWithJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	// a dropped connection must not abort a command that already recorded its update id
	if err := h.commands.HandleUpdate(context.WithoutCancel(r.Context()), upd); err != nil {
		h.log.Error("telegram command failed", zap.Int64("update_id", upd.UpdateID), zap.Error(err))
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
