package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/todoman/internal/repository"
)

// healthCheckTimeout はストレージへの疎通確認のタイムアウト。
const healthCheckTimeout = 2 * time.Second

// HealthHandler はストレージの疎通を確認するヘルスチェックハンドラー。
type HealthHandler struct {
	pinger repository.Pinger
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(pinger repository.Pinger) *HealthHandler {
	return &HealthHandler{pinger: pinger}
}

type healthResponse struct {
	Status string `json:"status"`
}

// Check はストレージにpingし、成功すれば200、失敗すれば503を返す。
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := h.pinger.PingContext(ctx); err != nil {
		slog.Error("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
