package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mrb-labs/videograb/internal/history"
)

// HistoryLister reads back recent delivery records.
type HistoryLister interface {
	Recent(ctx context.Context, limit int) ([]history.Record, error)
}

// HistoryHandler serves the delivery history.
type HistoryHandler struct {
	store  HistoryLister
	logger *slog.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(store HistoryLister, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{store: store, logger: logger}
}

// HistoryResponse is the JSON body for history listings.
type HistoryResponse struct {
	Deliveries []history.Record `json:"deliveries"`
	Count      int              `json:"count"`
}

// List handles GET /api/v1/history. The optional limit query parameter caps
// the number of records returned.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	records, err := h.store.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("history query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	if records == nil {
		records = []history.Record{}
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		Deliveries: records,
		Count:      len(records),
	})
}
