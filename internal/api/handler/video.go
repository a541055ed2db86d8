package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mrb-labs/videograb/internal/domain"
	"github.com/mrb-labs/videograb/internal/history"
	"github.com/mrb-labs/videograb/internal/metrics"
	"github.com/mrb-labs/videograb/internal/service"
)

// copyBufferSize is the chunk size for relaying media bodies.
const copyBufferSize = 64 * 1024

// Fetcher resolves a post URL to an open delivery.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*service.Delivery, error)
}

// HistoryRecorder persists delivery records. May be nil when history is
// disabled.
type HistoryRecorder interface {
	Save(ctx context.Context, rec history.Record) error
}

// VideoHandler handles video fetch requests.
type VideoHandler struct {
	fetcher  Fetcher
	recorder HistoryRecorder
	logger   *slog.Logger
}

// NewVideoHandler creates a new video handler.
func NewVideoHandler(fetcher Fetcher, recorder HistoryRecorder, logger *slog.Logger) *VideoHandler {
	return &VideoHandler{
		fetcher:  fetcher,
		recorder: recorder,
		logger:   logger,
	}
}

// FetchRequest is the JSON request body for a fetch.
type FetchRequest struct {
	URL string `json:"url"`
}

// Fetch handles POST /get_video and POST /api/v1/videos/fetch. On success
// the response body is the video file itself.
func (h *VideoHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	var req FetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	d, err := h.fetcher.Fetch(r.Context(), req.URL)
	if err != nil {
		status, message := mapFetchError(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("fetch failed", "url", req.URL, "error", err)
		} else {
			h.logger.Info("fetch rejected", "url", req.URL, "error", err)
		}
		h.record(r, history.Record{URL: req.URL, Platform: "unknown", Path: "none", Status: "error", Error: message})
		metrics.DeliveriesTotal.WithLabelValues("none", "error").Inc()
		writeError(w, status, message)
		return
	}
	defer d.Close()

	w.Header().Set("Content-Type", d.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.Filename))
	if d.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(d.Size, 10))
	}

	written, copyErr := io.CopyBuffer(w, d.Body, make([]byte, copyBufferSize))

	rec := history.Record{
		URL:      req.URL,
		Platform: d.Platform,
		Title:    d.Title,
		Path:     string(d.Path),
		Status:   "ok",
		Bytes:    written,
	}
	if copyErr != nil {
		// Headers are already written; all we can do is log and record.
		h.logger.Warn("transfer aborted",
			"url", req.URL,
			"path", d.Path,
			"written", written,
			"error", copyErr,
		)
		rec.Status = "aborted"
		rec.Error = copyErr.Error()
	}

	metrics.DeliveriesTotal.WithLabelValues(string(d.Path), rec.Status).Inc()
	metrics.DeliveryBytes.Add(float64(written))
	h.record(r, rec)
}

// record saves a history entry; failures are logged, never surfaced. The
// request context may already be canceled by the time the copy finishes, so
// the save runs detached from it.
func (h *VideoHandler) record(r *http.Request, rec history.Record) {
	if h.recorder == nil {
		return
	}
	if err := h.recorder.Save(context.WithoutCancel(r.Context()), rec); err != nil {
		h.logger.Warn("history save failed", "error", err)
	}
}

// mapFetchError translates workflow errors to an HTTP status and a stable
// client-facing message.
func mapFetchError(err error) (int, string) {
	var upstream *domain.UpstreamError
	switch {
	case errors.Is(err, domain.ErrUnsupportedURL):
		return http.StatusBadRequest, "only twitter/x and tiktok post URLs are supported"
	case errors.Is(err, domain.ErrResolutionFailed):
		return http.StatusBadRequest, "could not resolve video metadata for this URL"
	case errors.Is(err, domain.ErrNoPlayableFormat):
		return http.StatusBadRequest, "no playable video found at this URL"
	case errors.As(err, &upstream):
		return http.StatusBadGateway, fmt.Sprintf("upstream returned status %d", upstream.Status)
	case errors.Is(err, domain.ErrNetwork):
		return http.StatusBadGateway, "failed to reach upstream media host"
	case errors.Is(err, domain.ErrEngineUnavailable):
		return http.StatusInternalServerError, "video processing is unavailable"
	case errors.Is(err, domain.ErrDownloadFailed), errors.Is(err, domain.ErrArtifactNotFound):
		return http.StatusInternalServerError, "video download failed"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
