// Package downloader opens remote media streams for proxying to callers.
package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mrb-labs/videograb/internal/config"
	"github.com/mrb-labs/videograb/internal/domain"
)

// Upstream is an opened remote stream. No body bytes have been consumed;
// the caller relays Body and must close it.
type Upstream struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// ProxyStreamer opens direct media URLs with a bounded connection pool.
type ProxyStreamer struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

// NewProxyStreamer creates a streamer from download configuration. The
// overall timeout may be zero (disabled); the response-header timeout and
// pool limits always apply.
func NewProxyStreamer(cfg config.DownloadConfig, logger *slog.Logger) *ProxyStreamer {
	transport := &http.Transport{
		ResponseHeaderTimeout: cfg.HeaderTimeout,
		MaxConnsPerHost:       cfg.MaxConns,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConns,
	}

	return &ProxyStreamer{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// Open issues the outbound GET for a selected stream. The stream's required
// headers are merged over the default User-Agent and win on collision.
// Redirects are followed. Failures before any body bytes are surfaced as
// typed errors: *domain.UpstreamError for HTTP error statuses,
// domain.ErrNetwork-wrapped for connect-level failures.
//
// Errors occurring while the returned Body is being relayed arrive after
// response headers have been committed to the caller and can only surface
// as a truncated transfer.
func (s *ProxyStreamer) Open(ctx context.Context, stream domain.CandidateStream) (*Upstream, error) {
	if stream.SourceURL == "" {
		return nil, fmt.Errorf("%w: stream has no source URL", domain.ErrNoPlayableFormat)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, stream.SourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", s.userAgent)
	for k, v := range stream.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("upstream connect failed", "format", stream.FormatID, "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}

	if resp.StatusCode >= 400 {
		resp.Body.Close()
		s.logger.Warn("upstream rejected stream", "format", stream.FormatID, "status", resp.StatusCode)
		return nil, &domain.UpstreamError{Status: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}

	s.logger.Info("upstream stream opened",
		"format", stream.FormatID,
		"content_type", contentType,
		"content_length", resp.ContentLength,
	)

	return &Upstream{
		Body:          resp.Body,
		ContentType:   contentType,
		ContentLength: resp.ContentLength,
	}, nil
}
