package domain

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	// ErrUnsupportedURL is returned when a URL matches no known platform.
	ErrUnsupportedURL = errors.New("unsupported URL")

	// ErrResolutionFailed is returned when metadata extraction fails.
	ErrResolutionFailed = errors.New("media resolution failed")

	// ErrNoPlayableFormat is returned when the descriptor carries no streams at all.
	ErrNoPlayableFormat = errors.New("no playable format")

	// ErrNetwork is returned when the outbound connect fails before any bytes
	// are sent to the caller.
	ErrNetwork = errors.New("network error")

	// ErrEngineUnavailable is returned when the external transcoder binary
	// cannot be found on PATH.
	ErrEngineUnavailable = errors.New("transcoding engine unavailable")

	// ErrArtifactNotFound is returned when the fetch-transcode pipeline ran
	// but produced no usable output file.
	ErrArtifactNotFound = errors.New("transcoded artifact not found")

	// ErrDownloadFailed is returned when the external download process fails.
	ErrDownloadFailed = errors.New("video download failed")
)

// UpstreamError is returned when the proxy target responds with an error
// status before any body bytes have been relayed.
type UpstreamError struct {
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream fetch failed: status %d", e.Status)
}
