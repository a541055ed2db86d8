// Package resolver invokes the external yt-dlp binary to resolve post URLs
// into media descriptors and to download media into a workspace.
package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mrb-labs/videograb/internal/config"
	"github.com/mrb-labs/videograb/internal/domain"
)

// outputTemplate names downloaded files after the (length-capped) title.
const outputTemplate = "%(title).200B.%(ext)s"

// YtDlp shells out to yt-dlp for metadata probing and downloading.
type YtDlp struct {
	cfg       config.ResolverConfig
	userAgent string
	logger    *slog.Logger
}

// NewYtDlp creates a yt-dlp backed resolver.
func NewYtDlp(cfg config.ResolverConfig, userAgent string, logger *slog.Logger) *YtDlp {
	return &YtDlp{
		cfg:       cfg,
		userAgent: userAgent,
		logger:    logger,
	}
}

// Available reports whether the resolver binary can be found on PATH.
func (y *YtDlp) Available() bool {
	_, err := exec.LookPath(y.cfg.Binary)
	return err == nil
}

// probeFormat mirrors the resolver's loosely-typed format JSON. Missing keys
// decode to zero values and are defaulted once, here at the boundary.
type probeFormat struct {
	FormatID    string            `json:"format_id"`
	Ext         string            `json:"ext"`
	VCodec      string            `json:"vcodec"`
	ACodec      string            `json:"acodec"`
	Protocol    string            `json:"protocol"`
	URL         string            `json:"url"`
	TBR         float64           `json:"tbr"`
	Height      int               `json:"height"`
	HTTPHeaders map[string]string `json:"http_headers"`
}

type probeInfo struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	Formats []probeFormat `json:"formats"`
}

// Resolve probes the URL without downloading and maps the result to a
// strongly-typed descriptor.
func (y *YtDlp) Resolve(ctx context.Context, rawURL string) (*domain.MediaDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, y.cfg.ProbeTimeout)
	defer cancel()

	args := []string{
		"-J",
		"--no-warnings",
		"--no-playlist",
		"--skip-download",
		"--user-agent", y.userAgent,
	}
	args = y.appendCookies(args)
	args = append(args, rawURL)

	cmd := exec.CommandContext(ctx, y.cfg.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrResolutionFailed, execDetail(ctx, err, &stderr))
	}

	var info probeInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, fmt.Errorf("%w: parse metadata: %v", domain.ErrResolutionFailed, err)
	}

	return mapDescriptor(&info), nil
}

func mapDescriptor(info *probeInfo) *domain.MediaDescriptor {
	desc := &domain.MediaDescriptor{
		ID:      info.ID,
		Title:   info.Title,
		Formats: make([]domain.CandidateStream, 0, len(info.Formats)),
	}
	for _, f := range info.Formats {
		desc.Formats = append(desc.Formats, domain.CandidateStream{
			FormatID:   f.FormatID,
			Container:  f.Ext,
			VideoCodec: f.VCodec,
			AudioCodec: f.ACodec,
			Protocol:   f.Protocol,
			Bitrate:    f.TBR,
			Height:     f.Height,
			SourceURL:  f.URL,
			Headers:    f.HTTPHeaders,
		})
	}
	return desc
}

// Download fetches the best available renditions into dir, merging split
// video/audio into an mp4. It returns the path of the produced file as
// reported by the downloader; callers should still verify it on disk.
func (y *YtDlp) Download(ctx context.Context, rawURL, dir string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, y.cfg.DownloadTimeout)
	defer cancel()

	args := []string{
		"-q", "--no-warnings", "--no-progress",
		"--no-playlist",
		"--user-agent", y.userAgent,
		"-f", "bestvideo+bestaudio/best",
		"--merge-output-format", "mp4",
		"--remux-video", "mp4",
		"--print", "after_move:filepath",
		"-o", filepath.Join(dir, outputTemplate),
	}
	args = y.appendCookies(args)
	args = append(args, rawURL)

	cmd := exec.CommandContext(ctx, y.cfg.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrDownloadFailed, execDetail(ctx, err, &stderr))
	}

	// The filepath print is the last non-empty stdout line.
	var path string
	for _, ln := range strings.Split(stdout.String(), "\n") {
		if s := strings.TrimSpace(ln); s != "" {
			path = s
		}
	}
	return path, nil
}

func (y *YtDlp) appendCookies(args []string) []string {
	if y.cfg.UseCookies && y.cfg.CookiesFile != "" {
		return append(args, "--cookies", y.cfg.CookiesFile)
	}
	return args
}

// execDetail builds a safe human-readable detail string for a failed
// invocation, preferring the tool's stderr tail over the raw exec error.
func execDetail(ctx context.Context, err error, stderr *bytes.Buffer) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "timed out"
	}
	msg := strings.TrimSpace(stderr.String())
	if msg == "" {
		return err.Error()
	}
	lines := strings.Split(msg, "\n")
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	return strings.Join(lines, "; ")
}
