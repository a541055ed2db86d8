// Package pipeline implements the fetch-transcode delivery path: download
// via the external resolver into a workspace, normalize with ffmpeg, and
// hand the caller an on-disk artifact whose workspace outlives the request's
// response body.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mrb-labs/videograb/internal/config"
	"github.com/mrb-labs/videograb/internal/domain"
	"github.com/mrb-labs/videograb/internal/metrics"
	"github.com/mrb-labs/videograb/pkg/ffmpeg"
)

// Downloader fetches media for a URL into a directory and reports the
// produced file path (which may be unreliable; callers re-verify on disk).
type Downloader interface {
	Download(ctx context.Context, rawURL, dir string) (string, error)
}

// Engine normalizes and inspects media files. *ffmpeg.Processor satisfies
// it; a nil Engine means the transcoder binaries are not installed.
type Engine interface {
	Normalize(ctx context.Context, src, dst string, cfg ffmpeg.PostprocessConfig) error
	Probe(ctx context.Context, path string) (*ffmpeg.ProbeResult, error)
}

// Artifact is a finished on-disk output plus the workspace that owns it.
// Release must be called exactly once after the artifact has been fully
// delivered (or delivery abandoned).
type Artifact struct {
	Path     string
	Filename string
	Probe    *ffmpeg.ProbeResult
	ws       *Workspace
}

// Release frees the artifact's workspace.
func (a *Artifact) Release() {
	if a.ws != nil {
		a.ws.Release()
	}
}

// FetchTranscoder runs the download-normalize pipeline.
type FetchTranscoder struct {
	downloader Downloader
	engine     Engine
	post       ffmpeg.PostprocessConfig
	cfg        config.TranscodeConfig
	logger     *slog.Logger
}

// New creates a pipeline. engine may be nil when ffmpeg is not installed;
// Run then fails fast with domain.ErrEngineUnavailable.
func New(dl Downloader, engine Engine, cfg config.TranscodeConfig, logger *slog.Logger) *FetchTranscoder {
	post := ffmpeg.DefaultPostprocess()
	if cfg.Preset != "" {
		post.Preset = cfg.Preset
	}
	if cfg.CRF > 0 {
		post.CRF = cfg.CRF
	}
	if cfg.AudioBitrate != "" {
		post.AudioBitrate = cfg.AudioBitrate
	}

	return &FetchTranscoder{
		downloader: dl,
		engine:     engine,
		post:       post,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run executes the pipeline for one request. On any failure the workspace
// is deleted before the error propagates; on success the caller owns the
// artifact and must Release it after transmission.
func (t *FetchTranscoder) Run(ctx context.Context, rawURL string, desc *domain.MediaDescriptor) (*Artifact, error) {
	// Engine check happens before any workspace exists.
	if t.engine == nil {
		return nil, domain.ErrEngineUnavailable
	}

	start := time.Now()

	ws, err := NewWorkspace(t.cfg.TempPath, t.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDownloadFailed, err)
	}

	art, err := t.run(ctx, ws, rawURL, desc)
	if err != nil {
		ws.Release()
		return nil, err
	}

	metrics.TranscodeDuration.Observe(time.Since(start).Seconds())
	return art, nil
}

func (t *FetchTranscoder) run(ctx context.Context, ws *Workspace, rawURL string, desc *domain.MediaDescriptor) (*Artifact, error) {
	reported, err := t.downloader.Download(ctx, rawURL, ws.Dir)
	if err != nil {
		return nil, err
	}

	src, err := locateArtifact(ws.Dir, reported)
	if err != nil {
		return nil, err
	}

	dst := filepath.Join(ws.Dir, "normalized.mp4")
	if err := t.engine.Normalize(ctx, src, dst, t.post); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDownloadFailed, err)
	}

	probe, err := t.engine.Probe(ctx, dst)
	if err != nil {
		// Inspection is informational only.
		t.logger.Warn("artifact probe failed", "path", dst, "error", err)
		probe = nil
	}

	filename := domain.SanitizeFilename(desc.DisplayTitle(), "mp4", t.cfg.FilenameUnderscores)

	t.logger.Info("transcode complete",
		"url", rawURL,
		"artifact", dst,
		"filename", filename,
	)

	return &Artifact{
		Path:     dst,
		Filename: filename,
		Probe:    probe,
		ws:       ws,
	}, nil
}

// locateArtifact resolves the produced file: the reported path with an .mp4
// extension if that exists, then the reported path itself, then the most
// recently modified .mp4 in the workspace.
func locateArtifact(dir, reported string) (string, error) {
	if reported != "" {
		base := strings.TrimSuffix(reported, filepath.Ext(reported))
		if candidate := base + ".mp4"; fileExists(candidate) {
			return candidate, nil
		}
		if fileExists(reported) {
			return reported, nil
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: read workspace: %v", domain.ErrArtifactNotFound, err)
	}

	var newest string
	var newestMod time.Time
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".mp4") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = filepath.Join(dir, e.Name())
			newestMod = info.ModTime()
		}
	}

	if newest == "" {
		return "", domain.ErrArtifactNotFound
	}
	return newest, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
