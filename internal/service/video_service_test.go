package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mrb-labs/videograb/internal/config"
	"github.com/mrb-labs/videograb/internal/domain"
	"github.com/mrb-labs/videograb/internal/downloader"
	"github.com/mrb-labs/videograb/internal/pipeline"
	"github.com/mrb-labs/videograb/internal/platform"
)

type stubClassifier struct {
	out platform.Classified
	err error
}

func (s *stubClassifier) Classify(ctx context.Context, rawURL string) (platform.Classified, error) {
	return s.out, s.err
}

type stubResolver struct {
	desc *domain.MediaDescriptor
	err  error
}

func (s *stubResolver) Resolve(ctx context.Context, rawURL string) (*domain.MediaDescriptor, error) {
	return s.desc, s.err
}

type stubStreamer struct {
	up     *downloader.Upstream
	err    error
	opened int
}

func (s *stubStreamer) Open(ctx context.Context, stream domain.CandidateStream) (*downloader.Upstream, error) {
	s.opened++
	return s.up, s.err
}

type stubTranscoder struct {
	artifact *pipeline.Artifact
	err      error
	runs     int
}

func (s *stubTranscoder) Run(ctx context.Context, rawURL string, desc *domain.MediaDescriptor) (*pipeline.Artifact, error) {
	s.runs++
	return s.artifact, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func progressiveDescriptor() *domain.MediaDescriptor {
	return &domain.MediaDescriptor{
		ID:    "123",
		Title: "Test Clip",
		Formats: []domain.CandidateStream{
			{FormatID: "hd", Container: "mp4", VideoCodec: "avc1", AudioCodec: "mp4a", Protocol: "https", Height: 720, SourceURL: "https://cdn.example/v.mp4"},
		},
	}
}

func hlsOnlyDescriptor() *domain.MediaDescriptor {
	return &domain.MediaDescriptor{
		ID:    "123",
		Title: "Test Clip",
		Formats: []domain.CandidateStream{
			{FormatID: "hls", Container: "mp4", VideoCodec: "avc1", AudioCodec: "mp4a", Protocol: "m3u8_native", SourceURL: "https://cdn.example/v.m3u8"},
		},
	}
}

func newService(cl URLClassifier, re Resolver, st StreamOpener, tr Transcoder, fallback bool) *VideoService {
	dl := config.DownloadConfig{ProxyFallback: fallback}
	tc := config.TranscodeConfig{FilenameUnderscores: false}
	return NewVideoService(cl, re, st, tr, dl, tc, testLogger())
}

func twitterClassified() *stubClassifier {
	return &stubClassifier{out: platform.Classified{Platform: platform.PlatformTwitter, URL: "https://x.com/u/status/123"}}
}

func TestFetch_ProxyPath(t *testing.T) {
	streamer := &stubStreamer{up: &downloader.Upstream{
		Body:          io.NopCloser(strings.NewReader("video-bytes")),
		ContentType:   "video/mp4",
		ContentLength: 11,
	}}
	transcoder := &stubTranscoder{}
	svc := newService(twitterClassified(), &stubResolver{desc: progressiveDescriptor()}, streamer, transcoder, true)

	d, err := svc.Fetch(context.Background(), "https://x.com/u/status/123")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	defer d.Close()

	if d.Path != domain.PathProxy {
		t.Errorf("expected proxy path, got %s", d.Path)
	}
	if d.Filename != "Test Clip.mp4" {
		t.Errorf("unexpected filename %q", d.Filename)
	}
	if d.Size != 11 || d.ContentType != "video/mp4" {
		t.Errorf("unexpected size/type: %d %s", d.Size, d.ContentType)
	}
	if d.Platform != "twitter" {
		t.Errorf("unexpected platform %q", d.Platform)
	}
	if transcoder.runs != 0 {
		t.Errorf("transcoder should not run on proxy success, ran %d times", transcoder.runs)
	}

	body, _ := io.ReadAll(d.Body)
	if string(body) != "video-bytes" {
		t.Errorf("unexpected body %q", body)
	}
}

func TestFetch_TranscodePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "normalized.mp4")
	if err := os.WriteFile(path, []byte("transcoded"), 0o644); err != nil {
		t.Fatal(err)
	}

	streamer := &stubStreamer{}
	transcoder := &stubTranscoder{artifact: &pipeline.Artifact{Path: path, Filename: "Test Clip.mp4"}}
	svc := newService(twitterClassified(), &stubResolver{desc: hlsOnlyDescriptor()}, streamer, transcoder, true)

	d, err := svc.Fetch(context.Background(), "https://x.com/u/status/123")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	defer d.Close()

	if d.Path != domain.PathTranscode {
		t.Errorf("expected transcode path, got %s", d.Path)
	}
	if d.Size != int64(len("transcoded")) {
		t.Errorf("unexpected size %d", d.Size)
	}
	if streamer.opened != 0 {
		t.Errorf("streamer should not open for segmented-only formats, opened %d times", streamer.opened)
	}

	body, _ := io.ReadAll(d.Body)
	if string(body) != "transcoded" {
		t.Errorf("unexpected body %q", body)
	}
}

func TestFetch_ProxyFallsBackToTranscode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "normalized.mp4")
	if err := os.WriteFile(path, []byte("rescued"), 0o644); err != nil {
		t.Fatal(err)
	}

	streamer := &stubStreamer{err: &domain.UpstreamError{Status: 403}}
	transcoder := &stubTranscoder{artifact: &pipeline.Artifact{Path: path, Filename: "Test Clip.mp4"}}
	svc := newService(twitterClassified(), &stubResolver{desc: progressiveDescriptor()}, streamer, transcoder, true)

	d, err := svc.Fetch(context.Background(), "https://x.com/u/status/123")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	defer d.Close()

	if d.Path != domain.PathTranscode {
		t.Errorf("expected transcode path after fallback, got %s", d.Path)
	}
	if streamer.opened != 1 {
		t.Errorf("expected exactly one proxy attempt, got %d", streamer.opened)
	}
	if transcoder.runs != 1 {
		t.Errorf("expected one transcode run, got %d", transcoder.runs)
	}
}

func TestFetch_FallbackDisabledSurfacesUpstreamError(t *testing.T) {
	streamer := &stubStreamer{err: &domain.UpstreamError{Status: 403}}
	transcoder := &stubTranscoder{}
	svc := newService(twitterClassified(), &stubResolver{desc: progressiveDescriptor()}, streamer, transcoder, false)

	_, err := svc.Fetch(context.Background(), "https://x.com/u/status/123")
	var upstream *domain.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Status != 403 {
		t.Errorf("expected status 403, got %d", upstream.Status)
	}
	if transcoder.runs != 0 {
		t.Errorf("transcoder must not run when fallback disabled, ran %d times", transcoder.runs)
	}
}

func TestFetch_NetworkErrorTriggersFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "normalized.mp4")
	if err := os.WriteFile(path, []byte("rescued"), 0o644); err != nil {
		t.Fatal(err)
	}

	streamer := &stubStreamer{err: errors.Join(domain.ErrNetwork, errors.New("connection refused"))}
	transcoder := &stubTranscoder{artifact: &pipeline.Artifact{Path: path, Filename: "Test Clip.mp4"}}
	svc := newService(twitterClassified(), &stubResolver{desc: progressiveDescriptor()}, streamer, transcoder, true)

	d, err := svc.Fetch(context.Background(), "https://x.com/u/status/123")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	d.Close()

	if transcoder.runs != 1 {
		t.Errorf("expected fallback transcode run, got %d", transcoder.runs)
	}
}

func TestFetch_UnsupportedURL(t *testing.T) {
	svc := newService(
		&stubClassifier{err: domain.ErrUnsupportedURL},
		&stubResolver{}, &stubStreamer{}, &stubTranscoder{}, true,
	)

	_, err := svc.Fetch(context.Background(), "https://example.com/watch")
	if !errors.Is(err, domain.ErrUnsupportedURL) {
		t.Fatalf("expected ErrUnsupportedURL, got %v", err)
	}
}

func TestFetch_ResolutionError(t *testing.T) {
	svc := newService(
		twitterClassified(),
		&stubResolver{err: domain.ErrResolutionFailed},
		&stubStreamer{}, &stubTranscoder{}, true,
	)

	_, err := svc.Fetch(context.Background(), "https://x.com/u/status/123")
	if !errors.Is(err, domain.ErrResolutionFailed) {
		t.Fatalf("expected ErrResolutionFailed, got %v", err)
	}
}

func TestFetch_NoFormats(t *testing.T) {
	svc := newService(
		twitterClassified(),
		&stubResolver{desc: &domain.MediaDescriptor{ID: "123"}},
		&stubStreamer{}, &stubTranscoder{}, true,
	)

	_, err := svc.Fetch(context.Background(), "https://x.com/u/status/123")
	if !errors.Is(err, domain.ErrNoPlayableFormat) {
		t.Fatalf("expected ErrNoPlayableFormat, got %v", err)
	}
}

func TestFetch_TranscodeFailureSurfaces(t *testing.T) {
	svc := newService(
		twitterClassified(),
		&stubResolver{desc: hlsOnlyDescriptor()},
		&stubStreamer{},
		&stubTranscoder{err: domain.ErrDownloadFailed},
		true,
	)

	_, err := svc.Fetch(context.Background(), "https://x.com/u/status/123")
	if !errors.Is(err, domain.ErrDownloadFailed) {
		t.Fatalf("expected ErrDownloadFailed, got %v", err)
	}
}
