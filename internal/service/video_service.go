// Package service orchestrates the fetch workflow: classify the inbound
// URL, resolve it to candidate streams, plan a delivery path, and execute
// the plan with an optional proxy-to-transcode fallback.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/mrb-labs/videograb/internal/config"
	"github.com/mrb-labs/videograb/internal/delivery"
	"github.com/mrb-labs/videograb/internal/domain"
	"github.com/mrb-labs/videograb/internal/downloader"
	"github.com/mrb-labs/videograb/internal/metrics"
	"github.com/mrb-labs/videograb/internal/pipeline"
	"github.com/mrb-labs/videograb/internal/platform"
)

// URLClassifier validates and normalizes an inbound post URL.
type URLClassifier interface {
	Classify(ctx context.Context, rawURL string) (platform.Classified, error)
}

// Resolver turns a post URL into a media descriptor.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (*domain.MediaDescriptor, error)
}

// StreamOpener opens a direct upstream media stream for proxying.
type StreamOpener interface {
	Open(ctx context.Context, stream domain.CandidateStream) (*downloader.Upstream, error)
}

// Transcoder runs the fetch-transcode pipeline and returns an on-disk
// artifact.
type Transcoder interface {
	Run(ctx context.Context, rawURL string, desc *domain.MediaDescriptor) (*pipeline.Artifact, error)
}

// Delivery is a ready-to-relay response body. Close releases the body and
// any backing workspace; callers must close it exactly once, after the body
// has been fully copied or the copy abandoned.
type Delivery struct {
	Filename    string
	ContentType string
	Body        io.ReadCloser
	Size        int64 // -1 when unknown
	Path        domain.DeliveryPath
	Platform    string
	Title       string

	release func()
}

// Close closes the body and frees backing resources.
func (d *Delivery) Close() error {
	err := d.Body.Close()
	if d.release != nil {
		d.release()
	}
	return err
}

// VideoService coordinates classification, resolution and delivery.
type VideoService struct {
	classifier    URLClassifier
	resolver      Resolver
	streamer      StreamOpener
	transcoder    Transcoder
	proxyFallback bool
	underscores   bool
	logger        *slog.Logger
}

// NewVideoService creates the orchestrator.
func NewVideoService(
	classifier URLClassifier,
	resolver Resolver,
	streamer StreamOpener,
	transcoder Transcoder,
	downloadCfg config.DownloadConfig,
	transcodeCfg config.TranscodeConfig,
	logger *slog.Logger,
) *VideoService {
	return &VideoService{
		classifier:    classifier,
		resolver:      resolver,
		streamer:      streamer,
		transcoder:    transcoder,
		proxyFallback: downloadCfg.ProxyFallback,
		underscores:   transcodeCfg.FilenameUnderscores,
		logger:        logger,
	}
}

// Fetch resolves rawURL and returns an open delivery. The returned error
// wraps a domain sentinel that the transport layer maps to a status code.
func (s *VideoService) Fetch(ctx context.Context, rawURL string) (*Delivery, error) {
	cls, err := s.classifier.Classify(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	desc, err := s.resolver.Resolve(ctx, cls.URL)
	if err != nil {
		return nil, err
	}

	plan := delivery.Plan(desc, s.underscores)

	s.logger.Info("delivery planned",
		"platform", cls.Platform,
		"plan", plan.Kind.String(),
		"formats", len(desc.Formats),
	)

	switch plan.Kind {
	case domain.PlanProxyDirect:
		d, err := s.proxy(ctx, cls, desc, plan)
		if err == nil {
			return d, nil
		}
		if !s.proxyFallback || !isUpstreamFailure(err) {
			return nil, err
		}
		metrics.ProxyFallbacksTotal.Inc()
		s.logger.Warn("proxy path failed, falling back to transcode", "error", err)
		return s.transcode(ctx, cls, desc)

	case domain.PlanFetchTranscode:
		return s.transcode(ctx, cls, desc)

	default:
		return nil, domain.ErrNoPlayableFormat
	}
}

// isUpstreamFailure reports whether err is the kind of proxy-open failure
// the transcode path can recover from. Planning errors and context
// cancellation are not.
func isUpstreamFailure(err error) bool {
	var upstream *domain.UpstreamError
	return errors.As(err, &upstream) || errors.Is(err, domain.ErrNetwork)
}

func (s *VideoService) proxy(ctx context.Context, cls platform.Classified, desc *domain.MediaDescriptor, plan domain.DeliveryPlan) (*Delivery, error) {
	up, err := s.streamer.Open(ctx, *plan.Stream)
	if err != nil {
		return nil, err
	}
	return &Delivery{
		Filename:    plan.Filename,
		ContentType: up.ContentType,
		Body:        up.Body,
		Size:        up.ContentLength,
		Path:        domain.PathProxy,
		Platform:    string(cls.Platform),
		Title:       desc.DisplayTitle(),
	}, nil
}

func (s *VideoService) transcode(ctx context.Context, cls platform.Classified, desc *domain.MediaDescriptor) (*Delivery, error) {
	art, err := s.transcoder.Run(ctx, cls.URL, desc)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(art.Path)
	if err != nil {
		art.Release()
		return nil, errors.Join(domain.ErrArtifactNotFound, err)
	}

	size := int64(-1)
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	return &Delivery{
		Filename:    art.Filename,
		ContentType: "video/mp4",
		Body:        f,
		Size:        size,
		Path:        domain.PathTranscode,
		Platform:    string(cls.Platform),
		Title:       desc.DisplayTitle(),
		release:     art.Release,
	}, nil
}
