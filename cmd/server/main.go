package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mrb-labs/videograb/internal/api"
	"github.com/mrb-labs/videograb/internal/api/handler"
	"github.com/mrb-labs/videograb/internal/config"
	"github.com/mrb-labs/videograb/internal/downloader"
	"github.com/mrb-labs/videograb/internal/history"
	"github.com/mrb-labs/videograb/internal/pipeline"
	"github.com/mrb-labs/videograb/internal/platform"
	"github.com/mrb-labs/videograb/internal/resolver"
	"github.com/mrb-labs/videograb/internal/service"
	"github.com/mrb-labs/videograb/pkg/ffmpeg"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("videograb %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting videograb",
		"version", Version,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Ensure the transcode workspace root exists
	if err := os.MkdirAll(cfg.Transcode.TempPath, 0o755); err != nil {
		logger.Error("failed to create temp directory", "error", err)
		os.Exit(1)
	}

	// Initialize the transcode engine (ffmpeg). The service runs without it;
	// only the fetch-transcode path is disabled.
	var engine pipeline.Engine
	processor, err := ffmpeg.NewProcessor()
	if err != nil {
		logger.Warn("ffmpeg not available, transcode path disabled", "error", err)
	} else {
		engine = processor
		if version, err := ffmpeg.GetVersion(); err == nil {
			logger.Info("transcode engine initialized", "ffmpeg_version", version)
		}
	}

	// Initialize dependencies
	classifier := platform.NewClassifier(cfg.Resolver.ShortLinkTimeout, logger)
	ytdlp := resolver.NewYtDlp(cfg.Resolver, cfg.Download.UserAgent, logger)
	if !ytdlp.Available() {
		logger.Warn("resolver binary not found on PATH", "binary", cfg.Resolver.Binary)
	}
	streamer := downloader.NewProxyStreamer(cfg.Download, logger)
	transcoder := pipeline.New(ytdlp, engine, cfg.Transcode, logger)

	// Optional delivery history
	var store *history.Store
	if cfg.History.Path != "" {
		store, err = history.Open(cfg.History.Path, logger)
		if err != nil {
			logger.Error("failed to open history store", "path", cfg.History.Path, "error", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	// Initialize services
	videoSvc := service.NewVideoService(
		classifier,
		ytdlp,
		streamer,
		transcoder,
		cfg.Download,
		cfg.Transcode,
		logger,
	)

	// Initialize handlers. The history handler and recorder stay nil when
	// no database path is configured.
	var recorder handler.HistoryRecorder
	var historyHandler *handler.HistoryHandler
	if store != nil {
		recorder = store
		historyHandler = handler.NewHistoryHandler(store, logger)
	}
	videoHandler := handler.NewVideoHandler(videoSvc, recorder, logger)
	healthHandler := handler.NewHealthHandler(ytdlp, func() bool { return engine != nil && ffmpeg.IsAvailable() }, pingerOrNil(store))

	// Setup router
	router := api.NewRouter(videoHandler, healthHandler, historyHandler, cfg.Server.CORSOrigin)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

// pingerOrNil avoids handing the health handler a typed-nil interface.
func pingerOrNil(store *history.Store) handler.Pinger {
	if store == nil {
		return nil
	}
	return store
}
