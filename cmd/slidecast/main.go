package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"slidecast/internal/api"
	"slidecast/internal/blob"
	"slidecast/internal/captions"
	"slidecast/internal/config"
	"slidecast/internal/playback"
	"slidecast/internal/probe"
	"slidecast/internal/project"
	"slidecast/internal/server"
	"slidecast/internal/storage"
	"slidecast/internal/thumbs"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger := setupLogger(cfg.Logging)

	logger.Info().
		Str("version", api.Version).
		Msg("starting slidecast server")

	store, err := storage.NewStore(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	defer store.Close()

	blobs, err := blob.NewStore(cfg.Media.BlobDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize blob store")
	}

	ffprobe := probe.NewFFProbe(cfg.Probe.FFprobePath, logger)
	if ffprobe.IsAvailable() {
		logger.Info().Msg("ffprobe available - duration probing enabled")
	} else {
		logger.Warn().Msg("ffprobe not found - duration probing disabled")
	}
	prober, err := probe.NewCached(ffprobe, cfg.Probe.CacheCapacity)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize probe cache")
	}

	sessions := playback.NewManager(cfg.Playback.FadeTick, logger)

	limits := project.Limits{
		MaxImages:       cfg.Limits.MaxImages,
		MaxVideos:       cfg.Limits.MaxVideos,
		MaxVideoSeconds: cfg.Limits.MaxVideoSeconds,
	}

	handler := api.NewHandler(
		store,
		blobs,
		prober,
		cfg.Probe.Timeout,
		limits,
		cfg.Limits.MaxUploadBytes,
		sessions,
		logger,
	)

	if cfg.Captions.APIKey != "" {
		client := captions.NewClient(
			cfg.Captions.APIKey,
			captions.WithBaseURL(cfg.Captions.BaseURL),
			captions.WithModel(cfg.Captions.Model),
		)
		handler.SetCaptioner(captions.NewGenerator(client, cfg.Captions.Timeout, logger))
		logger.Info().Str("model", cfg.Captions.Model).Msg("caption generation enabled")
	} else {
		logger.Warn().Msg("no captions api key - caption generation disabled")
	}

	thumbnails, err := thumbs.NewService(
		cfg.Media.ThumbnailDir,
		blobs,
		cfg.Media.CacheCapacity,
		cfg.Media.CacheMaxSize,
		logger,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize thumbnails")
	}
	if thumbnails.IsAvailable() {
		logger.Info().Msg("ffmpeg available - thumbnail generation enabled")
	} else {
		logger.Warn().Msg("ffmpeg not found - thumbnail generation disabled")
	}
	handler.SetThumbnails(thumbnails)

	srv := server.New(cfg, logger, handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info().Msg("received shutdown signal")
		cancel()

		sessions.CloseAll()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("shutdown error")
		}
	}()

	if err := srv.Start(); err != nil {
		logger.Error().Err(err).Msg("server error")
	}

	logger.Info().Msg("server stopped")
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().
			Timestamp().
			Logger()
	}

	return zerolog.New(os.Stdout).
		With().
		Timestamp().
		Logger()
}
