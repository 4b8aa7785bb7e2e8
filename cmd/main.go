package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/satriahrh/vaani/internal/api"
	"github.com/satriahrh/vaani/internal/auth"
	"github.com/satriahrh/vaani/internal/config"
	"github.com/satriahrh/vaani/internal/janitor"
	"github.com/satriahrh/vaani/internal/observe"
	"github.com/satriahrh/vaani/internal/websocket"
	"github.com/satriahrh/vaani/usecase"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
	logger.Info("Server exited")
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}

	zapConfig := zap.NewProductionConfig()
	parsed, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zapConfig.Level = parsed
	return zapConfig.Build()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	// Metrics
	meterProvider, shutdownMetrics, err := observe.InitProvider()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer shutdownMetrics(context.Background())

	metrics, err := observe.NewMetrics(meterProvider)
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	// Initialize adapters
	providerSet := newProviders(cfg.Providers, logger)
	defer providerSet.Close()

	speechToText, err := providerSet.speechToText(ctx)
	if err != nil {
		return fmt.Errorf("speech-to-text: %w", err)
	}
	translator, err := providerSet.translator(ctx)
	if err != nil {
		return fmt.Errorf("translator: %w", err)
	}
	textToSpeech, err := providerSet.textToSpeech()
	if err != nil {
		return fmt.Errorf("text-to-speech: %w", err)
	}

	audioStore, err := newAudioStore(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("audio store: %w", err)
	}

	history, closeHistory, err := newHistory(ctx, cfg.History, logger)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	defer closeHistory(context.Background())

	pipeline, err := usecase.NewTranslationPipeline(
		usecase.PipelineConfig{
			SourceLanguage:  cfg.Pipeline.SourceLanguage,
			Languages:       cfg.Pipeline.Languages,
			DefaultLanguage: cfg.Pipeline.DefaultLanguage,
			Timeout:         cfg.Pipeline.Timeout,
			MaxAudioBytes:   cfg.Pipeline.MaxRecordingBytes,
		},
		speechToText,
		translator,
		textToSpeech,
		audioStore,
		history,
		metrics,
		logger,
	)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	hub := websocket.NewHub(pipeline, cfg.Pipeline.MaxRecordingBytes, logger)

	audioJanitor := janitor.NewAudioJanitor(audioStore, cfg.Storage.TTL, cfg.Storage.SweepInterval, logger)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(observe.Middleware(metrics))

	api.InitRoutes(e, api.Dependencies{
		Pipeline:          pipeline,
		Hub:               hub,
		Tokens:            tokens,
		AudioStore:        audioStore,
		MetricsHandler:    observe.Handler(),
		MaxRecordingBytes: cfg.Pipeline.MaxRecordingBytes,
		Logger:            logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		audioJanitor.Start()
		<-gctx.Done()
		audioJanitor.Stop()
		return nil
	})

	g.Go(func() error {
		logger.Info("Server started",
			zap.String("port", cfg.Server.Port),
			zap.String("stt", cfg.Providers.STT),
			zap.String("translate", cfg.Providers.Translate),
			zap.String("tts", cfg.Providers.TTS),
			zap.String("audioStore", cfg.Storage.Backend),
			zap.String("history", cfg.History.Backend))

		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Server is shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := e.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
