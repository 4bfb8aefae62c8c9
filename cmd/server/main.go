// Package main is the entry point for the supermarkets server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vkuksa/supermarkets/internal/backend"
	"github.com/vkuksa/supermarkets/internal/config"
	"github.com/vkuksa/supermarkets/internal/server"
	"github.com/vkuksa/supermarkets/internal/session"
	"github.com/vkuksa/supermarkets/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use a basic logger for startup errors
		basicLogger, _ := zap.NewProduction()
		basicLogger.Fatal("failed to load configuration", zap.Error(err))
	}

	// Initialize logger
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.ServerPort),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.String("storage_mode", cfg.StorageMode),
		zap.String("login_path", cfg.LoginPath),
		zap.String("dashboard_path", cfg.DashboardPath),
	)

	// Create the query client based on config
	querier, cleanup, err := createQuerier(cfg, logger)
	if err != nil {
		logger.Error("failed to create query client", zap.Error(err))
		return 1
	}
	defer cleanup()

	// Create the session manager
	sessions, err := session.NewManager(cfg.SessionUsers, cfg.SessionCookieName, cfg.SessionTTL)
	if err != nil {
		logger.Error("failed to create session manager", zap.Error(err))
		return 1
	}

	// Create per-user store registry and server
	stores := store.NewRegistry(querier)
	srv := server.New(cfg, logger, stores, sessions)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	// Wait for shutdown signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", zap.Error(err))
		return 1
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		// Create shutdown context with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		// Graceful shutdown
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return 1
		}
	}

	logger.Info("server stopped")
	return 0
}

// initLogger initializes a zap logger with the specified log level.
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return zapConfig.Build()
}

// createQuerier creates the query client for the configured storage mode.
// The returned cleanup function releases any held connections.
func createQuerier(cfg *config.Config, logger *zap.Logger) (backend.Querier, func(), error) {
	switch cfg.StorageMode {
	case "memory":
		logger.Info("storage mode: memory")
		return backend.NewMemoryQuerier(), func() {}, nil
	case "postgres":
		logger.Info("storage mode: postgres")
		pq, err := backend.NewPostgresQuerier(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("creating postgres query client: %w", err)
		}
		cleanup := func() {
			if err := pq.Close(); err != nil {
				logger.Warn("closing postgres query client", zap.Error(err))
			}
		}
		return pq, cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage mode: %s", cfg.StorageMode)
	}
}
