package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/riskibarqy/match-export/internal/app"
	"github.com/riskibarqy/match-export/internal/config"
	"github.com/riskibarqy/match-export/internal/observability"
	"github.com/riskibarqy/match-export/internal/platform/logging"
	"github.com/riskibarqy/match-export/internal/usecase"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitUpstream    = 2
	exitMalformed   = 3
	exitWrite       = 4
	exitInvalidConf = 5
)

func main() {
	os.Exit(run())
}

func run() int {
	bootLogger := logging.NewJSON(logging.LevelInfo)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		bootLogger.Error("load .env", "error", err)
		return exitInvalidConf
	}

	cfg, err := config.Load()
	if err != nil {
		bootLogger.Error("load config", "error", err)
		return exitInvalidConf
	}

	logger := logging.NewJSON(cfg.LogLevel).With(
		"service", cfg.ServiceName,
		"version", cfg.ServiceVersion,
		"env", cfg.AppEnv,
	)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		return exitFailure
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("shutdown uptrace", "error", err)
		}
	}()

	stopProfiling, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		return exitFailure
	}
	defer func() {
		if err := stopProfiling(); err != nil {
			logger.Warn("stop pyroscope", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, span := otel.Tracer("match-export/cmd/export").Start(ctx, "export.run")
	defer span.End()

	exporter, err := app.NewExporter(ctx, cfg, logger)
	if err != nil {
		logger.ErrorContext(ctx, "build exporter", "error", err)
		return exitFailure
	}
	defer func() {
		if err := exporter.Close(); err != nil {
			logger.WarnContext(ctx, "close exporter", "error", err)
		}
	}()

	summary, err := exporter.Run(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "export failed")
		logger.ErrorContext(ctx, "export failed",
			"error", err,
			"pages_fetched", summary.PagesFetched,
			"pages_skipped", summary.PagesSkipped,
		)
		return exitCode(err)
	}

	span.SetAttributes(
		attribute.Int("export.records", summary.Records),
		attribute.Int("export.columns", summary.Columns),
	)
	logger.InfoContext(ctx, "export finished",
		"pages_requested", summary.PagesRequested,
		"pages_fetched", summary.PagesFetched,
		"pages_skipped", summary.PagesSkipped,
		"records", summary.Records,
		"columns", summary.Columns,
		"output_path", exporter.OutputPath(),
		"duration", summary.Duration,
	)
	return exitOK
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, usecase.ErrInvalidInput):
		return exitInvalidConf
	case errors.Is(err, usecase.ErrExportWrite):
		return exitWrite
	case errors.Is(err, usecase.ErrMalformedResponse):
		return exitMalformed
	case errors.Is(err, usecase.ErrUpstreamRequest), errors.Is(err, usecase.ErrDependencyUnavailable):
		return exitUpstream
	default:
		return exitFailure
	}
}
