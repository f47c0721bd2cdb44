package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/riskibarqy/match-export/external/pandascore"
	"github.com/riskibarqy/match-export/internal/config"
	"github.com/riskibarqy/match-export/internal/domain/rawdata"
	"github.com/riskibarqy/match-export/internal/infrastructure/csvexport"
	"github.com/riskibarqy/match-export/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/match-export/internal/platform/logging"
	"github.com/riskibarqy/match-export/internal/platform/resilience"
	"github.com/riskibarqy/match-export/internal/usecase"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
)

const dbPingTimeout = 5 * time.Second

// Exporter is the wired export pipeline for one run.
type Exporter struct {
	service    *usecase.ExportService
	request    usecase.ExportRequest
	outputPath string
	db         *sqlx.DB
	logger     *logging.Logger
}

func NewExporter(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Exporter, error) {
	if logger == nil {
		logger = logging.Default()
	}

	client := pandascore.NewClient(pandascore.ClientConfig{
		BaseURL:      cfg.PandaScoreBaseURL,
		Token:        cfg.PandaScoreToken,
		Videogame:    cfg.PandaScoreVideogame,
		StatusFilter: cfg.PandaScoreStatusFilter,
		PerPage:      cfg.PandaScorePerPage,
		Timeout:      cfg.PandaScoreTimeout,
		MaxRetries:   cfg.PandaScoreMaxRetries,
		RetryBackoff: cfg.PandaScoreRetryBackoff,
		Logger:       logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.PandaScoreCircuitEnabled,
			FailureThreshold: cfg.PandaScoreCircuitFailureCount,
			OpenTimeout:      cfg.PandaScoreCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.PandaScoreCircuitHalfOpenMaxReq,
		},
	})
	writer := csvexport.NewWriter(cfg.ExportOutputPath, logger)

	exporter := &Exporter{
		request: usecase.ExportRequest{
			FirstPage:       cfg.PandaScoreFirstPage,
			PageLimit:       cfg.PandaScorePageLimit,
			SkipFailedPages: cfg.PandaScoreSkipFailedPages,
			StopOnEmptyPage: cfg.PandaScoreStopOnEmptyPage,
		},
		outputPath: writer.Path(),
		logger:     logger,
	}

	var archive rawdata.Repository
	if cfg.ArchiveEnabled {
		db, err := openArchiveDB(ctx, cfg)
		if err != nil {
			logger.WarnContext(ctx, "raw archive unavailable, continuing without it", "error", err)
		} else {
			exporter.db = db
			archive = postgres.NewRawDataRepository(db)
		}
	}

	exporter.service = usecase.NewExportService(client, writer, archive, logger)
	return exporter, nil
}

func (e *Exporter) Run(ctx context.Context) (usecase.ExportSummary, error) {
	e.logger.InfoContext(ctx, "export started",
		"first_page", e.request.FirstPage,
		"page_limit", e.request.PageLimit,
		"output_path", e.outputPath,
		"archive", e.db != nil,
	)
	return e.service.Run(ctx, e.request)
}

func (e *Exporter) OutputPath() string {
	return e.outputPath
}

func (e *Exporter) Close() error {
	if e == nil || e.db == nil {
		return nil
	}
	return e.db.Close()
}

func openArchiveDB(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(dsn)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open archive db: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping archive db: %w", err)
	}
	return db, nil
}
