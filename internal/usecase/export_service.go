package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/match-export/internal/domain/match"
	"github.com/riskibarqy/match-export/internal/domain/rawdata"
	"github.com/riskibarqy/match-export/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	rawSourcePandaScore = "pandascore"
	rawEntityPastPage   = "matches_past_page"
)

// ExportRequest bounds the page walk to [FirstPage, PageLimit).
type ExportRequest struct {
	FirstPage       int `validate:"gte=1"`
	PageLimit       int `validate:"gtfield=FirstPage"`
	SkipFailedPages bool
	StopOnEmptyPage bool
}

type ExportSummary struct {
	PagesRequested int
	PagesFetched   int
	PagesSkipped   []int
	Records        int
	Columns        int
	Duration       time.Duration
}

type ExportService struct {
	source   match.Source
	writer   match.TableWriter
	archive  rawdata.Repository
	validate *validator.Validate
	logger   *logging.Logger
	now      func() time.Time
}

// NewExportService wires the pipeline. archive may be nil.
func NewExportService(source match.Source, writer match.TableWriter, archive rawdata.Repository, logger *logging.Logger) *ExportService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ExportService{
		source:   source,
		writer:   writer,
		archive:  archive,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// Run fetches every page, builds the table and writes it. Nothing is written
// when fetching or table building fails.
func (s *ExportService) Run(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ExportService.Run",
		attribute.Int("export.first_page", req.FirstPage),
		attribute.Int("export.page_limit", req.PageLimit),
	)
	defer span.End()

	startedAt := s.now()
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return ExportSummary{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	summary := ExportSummary{PagesRequested: req.PageLimit - req.FirstPage}
	records, err := s.fetchAll(ctx, req, &summary)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return summary, err
	}
	summary.Records = len(records)

	table, err := s.buildTable(ctx, records)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build table failed")
		return summary, err
	}
	summary.Columns = len(table.Columns)

	if err := s.writeTable(ctx, table); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		return summary, err
	}

	summary.Duration = s.now().Sub(startedAt)
	span.SetAttributes(
		attribute.Int("export.records", summary.Records),
		attribute.Int("export.columns", summary.Columns),
		attribute.Int("export.pages_skipped", len(summary.PagesSkipped)),
	)
	return summary, nil
}

func (s *ExportService) fetchAll(ctx context.Context, req ExportRequest, summary *ExportSummary) ([]match.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ExportService.fetchAll")
	defer span.End()

	records := make([]match.Record, 0, 256)
	for page := req.FirstPage; page < req.PageLimit; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := s.source.FetchPastMatchesPage(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !req.SkipFailedPages || errors.Is(err, ErrDependencyUnavailable) {
				return nil, fmt.Errorf("fetch page %d: %w", page, err)
			}
			s.logger.WarnContext(ctx, "skip failed page", "page", page, "error", err)
			summary.PagesSkipped = append(summary.PagesSkipped, page)
			continue
		}

		summary.PagesFetched++
		records = append(records, result.Records...)
		s.logger.DebugContext(ctx, "page fetched",
			"page", page,
			"records", len(result.Records),
			"total_records", len(records),
			"provider_total", result.Total,
		)
		s.archivePage(ctx, result)

		if req.StopOnEmptyPage && len(result.Records) == 0 {
			s.logger.InfoContext(ctx, "empty page reached, stop paging", "page", page)
			break
		}
	}

	return records, nil
}

func (s *ExportService) buildTable(ctx context.Context, records []match.Record) (match.Table, error) {
	_, span := startUsecaseSpan(ctx, "usecase.ExportService.buildTable", attribute.Int("records", len(records)))
	defer span.End()

	table, err := match.BuildTable(records)
	if err != nil {
		return match.Table{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return table, nil
}

func (s *ExportService) writeTable(ctx context.Context, table match.Table) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.ExportService.writeTable", attribute.Int("rows", len(table.Rows)))
	defer span.End()

	if err := s.writer.WriteTable(ctx, table); err != nil {
		if errors.Is(err, ErrExportWrite) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrExportWrite, err)
	}
	return nil
}

// archivePage keeps the raw body. Archive failures never fail the export.
func (s *ExportService) archivePage(ctx context.Context, page match.Page) {
	if s.archive == nil || len(page.Raw) == 0 {
		return
	}

	sum := sha256.Sum256(page.Raw)
	payload := rawdata.Payload{
		Source:      rawSourcePandaScore,
		EntityType:  rawEntityPastPage,
		EntityKey:   page.Request,
		PayloadJSON: string(page.Raw),
		PayloadHash: hex.EncodeToString(sum[:]),
		RecordCount: len(page.Records),
		FetchedAt:   s.now().UTC(),
	}
	if err := s.archive.UpsertMany(ctx, []rawdata.Payload{payload}); err != nil {
		s.logger.WarnContext(ctx, "archive raw page failed", "page", page.Number, "entity_key", page.Request, "error", err)
	}
}
