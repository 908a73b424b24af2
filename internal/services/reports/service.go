// Package reports generates report specs through the summarizer, grounded in
// the tenant's dashboard aggregates, and stores them for later retrieval.
package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"lumen/internal/logger"
	"lumen/internal/ports"
	"lumen/internal/report"
)

var (
	ErrInvalidQuery = errors.New("invalid report query")
	// ErrGenerative covers any failure of the summarizer, including a
	// malformed spec.
	ErrGenerative = errors.New("generative request failed")
	ErrTimeout    = fmt.Errorf("%w: timed out", ErrGenerative)
	// ErrNoResult means the summarizer answered with nothing renderable.
	ErrNoResult = errors.New("no renderable report for query")
	// ErrAsyncDisabled is returned by Enqueue when no job queue is wired.
	ErrAsyncDisabled = errors.New("asynchronous reports disabled")
)

const maxQueryLen = 500

// ContextSource supplies the aggregates a report is grounded in.
type ContextSource interface {
	Context(ctx context.Context, tenantID string, at time.Time) (ports.ReportContext, error)
}

type Service struct {
	source     ContextSource
	summarizer ports.Summarizer
	reports    ports.ReportRepository
	jobs       ports.JobRepository
	timeout    time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

type Options struct {
	// Jobs enables Enqueue. Nil keeps generation synchronous only.
	Jobs    ports.JobRepository
	Timeout time.Duration
	Logger  *slog.Logger
}

func New(source ContextSource, summarizer ports.Summarizer, reports ports.ReportRepository, opts Options) *Service {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Service{
		source:     source,
		summarizer: summarizer,
		reports:    reports,
		jobs:       opts.Jobs,
		timeout:    timeout,
		logger:     logger.OrDefault(opts.Logger),
		now:        time.Now,
	}
}

func normalizeQuery(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidQuery)
	}
	if len(q) > maxQueryLen {
		return "", fmt.Errorf("%w: longer than %d bytes", ErrInvalidQuery, maxQueryLen)
	}
	return q, nil
}

// Generate produces, validates and persists a new spec for query. Every
// call yields a fresh ID even for a repeated query.
func (s *Service) Generate(ctx context.Context, tenantID, query string) (report.Spec, error) {
	query, err := normalizeQuery(query)
	if err != nil {
		return report.Spec{}, err
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rc, err := s.source.Context(genCtx, tenantID, time.Time{})
	if err != nil {
		return report.Spec{}, err
	}

	start := s.now()
	spec, err := s.summarizer.GenerateReport(genCtx, query, rc)
	if err != nil {
		if errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			s.logger.Warn("report generation timed out", "tenant", tenantID, "timeout", s.timeout)
			return report.Spec{}, fmt.Errorf("%w after %s", ErrTimeout, s.timeout)
		}
		if ctx.Err() != nil {
			return report.Spec{}, ctx.Err()
		}
		s.logger.Error("report generation failed", "tenant", tenantID, "error", err)
		return report.Spec{}, fmt.Errorf("%w: %w", ErrGenerative, err)
	}

	spec.ID = ulid.Make().String()
	spec.GeneratedAt = s.now().UTC()
	if spec.Layout == "" {
		spec.Layout = report.LayoutGrid
	}
	if spec.Renderable() == 0 {
		return report.Spec{}, ErrNoResult
	}
	if err := spec.Validate(); err != nil {
		return report.Spec{}, fmt.Errorf("%w: %w", ErrGenerative, err)
	}

	if err := s.reports.SaveReport(ctx, tenantID, query, spec); err != nil {
		return report.Spec{}, fmt.Errorf("save report: %w", err)
	}
	s.logger.Info("report generated",
		"tenant", tenantID,
		"report", spec.ID,
		"components", len(spec.Components),
		"took", s.now().Sub(start))
	return spec, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (report.Spec, error) {
	return s.reports.GetReport(ctx, tenantID, id)
}

func (s *Service) Enqueue(ctx context.Context, tenantID, query string) (string, error) {
	if s.jobs == nil {
		return "", ErrAsyncDisabled
	}
	query, err := normalizeQuery(query)
	if err != nil {
		return "", err
	}
	return s.jobs.EnqueueReportJob(ctx, tenantID, query)
}

func (s *Service) JobStatus(ctx context.Context, tenantID, jobID string) (ports.ReportJobStatus, error) {
	if s.jobs == nil {
		return ports.ReportJobStatus{}, ports.ErrNotFound
	}
	return s.jobs.JobStatus(ctx, tenantID, jobID)
}

// Process runs a claimed job. It satisfies the report worker's processor.
func (s *Service) Process(ctx context.Context, job ports.ReportJob) (string, error) {
	spec, err := s.Generate(ctx, job.TenantID, job.Query)
	if err != nil {
		return "", err
	}
	return spec.ID, nil
}
