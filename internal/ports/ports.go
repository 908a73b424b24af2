package ports

import (
	"context"
	"time"

	"lumen/internal/domain"
	"lumen/internal/report"
)

// Dashboards computes the three zoom-level projections.
type Dashboards interface {
	Now(ctx context.Context, tenantID string, at time.Time) (domain.DashboardNow, error)
	Horizon(ctx context.Context, tenantID string, at time.Time) (domain.DashboardHorizon, error)
	Landscape(ctx context.Context, tenantID string, at time.Time) (domain.DashboardLandscape, error)
}

// Reports generates and stores report specs.
type Reports interface {
	Generate(ctx context.Context, tenantID, query string) (report.Spec, error)
	Get(ctx context.Context, tenantID, id string) (report.Spec, error)
	Enqueue(ctx context.Context, tenantID, query string) (jobID string, err error)
	JobStatus(ctx context.Context, tenantID, jobID string) (ReportJobStatus, error)
}

// ReportContext is the tenant data a summarizer may ground a report in.
type ReportContext struct {
	Now       domain.DashboardNow       `json:"now"`
	Horizon   domain.DashboardHorizon   `json:"horizon"`
	Landscape domain.DashboardLandscape `json:"landscape"`
}

// Summarizer is the external summarization collaborator.
type Summarizer interface {
	GenerateReport(ctx context.Context, query string, rc ReportContext) (report.Spec, error)
	Briefing(ctx context.Context, now domain.DashboardNow) (string, error)
}
