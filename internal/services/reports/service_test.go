package reports

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lumen/internal/domain"
	"lumen/internal/logger"
	"lumen/internal/ports"
	"lumen/internal/report"
)

type staticSource struct{ err error }

func (s staticSource) Context(context.Context, string, time.Time) (ports.ReportContext, error) {
	return ports.ReportContext{}, s.err
}

type fnSummarizer func(ctx context.Context, query string) (report.Spec, error)

func (f fnSummarizer) GenerateReport(ctx context.Context, q string, _ ports.ReportContext) (report.Spec, error) {
	return f(ctx, q)
}

func (fnSummarizer) Briefing(context.Context, domain.DashboardNow) (string, error) { return "", nil }

type memReports struct {
	mu    sync.Mutex
	saved map[string]report.Spec
}

func (m *memReports) SaveReport(_ context.Context, tenantID, _ string, spec report.Spec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = map[string]report.Spec{}
	}
	m.saved[tenantID+"/"+spec.ID] = spec
	return nil
}

func (m *memReports) GetReport(_ context.Context, tenantID, id string) (report.Spec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spec, ok := m.saved[tenantID+"/"+id]
	if !ok {
		return report.Spec{}, ports.ErrNotFound
	}
	return spec, nil
}

func winRate(context.Context, string) (report.Spec, error) {
	return report.Spec{
		Title:      "Win rate",
		Components: []report.Component{report.MetricCard{Title: "Win rate", Value: 0.42, Format: report.FormatPercent}},
	}, nil
}

func newService(sum ports.Summarizer, repo ports.ReportRepository, opts Options) *Service {
	opts.Logger = logger.Discard()
	return New(staticSource{}, sum, repo, opts)
}

func TestGenerate_AssignsIDAndPersists(t *testing.T) {
	repo := &memReports{}
	s := newService(fnSummarizer(winRate), repo, Options{})
	ctx := context.Background()

	first, err := s.Generate(ctx, "t1", "  what's my win rate ")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	require.Equal(t, report.LayoutGrid, first.Layout)
	require.False(t, first.GeneratedAt.IsZero())

	second, err := s.Generate(ctx, "t1", "what's my win rate")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	got, err := s.Get(ctx, "t1", first.ID)
	require.NoError(t, err)
	require.Equal(t, first.Title, got.Title)

	_, err = s.Get(ctx, "other-tenant", first.ID)
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestGenerate_InvalidQuery(t *testing.T) {
	s := newService(fnSummarizer(winRate), &memReports{}, Options{})
	_, err := s.Generate(context.Background(), "t1", "   ")
	require.ErrorIs(t, err, ErrInvalidQuery)
}

func TestGenerate_UpstreamFailure(t *testing.T) {
	sum := fnSummarizer(func(context.Context, string) (report.Spec, error) {
		return report.Spec{}, errors.New("upstream 500")
	})
	_, err := newService(sum, &memReports{}, Options{}).Generate(context.Background(), "t1", "win rate")
	require.ErrorIs(t, err, ErrGenerative)
	require.NotErrorIs(t, err, ErrTimeout)
}

func TestGenerate_Timeout(t *testing.T) {
	sum := fnSummarizer(func(ctx context.Context, _ string) (report.Spec, error) {
		<-ctx.Done()
		return report.Spec{}, ctx.Err()
	})
	_, err := newService(sum, &memReports{}, Options{Timeout: 20 * time.Millisecond}).Generate(context.Background(), "t1", "win rate")
	require.ErrorIs(t, err, ErrTimeout)
	require.ErrorIs(t, err, ErrGenerative)
}

func TestGenerate_NothingRenderable(t *testing.T) {
	sum := fnSummarizer(func(context.Context, string) (report.Spec, error) {
		return report.Spec{Title: "Odd", Components: []report.Component{report.Unknown{TypeName: "scatter_plot"}}}, nil
	})
	repo := &memReports{}
	_, err := newService(sum, repo, Options{}).Generate(context.Background(), "t1", "scatter me")
	require.ErrorIs(t, err, ErrNoResult)
	require.Empty(t, repo.saved)
}

func TestGenerate_SourceUnavailablePassesThrough(t *testing.T) {
	boom := errors.New("dashboard unavailable")
	s := New(staticSource{err: boom}, fnSummarizer(winRate), &memReports{}, Options{Logger: logger.Discard()})
	_, err := s.Generate(context.Background(), "t1", "win rate")
	require.ErrorIs(t, err, boom)
}

type memJobs struct {
	ports.JobRepository
	enqueued []string
}

func (m *memJobs) EnqueueReportJob(_ context.Context, _, query string) (string, error) {
	m.enqueued = append(m.enqueued, query)
	return "job-1", nil
}

func TestEnqueue(t *testing.T) {
	_, err := newService(fnSummarizer(winRate), &memReports{}, Options{}).Enqueue(context.Background(), "t1", "win rate")
	require.ErrorIs(t, err, ErrAsyncDisabled)

	jobs := &memJobs{}
	id, err := newService(fnSummarizer(winRate), &memReports{}, Options{Jobs: jobs}).Enqueue(context.Background(), "t1", " win rate ")
	require.NoError(t, err)
	require.Equal(t, "job-1", id)
	require.Equal(t, []string{"win rate"}, jobs.enqueued)
}

func TestProcess_ReturnsReportID(t *testing.T) {
	repo := &memReports{}
	s := newService(fnSummarizer(winRate), repo, Options{})
	id, err := s.Process(context.Background(), ports.ReportJob{ID: "j", TenantID: "t1", Query: "win rate"})
	require.NoError(t, err)
	_, err = s.Get(context.Background(), "t1", id)
	require.NoError(t, err)
}
