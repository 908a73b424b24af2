package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lumen/internal/domain"
	"lumen/internal/logger"
	"lumen/internal/ports"
	"lumen/internal/report"
)

type fakeRepo struct {
	snap    domain.Snapshot
	err     error
	queries []ports.SnapshotQuery
}

func (f *fakeRepo) Snapshot(_ context.Context, q ports.SnapshotQuery) (domain.Snapshot, error) {
	f.queries = append(f.queries, q)
	return f.snap, f.err
}

type fakeSummarizer struct {
	text string
	err  error
}

func (f fakeSummarizer) GenerateReport(context.Context, string, ports.ReportContext) (report.Spec, error) {
	return report.Spec{}, errors.New("not used")
}

func (f fakeSummarizer) Briefing(context.Context, domain.DashboardNow) (string, error) {
	return f.text, f.err
}

func newService(repo ports.DashboardRepository, sum ports.Summarizer) *Service {
	s := New(repo, sum, policy(), logger.Discard())
	s.now = func() time.Time { return anchor }
	return s
}

func TestService_RepositoryFailureIsUnavailable(t *testing.T) {
	repo := &fakeRepo{err: errors.New("connection refused")}
	s := newService(repo, nil)
	ctx := context.Background()

	now, err := s.Now(ctx, "t1", time.Time{})
	require.ErrorIs(t, err, ErrUnavailable)
	require.Zero(t, now.GeneratedAt)
	require.Nil(t, now.UrgentDeals)

	_, err = s.Horizon(ctx, "t1", time.Time{})
	require.ErrorIs(t, err, ErrUnavailable)

	_, err = s.Landscape(ctx, "t1", time.Time{})
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorContains(t, err, "connection refused")
}

func TestService_BriefingIsBestEffort(t *testing.T) {
	repo := &fakeRepo{snap: domain.Snapshot{Deals: []domain.Deal{deal("d", closes(day(time.October, 15)))}}}

	v, err := newService(repo, fakeSummarizer{err: errors.New("503")}).Now(context.Background(), "t1", time.Time{})
	require.NoError(t, err)
	require.Empty(t, v.Briefing)
	require.Len(t, v.UrgentDeals, 1)

	v, err = newService(repo, fakeSummarizer{text: "One deal closes soon."}).Now(context.Background(), "t1", time.Time{})
	require.NoError(t, err)
	require.Equal(t, "One deal closes soon.", v.Briefing)
}

func TestService_SnapshotWindows(t *testing.T) {
	repo := &fakeRepo{}
	s := newService(repo, nil)
	ctx := context.Background()

	_, err := s.Now(ctx, "t1", time.Time{})
	require.NoError(t, err)
	_, err = s.Horizon(ctx, "t1", anchor)
	require.NoError(t, err)
	_, err = s.Landscape(ctx, "t1", anchor)
	require.NoError(t, err)

	require.Len(t, repo.queries, 3)
	require.Equal(t, ports.SnapshotQuery{TenantID: "t1", ActivitiesFrom: anchor.Add(-24 * time.Hour), ActivitiesTo: day(time.October, 15)}, repo.queries[0])
	require.Equal(t, ports.SnapshotQuery{TenantID: "t1", ActivitiesFrom: day(time.October, 12), ActivitiesTo: anchor.AddDate(0, 0, 7)}, repo.queries[1])
	require.Equal(t, ports.SnapshotQuery{TenantID: "t1"}, repo.queries[2])
}

func TestService_ContextSharesOneSnapshot(t *testing.T) {
	repo := &fakeRepo{snap: landscapeSnapshot()}
	rc, err := newService(repo, fakeSummarizer{text: "ignored"}).Context(context.Background(), "t1", anchor)
	require.NoError(t, err)
	require.Len(t, repo.queries, 1)
	require.Empty(t, rc.Now.Briefing)
	require.Equal(t, 2, rc.Landscape.Forecast.DealCount)
	require.Equal(t, day(time.October, 12), rc.Horizon.Week.Start)
}
