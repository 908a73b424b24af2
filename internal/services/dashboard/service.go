package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lumen/internal/domain"
	"lumen/internal/logger"
	"lumen/internal/ports"
)

// ErrUnavailable means the snapshot could not be read. Callers get no
// partial view; the client offers a manual retry.
var ErrUnavailable = errors.New("dashboard unavailable")

const briefingTimeout = 5 * time.Second

type Service struct {
	repo       ports.DashboardRepository
	summarizer ports.Summarizer
	policy     Policy
	logger     *slog.Logger
	now        func() time.Time
}

// New builds the dashboard service. summarizer may be nil, in which case
// the Now view carries no briefing.
func New(repo ports.DashboardRepository, summarizer ports.Summarizer, policy Policy, l *slog.Logger) *Service {
	return &Service{repo: repo, summarizer: summarizer, policy: policy, logger: logger.OrDefault(l), now: time.Now}
}

func (s *Service) anchor(at time.Time) time.Time {
	if at.IsZero() {
		return s.now()
	}
	return at
}

func (s *Service) load(ctx context.Context, q ports.SnapshotQuery) (domain.Snapshot, error) {
	snap, err := s.repo.Snapshot(ctx, q)
	if err != nil {
		s.logger.Error("dashboard snapshot failed", "tenant", q.TenantID, "error", err)
		return domain.Snapshot{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return snap, nil
}

func (s *Service) Now(ctx context.Context, tenantID string, at time.Time) (domain.DashboardNow, error) {
	at = s.anchor(at)
	today := startOfDay(at.In(s.policy.loc()))
	snap, err := s.load(ctx, ports.SnapshotQuery{
		TenantID:       tenantID,
		ActivitiesFrom: at.Add(-24 * time.Hour),
		ActivitiesTo:   today.AddDate(0, 0, 1),
	})
	if err != nil {
		return domain.DashboardNow{}, err
	}
	view := Now(snap, at, s.policy)
	view.Briefing = s.briefing(ctx, tenantID, view)
	return view, nil
}

// briefing is best effort: the view is complete without it.
func (s *Service) briefing(ctx context.Context, tenantID string, view domain.DashboardNow) string {
	if s.summarizer == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, briefingTimeout)
	defer cancel()
	text, err := s.summarizer.Briefing(ctx, view)
	if err != nil {
		s.logger.Warn("briefing unavailable", "tenant", tenantID, "error", err)
		return ""
	}
	return text
}

func (s *Service) Horizon(ctx context.Context, tenantID string, at time.Time) (domain.DashboardHorizon, error) {
	at = s.anchor(at)
	week := WeekWindow(at, s.policy.loc())
	to := week.End
	if ahead := at.AddDate(0, 0, 7); ahead.After(to) {
		to = ahead
	}
	snap, err := s.load(ctx, ports.SnapshotQuery{TenantID: tenantID, ActivitiesFrom: week.Start, ActivitiesTo: to})
	if err != nil {
		return domain.DashboardHorizon{}, err
	}
	return Horizon(snap, at, s.policy), nil
}

func (s *Service) Landscape(ctx context.Context, tenantID string, at time.Time) (domain.DashboardLandscape, error) {
	at = s.anchor(at)
	// Landscape reads no activities.
	snap, err := s.load(ctx, ports.SnapshotQuery{TenantID: tenantID})
	if err != nil {
		return domain.DashboardLandscape{}, err
	}
	return Landscape(snap, at, s.policy), nil
}

// Context computes all three views from one snapshot, without a briefing.
// Report generation grounds itself in this.
func (s *Service) Context(ctx context.Context, tenantID string, at time.Time) (ports.ReportContext, error) {
	at = s.anchor(at)
	loc := s.policy.loc()
	week := WeekWindow(at, loc)
	to := week.End
	if ahead := at.AddDate(0, 0, 7); ahead.After(to) {
		to = ahead
	}
	from := week.Start
	if dayAgo := at.Add(-24 * time.Hour); dayAgo.Before(from) {
		from = dayAgo
	}
	snap, err := s.load(ctx, ports.SnapshotQuery{TenantID: tenantID, ActivitiesFrom: from, ActivitiesTo: to})
	if err != nil {
		return ports.ReportContext{}, err
	}
	return ports.ReportContext{
		Now:       Now(snap, at, s.policy),
		Horizon:   Horizon(snap, at, s.policy),
		Landscape: Landscape(snap, at, s.policy),
	}, nil
}
