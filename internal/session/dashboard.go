package session

import (
	"context"
	"time"

	"lumen/internal/domain"
	"lumen/internal/zoom"
)

// timeZero anchors dashboard requests at the server's clock.
var timeZero time.Time

type DashboardStatus string

const (
	DashboardIdle        DashboardStatus = "idle"
	DashboardLoading     DashboardStatus = "loading"
	DashboardReady       DashboardStatus = "ready"
	DashboardUnavailable DashboardStatus = "unavailable"
)

// DashboardState holds the latest projection for Level. Only the field for
// Level is meaningful once Status is ready.
type DashboardState struct {
	Level     zoom.Level
	Status    DashboardStatus
	Now       *domain.DashboardNow
	Horizon   *domain.DashboardHorizon
	Landscape *domain.DashboardLandscape
	Err       error
	token     uint64
}

func (s *Session) invalidateDashboardLocked() {
	s.dash.token++
	if s.dash.Status == DashboardLoading {
		s.dash.Status = DashboardIdle
	}
}

// SetLevel moves the zoom machine and invalidates any in-flight dashboard
// fetch. It reports whether the level changed.
func (s *Session) SetLevel(level zoom.Level) bool {
	if !s.zoom.SetLevel(level) {
		return false
	}
	s.mu.Lock()
	s.invalidateDashboardLocked()
	s.mu.Unlock()
	return true
}

func (s *Session) ZoomIn() bool  { return s.step(s.zoom.ZoomIn) }
func (s *Session) ZoomOut() bool { return s.step(s.zoom.ZoomOut) }

func (s *Session) step(move func() bool) bool {
	if !move() {
		return false
	}
	s.mu.Lock()
	s.invalidateDashboardLocked()
	s.mu.Unlock()
	return true
}

// RefreshDashboard fetches the projection for the current level. A response
// that arrives after the level changed, or after the user left the
// dashboard, is discarded. The returned error is the fetch error when the
// response was applied.
func (s *Session) RefreshDashboard(ctx context.Context) error {
	s.mu.Lock()
	s.dash.token++
	token := s.dash.token
	level := s.zoom.Level()
	s.dash.Level = level
	s.dash.Status = DashboardLoading
	s.dash.Err = nil
	s.mu.Unlock()

	next := DashboardState{Level: level, Status: DashboardReady}
	var err error
	switch level {
	case zoom.Now:
		var v domain.DashboardNow
		if v, err = s.api.Now(ctx, timeZero); err == nil {
			next.Now = &v
		}
	case zoom.Horizon:
		var v domain.DashboardHorizon
		if v, err = s.api.Horizon(ctx, timeZero); err == nil {
			next.Horizon = &v
		}
	case zoom.Landscape:
		var v domain.DashboardLandscape
		if v, err = s.api.Landscape(ctx, timeZero); err == nil {
			next.Landscape = &v
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.dash.token {
		s.logger.Debug("discarding stale dashboard response", "level", level)
		return nil
	}
	if err != nil {
		// No partial data: the previous projection is dropped too.
		s.dash = DashboardState{Level: level, Status: DashboardUnavailable, Err: err, token: token}
		return err
	}
	next.token = token
	s.dash = next
	return nil
}
