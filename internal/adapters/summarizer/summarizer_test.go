package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/internal/domain"
	"lumen/internal/ports"
	"lumen/internal/report"
)

func sampleContext() ports.ReportContext {
	var rc ports.ReportContext
	rc.Landscape.Health = domain.PipelineHealth{OpenDeals: 4, TotalValue: 12000, WinRate: 0.25, AvgCycleDays: 30}
	rc.Landscape.Conversions = []domain.StageConversion{
		{FromStage: "Lead", ToStage: "Qualified", Rate: 0.5},
		{FromStage: "Qualified", ToStage: "Won", Rate: 0.5},
	}
	rc.Now.RecentActivities = []domain.Activity{
		{Type: domain.ActivityCall, OccurredAt: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)},
		{Type: domain.ActivityCall, OccurredAt: time.Date(2026, 10, 14, 14, 0, 0, 0, time.UTC)},
		{Type: domain.ActivityEmail, OccurredAt: time.Date(2026, 10, 14, 1, 0, 0, 0, time.UTC)},
	}
	return rc
}

func types(spec report.Spec) []report.ComponentType {
	out := make([]report.ComponentType, 0, len(spec.Components))
	for _, c := range spec.Components {
		out = append(out, c.Type())
	}
	return out
}

func TestLocal_WinRate(t *testing.T) {
	spec, err := NewLocal().GenerateReport(context.Background(), "What's my win rate?", sampleContext())
	require.NoError(t, err)
	require.Equal(t, "Win rate", spec.Title)
	require.Equal(t, []report.ComponentType{report.TypeMetricCard, report.TypeMetricCard, report.TypeFunnel}, types(spec))

	funnel := spec.Components[2].(report.Funnel)
	require.Len(t, funnel.Stages, 3)
	assert.InDelta(t, 0.25, funnel.Stages[2].Value, 1e-9)
}

func TestLocal_ActivityMix(t *testing.T) {
	spec, err := NewLocal().GenerateReport(context.Background(), "activity breakdown", sampleContext())
	require.NoError(t, err)
	pie := spec.Components[0].(report.PieChart)
	require.Equal(t, []report.DataPoint{{Label: "call", Value: 2}, {Label: "email", Value: 1}}, pie.Data)

	heat := spec.Components[1].(report.Heatmap)
	require.Equal(t, [][]float64{{0, 1, 1, 0}, {1, 0, 0, 0}}, heat.Values)
}

func TestLocal_MultipleTopicsStack(t *testing.T) {
	spec, err := NewLocal().GenerateReport(context.Background(), "forecast and urgent deals", sampleContext())
	require.NoError(t, err)
	require.Equal(t, report.LayoutStack, spec.Layout)
	require.Equal(t, "Quarter forecast and Deals needing attention", spec.Title)
}

func TestLocal_UnknownTopicIsEmpty(t *testing.T) {
	spec, err := NewLocal().GenerateReport(context.Background(), "tell me a joke", sampleContext())
	require.NoError(t, err)
	require.Zero(t, spec.Renderable())
}

func TestLocal_Briefing(t *testing.T) {
	l := NewLocal()
	text, err := l.Briefing(context.Background(), domain.DashboardNow{})
	require.NoError(t, err)
	require.Equal(t, "Nothing urgent today.", text)

	now := domain.DashboardNow{
		UrgentWithinDays: 3,
		UrgentDeals:      make([]domain.Deal, 2),
		PendingTasks:     make([]domain.Task, 1),
		TodayMeetings:    make([]domain.Activity, 1),
	}
	text, err = l.Briefing(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, "You have 2 deals closing within 3 days, 1 task due and 1 meeting today.", text)
}

func TestHTTP_GenerateReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/reports", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var req reportRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "win rate", req.Query)
		assert.Equal(t, 4, req.Context.Landscape.Health.OpenDeals)
		_, _ = w.Write([]byte(`{"title":"Win rate","components":[{"type":"metric_card","title":"Win rate","value":0.25},{"type":"gauge"}]}`))
	}))
	defer srv.Close()

	spec, err := NewHTTP(srv.URL+"/", "secret").GenerateReport(context.Background(), "win rate", sampleContext())
	require.NoError(t, err)
	require.Equal(t, "Win rate", spec.Title)
	require.Equal(t, report.LayoutGrid, spec.Layout)
	require.Len(t, spec.Components, 2)
	require.Equal(t, 1, spec.Renderable())
}

func TestHTTP_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"text":" All clear. "}`))
	}))
	defer srv.Close()

	text, err := NewHTTP(srv.URL, "", WithRetries(3, time.Millisecond)).Briefing(context.Background(), domain.DashboardNow{})
	require.NoError(t, err)
	require.Equal(t, "All clear.", text)
	require.EqualValues(t, 3, calls.Load())
}

func TestHTTP_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad query", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewHTTP(srv.URL, "", WithRetries(3, time.Millisecond)).GenerateReport(context.Background(), "x", ports.ReportContext{})
	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	require.Equal(t, http.StatusBadRequest, serr.Code)
	require.EqualValues(t, 1, calls.Load())
}

func TestHTTP_RespectsDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := NewHTTP(srv.URL, "").GenerateReport(ctx, "x", ports.ReportContext{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
