package console

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/internal/client"
	"lumen/internal/domain"
	"lumen/internal/logger"
	"lumen/internal/report"
	"lumen/internal/services/crm"
	"lumen/internal/session"
	"lumen/internal/zoom"
)

type stubAPI struct {
	horizonErr error
}

func (stubAPI) Now(context.Context, time.Time) (domain.DashboardNow, error) {
	return domain.DashboardNow{UrgentWithinDays: 3, Briefing: "Nothing urgent today."}, nil
}

func (s stubAPI) Horizon(context.Context, time.Time) (domain.DashboardHorizon, error) {
	return domain.DashboardHorizon{}, s.horizonErr
}

func (stubAPI) Landscape(context.Context, time.Time) (domain.DashboardLandscape, error) {
	return domain.DashboardLandscape{}, nil
}

func (stubAPI) Generate(context.Context, string) (report.Spec, error) {
	return report.Spec{}, &client.APIError{Status: http.StatusBadGateway, Code: "generative_failure"}
}

func (stubAPI) GetDeal(context.Context, string) (domain.Deal, error)       { return domain.Deal{}, nil }
func (stubAPI) GetContact(context.Context, string) (domain.Contact, error) { return domain.Contact{}, nil }
func (stubAPI) GetCompany(context.Context, string) (domain.Company, error) { return domain.Company{}, nil }
func (stubAPI) CreateDeal(context.Context, crm.DealInput) (domain.Deal, error) {
	return domain.Deal{}, nil
}
func (stubAPI) CreateContact(context.Context, crm.ContactInput) (domain.Contact, error) {
	return domain.Contact{}, nil
}
func (stubAPI) CreateTask(context.Context, crm.TaskInput) (domain.Task, error) {
	return domain.Task{}, nil
}
func (stubAPI) ListContacts(context.Context, string, int) ([]domain.Contact, error) { return nil, nil }
func (stubAPI) ListActivities(context.Context, int) ([]domain.Activity, error)      { return nil, nil }
func (stubAPI) Search(context.Context, string) (crm.SearchResults, error) {
	return crm.SearchResults{}, nil
}

func newModel(t *testing.T, api stubAPI) (Model, *session.Session) {
	t.Helper()
	sess := session.New(api, session.Options{SettleDelay: time.Millisecond, GenerativeTimeout: time.Second, Logger: logger.Discard()})
	t.Cleanup(sess.Close)
	return New(context.Background(), sess, Options{APIURL: "http://localhost:8080", SettleDelay: time.Millisecond}), sess
}

// run executes cmd and feeds every resulting message back through Update,
// skipping ticks.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		switch msg := msg.(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
			continue
		case settleMsg, nil:
			continue
		}
		next, more := m.Update(msg)
		m = next.(Model)
		queue = append(queue, more)
	}
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "ctrl+k":
		return tea.KeyMsg{Type: tea.KeyCtrlK}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "alt+2":
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2"), Alt: true}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, cmd := m.Update(key(k))
		m = run(t, next.(Model), cmd)
	}
	return m
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = run(t, next.(Model), cmd)
	}
	return m
}

func TestInit_LoadsNowDashboard(t *testing.T) {
	m, sess := newModel(t, stubAPI{})
	m = run(t, m, m.Init())
	require.Equal(t, session.DashboardReady, sess.Snapshot().Dashboard.Status)
	assert.Contains(t, m.View(), "Nothing urgent today.")
	assert.Contains(t, m.View(), "Closing within 3 days")
}

func TestAltTwo_ZoomsToHorizon(t *testing.T) {
	m, sess := newModel(t, stubAPI{})
	m = press(t, run(t, m, m.Init()), "alt+2")
	snap := sess.Snapshot()
	require.Equal(t, zoom.Horizon, snap.Zoom.Level)
	require.Equal(t, zoom.Horizon, snap.Dashboard.Level)
	require.Equal(t, session.DashboardReady, snap.Dashboard.Status)

	m = press(t, m, "-")
	require.Equal(t, zoom.Landscape, sess.Snapshot().Zoom.Level)
	m = press(t, m, "=")
	require.Equal(t, zoom.Horizon, sess.Snapshot().Zoom.Level)
}

func TestUnavailableDashboardOffersRetry(t *testing.T) {
	api := stubAPI{horizonErr: &client.APIError{Status: http.StatusServiceUnavailable, Code: "unavailable", Retryable: true}}
	m, sess := newModel(t, api)
	m = press(t, run(t, m, m.Init()), "alt+2")
	require.Equal(t, session.DashboardUnavailable, sess.Snapshot().Dashboard.Status)
	view := m.View()
	assert.Contains(t, view, "Dashboard unavailable.")
	assert.Contains(t, view, "r retry")
}

func TestCommandBar_ViewAndFailure(t *testing.T) {
	m, sess := newModel(t, stubAPI{})
	m = run(t, m, m.Init())

	m = press(t, m, "ctrl+k")
	require.True(t, sess.Snapshot().Command.Open)
	m = typeText(t, m, "quarter")
	m = press(t, m, "enter")
	snap := sess.Snapshot()
	require.False(t, snap.Command.Open)
	require.Equal(t, zoom.Landscape, snap.Zoom.Level)

	m = press(t, m, "ctrl+k")
	m = typeText(t, m, "churn by segment")
	m = press(t, m, "enter")
	snap = sess.Snapshot()
	require.True(t, snap.Command.Open)
	assert.Contains(t, m.View(), "Report generation failed.")

	m = press(t, m, "esc")
	require.False(t, sess.Snapshot().Command.Open)
}

func TestRenderReport_MetricsLeadAndUnknownDropped(t *testing.T) {
	spec := report.Spec{ID: "r1", Title: "Win rate", Layout: report.LayoutStack, Components: []report.Component{
		report.BarChart{Title: "By stage", Data: []report.DataPoint{{Label: "Lead", Value: 2}}},
		report.Unknown{TypeName: "gauge"},
		report.MetricCard{Title: "Win rate", Value: 0.25, Format: report.FormatPercent},
	}}
	v := newRenderer().Render(spec)
	require.Len(t, v.Metrics, 1)
	require.Len(t, v.Body, 1)
	require.Equal(t, 1, v.Dropped)

	out := renderReport(v, 120)
	assert.Less(t, strings.Index(out, "25.0%"), strings.Index(out, "By stage"))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "$1,234,568", formatValue(1234567.8, report.FormatCurrency))
	assert.Equal(t, "12.5%", formatValue(0.125, report.FormatPercent))
	assert.Equal(t, "42", formatValue(42, report.FormatNumber))
	assert.Equal(t, "-1,000", groupThousands(-1000))
}
