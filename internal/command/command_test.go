package command

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lumen/internal/report"
)

func winRateSpec() report.Spec {
	return report.Spec{
		ID:         "01JA0000000000000000000000",
		Title:      "Win rate",
		Layout:     report.LayoutGrid,
		Components: []report.Component{report.MetricCard{Title: "Win rate", Value: 0.4}},
	}
}

type countingGenerator struct {
	calls atomic.Int32
	fn    func(ctx context.Context, q string) (report.Spec, error)
}

func (g *countingGenerator) Generate(ctx context.Context, q string) (report.Spec, error) {
	g.calls.Add(1)
	return g.fn(ctx, q)
}

func newResolver(gen Generator, timeout time.Duration) *Resolver {
	var fb *GenerativeMatcher
	if gen != nil {
		fb = NewGenerativeMatcher(gen, timeout)
	}
	return NewResolver(DefaultMatchers(), fb, nil)
}

func resolveText(t *testing.T, r *Resolver, text string) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return r.Resolve(ctx, Input{Text: text}).Wait(ctx)
}

func TestResolve_KeywordViews(t *testing.T) {
	r := newResolver(nil, 0)
	cases := map[string]ViewCommand{
		"show me this week": ViewWeek,
		"pipeline":          ViewPipeline,
		"Quarterly":         ViewQuarter,
		"today":             ViewToday,
		"contacts":          ViewContacts,
		"what's on today?":  ViewToday,
		"recent activities": ViewActivities,
		"open settings":     ViewSettings,
		"show the pipline":  ViewPipeline, // one edit away
		"contcts":           ViewContacts,
	}
	for text, want := range cases {
		res := resolveText(t, r, text)
		require.Equal(t, StatusMatched, res.Status, text)
		require.Equal(t, ViewIntent{Command: want}, res.Intent, text)
	}
}

func TestResolve_QuestionsFallThroughToGenerator(t *testing.T) {
	gen := &countingGenerator{fn: func(context.Context, string) (report.Spec, error) {
		return winRateSpec(), nil
	}}
	r := newResolver(gen, time.Second)
	questions := []string{
		"pipeline by stage",
		"show stale deals",
		"revenue forecast",
		"activity mix",
		"which deals are at risk",
		"win rate by stage",
		"Quarterly forecast",
	}
	for _, q := range questions {
		res := resolveText(t, r, q)
		require.Equal(t, StatusMatched, res.Status, q)
		require.Equal(t, KindReport, res.Intent.Kind(), q)
	}
	require.EqualValues(t, len(questions), gen.calls.Load())
}

func TestResolve_WeekIntentWireShape(t *testing.T) {
	res := resolveText(t, newResolver(nil, 0), "show me this week")
	data, err := json.Marshal(res.Intent)
	require.NoError(t, err)
	require.JSONEq(t, `{"kind":"view","command":"VIEW:WEEK"}`, string(data))
}

func TestResolve_DirectCodes(t *testing.T) {
	r := newResolver(nil, 0)
	ctx := context.Background()

	res := r.Resolve(ctx, Input{Code: "VIEW:QUARTER"}).Result
	require.Equal(t, ViewIntent{Command: ViewQuarter}, res.Intent)

	res = r.Resolve(ctx, Input{Code: "ACTION:CREATE_DEAL"}).Result
	require.Equal(t, ActionIntent{Action: ActionCreateDeal}, res.Intent)

	res = r.Resolve(ctx, Input{Code: "ACTION:SEARCH", Text: "globex"}).Result
	require.Equal(t, ActionIntent{Action: ActionSearch, Argument: "globex"}, res.Intent)

	res = r.Resolve(ctx, Input{Text: "view:today"}).Result
	require.Equal(t, ViewIntent{Command: ViewToday}, res.Intent)
}

func TestResolve_Entities(t *testing.T) {
	r := newResolver(nil, 0)
	res := resolveText(t, r, "deal:6f1c2a9e-58d2-4b1b-9d7e-0c9f3b1a2e44")
	require.Equal(t, EntityIntent{Entity: EntityDeal, ID: "6f1c2a9e-58d2-4b1b-9d7e-0c9f3b1a2e44"}, res.Intent)

	res = resolveText(t, r, "Company #acme-01")
	require.Equal(t, EntityIntent{Entity: EntityCompany, ID: "acme-01"}, res.Intent)
}

func TestResolve_Actions(t *testing.T) {
	r := newResolver(nil, 0)
	require.Equal(t, ActionIntent{Action: ActionCreateDeal, Argument: "Acme renewal"},
		resolveText(t, r, "new deal Acme renewal").Intent)
	require.Equal(t, ActionIntent{Action: ActionCreateTask},
		resolveText(t, r, "add task").Intent)
	require.Equal(t, ActionIntent{Action: ActionCreateContact, Argument: "Ada Lovelace"},
		resolveText(t, r, "create contact: Ada Lovelace").Intent)
	require.Equal(t, ActionIntent{Action: ActionSearch, Argument: "globex"},
		resolveText(t, r, "search for globex").Intent)
}

func TestResolve_ActionBeatsKeyword(t *testing.T) {
	res := resolveText(t, newResolver(nil, 0), "new deal this week")
	require.Equal(t, KindAction, res.Intent.Kind())
}

func TestResolve_DeterministicNeverCallsGenerator(t *testing.T) {
	gen := &countingGenerator{fn: func(context.Context, string) (report.Spec, error) {
		return winRateSpec(), nil
	}}
	res := resolveText(t, newResolver(gen, time.Second), "pipeline")
	require.Equal(t, KindView, res.Intent.Kind())
	require.Zero(t, gen.calls.Load())
}

func TestResolve_FallbackProducesReport(t *testing.T) {
	var got atomic.Value
	gen := &countingGenerator{fn: func(_ context.Context, q string) (report.Spec, error) {
		got.Store(q)
		return winRateSpec(), nil
	}}
	r := newResolver(gen, time.Second)
	resolution := r.Resolve(context.Background(), Input{Text: "what's my win rate"})
	require.True(t, resolution.Async())

	res := resolution.Wait(context.Background())
	require.Equal(t, StatusMatched, res.Status)
	ri, ok := res.Intent.(ReportIntent)
	require.True(t, ok)
	require.Equal(t, "Win rate", ri.Spec.Title)
	require.EqualValues(t, 1, gen.calls.Load())
	require.Equal(t, "what's my win rate", got.Load())
}

func TestResolve_FallbackErrorIsGenerativeFailure(t *testing.T) {
	gen := GeneratorFunc(func(context.Context, string) (report.Spec, error) {
		return report.Spec{}, errors.New("upstream 500")
	})
	res := resolveText(t, newResolver(gen, time.Second), "what's my win rate")
	require.Equal(t, StatusGenerativeFailure, res.Status)
	require.ErrorIs(t, res.Err, ErrGenerative)
	require.NotErrorIs(t, res.Err, ErrGenerativeTimeout)
	require.Nil(t, res.Intent)
}

func TestResolve_FallbackTimeout(t *testing.T) {
	gen := GeneratorFunc(func(ctx context.Context, _ string) (report.Spec, error) {
		<-ctx.Done()
		return report.Spec{}, ctx.Err()
	})
	res := resolveText(t, newResolver(gen, 20*time.Millisecond), "what's my win rate")
	require.Equal(t, StatusGenerativeFailure, res.Status)
	require.ErrorIs(t, res.Err, ErrGenerativeTimeout)
	require.ErrorIs(t, res.Err, ErrGenerative)
}

func TestResolve_EmptyReportIsNoMatch(t *testing.T) {
	gen := GeneratorFunc(func(context.Context, string) (report.Spec, error) {
		s := winRateSpec()
		s.Components = []report.Component{report.Unknown{TypeName: "scatter_plot"}}
		return s, nil
	})
	res := resolveText(t, newResolver(gen, time.Second), "what's my win rate")
	require.Equal(t, StatusNoMatch, res.Status)
	require.NoError(t, res.Err)
}

func TestResolve_NilComponentIsGenerativeFailure(t *testing.T) {
	gen := GeneratorFunc(func(context.Context, string) (report.Spec, error) {
		s := winRateSpec()
		s.Components = []report.Component{nil, report.List{Title: "Upcoming"}}
		return s, nil
	})
	res := resolveText(t, newResolver(gen, time.Second), "what's my win rate")
	require.Equal(t, StatusGenerativeFailure, res.Status)
	require.ErrorIs(t, res.Err, ErrGenerative)
	require.ErrorIs(t, res.Err, report.ErrInvalidSpec)
}

func TestResolve_NoFallbackIsNoMatch(t *testing.T) {
	r := newResolver(nil, 0)
	require.Equal(t, StatusNoMatch, resolveText(t, r, "what's my win rate").Status)
	require.Equal(t, StatusNoMatch, resolveText(t, r, "   ").Status)
}

func TestIntentValidate(t *testing.T) {
	require.ErrorIs(t, ViewIntent{Command: "VIEW:MOON"}.Validate(), ErrInvalidIntent)
	require.ErrorIs(t, EntityIntent{Entity: "invoice", ID: "1"}.Validate(), ErrInvalidIntent)
	require.ErrorIs(t, ActionIntent{Action: ActionSearch}.Validate(), ErrInvalidIntent)
	require.ErrorIs(t, ReportIntent{Spec: winRateSpec()}.Validate(), ErrInvalidIntent)
	require.NoError(t, ReportIntent{Query: "q", Spec: winRateSpec()}.Validate())
}

func TestState_LastRequestWins(t *testing.T) {
	s := NewState()
	s.Open()

	first := s.Begin(Input{Text: "what's my win rate"}, nil)
	second := s.Begin(Input{Text: "pipeline"}, nil)

	require.True(t, s.Finish(second, matched(ViewIntent{Command: ViewPipeline})))
	require.False(t, s.Finish(first, Result{Status: StatusGenerativeFailure, Err: ErrGenerative}))

	snap := s.Snapshot()
	require.Equal(t, StatusMatched, snap.Status)
	require.Equal(t, ViewIntent{Command: ViewPipeline}, snap.Intent)
}

func TestState_BeginCancelsSuperseded(t *testing.T) {
	s := NewState()
	ctx, cancel := context.WithCancel(context.Background())
	s.Begin(Input{Text: "a"}, cancel)
	s.Begin(Input{Text: "b"}, nil)
	require.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestState_CloseDiscardsInFlight(t *testing.T) {
	s := NewState()
	s.Open()
	tok := s.Begin(Input{Text: "what's my win rate"}, nil)
	s.Close()

	require.False(t, s.Finish(tok, matched(ReportIntent{Query: "q", Spec: winRateSpec()})))
	snap := s.Snapshot()
	require.False(t, snap.Open)
	require.Equal(t, StatusIdle, snap.Status)
}

func TestState_RetryUsesLastInput(t *testing.T) {
	s := NewState()
	_, ok := s.LastInput()
	require.False(t, ok)
	s.Begin(Input{Text: "what's my win rate"}, nil)
	in, ok := s.LastInput()
	require.True(t, ok)
	require.Equal(t, "what's my win rate", in.Text)
}

func TestState_Toggle(t *testing.T) {
	s := NewState()
	require.True(t, s.Toggle())
	require.True(t, s.IsOpen())
	require.False(t, s.Toggle())
	require.False(t, s.IsOpen())
}
