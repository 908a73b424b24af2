package report

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sampleSpec() Spec {
	change := 0.12
	return Spec{
		ID:          "01J9ZQ4B7M3K2X0Y5V6W8N1P2R",
		Title:       "Win rate",
		Description: "Closed deals this quarter",
		Layout:      LayoutStack,
		GeneratedAt: time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC),
		Components: []Component{
			MetricCard{Title: "Win rate", Value: 0.42, Format: FormatPercent, Change: &change},
			BarChart{Title: "Won by stage", Data: []DataPoint{{Label: "Proposal", Value: 3}}},
			MetricCard{Title: "Closed", Value: 19},
			Table{
				Title:   "Top deals",
				Columns: []Column{{Key: "title", Label: "Deal"}},
				Rows:    []map[string]any{{"title": "Acme renewal"}},
			},
			PieChart{Title: "Mix", Data: []DataPoint{{Label: "call", Value: 4}}},
			TrendLine{Title: "Weekly", Series: []Series{{Name: "won", Points: []DataPoint{{Label: "W1", Value: 2}}}}},
			List{Title: "Stale", Items: []ListItem{{Title: "Globex", Subtitle: "21 days"}}},
			Heatmap{Title: "Activity", XLabels: []string{"Mon"}, YLabels: []string{"call"}, Values: [][]float64{{3}}},
			Funnel{Title: "Funnel", Stages: []FunnelStage{{Label: "Lead", Value: 10}}},
		},
	}
}

func TestSpec_RoundTripPreservesOrderAndPayload(t *testing.T) {
	in := sampleSpec()
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Spec
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out.Components, len(in.Components))
	for i := range in.Components {
		require.Equal(t, in.Components[i].Type(), out.Components[i].Type(), "component %d", i)
	}
	require.Equal(t, in.Components[0], out.Components[0])
	require.Equal(t, in.Components[1], out.Components[1])
	require.Equal(t, in.Components[8], out.Components[8])
	require.True(t, in.GeneratedAt.Equal(out.GeneratedAt))
	require.Equal(t, in.Layout, out.Layout)
}

func TestComponent_WireTypeStrings(t *testing.T) {
	want := []string{"metric_card", "bar_chart", "pie_chart", "trend_line", "table", "list", "heatmap", "funnel"}
	got := make([]string, 0, len(KnownTypes))
	for _, k := range KnownTypes {
		got = append(got, string(k))
	}
	require.Equal(t, want, got)

	data, err := json.Marshal(MetricCard{Title: "Pipeline", Value: 10})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"metric_card","title":"Pipeline","value":10}`, string(data))
}

func TestDecode_UnknownTypeIsKeptVerbatim(t *testing.T) {
	payload := `{"id":"r1","title":"t","layout":"grid","generatedAt":"2026-10-14T00:00:00Z",
		"components":[{"type":"scatter_plot","points":[[1,2]]},{"type":"list","title":"x","items":[]}]}`
	var spec Spec
	require.NoError(t, json.Unmarshal([]byte(payload), &spec))
	require.Len(t, spec.Components, 2)

	u, ok := spec.Components[0].(Unknown)
	require.True(t, ok)
	require.Equal(t, ComponentType("scatter_plot"), u.TypeName)
	require.Equal(t, 1, spec.Renderable())

	again, err := json.Marshal(spec)
	require.NoError(t, err)
	require.Contains(t, string(again), `"scatter_plot"`)
}

func TestDecode_DefaultsLayoutToGrid(t *testing.T) {
	var spec Spec
	require.NoError(t, json.Unmarshal([]byte(`{"id":"r","title":"t","components":[]}`), &spec))
	require.Equal(t, LayoutGrid, spec.Layout)
}

func TestValidate(t *testing.T) {
	require.NoError(t, sampleSpec().Validate())

	bad := sampleSpec()
	bad.Layout = "masonry"
	require.ErrorIs(t, bad.Validate(), ErrInvalidSpec)

	bad = sampleSpec()
	bad.ID = ""
	require.ErrorIs(t, bad.Validate(), ErrInvalidSpec)
}

func TestRenderable_SkipsNilComponents(t *testing.T) {
	spec := Spec{Components: []Component{nil, List{Title: "x"}, Unknown{TypeName: "gauge"}}}
	require.Equal(t, 1, spec.Renderable())
	require.Zero(t, Spec{Components: []Component{nil}}.Renderable())
}

func labelRenderer() *Renderer[string] {
	r := NewRenderer[string]()
	Handle(r, func(c MetricCard) string { return "metric:" + c.Title })
	Handle(r, func(c BarChart) string { return "bar:" + c.Title })
	Handle(r, func(c Table) string { return "table:" + c.Title })
	Handle(r, func(c PieChart) string { return "pie:" + c.Title })
	return r
}

func TestRender_GroupsMetricCardsFirst(t *testing.T) {
	spec := Spec{ID: "r", Title: "t", Layout: LayoutGrid, Components: []Component{
		MetricCard{Title: "first"},
		BarChart{Title: "bars"},
		MetricCard{Title: "third"},
		Table{Title: "rows"},
	}}
	v := labelRenderer().Render(spec)
	require.Equal(t, []string{"metric:first", "metric:third"}, v.Metrics)
	require.Equal(t, []string{"bar:bars", "table:rows"}, v.Body)
	require.Zero(t, v.Dropped)
}

func TestRender_UnknownTypeDropsOnlyThatEntry(t *testing.T) {
	spec := Spec{ID: "r", Title: "t", Components: []Component{
		BarChart{Title: "a"},
		Unknown{TypeName: "scatter_plot"},
		PieChart{Title: "b"},
	}}
	var v View[string]
	require.NotPanics(t, func() { v = labelRenderer().Render(spec) })
	require.Equal(t, []string{"bar:a", "pie:b"}, v.Body)
	require.Equal(t, 1, v.Dropped)
}

func TestRender_UnregisteredKnownTypeIsDropped(t *testing.T) {
	spec := Spec{ID: "r", Title: "t", Components: []Component{Funnel{Title: "f"}, Table{Title: "x"}}}
	v := labelRenderer().Render(spec)
	require.Equal(t, []string{"table:x"}, v.Body)
	require.Equal(t, 1, v.Dropped)
}

func TestRender_LayoutDoesNotReorder(t *testing.T) {
	comps := []Component{Table{Title: "1"}, BarChart{Title: "2"}, PieChart{Title: "3"}}
	grid := labelRenderer().Render(Spec{Layout: LayoutGrid, Components: comps})
	stack := labelRenderer().Render(Spec{Layout: LayoutStack, Components: comps})
	require.Equal(t, grid.Body, stack.Body)
	require.Equal(t, LayoutStack, stack.Mode)
	require.Equal(t, LayoutGrid, grid.Mode)
}

func TestRender_DoesNotMutateSpec(t *testing.T) {
	spec := sampleSpec()
	before, err := json.Marshal(spec)
	require.NoError(t, err)
	labelRenderer().Render(spec)
	after, err := json.Marshal(spec)
	require.NoError(t, err)
	require.JSONEq(t, string(before), string(after))
}

func TestRegister_CustomType(t *testing.T) {
	r := labelRenderer()
	r.Register("scatter_plot", func(c Component) (string, bool) {
		return fmt.Sprintf("custom:%s", c.Type()), true
	})
	v := r.Render(Spec{Components: []Component{Unknown{TypeName: "scatter_plot"}}})
	require.Equal(t, []string{"custom:scatter_plot"}, v.Body)
}
