package summarizer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"lumen/internal/domain"
	"lumen/internal/ports"
	"lumen/internal/report"
)

// topic answers one family of questions from the aggregates.
type topic struct {
	title    string
	keywords []string
	build    func(rc ports.ReportContext) []report.Component
}

// Local answers a fixed set of report topics without any external service.
// A query that names no topic yields an empty spec.
type Local struct {
	topics []topic
}

func NewLocal() *Local {
	return &Local{topics: []topic{
		{title: "Win rate", keywords: []string{"win rate", "winrate", "win-rate", "conversion", "funnel"}, build: winRate},
		{title: "Pipeline by stage", keywords: []string{"pipeline", "stage", "stages"}, build: pipelineByStage},
		{title: "Quarter forecast", keywords: []string{"forecast", "quarter", "revenue", "trend"}, build: quarterForecast},
		{title: "Deals needing attention", keywords: []string{"stale", "overdue", "urgent", "attention", "at risk"}, build: staleDeals},
		{title: "Activity mix", keywords: []string{"activity", "activities", "calls", "emails", "meetings"}, build: activityMix},
	}}
}

func (t topic) matches(q string) bool {
	for _, k := range t.keywords {
		if strings.Contains(q, k) {
			return true
		}
	}
	return false
}

func (l *Local) GenerateReport(ctx context.Context, query string, rc ports.ReportContext) (report.Spec, error) {
	if err := ctx.Err(); err != nil {
		return report.Spec{}, err
	}
	q := strings.ToLower(query)
	spec := report.Spec{Title: query, Layout: report.LayoutGrid, Components: []report.Component{}}
	var titles []string
	for _, t := range l.topics {
		if !t.matches(q) {
			continue
		}
		titles = append(titles, t.title)
		spec.Components = append(spec.Components, t.build(rc)...)
	}
	if len(titles) > 0 {
		spec.Title = strings.Join(titles, " and ")
		spec.Description = fmt.Sprintf("Answer to %q from current pipeline data.", query)
	}
	if len(titles) > 1 {
		spec.Layout = report.LayoutStack
	}
	return spec, nil
}

func (l *Local) Briefing(ctx context.Context, now domain.DashboardNow) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var parts []string
	if n := len(now.UrgentDeals); n > 0 {
		parts = append(parts, plural(n, "deal", "deals")+" closing within "+plural(now.UrgentWithinDays, "day", "days"))
	}
	if n := len(now.PendingTasks); n > 0 {
		parts = append(parts, plural(n, "task", "tasks")+" due")
	}
	if n := len(now.TodayMeetings); n > 0 {
		parts = append(parts, plural(n, "meeting", "meetings")+" today")
	}
	if len(parts) == 0 {
		return "Nothing urgent today.", nil
	}
	return "You have " + joinList(parts) + ".", nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}

func joinList(parts []string) string {
	switch len(parts) {
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " and " + parts[1]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}

func winRate(rc ports.ReportContext) []report.Component {
	h := rc.Landscape.Health
	out := []report.Component{
		report.MetricCard{Title: "Win rate", Value: h.WinRate, Format: report.FormatPercent, Hint: "Closed this quarter"},
		report.MetricCard{Title: "Average cycle", Value: h.AvgCycleDays, Format: report.FormatNumber, Hint: "Days from creation to close"},
	}
	if len(rc.Landscape.Conversions) > 0 {
		f := report.Funnel{Title: "Stage conversion"}
		for i, c := range rc.Landscape.Conversions {
			if i == 0 {
				f.Stages = append(f.Stages, report.FunnelStage{Label: c.FromStage, Value: 1})
			}
			prev := f.Stages[len(f.Stages)-1].Value
			f.Stages = append(f.Stages, report.FunnelStage{Label: c.ToStage, Value: prev * c.Rate})
		}
		out = append(out, f)
	}
	return out
}

func pipelineByStage(rc ports.ReportContext) []report.Component {
	bar := report.BarChart{Title: "Deals closing this week by stage", XLabel: "Stage", YLabel: "Value"}
	for _, b := range rc.Horizon.DealsByStage {
		bar.Data = append(bar.Data, report.DataPoint{Label: b.StageName, Value: b.Value})
	}
	return []report.Component{
		report.MetricCard{Title: "Open deals", Value: float64(rc.Landscape.Health.OpenDeals), Format: report.FormatNumber},
		report.MetricCard{Title: "Pipeline value", Value: rc.Landscape.Health.TotalValue, Format: report.FormatCurrency},
		bar,
	}
}

func quarterForecast(rc ports.ReportContext) []report.Component {
	f := rc.Landscape.Forecast
	line := report.TrendLine{Title: "Weekly created vs won", Format: report.FormatCurrency}
	created := report.Series{Name: "Created"}
	won := report.Series{Name: "Won"}
	for _, p := range rc.Landscape.Trend {
		label := p.WeekStart.Format("Jan 2")
		created.Points = append(created.Points, report.DataPoint{Label: label, Value: p.CreatedValue})
		won.Points = append(won.Points, report.DataPoint{Label: label, Value: p.WonValue})
	}
	line.Series = []report.Series{created, won}
	return []report.Component{
		report.MetricCard{Title: "Forecast", Value: f.Forecast, Format: report.FormatCurrency, Hint: f.Policy},
		report.MetricCard{Title: "Committed", Value: f.Committed, Format: report.FormatCurrency},
		report.MetricCard{Title: "Open in quarter", Value: f.Unweighted, Format: report.FormatCurrency},
		line,
	}
}

func staleDeals(rc ports.ReportContext) []report.Component {
	table := report.Table{
		Title: "Deals due soon or overdue",
		Columns: []report.Column{
			{Key: "title", Label: "Deal"},
			{Key: "stage", Label: "Stage"},
			{Key: "value", Label: "Value"},
			{Key: "close", Label: "Expected close"},
		},
		Rows: []map[string]any{},
	}
	for _, d := range rc.Now.UrgentDeals {
		row := map[string]any{"title": d.Title, "stage": d.Stage.Name, "value": d.Amount()}
		if d.ExpectedCloseDate != nil {
			row["close"] = d.ExpectedCloseDate.Format("2006-01-02")
		}
		table.Rows = append(table.Rows, row)
	}
	return []report.Component{
		report.MetricCard{Title: "Needing attention", Value: float64(len(rc.Now.UrgentDeals)), Format: report.FormatNumber},
		table,
	}
}

func activityMix(rc ports.ReportContext) []report.Component {
	counts := map[string]int{}
	for _, a := range rc.Now.RecentActivities {
		counts[a.Type]++
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	pie := report.PieChart{Title: "Activity in the last 24 hours"}
	for _, t := range types {
		pie.Data = append(pie.Data, report.DataPoint{Label: t, Value: float64(counts[t])})
	}
	list := report.List{Title: "Upcoming meetings"}
	for _, m := range rc.Horizon.UpcomingMeetings {
		item := report.ListItem{Title: m.Subject}
		if m.ScheduledAt != nil {
			item.Subtitle = m.ScheduledAt.Format("Mon Jan 2 15:04")
		}
		list.Items = append(list.Items, item)
	}
	heat := report.Heatmap{
		Title:   "Activity by time of day",
		XLabels: []string{"00-06", "06-12", "12-18", "18-24"},
		YLabels: types,
		Values:  make([][]float64, len(types)),
	}
	row := make(map[string]int, len(types))
	for i, t := range types {
		row[t] = i
		heat.Values[i] = make([]float64, len(heat.XLabels))
	}
	for _, a := range rc.Now.RecentActivities {
		heat.Values[row[a.Type]][a.OccurredAt.Hour()/6]++
	}
	return []report.Component{pie, heat, list}
}
