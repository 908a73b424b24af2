package console

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"lumen/internal/report"
)

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1).
			MarginRight(1)

	cardValueStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230"))
	upStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	downStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			MarginRight(1)

	panelTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	barStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
)

const barWidth = 30

var sparkTicks = []rune("▁▂▃▄▅▆▇█")
var heatShades = []string{" ", "░", "▒", "▓", "█"}

func formatValue(v float64, format string) string {
	switch format {
	case report.FormatCurrency:
		return "$" + groupThousands(v)
	case report.FormatPercent:
		return fmt.Sprintf("%.1f%%", v*100)
	}
	if v == math.Trunc(v) {
		return groupThousands(v)
	}
	return fmt.Sprintf("%.2f", v)
}

func groupThousands(v float64) string {
	neg := v < 0
	s := fmt.Sprintf("%.0f", math.Abs(v))
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func bar(v, maxV float64, width int) string {
	if maxV <= 0 || v <= 0 {
		return ""
	}
	n := int(math.Round(v / maxV * float64(width)))
	if n < 1 {
		n = 1
	}
	return barStyle.Render(strings.Repeat("█", n))
}

func panel(title, body string) string {
	return panelStyle.Render(panelTitleStyle.Render(title) + "\n" + body)
}

func maxOf(points []report.DataPoint) float64 {
	m := 0.0
	for _, p := range points {
		m = math.Max(m, p.Value)
	}
	return m
}

func labelWidth(labels []string) int {
	w := 0
	for _, l := range labels {
		w = max(w, lipgloss.Width(l))
	}
	return min(w, 24)
}

func pad(s string, w int) string {
	if lipgloss.Width(s) > w {
		r := []rune(s)
		return string(r[:max(0, w-1)]) + "…"
	}
	return s + strings.Repeat(" ", w-lipgloss.Width(s))
}

// newRenderer registers a terminal renderer for every known component type.
func newRenderer() *report.Renderer[string] {
	r := report.NewRenderer[string]()
	report.Handle(r, renderMetric)
	report.Handle(r, renderBarChart)
	report.Handle(r, renderPie)
	report.Handle(r, renderTrend)
	report.Handle(r, renderTable)
	report.Handle(r, renderList)
	report.Handle(r, renderHeatmap)
	report.Handle(r, renderFunnel)
	return r
}

func renderMetric(c report.MetricCard) string {
	lines := []string{c.Title, cardValueStyle.Render(formatValue(c.Value, c.Format))}
	if c.Change != nil {
		ch := fmt.Sprintf("%+.1f%%", *c.Change*100)
		if *c.Change >= 0 {
			lines = append(lines, upStyle.Render("▲ "+ch))
		} else {
			lines = append(lines, downStyle.Render("▼ "+ch))
		}
	}
	if c.Hint != "" {
		lines = append(lines, helpStyle.Render(c.Hint))
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

func renderBarChart(c report.BarChart) string {
	labels := make([]string, len(c.Data))
	for i, p := range c.Data {
		labels[i] = p.Label
	}
	lw := labelWidth(labels)
	m := maxOf(c.Data)
	var b strings.Builder
	for _, p := range c.Data {
		fmt.Fprintf(&b, "%s %s %s\n", pad(p.Label, lw), bar(p.Value, m, barWidth), groupThousands(p.Value))
	}
	if len(c.Data) == 0 {
		b.WriteString(helpStyle.Render("no data"))
	}
	return panel(c.Title, strings.TrimRight(b.String(), "\n"))
}

func renderPie(c report.PieChart) string {
	total := 0.0
	labels := make([]string, len(c.Data))
	for i, p := range c.Data {
		total += p.Value
		labels[i] = p.Label
	}
	lw := labelWidth(labels)
	var b strings.Builder
	for _, p := range c.Data {
		share := 0.0
		if total > 0 {
			share = p.Value / total
		}
		fmt.Fprintf(&b, "%s %s %5.1f%%\n", pad(p.Label, lw), bar(share, 1, barWidth/2), share*100)
	}
	return panel(c.Title, strings.TrimRight(b.String(), "\n"))
}

func sparkline(points []report.DataPoint) string {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		lo, hi = math.Min(lo, p.Value), math.Max(hi, p.Value)
	}
	var b strings.Builder
	for _, p := range points {
		i := 0
		if hi > lo {
			i = int((p.Value - lo) / (hi - lo) * float64(len(sparkTicks)-1))
		}
		b.WriteRune(sparkTicks[i])
	}
	return b.String()
}

func renderTrend(c report.TrendLine) string {
	names := make([]string, len(c.Series))
	for i, s := range c.Series {
		names[i] = s.Name
	}
	lw := labelWidth(names)
	var b strings.Builder
	for _, s := range c.Series {
		last := ""
		if n := len(s.Points); n > 0 {
			last = formatValue(s.Points[n-1].Value, c.Format)
		}
		fmt.Fprintf(&b, "%s %s %s\n", pad(s.Name, lw), barStyle.Render(sparkline(s.Points)), last)
	}
	return panel(c.Title, strings.TrimRight(b.String(), "\n"))
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return formatValue(x, report.FormatNumber)
	case string:
		return x
	}
	return fmt.Sprint(v)
}

func renderTable(c report.Table) string {
	widths := make([]int, len(c.Columns))
	for i, col := range c.Columns {
		widths[i] = lipgloss.Width(col.Label)
		for _, row := range c.Rows {
			widths[i] = max(widths[i], lipgloss.Width(cell(row[col.Key])))
		}
		widths[i] = min(widths[i], 28)
	}
	var b strings.Builder
	for i, col := range c.Columns {
		b.WriteString(panelTitleStyle.Render(pad(col.Label, widths[i])) + "  ")
	}
	b.WriteString("\n")
	for _, row := range c.Rows {
		for i, col := range c.Columns {
			b.WriteString(pad(cell(row[col.Key]), widths[i]) + "  ")
		}
		b.WriteString("\n")
	}
	if len(c.Rows) == 0 {
		b.WriteString(helpStyle.Render("no rows"))
	}
	return panel(c.Title, strings.TrimRight(b.String(), "\n"))
}

func renderList(c report.List) string {
	var b strings.Builder
	for _, it := range c.Items {
		line := "• " + it.Title
		if it.Value != "" {
			line += "  " + cardValueStyle.Render(it.Value)
		}
		if it.Subtitle != "" {
			line += "\n  " + helpStyle.Render(it.Subtitle)
		}
		b.WriteString(line + "\n")
	}
	if len(c.Items) == 0 {
		b.WriteString(helpStyle.Render("nothing to show"))
	}
	return panel(c.Title, strings.TrimRight(b.String(), "\n"))
}

func renderHeatmap(c report.Heatmap) string {
	hi := 0.0
	for _, row := range c.Values {
		for _, v := range row {
			hi = math.Max(hi, v)
		}
	}
	lw := labelWidth(c.YLabels)
	colW := 2
	for _, x := range c.XLabels {
		colW = max(colW, lipgloss.Width(x))
	}
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", lw+1))
	for _, x := range c.XLabels {
		b.WriteString(pad(x, colW) + " ")
	}
	b.WriteString("\n")
	for y, row := range c.Values {
		label := ""
		if y < len(c.YLabels) {
			label = c.YLabels[y]
		}
		b.WriteString(pad(label, lw) + " ")
		for _, v := range row {
			i := 0
			if hi > 0 {
				i = max(0, int(math.Ceil(v/hi*float64(len(heatShades)-1))))
			}
			b.WriteString(barStyle.Render(strings.Repeat(heatShades[i], colW)) + " ")
		}
		b.WriteString("\n")
	}
	return panel(c.Title, strings.TrimRight(b.String(), "\n"))
}

func renderFunnel(c report.Funnel) string {
	stages := append([]report.FunnelStage(nil), c.Stages...)
	// Funnels are drawn widest first regardless of input order.
	sort.SliceStable(stages, func(i, j int) bool { return stages[i].Value > stages[j].Value })
	top := 0.0
	labels := make([]string, len(stages))
	for i, s := range stages {
		top = math.Max(top, s.Value)
		labels[i] = s.Label
	}
	lw := labelWidth(labels)
	var b strings.Builder
	for _, s := range stages {
		w := 0
		if top > 0 {
			w = int(math.Round(s.Value / top * barWidth))
		}
		indent := strings.Repeat(" ", (barWidth-w)/2)
		fmt.Fprintf(&b, "%s %s%s %s\n", pad(s.Label, lw), indent, barStyle.Render(strings.Repeat("█", w)), groupThousands(s.Value))
	}
	return panel(c.Title, strings.TrimRight(b.String(), "\n"))
}

// renderReport lays out a rendered spec: metric cards in a leading row, then
// the body in a two-column grid or a single stack.
func renderReport(v report.View[string], width int) string {
	parts := []string{titleStyle.Render(v.Title)}
	if len(v.Metrics) > 0 {
		parts = append(parts, lipgloss.JoinHorizontal(lipgloss.Top, v.Metrics...))
	}
	if v.Mode == report.LayoutStack || width < 90 {
		parts = append(parts, v.Body...)
	} else {
		for i := 0; i < len(v.Body); i += 2 {
			row := v.Body[i:min(i+2, len(v.Body))]
			parts = append(parts, lipgloss.JoinHorizontal(lipgloss.Top, row...))
		}
	}
	if len(v.Metrics)+len(v.Body) == 0 {
		parts = append(parts, helpStyle.Render("This report has nothing this console can draw."))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
