package console

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"lumen/internal/client"
	"lumen/internal/command"
	"lumen/internal/domain"
	"lumen/internal/report"
	"lumen/internal/services/crm"
	"lumen/internal/session"
	"lumen/internal/zoom"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170")).MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 2)
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	noticeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	barBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("170")).
			Padding(0, 1)

	failureBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(0, 1)
)

var levelTitles = map[zoom.Level]string{
	zoom.Now:       "Now",
	zoom.Horizon:   "This week",
	zoom.Landscape: "This quarter",
}

func (m Model) View() string {
	snap := m.sess.Snapshot()
	parts := []string{m.renderTabs(snap)}
	if snap.Command.Open {
		parts = append(parts, m.renderBar(snap))
	}
	parts = append(parts, m.renderPage(snap))
	if snap.Notice != "" {
		parts = append(parts, noticeStyle.Render(snap.Notice))
	}
	if snap.Err != nil {
		parts = append(parts, errorStyle.Render(describeError(snap.Err)))
	}
	parts = append(parts, helpStyle.Render(m.help(snap)))
	return strings.Join(parts, "\n\n")
}

func (m Model) renderTabs(snap session.Snapshot) string {
	tabs := make([]string, 0, 3)
	for i, l := range zoom.Levels() {
		label := fmt.Sprintf("%d %s", i+1, levelTitles[l])
		if snap.Page == session.PageDashboard && l == snap.Zoom.Level {
			tabs = append(tabs, tabActiveStyle.Render(label))
		} else {
			tabs = append(tabs, tabInactiveStyle.Render(label))
		}
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	if snap.Zoom.IsTransitioning {
		row += helpStyle.Render("  …")
	}
	return row
}

func (m Model) renderBar(snap session.Snapshot) string {
	body := m.bar.View()
	switch snap.Command.Status {
	case command.StatusResolving:
		body += "\n" + helpStyle.Render("Generating report…")
	case command.StatusNoMatch:
		body += "\n" + helpStyle.Render("No match. Try a view name, deal:<id>, \"new deal …\" or a question about your pipeline.")
	case command.StatusGenerativeFailure:
		msg := "Report generation failed."
		if errors.Is(snap.Command.Err, command.ErrGenerativeTimeout) {
			msg = "Report generation timed out."
		}
		return failureBoxStyle.Render(body + "\n" + errorStyle.Render(msg) + helpStyle.Render("  r retry · esc close"))
	}
	return barBoxStyle.Render(body)
}

func (m Model) renderPage(snap session.Snapshot) string {
	switch snap.Page {
	case session.PageDashboard:
		return m.renderDashboard(snap.Dashboard)
	case session.PageReport:
		if snap.Report == nil {
			return ""
		}
		return renderReport(m.renderer.Render(*snap.Report), m.width)
	case session.PageDetail:
		return renderDetail(snap.Detail)
	case session.PageSearch:
		return renderSearch(snap.SearchTerm, snap.Search)
	case session.PageContacts:
		var b strings.Builder
		b.WriteString(titleStyle.Render("Contacts") + "\n")
		for _, c := range snap.Contacts {
			fmt.Fprintf(&b, "%s  %s  %s\n", pad(c.Name, 28), pad(c.Email, 32), helpStyle.Render("contact:"+c.ID))
		}
		return b.String()
	case session.PageActivities:
		var b strings.Builder
		b.WriteString(titleStyle.Render("Activities") + "\n")
		for _, a := range snap.Activities {
			fmt.Fprintf(&b, "%s  %-8s %s\n", a.OccurredAt.Local().Format("Jan 2 15:04"), a.Type, a.Subject)
		}
		return b.String()
	case session.PageSettings:
		return titleStyle.Render("Settings") + "\n" + fmt.Sprintf("API  %s", m.apiURL)
	case session.PageForm:
		return titleStyle.Render(formTitles[snap.FormAction]) + "\n" + m.form.View()
	}
	return ""
}

var formTitles = map[command.Action]string{
	command.ActionCreateDeal:    "New deal: title",
	command.ActionCreateContact: "New contact: name",
	command.ActionCreateTask:    "New task: title",
}

func describeError(err error) string {
	switch {
	case errors.Is(err, client.ErrNotFound):
		return "Not found."
	case errors.Is(err, client.ErrUnauthorized):
		return "Not signed in: set LUMEN_TOKEN."
	case errors.Is(err, client.ErrInvalidInput):
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			return apiErr.Message
		}
	}
	return err.Error()
}

func (m Model) help(snap session.Snapshot) string {
	if snap.Command.Open {
		return "enter run · esc close"
	}
	if snap.Page == session.PageForm {
		return "enter save · esc cancel"
	}
	if snap.Page != session.PageDashboard {
		return "esc back · ctrl+k command · alt+1/2/3 zoom · q quit"
	}
	return "ctrl+k command · alt+1/2/3 zoom · +/- step · backspace back · q quit"
}

func (m Model) renderDashboard(d session.DashboardState) string {
	switch d.Status {
	case session.DashboardIdle, session.DashboardLoading:
		return helpStyle.Render("Loading " + strings.ToLower(levelTitles[d.Level]) + "…")
	case session.DashboardUnavailable:
		msg := "Dashboard unavailable."
		if !errors.Is(d.Err, client.ErrUnavailable) {
			msg = "Dashboard failed: " + describeError(d.Err)
		}
		return failureBoxStyle.Render(errorStyle.Render(msg) + helpStyle.Render("  r retry"))
	}
	switch {
	case d.Now != nil:
		return renderNow(*d.Now)
	case d.Horizon != nil:
		return renderHorizon(*d.Horizon, m.width)
	case d.Landscape != nil:
		return renderLandscape(*d.Landscape)
	}
	return ""
}

func money(v float64) string { return formatValue(v, report.FormatCurrency) }

func dealLine(d domain.Deal) string {
	closes := ""
	if d.ExpectedCloseDate != nil {
		closes = d.ExpectedCloseDate.Format("Mon Jan 2")
	}
	return fmt.Sprintf("%s %s %s %s", pad(d.Title, 28), pad(d.Stage.Name, 14), pad(money(d.Amount()), 12), helpStyle.Render(closes))
}

func section(title string, lines []string, empty string) string {
	if len(lines) == 0 {
		lines = []string{helpStyle.Render(empty)}
	}
	return panelTitleStyle.Render(title) + "\n" + strings.Join(lines, "\n")
}

func renderNow(v domain.DashboardNow) string {
	deals := make([]string, 0, len(v.UrgentDeals))
	for _, d := range v.UrgentDeals {
		deals = append(deals, dealLine(d))
	}
	tasks := make([]string, 0, len(v.PendingTasks))
	for _, t := range v.PendingTasks {
		due := ""
		if t.DueAt != nil {
			due = t.DueAt.Local().Format("Jan 2 15:04")
		}
		tasks = append(tasks, fmt.Sprintf("%s %s %s", pad(t.Title, 36), pad(t.Priority, 7), helpStyle.Render(due)))
	}
	meetings := make([]string, 0, len(v.TodayMeetings))
	for _, a := range v.TodayMeetings {
		meetings = append(meetings, fmt.Sprintf("%s  %s", scheduled(a), a.Subject))
	}
	parts := []string{}
	if v.Briefing != "" {
		parts = append(parts, cardValueStyle.Render(v.Briefing))
	}
	parts = append(parts,
		section(fmt.Sprintf("Closing within %d days", v.UrgentWithinDays), deals, "No deals closing soon."),
		section("Tasks due", tasks, "No open tasks due."),
		section("Meetings today", meetings, "No meetings today."),
		helpStyle.Render(fmt.Sprintf("%d activities in the last 24 hours", len(v.RecentActivities))),
	)
	return strings.Join(parts, "\n\n")
}

func scheduled(a domain.Activity) string {
	when := a.OccurredAt
	if a.ScheduledAt != nil {
		when = *a.ScheduledAt
	}
	return when.Local().Format("15:04")
}

func renderHorizon(v domain.DashboardHorizon, width int) string {
	wm := v.WeeklyMetrics
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		cardStyle.Render("Closing this week\n"+cardValueStyle.Render(money(wm.TotalValue))),
		cardStyle.Render("New deals\n"+cardValueStyle.Render(fmt.Sprint(wm.NewDeals))),
		cardStyle.Render("Won\n"+upStyle.Render(fmt.Sprint(wm.ClosedWon))),
		cardStyle.Render("Lost\n"+downStyle.Render(fmt.Sprint(wm.ClosedLost))),
	)
	maxV := 0.0
	for _, b := range v.DealsByStage {
		maxV = max(maxV, b.Value)
	}
	stages := make([]string, 0, len(v.DealsByStage))
	for _, b := range v.DealsByStage {
		stages = append(stages, fmt.Sprintf("%s %s %d · %s", pad(b.StageName, 14), bar(b.Value, maxV, barWidth), b.Count, money(b.Value)))
	}
	deals := make([]string, 0, len(v.WeekDeals))
	for _, d := range v.WeekDeals {
		deals = append(deals, dealLine(d))
	}
	meetings := make([]string, 0, len(v.UpcomingMeetings))
	for _, a := range v.UpcomingMeetings {
		when := a.OccurredAt
		if a.ScheduledAt != nil {
			when = *a.ScheduledAt
		}
		meetings = append(meetings, fmt.Sprintf("%s  %s", when.Local().Format("Mon 15:04"), a.Subject))
	}
	week := fmt.Sprintf("%s – %s", v.Week.Start.Format("Jan 2"), v.Week.End.Add(-time.Nanosecond).Format("Jan 2"))
	return strings.Join([]string{
		helpStyle.Render(week),
		cards,
		section("By stage", stages, "No deals closing this week."),
		section("Deals this week", deals, "Nothing scheduled to close."),
		section("Upcoming meetings", meetings, "No meetings this week."),
	}, "\n\n")
}

func renderLandscape(v domain.DashboardLandscape) string {
	f, h := v.Forecast, v.Health
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		cardStyle.Render("Forecast\n"+cardValueStyle.Render(money(f.Forecast))+"\n"+helpStyle.Render(f.Policy)),
		cardStyle.Render("Committed\n"+cardValueStyle.Render(money(f.Committed))),
		cardStyle.Render("Win rate\n"+cardValueStyle.Render(formatValue(h.WinRate, report.FormatPercent))),
		cardStyle.Render("Avg cycle\n"+cardValueStyle.Render(fmt.Sprintf("%.0f days", h.AvgCycleDays))),
	)
	health := []string{
		fmt.Sprintf("Open deals      %d", h.OpenDeals),
		fmt.Sprintf("Pipeline value  %s", money(h.TotalValue)),
		fmt.Sprintf("Weighted value  %s", money(h.WeightedValue)),
		fmt.Sprintf("Avg deal size   %s", money(h.AvgDealSize)),
	}
	conv := make([]string, 0, len(v.Conversions))
	for _, c := range v.Conversions {
		conv = append(conv, fmt.Sprintf("%s → %s %s", pad(c.FromStage, 14), pad(c.ToStage, 14), formatValue(c.Rate, report.FormatPercent)))
	}
	trend := []string{}
	if len(v.Trend) > 0 {
		created := make([]float64, len(v.Trend))
		won := make([]float64, len(v.Trend))
		for i, p := range v.Trend {
			created[i], won[i] = p.CreatedValue, p.WonValue
		}
		trend = append(trend,
			"Created "+barStyle.Render(sparkValues(created)),
			"Won     "+upStyle.Render(sparkValues(won)),
			helpStyle.Render(fmt.Sprintf("weeks from %s", v.Trend[0].WeekStart.Format("Jan 2"))))
	}
	quarter := fmt.Sprintf("%s – %s", v.Quarter.Start.Format("Jan 2"), v.Quarter.End.Add(-time.Nanosecond).Format("Jan 2 2006"))
	return strings.Join([]string{
		helpStyle.Render(quarter),
		cards,
		section("Pipeline health", health, ""),
		section("Stage conversion", conv, "No stage movement yet."),
		section("Weekly trend", trend, "No deals this quarter."),
	}, "\n\n")
}

func sparkValues(vals []float64) string {
	pts := make([]report.DataPoint, len(vals))
	for i, v := range vals {
		pts[i] = report.DataPoint{Value: v}
	}
	return sparkline(pts)
}

func renderDetail(d session.Detail) string {
	field := func(label, value string) string {
		return fmt.Sprintf("%s %s", panelTitleStyle.Render(pad(label, 16)), value)
	}
	switch {
	case d.Deal != nil:
		lines := []string{
			titleStyle.Render(d.Deal.Title),
			field("Stage", d.Deal.Stage.Name),
			field("Value", money(d.Deal.Amount())+" "+d.Deal.Currency),
		}
		if d.Deal.ExpectedCloseDate != nil {
			lines = append(lines, field("Expected close", d.Deal.ExpectedCloseDate.Format("2006-01-02")))
		}
		if d.Deal.Probability != nil {
			lines = append(lines, field("Probability", fmt.Sprintf("%d%%", *d.Deal.Probability)))
		}
		return strings.Join(append(lines, helpStyle.Render("deal:"+d.Deal.ID)), "\n")
	case d.Contact != nil:
		c := d.Contact
		lines := []string{titleStyle.Render(c.Name), field("Email", c.Email), field("Phone", c.Phone)}
		if c.CompanyID != nil {
			lines = append(lines, field("Company", "company:"+*c.CompanyID))
		}
		return strings.Join(append(lines, helpStyle.Render("contact:"+c.ID)), "\n")
	case d.Company != nil:
		c := d.Company
		lines := []string{titleStyle.Render(c.Name), field("Industry", c.Industry)}
		if c.Domain != nil {
			lines = append(lines, field("Domain", *c.Domain))
		}
		return strings.Join(append(lines, helpStyle.Render("company:"+c.ID)), "\n")
	}
	return ""
}

func renderSearch(term string, res *crm.SearchResults) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Search: %s", term)) + "\n")
	if res == nil {
		return b.String()
	}
	for _, c := range res.Companies {
		fmt.Fprintf(&b, "%s %s\n", pad(c.Name, 32), helpStyle.Render("company:"+c.ID))
	}
	for _, c := range res.Contacts {
		fmt.Fprintf(&b, "%s %s\n", pad(c.Name, 32), helpStyle.Render("contact:"+c.ID))
	}
	for _, d := range res.Deals {
		fmt.Fprintf(&b, "%s %s\n", pad(d.Title, 32), helpStyle.Render("deal:"+d.ID))
	}
	if len(res.Companies)+len(res.Contacts)+len(res.Deals) == 0 {
		b.WriteString(helpStyle.Render("No matches."))
	}
	return b.String()
}
