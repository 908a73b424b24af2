package dashboard

import (
	"sort"
	"time"

	"lumen/internal/config"
	"lumen/internal/domain"
)

// Policy holds the tunables of the aggregations.
type Policy struct {
	// UrgentWithinDays marks open deals due within this many days (or
	// overdue) as urgent on the Now view.
	UrgentWithinDays int
	// Forecast is one of the config.Forecast* weightings.
	Forecast string
	// Location anchors day, week and quarter boundaries.
	Location *time.Location
}

func (p Policy) loc() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// startOfWeek returns Monday 00:00 of t's week.
func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func startOfQuarter(t time.Time) time.Time {
	y, m, _ := t.Date()
	first := time.Month((int(m)-1)/3*3 + 1)
	return time.Date(y, first, 1, 0, 0, 0, 0, t.Location())
}

// WeekWindow is the Monday-to-Monday week containing t.
func WeekWindow(t time.Time, loc *time.Location) domain.Window {
	start := startOfWeek(t.In(loc))
	return domain.Window{Start: start, End: start.AddDate(0, 0, 7)}
}

func QuarterWindow(t time.Time, loc *time.Location) domain.Window {
	start := startOfQuarter(t.In(loc))
	return domain.Window{Start: start, End: start.AddDate(0, 3, 0)}
}

// closeDate reads an expected close date as a calendar date in loc. The
// column is a DATE, so the stored instant is midnight UTC.
func closeDate(d domain.Deal, loc *time.Location) (time.Time, bool) {
	if d.ExpectedCloseDate == nil {
		return time.Time{}, false
	}
	y, m, day := d.ExpectedCloseDate.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, loc), true
}

// Now builds the today view.
func Now(s domain.Snapshot, now time.Time, p Policy) domain.DashboardNow {
	loc := p.loc()
	now = now.In(loc)
	today := startOfDay(now)
	tomorrow := today.AddDate(0, 0, 1)
	urgentBefore := today.AddDate(0, 0, p.UrgentWithinDays+1)

	out := domain.DashboardNow{
		GeneratedAt:      now,
		UrgentWithinDays: p.UrgentWithinDays,
		UrgentDeals:      []domain.Deal{},
		PendingTasks:     []domain.Task{},
		RecentActivities: []domain.Activity{},
		TodayMeetings:    []domain.Activity{},
	}

	for _, d := range s.Deals {
		if !d.IsOpen() {
			continue
		}
		if due, ok := closeDate(d, loc); ok && due.Before(urgentBefore) {
			out.UrgentDeals = append(out.UrgentDeals, d)
		}
	}
	sortByCloseDate(out.UrgentDeals)

	for _, t := range s.Tasks {
		if t.Done() || t.DueAt == nil {
			continue
		}
		if t.DueAt.Before(tomorrow) {
			out.PendingTasks = append(out.PendingTasks, t)
		}
	}
	sort.SliceStable(out.PendingTasks, func(i, j int) bool {
		a, b := out.PendingTasks[i], out.PendingTasks[j]
		if !a.DueAt.Equal(*b.DueAt) {
			return a.DueAt.Before(*b.DueAt)
		}
		return priorityRank(a.Priority) < priorityRank(b.Priority)
	})

	recent := domain.Window{Start: now.Add(-24 * time.Hour), End: now.Add(time.Nanosecond)}
	day := domain.Window{Start: today, End: tomorrow}
	for _, a := range s.Activities {
		if recent.Contains(a.OccurredAt) {
			out.RecentActivities = append(out.RecentActivities, a)
		}
		if a.Type == domain.ActivityMeeting && a.ScheduledAt != nil && day.Contains(*a.ScheduledAt) {
			out.TodayMeetings = append(out.TodayMeetings, a)
		}
	}
	sort.SliceStable(out.RecentActivities, func(i, j int) bool {
		return out.RecentActivities[i].OccurredAt.After(out.RecentActivities[j].OccurredAt)
	})
	sortBySchedule(out.TodayMeetings)
	return out
}

// Horizon builds the week view.
func Horizon(s domain.Snapshot, now time.Time, p Policy) domain.DashboardHorizon {
	loc := p.loc()
	now = now.In(loc)
	week := WeekWindow(now, loc)
	ahead := domain.Window{Start: now, End: now.AddDate(0, 0, 7)}

	out := domain.DashboardHorizon{
		GeneratedAt:      now,
		Week:             week,
		WeekDeals:        []domain.Deal{},
		UpcomingMeetings: []domain.Activity{},
	}

	for _, d := range s.Deals {
		if due, ok := closeDate(d, loc); ok && week.Contains(due) {
			out.WeekDeals = append(out.WeekDeals, d)
			out.WeeklyMetrics.TotalValue += d.Amount()
		}
		if week.Contains(d.CreatedAt) {
			out.WeeklyMetrics.NewDeals++
		}
		if closed, ok := d.ClosedOn(); ok && week.Contains(closed) {
			if d.Stage.IsWon {
				out.WeeklyMetrics.ClosedWon++
			} else {
				out.WeeklyMetrics.ClosedLost++
			}
		}
	}
	sortByCloseDate(out.WeekDeals)
	out.DealsByStage = bucketByStage(s.Stages, out.WeekDeals)

	for _, a := range s.Activities {
		if a.Type == domain.ActivityMeeting && a.ScheduledAt != nil && ahead.Contains(*a.ScheduledAt) {
			out.UpcomingMeetings = append(out.UpcomingMeetings, a)
		}
	}
	sortBySchedule(out.UpcomingMeetings)
	return out
}

// Landscape builds the quarter view.
func Landscape(s domain.Snapshot, now time.Time, p Policy) domain.DashboardLandscape {
	loc := p.loc()
	now = now.In(loc)
	quarter := QuarterWindow(now, loc)

	out := domain.DashboardLandscape{
		GeneratedAt: now,
		Quarter:     quarter,
		Forecast:    forecast(s.Deals, quarter, p),
		Health:      health(s.Deals, quarter),
		Conversions: conversions(s.Stages, s.Deals),
		Trend:       trend(s.Deals, quarter),
	}
	return out
}

func forecast(deals []domain.Deal, quarter domain.Window, p Policy) domain.Forecast {
	policy := p.Forecast
	if policy == "" {
		policy = config.ForecastStageProbability
	}
	f := domain.Forecast{Policy: policy}
	var byDeal, byStage float64
	for _, d := range deals {
		if closed, ok := d.ClosedOn(); ok {
			if d.Stage.IsWon && quarter.Contains(closed) {
				f.Committed += d.Amount()
			}
			continue
		}
		due, ok := closeDate(d, p.loc())
		if !ok || !quarter.Contains(due) {
			continue
		}
		f.DealCount++
		f.Unweighted += d.Amount()
		byDeal += d.Amount() * d.WinProbability()
		byStage += d.Amount() * float64(d.Stage.Probability) / 100
	}
	switch policy {
	case config.ForecastUnweighted:
		f.Weighted = byStage
		f.Forecast = f.Unweighted
	case config.ForecastDealProbability:
		f.Weighted = byDeal
		f.Forecast = byDeal
	default:
		f.Weighted = byStage
		f.Forecast = byStage
	}
	return f
}

func health(deals []domain.Deal, quarter domain.Window) domain.PipelineHealth {
	var h domain.PipelineHealth
	var cycleDays float64
	var cycles, won, closedInQuarter int
	for _, d := range deals {
		if d.IsOpen() {
			h.OpenDeals++
			h.TotalValue += d.Amount()
			h.WeightedValue += d.Amount() * d.WinProbability()
			continue
		}
		closed, _ := d.ClosedOn()
		if closed.After(d.CreatedAt) {
			cycleDays += closed.Sub(d.CreatedAt).Hours() / 24
			cycles++
		}
		if quarter.Contains(closed) {
			closedInQuarter++
			if d.Stage.IsWon {
				won++
			}
		}
	}
	if h.OpenDeals > 0 {
		h.AvgDealSize = h.TotalValue / float64(h.OpenDeals)
	}
	if cycles > 0 {
		h.AvgCycleDays = cycleDays / float64(cycles)
	}
	if closedInQuarter > 0 {
		h.WinRate = float64(won) / float64(closedInQuarter)
	}
	return h
}

// conversions walks the open stages in order and ends at the first won
// stage. A deal counts as having reached a stage when its current stage is
// at or beyond it; won deals reached every stage, lost deals only the first.
func conversions(stages []domain.Stage, deals []domain.Deal) []domain.StageConversion {
	path := make([]domain.Stage, 0, len(stages))
	var wonStage *domain.Stage
	for _, st := range sortedStages(stages) {
		switch {
		case !st.IsClosed:
			path = append(path, st)
		case st.IsWon && wonStage == nil:
			st := st
			wonStage = &st
		}
	}
	if wonStage != nil {
		path = append(path, *wonStage)
	}
	if len(path) < 2 {
		return []domain.StageConversion{}
	}

	reached := make([]int, len(path))
	for _, d := range deals {
		switch {
		case d.Stage.IsWon:
			for i := range reached {
				reached[i]++
			}
		case d.Stage.IsClosed:
			reached[0]++
		default:
			for i, st := range path {
				if st.IsClosed {
					break
				}
				if d.Stage.Position >= st.Position {
					reached[i]++
				}
			}
		}
	}

	out := make([]domain.StageConversion, 0, len(path)-1)
	for i := 0; i+1 < len(path); i++ {
		c := domain.StageConversion{FromStage: path[i].Name, ToStage: path[i+1].Name}
		if reached[i] > 0 {
			c.Rate = float64(reached[i+1]) / float64(reached[i])
		}
		out = append(out, c)
	}
	return out
}

func trend(deals []domain.Deal, quarter domain.Window) []domain.TrendPoint {
	var points []domain.TrendPoint
	for ws := startOfWeek(quarter.Start); ws.Before(quarter.End); ws = ws.AddDate(0, 0, 7) {
		points = append(points, domain.TrendPoint{WeekStart: ws})
	}
	if len(points) == 0 {
		return []domain.TrendPoint{}
	}
	index := func(t time.Time) int {
		if !quarter.Contains(t) {
			return -1
		}
		t = t.In(quarter.Start.Location())
		for i := len(points) - 1; i >= 0; i-- {
			if !t.Before(points[i].WeekStart) {
				return i
			}
		}
		return -1
	}
	for _, d := range deals {
		if i := index(d.CreatedAt); i >= 0 {
			points[i].CreatedCount++
			points[i].CreatedValue += d.Amount()
		}
		if closed, ok := d.ClosedOn(); ok && d.Stage.IsWon {
			if i := index(closed); i >= 0 {
				points[i].WonValue += d.Amount()
			}
		}
	}
	return points
}

func bucketByStage(stages []domain.Stage, deals []domain.Deal) []domain.StageBucket {
	buckets := make([]domain.StageBucket, 0, len(stages))
	pos := make(map[string]int, len(stages))
	for _, st := range sortedStages(stages) {
		pos[st.ID] = len(buckets)
		buckets = append(buckets, domain.StageBucket{StageID: st.ID, StageName: st.Name, Position: st.Position})
	}
	for _, d := range deals {
		i, ok := pos[d.Stage.ID]
		if !ok {
			i = len(buckets)
			pos[d.Stage.ID] = i
			buckets = append(buckets, domain.StageBucket{StageID: d.Stage.ID, StageName: d.Stage.Name, Position: d.Stage.Position})
		}
		buckets[i].Count++
		buckets[i].Value += d.Amount()
	}
	return buckets
}

func sortedStages(stages []domain.Stage) []domain.Stage {
	out := append([]domain.Stage(nil), stages...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func sortByCloseDate(deals []domain.Deal) {
	sort.SliceStable(deals, func(i, j int) bool {
		return deals[i].ExpectedCloseDate.Before(*deals[j].ExpectedCloseDate)
	})
}

func sortBySchedule(acts []domain.Activity) {
	sort.SliceStable(acts, func(i, j int) bool {
		return acts[i].ScheduledAt.Before(*acts[j].ScheduledAt)
	})
}

func priorityRank(p string) int {
	switch p {
	case domain.PriorityHigh:
		return 0
	case domain.PriorityLow:
		return 2
	default:
		return 1
	}
}
