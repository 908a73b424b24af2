package domain

import "time"

// Dashboard views are computed per request and never stored. JSON field
// names are the wire contract of GET /dashboard/{now,horizon,landscape}.

type DashboardNow struct {
	GeneratedAt      time.Time  `json:"generatedAt"`
	UrgentWithinDays int        `json:"urgentWithinDays"`
	UrgentDeals      []Deal     `json:"urgentDeals"`
	PendingTasks     []Task     `json:"pendingTasks"`
	RecentActivities []Activity `json:"recentActivities"`
	TodayMeetings    []Activity `json:"todayMeetings"`
	Briefing         string     `json:"briefing"`
}

type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"` // exclusive
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

type StageBucket struct {
	StageID   string  `json:"stageId"`
	StageName string  `json:"stageName"`
	Position  int     `json:"position"`
	Count     int     `json:"count"`
	Value     float64 `json:"value"`
}

type WeeklyMetrics struct {
	NewDeals   int     `json:"newDeals"`
	ClosedWon  int     `json:"closedWon"`
	ClosedLost int     `json:"closedLost"`
	TotalValue float64 `json:"totalValue"`
}

type DashboardHorizon struct {
	GeneratedAt      time.Time     `json:"generatedAt"`
	Week             Window        `json:"week"`
	WeekDeals        []Deal        `json:"weekDeals"`
	UpcomingMeetings []Activity    `json:"upcomingMeetings"`
	DealsByStage     []StageBucket `json:"dealsByStage"`
	WeeklyMetrics    WeeklyMetrics `json:"weeklyMetrics"`
}

type Forecast struct {
	Policy     string  `json:"policy"`
	Forecast   float64 `json:"forecast"`   // headline number under Policy
	Unweighted float64 `json:"unweighted"` // open deals closing this quarter, face value
	Weighted   float64 `json:"weighted"`   // same deals, probability weighted
	Committed  float64 `json:"committed"`  // already won this quarter
	DealCount  int     `json:"dealCount"`
}

type PipelineHealth struct {
	OpenDeals     int     `json:"openDeals"`
	TotalValue    float64 `json:"totalValue"`
	WeightedValue float64 `json:"weightedValue"`
	AvgDealSize   float64 `json:"avgDealSize"`
	AvgCycleDays  float64 `json:"avgCycleDays"`
	WinRate       float64 `json:"winRate"`
}

type StageConversion struct {
	FromStage string  `json:"fromStage"`
	ToStage   string  `json:"toStage"`
	Rate      float64 `json:"rate"`
}

type TrendPoint struct {
	WeekStart    time.Time `json:"weekStart"`
	CreatedCount int       `json:"createdCount"`
	CreatedValue float64   `json:"createdValue"`
	WonValue     float64   `json:"wonValue"`
}

type DashboardLandscape struct {
	GeneratedAt time.Time         `json:"generatedAt"`
	Quarter     Window            `json:"quarter"`
	Forecast    Forecast          `json:"forecast"`
	Health      PipelineHealth    `json:"health"`
	Conversions []StageConversion `json:"conversions"`
	Trend       []TrendPoint      `json:"trend"`
}
