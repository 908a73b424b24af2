package report

import "encoding/json"

// Component is one entry of a Spec. The set of variants is closed; Unknown
// carries anything this build does not recognise.
type Component interface {
	Type() ComponentType
	component()
}

const (
	FormatNumber   = "number"
	FormatCurrency = "currency"
	FormatPercent  = "percent"
)

type MetricCard struct {
	Title  string   `json:"title"`
	Value  float64  `json:"value"`
	Format string   `json:"format,omitempty"`
	Change *float64 `json:"change,omitempty"` // relative change vs previous period, 0.1 = +10%
	Hint   string   `json:"hint,omitempty"`
}

type DataPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type BarChart struct {
	Title      string      `json:"title"`
	Data       []DataPoint `json:"data"`
	XLabel     string      `json:"xLabel,omitempty"`
	YLabel     string      `json:"yLabel,omitempty"`
	Horizontal bool        `json:"horizontal,omitempty"`
}

type PieChart struct {
	Title string      `json:"title"`
	Data  []DataPoint `json:"data"`
}

type Series struct {
	Name   string      `json:"name"`
	Points []DataPoint `json:"points"`
}

type TrendLine struct {
	Title  string   `json:"title"`
	Series []Series `json:"series"`
	Format string   `json:"format,omitempty"`
}

type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type Table struct {
	Title   string           `json:"title"`
	Columns []Column         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

type ListItem struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Value    string `json:"value,omitempty"`
}

type List struct {
	Title string     `json:"title"`
	Items []ListItem `json:"items"`
}

type Heatmap struct {
	Title   string      `json:"title"`
	XLabels []string    `json:"xLabels"`
	YLabels []string    `json:"yLabels"`
	Values  [][]float64 `json:"values"` // Values[y][x]
}

type FunnelStage struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type Funnel struct {
	Title  string        `json:"title"`
	Stages []FunnelStage `json:"stages"`
}

// Unknown keeps an unrecognised component verbatim so a spec can be stored
// and forwarded without losing entries newer clients understand.
type Unknown struct {
	TypeName ComponentType
	Raw      json.RawMessage
}

func (MetricCard) Type() ComponentType { return TypeMetricCard }
func (BarChart) Type() ComponentType   { return TypeBarChart }
func (PieChart) Type() ComponentType   { return TypePieChart }
func (TrendLine) Type() ComponentType  { return TypeTrendLine }
func (Table) Type() ComponentType      { return TypeTable }
func (List) Type() ComponentType       { return TypeList }
func (Heatmap) Type() ComponentType    { return TypeHeatmap }
func (Funnel) Type() ComponentType     { return TypeFunnel }
func (u Unknown) Type() ComponentType  { return u.TypeName }

func (MetricCard) component() {}
func (BarChart) component()   {}
func (PieChart) component()   {}
func (TrendLine) component()  {}
func (Table) component()      {}
func (List) component()       {}
func (Heatmap) component()    {}
func (Funnel) component()     {}
func (Unknown) component()    {}

// Each variant writes its discriminant alongside its own fields.

func (c MetricCard) MarshalJSON() ([]byte, error) {
	type alias MetricCard
	return json.Marshal(struct {
		Type ComponentType `json:"type"`
		alias
	}{c.Type(), alias(c)})
}

func (c BarChart) MarshalJSON() ([]byte, error) {
	type alias BarChart
	return json.Marshal(struct {
		Type ComponentType `json:"type"`
		alias
	}{c.Type(), alias(c)})
}

func (c PieChart) MarshalJSON() ([]byte, error) {
	type alias PieChart
	return json.Marshal(struct {
		Type ComponentType `json:"type"`
		alias
	}{c.Type(), alias(c)})
}

func (c TrendLine) MarshalJSON() ([]byte, error) {
	type alias TrendLine
	return json.Marshal(struct {
		Type ComponentType `json:"type"`
		alias
	}{c.Type(), alias(c)})
}

func (c Table) MarshalJSON() ([]byte, error) {
	type alias Table
	return json.Marshal(struct {
		Type ComponentType `json:"type"`
		alias
	}{c.Type(), alias(c)})
}

func (c List) MarshalJSON() ([]byte, error) {
	type alias List
	return json.Marshal(struct {
		Type ComponentType `json:"type"`
		alias
	}{c.Type(), alias(c)})
}

func (c Heatmap) MarshalJSON() ([]byte, error) {
	type alias Heatmap
	return json.Marshal(struct {
		Type ComponentType `json:"type"`
		alias
	}{c.Type(), alias(c)})
}

func (c Funnel) MarshalJSON() ([]byte, error) {
	type alias Funnel
	return json.Marshal(struct {
		Type ComponentType `json:"type"`
		alias
	}{c.Type(), alias(c)})
}

func (u Unknown) MarshalJSON() ([]byte, error) {
	if len(u.Raw) == 0 {
		return json.Marshal(struct {
			Type ComponentType `json:"type"`
		}{u.TypeName})
	}
	return u.Raw, nil
}
