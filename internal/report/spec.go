// Package report defines the declarative report format produced by the
// generative command path and the renderer that turns it into views.
//
// A Spec is an ordered list of typed components. The "type" field of each
// component is the wire discriminant; the eight type strings below are
// shared with stored reports and must not change. Components with any other
// type decode to Unknown and are left out when rendering.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type ComponentType string

const (
	TypeMetricCard ComponentType = "metric_card"
	TypeBarChart   ComponentType = "bar_chart"
	TypePieChart   ComponentType = "pie_chart"
	TypeTrendLine  ComponentType = "trend_line"
	TypeTable      ComponentType = "table"
	TypeList       ComponentType = "list"
	TypeHeatmap    ComponentType = "heatmap"
	TypeFunnel     ComponentType = "funnel"
)

// KnownTypes lists the registered discriminants in declaration order.
var KnownTypes = []ComponentType{
	TypeMetricCard, TypeBarChart, TypePieChart, TypeTrendLine,
	TypeTable, TypeList, TypeHeatmap, TypeFunnel,
}

func (t ComponentType) Known() bool {
	for _, k := range KnownTypes {
		if k == t {
			return true
		}
	}
	return false
}

type Layout string

const (
	LayoutGrid  Layout = "grid"
	LayoutStack Layout = "stack"
)

var ErrInvalidSpec = errors.New("invalid report spec")

// Spec is immutable once produced. Regenerating a report yields a new Spec
// with a new ID.
type Spec struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Layout      Layout      `json:"layout"`
	GeneratedAt time.Time   `json:"generatedAt"`
	Components  []Component `json:"components"`
}

// Renderable counts components with a known type.
func (s Spec) Renderable() int {
	n := 0
	for _, c := range s.Components {
		if c != nil && c.Type().Known() {
			n++
		}
	}
	return n
}

func (s Spec) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidSpec)
	}
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidSpec)
	}
	switch s.Layout {
	case LayoutGrid, LayoutStack:
	default:
		return fmt.Errorf("%w: layout %q", ErrInvalidSpec, s.Layout)
	}
	for i, c := range s.Components {
		if c == nil {
			return fmt.Errorf("%w: component %d is empty", ErrInvalidSpec, i)
		}
	}
	return nil
}

func (s *Spec) UnmarshalJSON(data []byte) error {
	type alias Spec
	var wire struct {
		alias
		Components []json.RawMessage `json:"components"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	out := Spec(wire.alias)
	out.Components = make([]Component, 0, len(wire.Components))
	for i, raw := range wire.Components {
		c, err := DecodeComponent(raw)
		if err != nil {
			return fmt.Errorf("component %d: %w", i, err)
		}
		out.Components = append(out.Components, c)
	}
	if out.Layout == "" {
		out.Layout = LayoutGrid
	}
	*s = out
	return nil
}

// DecodeComponent reads one wire component, dispatching on its "type".
func DecodeComponent(raw json.RawMessage) (Component, error) {
	var head struct {
		Type ComponentType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}

	var c Component
	var err error
	switch head.Type {
	case TypeMetricCard:
		c, err = decodeAs[MetricCard](raw)
	case TypeBarChart:
		c, err = decodeAs[BarChart](raw)
	case TypePieChart:
		c, err = decodeAs[PieChart](raw)
	case TypeTrendLine:
		c, err = decodeAs[TrendLine](raw)
	case TypeTable:
		c, err = decodeAs[Table](raw)
	case TypeList:
		c, err = decodeAs[List](raw)
	case TypeHeatmap:
		c, err = decodeAs[Heatmap](raw)
	case TypeFunnel:
		c, err = decodeAs[Funnel](raw)
	default:
		c = Unknown{TypeName: head.Type, Raw: append(json.RawMessage(nil), raw...)}
	}
	return c, err
}

func decodeAs[C Component](raw json.RawMessage) (Component, error) {
	var c C
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return c, nil
}
