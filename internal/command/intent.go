// Package command maps command-bar input to a single typed intent.
//
// Resolution runs an ordered chain of synchronous matchers and falls back to
// an asynchronous report generator only when none of them match.
package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"lumen/internal/report"
)

type Kind string

const (
	KindView   Kind = "view"
	KindEntity Kind = "entity"
	KindAction Kind = "action"
	KindReport Kind = "report"
)

// Intent is a sealed union; the concrete type determines the payload.
type Intent interface {
	Kind() Kind
	Validate() error
	intent()
}

var ErrInvalidIntent = errors.New("invalid intent")

type ViewCommand string

const (
	ViewPipeline   ViewCommand = "VIEW:PIPELINE"
	ViewQuarter    ViewCommand = "VIEW:QUARTER"
	ViewContacts   ViewCommand = "VIEW:CONTACTS"
	ViewToday      ViewCommand = "VIEW:TODAY"
	ViewWeek       ViewCommand = "VIEW:WEEK"
	ViewActivities ViewCommand = "VIEW:ACTIVITIES"
	ViewSettings   ViewCommand = "VIEW:SETTINGS"
)

var viewCommands = []ViewCommand{
	ViewPipeline, ViewQuarter, ViewContacts, ViewToday, ViewWeek, ViewActivities, ViewSettings,
}

func (v ViewCommand) Valid() bool {
	for _, c := range viewCommands {
		if c == v {
			return true
		}
	}
	return false
}

type EntityType string

const (
	EntityDeal    EntityType = "deal"
	EntityContact EntityType = "contact"
	EntityCompany EntityType = "company"
)

func (e EntityType) Valid() bool {
	return e == EntityDeal || e == EntityContact || e == EntityCompany
}

type Action string

const (
	ActionCreateDeal    Action = "create-deal"
	ActionCreateContact Action = "create-contact"
	ActionCreateTask    Action = "create-task"
	ActionSearch        Action = "search"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreateDeal, ActionCreateContact, ActionCreateTask, ActionSearch:
		return true
	}
	return false
}

type ViewIntent struct {
	Command ViewCommand
}

type EntityIntent struct {
	Entity EntityType
	ID     string
}

// ActionIntent carries an optional argument: the title for create actions,
// the search term for search.
type ActionIntent struct {
	Action   Action
	Argument string
}

type ReportIntent struct {
	Query string
	Spec  report.Spec
}

func (ViewIntent) Kind() Kind   { return KindView }
func (EntityIntent) Kind() Kind { return KindEntity }
func (ActionIntent) Kind() Kind { return KindAction }
func (ReportIntent) Kind() Kind { return KindReport }

func (ViewIntent) intent()   {}
func (EntityIntent) intent() {}
func (ActionIntent) intent() {}
func (ReportIntent) intent() {}

func (i ViewIntent) Validate() error {
	if !i.Command.Valid() {
		return fmt.Errorf("%w: view %q", ErrInvalidIntent, i.Command)
	}
	return nil
}

func (i EntityIntent) Validate() error {
	if !i.Entity.Valid() {
		return fmt.Errorf("%w: entity type %q", ErrInvalidIntent, i.Entity)
	}
	if strings.TrimSpace(i.ID) == "" {
		return fmt.Errorf("%w: entity id missing", ErrInvalidIntent)
	}
	return nil
}

func (i ActionIntent) Validate() error {
	if !i.Action.Valid() {
		return fmt.Errorf("%w: action %q", ErrInvalidIntent, i.Action)
	}
	if i.Action == ActionSearch && strings.TrimSpace(i.Argument) == "" {
		return fmt.Errorf("%w: search needs a term", ErrInvalidIntent)
	}
	return nil
}

func (i ReportIntent) Validate() error {
	if strings.TrimSpace(i.Query) == "" {
		return fmt.Errorf("%w: report query missing", ErrInvalidIntent)
	}
	return i.Spec.Validate()
}

func (i ViewIntent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind    Kind        `json:"kind"`
		Command ViewCommand `json:"command"`
	}{i.Kind(), i.Command})
}

func (i EntityIntent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind   Kind       `json:"kind"`
		Entity EntityType `json:"entity"`
		ID     string     `json:"id"`
	}{i.Kind(), i.Entity, i.ID})
}

func (i ActionIntent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind     Kind   `json:"kind"`
		Action   Action `json:"action"`
		Argument string `json:"argument,omitempty"`
	}{i.Kind(), i.Action, i.Argument})
}

func (i ReportIntent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind  Kind        `json:"kind"`
		Query string      `json:"query"`
		Spec  report.Spec `json:"spec"`
	}{i.Kind(), i.Query, i.Spec})
}
