// Package session is the console's composition root. A Session owns the zoom
// machine, the command bar state and the dashboard state for one signed-in
// user and turns resolved intents into page changes and API calls.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"lumen/internal/client"
	"lumen/internal/command"
	"lumen/internal/domain"
	"lumen/internal/logger"
	"lumen/internal/report"
	"lumen/internal/services/crm"
	"lumen/internal/zoom"
)

// API is the slice of the REST client a session needs.
type API interface {
	Now(ctx context.Context, at time.Time) (domain.DashboardNow, error)
	Horizon(ctx context.Context, at time.Time) (domain.DashboardHorizon, error)
	Landscape(ctx context.Context, at time.Time) (domain.DashboardLandscape, error)
	Generate(ctx context.Context, query string) (report.Spec, error)

	GetDeal(ctx context.Context, id string) (domain.Deal, error)
	GetContact(ctx context.Context, id string) (domain.Contact, error)
	GetCompany(ctx context.Context, id string) (domain.Company, error)
	CreateDeal(ctx context.Context, in crm.DealInput) (domain.Deal, error)
	CreateContact(ctx context.Context, in crm.ContactInput) (domain.Contact, error)
	CreateTask(ctx context.Context, in crm.TaskInput) (domain.Task, error)
	ListContacts(ctx context.Context, q string, limit int) ([]domain.Contact, error)
	ListActivities(ctx context.Context, limit int) ([]domain.Activity, error)
	Search(ctx context.Context, q string) (crm.SearchResults, error)
}

type Page string

const (
	PageDashboard  Page = "dashboard"
	PageContacts   Page = "contacts"
	PageActivities Page = "activities"
	PageSettings   Page = "settings"
	PageDetail     Page = "detail"
	PageSearch     Page = "search"
	PageReport     Page = "report"
	// PageForm asks for the title or name an action was submitted without.
	PageForm Page = "form"
)

const listLimit = 50

// Detail is the record shown on PageDetail; exactly one field is set.
type Detail struct {
	Deal    *domain.Deal
	Contact *domain.Contact
	Company *domain.Company
}

// Snapshot is a copy of everything the console draws.
type Snapshot struct {
	Page       Page
	Zoom       zoom.State
	Dashboard  DashboardState
	Command    command.Snapshot
	Detail     Detail
	Contacts   []domain.Contact
	Activities []domain.Activity
	Search     *crm.SearchResults
	SearchTerm string
	Report     *report.Spec
	FormAction command.Action
	Notice     string
	Err        error
}

type Options struct {
	// GenerativeTimeout bounds a report request; zero uses the resolver
	// default.
	GenerativeTimeout time.Duration
	// SettleDelay tunes the zoom transition flag; zero uses the default.
	SettleDelay time.Duration
	Logger      *slog.Logger
}

type Session struct {
	api      API
	zoom     *zoom.Machine
	cmd      *command.State
	resolver *command.Resolver
	logger   *slog.Logger

	mu         sync.Mutex
	page       Page
	dash       DashboardState
	detail     Detail
	contacts   []domain.Contact
	activities []domain.Activity
	search     *crm.SearchResults
	searchTerm string
	report     *report.Spec
	formAction command.Action
	notice     string
	err        error
}

func New(api API, opts Options) *Session {
	l := logger.OrDefault(opts.Logger).With("component", "session")
	s := &Session{api: api, cmd: command.NewState(), logger: l, page: PageDashboard}

	zoomOpts := []zoom.Option{}
	if opts.SettleDelay > 0 {
		zoomOpts = append(zoomOpts, zoom.WithSettleDelay(opts.SettleDelay))
	}
	s.zoom = zoom.New(zoom.Now, zoomOpts...)

	gen := command.GeneratorFunc(func(ctx context.Context, query string) (report.Spec, error) {
		spec, err := api.Generate(ctx, query)
		if errors.Is(err, client.ErrNoMatch) {
			// An empty spec resolves to no-match rather than a failure.
			return report.Spec{}, nil
		}
		return spec, err
	})
	s.resolver = command.NewResolver(command.DefaultMatchers(), command.NewGenerativeMatcher(gen, opts.GenerativeTimeout), l)
	return s
}

// Close stops the zoom settle timer and abandons in-flight requests.
func (s *Session) Close() {
	s.cmd.Close()
	s.zoom.Close()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Page:       s.page,
		Zoom:       s.zoom.State(),
		Dashboard:  s.dash,
		Command:    s.cmd.Snapshot(),
		Detail:     s.detail,
		Contacts:   s.contacts,
		Activities: s.activities,
		Search:     s.search,
		SearchTerm: s.searchTerm,
		Report:     s.report,
		FormAction: s.formAction,
		Notice:     s.notice,
		Err:        s.err,
	}
}

func (s *Session) Page() Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

func (s *Session) setPage(p Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page == PageDashboard && p != PageDashboard {
		s.invalidateDashboardLocked()
	}
	s.page = p
	s.notice = ""
	s.err = nil
}

func (s *Session) fail(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return err
}

func (s *Session) setNotice(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = msg
}

// ShowDashboard returns to the dashboard page.
func (s *Session) ShowDashboard() { s.setPage(PageDashboard) }

// Back leaves a secondary page for the dashboard, or steps the zoom history
// back when already on it. It reports whether anything changed.
func (s *Session) Back() bool {
	if s.Page() != PageDashboard {
		s.setPage(PageDashboard)
		return true
	}
	if s.zoom.GoBack() {
		s.mu.Lock()
		s.invalidateDashboardLocked()
		s.mu.Unlock()
		return true
	}
	return false
}

// Execute carries out a resolved intent. View intents change the zoom level
// or page; the caller refreshes the dashboard afterwards when the page is
// the dashboard.
func (s *Session) Execute(ctx context.Context, intent command.Intent) error {
	switch in := intent.(type) {
	case command.ViewIntent:
		return s.executeView(ctx, in)
	case command.EntityIntent:
		return s.executeEntity(ctx, in)
	case command.ActionIntent:
		return s.executeAction(ctx, in)
	case command.ReportIntent:
		spec := in.Spec
		s.setPage(PageReport)
		s.mu.Lock()
		s.report = &spec
		s.mu.Unlock()
		return nil
	}
	return fmt.Errorf("%w: %T", command.ErrInvalidIntent, intent)
}

var viewLevels = map[command.ViewCommand]zoom.Level{
	command.ViewToday:    zoom.Now,
	command.ViewWeek:     zoom.Horizon,
	command.ViewPipeline: zoom.Horizon,
	command.ViewQuarter:  zoom.Landscape,
}

func (s *Session) executeView(ctx context.Context, in command.ViewIntent) error {
	if level, ok := viewLevels[in.Command]; ok {
		s.setPage(PageDashboard)
		s.SetLevel(level)
		return nil
	}
	switch in.Command {
	case command.ViewContacts:
		s.setPage(PageContacts)
		contacts, err := s.api.ListContacts(ctx, "", listLimit)
		if err != nil {
			return s.fail(err)
		}
		s.mu.Lock()
		s.contacts = contacts
		s.mu.Unlock()
	case command.ViewActivities:
		s.setPage(PageActivities)
		acts, err := s.api.ListActivities(ctx, listLimit)
		if err != nil {
			return s.fail(err)
		}
		s.mu.Lock()
		s.activities = acts
		s.mu.Unlock()
	case command.ViewSettings:
		s.setPage(PageSettings)
	}
	return nil
}

func (s *Session) executeEntity(ctx context.Context, in command.EntityIntent) error {
	s.setPage(PageDetail)
	var d Detail
	var err error
	switch in.Entity {
	case command.EntityDeal:
		var v domain.Deal
		if v, err = s.api.GetDeal(ctx, in.ID); err == nil {
			d.Deal = &v
		}
	case command.EntityContact:
		var v domain.Contact
		if v, err = s.api.GetContact(ctx, in.ID); err == nil {
			d.Contact = &v
		}
	case command.EntityCompany:
		var v domain.Company
		if v, err = s.api.GetCompany(ctx, in.ID); err == nil {
			d.Company = &v
		}
	}
	s.mu.Lock()
	s.detail = d
	s.mu.Unlock()
	if err != nil {
		return s.fail(err)
	}
	return nil
}

func (s *Session) executeAction(ctx context.Context, in command.ActionIntent) error {
	arg := strings.TrimSpace(in.Argument)
	if in.Action == command.ActionSearch {
		s.setPage(PageSearch)
		res, err := s.api.Search(ctx, arg)
		s.mu.Lock()
		s.searchTerm = arg
		s.search = nil
		if err == nil {
			s.search = &res
		}
		s.mu.Unlock()
		if err != nil {
			return s.fail(err)
		}
		return nil
	}
	if arg == "" {
		s.setPage(PageForm)
		s.mu.Lock()
		s.formAction = in.Action
		s.mu.Unlock()
		return nil
	}

	switch in.Action {
	case command.ActionCreateDeal:
		deal, err := s.api.CreateDeal(ctx, crm.DealInput{Title: &arg})
		if err != nil {
			return s.fail(err)
		}
		s.setPage(PageDetail)
		s.mu.Lock()
		s.detail = Detail{Deal: &deal}
		s.mu.Unlock()
	case command.ActionCreateContact:
		contact, err := s.api.CreateContact(ctx, crm.ContactInput{Name: &arg})
		if err != nil {
			return s.fail(err)
		}
		s.setPage(PageDetail)
		s.mu.Lock()
		s.detail = Detail{Contact: &contact}
		s.mu.Unlock()
	case command.ActionCreateTask:
		task, err := s.api.CreateTask(ctx, crm.TaskInput{Title: &arg})
		if err != nil {
			return s.fail(err)
		}
		s.setPage(PageDashboard)
		s.setNotice(fmt.Sprintf("Task %q created.", task.Title))
	}
	return nil
}
