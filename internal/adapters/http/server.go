package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lumen/internal/domain"
	"lumen/internal/logger"
	"lumen/internal/ports"
	"lumen/internal/services/crm"
)

// CRM is the record service behind the CRUD routes.
type CRM interface {
	CreateCompany(ctx context.Context, tenantID string, in crm.CompanyInput) (domain.Company, error)
	GetCompany(ctx context.Context, tenantID, id string) (domain.Company, error)
	ListCompanies(ctx context.Context, tenantID string, opts ports.ListOptions) ([]domain.Company, error)
	UpdateCompany(ctx context.Context, tenantID, id string, in crm.CompanyInput) (domain.Company, error)
	DeleteCompany(ctx context.Context, tenantID, id string) error

	CreateContact(ctx context.Context, tenantID string, in crm.ContactInput) (domain.Contact, error)
	GetContact(ctx context.Context, tenantID, id string) (domain.Contact, error)
	ListContacts(ctx context.Context, tenantID string, opts ports.ListOptions) ([]domain.Contact, error)
	UpdateContact(ctx context.Context, tenantID, id string, in crm.ContactInput) (domain.Contact, error)
	DeleteContact(ctx context.Context, tenantID, id string) error

	CreateDeal(ctx context.Context, tenantID string, in crm.DealInput) (domain.Deal, error)
	GetDeal(ctx context.Context, tenantID, id string) (domain.Deal, error)
	ListDeals(ctx context.Context, tenantID string, opts ports.ListOptions) ([]domain.Deal, error)
	UpdateDeal(ctx context.Context, tenantID, id string, in crm.DealInput) (domain.Deal, error)
	DeleteDeal(ctx context.Context, tenantID, id string) error

	CreateTask(ctx context.Context, tenantID string, in crm.TaskInput) (domain.Task, error)
	GetTask(ctx context.Context, tenantID, id string) (domain.Task, error)
	ListTasks(ctx context.Context, tenantID string, opts ports.ListOptions) ([]domain.Task, error)
	UpdateTask(ctx context.Context, tenantID, id string, in crm.TaskInput) (domain.Task, error)
	DeleteTask(ctx context.Context, tenantID, id string) error

	LogActivity(ctx context.Context, tenantID string, in crm.ActivityInput) (domain.Activity, error)
	ListActivities(ctx context.Context, tenantID string, opts ports.ListOptions) ([]domain.Activity, error)
	ListStages(ctx context.Context, tenantID string) ([]domain.Stage, error)
	Search(ctx context.Context, tenantID, q string) (crm.SearchResults, error)
}

// Pinger reports backing store health for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	dashboards ports.Dashboards
	reports    ports.Reports
	crm        CRM
	auth       TenantResolver
	health     Pinger
	timeout    time.Duration
	logger     *slog.Logger
}

type Deps struct {
	Dashboards ports.Dashboards
	Reports    ports.Reports
	CRM        CRM
	Auth       TenantResolver
	// Health is optional.
	Health Pinger
	// RequestTimeout bounds every authenticated request. It must exceed the
	// report generation timeout.
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

func New(d Deps) *Server {
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Server{
		dashboards: d.Dashboards,
		reports:    d.Reports,
		crm:        d.CRM,
		auth:       d.Auth,
		health:     d.Health,
		timeout:    timeout,
		logger:     logger.OrDefault(d.Logger),
	}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.getHealthz)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.auth))
		r.Use(middleware.Timeout(s.timeout))

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/now", s.getDashboardNow)
			r.Get("/horizon", s.getDashboardHorizon)
			r.Get("/landscape", s.getDashboardLandscape)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Post("/generate", s.postReportGenerate)
			r.Get("/jobs/{id}", s.getReportJob)
			r.Get("/{id}", s.getReport)
		})

		resource[domain.Company, crm.CompanyInput]{
			create: s.crm.CreateCompany, get: s.crm.GetCompany, list: s.crm.ListCompanies,
			update: s.crm.UpdateCompany, del: s.crm.DeleteCompany,
		}.mount(r, "/companies")
		resource[domain.Contact, crm.ContactInput]{
			create: s.crm.CreateContact, get: s.crm.GetContact, list: s.crm.ListContacts,
			update: s.crm.UpdateContact, del: s.crm.DeleteContact,
		}.mount(r, "/contacts")
		resource[domain.Deal, crm.DealInput]{
			create: s.crm.CreateDeal, get: s.crm.GetDeal, list: s.crm.ListDeals,
			update: s.crm.UpdateDeal, del: s.crm.DeleteDeal,
		}.mount(r, "/deals")
		resource[domain.Task, crm.TaskInput]{
			create: s.crm.CreateTask, get: s.crm.GetTask, list: s.crm.ListTasks,
			update: s.crm.UpdateTask, del: s.crm.DeleteTask,
		}.mount(r, "/tasks")

		r.Get("/activities", s.listActivities)
		r.Post("/activities", s.postActivity)
		r.Get("/stages", s.listStages)
		r.Get("/search", s.search)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"took", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		}()
		next.ServeHTTP(ww, r)
	})
}

func (s *Server) getHealthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
