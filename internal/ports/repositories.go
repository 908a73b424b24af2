package ports

import (
	"context"
	"errors"
	"time"

	"lumen/internal/domain"
	"lumen/internal/report"
)

// ErrNotFound is returned by repositories when a tenant-scoped row is missing.
var ErrNotFound = errors.New("not found")

// SnapshotQuery bounds the activity rows loaded for a dashboard. Deals,
// stages and open tasks are always loaded in full for the tenant.
type SnapshotQuery struct {
	TenantID       string
	ActivitiesFrom time.Time
	ActivitiesTo   time.Time
}

// DashboardRepository reads a consistent point-in-time snapshot.
type DashboardRepository interface {
	Snapshot(ctx context.Context, q SnapshotQuery) (domain.Snapshot, error)
}

type ListOptions struct {
	Query  string
	Limit  int
	Offset int
}

type CompanyRepository interface {
	CreateCompany(ctx context.Context, c *domain.Company) error
	GetCompany(ctx context.Context, tenantID, id string) (domain.Company, error)
	ListCompanies(ctx context.Context, tenantID string, opts ListOptions) ([]domain.Company, error)
	UpdateCompany(ctx context.Context, c *domain.Company) error
	DeleteCompany(ctx context.Context, tenantID, id string) error
}

type ContactRepository interface {
	CreateContact(ctx context.Context, c *domain.Contact) error
	GetContact(ctx context.Context, tenantID, id string) (domain.Contact, error)
	ListContacts(ctx context.Context, tenantID string, opts ListOptions) ([]domain.Contact, error)
	UpdateContact(ctx context.Context, c *domain.Contact) error
	DeleteContact(ctx context.Context, tenantID, id string) error
}

type DealRepository interface {
	CreateDeal(ctx context.Context, d *domain.Deal) error
	GetDeal(ctx context.Context, tenantID, id string) (domain.Deal, error)
	ListDeals(ctx context.Context, tenantID string, opts ListOptions) ([]domain.Deal, error)
	UpdateDeal(ctx context.Context, d *domain.Deal) error
	DeleteDeal(ctx context.Context, tenantID, id string) error
}

type TaskRepository interface {
	CreateTask(ctx context.Context, t *domain.Task) error
	GetTask(ctx context.Context, tenantID, id string) (domain.Task, error)
	ListTasks(ctx context.Context, tenantID string, opts ListOptions) ([]domain.Task, error)
	UpdateTask(ctx context.Context, t *domain.Task) error
	DeleteTask(ctx context.Context, tenantID, id string) error
}

type ActivityRepository interface {
	CreateActivity(ctx context.Context, a *domain.Activity) error
	ListActivities(ctx context.Context, tenantID string, opts ListOptions) ([]domain.Activity, error)
}

type StageRepository interface {
	ListStages(ctx context.Context, tenantID string) ([]domain.Stage, error)
	GetStage(ctx context.Context, tenantID, id string) (domain.Stage, error)
}

// CRMStore is every record repository a tenant's CRM data lives behind.
type CRMStore interface {
	CompanyRepository
	ContactRepository
	DealRepository
	TaskRepository
	ActivityRepository
	StageRepository
}

// ReportRepository stores generated specs. Rows are insert-only.
type ReportRepository interface {
	SaveReport(ctx context.Context, tenantID, query string, spec report.Spec) error
	GetReport(ctx context.Context, tenantID, id string) (report.Spec, error)
}
