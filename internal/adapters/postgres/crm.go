package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"lumen/internal/domain"
	"lumen/internal/ports"
)

// likePattern builds an ILIKE substring pattern; an empty query matches all.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Companies

const companyColumns = `id, tenant_id, name, website, domain, industry, created_at, updated_at`

func scanCompany(row pgx.Row) (domain.Company, error) {
	var c domain.Company
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Website, &c.Domain, &c.Industry, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (db *DB) CreateCompany(ctx context.Context, c *domain.Company) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO companies (`+companyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, c.ID, c.TenantID, c.Name, c.Website, c.Domain, c.Industry, c.CreatedAt, c.UpdatedAt)
	return err
}

func (db *DB) GetCompany(ctx context.Context, tenantID, id string) (domain.Company, error) {
	c, err := scanCompany(db.Pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE tenant_id = $1 AND id = $2`, tenantID, id))
	return c, noRows(err)
}

func (db *DB) ListCompanies(ctx context.Context, tenantID string, opts ports.ListOptions) ([]domain.Company, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+companyColumns+` FROM companies
		WHERE tenant_id = $1 AND (name ILIKE $2 OR coalesce(domain, '') ILIKE $2)
		ORDER BY lower(name), id
		LIMIT $3 OFFSET $4
	`, tenantID, likePattern(opts.Query), opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanCompany)
}

func (db *DB) UpdateCompany(ctx context.Context, c *domain.Company) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE companies SET name = $3, website = $4, domain = $5, industry = $6, updated_at = $7
		WHERE tenant_id = $1 AND id = $2
	`, c.TenantID, c.ID, c.Name, c.Website, c.Domain, c.Industry, c.UpdatedAt)
	return affected(tag.RowsAffected(), err)
}

func (db *DB) DeleteCompany(ctx context.Context, tenantID, id string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM companies WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return affected(tag.RowsAffected(), err)
}

// Contacts

const contactColumns = `id, tenant_id, name, email, phone, company_id, created_at, updated_at`

func scanContact(row pgx.Row) (domain.Contact, error) {
	var c domain.Contact
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Email, &c.Phone, &c.CompanyID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (db *DB) CreateContact(ctx context.Context, c *domain.Contact) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO contacts (`+contactColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, c.ID, c.TenantID, c.Name, c.Email, c.Phone, c.CompanyID, c.CreatedAt, c.UpdatedAt)
	return err
}

func (db *DB) GetContact(ctx context.Context, tenantID, id string) (domain.Contact, error) {
	c, err := scanContact(db.Pool.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE tenant_id = $1 AND id = $2`, tenantID, id))
	return c, noRows(err)
}

func (db *DB) ListContacts(ctx context.Context, tenantID string, opts ports.ListOptions) ([]domain.Contact, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+contactColumns+` FROM contacts
		WHERE tenant_id = $1 AND (name ILIKE $2 OR email ILIKE $2)
		ORDER BY lower(name), id
		LIMIT $3 OFFSET $4
	`, tenantID, likePattern(opts.Query), opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanContact)
}

func (db *DB) UpdateContact(ctx context.Context, c *domain.Contact) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE contacts SET name = $3, email = $4, phone = $5, company_id = $6, updated_at = $7
		WHERE tenant_id = $1 AND id = $2
	`, c.TenantID, c.ID, c.Name, c.Email, c.Phone, c.CompanyID, c.UpdatedAt)
	return affected(tag.RowsAffected(), err)
}

func (db *DB) DeleteContact(ctx context.Context, tenantID, id string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM contacts WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return affected(tag.RowsAffected(), err)
}

// Deals

const dealSelect = `
	SELECT d.id, d.tenant_id, d.title, d.value::float8, d.currency, d.probability,
	       d.company_id, d.contact_id, d.expected_close_date, d.closed_at, d.created_at, d.updated_at,
	       s.id, s.name, s.position, s.probability, s.is_closed, s.is_won
	FROM deals d
	JOIN pipeline_stages s ON s.id = d.stage_id`

func scanDeal(row pgx.Row) (domain.Deal, error) {
	var d domain.Deal
	err := row.Scan(&d.ID, &d.TenantID, &d.Title, &d.Value, &d.Currency, &d.Probability,
		&d.CompanyID, &d.ContactID, &d.ExpectedCloseDate, &d.ClosedAt, &d.CreatedAt, &d.UpdatedAt,
		&d.Stage.ID, &d.Stage.Name, &d.Stage.Position, &d.Stage.Probability, &d.Stage.IsClosed, &d.Stage.IsWon)
	return d, err
}

func (db *DB) CreateDeal(ctx context.Context, d *domain.Deal) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO deals (id, tenant_id, title, value, currency, probability, stage_id,
		                   company_id, contact_id, expected_close_date, closed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, d.ID, d.TenantID, d.Title, d.Value, d.Currency, d.Probability, d.Stage.ID,
		d.CompanyID, d.ContactID, d.ExpectedCloseDate, d.ClosedAt, d.CreatedAt, d.UpdatedAt)
	return err
}

func (db *DB) GetDeal(ctx context.Context, tenantID, id string) (domain.Deal, error) {
	d, err := scanDeal(db.Pool.QueryRow(ctx, dealSelect+` WHERE d.tenant_id = $1 AND d.id = $2`, tenantID, id))
	return d, noRows(err)
}

func (db *DB) ListDeals(ctx context.Context, tenantID string, opts ports.ListOptions) ([]domain.Deal, error) {
	rows, err := db.Pool.Query(ctx, dealSelect+`
		WHERE d.tenant_id = $1 AND d.title ILIKE $2
		ORDER BY s.position, d.expected_close_date NULLS LAST, d.id
		LIMIT $3 OFFSET $4
	`, tenantID, likePattern(opts.Query), opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanDeal)
}

func (db *DB) UpdateDeal(ctx context.Context, d *domain.Deal) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE deals SET title = $3, value = $4, currency = $5, probability = $6, stage_id = $7,
		       company_id = $8, contact_id = $9, expected_close_date = $10, closed_at = $11, updated_at = $12
		WHERE tenant_id = $1 AND id = $2
	`, d.TenantID, d.ID, d.Title, d.Value, d.Currency, d.Probability, d.Stage.ID,
		d.CompanyID, d.ContactID, d.ExpectedCloseDate, d.ClosedAt, d.UpdatedAt)
	return affected(tag.RowsAffected(), err)
}

func (db *DB) DeleteDeal(ctx context.Context, tenantID, id string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM deals WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return affected(tag.RowsAffected(), err)
}

// Stages

const stageColumns = `id, name, position, probability, is_closed, is_won`

func scanStage(row pgx.Row) (domain.Stage, error) {
	var s domain.Stage
	err := row.Scan(&s.ID, &s.Name, &s.Position, &s.Probability, &s.IsClosed, &s.IsWon)
	return s, err
}

func (db *DB) ListStages(ctx context.Context, tenantID string) ([]domain.Stage, error) {
	return listStages(ctx, db.Pool, tenantID)
}

func listStages(ctx context.Context, q querier, tenantID string) ([]domain.Stage, error) {
	rows, err := q.Query(ctx, `SELECT `+stageColumns+` FROM pipeline_stages WHERE tenant_id = $1 ORDER BY position`, tenantID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanStage)
}

func (db *DB) GetStage(ctx context.Context, tenantID, id string) (domain.Stage, error) {
	s, err := scanStage(db.Pool.QueryRow(ctx,
		`SELECT `+stageColumns+` FROM pipeline_stages WHERE tenant_id = $1 AND id = $2`, tenantID, id))
	return s, noRows(err)
}

// Tasks

const taskColumns = `id, tenant_id, title, priority, due_at, completed_at, deal_id, contact_id, created_at`

func scanTask(row pgx.Row) (domain.Task, error) {
	var t domain.Task
	err := row.Scan(&t.ID, &t.TenantID, &t.Title, &t.Priority, &t.DueAt, &t.CompletedAt, &t.DealID, &t.ContactID, &t.CreatedAt)
	return t, err
}

func (db *DB) CreateTask(ctx context.Context, t *domain.Task) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, t.ID, t.TenantID, t.Title, t.Priority, t.DueAt, t.CompletedAt, t.DealID, t.ContactID, t.CreatedAt)
	return err
}

func (db *DB) GetTask(ctx context.Context, tenantID, id string) (domain.Task, error) {
	t, err := scanTask(db.Pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE tenant_id = $1 AND id = $2`, tenantID, id))
	return t, noRows(err)
}

func (db *DB) ListTasks(ctx context.Context, tenantID string, opts ports.ListOptions) ([]domain.Task, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE tenant_id = $1 AND title ILIKE $2
		ORDER BY completed_at IS NOT NULL, due_at NULLS LAST, id
		LIMIT $3 OFFSET $4
	`, tenantID, likePattern(opts.Query), opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTask)
}

func (db *DB) UpdateTask(ctx context.Context, t *domain.Task) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE tasks SET title = $3, priority = $4, due_at = $5, completed_at = $6, deal_id = $7, contact_id = $8
		WHERE tenant_id = $1 AND id = $2
	`, t.TenantID, t.ID, t.Title, t.Priority, t.DueAt, t.CompletedAt, t.DealID, t.ContactID)
	return affected(tag.RowsAffected(), err)
}

func (db *DB) DeleteTask(ctx context.Context, tenantID, id string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM tasks WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return affected(tag.RowsAffected(), err)
}

// Activities

const activityColumns = `id, tenant_id, type, subject, deal_id, contact_id, occurred_at, scheduled_at`

func scanActivity(row pgx.Row) (domain.Activity, error) {
	var a domain.Activity
	err := row.Scan(&a.ID, &a.TenantID, &a.Type, &a.Subject, &a.DealID, &a.ContactID, &a.OccurredAt, &a.ScheduledAt)
	return a, err
}

func (db *DB) CreateActivity(ctx context.Context, a *domain.Activity) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO activities (`+activityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, a.ID, a.TenantID, a.Type, a.Subject, a.DealID, a.ContactID, a.OccurredAt, a.ScheduledAt)
	return err
}

func (db *DB) ListActivities(ctx context.Context, tenantID string, opts ports.ListOptions) ([]domain.Activity, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+activityColumns+` FROM activities
		WHERE tenant_id = $1 AND subject ILIKE $2
		ORDER BY occurred_at DESC, id
		LIMIT $3 OFFSET $4
	`, tenantID, likePattern(opts.Query), opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanActivity)
}
