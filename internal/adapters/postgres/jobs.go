package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"lumen/internal/ports"
)

func (db *DB) EnqueueReportJob(ctx context.Context, tenantID, query string) (string, error) {
	id := uuid.NewString()
	_, err := db.Pool.Exec(ctx, `INSERT INTO report_jobs (id, tenant_id, query) VALUES ($1, $2, $3)`, id, tenantID, query)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ClaimNext selects the oldest queued job using SKIP LOCKED and marks it
// running, so concurrent workers never claim the same row.
func (db *DB) ClaimNext(ctx context.Context) (job ports.ReportJob, found bool, err error) {
	err = db.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			SELECT id, tenant_id, query FROM report_jobs
			WHERE status = 'queued'
			ORDER BY queued_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		`).Scan(&job.ID, &job.TenantID, &job.Query)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE report_jobs SET status = 'running', started_at = now(), attempts = attempts + 1 WHERE id = $1
		`, job.ID); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return ports.ReportJob{}, false, err
	}
	return job, found, nil
}

// settle runs on a fresh context so a job can be completed or failed after
// the worker's context is canceled at shutdown.
func settle(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
}

func (db *DB) MarkCompleted(ctx context.Context, jobID, reportID string) error {
	ctx, cancel := settle(ctx)
	defer cancel()
	tag, err := db.Pool.Exec(ctx, `
		UPDATE report_jobs SET status = 'completed', report_id = $2, error = '', finished_at = now() WHERE id = $1
	`, jobID, reportID)
	return affected(tag.RowsAffected(), err)
}

func (db *DB) MarkFailed(ctx context.Context, jobID string, reason string) error {
	ctx, cancel := settle(ctx)
	defer cancel()
	tag, err := db.Pool.Exec(ctx, `
		UPDATE report_jobs SET status = 'failed', error = $2, finished_at = now() WHERE id = $1
	`, jobID, reason)
	return affected(tag.RowsAffected(), err)
}

func (db *DB) JobStatus(ctx context.Context, tenantID, jobID string) (ports.ReportJobStatus, error) {
	var st ports.ReportJobStatus
	var reportID *string
	err := db.Pool.QueryRow(ctx, `
		SELECT id, status, report_id, error FROM report_jobs WHERE tenant_id = $1 AND id = $2
	`, tenantID, jobID).Scan(&st.ID, &st.Status, &reportID, &st.Error)
	if err != nil {
		return ports.ReportJobStatus{}, noRows(err)
	}
	if reportID != nil {
		st.ReportID = *reportID
	}
	return st, nil
}

// RequeueStale returns running jobs older than maxAge to the queue. Jobs
// left running by a crashed process are picked up again this way.
func (db *DB) RequeueStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE report_jobs SET status = 'queued', started_at = NULL
		WHERE status = 'running' AND started_at < now() - make_interval(secs => $1)
	`, maxAge.Seconds())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
