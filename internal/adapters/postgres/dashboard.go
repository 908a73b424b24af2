package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"lumen/internal/domain"
	"lumen/internal/ports"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Snapshot reads stages, deals, open tasks and the requested activity
// window in one repeatable-read transaction, so the three dashboard views
// never mix rows from different moments.
func (db *DB) Snapshot(ctx context.Context, q ports.SnapshotQuery) (domain.Snapshot, error) {
	var snap domain.Snapshot
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	err := db.inTx(ctx, opts, func(tx pgx.Tx) error {
		var err error
		if snap.Stages, err = listStages(ctx, tx, q.TenantID); err != nil {
			return err
		}
		rows, err := tx.Query(ctx, dealSelect+` WHERE d.tenant_id = $1`, q.TenantID)
		if err != nil {
			return err
		}
		if snap.Deals, err = collect(rows, scanDeal); err != nil {
			return err
		}
		rows, err = tx.Query(ctx, `
			SELECT `+taskColumns+` FROM tasks
			WHERE tenant_id = $1 AND completed_at IS NULL
		`, q.TenantID)
		if err != nil {
			return err
		}
		if snap.Tasks, err = collect(rows, scanTask); err != nil {
			return err
		}
		snap.Activities = []domain.Activity{}
		if q.ActivitiesFrom.IsZero() || q.ActivitiesTo.IsZero() {
			return nil
		}
		rows, err = tx.Query(ctx, `
			SELECT `+activityColumns+` FROM activities
			WHERE tenant_id = $1
			  AND ((occurred_at >= $2 AND occurred_at < $3)
			    OR (scheduled_at >= $2 AND scheduled_at < $3))
		`, q.TenantID, q.ActivitiesFrom, q.ActivitiesTo)
		if err != nil {
			return err
		}
		snap.Activities, err = collect(rows, scanActivity)
		return err
	})
	if err != nil {
		return domain.Snapshot{}, err
	}
	return snap, nil
}
