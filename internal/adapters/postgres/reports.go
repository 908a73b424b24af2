package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"lumen/internal/report"
)

// SaveReport inserts a spec. Rows are never updated; a regenerated report
// has a new id.
func (db *DB) SaveReport(ctx context.Context, tenantID, query string, spec report.Spec) error {
	data, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO reports (id, tenant_id, query, spec, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, spec.ID, tenantID, query, data, spec.GeneratedAt)
	return err
}

func (db *DB) GetReport(ctx context.Context, tenantID, id string) (report.Spec, error) {
	var data []byte
	err := db.Pool.QueryRow(ctx, `SELECT spec FROM reports WHERE tenant_id = $1 AND id = $2`, tenantID, id).Scan(&data)
	if err != nil {
		return report.Spec{}, noRows(err)
	}
	var spec report.Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return report.Spec{}, fmt.Errorf("decode report %s: %w", id, err)
	}
	return spec, nil
}
