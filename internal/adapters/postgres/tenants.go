package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"lumen/internal/domain"
)

// DefaultStages is the pipeline a new tenant starts with.
var DefaultStages = []domain.Stage{
	{Name: "Prospecting", Position: 0, Probability: 10},
	{Name: "Qualification", Position: 1, Probability: 25},
	{Name: "Proposal", Position: 2, Probability: 50},
	{Name: "Negotiation", Position: 3, Probability: 75},
	{Name: "Closed won", Position: 4, Probability: 100, IsClosed: true, IsWon: true},
	{Name: "Closed lost", Position: 5, Probability: 0, IsClosed: true},
}

// CreateTenant inserts a tenant with the default pipeline. It is a no-op
// for a tenant that already exists.
func (db *DB) CreateTenant(ctx context.Context, t domain.Tenant) error {
	return db.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO tenants (id, name, timezone) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO NOTHING
		`, t.ID, t.Name, t.Timezone)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		batch := &pgx.Batch{}
		for _, st := range DefaultStages {
			batch.Queue(`
				INSERT INTO pipeline_stages (id, tenant_id, name, position, probability, is_closed, is_won)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, uuid.NewString(), t.ID, st.Name, st.Position, st.Probability, st.IsClosed, st.IsWon)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (db *DB) GetTenant(ctx context.Context, id string) (domain.Tenant, error) {
	var t domain.Tenant
	err := db.Pool.QueryRow(ctx, `SELECT id, name, timezone FROM tenants WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.Timezone)
	return t, noRows(err)
}
