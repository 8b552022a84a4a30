package rules

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vaxcast/vaxcast/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const ruleSetCols = `id, name, version, document, active, created_at`

func (r *repoPG) scan(row pgx.Row) (*RuleSetRecord, error) {
	var rec RuleSetRecord
	err := row.Scan(&rec.ID, &rec.Name, &rec.Version, &rec.Document, &rec.Active, &rec.CreatedAt)
	return &rec, err
}

func (r *repoPG) Create(ctx context.Context, rec *RuleSetRecord) error {
	rec.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO rule_set (id, name, version, document, active)
		VALUES ($1, $2, COALESCE((SELECT MAX(version) FROM rule_set WHERE name = $2), 0) + 1, $3, false)
		RETURNING version`,
		rec.ID, rec.Name, rec.Document).Scan(&rec.Version)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*RuleSetRecord, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+ruleSetCols+` FROM rule_set WHERE id = $1`, id))
}

func (r *repoPG) GetActive(ctx context.Context) (*RuleSetRecord, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+ruleSetCols+` FROM rule_set WHERE active ORDER BY created_at DESC LIMIT 1`))
}

// Activate flips the active flag to the given record. Runs both
// statements on the same connection so either a transaction joined via
// the context covers them or the caller accepts the small window.
func (r *repoPG) Activate(ctx context.Context, id uuid.UUID) error {
	c := r.conn(ctx)
	if _, err := c.Exec(ctx, `UPDATE rule_set SET active = false WHERE active`); err != nil {
		return err
	}
	tag, err := c.Exec(ctx, `UPDATE rule_set SET active = true WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*RuleSetRecord, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM rule_set`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+ruleSetCols+` FROM rule_set ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*RuleSetRecord
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, nil
}
