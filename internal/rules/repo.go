package rules

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RuleSetRecord is a stored rule catalogue. Document holds the JSON
// exchange form; it is re-validated on every load so a record written
// by an older build cannot smuggle in a malformed catalogue.
type RuleSetRecord struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Version   int       `db:"version" json:"version"`
	Document  []byte    `db:"document" json:"document"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Repository interface {
	Create(ctx context.Context, rec *RuleSetRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*RuleSetRecord, error)
	GetActive(ctx context.Context) (*RuleSetRecord, error)
	Activate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*RuleSetRecord, int, error)
}
