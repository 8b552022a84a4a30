package dose

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, d *Dose) error
	GetByID(ctx context.Context, id uuid.UUID) (*Dose, error)
	Update(ctx context.Context, d *Dose) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Dose, int, error)
	AllByPatient(ctx context.Context, patientID uuid.UUID) ([]*Dose, error)
}
