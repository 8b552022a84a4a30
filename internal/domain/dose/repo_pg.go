package dose

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

const doseCols = `id, fhir_id, patient_id, series_code, occurrence_date, lot_number, note, created_at, updated_at`

func (r *repoPG) scan(row pgx.Row) (*Dose, error) {
	var d Dose
	err := row.Scan(&d.ID, &d.FHIRID, &d.PatientID, &d.SeriesCode, &d.OccurrenceDate,
		&d.LotNumber, &d.Note, &d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *repoPG) Create(ctx context.Context, d *Dose) error {
	d.ID = uuid.New()
	if d.FHIRID == "" {
		d.FHIRID = d.ID.String()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO administered_dose (id, fhir_id, patient_id, series_code, occurrence_date, lot_number, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		d.ID, d.FHIRID, d.PatientID, d.SeriesCode, d.OccurrenceDate, d.LotNumber, d.Note)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Dose, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+doseCols+` FROM administered_dose WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, d *Dose) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE administered_dose SET series_code=$2, occurrence_date=$3, lot_number=$4, note=$5, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.SeriesCode, d.OccurrenceDate, d.LotNumber, d.Note)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM administered_dose WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Dose, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM administered_dose WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+doseCols+` FROM administered_dose WHERE patient_id = $1 ORDER BY occurrence_date DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Dose
	for rows.Next() {
		d, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, nil
}

// AllByPatient loads the full history in chronological order for
// evaluation.
func (r *repoPG) AllByPatient(ctx context.Context, patientID uuid.UUID) ([]*Dose, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+doseCols+` FROM administered_dose WHERE patient_id = $1 ORDER BY occurrence_date ASC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Dose
	for rows.Next() {
		d, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, nil
}
