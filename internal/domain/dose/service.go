package dose

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChangeListener is notified after a patient's dose history changes.
type ChangeListener interface {
	PatientChanged(ctx context.Context, patientID uuid.UUID)
}

type Service struct {
	repo     Repository
	listener ChangeListener
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SetChangeListener wires cache invalidation. Optional.
func (s *Service) SetChangeListener(l ChangeListener) { s.listener = l }

func (s *Service) validate(d *Dose) error {
	if d.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if d.SeriesCode == "" {
		return fmt.Errorf("series_code is required")
	}
	if d.OccurrenceDate.IsZero() {
		return fmt.Errorf("occurrence_date is required")
	}
	if d.OccurrenceDate.After(time.Now().AddDate(0, 0, 1)) {
		return fmt.Errorf("occurrence_date cannot be in the future")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, d *Dose) error {
	if err := s.validate(d); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return err
	}
	s.notify(ctx, d.PatientID)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Dose, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, d *Dose) error {
	if err := s.validate(d); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, d); err != nil {
		return err
	}
	s.notify(ctx, d.PatientID)
	return nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.notify(ctx, d.PatientID)
	return nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Dose, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// HistoryForEvaluation loads the patient's complete dose history.
func (s *Service) HistoryForEvaluation(ctx context.Context, patientID uuid.UUID) ([]*Dose, error) {
	return s.repo.AllByPatient(ctx, patientID)
}

func (s *Service) notify(ctx context.Context, patientID uuid.UUID) {
	if s.listener != nil {
		s.listener.PatientChanged(ctx, patientID)
	}
}
