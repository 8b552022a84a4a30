package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vaxcast/vaxcast/internal/engine"
)

// ChangeListener is notified after a patient record changes, so cached
// evaluations for that patient can be invalidated.
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

var validSexes = map[string]bool{
	"male": true, "female": true, "other": true, "unknown": true,
}

func (s *Service) validate(p *Patient) error {
	if p.FirstName == "" {
		return fmt.Errorf("first_name is required")
	}
	if p.LastName == "" {
		return fmt.Errorf("last_name is required")
	}
	if p.BirthDate.IsZero() {
		return fmt.Errorf("birth_date is required")
	}
	if p.Sex != nil && !validSexes[*p.Sex] {
		return fmt.Errorf("invalid sex: %s", *p.Sex)
	}
	for _, c := range p.Conditions {
		if !engine.KnownCondition(engine.Condition(c)) {
			return fmt.Errorf("unknown condition: %s", c)
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if err := s.validate(p); err != nil {
		return err
	}
	p.Active = true
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByFHIRID(ctx context.Context, fhirID string) (*Patient, error) {
	return s.repo.GetByFHIRID(ctx, fhirID)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if err := s.validate(p); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return err
	}
	if s.listener != nil {
		s.listener.PatientChanged(ctx, p.ID)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.listener != nil {
		s.listener.PatientChanged(ctx, id)
	}
	return nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}
