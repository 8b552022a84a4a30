package rules

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service manages stored rule catalogues and keeps the in-memory
// provider pointed at the active one.
type Service struct {
	repo     Repository
	provider *Provider
}

func NewService(repo Repository, provider *Provider) *Service {
	return &Service{repo: repo, provider: provider}
}

// Provider exposes the live rule-set provider for evaluation wiring.
func (s *Service) Provider() *Provider { return s.provider }

// Import validates and stores a rule catalogue document. The document
// is rejected outright when it does not decode to a coherent catalogue;
// nothing invalid is ever persisted.
func (s *Service) Import(ctx context.Context, name string, document []byte) (*RuleSetRecord, error) {
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if _, err := Decode(document); err != nil {
		return nil, fmt.Errorf("invalid rule set: %w", err)
	}

	rec := &RuleSetRecord{Name: name, Document: document}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("store rule set: %w", err)
	}
	return rec, nil
}

// Activate makes a stored catalogue the active one and swaps it into
// the provider so subsequent evaluations use it.
func (s *Service) Activate(ctx context.Context, id uuid.UUID) (*RuleSetRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load rule set: %w", err)
	}

	rs, err := Decode(rec.Document)
	if err != nil {
		return nil, fmt.Errorf("stored rule set %s is invalid: %w", id, err)
	}

	if err := s.repo.Activate(ctx, id); err != nil {
		return nil, fmt.Errorf("activate rule set: %w", err)
	}
	rec.Active = true

	s.provider.Swap(rs, versionLabel(rec))
	return rec, nil
}

// RestoreActive loads the persisted active catalogue into the provider,
// if one exists. Called at startup; a missing record is not an error.
func (s *Service) RestoreActive(ctx context.Context) (bool, error) {
	rec, err := s.repo.GetActive(ctx)
	if err != nil {
		return false, nil
	}
	rs, err := Decode(rec.Document)
	if err != nil {
		return false, fmt.Errorf("stored active rule set %s is invalid: %w", rec.ID, err)
	}
	s.provider.Swap(rs, versionLabel(rec))
	return true, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*RuleSetRecord, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*RuleSetRecord, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// ExportActive renders the provider's current catalogue back to the
// exchange format, so the active rules can be round-tripped even when
// they are the built-in defaults.
func (s *Service) ExportActive() ([]byte, string, error) {
	rs, version := s.provider.Active()
	doc, err := Encode(rs)
	if err != nil {
		return nil, "", err
	}
	return doc, version, nil
}

// ActiveSummary reports the active version and its series codes.
func (s *Service) ActiveSummary() (string, []string) {
	rs, version := s.provider.Active()
	return version, rs.SeriesCodes()
}

func versionLabel(rec *RuleSetRecord) string {
	return fmt.Sprintf("%s/v%d", rec.Name, rec.Version)
}
