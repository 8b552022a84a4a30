package evaluation

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vaxcast/vaxcast/internal/domain/dose"
	"github.com/vaxcast/vaxcast/internal/domain/patient"
	"github.com/vaxcast/vaxcast/internal/engine"
	"github.com/vaxcast/vaxcast/internal/platform/cache"
)

// PatientSource supplies the demographic profile for evaluation.
type PatientSource interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// DoseSource supplies the full administered-dose history.
type DoseSource interface {
	HistoryForEvaluation(ctx context.Context, patientID uuid.UUID) ([]*dose.Dose, error)
}

// RuleSource supplies the active rule catalogue and its version label.
type RuleSource interface {
	Active() (*engine.RuleSet, string)
}

// Service runs schedule evaluations. Results are pure functions of
// (profile, history, rules, asOf), so they are cached under a key that
// includes all four; a rules swap changes the key and old entries just
// age out.
type Service struct {
	patients PatientSource
	doses    DoseSource
	rules    RuleSource
	engine   *engine.Engine
	cache    *cache.Cache
	log      zerolog.Logger
}

func NewService(patients PatientSource, doses DoseSource, rules RuleSource, eng *engine.Engine, c *cache.Cache, log zerolog.Logger) *Service {
	return &Service{
		patients: patients,
		doses:    doses,
		rules:    rules,
		engine:   eng,
		cache:    c,
		log:      log,
	}
}

// Evaluate computes the full schedule picture for a patient as of the
// given instant. A zero asOf means now.
func (s *Service) Evaluate(ctx context.Context, patientID uuid.UUID, asOf time.Time) (*Result, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	rs, version := s.rules.Active()
	key := cacheKey(patientID, version, asOf)

	if raw, err := s.cache.Get(ctx, key); err == nil {
		var cached Result
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
	} else if !errors.Is(err, cache.ErrMiss) {
		s.log.Warn().Err(err).Str("patient_id", patientID.String()).Msg("evaluation cache read failed")
	}

	p, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}

	history, err := s.doses.HistoryForEvaluation(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load dose history: %w", err)
	}

	doses := make([]engine.Dose, 0, len(history))
	for _, d := range history {
		doses = append(doses, d.Engine())
	}

	ev := s.engine.Evaluate(p.Profile(), rs, doses, asOf)

	result := &Result{
		PatientID:    patientID,
		EvaluatedAt:  asOf,
		RulesVersion: version,
		Statuses:     ev.Statuses,
		Forecast:     ev.Forecast,
		Visits:       ev.Visits,
	}

	if raw, err := json.Marshal(result); err == nil {
		if err := s.cache.Set(ctx, key, raw); err != nil {
			s.log.Warn().Err(err).Str("patient_id", patientID.String()).Msg("evaluation cache write failed")
		}
	}

	return result, nil
}

// PatientChanged drops cached evaluations for the patient. Satisfies
// the patient and dose services' ChangeListener.
func (s *Service) PatientChanged(ctx context.Context, patientID uuid.UUID) {
	if err := s.cache.DeleteByPrefix(ctx, evalKeyPrefix(patientID)); err != nil {
		s.log.Warn().Err(err).Str("patient_id", patientID.String()).Msg("evaluation cache invalidation failed")
	}
}

func evalKeyPrefix(patientID uuid.UUID) string {
	return "eval:" + patientID.String() + ":"
}

func cacheKey(patientID uuid.UUID, rulesVersion string, asOf time.Time) string {
	return evalKeyPrefix(patientID) + rulesVersion + ":" + asOf.UTC().Format("2006-01-02")
}
