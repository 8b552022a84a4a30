package patient

import (
	"time"

	"github.com/google/uuid"

	"github.com/vaxcast/vaxcast/internal/engine"
	"github.com/vaxcast/vaxcast/internal/platform/fhir"
)

// Patient maps to the patient table.
type Patient struct {
	ID          uuid.UUID `db:"id" json:"id"`
	FHIRID      string    `db:"fhir_id" json:"fhir_id"`
	Active      bool      `db:"active" json:"active"`
	FirstName   string    `db:"first_name" json:"first_name"`
	LastName    string    `db:"last_name" json:"last_name"`
	BirthDate   time.Time `db:"birth_date" json:"birth_date"`
	Sex         *string   `db:"sex" json:"sex,omitempty"`
	Conditions  []string  `db:"conditions" json:"conditions"`
	Medications []string  `db:"medications" json:"medications"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Profile converts the record to the evaluation input form.
func (p *Patient) Profile() engine.Profile {
	prof := engine.Profile{
		DateOfBirth: p.BirthDate,
		Medications: append([]string(nil), p.Medications...),
	}
	if p.Sex != nil {
		prof.Sex = *p.Sex
	}
	for _, c := range p.Conditions {
		prof.Conditions = append(prof.Conditions, engine.Condition(c))
	}
	return prof
}

func (p *Patient) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "Patient",
		"id":           p.FHIRID,
		"active":       p.Active,
		"birthDate":    p.BirthDate.Format("2006-01-02"),
		"meta":         fhir.Meta{LastUpdated: p.UpdatedAt},
	}

	result["name"] = []fhir.HumanName{{
		Use:    "official",
		Family: p.LastName,
		Given:  []string{p.FirstName},
	}}

	if p.Sex != nil {
		result["gender"] = *p.Sex
	}

	if len(p.Conditions) > 0 {
		extensions := make([]map[string]interface{}, 0, len(p.Conditions))
		for _, c := range p.Conditions {
			extensions = append(extensions, map[string]interface{}{
				"url":       "urn:vaxcast:condition",
				"valueCode": c,
			})
		}
		result["extension"] = extensions
	}

	return result
}
