package dose

import (
	"time"

	"github.com/google/uuid"

	"github.com/vaxcast/vaxcast/internal/engine"
	"github.com/vaxcast/vaxcast/internal/platform/fhir"
)

// Dose maps to the administered_dose table. One row per shot actually
// given; clinical validity is decided at evaluation time, never stored.
type Dose struct {
	ID             uuid.UUID `db:"id" json:"id"`
	FHIRID         string    `db:"fhir_id" json:"fhir_id"`
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	SeriesCode     string    `db:"series_code" json:"series_code"`
	OccurrenceDate time.Time `db:"occurrence_date" json:"occurrence_date"`
	LotNumber      *string   `db:"lot_number" json:"lot_number,omitempty"`
	Note           *string   `db:"note" json:"note,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Engine converts the record to the evaluation input form.
func (d *Dose) Engine() engine.Dose {
	return engine.Dose{
		ID:     d.ID.String(),
		Series: d.SeriesCode,
		Date:   d.OccurrenceDate,
	}
}

func (d *Dose) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "Immunization",
		"id":           d.FHIRID,
		"status":       "completed",
		"vaccineCode": fhir.CodeableConcept{
			Coding: []fhir.Coding{{
				System: "urn:vaxcast:series",
				Code:   d.SeriesCode,
			}},
			Text: d.SeriesCode,
		},
		"patient":            fhir.Reference{Reference: fhir.FormatReference("Patient", d.PatientID.String())},
		"occurrenceDateTime": d.OccurrenceDate.Format("2006-01-02"),
		"primarySource":      true,
		"meta":               fhir.Meta{LastUpdated: d.UpdatedAt},
	}
	if d.LotNumber != nil {
		result["lotNumber"] = *d.LotNumber
	}
	if d.Note != nil {
		result["note"] = []map[string]string{{"text": *d.Note}}
	}
	return result
}
