package evaluation

import (
	"time"

	"github.com/google/uuid"

	"github.com/vaxcast/vaxcast/internal/engine"
	"github.com/vaxcast/vaxcast/internal/platform/fhir"
)

// Result is a complete schedule evaluation for one patient at one
// point in time.
type Result struct {
	PatientID    uuid.UUID             `json:"patient_id"`
	EvaluatedAt  time.Time             `json:"evaluated_at"`
	RulesVersion string                `json:"rules_version"`
	Statuses     []engine.SeriesStatus `json:"statuses"`
	Forecast     []engine.ForecastDose `json:"forecast"`
	Visits       []engine.Visit        `json:"visits"`
}

// forecastStatusCode maps an engine status to the FHIR
// ImmunizationRecommendation forecast status vocabulary.
func forecastStatusCode(s engine.Status) string {
	switch s {
	case engine.StatusComplete:
		return "complete"
	case engine.StatusDueNow:
		return "due"
	case engine.StatusOverdue:
		return "overdue"
	case engine.StatusFuture:
		return "future"
	case engine.StatusContraindicated:
		return "contraindicated"
	}
	return string(s)
}

// ToFHIR renders the result as a FHIR ImmunizationRecommendation with
// one recommendation entry per series.
func (r *Result) ToFHIR() map[string]interface{} {
	recs := make([]map[string]interface{}, 0, len(r.Statuses))
	for _, st := range r.Statuses {
		rec := map[string]interface{}{
			"vaccineCode": []fhir.CodeableConcept{{
				Coding: []fhir.Coding{{
					System: "urn:vaxcast:series",
					Code:   st.Series,
				}},
			}},
			"forecastStatus": fhir.CodeableConcept{
				Coding: []fhir.Coding{{
					System: "http://terminology.hl7.org/CodeSystem/immunization-recommendation-status",
					Code:   forecastStatusCode(st.Status),
				}},
			},
			"doseNumberPositiveInt": st.ValidDoses + 1,
		}
		if st.Status == engine.StatusComplete || st.Status == engine.StatusContraindicated {
			delete(rec, "doseNumberPositiveInt")
		}
		if st.NextDue != nil {
			rec["dateCriterion"] = []map[string]interface{}{{
				"code": fhir.CodeableConcept{
					Coding: []fhir.Coding{{
						System: "http://loinc.org",
						Code:   "30981-5",
					}},
				},
				"value": st.NextDue.Format("2006-01-02"),
			}}
		}
		if st.Reason != "" {
			rec["description"] = st.Reason
		}
		recs = append(recs, rec)
	}

	return map[string]interface{}{
		"resourceType":   "ImmunizationRecommendation",
		"id":             r.PatientID.String(),
		"patient":        fhir.Reference{Reference: fhir.FormatReference("Patient", r.PatientID.String())},
		"date":           r.EvaluatedAt.Format(time.RFC3339),
		"recommendation": recs,
		"meta": fhir.Meta{
			VersionID:   r.RulesVersion,
			LastUpdated: r.EvaluatedAt,
		},
	}
}
