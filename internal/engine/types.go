package engine

import "time"

// Profile is the demographic and clinical context for one evaluation.
// Immutable for the duration of a call.
type Profile struct {
	DateOfBirth time.Time
	Sex         string
	Conditions  []Condition
	Medications []string
}

// HasCondition reports whether the profile carries the tag.
func (p Profile) HasCondition(c Condition) bool {
	for _, have := range p.Conditions {
		if have == c {
			return true
		}
	}
	return false
}

// Dose is one administered-dose record. A dose is raw data; whether it
// counts toward series progress is decided by the validator.
type Dose struct {
	ID     string
	Series string
	Date   time.Time
}

// Status classifies a series' compliance state.
type Status string

const (
	StatusComplete        Status = "complete"
	StatusDueNow          Status = "due-now"
	StatusOverdue         Status = "overdue"
	StatusFuture          Status = "future"
	StatusContraindicated Status = "contraindicated"
)

// SeriesStatus is the evaluation outcome for one series. Rule is the
// rule that produced the decision, kept for audit and explanation.
type SeriesStatus struct {
	Series     string
	Status     Status
	ValidDoses int
	NextDue    *time.Time
	Reason     string
	Rule       *DoseRule
}

// ForecastDose is a single simulated future requirement.
type ForecastDose struct {
	Series     string
	DoseNumber int
	Due        time.Time
}

// Visit is a group of forecast doses assigned to one appointment date.
type Visit struct {
	Date  time.Time
	Doses []ForecastDose
}

// Evaluation is the full engine response for one patient: one status
// per series defined in the rule set, the flat forecast, and the
// minimal-visit grouping derived from it.
type Evaluation struct {
	Statuses []SeriesStatus
	Forecast []ForecastDose
	Visits   []Visit
}
