package engine

import (
	"fmt"
	"sort"
	"time"
)

// ForecastSeries projects one series' future required doses within the
// horizon. It repeatedly evaluates the series against a growing
// simulated history, appending a simulated administration at each due
// date so later doses' interval math chains correctly. The first
// iteration is emitted only when the series is already Future: an
// imminent or overdue dose is surfaced as the series' next-due, not as
// a forecast item.
func (e *Engine) ForecastSeries(p Profile, rs *RuleSet, series string, history []Dose, now time.Time) []ForecastDose {
	now = day(now)
	horizon := now.AddDate(0, e.opt.HorizonMonths, 0)
	sim := append([]Dose(nil), history...)

	var out []ForecastDose
	prevDose := 0
	var prevDue time.Time
	for i := 0; i < e.opt.MaxForecastPerSeries; i++ {
		st := e.EvaluateSeries(p, rs, series, sim, now)
		if st.Status == StatusComplete || st.Status == StatusContraindicated || st.NextDue == nil {
			break
		}
		due := *st.NextDue
		if due.After(horizon) {
			break
		}
		doseNumber := st.ValidDoses + 1
		// A simulated dose the validator rejects (live-virus conflict
		// with another series' administration) leaves the series stuck
		// at the same position; stop instead of re-emitting it.
		if i > 0 && doseNumber == prevDose && due.Equal(prevDue) {
			break
		}
		prevDose, prevDue = doseNumber, due
		if i > 0 || st.Status == StatusFuture {
			out = append(out, ForecastDose{Series: series, DoseNumber: doseNumber, Due: due})
		}
		// NextDue is already clamped to today for past-due doses, so
		// the simulated administration is never dated in the past.
		sim = append(sim, Dose{
			ID:     fmt.Sprintf("forecast-%s-%d", series, doseNumber),
			Series: series,
			Date:   due,
		})
	}
	return out
}

// Forecast runs every series in the rule set independently and merges
// the projections, ordered by due date then series for a stable
// response.
func (e *Engine) Forecast(p Profile, rs *RuleSet, history []Dose, now time.Time) []ForecastDose {
	var out []ForecastDose
	for _, series := range rs.SeriesCodes() {
		out = append(out, e.ForecastSeries(p, rs, series, history, now)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Due.Equal(out[j].Due) {
			return out[i].Due.Before(out[j].Due)
		}
		if out[i].Series != out[j].Series {
			return out[i].Series < out[j].Series
		}
		return out[i].DoseNumber < out[j].DoseNumber
	})
	return out
}

// Evaluate is the full engine entry point: one status per series
// defined in the rule set (including series with no history), the flat
// forecast, and the visit grouping.
func (e *Engine) Evaluate(p Profile, rs *RuleSet, history []Dose, now time.Time) Evaluation {
	statuses := make([]SeriesStatus, 0, len(rs.SeriesCodes()))
	for _, series := range rs.SeriesCodes() {
		statuses = append(statuses, e.EvaluateSeries(p, rs, series, history, now))
	}
	forecast := e.Forecast(p, rs, history, now)
	return Evaluation{
		Statuses: statuses,
		Forecast: forecast,
		Visits:   e.GroupVisits(forecast),
	}
}
