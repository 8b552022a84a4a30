package engine

import "sort"

// liveConflictWindowDays is the exclusion zone another live-vaccine
// administration creates: a live dose given strictly 1–27 days after
// any live administration is rejected. Same-day and ≥28-day spacing
// are both acceptable.
const liveConflictWindowDays = 28

// sortedHistory returns a day-normalized copy of the history in
// chronological order. The sort is stable so same-day doses keep their
// insertion order.
func sortedHistory(history []Dose) []Dose {
	out := make([]Dose, len(history))
	for i, d := range history {
		d.Date = day(d.Date)
		out[i] = d
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// ValidDoses determines which of the patient's administered doses for
// one series count toward series progress. Doses are judged strictly
// in chronological order against the rule for the next unmet position;
// rejected doses stay in raw history but never advance progress and
// never anchor interval math. The full cross-series history is needed
// because live-vaccine interference scans every administration.
func (e *Engine) ValidDoses(p Profile, rs *RuleSet, series string, history []Dose) []Dose {
	all := sortedHistory(history)
	dob := day(p.DateOfBirth)
	live := IsLiveVaccine(series)

	var valid []Dose
	for _, d := range all {
		if d.Series != series {
			continue
		}
		rule, ok := rs.RuleFor(series, len(valid)+1)
		if !ok {
			// Beyond the schedule with no recurring anchor: the dose
			// is superfluous and inert.
			continue
		}
		if live && liveConflict(all, d) {
			continue
		}
		if rule.MinAge != nil {
			floor := rule.MinAge.From(dob).AddDate(0, 0, -e.opt.GraceDays)
			if d.Date.Before(floor) {
				continue
			}
		}
		if rule.MinInterval != nil && len(valid) > 0 {
			floor := rule.MinInterval.From(valid[len(valid)-1].Date).AddDate(0, 0, -e.opt.GraceDays)
			if d.Date.Before(floor) {
				continue
			}
		}
		if rule.MinIntervalFromFirst != nil && len(valid) > 0 {
			floor := rule.MinIntervalFromFirst.From(valid[0].Date).AddDate(0, 0, -e.opt.GraceDays)
			if d.Date.Before(floor) {
				continue
			}
		}
		if rule.MaxAge != nil {
			// Ceilings are exact: a dose on the boundary day is too late.
			if !d.Date.Before(rule.MaxAge.From(dob)) {
				continue
			}
		}
		valid = append(valid, d)
	}
	return valid
}

// liveConflict reports whether any live-vaccine administration falls
// strictly 1–27 days before the candidate. The administration event
// blocks regardless of its own validity.
func liveConflict(all []Dose, candidate Dose) bool {
	for _, o := range all {
		if !IsLiveVaccine(o.Series) {
			continue
		}
		gap := daysBetween(o.Date, candidate.Date)
		if gap >= 1 && gap < liveConflictWindowDays {
			return true
		}
	}
	return false
}
