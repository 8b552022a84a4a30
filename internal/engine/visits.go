package engine

import "sort"

// GroupVisits clusters forecast doses into the fewest appointment
// dates. A dose joins the current visit when its due date is within
// the grouping window of the visit's anchor; joining moves the anchor
// to the later of the two dates, never the earlier — grouping may
// delay an already-eligible dose but can never advance one before its
// eligibility floor.
func (e *Engine) GroupVisits(forecast []ForecastDose) []Visit {
	if len(forecast) == 0 {
		return nil
	}
	sorted := append([]ForecastDose(nil), forecast...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Due.Equal(sorted[j].Due) {
			return sorted[i].Due.Before(sorted[j].Due)
		}
		return sorted[i].Series < sorted[j].Series
	})

	var visits []Visit
	for _, d := range sorted {
		due := day(d.Due)
		if len(visits) > 0 {
			v := &visits[len(visits)-1]
			if daysBetween(v.Date, due) <= e.opt.VisitWindowDays {
				if due.After(v.Date) {
					v.Date = due
				}
				v.Doses = append(v.Doses, d)
				continue
			}
		}
		visits = append(visits, Visit{Date: due, Doses: []ForecastDose{d}})
	}
	return visits
}
