package engine

import (
	"fmt"
	"strings"
	"time"
)

// EvaluateSeries classifies one series' compliance state as of now.
// The full dose history is passed so the validator can apply the
// cross-series live-vaccine check; only doses matching the series
// advance its progress.
func (e *Engine) EvaluateSeries(p Profile, rs *RuleSet, series string, history []Dose, now time.Time) SeriesStatus {
	now = day(now)
	dob := day(p.DateOfBirth)

	raw := 0
	for _, d := range history {
		if d.Series == series {
			raw++
		}
	}

	valid := e.ValidDoses(p, rs, series, history)
	count := len(valid)
	st := SeriesStatus{Series: series, ValidDoses: count}

	if reason, hit := contraindication(p, series); hit {
		st.Status = StatusContraindicated
		st.Reason = reason
		return st
	}

	rule, ok := rs.RuleFor(series, count+1)
	if !ok {
		st.Status = StatusComplete
		st.Reason = fmt.Sprintf("series complete with %d valid dose(s)", count)
		return st
	}
	st.Rule = &rule

	// Max-age foreclosure. A series already begun is concluded, never
	// retroactively contraindicated; an unbegun series past its window
	// is simply not indicated.
	if rule.MaxAge != nil && !now.Before(rule.MaxAge.From(dob)) {
		if count > 0 {
			st.Status = StatusComplete
			st.Reason = fmt.Sprintf("series concluded due to age (maximum age %s for dose %d exceeded)", rule.MaxAge, rule.DoseNumber)
		} else {
			st.Status = StatusContraindicated
			st.Reason = fmt.Sprintf("not indicated, maximum age %s exceeded before first dose", rule.MaxAge)
		}
		return st
	}

	// Earliest eligible date: the latest of the three floors, ungraced.
	// Grace relaxes only retrospective judgments, never scheduling.
	due := dob
	if rule.MinAge != nil {
		due = laterOf(due, rule.MinAge.From(dob))
	}
	if rule.MinInterval != nil && count > 0 {
		due = laterOf(due, rule.MinInterval.From(valid[count-1].Date))
	}
	if rule.MinIntervalFromFirst != nil && count > 0 {
		due = laterOf(due, rule.MinIntervalFromFirst.From(valid[0].Date))
	}

	if due.After(now) {
		st.Status = StatusFuture
		st.NextDue = &due
	} else {
		effective := now
		st.NextDue = &effective
		if now.After(due.AddDate(0, 0, e.opt.OverdueAfterWeeks*7)) {
			st.Status = StatusOverdue
		} else {
			st.Status = StatusDueNow
		}
	}
	st.Reason = e.reasonText(rule, count, raw)
	return st
}

// reasonText explains the pending dose: its number, the active
// minimum-age constraint, the interval constraint once the series has
// begun, and a warning when raw doses were dropped by validation.
func (e *Engine) reasonText(rule DoseRule, validCount, rawCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "dose %d", rule.DoseNumber)
	if rule.MinAge != nil {
		fmt.Fprintf(&b, ", minimum age %s", rule.MinAge)
	}
	if validCount > 0 {
		if rule.MinInterval != nil {
			fmt.Fprintf(&b, ", minimum interval %s since previous dose", rule.MinInterval)
		}
		if rule.MinIntervalFromFirst != nil {
			fmt.Fprintf(&b, ", minimum interval %s since first dose", rule.MinIntervalFromFirst)
		}
	}
	if dropped := rawCount - validCount; dropped > 0 {
		fmt.Fprintf(&b, "; %d invalid dose(s) found in history", dropped)
	}
	return b.String()
}
