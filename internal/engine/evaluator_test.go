package engine

import (
	"strings"
	"testing"
	"time"
)

func childRuleSet(t *testing.T) *RuleSet {
	t.Helper()
	return mustRuleSet(t, map[string][]DoseRule{
		"DTaP": {
			{Series: "DTaP", DoseNumber: 1, MinAge: offp(Weeks(6))},
			{Series: "DTaP", DoseNumber: 2, MinAge: offp(Weeks(10)), MinInterval: offp(Weeks(4))},
			{Series: "DTaP", DoseNumber: 3, MinAge: offp(Weeks(14)), MinInterval: offp(Weeks(4))},
		},
		"MMR": {
			{Series: "MMR", DoseNumber: 1, MinAge: offp(Months(12))},
			{Series: "MMR", DoseNumber: 2, MinAge: offp(Months(48)), MinInterval: offp(Weeks(4))},
		},
		"Rotavirus": {
			{Series: "Rotavirus", DoseNumber: 1, MinAge: offp(Weeks(6)), MaxAge: offp(Weeks(15))},
			{Series: "Rotavirus", DoseNumber: 2, MinInterval: offp(Weeks(4)), MaxAge: offp(Months(8))},
		},
	})
}

func TestEvaluateSeriesNoHistoryDue(t *testing.T) {
	rs := childRuleSet(t)
	e := testEngine()
	dob := date(2024, time.January, 1)
	p := Profile{DateOfBirth: dob}

	// At 7 weeks old, dose 1 (min age 6 weeks) became due a week ago.
	now := dob.AddDate(0, 0, 49)
	st := e.EvaluateSeries(p, rs, "DTaP", nil, now)
	if st.Status != StatusDueNow {
		t.Fatalf("status = %s, want %s", st.Status, StatusDueNow)
	}
	if st.NextDue == nil || !st.NextDue.Equal(now) {
		t.Fatalf("next due = %v, want clamped to now %v", st.NextDue, now)
	}
	if st.Rule == nil || st.Rule.DoseNumber != 1 {
		t.Fatalf("decision rule = %+v, want dose 1", st.Rule)
	}
}

func TestEvaluateSeriesOverdueAfterEightWeeks(t *testing.T) {
	rs := childRuleSet(t)
	e := testEngine()
	dob := date(2024, time.January, 1)
	p := Profile{DateOfBirth: dob}

	due := dob.AddDate(0, 0, 42)

	// Exactly 8 weeks past due is still DueNow; one day more is Overdue.
	at := due.AddDate(0, 0, 56)
	if st := e.EvaluateSeries(p, rs, "DTaP", nil, at); st.Status != StatusDueNow {
		t.Errorf("8 weeks past due: status = %s, want %s", st.Status, StatusDueNow)
	}
	if st := e.EvaluateSeries(p, rs, "DTaP", nil, at.AddDate(0, 0, 1)); st.Status != StatusOverdue {
		t.Errorf("8 weeks + 1 day past due: status = %s, want %s", st.Status, StatusOverdue)
	}
}

func TestEvaluateSeriesFuture(t *testing.T) {
	rs := childRuleSet(t)
	e := testEngine()
	dob := date(2024, time.January, 1)
	p := Profile{DateOfBirth: dob}

	now := dob.AddDate(0, 0, 20)
	st := e.EvaluateSeries(p, rs, "DTaP", nil, now)
	if st.Status != StatusFuture {
		t.Fatalf("status = %s, want %s", st.Status, StatusFuture)
	}
	want := dob.AddDate(0, 0, 42)
	if st.NextDue == nil || !st.NextDue.Equal(want) {
		t.Fatalf("next due = %v, want %v (no grace on scheduling)", st.NextDue, want)
	}
}

func TestEvaluateSeriesComplete(t *testing.T) {
	rs := childRuleSet(t)
	e := testEngine()
	dob := date(2018, time.January, 1)
	p := Profile{DateOfBirth: dob}
	history := []Dose{
		{ID: "a", Series: "MMR", Date: dob.AddDate(0, 13, 0)},
		{ID: "b", Series: "MMR", Date: dob.AddDate(0, 50, 0)},
	}
	st := e.EvaluateSeries(p, rs, "MMR", history, dob.AddDate(0, 60, 0))
	if st.Status != StatusComplete {
		t.Fatalf("status = %s, want %s (reason %q)", st.Status, StatusComplete, st.Reason)
	}
	if st.ValidDoses != 2 {
		t.Fatalf("valid doses = %d, want 2", st.ValidDoses)
	}
}

func TestEvaluateSeriesContraindications(t *testing.T) {
	rs := childRuleSet(t)
	e := testEngine()
	dob := date(2020, time.June, 1)
	now := dob.AddDate(4, 0, 0)

	cases := []struct {
		name      string
		condition Condition
		series    string
		want      Status
	}{
		{"immunocompromised MMR", ConditionImmunocompromised, "MMR", StatusContraindicated},
		{"immunocompromised rotavirus", ConditionImmunocompromised, "Rotavirus", StatusContraindicated},
		{"immunocompromised DTaP allowed", ConditionImmunocompromised, "DTaP", StatusDueNow},
		{"pregnancy MMR", ConditionPregnancy, "MMR", StatusContraindicated},
		{"pregnancy DTaP allowed", ConditionPregnancy, "DTaP", StatusDueNow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Profile{DateOfBirth: dob, Conditions: []Condition{tc.condition}}
			st := e.EvaluateSeries(p, rs, tc.series, nil, now)
			if tc.want == StatusContraindicated {
				if st.Status != StatusContraindicated {
					t.Fatalf("status = %s, want contraindicated", st.Status)
				}
				return
			}
			if st.Status == StatusContraindicated {
				t.Fatalf("series %s unexpectedly contraindicated: %s", tc.series, st.Reason)
			}
		})
	}
}

func TestEvaluateSeriesForeclosureAsymmetry(t *testing.T) {
	rs := childRuleSet(t)
	e := testEngine()
	dob := date(2023, time.January, 1)
	p := Profile{DateOfBirth: dob}

	// No valid doses, first rule's 15-week window passed: not indicated.
	now := dob.AddDate(0, 5, 0)
	st := e.EvaluateSeries(p, rs, "Rotavirus", nil, now)
	if st.Status != StatusContraindicated {
		t.Fatalf("unbegun foreclosed series: status = %s, want %s", st.Status, StatusContraindicated)
	}

	// One valid dose, dose 2's 8-month window passed: concluded, never overdue.
	history := []Dose{{ID: "a", Series: "Rotavirus", Date: dob.AddDate(0, 0, 70)}}
	st = e.EvaluateSeries(p, rs, "Rotavirus", history, dob.AddDate(0, 9, 0))
	if st.Status != StatusComplete {
		t.Fatalf("begun foreclosed series: status = %s, want %s (reason %q)", st.Status, StatusComplete, st.Reason)
	}
	if st.ValidDoses != 1 {
		t.Fatalf("valid doses = %d, want 1", st.ValidDoses)
	}
}

func TestEvaluateSeriesReasonMentionsDroppedDoses(t *testing.T) {
	rs := childRuleSet(t)
	e := testEngine()
	dob := date(2024, time.January, 1)
	p := Profile{DateOfBirth: dob}

	// One dose given far too early: invalid, so dose 1 is still pending
	// and the reason carries a warning about the dropped dose.
	history := []Dose{{ID: "bad", Series: "DTaP", Date: dob.AddDate(0, 0, 10)}}
	st := e.EvaluateSeries(p, rs, "DTaP", history, dob.AddDate(0, 0, 49))
	if st.ValidDoses != 0 {
		t.Fatalf("valid doses = %d, want 0", st.ValidDoses)
	}
	if !strings.Contains(st.Reason, "1 invalid dose") {
		t.Errorf("reason %q does not mention the dropped dose", st.Reason)
	}
	if !strings.Contains(st.Reason, "dose 1") {
		t.Errorf("reason %q does not name the pending dose", st.Reason)
	}
}

func TestEvaluateSeriesIntervalFloorsCombine(t *testing.T) {
	rs := mustRuleSet(t, map[string][]DoseRule{
		"HepB": {
			{Series: "HepB", DoseNumber: 1},
			{Series: "HepB", DoseNumber: 2, MinInterval: offp(Weeks(4))},
			{Series: "HepB", DoseNumber: 3, MinAge: offp(Weeks(24)), MinInterval: offp(Weeks(8)), MinIntervalFromFirst: offp(Weeks(16))},
		},
	})
	e := testEngine()
	dob := date(2024, time.January, 1)
	p := Profile{DateOfBirth: dob}
	history := []Dose{
		{ID: "a", Series: "HepB", Date: dob},
		{ID: "b", Series: "HepB", Date: dob.AddDate(0, 0, 28)},
	}
	now := dob.AddDate(0, 0, 60)
	st := e.EvaluateSeries(p, rs, "HepB", history, now)
	if st.Status != StatusFuture {
		t.Fatalf("status = %s, want %s", st.Status, StatusFuture)
	}
	// Floors: min age 24w (day 168), 8w from dose 2 (day 84), 16w from
	// dose 1 (day 112). The max wins.
	want := dob.AddDate(0, 0, 168)
	if !st.NextDue.Equal(want) {
		t.Fatalf("next due = %v, want %v", st.NextDue, want)
	}
}
