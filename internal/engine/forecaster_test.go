package engine

import (
	"testing"
	"time"
)

func TestForecastSeriesChainsIntervals(t *testing.T) {
	rs := childRuleSet(t)
	e := testEngine()
	dob := date(2024, time.June, 1)
	p := Profile{DateOfBirth: dob}

	// Newborn, nothing administered: all three DTaP doses project into
	// the future at their age floors and chained intervals.
	now := dob.AddDate(0, 0, 7)
	fc := e.ForecastSeries(p, rs, "DTaP", nil, now)
	if len(fc) != 3 {
		t.Fatalf("got %d forecast doses, want 3: %+v", len(fc), fc)
	}
	wantDates := []time.Time{
		dob.AddDate(0, 0, 42), // dose 1 at 6 weeks
		dob.AddDate(0, 0, 70), // dose 2 at 10 weeks (age floor governs)
		dob.AddDate(0, 0, 98), // dose 3 at 14 weeks
	}
	for i, want := range wantDates {
		if !fc[i].Due.Equal(want) {
			t.Errorf("dose %d due %v, want %v", i+1, fc[i].Due, want)
		}
		if fc[i].DoseNumber != i+1 {
			t.Errorf("dose number = %d, want %d", fc[i].DoseNumber, i+1)
		}
	}
}

func TestForecastFirstIterationSuppressedWhenDue(t *testing.T) {
	rs := childRuleSet(t)
	e := testEngine()
	dob := date(2024, time.January, 1)
	p := Profile{DateOfBirth: dob}

	// Dose 1 already due: it is the series' next-due, not a forecast
	// item, so the forecast starts at dose 2.
	now := dob.AddDate(0, 0, 49)
	fc := e.ForecastSeries(p, rs, "DTaP", nil, now)
	if len(fc) != 2 {
		t.Fatalf("got %d forecast doses, want 2: %+v", len(fc), fc)
	}
	if fc[0].DoseNumber != 2 {
		t.Fatalf("first forecast dose = %d, want 2", fc[0].DoseNumber)
	}
	// Dose 1 simulated today; dose 2 follows the 4-week interval since
	// the 10-week age floor (day 70) is earlier than day 49+28.
	want := now.AddDate(0, 0, 28)
	if !fc[0].Due.Equal(want) {
		t.Fatalf("dose 2 due %v, want %v", fc[0].Due, want)
	}
}

func TestForecastRespectsHorizon(t *testing.T) {
	rs := childRuleSet(t)
	e := New(Options{HorizonMonths: 6})
	dob := date(2024, time.June, 1)
	p := Profile{DateOfBirth: dob}

	// MMR dose 1 is due at 12 months, beyond a 6-month horizon.
	fc := e.ForecastSeries(p, rs, "MMR", nil, dob.AddDate(0, 0, 7))
	if len(fc) != 0 {
		t.Fatalf("got %d forecast doses beyond horizon, want 0: %+v", len(fc), fc)
	}
}

func TestForecastRecurringCappedAtIterationLimit(t *testing.T) {
	rs := mustRuleSet(t, map[string][]DoseRule{
		"Influenza": {{Series: "Influenza", DoseNumber: 1, MinAge: offp(Months(6)), MinInterval: offp(Weeks(52)), Recurring: true}},
	})
	e := New(Options{HorizonMonths: 120})
	dob := date(2000, time.January, 1)
	p := Profile{DateOfBirth: dob}

	fc := e.ForecastSeries(p, rs, "Influenza", nil, dob.AddDate(25, 0, 0))
	// First iteration is due-now (suppressed); the cap bounds the rest.
	if len(fc) != e.Options().MaxForecastPerSeries-1 {
		t.Fatalf("got %d forecast doses, want %d", len(fc), e.Options().MaxForecastPerSeries-1)
	}
	for i := 1; i < len(fc); i++ {
		gap := daysBetween(fc[i-1].Due, fc[i].Due)
		if gap != 52*7 {
			t.Errorf("gap between boosters %d and %d = %d days, want %d", i, i+1, gap, 52*7)
		}
	}
}

func TestForecastStopsForContraindicatedSeries(t *testing.T) {
	rs := childRuleSet(t)
	e := testEngine()
	dob := date(2023, time.January, 1)
	p := Profile{DateOfBirth: dob, Conditions: []Condition{ConditionImmunocompromised}}
	if fc := e.ForecastSeries(p, rs, "MMR", nil, dob.AddDate(2, 0, 0)); len(fc) != 0 {
		t.Fatalf("contraindicated series forecast %d doses, want 0", len(fc))
	}
}

func TestForecastStopsWhenSimulatedDoseBlocked(t *testing.T) {
	rs := mustRuleSet(t, map[string][]DoseRule{
		"MMR": {{Series: "MMR", DoseNumber: 1, MinAge: offp(Months(12))}},
		"Varicella": {
			{Series: "Varicella", DoseNumber: 1, MinAge: offp(Months(12))},
			{Series: "Varicella", DoseNumber: 2, MinAge: offp(Months(48)), MinInterval: offp(Weeks(12))},
		},
	})
	e := testEngine()
	dob := date(2023, time.January, 1)
	p := Profile{DateOfBirth: dob}
	now := date(2024, time.June, 1)

	// A real MMR administration 12 days ago blocks any simulated
	// varicella dose dated today, so the simulation can never advance:
	// the loop must stop rather than repeat the same requirement.
	history := []Dose{{ID: "mmr1", Series: "MMR", Date: now.AddDate(0, 0, -12)}}

	fc := e.ForecastSeries(p, rs, "Varicella", history, now)
	if len(fc) != 0 {
		t.Fatalf("stalled simulation emitted %d forecast doses, want 0: %+v", len(fc), fc)
	}
}

func TestEvaluateCoversAllSeries(t *testing.T) {
	rs := childRuleSet(t)
	e := testEngine()
	dob := date(2024, time.January, 1)
	p := Profile{DateOfBirth: dob}

	ev := e.Evaluate(p, rs, nil, dob.AddDate(0, 0, 7))
	if len(ev.Statuses) != 3 {
		t.Fatalf("got %d statuses, want one per series (3)", len(ev.Statuses))
	}
	for i := 1; i < len(ev.Statuses); i++ {
		if ev.Statuses[i-1].Series >= ev.Statuses[i].Series {
			t.Fatalf("statuses not sorted by series: %s before %s", ev.Statuses[i-1].Series, ev.Statuses[i].Series)
		}
	}
	for i := 1; i < len(ev.Forecast); i++ {
		if ev.Forecast[i].Due.Before(ev.Forecast[i-1].Due) {
			t.Fatalf("forecast not date-ordered at %d", i)
		}
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	rs := childRuleSet(t)
	e := testEngine()
	dob := date(2024, time.February, 15)
	p := Profile{DateOfBirth: dob}
	history := []Dose{{ID: "a", Series: "DTaP", Date: dob.AddDate(0, 0, 42)}}
	now := dob.AddDate(0, 6, 0)

	first := e.Evaluate(p, rs, history, now)
	second := e.Evaluate(p, rs, history, now)
	if len(first.Statuses) != len(second.Statuses) || len(first.Forecast) != len(second.Forecast) || len(first.Visits) != len(second.Visits) {
		t.Fatal("repeated evaluation differs in shape")
	}
	for i := range first.Forecast {
		if first.Forecast[i] != second.Forecast[i] {
			t.Fatalf("forecast[%d] differs: %+v vs %+v", i, first.Forecast[i], second.Forecast[i])
		}
	}
}
