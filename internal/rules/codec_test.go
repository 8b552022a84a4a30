package rules

import (
	"errors"
	"testing"
	"time"

	"github.com/vaxcast/vaxcast/internal/engine"
)

func TestDecode_Minimal(t *testing.T) {
	doc := []byte(`{
		"Polio": [
			{"seriesName": "Polio", "doseNumber": 1, "minAgeWeeks": 6},
			{"seriesName": "Polio", "doseNumber": 2, "minIntervalWeeks": 4}
		]
	}`)

	rs, err := Decode(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rules := rs.Rules("Polio")
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	if rules[0].MinAge == nil || rules[0].MinAge.Count != 6 || rules[0].MinAge.Unit != engine.UnitWeeks {
		t.Errorf("dose 1 minAge not decoded: %+v", rules[0].MinAge)
	}
	if rules[1].MinInterval == nil || rules[1].MinInterval.Count != 4 {
		t.Errorf("dose 2 minInterval not decoded: %+v", rules[1].MinInterval)
	}
}

func TestDecode_MonthsUnit(t *testing.T) {
	doc := []byte(`{
		"MMR": [
			{"seriesName": "MMR", "doseNumber": 1, "minAgeMonths": 12, "maxAgeMonths": 216}
		]
	}`)

	rs, err := Decode(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := rs.Rules("MMR")[0]
	if r.MinAge.Unit != engine.UnitMonths || r.MinAge.Count != 12 {
		t.Errorf("expected 12-month minAge, got %+v", r.MinAge)
	}
	if r.MaxAge.Unit != engine.UnitMonths || r.MaxAge.Count != 216 {
		t.Errorf("expected 216-month maxAge, got %+v", r.MaxAge)
	}
}

func TestDecode_WeeksTakePrecedenceOverMonths(t *testing.T) {
	doc := []byte(`{
		"X": [{"seriesName": "X", "doseNumber": 1, "minAgeWeeks": 6, "minAgeMonths": 2}]
	}`)

	rs, err := Decode(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := rs.Rules("X")[0]
	if r.MinAge.Unit != engine.UnitWeeks || r.MinAge.Count != 6 {
		t.Errorf("expected weeks to win, got %+v", r.MinAge)
	}
}

func TestDecode_ShapeErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"top level array", `[1,2,3]`},
		{"series value not array", `{"DTaP": {"doseNumber": 1}}`},
		{"element not object", `{"DTaP": [42]}`},
		{"missing doseNumber", `{"DTaP": [{"seriesName": "DTaP"}]}`},
		{"missing seriesName", `{"DTaP": [{"doseNumber": 1}]}`},
		{"doseNumber wrong type", `{"DTaP": [{"seriesName": "DTaP", "doseNumber": "one"}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode([]byte(tc.doc)); err == nil {
				t.Error("expected decode error")
			}
		})
	}
}

func TestDecode_ParseErrorNamesSeries(t *testing.T) {
	_, err := Decode([]byte(`{"Hib": [{"seriesName": "Hib"}]}`))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %T", err)
	}
	if pe.Series != "Hib" || pe.Index != 0 {
		t.Errorf("expected series Hib element 0, got %q element %d", pe.Series, pe.Index)
	}
}

func TestDecode_EngineInvariantsEnforced(t *testing.T) {
	// Dose numbers skip 2: decodes at the wire level but the set itself
	// is rejected.
	doc := []byte(`{
		"DTaP": [
			{"seriesName": "DTaP", "doseNumber": 1},
			{"seriesName": "DTaP", "doseNumber": 3}
		]
	}`)

	_, err := Decode(doc)
	var re *engine.RuleError
	if !errors.As(err, &re) {
		t.Fatalf("expected RuleError, got %v", err)
	}
	if re.Series != "DTaP" {
		t.Errorf("expected series DTaP in error, got %q", re.Series)
	}
}

func TestEncode_RoundTripEvaluatesIdentically(t *testing.T) {
	original := Default()

	doc, err := Encode(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(doc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	// Same catalogue must yield the same evaluation for a sample child.
	eng := engine.New(engine.DefaultOptions())
	profile := engine.Profile{DateOfBirth: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	history := []engine.Dose{
		{ID: "d1", Series: "DTaP", Date: time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)},
		{ID: "d2", Series: "HepB", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	a := eng.Evaluate(profile, original, history, now)
	b := eng.Evaluate(profile, decoded, history, now)

	if len(a.Statuses) != len(b.Statuses) {
		t.Fatalf("status count differs: %d vs %d", len(a.Statuses), len(b.Statuses))
	}
	for i := range a.Statuses {
		if a.Statuses[i].Series != b.Statuses[i].Series ||
			a.Statuses[i].Status != b.Statuses[i].Status ||
			a.Statuses[i].ValidDoses != b.Statuses[i].ValidDoses {
			t.Errorf("status %d differs: %+v vs %+v", i, a.Statuses[i], b.Statuses[i])
		}
	}
	if len(a.Forecast) != len(b.Forecast) {
		t.Fatalf("forecast length differs: %d vs %d", len(a.Forecast), len(b.Forecast))
	}
	for i := range a.Forecast {
		if a.Forecast[i] != b.Forecast[i] {
			t.Errorf("forecast %d differs: %+v vs %+v", i, a.Forecast[i], b.Forecast[i])
		}
	}
}

func TestSeriesNames(t *testing.T) {
	doc := []byte(`{"Zoster": [], "DTaP": []}`)
	names := SeriesNames(doc)
	if len(names) != 2 || names[0] != "DTaP" || names[1] != "Zoster" {
		t.Errorf("expected sorted [DTaP Zoster], got %v", names)
	}
}

func TestDefault_IsValid(t *testing.T) {
	rs := Default()
	if len(rs.SeriesCodes()) == 0 {
		t.Fatal("expected builtin catalogue to contain series")
	}
	for _, code := range rs.SeriesCodes() {
		if len(rs.Rules(code)) == 0 {
			t.Errorf("series %s has no rules", code)
		}
	}
}

func TestProvider_Swap(t *testing.T) {
	p := NewProvider(Default(), "builtin")

	rs, version := p.Active()
	if version != "builtin" || rs == nil {
		t.Fatalf("unexpected initial state: %v %q", rs, version)
	}

	next, err := Decode([]byte(`{"Polio": [{"seriesName": "Polio", "doseNumber": 1}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	p.Swap(next, "imported/v1")

	rs, version = p.Active()
	if version != "imported/v1" {
		t.Errorf("expected swapped version, got %q", version)
	}
	if got := rs.SeriesCodes(); len(got) != 1 || got[0] != "Polio" {
		t.Errorf("expected swapped catalogue, got %v", got)
	}
}
