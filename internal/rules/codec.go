package rules

import (
	"fmt"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/vaxcast/vaxcast/internal/engine"
)

// ParseError reports a malformed rule document, naming the offending
// series and element index. Index -1 means the series value itself was
// the problem.
type ParseError struct {
	Series string
	Index  int
	Msg    string
}

func (e *ParseError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("series %q: %s", e.Series, e.Msg)
	}
	return fmt.Sprintf("series %q, element %d: %s", e.Series, e.Index, e.Msg)
}

// wireRule is the exchange representation of one dose rule. Optional
// numeric fields are pointers so absence survives a round trip.
type wireRule struct {
	SeriesName                string `json:"seriesName"`
	DoseNumber                int    `json:"doseNumber"`
	MinAgeWeeks               *int   `json:"minAgeWeeks,omitempty"`
	MinAgeMonths              *int   `json:"minAgeMonths,omitempty"`
	MaxAgeWeeks               *int   `json:"maxAgeWeeks,omitempty"`
	MaxAgeMonths              *int   `json:"maxAgeMonths,omitempty"`
	MinIntervalWeeks          *int   `json:"minIntervalWeeks,omitempty"`
	MinIntervalWeeksFromDose1 *int   `json:"minIntervalWeeksFromDose1,omitempty"`
	IsRecurring               bool   `json:"isRecurring,omitempty"`
}

// toRule converts a wire rule. Week counts take precedence over month
// counts when both are present on the same bound.
func (w wireRule) toRule() engine.DoseRule {
	r := engine.DoseRule{
		Series:     w.SeriesName,
		DoseNumber: w.DoseNumber,
		Recurring:  w.IsRecurring,
	}
	r.MinAge = pickOffset(w.MinAgeWeeks, w.MinAgeMonths)
	r.MaxAge = pickOffset(w.MaxAgeWeeks, w.MaxAgeMonths)
	if w.MinIntervalWeeks != nil {
		o := engine.Weeks(*w.MinIntervalWeeks)
		r.MinInterval = &o
	}
	if w.MinIntervalWeeksFromDose1 != nil {
		o := engine.Weeks(*w.MinIntervalWeeksFromDose1)
		r.MinIntervalFromFirst = &o
	}
	return r
}

func pickOffset(weeks, months *int) *engine.Offset {
	if weeks != nil {
		o := engine.Weeks(*weeks)
		return &o
	}
	if months != nil {
		o := engine.Months(*months)
		return &o
	}
	return nil
}

// Decode parses and validates a rule document in the exchange format:
// a JSON object keyed by series code, each value an array of rule
// objects. Shape violations return a ParseError; engine invariant
// violations (dose-number gaps, misplaced recurring flags) return the
// engine's RuleError. A failed decode never produces a partial set.
func Decode(data []byte) (*engine.RuleSet, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("rule document must be a JSON object keyed by series code: %w", err)
	}

	out := make(map[string][]engine.DoseRule, len(top))
	for series, raw := range top {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, &ParseError{Series: series, Index: -1, Msg: "value must be an array of rule objects"}
		}
		for i, item := range items {
			var probe map[string]interface{}
			if err := json.Unmarshal(item, &probe); err != nil {
				return nil, &ParseError{Series: series, Index: i, Msg: "element must be an object"}
			}
			if _, ok := probe["seriesName"].(string); !ok {
				return nil, &ParseError{Series: series, Index: i, Msg: "seriesName must be a string"}
			}
			if _, ok := probe["doseNumber"].(float64); !ok {
				return nil, &ParseError{Series: series, Index: i, Msg: "doseNumber must be a number"}
			}
			var w wireRule
			if err := json.Unmarshal(item, &w); err != nil {
				return nil, &ParseError{Series: series, Index: i, Msg: fmt.Sprintf("invalid rule fields: %v", err)}
			}
			out[series] = append(out[series], w.toRule())
		}
	}
	return engine.NewRuleSet(out)
}

// Encode renders a rule set back into the exchange format. Decoding
// the output reproduces a set that evaluates identically.
func Encode(rs *engine.RuleSet) ([]byte, error) {
	doc := make(map[string][]wireRule, len(rs.SeriesCodes()))
	for _, series := range rs.SeriesCodes() {
		list := rs.Rules(series)
		wires := make([]wireRule, 0, len(list))
		for _, r := range list {
			wires = append(wires, fromRule(r))
		}
		doc[series] = wires
	}
	return json.Marshal(doc)
}

func fromRule(r engine.DoseRule) wireRule {
	w := wireRule{
		SeriesName:  r.Series,
		DoseNumber:  r.DoseNumber,
		IsRecurring: r.Recurring,
	}
	w.MinAgeWeeks, w.MinAgeMonths = splitOffset(r.MinAge)
	w.MaxAgeWeeks, w.MaxAgeMonths = splitOffset(r.MaxAge)
	if r.MinInterval != nil {
		n := r.MinInterval.Count
		w.MinIntervalWeeks = &n
	}
	if r.MinIntervalFromFirst != nil {
		n := r.MinIntervalFromFirst.Count
		w.MinIntervalWeeksFromDose1 = &n
	}
	return w
}

func splitOffset(o *engine.Offset) (weeks, months *int) {
	if o == nil {
		return nil, nil
	}
	n := o.Count
	if o.Unit == engine.UnitWeeks {
		return &n, nil
	}
	return nil, &n
}

// SeriesNames lists a document's series codes without a full decode,
// for logging import summaries.
func SeriesNames(data []byte) []string {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil
	}
	names := make([]string, 0, len(top))
	for k := range top {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
