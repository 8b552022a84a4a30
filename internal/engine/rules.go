package engine

import (
	"fmt"
	"sort"
)

// DoseRule is the eligibility rule for one dose position in a series.
// Age and interval fields are nil when the rule imposes no such
// constraint. MinInterval counts from the previous valid dose,
// MinIntervalFromFirst from the first valid dose of the series.
type DoseRule struct {
	Series               string
	DoseNumber           int
	MinAge               *Offset
	MaxAge               *Offset
	MinInterval          *Offset
	MinIntervalFromFirst *Offset
	// Recurring marks the terminal rule as a template for every dose
	// beyond the defined schedule (annual influenza, decade Td boosters).
	Recurring bool
}

// RuleError reports a rule-set invariant violation, naming the
// offending series and rule index.
type RuleError struct {
	Series string
	Index  int
	Msg    string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("series %q, rule %d: %s", e.Series, e.Index, e.Msg)
}

// RuleSet is an immutable catalogue mapping series codes to ordered
// dose rules. Construct via NewRuleSet; a constructed set is safe for
// concurrent readers.
type RuleSet struct {
	series map[string][]DoseRule
	codes  []string
}

// NewRuleSet validates and builds a rule set. Dose numbers must be
// contiguous starting at 1 and only the last rule of a series may be
// marked recurring; violations are rejected rather than tolerated.
func NewRuleSet(rules map[string][]DoseRule) (*RuleSet, error) {
	set := make(map[string][]DoseRule, len(rules))
	codes := make([]string, 0, len(rules))
	for code, list := range rules {
		if code == "" {
			return nil, &RuleError{Series: code, Index: 0, Msg: "empty series code"}
		}
		if len(list) == 0 {
			return nil, &RuleError{Series: code, Index: 0, Msg: "series has no rules"}
		}
		for i, r := range list {
			if r.Series != code {
				return nil, &RuleError{Series: code, Index: i, Msg: fmt.Sprintf("rule series %q does not match key", r.Series)}
			}
			if r.DoseNumber != i+1 {
				return nil, &RuleError{Series: code, Index: i, Msg: fmt.Sprintf("dose number %d out of sequence, want %d", r.DoseNumber, i+1)}
			}
			if r.Recurring && i != len(list)-1 {
				return nil, &RuleError{Series: code, Index: i, Msg: "recurring flag on a non-terminal rule"}
			}
		}
		set[code] = append([]DoseRule(nil), list...)
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return &RuleSet{series: set, codes: codes}, nil
}

// SeriesCodes returns all series codes in sorted order.
func (rs *RuleSet) SeriesCodes() []string {
	return append([]string(nil), rs.codes...)
}

// Rules returns the defined rules for a series, or nil for an unknown
// series.
func (rs *RuleSet) Rules(series string) []DoseRule {
	return rs.series[series]
}

// Len returns the number of defined rules for a series.
func (rs *RuleSet) Len(series string) int {
	return len(rs.series[series])
}

// RuleFor resolves the rule governing the given dose number. Positions
// beyond the defined schedule resolve to a synthetic copy of the
// terminal rule when that rule is recurring; otherwise resolution
// fails and the dose position has no requirement.
func (rs *RuleSet) RuleFor(series string, doseNumber int) (DoseRule, bool) {
	list := rs.series[series]
	if len(list) == 0 || doseNumber < 1 {
		return DoseRule{}, false
	}
	if doseNumber <= len(list) {
		return list[doseNumber-1], true
	}
	last := list[len(list)-1]
	if !last.Recurring {
		return DoseRule{}, false
	}
	synth := last
	synth.DoseNumber = doseNumber
	return synth, true
}
