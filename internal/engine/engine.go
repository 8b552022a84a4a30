// Package engine implements the deterministic immunization-schedule
// evaluation core: dose validation, series classification, multi-year
// forecasting, and visit grouping. The engine is pure — no I/O, no
// clock, no shared mutable state — so a fixed (profile, history,
// rule set, now) input always reproduces the same output, and the same
// Engine may be called from any number of goroutines.
package engine

// Options collects the engine's clinical tuning constants. Every value
// has a conventional default; zero values are replaced by New.
type Options struct {
	// GraceDays relaxes minimum-age and minimum-interval floors when
	// judging whether a historical dose counts. Never applied to
	// forward-looking due dates or maximum-age ceilings.
	GraceDays int
	// OverdueAfterWeeks separates DueNow from Overdue once a due date
	// has passed.
	OverdueAfterWeeks int
	// VisitWindowDays is the grouping threshold for appointment
	// clustering.
	VisitWindowDays int
	// MaxForecastPerSeries caps the per-series simulation loop so a
	// malformed recurring rule cannot run unbounded.
	MaxForecastPerSeries int
	// HorizonMonths bounds how far into the future doses are forecast.
	HorizonMonths int
}

// DefaultOptions returns the standard clinical constants.
func DefaultOptions() Options {
	return Options{
		GraceDays:            4,
		OverdueAfterWeeks:    8,
		VisitWindowDays:      7,
		MaxForecastPerSeries: 5,
		HorizonMonths:        36,
	}
}

// Engine evaluates immunization schedules against a rule set.
type Engine struct {
	opt Options
}

// New builds an engine, filling unset options with defaults.
func New(opt Options) *Engine {
	def := DefaultOptions()
	if opt.GraceDays <= 0 {
		opt.GraceDays = def.GraceDays
	}
	if opt.OverdueAfterWeeks <= 0 {
		opt.OverdueAfterWeeks = def.OverdueAfterWeeks
	}
	if opt.VisitWindowDays <= 0 {
		opt.VisitWindowDays = def.VisitWindowDays
	}
	if opt.MaxForecastPerSeries <= 0 {
		opt.MaxForecastPerSeries = def.MaxForecastPerSeries
	}
	if opt.HorizonMonths <= 0 {
		opt.HorizonMonths = def.HorizonMonths
	}
	return &Engine{opt: opt}
}

// Options returns the engine's effective options.
func (e *Engine) Options() Options { return e.opt }
