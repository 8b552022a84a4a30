package engine

// Condition is a closed clinical condition tag. Free-text tags are not
// accepted by the engine: contraindication logic keys on these
// constants so a typo cannot silently disable a safety check.
type Condition string

const (
	ConditionImmunocompromised Condition = "Immunocompromised"
	ConditionPregnancy         Condition = "Pregnancy"
	ConditionPrematurity       Condition = "Prematurity"
	ConditionChronicIllness    Condition = "ChronicIllness"
	ConditionEggAllergy        Condition = "EggAllergy"
)

var knownConditions = map[Condition]bool{
	ConditionImmunocompromised: true,
	ConditionPregnancy:         true,
	ConditionPrematurity:       true,
	ConditionChronicIllness:    true,
	ConditionEggAllergy:        true,
}

// KnownCondition reports whether the tag is part of the closed set.
func KnownCondition(c Condition) bool { return knownConditions[c] }

// Live-attenuated vaccine series. Subject to the 28-day cross-series
// spacing rule and contraindicated in pregnancy.
var liveVaccineSeries = map[string]bool{
	"MMR":       true,
	"Varicella": true,
	"LAIV":      true,
	"Zoster":    true,
}

// Series contraindicated for immunocompromised patients.
var immunocompromisedSeries = map[string]bool{
	"MMR":       true,
	"Varicella": true,
	"Rotavirus": true,
	"LAIV":      true,
}

// IsLiveVaccine reports whether the series uses a live attenuated
// pathogen.
func IsLiveVaccine(series string) bool { return liveVaccineSeries[series] }

// contraindication returns the hard-stop reason for the series given
// the profile, if any. Checked independently of all dose math.
func contraindication(p Profile, series string) (string, bool) {
	if p.HasCondition(ConditionImmunocompromised) && immunocompromisedSeries[series] {
		return "contraindicated for immunocompromised patients", true
	}
	if p.HasCondition(ConditionPregnancy) && IsLiveVaccine(series) {
		return "live vaccine contraindicated during pregnancy", true
	}
	return "", false
}
