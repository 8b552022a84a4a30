package rules

import "github.com/vaxcast/vaxcast/internal/engine"

func weeks(n int) *engine.Offset {
	o := engine.Weeks(n)
	return &o
}

func months(n int) *engine.Offset {
	o := engine.Months(n)
	return &o
}

// Default returns the built-in catalogue, a routine childhood and
// adult schedule. It is validated by construction; the service can
// evaluate with it before any rule set has been imported.
func Default() *engine.RuleSet {
	rs, err := engine.NewRuleSet(map[string][]engine.DoseRule{
		"DTaP": {
			{Series: "DTaP", DoseNumber: 1, MinAge: weeks(6)},
			{Series: "DTaP", DoseNumber: 2, MinAge: weeks(10), MinInterval: weeks(4)},
			{Series: "DTaP", DoseNumber: 3, MinAge: weeks(14), MinInterval: weeks(4)},
			{Series: "DTaP", DoseNumber: 4, MinAge: months(15), MinInterval: weeks(26)},
			{Series: "DTaP", DoseNumber: 5, MinAge: months(48), MinInterval: weeks(26)},
		},
		"IPV": {
			{Series: "IPV", DoseNumber: 1, MinAge: weeks(6)},
			{Series: "IPV", DoseNumber: 2, MinAge: weeks(10), MinInterval: weeks(4)},
			{Series: "IPV", DoseNumber: 3, MinAge: months(6), MinInterval: weeks(4)},
			{Series: "IPV", DoseNumber: 4, MinAge: months(48), MinInterval: weeks(26)},
		},
		"HepB": {
			{Series: "HepB", DoseNumber: 1},
			{Series: "HepB", DoseNumber: 2, MinAge: weeks(4), MinInterval: weeks(4)},
			{Series: "HepB", DoseNumber: 3, MinAge: months(6), MinInterval: weeks(8), MinIntervalFromFirst: weeks(16)},
		},
		"Hib": {
			{Series: "Hib", DoseNumber: 1, MinAge: weeks(6)},
			{Series: "Hib", DoseNumber: 2, MinAge: weeks(10), MinInterval: weeks(4)},
			{Series: "Hib", DoseNumber: 3, MinAge: weeks(14), MinInterval: weeks(4)},
			{Series: "Hib", DoseNumber: 4, MinAge: months(12), MinInterval: weeks(8), MaxAge: months(60)},
		},
		"MMR": {
			{Series: "MMR", DoseNumber: 1, MinAge: months(12)},
			{Series: "MMR", DoseNumber: 2, MinAge: months(48), MinInterval: weeks(4)},
		},
		"Varicella": {
			{Series: "Varicella", DoseNumber: 1, MinAge: months(12)},
			{Series: "Varicella", DoseNumber: 2, MinAge: months(48), MinInterval: weeks(12)},
		},
		"Rotavirus": {
			{Series: "Rotavirus", DoseNumber: 1, MinAge: weeks(6), MaxAge: weeks(15)},
			{Series: "Rotavirus", DoseNumber: 2, MinInterval: weeks(4), MaxAge: months(8)},
			{Series: "Rotavirus", DoseNumber: 3, MinInterval: weeks(4), MaxAge: months(8)},
		},
		"Influenza": {
			{Series: "Influenza", DoseNumber: 1, MinAge: months(6), MinInterval: weeks(52), Recurring: true},
		},
		"Td": {
			{Series: "Td", DoseNumber: 1, MinAge: months(132)},
			{Series: "Td", DoseNumber: 2, MinInterval: weeks(520), Recurring: true},
		},
		"Zoster": {
			{Series: "Zoster", DoseNumber: 1, MinAge: months(600)},
			{Series: "Zoster", DoseNumber: 2, MinInterval: weeks(8)},
		},
	})
	if err != nil {
		panic("builtin rule catalogue invalid: " + err.Error())
	}
	return rs
}
