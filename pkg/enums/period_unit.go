package enums

import "fmt"

// PeriodUnit is the unit of a subscription renewal period.
type PeriodUnit string

const (
	PeriodUnitDay     PeriodUnit = "day"
	PeriodUnitWeek    PeriodUnit = "week"
	PeriodUnitMonth   PeriodUnit = "month"
	PeriodUnitYear    PeriodUnit = "year"
	PeriodUnitUnknown PeriodUnit = "unknown"
)

var validPeriodUnits = []PeriodUnit{
	PeriodUnitDay,
	PeriodUnitWeek,
	PeriodUnitMonth,
	PeriodUnitYear,
	PeriodUnitUnknown,
}

// String implements fmt.Stringer.
func (p PeriodUnit) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p PeriodUnit) IsValid() bool {
	for _, candidate := range validPeriodUnits {
		if candidate == p {
			return true
		}
	}
	return false
}

// Token returns the wire token, collapsing unmapped values to "unknown".
func (p PeriodUnit) Token() string {
	switch p {
	case PeriodUnitDay, PeriodUnitWeek, PeriodUnitMonth, PeriodUnitYear:
		return string(p)
	default:
		return string(PeriodUnitUnknown)
	}
}

// ParsePeriodUnit converts raw input into a PeriodUnit.
func ParsePeriodUnit(value string) (PeriodUnit, error) {
	for _, candidate := range validPeriodUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid period unit %q", value)
}
