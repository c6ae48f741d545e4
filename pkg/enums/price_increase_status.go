package enums

import "fmt"

// PriceIncreaseStatus tracks customer consent to a subscription price increase.
type PriceIncreaseStatus string

const (
	PriceIncreaseStatusNonePending PriceIncreaseStatus = "noIncreasePending"
	PriceIncreaseStatusPending     PriceIncreaseStatus = "pending"
	PriceIncreaseStatusAgreed      PriceIncreaseStatus = "agreed"
)

var validPriceIncreaseStatuses = []PriceIncreaseStatus{
	PriceIncreaseStatusNonePending,
	PriceIncreaseStatusPending,
	PriceIncreaseStatusAgreed,
}

// String implements fmt.Stringer.
func (p PriceIncreaseStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p PriceIncreaseStatus) IsValid() bool {
	for _, candidate := range validPriceIncreaseStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// Token returns the wire token, collapsing unmapped values to the empty
// string. The host treats "" as "no usable status".
func (p PriceIncreaseStatus) Token() string {
	switch p {
	case PriceIncreaseStatusNonePending, PriceIncreaseStatusPending, PriceIncreaseStatusAgreed:
		return string(p)
	default:
		return ""
	}
}

// ParsePriceIncreaseStatus converts raw input into a PriceIncreaseStatus.
func ParsePriceIncreaseStatus(value string) (PriceIncreaseStatus, error) {
	for _, candidate := range validPriceIncreaseStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price increase status %q", value)
}
