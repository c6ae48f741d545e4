package enums

import "fmt"

// RenewalState is the lifecycle state of an auto-renewable subscription.
type RenewalState string

const (
	RenewalStateSubscribed           RenewalState = "subscribed"
	RenewalStateExpired              RenewalState = "expired"
	RenewalStateRevoked              RenewalState = "revoked"
	RenewalStateInGracePeriod        RenewalState = "inGracePeriod"
	RenewalStateInBillingRetryPeriod RenewalState = "inBillingRetryPeriod"
	RenewalStateUnknown              RenewalState = "unknown"
)

var validRenewalStates = []RenewalState{
	RenewalStateSubscribed,
	RenewalStateExpired,
	RenewalStateRevoked,
	RenewalStateInGracePeriod,
	RenewalStateInBillingRetryPeriod,
	RenewalStateUnknown,
}

// String implements fmt.Stringer.
func (r RenewalState) String() string {
	return string(r)
}

// IsValid reports whether the value is known.
func (r RenewalState) IsValid() bool {
	for _, candidate := range validRenewalStates {
		if candidate == r {
			return true
		}
	}
	return false
}

// Token returns the wire token, collapsing unmapped values to "unknown".
func (r RenewalState) Token() string {
	switch r {
	case RenewalStateSubscribed, RenewalStateExpired, RenewalStateRevoked,
		RenewalStateInGracePeriod, RenewalStateInBillingRetryPeriod:
		return string(r)
	default:
		return string(RenewalStateUnknown)
	}
}

// ParseRenewalState converts raw input into a RenewalState.
func ParseRenewalState(value string) (RenewalState, error) {
	for _, candidate := range validRenewalStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid renewal state %q", value)
}
