package enums

import "fmt"

// ExpirationReason explains why an auto-renewable subscription expired.
type ExpirationReason string

const (
	ExpirationReasonAutoRenewDisabled            ExpirationReason = "autoRenewDisabled"
	ExpirationReasonBillingError                 ExpirationReason = "billingError"
	ExpirationReasonDidNotConsentToPriceIncrease ExpirationReason = "didNotConsentToPriceIncrease"
	ExpirationReasonProductUnavailable           ExpirationReason = "productUnavailable"
	ExpirationReasonUnknown                      ExpirationReason = "unknown"
)

var validExpirationReasons = []ExpirationReason{
	ExpirationReasonAutoRenewDisabled,
	ExpirationReasonBillingError,
	ExpirationReasonDidNotConsentToPriceIncrease,
	ExpirationReasonProductUnavailable,
	ExpirationReasonUnknown,
}

// String implements fmt.Stringer.
func (e ExpirationReason) String() string {
	return string(e)
}

// IsValid reports whether the value is known.
func (e ExpirationReason) IsValid() bool {
	for _, candidate := range validExpirationReasons {
		if candidate == e {
			return true
		}
	}
	return false
}

// Token returns the wire token. Unlike the other vocabularies this one
// has an explicit "unknown" member on the store side, so unmapped values
// collapse to the empty string instead.
func (e ExpirationReason) Token() string {
	switch e {
	case ExpirationReasonAutoRenewDisabled, ExpirationReasonBillingError,
		ExpirationReasonDidNotConsentToPriceIncrease, ExpirationReasonProductUnavailable,
		ExpirationReasonUnknown:
		return string(e)
	default:
		return ""
	}
}

// ParseExpirationReason converts raw input into an ExpirationReason.
func ParseExpirationReason(value string) (ExpirationReason, error) {
	for _, candidate := range validExpirationReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid expiration reason %q", value)
}
