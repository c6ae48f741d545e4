package enums

import "fmt"

// PaymentMode describes how a subscription offer charges the customer.
type PaymentMode string

const (
	PaymentModeFreeTrial  PaymentMode = "freeTrial"
	PaymentModePayUpFront PaymentMode = "payUpFront"
	PaymentModePayAsYouGo PaymentMode = "payAsYouGo"
	PaymentModeUnknown    PaymentMode = "unknown"
)

var validPaymentModes = []PaymentMode{
	PaymentModeFreeTrial,
	PaymentModePayUpFront,
	PaymentModePayAsYouGo,
	PaymentModeUnknown,
}

// String implements fmt.Stringer.
func (p PaymentMode) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p PaymentMode) IsValid() bool {
	for _, candidate := range validPaymentModes {
		if candidate == p {
			return true
		}
	}
	return false
}

// Token returns the wire token, collapsing unmapped values to "unknown".
func (p PaymentMode) Token() string {
	switch p {
	case PaymentModeFreeTrial, PaymentModePayUpFront, PaymentModePayAsYouGo:
		return string(p)
	default:
		return string(PaymentModeUnknown)
	}
}

// ParsePaymentMode converts raw input into a PaymentMode.
func ParsePaymentMode(value string) (PaymentMode, error) {
	for _, candidate := range validPaymentModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment mode %q", value)
}
