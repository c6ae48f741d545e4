package enums

import "fmt"

// OfferType identifies the kind of subscription offer.
type OfferType string

const (
	OfferTypeIntroductory OfferType = "introductory"
	OfferTypePromotional  OfferType = "promotional"
	OfferTypeUnknown      OfferType = "unknown"
)

var validOfferTypes = []OfferType{
	OfferTypeIntroductory,
	OfferTypePromotional,
	OfferTypeUnknown,
}

// String implements fmt.Stringer.
func (o OfferType) String() string {
	return string(o)
}

// IsValid reports whether the value is known.
func (o OfferType) IsValid() bool {
	for _, candidate := range validOfferTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// Token returns the wire token, collapsing unmapped values to "unknown".
func (o OfferType) Token() string {
	switch o {
	case OfferTypeIntroductory, OfferTypePromotional:
		return string(o)
	default:
		return string(OfferTypeUnknown)
	}
}

// ParseOfferType converts raw input into an OfferType.
func ParseOfferType(value string) (OfferType, error) {
	for _, candidate := range validOfferTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid offer type %q", value)
}
