package enums

import "fmt"

// ProductType mirrors the store's product classification.
type ProductType string

const (
	ProductTypeAutoRenewable ProductType = "autoRenewable"
	ProductTypeConsumable    ProductType = "consumable"
	ProductTypeNonConsumable ProductType = "nonConsumable"
	ProductTypeNonRenewable  ProductType = "nonRenewable"
	ProductTypeUnknown       ProductType = "unknown"
)

var validProductTypes = []ProductType{
	ProductTypeAutoRenewable,
	ProductTypeConsumable,
	ProductTypeNonConsumable,
	ProductTypeNonRenewable,
	ProductTypeUnknown,
}

// String implements fmt.Stringer.
func (p ProductType) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p ProductType) IsValid() bool {
	for _, candidate := range validProductTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// Token returns the wire token for the value. Values the bridge does not
// know about collapse to "unknown" so future store additions never break
// the host application.
func (p ProductType) Token() string {
	switch p {
	case ProductTypeAutoRenewable, ProductTypeConsumable, ProductTypeNonConsumable, ProductTypeNonRenewable:
		return string(p)
	default:
		return string(ProductTypeUnknown)
	}
}

// ParseProductType converts raw input into a ProductType.
func ParseProductType(value string) (ProductType, error) {
	for _, candidate := range validProductTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product type %q", value)
}
