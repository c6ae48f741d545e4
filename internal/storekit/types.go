package storekit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storebridge/pkg/enums"
)

// The types in this package are read-only snapshots handed over by the
// store backend. The bridge never constructs or mutates them on its own;
// it only translates and forwards them.

// Product is one purchasable item in the store catalog.
type Product struct {
	ID                string
	Type              enums.ProductType
	DisplayName       string
	Description       string
	Price             decimal.Decimal
	DisplayPrice      string
	IsFamilyShareable bool
	Subscription      *SubscriptionInfo
}

// SubscriptionInfo describes the renewable portion of a product.
type SubscriptionInfo struct {
	SubscriptionGroupID string
	SubscriptionPeriod  SubscriptionPeriod
	IntroductoryOffer   *SubscriptionOffer
	PromotionalOffers   []SubscriptionOffer
}

// SubscriptionOffer is an introductory or promotional discount.
type SubscriptionOffer struct {
	ID           string
	Type         enums.OfferType
	Price        decimal.Decimal
	DisplayPrice string
	Period       SubscriptionPeriod
	PeriodCount  int
	PaymentMode  enums.PaymentMode
}

// SubscriptionPeriod is a canonical renewal period.
type SubscriptionPeriod struct {
	Unit  enums.PeriodUnit
	Value int
}

// Transaction is one settled purchase event.
type Transaction struct {
	ID                   uint64
	OriginalID           uint64
	WebOrderLineItemID   *string
	ProductID            string
	SubscriptionGroupID  *string
	AppBundleID          string
	PurchaseDate         time.Time
	OriginalPurchaseDate time.Time
	ExpirationDate       *time.Time
	PurchasedQuantity    int
	IsUpgraded           bool
	RevocationDate       *time.Time
	RevocationReason     *int
	ProductType          enums.ProductType
	AppAccountToken      *uuid.UUID
}

// RenewalInfo is the store's view of an auto-renewable subscription's
// upcoming renewal.
type RenewalInfo struct {
	OriginalTransactionID       uint64
	CurrentProductID            string
	WillAutoRenew               bool
	AutoRenewPreference         string
	ExpirationReason            *enums.ExpirationReason
	PriceIncreaseStatus         enums.PriceIncreaseStatus
	IsInBillingRetry            bool
	GracePeriodExpirationDate   *time.Time
	OfferID                     *string
	OfferType                   *enums.OfferType
	RecentSubscriptionStartDate time.Time
	RenewalDate                 *time.Time
	SignedDate                  time.Time
}

// SubscriptionStatus pairs a renewal state with the signed records backing
// it. Either record may arrive unverified, in which case it contributes
// nothing to the normalized output.
type SubscriptionStatus struct {
	State       enums.RenewalState
	Transaction VerificationResult[Transaction]
	RenewalInfo VerificationResult[RenewalInfo]
}
