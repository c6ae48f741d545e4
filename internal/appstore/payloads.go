package appstore

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storebridge/internal/storekit"
	"github.com/angelmondragon/storebridge/pkg/enums"
)

// Product type labels as they appear inside App Store signed payloads.
const (
	payloadTypeAutoRenewable = "Auto-Renewable Subscription"
	payloadTypeNonRenewing   = "Non-Renewing Subscription"
	payloadTypeConsumable    = "Consumable"
	payloadTypeNonConsumable = "Non-Consumable"
)

// transactionClaims mirrors the JWS transaction payload. Timestamps are
// millisecond epochs; identifiers are numeric strings.
type transactionClaims struct {
	jwt.RegisteredClaims
	TransactionID         string `json:"transactionId"`
	OriginalTransactionID string `json:"originalTransactionId"`
	WebOrderLineItemID    string `json:"webOrderLineItemId"`
	BundleID              string `json:"bundleId"`
	ProductID             string `json:"productId"`
	SubscriptionGroupID   string `json:"subscriptionGroupIdentifier"`
	PurchaseDate          int64  `json:"purchaseDate"`
	OriginalPurchaseDate  int64  `json:"originalPurchaseDate"`
	ExpiresDate           *int64 `json:"expiresDate"`
	Quantity              int    `json:"quantity"`
	Type                  string `json:"type"`
	AppAccountToken       string `json:"appAccountToken"`
	RevocationDate        *int64 `json:"revocationDate"`
	RevocationReason      *int   `json:"revocationReason"`
	IsUpgraded            bool   `json:"isUpgraded"`
	Environment           string `json:"environment"`
	SignedDate            int64  `json:"signedDate"`
}

func (c *transactionClaims) transaction() (storekit.Transaction, error) {
	id, err := strconv.ParseUint(c.TransactionID, 10, 64)
	if err != nil {
		return storekit.Transaction{}, fmt.Errorf("invalid transactionId %q: %w", c.TransactionID, err)
	}
	originalID, err := strconv.ParseUint(c.OriginalTransactionID, 10, 64)
	if err != nil {
		return storekit.Transaction{}, fmt.Errorf("invalid originalTransactionId %q: %w", c.OriginalTransactionID, err)
	}

	tx := storekit.Transaction{
		ID:                   id,
		OriginalID:           originalID,
		ProductID:            c.ProductID,
		AppBundleID:          c.BundleID,
		PurchaseDate:         time.UnixMilli(c.PurchaseDate),
		OriginalPurchaseDate: time.UnixMilli(c.OriginalPurchaseDate),
		PurchasedQuantity:    c.Quantity,
		IsUpgraded:           c.IsUpgraded,
		RevocationReason:     c.RevocationReason,
		ProductType:          payloadProductType(c.Type),
	}
	if c.WebOrderLineItemID != "" {
		lineItem := c.WebOrderLineItemID
		tx.WebOrderLineItemID = &lineItem
	}
	if c.SubscriptionGroupID != "" {
		group := c.SubscriptionGroupID
		tx.SubscriptionGroupID = &group
	}
	if c.ExpiresDate != nil {
		expires := time.UnixMilli(*c.ExpiresDate)
		tx.ExpirationDate = &expires
	}
	if c.RevocationDate != nil {
		revoked := time.UnixMilli(*c.RevocationDate)
		tx.RevocationDate = &revoked
	}
	if c.AppAccountToken != "" {
		token, err := uuid.Parse(c.AppAccountToken)
		if err != nil {
			return storekit.Transaction{}, fmt.Errorf("invalid appAccountToken: %w", err)
		}
		tx.AppAccountToken = &token
	}
	return tx, nil
}

// renewalClaims mirrors the JWS renewal-info payload. Enumerated fields
// arrive as small integers and map onto the wire tokens.
type renewalClaims struct {
	jwt.RegisteredClaims
	OriginalTransactionID       string `json:"originalTransactionId"`
	AutoRenewProductID          string `json:"autoRenewProductId"`
	ProductID                   string `json:"productId"`
	AutoRenewStatus             int    `json:"autoRenewStatus"`
	ExpirationIntent            *int   `json:"expirationIntent"`
	PriceIncreaseStatus         *int   `json:"priceIncreaseStatus"`
	GracePeriodExpiresDate      *int64 `json:"gracePeriodExpiresDate"`
	IsInBillingRetryPeriod      bool   `json:"isInBillingRetryPeriod"`
	OfferIdentifier             string `json:"offerIdentifier"`
	OfferType                   *int   `json:"offerType"`
	RecentSubscriptionStartDate int64  `json:"recentSubscriptionStartDate"`
	RenewalDate                 *int64 `json:"renewalDate"`
	SignedDate                  int64  `json:"signedDate"`
}

func (c *renewalClaims) renewalInfo() (storekit.RenewalInfo, error) {
	originalID, err := strconv.ParseUint(c.OriginalTransactionID, 10, 64)
	if err != nil {
		return storekit.RenewalInfo{}, fmt.Errorf("invalid originalTransactionId %q: %w", c.OriginalTransactionID, err)
	}

	info := storekit.RenewalInfo{
		OriginalTransactionID:       originalID,
		CurrentProductID:            c.ProductID,
		WillAutoRenew:               c.AutoRenewStatus == 1,
		AutoRenewPreference:         c.AutoRenewProductID,
		PriceIncreaseStatus:         payloadPriceIncreaseStatus(c.PriceIncreaseStatus),
		IsInBillingRetry:            c.IsInBillingRetryPeriod,
		RecentSubscriptionStartDate: time.UnixMilli(c.RecentSubscriptionStartDate),
		SignedDate:                  time.UnixMilli(c.SignedDate),
	}
	if c.ExpirationIntent != nil {
		reason := payloadExpirationReason(*c.ExpirationIntent)
		info.ExpirationReason = &reason
	}
	if c.GracePeriodExpiresDate != nil {
		grace := time.UnixMilli(*c.GracePeriodExpiresDate)
		info.GracePeriodExpirationDate = &grace
	}
	if c.OfferIdentifier != "" {
		offerID := c.OfferIdentifier
		info.OfferID = &offerID
	}
	if c.OfferType != nil {
		offerType := payloadOfferType(*c.OfferType)
		info.OfferType = &offerType
	}
	if c.RenewalDate != nil {
		renewal := time.UnixMilli(*c.RenewalDate)
		info.RenewalDate = &renewal
	}
	return info, nil
}

func payloadProductType(value string) enums.ProductType {
	switch value {
	case payloadTypeAutoRenewable:
		return enums.ProductTypeAutoRenewable
	case payloadTypeNonRenewing:
		return enums.ProductTypeNonRenewable
	case payloadTypeConsumable:
		return enums.ProductTypeConsumable
	case payloadTypeNonConsumable:
		return enums.ProductTypeNonConsumable
	default:
		return enums.ProductTypeUnknown
	}
}

func payloadExpirationReason(intent int) enums.ExpirationReason {
	switch intent {
	case 1:
		return enums.ExpirationReasonAutoRenewDisabled
	case 2:
		return enums.ExpirationReasonBillingError
	case 3:
		return enums.ExpirationReasonDidNotConsentToPriceIncrease
	case 4:
		return enums.ExpirationReasonProductUnavailable
	default:
		return enums.ExpirationReasonUnknown
	}
}

func payloadPriceIncreaseStatus(status *int) enums.PriceIncreaseStatus {
	if status == nil {
		return enums.PriceIncreaseStatusNonePending
	}
	switch *status {
	case 0:
		return enums.PriceIncreaseStatusPending
	case 1:
		return enums.PriceIncreaseStatusAgreed
	default:
		return enums.PriceIncreaseStatusNonePending
	}
}

func payloadOfferType(value int) enums.OfferType {
	switch value {
	case 1:
		return enums.OfferTypeIntroductory
	case 2, 3:
		return enums.OfferTypePromotional
	default:
		return enums.OfferTypeUnknown
	}
}
