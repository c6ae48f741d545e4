package storekit

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storebridge/pkg/enums"
)

func sampleTransaction() Transaction {
	webOrder := "web-order-77"
	groupID := "group-21"
	expiry := time.Unix(1_735_689_600, 0).UTC()
	token := uuid.MustParse("3e0bd9d3-6c5b-4b4f-9a72-36f67f1a87d6")
	return Transaction{
		ID:                   2001,
		OriginalID:           2000,
		WebOrderLineItemID:   &webOrder,
		ProductID:            "com.example.premium.monthly",
		SubscriptionGroupID:  &groupID,
		AppBundleID:          "com.example.app",
		PurchaseDate:         time.Unix(1_700_000_000, 0).UTC(),
		OriginalPurchaseDate: time.Unix(1_690_000_000, 0).UTC(),
		ExpirationDate:       &expiry,
		PurchasedQuantity:    1,
		IsUpgraded:           false,
		ProductType:          enums.ProductTypeAutoRenewable,
		AppAccountToken:      &token,
	}
}

func sampleProduct() Product {
	intro := SubscriptionOffer{
		ID:           "intro-1",
		Type:         enums.OfferTypeIntroductory,
		Price:        decimal.Zero,
		DisplayPrice: "$0.00",
		Period:       SubscriptionPeriod{Unit: enums.PeriodUnitWeek, Value: 1},
		PeriodCount:  1,
		PaymentMode:  enums.PaymentModeFreeTrial,
	}
	return Product{
		ID:           "com.example.premium.monthly",
		Type:         enums.ProductTypeAutoRenewable,
		DisplayName:  "Premium Monthly",
		Description:  "Unlocks everything",
		Price:        decimal.NewFromFloat(9.99),
		DisplayPrice: "$9.99",
		Subscription: &SubscriptionInfo{
			SubscriptionGroupID: "group-21",
			SubscriptionPeriod:  SubscriptionPeriod{Unit: enums.PeriodUnitMonth, Value: 1},
			IntroductoryOffer:   &intro,
			PromotionalOffers: []SubscriptionOffer{{
				ID:          "promo-1",
				Type:        enums.OfferTypePromotional,
				Price:       decimal.NewFromFloat(4.99),
				Period:      SubscriptionPeriod{Unit: enums.PeriodUnitMonth, Value: 1},
				PeriodCount: 3,
				PaymentMode: enums.PaymentModePayAsYouGo,
			}},
		},
	}
}

func TestNormalizeTransactionTimestampsAreMillis(t *testing.T) {
	record := NormalizeTransaction(sampleTransaction())

	if got := record["purchaseDate"]; got != int64(1_700_000_000_000) {
		t.Fatalf("expected purchaseDate in millis, got %v", got)
	}
	if got := record["expirationDate"]; got != int64(1_735_689_600_000) {
		t.Fatalf("expected expirationDate in millis, got %v", got)
	}
}

func TestNormalizeTransactionAbsentOptionalsAreExplicitNulls(t *testing.T) {
	tx := sampleTransaction()
	tx.WebOrderLineItemID = nil
	tx.SubscriptionGroupID = nil
	tx.ExpirationDate = nil
	tx.RevocationDate = nil
	tx.RevocationReason = nil
	tx.AppAccountToken = nil

	record := NormalizeTransaction(tx)

	for _, key := range []string{
		"webOrderLineItemID", "subscriptionGroupID", "expirationDate",
		"revocationDate", "revocationReason", "appAccountToken",
	} {
		value, present := record[key]
		if !present {
			t.Fatalf("expected key %q to be present", key)
		}
		if value != nil {
			t.Fatalf("expected %q to be nil, got %v", key, value)
		}
	}
}

func TestNormalizeTransactionRevocation(t *testing.T) {
	tx := sampleTransaction()
	revokedAt := time.Unix(1_705_000_000, 0).UTC()
	reason := 1
	tx.RevocationDate = &revokedAt
	tx.RevocationReason = &reason

	record := NormalizeTransaction(tx)

	if got := record["revocationDate"]; got != int64(1_705_000_000_000) {
		t.Fatalf("expected revocationDate in millis, got %v", got)
	}
	if got := record["revocationReason"]; got != 1 {
		t.Fatalf("expected raw reason code, got %v", got)
	}
}

func TestNormalizeSignedTransactionMergesRepresentation(t *testing.T) {
	record := NormalizeSignedTransaction(sampleTransaction(), "signed-jws")

	if got := record["jwsRepresentation"]; got != "signed-jws" {
		t.Fatalf("expected merged signed representation, got %v", got)
	}
	if got := record["productId"]; got != "com.example.premium.monthly" {
		t.Fatalf("structured fields must survive the merge, got %v", got)
	}
}

func TestNormalizeProductRecursesBottomUp(t *testing.T) {
	record := NormalizeProduct(sampleProduct())

	sub, ok := record["subscription"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested subscription record, got %T", record["subscription"])
	}
	period, ok := sub["subscriptionPeriod"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested period record, got %T", sub["subscriptionPeriod"])
	}
	if period["unit"] != "month" || period["value"] != 1 {
		t.Fatalf("unexpected period record: %v", period)
	}
	intro, ok := sub["introductoryOffer"].(map[string]any)
	if !ok {
		t.Fatalf("expected introductory offer record, got %T", sub["introductoryOffer"])
	}
	if intro["paymentMode"] != "freeTrial" {
		t.Fatalf("unexpected payment mode token: %v", intro["paymentMode"])
	}
	offers, ok := sub["promotionalOffers"].([]map[string]any)
	if !ok || len(offers) != 1 {
		t.Fatalf("expected one promotional offer, got %v", sub["promotionalOffers"])
	}
}

func TestNormalizeProductWithoutSubscriptionYieldsNull(t *testing.T) {
	product := sampleProduct()
	product.Subscription = nil
	product.Type = enums.ProductTypeConsumable

	record := NormalizeProduct(product)

	value, present := record["subscription"]
	if !present {
		t.Fatal("expected subscription key to be present")
	}
	if value != nil {
		t.Fatalf("expected nil subscription, got %v", value)
	}
	if record["type"] != "consumable" {
		t.Fatalf("unexpected type token: %v", record["type"])
	}
}

func TestNormalizeUnknownEnumValues(t *testing.T) {
	product := sampleProduct()
	product.Type = enums.ProductType("winback")
	record := NormalizeProduct(product)
	if record["type"] != "unknown" {
		t.Fatalf("expected unknown token for unmapped product type, got %v", record["type"])
	}

	reason := enums.ExpirationReason("priceTooHigh")
	info := RenewalInfo{
		CurrentProductID:            "com.example.premium.monthly",
		ExpirationReason:            &reason,
		PriceIncreaseStatus:         enums.PriceIncreaseStatus("declined"),
		RecentSubscriptionStartDate: time.Unix(1_690_000_000, 0).UTC(),
		SignedDate:                  time.Unix(1_700_000_000, 0).UTC(),
	}
	renewal := NormalizeRenewalInfo(info)
	if renewal["expirationReason"] != "" {
		t.Fatalf("expected empty token for unmapped expiration reason, got %v", renewal["expirationReason"])
	}
	if renewal["priceIncreaseStatus"] != "" {
		t.Fatalf("expected empty token for unmapped price increase status, got %v", renewal["priceIncreaseStatus"])
	}
}

func TestNormalizeRenewalInfoOptionalFields(t *testing.T) {
	grace := time.Unix(1_710_000_000, 0).UTC()
	renewal := time.Unix(1_720_000_000, 0).UTC()
	offerID := "promo-1"
	offerType := enums.OfferTypePromotional
	reason := enums.ExpirationReasonBillingError

	info := RenewalInfo{
		OriginalTransactionID:       2000,
		CurrentProductID:            "com.example.premium.monthly",
		WillAutoRenew:               true,
		AutoRenewPreference:         "com.example.premium.annual",
		ExpirationReason:            &reason,
		PriceIncreaseStatus:         enums.PriceIncreaseStatusNonePending,
		IsInBillingRetry:            true,
		GracePeriodExpirationDate:   &grace,
		OfferID:                     &offerID,
		OfferType:                   &offerType,
		RecentSubscriptionStartDate: time.Unix(1_690_000_000, 0).UTC(),
		RenewalDate:                 &renewal,
		SignedDate:                  time.Unix(1_700_000_000, 0).UTC(),
	}

	record := NormalizeRenewalInfo(info)

	if record["expirationReason"] != "billingError" {
		t.Fatalf("unexpected expiration reason: %v", record["expirationReason"])
	}
	if record["gracePeriodExpirationDate"] != int64(1_710_000_000_000) {
		t.Fatalf("unexpected grace period date: %v", record["gracePeriodExpirationDate"])
	}
	if record["offerType"] != "promotional" {
		t.Fatalf("unexpected offer type: %v", record["offerType"])
	}

	info.GracePeriodExpirationDate = nil
	info.RenewalDate = nil
	info.OfferID = nil
	info.OfferType = nil
	info.ExpirationReason = nil
	record = NormalizeRenewalInfo(info)
	for _, key := range []string{"gracePeriodExpirationDate", "renewalDate", "offerID", "offerType", "expirationReason"} {
		value, present := record[key]
		if !present || value != nil {
			t.Fatalf("expected explicit nil for %q, got present=%v value=%v", key, present, value)
		}
	}
}

func TestNormalizeSubscriptionStatusUnverifiedRecordsContributeNil(t *testing.T) {
	status := SubscriptionStatus{
		State:       enums.RenewalStateSubscribed,
		Transaction: Verified(sampleTransaction(), "signed"),
		RenewalInfo: Unverified[RenewalInfo](nil),
	}

	record := NormalizeSubscriptionStatus(status)

	if record["state"] != "subscribed" {
		t.Fatalf("unexpected state token: %v", record["state"])
	}
	if _, ok := record["transaction"].(map[string]any); !ok {
		t.Fatalf("expected normalized transaction, got %T", record["transaction"])
	}
	value, present := record["renewalInfo"]
	if !present || value != nil {
		t.Fatalf("expected nil renewalInfo, got present=%v value=%v", present, value)
	}
}

func TestNormalizationIsIdempotent(t *testing.T) {
	product := sampleProduct()
	if !reflect.DeepEqual(NormalizeProduct(product), NormalizeProduct(product)) {
		t.Fatal("normalizing the same product twice must yield identical records")
	}
	tx := sampleTransaction()
	if !reflect.DeepEqual(NormalizeTransaction(tx), NormalizeTransaction(tx)) {
		t.Fatal("normalizing the same transaction twice must yield identical records")
	}
}
