package storekit

import "time"

// The normalizer flattens store snapshots into JSON-compatible records
// with a stable schema: absent optionals are explicit nils, never missing
// keys, timestamps are integer milliseconds since epoch, and every
// enumerated value is a lowercase-camel token from a closed vocabulary.
// All functions here are pure; normalizing the same snapshot twice yields
// identical maps.

// NormalizeProduct flattens a catalog product, recursing into its
// subscription info when present.
func NormalizeProduct(p Product) map[string]any {
	return map[string]any{
		"id":                p.ID,
		"type":              p.Type.Token(),
		"displayName":       p.DisplayName,
		"description":       p.Description,
		"price":             p.Price.InexactFloat64(),
		"displayPrice":      p.DisplayPrice,
		"isFamilyShareable": p.IsFamilyShareable,
		"subscription":      normalizeOptionalSubscriptionInfo(p.Subscription),
	}
}

// NormalizeSubscriptionInfo flattens the renewable portion of a product.
func NormalizeSubscriptionInfo(info SubscriptionInfo) map[string]any {
	offers := make([]map[string]any, 0, len(info.PromotionalOffers))
	for _, offer := range info.PromotionalOffers {
		offers = append(offers, NormalizeSubscriptionOffer(offer))
	}
	return map[string]any{
		"subscriptionGroupID": info.SubscriptionGroupID,
		"subscriptionPeriod":  NormalizeSubscriptionPeriod(info.SubscriptionPeriod),
		"introductoryOffer":   normalizeOptionalOffer(info.IntroductoryOffer),
		"promotionalOffers":   offers,
	}
}

// NormalizeSubscriptionOffer flattens one introductory or promotional offer.
func NormalizeSubscriptionOffer(offer SubscriptionOffer) map[string]any {
	return map[string]any{
		"id":           offer.ID,
		"type":         offer.Type.Token(),
		"price":        offer.Price.InexactFloat64(),
		"displayPrice": offer.DisplayPrice,
		"period":       NormalizeSubscriptionPeriod(offer.Period),
		"periodCount":  offer.PeriodCount,
		"paymentMode":  offer.PaymentMode.Token(),
	}
}

// NormalizeSubscriptionPeriod flattens a renewal period.
func NormalizeSubscriptionPeriod(period SubscriptionPeriod) map[string]any {
	return map[string]any{
		"unit":  period.Unit.Token(),
		"value": period.Value,
	}
}

// NormalizeTransaction flattens one transaction snapshot.
func NormalizeTransaction(tx Transaction) map[string]any {
	var token any
	if tx.AppAccountToken != nil {
		token = tx.AppAccountToken.String()
	}
	return map[string]any{
		"id":                   tx.ID,
		"originalID":           tx.OriginalID,
		"webOrderLineItemID":   stringOrNil(tx.WebOrderLineItemID),
		"productId":            tx.ProductID,
		"subscriptionGroupID":  stringOrNil(tx.SubscriptionGroupID),
		"appBundleID":          tx.AppBundleID,
		"purchaseDate":         epochMillis(tx.PurchaseDate),
		"originalPurchaseDate": epochMillis(tx.OriginalPurchaseDate),
		"expirationDate":       optionalEpochMillis(tx.ExpirationDate),
		"purchaseQuantity":     tx.PurchasedQuantity,
		"isUpgraded":           tx.IsUpgraded,
		"revocationDate":       optionalEpochMillis(tx.RevocationDate),
		"revocationReason":     intOrNil(tx.RevocationReason),
		"productType":          tx.ProductType.Token(),
		"appAccountToken":      token,
	}
}

// NormalizeSignedTransaction flattens a transaction and merges its signed
// representation into the record as an extra field.
func NormalizeSignedTransaction(tx Transaction, signed string) map[string]any {
	record := NormalizeTransaction(tx)
	record["jwsRepresentation"] = signed
	return record
}

// NormalizeRenewalInfo flattens the store's renewal projection.
func NormalizeRenewalInfo(info RenewalInfo) map[string]any {
	var reason any
	if info.ExpirationReason != nil {
		reason = info.ExpirationReason.Token()
	}
	var offerType any
	if info.OfferType != nil {
		offerType = info.OfferType.Token()
	}
	return map[string]any{
		"originalTransactionID":       info.OriginalTransactionID,
		"currentProductID":            info.CurrentProductID,
		"willAutoRenew":               info.WillAutoRenew,
		"autoRenewPreference":         info.AutoRenewPreference,
		"expirationReason":            reason,
		"priceIncreaseStatus":         info.PriceIncreaseStatus.Token(),
		"isInBillingRetry":            info.IsInBillingRetry,
		"gracePeriodExpirationDate":   optionalEpochMillis(info.GracePeriodExpirationDate),
		"offerID":                     stringOrNil(info.OfferID),
		"offerType":                   offerType,
		"recentSubscriptionStartDate": epochMillis(info.RecentSubscriptionStartDate),
		"renewalDate":                 optionalEpochMillis(info.RenewalDate),
		"signedDate":                  epochMillis(info.SignedDate),
	}
}

// NormalizeSubscriptionStatus flattens one status entry, unwrapping the
// verification envelopes first. An unverified record contributes a nil at
// its key rather than aborting the whole entry.
func NormalizeSubscriptionStatus(status SubscriptionStatus) map[string]any {
	var transaction any
	if tx, _, err := status.Transaction.Unwrap(); err == nil {
		transaction = NormalizeTransaction(tx)
	}
	var renewalInfo any
	if info, _, err := status.RenewalInfo.Unwrap(); err == nil {
		renewalInfo = NormalizeRenewalInfo(info)
	}
	return map[string]any{
		"state":       status.State.Token(),
		"transaction": transaction,
		"renewalInfo": renewalInfo,
	}
}

func normalizeOptionalSubscriptionInfo(info *SubscriptionInfo) any {
	if info == nil {
		return nil
	}
	return NormalizeSubscriptionInfo(*info)
}

func normalizeOptionalOffer(offer *SubscriptionOffer) any {
	if offer == nil {
		return nil
	}
	return NormalizeSubscriptionOffer(*offer)
}

func epochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func optionalEpochMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func stringOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func intOrNil(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}
