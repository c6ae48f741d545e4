package localstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storebridge/internal/storekit"
	"github.com/angelmondragon/storebridge/pkg/enums"
)

const testCatalog = `{
  "bundleId": "com.example.app",
  "products": [
    {
      "id": "coins.small",
      "type": "consumable",
      "displayName": "Small coin pack",
      "description": "100 coins",
      "price": "0.99",
      "displayPrice": "$0.99"
    },
    {
      "id": "premium.monthly",
      "type": "autoRenewable",
      "displayName": "Premium",
      "description": "Monthly premium",
      "price": "9.99",
      "displayPrice": "$9.99",
      "subscription": {
        "groupId": "group.premium",
        "period": {"unit": "month", "value": 1}
      }
    },
    {
      "id": "premium.pending",
      "type": "autoRenewable",
      "displayName": "Premium (ask to buy)",
      "description": "Needs approval",
      "price": "9.99",
      "displayPrice": "$9.99",
      "behavior": "pending",
      "subscription": {
        "groupId": "group.premium",
        "period": {"unit": "month", "value": 1}
      }
    },
    {
      "id": "coins.tampered",
      "type": "consumable",
      "displayName": "Tampered pack",
      "description": "Fails verification",
      "price": "4.99",
      "displayPrice": "$4.99",
      "behavior": "unverified"
    }
  ]
}`

func writeCatalog(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing catalog: %v", err)
	}
	return path
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	catalog, err := LoadCatalog(writeCatalog(t, testCatalog))
	if err != nil {
		t.Fatalf("loading catalog: %v", err)
	}
	store := New(catalog, nil)
	t.Cleanup(store.Close)
	return store
}

func TestLoadCatalogRejectsBadEnums(t *testing.T) {
	_, err := LoadCatalog(writeCatalog(t, `{"products":[{"id":"x","type":"subscription","price":"1.00"}]}`))
	if err == nil {
		t.Fatal("expected error for unknown product type")
	}
}

func TestLoadCatalogRejectsDuplicateIDs(t *testing.T) {
	_, err := LoadCatalog(writeCatalog(t, `{"products":[
		{"id":"x","type":"consumable","price":"1.00"},
		{"id":"x","type":"consumable","price":"1.00"}]}`))
	if err == nil {
		t.Fatal("expected error for duplicate id")
	}
}

func TestProductsPreservesCatalogOrder(t *testing.T) {
	store := newTestStore(t)

	products, err := store.Products(context.Background(), []string{"premium.monthly", "coins.small", "nope"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	if products[0].ID != "coins.small" || products[1].ID != "premium.monthly" {
		t.Fatalf("expected catalog order, got %q then %q", products[0].ID, products[1].ID)
	}
	if products[1].Subscription == nil || products[1].Subscription.SubscriptionGroupID != "group.premium" {
		t.Fatalf("expected subscription info on %q", products[1].ID)
	}
}

func TestPurchaseSettlesAndGrantsEntitlement(t *testing.T) {
	store := newTestStore(t)
	token := uuid.New()

	outcome, err := store.Purchase(context.Background(), "premium.monthly", storekit.PurchaseOptions{AppAccountToken: &token})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.State != storekit.PurchaseStateSuccess {
		t.Fatalf("expected success, got %v", outcome.State)
	}

	tx, signed, err := outcome.Transaction.Unwrap()
	if err != nil {
		t.Fatalf("expected verified transaction: %v", err)
	}
	if signed == "" {
		t.Fatal("expected a signed representation")
	}
	if tx.AppAccountToken == nil || *tx.AppAccountToken != token {
		t.Fatal("expected app account token echoed on the transaction")
	}
	if tx.ExpirationDate == nil || !tx.ExpirationDate.After(tx.PurchaseDate) {
		t.Fatal("expected a future expiration date for a subscription")
	}

	entitlements, err := store.CurrentEntitlements(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entitlements) != 1 {
		t.Fatalf("expected 1 entitlement, got %d", len(entitlements))
	}
}

func TestPurchaseScriptedPending(t *testing.T) {
	store := newTestStore(t)

	outcome, err := store.Purchase(context.Background(), "premium.pending", storekit.PurchaseOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.State != storekit.PurchaseStatePending {
		t.Fatalf("expected pending, got %v", outcome.State)
	}
}

func TestPurchaseScriptedUnverified(t *testing.T) {
	store := newTestStore(t)

	outcome, err := store.Purchase(context.Background(), "coins.tampered", storekit.PurchaseOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := outcome.Transaction.Unwrap(); !errors.Is(err, storekit.ErrFailedVerification) {
		t.Fatalf("expected verification failure, got %v", err)
	}
}

func TestPurchaseUnknownProduct(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Purchase(context.Background(), "nope", storekit.PurchaseOptions{}); err == nil {
		t.Fatal("expected error for unknown product")
	}
}

func TestSubscriptionStatusesTrackExpiration(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	if _, err := store.Purchase(context.Background(), "premium.monthly", storekit.PurchaseOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	statuses, err := store.SubscriptionStatuses(context.Background(), "group.premium")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(statuses) != 1 {
		t.Fatalf("expected 1 status, got %d", len(statuses))
	}
	if statuses[0].State != enums.RenewalStateSubscribed {
		t.Fatalf("expected subscribed, got %v", statuses[0].State)
	}

	// Jump past the renewal date and the same entitlement reads expired.
	store.now = func() time.Time { return base.AddDate(0, 2, 0) }
	statuses, err = store.SubscriptionStatuses(context.Background(), "group.premium")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if statuses[0].State != enums.RenewalStateExpired {
		t.Fatalf("expected expired, got %v", statuses[0].State)
	}
	info, _, err := statuses[0].RenewalInfo.Unwrap()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.ExpirationReason == nil || *info.ExpirationReason != enums.ExpirationReasonAutoRenewDisabled {
		t.Fatal("expected an expiration reason on the expired status")
	}
	if info.WillAutoRenew {
		t.Fatal("expected auto-renew off once expired")
	}

	if statuses, _ := store.SubscriptionStatuses(context.Background(), "group.other"); len(statuses) != 0 {
		t.Fatalf("expected no statuses for an unrelated group, got %d", len(statuses))
	}
}

func TestFinishRejectsUnknownTransaction(t *testing.T) {
	store := newTestStore(t)

	if err := store.Finish(context.Background(), 42); err == nil {
		t.Fatal("expected error for unknown transaction")
	}

	outcome, err := store.Purchase(context.Background(), "coins.small", storekit.PurchaseOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tx, _, _ := outcome.Transaction.Unwrap()
	if err := store.Finish(context.Background(), tx.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !store.Finished(tx.ID) {
		t.Fatal("expected transaction marked finished")
	}
}

func TestIngestFeedsUpdatesAndEntitlements(t *testing.T) {
	store := newTestStore(t)

	tx := storekit.Transaction{
		ID:                   9001,
		OriginalID:           9001,
		ProductID:            "premium.monthly",
		AppBundleID:          "com.example.app",
		PurchaseDate:         time.Now(),
		OriginalPurchaseDate: time.Now(),
		PurchasedQuantity:    1,
		ProductType:          enums.ProductTypeAutoRenewable,
	}
	if err := store.Ingest(storekit.Verified(tx, "jws-blob")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case result := <-store.Updates():
		got, signed, err := result.Unwrap()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.ID != 9001 || signed != "jws-blob" {
			t.Fatalf("unexpected update: id=%d signed=%q", got.ID, signed)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for update")
	}

	entitlements, _ := store.CurrentEntitlements(context.Background())
	if len(entitlements) != 1 {
		t.Fatalf("expected ingested transaction as entitlement, got %d", len(entitlements))
	}
}

func TestIngestAfterCloseFails(t *testing.T) {
	catalog, err := LoadCatalog(writeCatalog(t, testCatalog))
	if err != nil {
		t.Fatalf("loading catalog: %v", err)
	}
	store := New(catalog, nil)
	store.Close()
	store.Close() // idempotent

	if err := store.Ingest(storekit.Unverified[storekit.Transaction](errors.New("x"))); err == nil {
		t.Fatal("expected error after close")
	}
}
