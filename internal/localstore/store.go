package localstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storebridge/internal/storekit"
	"github.com/angelmondragon/storebridge/pkg/enums"
	"github.com/angelmondragon/storebridge/pkg/logger"
)

const updateBuffer = 32

// Store is an in-process storekit.Store backed by a static catalog file.
// It settles purchases itself, which makes it its own trust authority:
// everything it emits is verified unless a catalog entry scripts otherwise.
type Store struct {
	catalog *Catalog
	logg    *logger.Logger
	now     func() time.Time

	mu           sync.Mutex
	nextID       uint64
	entitlements []storekit.Transaction
	signed       map[uint64]string
	finished     map[uint64]bool
	closed       bool

	updates chan storekit.VerificationResult[storekit.Transaction]
}

// New builds a store over a validated catalog.
func New(catalog *Catalog, logg *logger.Logger) *Store {
	if logg == nil {
		logg = logger.New(logger.Options{ServiceName: "localstore"})
	}
	return &Store{
		catalog:  catalog,
		logg:     logg,
		now:      time.Now,
		nextID:   1000,
		signed:   map[uint64]string{},
		finished: map[uint64]bool{},
		updates:  make(chan storekit.VerificationResult[storekit.Transaction], updateBuffer),
	}
}

// Products returns catalog entries matching ids, preserving catalog order.
func (s *Store) Products(_ context.Context, ids []string) ([]storekit.Product, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var products []storekit.Product
	for i := range s.catalog.Products {
		entry := &s.catalog.Products[i]
		if !wanted[entry.ID] {
			continue
		}
		product, err := entry.product()
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, nil
}

// Purchase settles a purchase according to the catalog entry's scripted
// behavior. Successful purchases become entitlements immediately.
func (s *Store) Purchase(ctx context.Context, productID string, opts storekit.PurchaseOptions) (storekit.PurchaseOutcome, error) {
	entry := s.entryByID(productID)
	if entry == nil {
		return storekit.PurchaseOutcome{}, fmt.Errorf("product %q is not in the catalog", productID)
	}

	switch entry.Behavior {
	case BehaviorCancelled:
		return storekit.PurchaseOutcome{State: storekit.PurchaseStateCancelled}, nil
	case BehaviorPending:
		return storekit.PurchaseOutcome{State: storekit.PurchaseStatePending}, nil
	case BehaviorUnverified:
		return storekit.PurchaseOutcome{
			State:       storekit.PurchaseStateSuccess,
			Transaction: storekit.Unverified[storekit.Transaction](fmt.Errorf("scripted verification failure for %q", productID)),
		}, nil
	}

	product, err := entry.product()
	if err != nil {
		return storekit.PurchaseOutcome{}, err
	}

	tx := s.settle(product, opts.AppAccountToken)
	signed := s.sign(tx)

	s.mu.Lock()
	s.entitlements = append(s.entitlements, tx)
	s.signed[tx.ID] = signed
	s.mu.Unlock()

	s.logg.Info(s.logg.WithTransactionID(ctx, tx.ID), "purchase settled")
	return storekit.PurchaseOutcome{
		State:       storekit.PurchaseStateSuccess,
		Transaction: storekit.Verified(tx, signed),
	}, nil
}

// Sync is a no-op: the local store has no remote side to reconcile with.
func (s *Store) Sync(context.Context) error {
	return nil
}

// CurrentEntitlements snapshots the settled, unrevoked transactions.
func (s *Store) CurrentEntitlements(context.Context) ([]storekit.VerificationResult[storekit.Transaction], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]storekit.VerificationResult[storekit.Transaction], 0, len(s.entitlements))
	for _, tx := range s.entitlements {
		if tx.RevocationDate != nil {
			continue
		}
		results = append(results, storekit.Verified(tx, s.signed[tx.ID]))
	}
	return results, nil
}

// SubscriptionStatuses derives statuses from the entitlements in a group.
func (s *Store) SubscriptionStatuses(_ context.Context, groupID string) ([]storekit.SubscriptionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var statuses []storekit.SubscriptionStatus
	for _, tx := range s.entitlements {
		if tx.SubscriptionGroupID == nil || *tx.SubscriptionGroupID != groupID {
			continue
		}
		state := enums.RenewalStateSubscribed
		switch {
		case tx.RevocationDate != nil:
			state = enums.RenewalStateRevoked
		case tx.ExpirationDate != nil && tx.ExpirationDate.Before(now):
			state = enums.RenewalStateExpired
		}
		statuses = append(statuses, storekit.SubscriptionStatus{
			State:       state,
			Transaction: storekit.Verified(tx, s.signed[tx.ID]),
			RenewalInfo: storekit.Verified(s.renewalInfo(tx, state), ""),
		})
	}
	return statuses, nil
}

// Finish marks a transaction acknowledged. Unknown ids are an error so
// misrouted acknowledgements surface in the logs.
func (s *Store) Finish(_ context.Context, transactionID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.signed[transactionID]; !ok {
		return fmt.Errorf("unknown transaction %d", transactionID)
	}
	s.finished[transactionID] = true
	return nil
}

// Updates exposes the out-of-band transaction feed.
func (s *Store) Updates() <-chan storekit.VerificationResult[storekit.Transaction] {
	return s.updates
}

// Ingest pushes an externally produced update (webhook deliveries, test
// scripts) onto the feed. Returns an error once the feed is full or closed
// rather than blocking the caller.
func (s *Store) Ingest(result storekit.VerificationResult[storekit.Transaction]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("update feed is closed")
	}
	if tx, signed, err := result.Unwrap(); err == nil {
		s.entitlements = append(s.entitlements, tx)
		s.signed[tx.ID] = signed
	}
	select {
	case s.updates <- result:
		return nil
	default:
		return fmt.Errorf("update feed is full")
	}
}

// Close shuts the update feed down. Ingest calls after Close fail.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.updates)
}

// Finished reports whether a transaction has been acknowledged.
func (s *Store) Finished(transactionID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished[transactionID]
}

func (s *Store) entryByID(productID string) *CatalogEntry {
	for i := range s.catalog.Products {
		if s.catalog.Products[i].ID == productID {
			return &s.catalog.Products[i]
		}
	}
	return nil
}

func (s *Store) settle(product storekit.Product, token *uuid.UUID) storekit.Transaction {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.mu.Unlock()

	now := s.now()
	tx := storekit.Transaction{
		ID:                   id,
		OriginalID:           id,
		ProductID:            product.ID,
		AppBundleID:          s.catalog.BundleID,
		PurchaseDate:         now,
		OriginalPurchaseDate: now,
		PurchasedQuantity:    1,
		ProductType:          product.Type,
		AppAccountToken:      token,
	}
	if product.Subscription != nil {
		groupID := product.Subscription.SubscriptionGroupID
		tx.SubscriptionGroupID = &groupID
		expires := addPeriod(now, product.Subscription.SubscriptionPeriod)
		tx.ExpirationDate = &expires
		lineItem := uuid.NewString()
		tx.WebOrderLineItemID = &lineItem
	}
	return tx
}

// sign produces a stand-in signed representation: a base64url JSON blob.
// It is opaque to the bridge, which is all the contract requires.
func (s *Store) sign(tx storekit.Transaction) string {
	payload, _ := json.Marshal(map[string]any{
		"transactionId": fmt.Sprintf("%d", tx.ID),
		"productId":     tx.ProductID,
		"bundleId":      tx.AppBundleID,
		"purchaseDate":  tx.PurchaseDate.UnixMilli(),
	})
	return base64.RawURLEncoding.EncodeToString(payload)
}

func (s *Store) renewalInfo(tx storekit.Transaction, state enums.RenewalState) storekit.RenewalInfo {
	info := storekit.RenewalInfo{
		OriginalTransactionID:       tx.OriginalID,
		CurrentProductID:            tx.ProductID,
		WillAutoRenew:               state == enums.RenewalStateSubscribed,
		AutoRenewPreference:         tx.ProductID,
		PriceIncreaseStatus:         enums.PriceIncreaseStatusNonePending,
		RecentSubscriptionStartDate: tx.PurchaseDate,
		RenewalDate:                 tx.ExpirationDate,
		SignedDate:                  s.now(),
	}
	if state == enums.RenewalStateExpired {
		reason := enums.ExpirationReasonAutoRenewDisabled
		info.ExpirationReason = &reason
		info.WillAutoRenew = false
	}
	return info
}

func addPeriod(from time.Time, period storekit.SubscriptionPeriod) time.Time {
	switch period.Unit {
	case enums.PeriodUnitDay:
		return from.AddDate(0, 0, period.Value)
	case enums.PeriodUnitWeek:
		return from.AddDate(0, 0, 7*period.Value)
	case enums.PeriodUnitMonth:
		return from.AddDate(0, period.Value, 0)
	case enums.PeriodUnitYear:
		return from.AddDate(period.Value, 0, 0)
	}
	return from
}
