package storekit

import (
	"context"

	"github.com/google/uuid"
)

// PurchaseState is the tri-state outcome of a purchase flow.
type PurchaseState int

const (
	// PurchaseStateSuccess means the store settled the purchase and the
	// outcome carries a verification result.
	PurchaseStateSuccess PurchaseState = iota
	// PurchaseStateCancelled means the user backed out. Not an error.
	PurchaseStateCancelled
	// PurchaseStatePending means the purchase needs external approval
	// (ask-to-buy and similar) and may settle later via the update feed.
	PurchaseStatePending
)

// PurchaseOutcome is what a purchase call resolves to.
type PurchaseOutcome struct {
	State       PurchaseState
	Transaction VerificationResult[Transaction]
}

// PurchaseOptions carries caller-supplied options attached to a purchase.
// The app-account token is optional; when present it is echoed back on the
// resulting transaction.
type PurchaseOptions struct {
	AppAccountToken *uuid.UUID
}

// Store is the external trust authority the bridge wraps. Implementations
// own catalog lookup, purchase settlement and payload verification; the
// bridge only translates and forwards what they report.
type Store interface {
	// Products returns catalog entries for the given identifiers.
	// Unknown identifiers are silently absent from the result.
	Products(ctx context.Context, ids []string) ([]Product, error)

	// Purchase runs the purchase flow for one product.
	Purchase(ctx context.Context, productID string, opts PurchaseOptions) (PurchaseOutcome, error)

	// Sync forces a full resynchronization with the store backend.
	Sync(ctx context.Context) error

	// CurrentEntitlements returns a finite snapshot of the entitlements
	// feed at call time.
	CurrentEntitlements(ctx context.Context) ([]VerificationResult[Transaction], error)

	// SubscriptionStatuses returns the status entries for one
	// subscription group.
	SubscriptionStatuses(ctx context.Context, groupID string) ([]SubscriptionStatus, error)

	// Finish acknowledges a settled transaction with the backend.
	Finish(ctx context.Context, transactionID uint64) error

	// Updates is the long-lived, order-preserving feed of out-of-band
	// transaction changes. The bridge listener is its sole consumer.
	Updates() <-chan VerificationResult[Transaction]
}
