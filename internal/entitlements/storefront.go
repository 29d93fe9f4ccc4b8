package entitlements

import "context"

// PurchaseResultKind tags what the storefront reported for a purchase.
type PurchaseResultKind string

const (
	PurchasePurchased PurchaseResultKind = "purchased"
	PurchaseCancelled PurchaseResultKind = "cancelled"
	PurchasePending   PurchaseResultKind = "pending"
)

// PurchaseResult is the storefront's answer to a purchase request.
// Signed is populated only when Kind is PurchasePurchased; the manager
// still runs its own verification before trusting it.
type PurchaseResult struct {
	Kind   PurchaseResultKind
	Signed VerificationResult
}

// Storefront is the external platform collaborator. The platform
// authenticates everything except the local verification step the
// manager performs itself.
type Storefront interface {
	// FetchProducts resolves product metadata for the configured ids.
	FetchProducts(ctx context.Context, ids []string) ([]Product, error)

	// Purchase executes a purchase flow for one product.
	Purchase(ctx context.Context, product Product) (PurchaseResult, error)

	// SyncEntitlements asks the platform to resynchronize the
	// entitlement set, typically after a restore request.
	SyncEntitlements(ctx context.Context) error

	// CurrentEntitlements returns the platform's view of currently held
	// entitlements, each with its signature check outcome.
	CurrentEntitlements(ctx context.Context) ([]VerificationResult, error)

	// TransactionUpdates is the continuous stream of transaction events.
	// The storefront closes the channel when ctx is cancelled.
	TransactionUpdates(ctx context.Context) <-chan VerificationResult

	// Acknowledge finalizes a transaction so the platform stops
	// redelivering it. Only verified transactions are acknowledged.
	Acknowledge(ctx context.Context, tx Transaction) error
}
