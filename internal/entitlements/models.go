package entitlements

// PeriodKind describes how a product entitles the buyer over time.
type PeriodKind string

const (
	PeriodWeekly   PeriodKind = "weekly"
	PeriodMonthly  PeriodKind = "monthly"
	PeriodLifetime PeriodKind = "lifetime"
)

// Product is one purchasable catalog entry. The catalog is fetched once
// at manager startup and read-only afterwards.
type Product struct {
	ID           string
	DisplayPrice string
	Period       PeriodKind
}

// Transaction is a purchase record issued by the storefront. It is only
// trusted after local verification.
type Transaction struct {
	ID        string
	ProductID string
}

// VerificationResult is how the storefront hands over a transaction
// together with the authenticity outcome of its signature check.
type VerificationResult struct {
	Transaction Transaction
	Verified    bool
}

// OutcomeKind tags a PurchaseOutcome.
type OutcomeKind string

const (
	OutcomeEntitled  OutcomeKind = "entitled"
	OutcomeCancelled OutcomeKind = "cancelled"
	OutcomePending   OutcomeKind = "pending"
	OutcomeFailed    OutcomeKind = "failed"
)

// Failure reason codes carried by failed purchase outcomes. Callers
// compare codes, never message text.
const (
	ReasonVerificationFailed = "verification_failed"
	ReasonStorefrontError    = "storefront_error"
	ReasonUnknownProduct     = "unknown_product"
)

// PurchaseOutcome is the result of an explicit purchase call.
// Transaction is set only for OutcomeEntitled; Reason only for
// OutcomeFailed.
type PurchaseOutcome struct {
	Kind        OutcomeKind
	Transaction *Transaction
	Reason      string
}

// Status is the current entitlement state. It is always recomputed
// wholesale from the verified entitlement set, never patched.
type Status struct {
	IsSubscribed     bool
	ActiveProductIDs map[string]struct{}
}

func (s Status) clone() Status {
	out := Status{IsSubscribed: s.IsSubscribed}
	if s.ActiveProductIDs != nil {
		out.ActiveProductIDs = make(map[string]struct{}, len(s.ActiveProductIDs))
		for id := range s.ActiveProductIDs {
			out.ActiveProductIDs[id] = struct{}{}
		}
	}
	return out
}

// Active reports whether the given product id backs a current verified
// entitlement.
func (s Status) Active(productID string) bool {
	_, ok := s.ActiveProductIDs[productID]
	return ok
}
