package entitlements

import (
	"errors"

	"pixelpress/internal/services"
)

// ErrVerificationFailed marks a transaction whose authenticity check
// did not pass. Unverified transactions are never counted toward
// entitlement status.
var ErrVerificationFailed = errors.New("transaction verification failed")

// Verifier classifies a storefront verification result. Implementations
// are stateless and side-effect free.
type Verifier interface {
	CheckVerified(res VerificationResult) (Transaction, error)
}

// NewVerifier returns the default verifier, which trusts the
// storefront's signature check outcome and rejects everything else.
func NewVerifier() Verifier {
	return strictVerifier{}
}

type strictVerifier struct{}

func (strictVerifier) CheckVerified(res VerificationResult) (Transaction, error) {
	if !res.Verified {
		return Transaction{}, services.Wrap(
			ErrVerificationFailed, "entitlements", "check_verified",
			"transaction "+res.Transaction.ID+" is unverified", nil,
		)
	}
	if res.Transaction.ID == "" || res.Transaction.ProductID == "" {
		return Transaction{}, services.Wrap(
			ErrVerificationFailed, "entitlements", "check_verified",
			"transaction is missing identity fields", nil,
		)
	}
	return res.Transaction, nil
}
