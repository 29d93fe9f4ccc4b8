package entitlements_test

import (
	"errors"
	"testing"

	"pixelpress/internal/entitlements"
)

func TestCheckVerified(t *testing.T) {
	verifier := entitlements.NewVerifier()

	cases := []struct {
		name    string
		res     entitlements.VerificationResult
		wantErr bool
	}{
		{
			name: "verified transaction passes",
			res: entitlements.VerificationResult{
				Transaction: entitlements.Transaction{ID: "t1", ProductID: "pixelpress_monthly"},
				Verified:    true,
			},
		},
		{
			name: "unverified transaction is rejected",
			res: entitlements.VerificationResult{
				Transaction: entitlements.Transaction{ID: "t2", ProductID: "pixelpress_monthly"},
				Verified:    false,
			},
			wantErr: true,
		},
		{
			name: "missing product id is rejected",
			res: entitlements.VerificationResult{
				Transaction: entitlements.Transaction{ID: "t3"},
				Verified:    true,
			},
			wantErr: true,
		},
		{
			name: "missing transaction id is rejected",
			res: entitlements.VerificationResult{
				Transaction: entitlements.Transaction{ProductID: "pixelpress_monthly"},
				Verified:    true,
			},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx, err := verifier.CheckVerified(tc.res)
			if tc.wantErr {
				if !errors.Is(err, entitlements.ErrVerificationFailed) {
					t.Fatalf("got %v, want ErrVerificationFailed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tx != tc.res.Transaction {
				t.Fatalf("returned transaction %+v differs from input", tx)
			}
		})
	}
}
