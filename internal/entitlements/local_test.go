package entitlements_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"pixelpress/internal/entitlements"
)

func newLocalStorefront(t *testing.T) *entitlements.LocalStorefront {
	t.Helper()
	return entitlements.NewLocalStorefront(
		filepath.Join(t.TempDir(), "receipts.json"),
		[]string{"pixelpress_weekly", "pixelpress_monthly", "pixelpress_lifetime"},
	)
}

func TestLocalStorefrontPurchasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipts.json")
	ids := []string{"pixelpress_monthly"}
	storefront := entitlements.NewLocalStorefront(path, ids)
	ctx := context.Background()

	products, err := storefront.FetchProducts(ctx, ids)
	if err != nil {
		t.Fatalf("fetch products: %v", err)
	}
	if len(products) != 1 || products[0].Period != entitlements.PeriodMonthly {
		t.Fatalf("catalog: %+v", products)
	}

	result, err := storefront.Purchase(ctx, products[0])
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if result.Kind != entitlements.PurchasePurchased || !result.Signed.Verified {
		t.Fatalf("purchase result: %+v", result)
	}
	if err := storefront.Acknowledge(ctx, result.Signed.Transaction); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}

	// A fresh instance over the same file sees the receipt.
	reopened := entitlements.NewLocalStorefront(path, ids)
	entitled, err := reopened.CurrentEntitlements(ctx)
	if err != nil {
		t.Fatalf("current entitlements: %v", err)
	}
	if len(entitled) != 1 || entitled[0].Transaction.ProductID != "pixelpress_monthly" || !entitled[0].Verified {
		t.Fatalf("entitlements: %+v", entitled)
	}
}

func TestLocalStorefrontUpdatesCloseOnCancel(t *testing.T) {
	storefront := newLocalStorefront(t)

	ctx, cancel := context.WithCancel(context.Background())
	updates := storefront.TransactionUpdates(ctx)
	cancel()

	select {
	case _, ok := <-updates:
		if ok {
			t.Fatal("local storefront must not emit stream events")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("updates channel not closed after cancel")
	}
}
