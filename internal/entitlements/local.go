package entitlements

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"pixelpress/internal/fileutil"
)

// LocalStorefront is a file-backed storefront for environments without
// a platform store attached. Receipts live in a JSON file; purchases
// append a verified receipt and entitlements are read back from disk,
// so restore and status behave like the real flow end to end.
type LocalStorefront struct {
	mu   sync.Mutex
	path string

	catalog []Product
}

type localReceipt struct {
	TransactionID string `json:"transaction_id"`
	ProductID     string `json:"product_id"`
	Acknowledged  bool   `json:"acknowledged"`
}

// NewLocalStorefront builds a storefront persisting receipts at path.
// The catalog is synthesized from the configured product ids.
func NewLocalStorefront(path string, productIDs []string) *LocalStorefront {
	catalog := make([]Product, 0, len(productIDs))
	for _, id := range productIDs {
		catalog = append(catalog, Product{
			ID:           id,
			DisplayPrice: localDisplayPrice(periodForProductID(id)),
			Period:       periodForProductID(id),
		})
	}
	return &LocalStorefront{
		path:    path,
		catalog: catalog,
	}
}

func periodForProductID(id string) PeriodKind {
	switch {
	case strings.HasSuffix(id, "weekly"):
		return PeriodWeekly
	case strings.HasSuffix(id, "lifetime"):
		return PeriodLifetime
	default:
		return PeriodMonthly
	}
}

func localDisplayPrice(period PeriodKind) string {
	switch period {
	case PeriodWeekly:
		return "$1.99"
	case PeriodLifetime:
		return "$29.99"
	default:
		return "$4.99"
	}
}

func (s *LocalStorefront) FetchProducts(_ context.Context, ids []string) ([]Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ids) == 0 {
		return append([]Product(nil), s.catalog...), nil
	}
	byID := make(map[string]Product, len(s.catalog))
	for _, product := range s.catalog {
		byID[product.ID] = product
	}
	products := make([]Product, 0, len(ids))
	for _, id := range ids {
		if product, ok := byID[id]; ok {
			products = append(products, product)
		}
	}
	return products, nil
}

func (s *LocalStorefront) Purchase(_ context.Context, product Product) (PurchaseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	receipts, err := s.readReceipts()
	if err != nil {
		return PurchaseResult{}, err
	}

	receipt := localReceipt{
		TransactionID: ulid.Make().String(),
		ProductID:     product.ID,
	}
	receipts = append(receipts, receipt)
	if err := s.writeReceipts(receipts); err != nil {
		return PurchaseResult{}, err
	}

	return PurchaseResult{
		Kind: PurchasePurchased,
		Signed: VerificationResult{
			Transaction: Transaction{ID: receipt.TransactionID, ProductID: receipt.ProductID},
			Verified:    true,
		},
	}, nil
}

func (s *LocalStorefront) SyncEntitlements(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.readReceipts()
	return err
}

func (s *LocalStorefront) CurrentEntitlements(context.Context) ([]VerificationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	receipts, err := s.readReceipts()
	if err != nil {
		return nil, err
	}
	results := make([]VerificationResult, 0, len(receipts))
	for _, receipt := range receipts {
		results = append(results, VerificationResult{
			Transaction: Transaction{ID: receipt.TransactionID, ProductID: receipt.ProductID},
			Verified:    true,
		})
	}
	return results, nil
}

// TransactionUpdates never carries events for the local storefront;
// the channel only closes when ctx is cancelled, as the interface
// promises.
func (s *LocalStorefront) TransactionUpdates(ctx context.Context) <-chan VerificationResult {
	updates := make(chan VerificationResult)
	go func() {
		<-ctx.Done()
		close(updates)
	}()
	return updates
}

func (s *LocalStorefront) Acknowledge(_ context.Context, tx Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	receipts, err := s.readReceipts()
	if err != nil {
		return err
	}
	for i := range receipts {
		if receipts[i].TransactionID == tx.ID {
			receipts[i].Acknowledged = true
		}
	}
	return s.writeReceipts(receipts)
}

func (s *LocalStorefront) readReceipts() ([]localReceipt, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read receipts: %w", err)
	}
	var receipts []localReceipt
	if err := json.Unmarshal(data, &receipts); err != nil {
		return nil, fmt.Errorf("parse receipts: %w", err)
	}
	return receipts, nil
}

func (s *LocalStorefront) writeReceipts(receipts []localReceipt) error {
	data, err := json.MarshalIndent(receipts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode receipts: %w", err)
	}
	if err := fileutil.WriteAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write receipts: %w", err)
	}
	return nil
}
