package entitlements

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"pixelpress/internal/config"
	"pixelpress/internal/logging"
	"pixelpress/internal/notifications"
	"pixelpress/internal/services"
)

// ErrManagerClosed is returned by all operations after Close.
var ErrManagerClosed = errors.New("entitlement manager closed")

// Manager owns entitlement status for the process. It is explicitly
// constructed and torn down with Close; nothing here is global.
//
// Like the conversion session, all state lives on one owner goroutine.
// That goroutine consumes the storefront's transaction stream for the
// manager's lifetime and serializes purchase and restore calls with it,
// so status recomputation never races with stream delivery.
type Manager struct {
	storefront Storefront
	verifier   Verifier
	notifier   notifications.Service
	logger     *slog.Logger

	productIDs []string

	cmds      chan managerCommand
	done      chan struct{}
	cancelRun context.CancelFunc
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// managerState is the loop-owned mutable state.
type managerState struct {
	catalog     []Product
	catalogByID map[string]Product
	status      Status
}

type managerCommand interface{ isManagerCommand() }

type purchaseCmd struct {
	ctx       context.Context
	productID string
	reply     chan PurchaseOutcome
}

type restoreCmd struct {
	ctx   context.Context
	reply chan error
}

type refreshCatalogCmd struct {
	ctx   context.Context
	reply chan error
}

type statusCmd struct {
	reply chan Status
}

type productsCmd struct {
	reply chan []Product
}

type getProductCmd struct {
	id    string
	reply chan productReply
}

type productReply struct {
	product Product
	ok      bool
}

func (purchaseCmd) isManagerCommand()       {}
func (restoreCmd) isManagerCommand()        {}
func (refreshCatalogCmd) isManagerCommand() {}
func (statusCmd) isManagerCommand()         {}
func (productsCmd) isManagerCommand()       {}
func (getProductCmd) isManagerCommand()     {}

// New constructs a manager and starts its owner goroutine. The catalog
// is fetched once during startup; a fetch failure leaves it empty until
// RefreshCatalog is called, it is never fatal.
func New(cfg *config.Config, storefront Storefront, verifier Verifier, notifier notifications.Service, logger *slog.Logger) *Manager {
	if verifier == nil {
		verifier = NewVerifier()
	}

	m := &Manager{
		storefront: storefront,
		verifier:   verifier,
		notifier:   notifier,
		logger:     logging.NewComponentLogger(logger, "entitlements"),
		productIDs: append([]string(nil), cfg.Store.ProductIDs...),
		cmds:       make(chan managerCommand),
		done:       make(chan struct{}),
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m.cancelRun = cancel
	m.wg.Add(1)
	go m.run(runCtx)

	return m
}

// Close cancels the transaction listener and stops the owner goroutine.
// It is idempotent; a second call is a no-op.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.cancelRun()
		m.wg.Wait()
		close(m.done)
	})
}

// Purchase runs the purchase flow for the catalog product with the
// given id. Storefront failures and verification failures are reported
// as failed outcomes with a reason code; the returned error is reserved
// for context cancellation and manager shutdown.
func (m *Manager) Purchase(ctx context.Context, productID string) (PurchaseOutcome, error) {
	reply := make(chan PurchaseOutcome, 1)
	if err := m.post(ctx, purchaseCmd{ctx: ctx, productID: productID, reply: reply}); err != nil {
		return PurchaseOutcome{}, err
	}
	select {
	case outcome := <-reply:
		return outcome, nil
	case <-ctx.Done():
		return PurchaseOutcome{}, ctx.Err()
	case <-m.done:
		return PurchaseOutcome{}, ErrManagerClosed
	}
}

// RestorePurchases resynchronizes entitlements with the storefront and
// recomputes status from the result. Calling it when already subscribed
// leaves the status unchanged.
func (m *Manager) RestorePurchases(ctx context.Context) error {
	reply := make(chan error, 1)
	if err := m.post(ctx, restoreCmd{ctx: ctx, reply: reply}); err != nil {
		return err
	}
	return m.awaitErr(ctx, reply)
}

// RefreshCatalog refetches product metadata. On failure the previous
// catalog stays in place.
func (m *Manager) RefreshCatalog(ctx context.Context) error {
	reply := make(chan error, 1)
	if err := m.post(ctx, refreshCatalogCmd{ctx: ctx, reply: reply}); err != nil {
		return err
	}
	return m.awaitErr(ctx, reply)
}

// Status returns a copy of the current entitlement status.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	reply := make(chan Status, 1)
	if err := m.post(ctx, statusCmd{reply: reply}); err != nil {
		return Status{}, err
	}
	select {
	case status := <-reply:
		return status, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	case <-m.done:
		return Status{}, ErrManagerClosed
	}
}

// Products returns the catalog in fetch order.
func (m *Manager) Products(ctx context.Context) ([]Product, error) {
	reply := make(chan []Product, 1)
	if err := m.post(ctx, productsCmd{reply: reply}); err != nil {
		return nil, err
	}
	select {
	case products := <-reply:
		return products, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.done:
		return nil, ErrManagerClosed
	}
}

// GetProduct looks up one catalog entry by product id.
func (m *Manager) GetProduct(ctx context.Context, id string) (Product, bool, error) {
	reply := make(chan productReply, 1)
	if err := m.post(ctx, getProductCmd{id: id, reply: reply}); err != nil {
		return Product{}, false, err
	}
	select {
	case res := <-reply:
		return res.product, res.ok, nil
	case <-ctx.Done():
		return Product{}, false, ctx.Err()
	case <-m.done:
		return Product{}, false, ErrManagerClosed
	}
}

func (m *Manager) post(ctx context.Context, cmd managerCommand) error {
	select {
	case m.cmds <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrManagerClosed
	}
}

func (m *Manager) awaitErr(ctx context.Context, reply chan error) error {
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrManagerClosed
	}
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	st := &managerState{catalogByID: map[string]Product{}}

	if err := m.fetchCatalog(ctx, st); err != nil {
		m.logger.Warn("initial catalog fetch failed",
			logging.String(logging.FieldEventType, "catalog_fetch_failed"),
			logging.Error(err),
		)
	}
	if err := m.recompute(ctx, st); err != nil {
		m.logger.Warn("initial entitlement sync failed",
			logging.String(logging.FieldEventType, "entitlement_sync_failed"),
			logging.Error(err),
		)
	}

	updates := m.storefront.TransactionUpdates(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			m.handleStreamTransaction(ctx, st, res)
		case cmd := <-m.cmds:
			m.apply(st, cmd)
		}
	}
}

func (m *Manager) apply(st *managerState, cmd managerCommand) {
	switch c := cmd.(type) {
	case purchaseCmd:
		c.reply <- m.applyPurchase(c.ctx, st, c.productID)
	case restoreCmd:
		c.reply <- m.applyRestore(c.ctx, st)
	case refreshCatalogCmd:
		c.reply <- m.fetchCatalog(c.ctx, st)
	case statusCmd:
		c.reply <- st.status.clone()
	case productsCmd:
		c.reply <- append([]Product(nil), st.catalog...)
	case getProductCmd:
		product, ok := st.catalogByID[c.id]
		c.reply <- productReply{product: product, ok: ok}
	}
}

// handleStreamTransaction processes one event from the continuous
// update stream. Unverified transactions are discarded and logged,
// never counted.
func (m *Manager) handleStreamTransaction(ctx context.Context, st *managerState, res VerificationResult) {
	tx, err := m.verifier.CheckVerified(res)
	if err != nil {
		m.logger.Warn("unverified transaction discarded",
			logging.String(logging.FieldEventType, "transaction_discarded"),
			logging.String(logging.FieldTransactionID, res.Transaction.ID),
			logging.Error(err),
		)
		return
	}

	if err := m.storefront.Acknowledge(ctx, tx); err != nil {
		m.logger.Warn("transaction acknowledge failed",
			logging.String(logging.FieldTransactionID, tx.ID),
			logging.Error(err),
		)
	}
	if err := m.recompute(ctx, st); err != nil {
		m.logger.Warn("status recompute failed",
			logging.String(logging.FieldEventType, "entitlement_sync_failed"),
			logging.Error(err),
		)
	}
}

func (m *Manager) applyPurchase(ctx context.Context, st *managerState, productID string) PurchaseOutcome {
	product, ok := st.catalogByID[productID]
	if !ok {
		return PurchaseOutcome{Kind: OutcomeFailed, Reason: ReasonUnknownProduct}
	}

	result, err := m.storefront.Purchase(ctx, product)
	if err != nil {
		m.logger.Warn("storefront purchase failed",
			logging.String(logging.FieldProductID, productID),
			logging.Error(err),
		)
		return PurchaseOutcome{Kind: OutcomeFailed, Reason: ReasonStorefrontError}
	}

	switch result.Kind {
	case PurchaseCancelled:
		return PurchaseOutcome{Kind: OutcomeCancelled}
	case PurchasePending:
		return PurchaseOutcome{Kind: OutcomePending}
	case PurchasePurchased:
	default:
		return PurchaseOutcome{Kind: OutcomeFailed, Reason: ReasonStorefrontError}
	}

	// The storefront said purchased; it still has to pass local
	// verification before it is finalized or counted.
	tx, err := m.verifier.CheckVerified(result.Signed)
	if err != nil {
		m.logger.Warn("purchased transaction failed verification",
			logging.String(logging.FieldEventType, "transaction_discarded"),
			logging.String(logging.FieldProductID, productID),
			logging.String(logging.FieldTransactionID, result.Signed.Transaction.ID),
			logging.Error(err),
		)
		return PurchaseOutcome{Kind: OutcomeFailed, Reason: ReasonVerificationFailed}
	}

	if err := m.storefront.Acknowledge(ctx, tx); err != nil {
		m.logger.Warn("transaction acknowledge failed",
			logging.String(logging.FieldTransactionID, tx.ID),
			logging.Error(err),
		)
	}
	if err := m.recompute(ctx, st); err != nil {
		m.logger.Warn("status recompute failed",
			logging.String(logging.FieldEventType, "entitlement_sync_failed"),
			logging.Error(err),
		)
	}

	m.logger.Info("purchase entitled",
		logging.String(logging.FieldEventType, "purchase_entitled"),
		logging.String(logging.FieldProductID, tx.ProductID),
		logging.String(logging.FieldTransactionID, tx.ID),
	)
	if m.notifier != nil {
		if err := m.notifier.NotifyPurchaseCompleted(ctx, tx.ProductID); err != nil {
			m.logger.Debug("purchase notification failed", logging.Error(err))
		}
	}
	return PurchaseOutcome{Kind: OutcomeEntitled, Transaction: &tx}
}

func (m *Manager) applyRestore(ctx context.Context, st *managerState) error {
	if err := m.storefront.SyncEntitlements(ctx); err != nil {
		return services.Wrap(services.ErrExternalService, "entitlements", "restore", "sync entitlements", err)
	}
	if err := m.recompute(ctx, st); err != nil {
		return err
	}
	m.logger.Info("purchases restored",
		logging.String(logging.FieldEventType, "purchases_restored"),
		logging.Bool("subscribed", st.status.IsSubscribed),
	)
	return nil
}

func (m *Manager) fetchCatalog(ctx context.Context, st *managerState) error {
	products, err := m.storefront.FetchProducts(ctx, m.productIDs)
	if err != nil {
		return services.Wrap(services.ErrExternalService, "entitlements", "fetch_catalog", "fetch products", err)
	}

	st.catalog = products
	st.catalogByID = make(map[string]Product, len(products))
	for _, product := range products {
		st.catalogByID[product.ID] = product
	}
	m.logger.Info("catalog loaded",
		logging.String(logging.FieldEventType, "catalog_loaded"),
		logging.Int("products", len(products)),
	)
	return nil
}

// recompute rebuilds status wholesale from the storefront's current
// entitlement set, counting verified entries only. The prior status is
// kept untouched when the entitlement set cannot be read.
func (m *Manager) recompute(ctx context.Context, st *managerState) error {
	entitlements, err := m.storefront.CurrentEntitlements(ctx)
	if err != nil {
		return services.Wrap(services.ErrExternalService, "entitlements", "recompute", "read current entitlements", err)
	}

	next := Status{ActiveProductIDs: map[string]struct{}{}}
	for _, res := range entitlements {
		tx, err := m.verifier.CheckVerified(res)
		if err != nil {
			m.logger.Warn("unverified entitlement discarded",
				logging.String(logging.FieldEventType, "transaction_discarded"),
				logging.String(logging.FieldTransactionID, res.Transaction.ID),
				logging.Error(err),
			)
			continue
		}
		next.ActiveProductIDs[tx.ProductID] = struct{}{}
	}
	next.IsSubscribed = len(next.ActiveProductIDs) > 0

	changed := next.IsSubscribed != st.status.IsSubscribed ||
		len(next.ActiveProductIDs) != len(st.status.ActiveProductIDs)
	st.status = next

	if changed {
		m.logger.Info("entitlement status recomputed",
			logging.String(logging.FieldEventType, "status_recomputed"),
			logging.Bool("subscribed", next.IsSubscribed),
			logging.Int("active_products", len(next.ActiveProductIDs)),
		)
	}
	return nil
}
