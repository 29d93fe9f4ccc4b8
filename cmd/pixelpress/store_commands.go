package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"pixelpress/internal/entitlements"
	"pixelpress/internal/notifications"
)

func newStoreCommand(cmdCtx *commandContext) *cobra.Command {
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Storefront and entitlement operations",
	}

	storeCmd.AddCommand(newStoreStatusCommand(cmdCtx))
	storeCmd.AddCommand(newStoreProductsCommand(cmdCtx))
	storeCmd.AddCommand(newStorePurchaseCommand(cmdCtx))
	storeCmd.AddCommand(newStoreRestoreCommand(cmdCtx))

	return storeCmd
}

// withManager builds an entitlement manager over the file-backed local
// storefront, runs fn, and tears the manager down.
func withManager(cmdCtx *commandContext, fn func(*entitlements.Manager) error) error {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := cmdCtx.newLogger()
	if err != nil {
		return err
	}

	storefront := entitlements.NewLocalStorefront(
		filepath.Join(cfg.Paths.DataDir, "receipts.json"),
		cfg.Store.ProductIDs,
	)
	notifier := notifications.NewService(cfg)
	mgr := entitlements.New(cfg, storefront, entitlements.NewVerifier(), notifier, logger)
	defer mgr.Close()

	return fn(mgr)
}

func newStoreStatusCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show entitlement status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmdCtx, func(mgr *entitlements.Manager) error {
				status, err := mgr.Status(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				colorize := isTerminal(out)
				kind := statusWarn
				message := "not subscribed"
				if status.IsSubscribed {
					kind = statusOK
					message = "subscribed"
				}
				fmt.Fprintln(out, renderStatusLine("Subscription", kind, message, colorize))

				active := make([]string, 0, len(status.ActiveProductIDs))
				for id := range status.ActiveProductIDs {
					active = append(active, id)
				}
				sort.Strings(active)
				for _, id := range active {
					product, ok, err := mgr.GetProduct(cmd.Context(), id)
					label := id
					if err == nil && ok {
						label = fmt.Sprintf("%s (%s, %s)", id, periodLabel(product.Period), product.DisplayPrice)
					}
					fmt.Fprintln(out, renderStatusLine("Active", statusInfo, label, colorize))
				}
				return nil
			})
		},
	}
}

func newStoreProductsCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "List purchasable products",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmdCtx, func(mgr *entitlements.Manager) error {
				products, err := mgr.Products(cmd.Context())
				if err != nil {
					return err
				}
				if len(products) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No products available")
					return nil
				}

				rows := make([][]string, 0, len(products))
				for _, product := range products {
					rows = append(rows, []string{product.ID, periodLabel(product.Period), product.DisplayPrice})
				}
				rendered := renderTable(
					[]string{"PRODUCT", "PERIOD", "PRICE"},
					rows,
					2,
				)
				fmt.Fprintln(cmd.OutOrStdout(), rendered)
				return nil
			})
		},
	}
}

func newStorePurchaseCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "purchase <product-id>",
		Short: "Purchase a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmdCtx, func(mgr *entitlements.Manager) error {
				outcome, err := mgr.Purchase(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				switch outcome.Kind {
				case entitlements.OutcomeEntitled:
					fmt.Fprintf(out, "Purchase complete, transaction %s\n", outcome.Transaction.ID)
					return nil
				case entitlements.OutcomeCancelled:
					fmt.Fprintln(out, "Purchase cancelled")
					return nil
				case entitlements.OutcomePending:
					fmt.Fprintln(out, "Purchase pending approval")
					return nil
				default:
					return fmt.Errorf("purchase failed: %s", outcome.Reason)
				}
			})
		},
	}
}

func newStoreRestoreCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Restore previous purchases",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmdCtx, func(mgr *entitlements.Manager) error {
				if err := mgr.RestorePurchases(cmd.Context()); err != nil {
					return err
				}
				status, err := mgr.Status(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restore complete, subscribed: %s\n", yesNo(status.IsSubscribed))
				return nil
			})
		},
	}
}
