package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

var (
	phoneNumber   string
	waitForOrder  bool
	receiptOutput string
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Turn the cart into an order and start the phone payment",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			out := cmd.OutOrStdout()
			receipt, err := a.api.Checkout(cmd.Context(), phoneNumber)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "order %d created: %s\n", receipt.OrderID, receipt.Message)

			if _, err := a.mirror.Refresh(cmd.Context()); err != nil {
				logger.Warn("cart refresh after checkout failed", zap.Error(err))
			}
			if !waitForOrder {
				return nil
			}
			order, err := a.watcher.Wait(cmd.Context(), receipt.OrderID, statusPrinter(cmd))
			if err != nil {
				return err
			}
			return printOrder(out, order)
		})
	},
}

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List and inspect orders",
}

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your orders, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			orders, err := a.api.ListOrders(cmd.Context())
			if err != nil {
				return err
			}
			return printOrders(cmd.OutOrStdout(), orders)
		})
	},
}

var ordersGetCmd = &cobra.Command{
	Use:   "get [order-id]",
	Short: "Show one order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orderID, err := parseID(args[0], "order id")
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app) error {
			order, err := a.api.GetOrder(cmd.Context(), orderID)
			if err != nil {
				return err
			}
			return printOrder(cmd.OutOrStdout(), order)
		})
	},
}

var ordersWatchCmd = &cobra.Command{
	Use:   "watch [order-id]",
	Short: "Poll an order until it is completed or cancelled",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orderID, err := parseID(args[0], "order id")
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app) error {
			order, err := a.watcher.Wait(cmd.Context(), orderID, statusPrinter(cmd))
			if err != nil {
				return err
			}
			return printOrder(cmd.OutOrStdout(), order)
		})
	},
}

var ordersReceiptCmd = &cobra.Command{
	Use:   "receipt [order-id]",
	Short: "Download the PDF receipt of a completed order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orderID, err := parseID(args[0], "order id")
		if err != nil {
			return err
		}
		path := receiptOutput
		if path == "" {
			path = fmt.Sprintf("receipt_order_%d.pdf", orderID)
		}
		return withApp(cmd.Context(), func(a *app) (err error) {
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create receipt file: %w", err)
			}
			defer func() {
				if cerr := f.Close(); err == nil {
					err = cerr
				}
				if err != nil {
					_ = os.Remove(path)
				}
			}()

			n, err := a.api.DownloadReceipt(cmd.Context(), orderID, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved receipt for order %d to %s (%d bytes)\n", orderID, path, n)
			return nil
		})
	},
}

func statusPrinter(cmd *cobra.Command) func(*domain.Order) {
	var last domain.OrderStatus
	return func(o *domain.Order) {
		if o.Status != last {
			fmt.Fprintf(cmd.ErrOrStderr(), "order %d: %s\n", o.ID, o.Status)
			last = o.Status
		}
	}
}

func init() {
	checkoutCmd.Flags().StringVar(&phoneNumber, "phone", "", "phone number for the payment prompt (07xx, 01xx or 254xx)")
	checkoutCmd.Flags().BoolVarP(&waitForOrder, "wait", "w", false, "wait until the payment completes or is cancelled")
	_ = checkoutCmd.MarkFlagRequired("phone")

	ordersReceiptCmd.Flags().StringVarP(&receiptOutput, "output", "o", "", "file to write the receipt to (default receipt_order_<id>.pdf)")

	ordersCmd.AddCommand(ordersListCmd, ordersGetCmd, ordersWatchCmd, ordersReceiptCmd)
}
