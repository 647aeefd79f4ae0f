package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var paypalCmd = &cobra.Command{
	Use:   "paypal",
	Short: "Pay for the cart with PayPal",
	Long: `Create a PayPal order for the current cart, approve it with PayPal,
then capture it to place the order.`,
}

var paypalCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a PayPal order for the current cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			id, err := a.api.CreatePayPalOrder(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "paypal order %s created\n", id)
			return nil
		})
	},
}

var paypalCaptureCmd = &cobra.Command{
	Use:   "capture [paypal-order-id]",
	Short: "Capture an approved PayPal order and place the order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			capture, err := a.api.CapturePayPalPayment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "order %d paid: %s\n", capture.OrderID, capture.Message)

			if _, err := a.mirror.Refresh(cmd.Context()); err != nil {
				logger.Warn("cart refresh after payment capture failed", zap.Error(err))
			}
			return nil
		})
	},
}

func init() {
	paypalCmd.AddCommand(paypalCreateCmd, paypalCaptureCmd)
}
