package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	itemSize     string
	itemQuantity int
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Show and change the cart",
}

var cartShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Fetch and print the cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			snapshot, err := a.mirror.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), snapshot)
		})
	},
}

var cartAddCmd = &cobra.Command{
	Use:   "add [product-id]",
	Short: "Add a product in a size to the cart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		productID, err := parseID(args[0], "product id")
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app) error {
			snapshot, err := a.mirror.AddItem(cmd.Context(), productID, itemSize, itemQuantity)
			if err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), snapshot)
		})
	},
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove [line-id]",
	Short: "Remove a line from the cart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lineID, err := parseID(args[0], "line id")
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app) error {
			snapshot, err := a.mirror.RemoveItem(cmd.Context(), lineID)
			if err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), snapshot)
		})
	},
}

var cartSetCmd = &cobra.Command{
	Use:   "set [line-id] [quantity]",
	Short: "Set the quantity of a cart line (0 removes it)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lineID, err := parseID(args[0], "line id")
		if err != nil {
			return err
		}
		quantity, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid quantity %q: %w", args[1], err)
		}
		return withApp(cmd.Context(), func(a *app) error {
			snapshot, err := a.mirror.SetQuantity(cmd.Context(), lineID, quantity)
			if err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), snapshot)
		})
	},
}

func parseID(raw, what string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, raw)
	}
	return id, nil
}

func init() {
	cartAddCmd.Flags().StringVarP(&itemSize, "size", "s", "", "shoe size")
	cartAddCmd.Flags().IntVarP(&itemQuantity, "quantity", "q", 1, "quantity to add")
	_ = cartAddCmd.MarkFlagRequired("size")

	cartCmd.AddCommand(cartShowCmd, cartAddCmd, cartRemoveCmd, cartSetCmd)
}
