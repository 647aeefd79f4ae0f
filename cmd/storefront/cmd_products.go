package main

import (
	"github.com/spf13/cobra"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

var (
	searchBrand    string
	searchSize     string
	searchMinPrice float64
	searchMaxPrice float64
	searchPage     int
	searchPerPage  int
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Browse the catalog",
}

var productsSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search products by name, brand, size and price",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := domain.ProductFilter{
			Brand:   searchBrand,
			Size:    searchSize,
			Page:    searchPage,
			PerPage: searchPerPage,
		}
		if len(args) == 1 {
			filter.Query = args[0]
		}
		if cmd.Flags().Changed("min-price") {
			filter.MinPrice = &searchMinPrice
		}
		if cmd.Flags().Changed("max-price") {
			filter.MaxPrice = &searchMaxPrice
		}
		return withApp(cmd.Context(), func(a *app) error {
			page, err := a.api.SearchProducts(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printProducts(cmd.OutOrStdout(), page)
		})
	},
}

var productsGetCmd = &cobra.Command{
	Use:   "get [product-id]",
	Short: "Show one product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		productID, err := parseID(args[0], "product id")
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app) error {
			product, err := a.api.GetProduct(cmd.Context(), productID)
			if err != nil {
				return err
			}
			return printProduct(cmd.OutOrStdout(), product)
		})
	},
}

func init() {
	f := productsSearchCmd.Flags()
	f.StringVar(&searchBrand, "brand", "", "filter by brand")
	f.StringVar(&searchSize, "size", "", "filter by available size")
	f.Float64Var(&searchMinPrice, "min-price", 0, "minimum price")
	f.Float64Var(&searchMaxPrice, "max-price", 0, "maximum price")
	f.IntVar(&searchPage, "page", 1, "page number")
	f.IntVar(&searchPerPage, "per-page", domain.DefaultPerPage, "results per page")

	productsCmd.AddCommand(productsSearchCmd, productsGetCmd)
}
