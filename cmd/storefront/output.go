package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

func printCart(w io.Writer, s domain.CartSnapshot) error {
	if s.IsEmpty() {
		_, err := fmt.Fprintln(w, "cart is empty")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tPRODUCT\tSIZE\tQTY\tPRICE\tSUBTOTAL")
	for _, l := range s.Lines {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%.2f\t%.2f\n", l.ID, l.Product.Name, l.Size, l.Quantity, l.Product.Price, l.Subtotal())
	}
	fmt.Fprintf(tw, "\t\t\t%d\t\t%.2f\n", s.ItemCount(), s.Total())
	return tw.Flush()
}

func printProducts(w io.Writer, page *domain.ProductPage) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tBRAND\tPRICE\tSTOCK\tSIZES")
	for _, p := range page.Products {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%d\t%s\n", p.ID, p.Name, p.Brand, p.Price, p.Stock, strings.Join(p.Sizes, ","))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "page %d of %d (%d results)\n", page.CurrentPage, page.Pages, page.Total)
	return err
}

func printProduct(w io.Writer, p *domain.Product) error {
	_, err := fmt.Fprintf(w, "%s (%s)\nprice: %.2f\nstock: %d\nsizes: %s\n\n%s\n",
		p.Name, p.Brand, p.Price, p.Stock, strings.Join(p.Sizes, ", "), p.Description)
	return err
}

func printOrders(w io.Writer, orders []domain.Order) error {
	if len(orders) == 0 {
		_, err := fmt.Fprintln(w, "no orders yet")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTOTAL\tITEMS\tCREATED")
	for _, o := range orders {
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%d\t%s\n", o.ID, o.Status, o.TotalAmount, len(o.Items), o.CreatedAt)
	}
	return tw.Flush()
}

func printOrder(w io.Writer, o *domain.Order) error {
	fmt.Fprintf(w, "order %d: %s, total %.2f\n", o.ID, o.Status, o.TotalAmount)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, item := range o.Items {
		fmt.Fprintf(tw, "  %s\t%s\t%d\t%.2f\n", item.Line.Product.Name, item.Line.Size, item.Line.Quantity, item.Line.Subtotal())
	}
	return tw.Flush()
}
