package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type checkoutRequestDTO struct {
	PhoneNumber string `json:"phone_number"`
}

// Checkout starts payment for every unpaid line in the cart. The order stays
// pending until the payment provider calls back into the remote authority.
func (c *Client) Checkout(ctx context.Context, phoneNumber string) (*domain.CheckoutReceipt, error) {
	var receipt domain.CheckoutReceipt
	if err := c.do(ctx, http.MethodPost, "/orders/checkout", nil, checkoutRequestDTO{PhoneNumber: phoneNumber}, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) ListOrders(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	if err := c.do(ctx, http.MethodGet, "/orders/", nil, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	var order domain.Order
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", orderID), nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// DownloadReceipt streams the PDF receipt of a completed order into w. The
// remote authority only issues receipts for completed, paid orders.
func (c *Client) DownloadReceipt(ctx context.Context, orderID int64, w io.Writer) (int64, error) {
	path := fmt.Sprintf("/orders/%d/receipt", orderID)
	resp, err := c.send(ctx, http.MethodGet, path, nil, nil, "application/pdf")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("read receipt for order %d: %w", orderID, err)
	}
	return n, nil
}
