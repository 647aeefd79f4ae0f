package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type paypalOrderDTO struct {
	OrderID string `json:"orderID"`
}

var ErrMissingPayPalOrder = errors.New("paypal create response carried no order id")

// CreatePayPalOrder asks the remote authority to open a PayPal order for the
// current cart total. The buyer approves it with PayPal; the returned id is
// then passed to CapturePayPalPayment.
func (c *Client) CreatePayPalOrder(ctx context.Context) (string, error) {
	var resp paypalOrderDTO
	if err := c.do(ctx, http.MethodPost, "/orders/paypal/create", nil, nil, &resp); err != nil {
		return "", err
	}
	if resp.OrderID == "" {
		return "", ErrMissingPayPalOrder
	}
	return resp.OrderID, nil
}

// CapturePayPalPayment finalizes an approved PayPal order. On success the
// remote cart is paid and emptied and a completed order exists.
func (c *Client) CapturePayPalPayment(ctx context.Context, paypalOrderID string) (*domain.PaymentCapture, error) {
	if paypalOrderID == "" || strings.Contains(paypalOrderID, "/") {
		return nil, fmt.Errorf("invalid paypal order id %q", paypalOrderID)
	}
	var capture domain.PaymentCapture
	path := "/orders/paypal/" + paypalOrderID + "/capture"
	if err := c.do(ctx, http.MethodPost, path, nil, nil, &capture); err != nil {
		return nil, err
	}
	return &capture, nil
}
