package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type OrdersClient interface {
	Checkout(ctx context.Context, phoneNumber string) (*domain.CheckoutReceipt, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	DownloadReceipt(ctx context.Context, orderID int64, w io.Writer) (int64, error)
	CreatePayPalOrder(ctx context.Context) (string, error)
	CapturePayPalPayment(ctx context.Context, paypalOrderID string) (*domain.PaymentCapture, error)
}

type OrderWatcher interface {
	Wait(ctx context.Context, orderID int64, onUpdate func(*domain.Order)) (*domain.Order, error)
}

type OrdersHandler struct {
	orders  OrdersClient
	watcher OrderWatcher
	mirror  CartMirror
	timeout time.Duration
	logger  *zap.Logger
}

func NewOrdersHandler(orders OrdersClient, watcher OrderWatcher, mirror CartMirror, timeout time.Duration, logger *zap.Logger) *OrdersHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrdersHandler{
		orders:  orders,
		watcher: watcher,
		mirror:  mirror,
		timeout: timeout,
		logger:  logger,
	}
}

type CheckoutRequestDTO struct {
	PhoneNumber string `json:"phone_number"`
}

// POST /api/v1/checkout
func (h *OrdersHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	if req.PhoneNumber == "" {
		respondError(w, http.StatusBadRequest, "missing_phone_number", "phone_number is required")
		return
	}

	receipt, err := h.orders.Checkout(ctx, req.PhoneNumber)
	if err != nil {
		handleError(w, err)
		return
	}

	// the remote side empties the cart on checkout
	if _, err := h.mirror.Refresh(ctx); err != nil {
		h.logger.Warn("cart refresh after checkout failed",
			zap.Int64("order_id", receipt.OrderID),
			zap.Error(err))
	}

	respondJSON(w, http.StatusCreated, receipt)
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.orders.ListOrders(ctx)
	if err != nil {
		handleError(w, err)
		return
	}
	if orders == nil {
		orders = make([]domain.Order, 0)
	}

	respondJSON(w, http.StatusOK, orders)
}

type PayPalOrderResponseDTO struct {
	PayPalOrderID string `json:"paypal_order_id"`
}

// POST /api/v1/checkout/paypal
func (h *OrdersHandler) CreatePayPalOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := h.orders.CreatePayPalOrder(ctx)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, PayPalOrderResponseDTO{PayPalOrderID: id})
}

// POST /api/v1/checkout/paypal/{paypal_order_id}/capture
func (h *OrdersHandler) CapturePayPalPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	capture, err := h.orders.CapturePayPalPayment(ctx, chi.URLParam(r, "paypal_order_id"))
	if err != nil {
		handleError(w, err)
		return
	}

	if _, err := h.mirror.Refresh(ctx); err != nil {
		h.logger.Warn("cart refresh after payment capture failed",
			zap.Int64("order_id", capture.OrderID),
			zap.Error(err))
	}

	respondJSON(w, http.StatusOK, capture)
}

// GET /api/v1/orders/{order_id}/receipt
func (h *OrdersHandler) DownloadReceipt(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	// buffered so a failed download still gets a JSON error
	var buf bytes.Buffer
	if _, err := h.orders.DownloadReceipt(ctx, orderID, &buf); err != nil {
		handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=receipt_order_%d.pdf", orderID))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("failed to write receipt", zap.Int64("order_id", orderID), zap.Error(err))
	}
}

func orderIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "order_id"), 10, 64)
	if err != nil || orderID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a positive integer")
		return 0, false
	}
	return orderID, true
}

// GET /api/v1/orders/{order_id}
//
// With ?wait=true the request blocks until the order leaves pending, bounded
// by the request timeout.
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var (
		order *domain.Order
		err   error
	)
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		order, err = h.watcher.Wait(ctx, orderID, nil)
	} else {
		order, err = h.orders.GetOrder(ctx, orderID)
	}
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}
