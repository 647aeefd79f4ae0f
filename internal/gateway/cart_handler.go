package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type CartMirror interface {
	Refresh(ctx context.Context) (domain.CartSnapshot, error)
	AddItem(ctx context.Context, productID int64, size string, quantity int) (domain.CartSnapshot, error)
	RemoveItem(ctx context.Context, lineID int64) (domain.CartSnapshot, error)
	SetQuantity(ctx context.Context, lineID int64, quantity int) (domain.CartSnapshot, error)
}

type CartHandler struct {
	mirror  CartMirror
	timeout time.Duration
}

func NewCartHandler(mirror CartMirror, timeout time.Duration) *CartHandler {
	return &CartHandler{
		mirror:  mirror,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID int64  `json:"product_id"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponseDTO struct {
	Items     []domain.CartLine `json:"items"`
	ItemCount int               `json:"item_count"`
	Total     float64           `json:"total"`
}

func toCartResponse(s domain.CartSnapshot) CartResponseDTO {
	items := s.Lines
	if items == nil {
		items = make([]domain.CartLine, 0)
	}
	return CartResponseDTO{
		Items:     items,
		ItemCount: s.ItemCount(),
		Total:     s.Total(),
	}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	snapshot, err := h.mirror.Refresh(ctx)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(snapshot))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Size == "" {
		respondError(w, http.StatusBadRequest, "invalid_size", "size is required")
		return
	}
	// zero means the default quantity of one; stock limits are the
	// remote authority's to enforce
	if req.Quantity < 0 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must not be negative")
		return
	}

	snapshot, err := h.mirror.AddItem(ctx, req.ProductID, req.Size, req.Quantity)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toCartResponse(snapshot))
}

// PUT /api/v1/cart/items/{line_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	lineID, ok := lineIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	snapshot, err := h.mirror.SetQuantity(ctx, lineID, req.Quantity)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(snapshot))
}

// DELETE /api/v1/cart/items/{line_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	lineID, ok := lineIDParam(w, r)
	if !ok {
		return
	}

	snapshot, err := h.mirror.RemoveItem(ctx, lineID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(snapshot))
}

func lineIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	lineID, err := strconv.ParseInt(chi.URLParam(r, "line_id"), 10, 64)
	if err != nil || lineID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_line_id", "line_id must be a positive integer")
		return 0, false
	}
	return lineID, true
}
