package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type ProductCatalog interface {
	SearchProducts(ctx context.Context, filter domain.ProductFilter) (*domain.ProductPage, error)
	GetProduct(ctx context.Context, productID int64) (*domain.Product, error)
}

type ProductHandler struct {
	catalog ProductCatalog
	timeout time.Duration
}

func NewProductHandler(catalog ProductCatalog, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		timeout: timeout,
	}
}

// GET /api/v1/products
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}

	page, err := h.catalog.SearchProducts(ctx, filter)
	if err != nil {
		handleError(w, err)
		return
	}
	if page.Products == nil {
		page.Products = make([]domain.Product, 0)
	}

	respondJSON(w, http.StatusOK, page)
}

// GET /api/v1/products/{product_id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	product, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

func parseFilter(q url.Values) (domain.ProductFilter, error) {
	f := domain.ProductFilter{
		Query: q.Get("q"),
		Brand: q.Get("brand"),
		Size:  q.Get("size"),
	}

	var err error
	if f.MinPrice, err = floatParam(q, "min_price"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = floatParam(q, "max_price"); err != nil {
		return f, err
	}
	if f.Page, err = intParam(q, "page"); err != nil {
		return f, err
	}
	if f.PerPage, err = intParam(q, "per_page"); err != nil {
		return f, err
	}
	return f, nil
}

func floatParam(q url.Values, name string) (*float64, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, &paramError{name: name}
	}
	return &v, nil
}

func intParam(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, &paramError{name: name}
	}
	return v, nil
}

type paramError struct {
	name string
}

func (e *paramError) Error() string {
	return e.name + " must be a positive number"
}
