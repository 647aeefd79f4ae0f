package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

func (c *Client) SearchProducts(ctx context.Context, filter domain.ProductFilter) (*domain.ProductPage, error) {
	var page domain.ProductPage
	if err := c.do(ctx, http.MethodGet, "/shoes/search", filter.Values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	var p domain.Product
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/shoes/%d", productID), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
