package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type AddItemRequestDTO struct {
	ProductID int64  `json:"shoe_id"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

func (c *Client) GetCart(ctx context.Context) ([]domain.CartLine, error) {
	var lines []domain.CartLine
	if err := c.do(ctx, http.MethodGet, "/cart/", nil, nil, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (c *Client) AddCartLine(ctx context.Context, productID int64, size string, quantity int) error {
	return c.do(ctx, http.MethodPost, "/cart/", nil, AddItemRequestDTO{
		ProductID: productID,
		Size:      size,
		Quantity:  quantity,
	}, nil)
}

func (c *Client) RemoveCartLine(ctx context.Context, lineID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/cart/%d", lineID), nil, nil, nil)
}

func (c *Client) UpdateCartLine(ctx context.Context, lineID int64, quantity int) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/cart/%d", lineID), nil, UpdateQuantityRequestDTO{Quantity: quantity}, nil)
}
