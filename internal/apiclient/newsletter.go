package apiclient

import (
	"context"
	"net/http"
)

type subscribeRequestDTO struct {
	Email string `json:"email"`
}

// SubscribeNewsletter registers email for the shop newsletter. No credential
// is needed.
func (c *Client) SubscribeNewsletter(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/newsletter/subscribe", nil, subscribeRequestDTO{Email: email}, nil)
}
