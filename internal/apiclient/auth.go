package apiclient

import (
	"context"
	"errors"
	"net/http"
)

type credentialsDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponseDTO struct {
	AccessToken string `json:"access_token"`
}

var ErrMissingToken = errors.New("login response carried no access token")

// Login exchanges email and password for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp loginResponseDTO
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, credentialsDTO{Email: email, Password: password}, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", ErrMissingToken
	}
	return resp.AccessToken, nil
}

func (c *Client) Register(ctx context.Context, email, password string) error {
	return c.do(ctx, http.MethodPost, "/auth/register", nil, credentialsDTO{Email: email, Password: password}, nil)
}
