package session

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// CallbackToken extracts the credential from the redirect that ends a
// federated login, e.g. https://shop.example/login/success?token=....
// A redirect to /login/failure, or one without a token, is an AuthError.
func CallbackToken(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", &domain.AuthError{Reason: "malformed login callback", Err: fmt.Errorf("parse callback url: %w", err)}
	}
	if path.Base(u.Path) == "failure" {
		return "", &domain.AuthError{Reason: "federated login failed"}
	}
	token := strings.TrimSpace(u.Query().Get("token"))
	if token == "" {
		return "", &domain.AuthError{Reason: "federated login returned no token"}
	}
	return token, nil
}
