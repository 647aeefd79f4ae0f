package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

type Newsletter interface {
	SubscribeNewsletter(ctx context.Context, email string) error
}

type NewsletterHandler struct {
	newsletter Newsletter
	timeout    time.Duration
}

func NewNewsletterHandler(n Newsletter, timeout time.Duration) *NewsletterHandler {
	return &NewsletterHandler{
		newsletter: n,
		timeout:    timeout,
	}
}

type SubscribeRequestDTO struct {
	Email string `json:"email"`
}

// POST /api/v1/newsletter
func (h *NewsletterHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SubscribeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		respondError(w, http.StatusBadRequest, "missing_email", "email is required")
		return
	}

	if err := h.newsletter.SubscribeNewsletter(ctx, req.Email); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "subscribed"})
}
