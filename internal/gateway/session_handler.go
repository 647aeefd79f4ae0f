package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/session"
)

type SessionStore interface {
	Login(ctx context.Context, email, password string) error
	LoginWithExternalToken(ctx context.Context, token string) error
	Register(ctx context.Context, email, password string) error
	Logout(ctx context.Context)
	IsAuthenticated() bool
}

type SessionHandler struct {
	session SessionStore
	timeout time.Duration
}

func NewSessionHandler(s SessionStore, timeout time.Duration) *SessionHandler {
	return &SessionHandler{
		session: s,
		timeout: timeout,
	}
}

type CredentialsRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenRequestDTO carries either a bare federated token or the redirect URL
// the identity provider sent the browser to.
type TokenRequestDTO struct {
	Token       string `json:"token"`
	CallbackURL string `json:"callback_url"`
}

type SessionResponseDTO struct {
	Authenticated bool `json:"authenticated"`
}

// GET /api/v1/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, SessionResponseDTO{Authenticated: h.session.IsAuthenticated()})
}

// POST /api/v1/session/login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	if err := h.session.Login(ctx, req.Email, req.Password); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, SessionResponseDTO{Authenticated: h.session.IsAuthenticated()})
}

// POST /api/v1/session/token
func (h *SessionHandler) InstallToken(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req TokenRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	token := req.Token
	if req.CallbackURL != "" {
		var err error
		if token, err = session.CallbackToken(req.CallbackURL); err != nil {
			handleError(w, err)
			return
		}
	}

	if err := h.session.LoginWithExternalToken(ctx, token); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, SessionResponseDTO{Authenticated: h.session.IsAuthenticated()})
}

// POST /api/v1/session/register
func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	if err := h.session.Register(ctx, req.Email, req.Password); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"message": "registered"})
}

// DELETE /api/v1/session
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.session.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (CredentialsRequestDTO, bool) {
	var req CredentialsRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return req, false
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_credentials", "email and password are required")
		return req, false
	}
	return req, true
}
