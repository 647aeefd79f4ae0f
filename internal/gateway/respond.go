package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/fjod/go_cart/storefront/internal/apiclient"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/orders"
)

const statusClientClosedRequest = 499

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError converts core failures into HTTP answers. Remote client errors
// keep their status so the caller sees "insufficient stock" as a 400, not a
// gateway failure.
func handleError(w http.ResponseWriter, err error) {
	var (
		authErr  *domain.AuthError
		opErr    *domain.OperationError
		fetchErr *domain.FetchError
		remote   *apiclient.RemoteError
	)

	switch {
	case errors.As(err, &authErr):
		respondJSON(w, http.StatusUnauthorized, ErrorResponse{Error: message(authErr.Reason, err), Code: "auth_failed"})
	case errors.As(err, &opErr):
		status := http.StatusUnprocessableEntity
		if errors.As(err, &remote) && remote.IsClientError() {
			status = remote.StatusCode
		}
		respondJSON(w, status, ErrorResponse{Error: message(opErr.Reason, err), Code: "operation_failed", Details: opErr.Op})
	case errors.As(err, &fetchErr):
		respondJSON(w, http.StatusBadGateway, ErrorResponse{Error: message(fetchErr.Reason, err), Code: "fetch_failed"})
	case errors.Is(err, orders.ErrWatchExhausted), errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", err.Error())
	case errors.As(err, &remote):
		if remote.IsClientError() {
			respondJSON(w, remote.StatusCode, ErrorResponse{Error: message(remote.Message, err), Code: "rejected", Details: remote.Details})
			return
		}
		respondError(w, http.StatusBadGateway, "upstream_error", message(remote.Message, err))
	case errors.Is(err, context.Canceled):
		// client went away
		w.WriteHeader(statusClientClosedRequest)
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func message(reason string, err error) string {
	if reason != "" {
		return reason
	}
	return err.Error()
}
