package apiclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxErrorBody = 64 << 10

// ErrorResponse is the JSON error envelope returned by the commerce API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Msg     string `json:"msg,omitempty"`
	Details string `json:"details,omitempty"`
}

// RemoteError is a non-2xx answer from the remote authority.
type RemoteError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Details    string
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, msg)
}

// RemoteReason exposes the server-provided message to domain.ReasonOf.
func (e *RemoteError) RemoteReason() string {
	return e.Message
}

func (e *RemoteError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

func decodeRemoteError(method, path string, resp *http.Response) error {
	re := &RemoteError{Method: method, Path: path, StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return re
	}

	var body ErrorResponse
	if json.Unmarshal(raw, &body) == nil {
		re.Message = body.Error
		// flask-jwt-extended reports token problems under "msg"
		if re.Message == "" {
			re.Message = body.Msg
		}
		re.Details = body.Details
		return re
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
		re.Message = strings.TrimSpace(string(raw))
	}
	return re
}
