package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrUnauthenticated means no access credential is stored locally;
	// the server was never contacted
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrSessionExpired means the server rejected the refresh credential;
	// both tokens have been purged by the time this is returned
	ErrSessionExpired = errors.New("session expired")

	// ErrInvalidCredentials means the login was rejected
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNetwork wraps transport-level failures. Credentials are untouched
	// and the caller may retry later.
	ErrNetwork = errors.New("network error")
)

// HTTPError is a non-2xx API response passed through to the caller unchanged
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api returned status %d", e.Status)
	}
	return fmt.Sprintf("api returned status %d: %s", e.Status, e.Body)
}

// maxErrorBody bounds how much of an error response is kept for messages
const maxErrorBody = 4 << 10

// DecodeJSON decodes a 2xx response body into out and closes it.
// Non-2xx responses become an *HTTPError carrying the response body;
// a nil out discards the body.
func DecodeJSON(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{Status: resp.StatusCode, Body: string(body)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
