package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Failure taxonomy. Callers branch on these with errors.Is / errors.As:
// ErrRateLimited and ErrTimeout are retryable, ErrAuthFailed is fatal and
// never retried, MalformedResponseError is fatal for the request and carries
// the raw text for operator inspection.
var (
	ErrRateLimited = errors.New("provider rate limited")
	ErrAuthFailed  = errors.New("provider authentication failed")
	ErrTimeout     = errors.New("provider invocation timed out")
)

// MalformedResponseError reports a provider response that could not be
// parsed into the expected shape. The raw text is preserved verbatim; it is
// never repaired or substituted with a guessed structure.
type MalformedResponseError struct {
	Provider Provider
	Reason   string
	Raw      string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %s", e.Provider, e.Reason)
}

// statusError maps an HTTP status to the failure taxonomy.
func statusError(provider Provider, status int, body string) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%s: status 429: %w", provider, ErrRateLimited)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: status %d: %w", provider, status, ErrAuthFailed)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return fmt.Errorf("%s: status %d: %w", provider, status, ErrTimeout)
	default:
		return fmt.Errorf("%s: request failed with status %d: %s", provider, status, truncate(body, 512))
	}
}

// transportError maps a transport-level failure to the taxonomy.
func transportError(provider Provider, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %v: %w", provider, err, ErrTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s: %v: %w", provider, err, ErrTimeout)
	}
	return fmt.Errorf("%s: request failed: %w", provider, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
