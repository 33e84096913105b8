package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Sentinel errors for upstream transport failures. Every failure the
// relay can hit is folded into one of these (or UpstreamStatusError)
// before it crosses the handler boundary.
var (
	// ErrUpstreamUnavailable means the upstream refused or could not
	// accept the connection.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamTimeout means the upstream did not respond within the
	// configured request timeout.
	ErrUpstreamTimeout = errors.New("upstream timeout")
)

// UpstreamStatusError is returned when the upstream answered with a
// non-200 status. The body is carried along so callers see what the
// upstream actually said.
type UpstreamStatusError struct {
	Status int
	Body   string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Body)
}

// classifyTransportError folds an error from http.Client.Do (or from
// reading a streamed body) into the relay taxonomy. Timeouts are
// checked before connection errors: a dial timeout is a timeout, not
// an unavailability.
func classifyTransportError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	return err
}

// statusFor maps a classified relay error to the HTTP status returned
// to buffered-mode callers.
func statusFor(err error) int {
	var statusErr *UpstreamStatusError

	switch {
	case errors.As(err, &statusErr):
		return statusErr.Status
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrUpstreamTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// errorCode maps a classified relay error to the machine-readable code
// carried in stream error events and metrics labels.
func errorCode(err error) string {
	var statusErr *UpstreamStatusError

	switch {
	case errors.As(err, &statusErr):
		return "upstream_error"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrUpstreamTimeout):
		return "upstream_timeout"
	default:
		return "internal_error"
	}
}
