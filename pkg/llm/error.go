package llm

// ErrorResponse is the JSON body returned for buffered-mode failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ErrorEvent is the terminal event emitted on an open SSE stream when
// the relay fails after the 200 status line has been committed. It is
// always well-formed JSON so clients can branch on the code.
type ErrorEvent struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a relay failure.
type ErrorDetail struct {
	Code    string `json:"code"`    // "upstream_unavailable", "upstream_timeout", "upstream_error", "internal_error"
	Message string `json:"message"` // Human-readable description, includes the upstream body for status errors
}
