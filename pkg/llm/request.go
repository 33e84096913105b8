// Package llm provides the wire representations of chat completion
// requests, payloads and error events exchanged between the browser
// client, the proxy and the upstream inference server.
package llm

// Message is a single conversational turn. The proxy performs no
// validation of roles or content: whatever keys the client sends are
// forwarded verbatim, and malformed messages are rejected (if at all)
// by the upstream server.
type Message map[string]string

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Messages        []Message `json:"messages"`                   // Conversation history, oldest first
	Temperature     *float64  `json:"temperature,omitempty"`      // Override for the configured default
	MaxTokens       *int      `json:"max_tokens,omitempty"`       // Override for the configured default
	ReasoningEffort string    `json:"reasoning_effort,omitempty"` // Free-form sampling-strategy hint
	Stream          bool      `json:"stream,omitempty"`           // Relay the upstream SSE stream when true
}
