package llm

// CompletionPayload is the body the proxy POSTs to the upstream
// /chat/completions endpoint. The model is always the process-wide
// resolved identifier; callers cannot override it per request.
type CompletionPayload struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`

	// ChatTemplateKwargs carries upstream-specific sampling hints.
	// Present only when the caller supplied a reasoning effort.
	ChatTemplateKwargs *TemplateKwargs `json:"chat_template_kwargs,omitempty"`
}

// TemplateKwargs is the nested container the upstream expects for
// chat-template level parameters.
type TemplateKwargs struct {
	ReasoningEffort string `json:"reasoning_effort"`
}
