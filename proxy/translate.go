package proxy

import (
	"github.com/llmbridge/llmbridge/pkg/llm"
)

// buildPayload translates an inbound chat request into the upstream
// completion payload. The model is always the resolved process-wide
// identifier; temperature and max_tokens fall back to the configured
// defaults when the caller omits them. Messages pass through untouched.
func buildPayload(req *llm.ChatRequest, model string, cfg Config) llm.CompletionPayload {
	temperature := cfg.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	maxTokens := cfg.MaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	payload := llm.CompletionPayload{
		Model:       model,
		Messages:    req.Messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Stream:      req.Stream,
	}

	// The upstream expects reasoning effort nested under
	// chat_template_kwargs, not as a top-level sampling parameter.
	if req.ReasoningEffort != "" {
		payload.ChatTemplateKwargs = &llm.TemplateKwargs{
			ReasoningEffort: req.ReasoningEffort,
		}
	}

	return payload
}

// buildHeaders returns the header set for every upstream call. The
// Authorization header is attached only when an API key is configured.
func buildHeaders(cfg Config) map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}
	return headers
}
