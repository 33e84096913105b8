package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/llmbridge/llmbridge/pkg/llm"
)

// DefaultModel is the identifier used when neither configuration nor
// the startup probe can name a model.
const DefaultModel = "gpt-oss-120b"

// ResolveModel picks the model identifier the proxy will use for every
// upstream call. The strategy is an ordered chain evaluated exactly
// once at startup: the configured value wins, then a single probe of
// the upstream model list, then the fixed default. The result is
// immutable for the life of the process.
func ResolveModel(ctx context.Context, client *http.Client, cfg Config, logger *zap.Logger) string {
	resolvers := []struct {
		source  string
		resolve func(context.Context) (string, error)
	}{
		{"config", func(context.Context) (string, error) {
			if cfg.Model == "" {
				return "", fmt.Errorf("no model configured")
			}
			return cfg.Model, nil
		}},
		{"probe", func(ctx context.Context) (string, error) {
			return probeModel(ctx, client, cfg)
		}},
	}

	for _, r := range resolvers {
		model, err := r.resolve(ctx)
		if err != nil {
			logger.Debug("model resolution step failed",
				zap.String("source", r.source),
				zap.Error(err),
			)
			continue
		}
		logger.Info("model resolved",
			zap.String("model", model),
			zap.String("source", r.source),
		)
		return model
	}

	logger.Warn("model auto-detection failed, using default",
		zap.String("model", DefaultModel),
	)
	return DefaultModel
}

// probeModel fetches the upstream model list once and returns the first
// entry's identifier.
func probeModel(ctx context.Context, client *http.Client, cfg Config) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.modelsURL(), nil)
	if err != nil {
		return "", fmt.Errorf("create probe request: %w", err)
	}
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("probe model list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model list returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read model list: %w", err)
	}

	var list llm.ModelList
	if err := json.Unmarshal(body, &list); err != nil {
		return "", fmt.Errorf("unmarshal model list: %w", err)
	}
	if len(list.Data) == 0 {
		return "", fmt.Errorf("model list is empty")
	}

	return list.Data[0].ID, nil
}
