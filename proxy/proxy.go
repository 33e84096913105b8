// Package proxy implements a thin chat-completion proxy in front of a
// locally hosted, OpenAI-compatible inference server. It translates
// inbound requests into upstream calls and relays either the buffered
// JSON response or the live SSE stream back to the caller.
package proxy

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/llmbridge/llmbridge/pkg/llm"
)

// Proxy owns the HTTP server, the resolved model identifier and the
// shared upstream client. The client's connection pool is the only
// shared mutable state between concurrent requests; it is safe for
// concurrent use and lives for the whole process.
type Proxy struct {
	config     Config
	model      string
	logger     *zap.Logger
	httpClient *http.Client
	server     *fiber.App
	registry   *prometheus.Registry
	metrics    *metrics
}

// New creates a Proxy: it builds the pooled upstream client, resolves
// the model identifier once, and registers the HTTP routes.
func New(config Config, logger *zap.Logger) (*Proxy, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// One pooled client for every upstream call. Local inference can
	// be slow on long completions, so the whole-call timeout is
	// generous; the pool bounds keep concurrent fan-out in check.
	httpClient := &http.Client{
		Timeout: config.RequestTimeout,
		Transport: &http.Transport{
			MaxConnsPerHost:     maxConnsPerHost,
			MaxIdleConns:        maxConnsPerHost,
			MaxIdleConnsPerHost: maxIdleConnsPerHost,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		StreamRequestBody:     true,
	})
	app.Use(cors.New())

	registry := prometheus.NewRegistry()

	p := &Proxy{
		config:     config,
		model:      ResolveModel(context.Background(), httpClient, config, logger),
		logger:     logger,
		httpClient: httpClient,
		server:     app,
		registry:   registry,
		metrics:    newMetrics(registry),
	}

	app.Post("/api/chat", p.handleChat)
	app.Get("/", p.handleIndex)
	app.Static("/static", config.StaticDir)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return p, nil
}

// Model returns the resolved model identifier used for every upstream
// call.
func (p *Proxy) Model() string {
	return p.model
}

// Run starts the proxy server on the configured listening address and
// blocks until the server stops.
func (p *Proxy) Run() error {
	p.logger.Info("starting proxy server",
		zap.String("listen", p.config.ListenAddr),
		zap.String("upstream", p.config.UpstreamURL),
		zap.String("model", p.model),
	)

	return p.server.Listen(p.config.ListenAddr)
}

// Shutdown stops the HTTP server, waiting up to the given timeout for
// in-flight requests (including open streams) to finish.
func (p *Proxy) Shutdown(timeout time.Duration) error {
	return p.server.ShutdownWithTimeout(timeout)
}

// Close releases the upstream connection pool. Call after Shutdown.
func (p *Proxy) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// handleChat proxies a chat completion request to the upstream server,
// buffered or streamed depending on the request's stream flag.
func (p *Proxy) handleChat(c *fiber.Ctx) error {
	start := time.Now()

	var req llm.ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		p.logger.Error("failed to parse request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	p.logger.Debug("received chat request",
		zap.Int("message_count", len(req.Messages)),
		zap.Bool("stream", req.Stream),
		zap.String("reasoning_effort", req.ReasoningEffort),
	)

	payload := buildPayload(&req, p.model, p.config)

	if req.Stream {
		return p.handleStreamingChat(c, payload, start)
	}
	return p.handleBufferedChat(c, payload, start)
}

// handleBufferedChat waits for the full upstream response and mirrors
// it to the caller: the verbatim JSON body on 200, or the mapped error
// status otherwise.
func (p *Proxy) handleBufferedChat(c *fiber.Ctx, payload llm.CompletionPayload, start time.Time) error {
	body, err := p.completeBuffered(c.Context(), payload)
	if err != nil {
		status := statusFor(err)
		code := errorCode(err)
		p.metrics.observeUpstreamError(code)
		p.metrics.observeRequest("buffered", "error", time.Since(start).Seconds())
		p.logger.Error("buffered upstream call failed",
			zap.Int("status", status),
			zap.String("code", code),
			zap.Error(err),
		)
		return c.Status(status).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	p.metrics.observeRequest("buffered", "ok", time.Since(start).Seconds())
	p.logger.Debug("buffered upstream call completed",
		zap.Int("body_size", len(body)),
		zap.Duration("duration", time.Since(start)),
	)

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

// handleStreamingChat commits a 200 text/event-stream response and
// relays upstream lines as they arrive. Failures after this point are
// signalled with a single terminal error event on the open stream.
func (p *Proxy) handleStreamingChat(c *fiber.Ctx, payload llm.CompletionPayload, start time.Time) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("Connection", "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		outcome := p.writeStream(w, payload)
		p.metrics.observeRequest("streaming", outcome, time.Since(start).Seconds())
	}))

	return nil
}

// handleIndex serves the browser entry point from the static directory.
func (p *Proxy) handleIndex(c *fiber.Ctx) error {
	index := filepath.Join(p.config.StaticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "index.html not found"})
	}
	return c.SendFile(index)
}
