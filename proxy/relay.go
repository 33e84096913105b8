package proxy

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/llmbridge/llmbridge/pkg/llm"
)

// SSE lines from local inference servers can carry whole reasoning
// chunks; give the scanner room before it reports bufio.ErrTooLong.
const maxStreamLineSize = 1024 * 1024

// streamEvent is one item pushed by the relay producer: either a
// decoded upstream line to forward, or the terminal error. After an
// event with a non-nil err, the channel is closed and no further
// events arrive.
type streamEvent struct {
	line string
	err  error
}

// newUpstreamRequest builds the POST to the upstream completions
// endpoint with the translated payload and header set.
func (p *Proxy) newUpstreamRequest(ctx context.Context, payload llm.CompletionPayload) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.completionsURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create upstream request: %w", err)
	}
	for k, v := range buildHeaders(p.config) {
		req.Header.Set(k, v)
	}

	return req, nil
}

// completeBuffered performs a single buffered upstream call and returns
// the verbatim response body. Failures come back classified: a non-200
// answer as *UpstreamStatusError, transport failures as
// ErrUpstreamUnavailable / ErrUpstreamTimeout, anything else untouched.
// One attempt, no retries.
func (p *Proxy) completeBuffered(ctx context.Context, payload llm.CompletionPayload) ([]byte, error) {
	req, err := p.newUpstreamRequest(ctx, payload)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamStatusError{Status: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

// relayStream opens a streaming upstream call and returns a channel of
// relay events. A producer goroutine walks the states
// connecting -> forwarding -> completed or error-terminated: each
// non-blank upstream line is pushed in arrival order, a failure at any
// point pushes exactly one terminal error event, and normal upstream
// closure just closes the channel. Cancelling ctx stops the producer
// and releases the upstream connection.
func (p *Proxy) relayStream(ctx context.Context, payload llm.CompletionPayload) <-chan streamEvent {
	events := make(chan streamEvent)

	emit := func(ev streamEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(events)

		req, err := p.newUpstreamRequest(ctx, payload)
		if err != nil {
			emit(streamEvent{err: err})
			return
		}

		resp, err := p.httpClient.Do(req)
		if err != nil {
			emit(streamEvent{err: classifyTransportError(err)})
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			emit(streamEvent{err: &UpstreamStatusError{Status: resp.StatusCode, Body: string(body)}})
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLineSize)

		for scanner.Scan() {
			line := scanner.Text()
			// Blank lines carry no event content and are dropped.
			if strings.TrimSpace(line) == "" {
				continue
			}
			if !emit(streamEvent{line: line}) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			emit(streamEvent{err: classifyTransportError(err)})
		}
	}()

	return events
}

// writeStream consumes relay events and writes them to the caller's
// open SSE stream, flushing per line so chunks arrive as they are
// produced. A flush failure means the caller went away; the upstream
// request is cancelled and no further reads are issued. Returns the
// outcome label recorded in metrics.
func (p *Proxy) writeStream(w *bufio.Writer, payload llm.CompletionPayload) string {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	forwarded := 0
	for ev := range p.relayStream(ctx, payload) {
		if ev.err != nil {
			// The 200 status line is already committed; the only way
			// to signal failure is one terminal event on the stream.
			code := errorCode(ev.err)
			p.metrics.observeUpstreamError(code)
			p.logger.Error("stream relay failed",
				zap.String("code", code),
				zap.Int("lines_forwarded", forwarded),
				zap.Error(ev.err),
			)
			w.Write(formatErrorEvent(ev.err))
			w.Flush()
			return "error"
		}

		w.WriteString(ev.line)
		w.WriteByte('\n')
		if err := w.Flush(); err != nil {
			p.logger.Debug("caller disconnected mid-stream",
				zap.Int("lines_forwarded", forwarded),
				zap.Error(err),
			)
			return "disconnected"
		}
		forwarded++
		p.metrics.streamLines.Inc()
	}

	p.logger.Debug("stream completed", zap.Int("lines_forwarded", forwarded))
	return "ok"
}

// formatErrorEvent renders a relay error as a single well-formed SSE
// error event.
func formatErrorEvent(err error) []byte {
	detail := llm.ErrorEvent{
		Error: llm.ErrorDetail{
			Code:    errorCode(err),
			Message: err.Error(),
		},
	}

	// Marshalling a struct of strings cannot fail.
	data, _ := json.Marshal(detail)

	var buf bytes.Buffer
	buf.WriteString("data: ")
	buf.Write(data)
	buf.WriteString("\n\n")
	return buf.Bytes()
}
