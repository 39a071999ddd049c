// Package webhook posts dispatch payloads to the external automation target.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/adcraft/internal/domain/model"
	"github.com/okian/adcraft/pkg/logger"
	"github.com/okian/adcraft/pkg/metrics"
)

const maxErrorBody = 8 << 10

// ErrNoURL is returned when the dispatcher has no target.
var ErrNoURL = errors.New("webhook url not configured")

// DispatchError is a non-2xx answer from the automation target.
type DispatchError struct {
	StatusCode int
	Body       string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("webhook returned %d: %s", e.StatusCode, e.Body)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient sets the client. Its timeout bounds each dispatch.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// WithHeader adds a static header to every dispatch, e.g. an auth token.
func WithHeader(key, value string) Option {
	return func(d *Dispatcher) {
		if key != "" {
			d.headers.Set(key, value)
		}
	}
}

// Dispatcher POSTs one JSON payload per job. It never retries.
type Dispatcher struct {
	url     string
	client  *http.Client
	headers http.Header
	log     logger.Logger
}

// New creates a dispatcher for url.
func New(url string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		url:     strings.TrimSpace(url),
		client:  &http.Client{Timeout: 10 * time.Second},
		headers: http.Header{},
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch sends p. Any non-2xx status becomes a *DispatchError with the raw body.
func (d *Dispatcher) Dispatch(ctx context.Context, p model.DispatchPayload) error {
	if d.url == "" {
		return ErrNoURL
	}
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal dispatch payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build dispatch request: %w", err)
	}
	for k, vs := range d.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Job-ID", p.JobID)

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		metrics.RecordDispatchError("webhook")
		return fmt.Errorf("dispatch %s: %w", p.JobID, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordDispatchError("webhook")
		return &DispatchError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	metrics.RecordStageLatency("dispatch", float64(time.Since(start).Milliseconds()))
	d.log.Info(ctx, "job dispatched to webhook",
		logger.JobID(p.JobID),
		logger.Int("status", resp.StatusCode),
		logger.Duration("took", time.Since(start)))
	return nil
}
