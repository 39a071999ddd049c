package simulate

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
)

// ErrUnexpectedStatus is returned for any answer the simulator did not expect.
var ErrUnexpectedStatus = errors.New("unexpected status")

// StatusError carries the status and body of an unexpected answer.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Unwrap lets callers match ErrUnexpectedStatus.
func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// Client talks to the adcraft HTTP API.
type Client struct {
	baseURL       string
	accountID     string
	callbackToken string
	http          *http.Client
}

// NewClient creates a client for baseURL.
func NewClient(baseURL, accountID, callbackToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		accountID:     accountID,
		callbackToken: callbackToken,
		http:          &http.Client{Timeout: timeout},
	}
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK)
}

// CreateJob posts a job and returns its id.
func (c *Client) CreateJob(ctx context.Context, req createJobRequest) (string, error) {
	var out createJobResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/jobs", req, &out, http.StatusAccepted); err != nil {
		return "", err
	}
	return out.JobID, nil
}

// GetJob reads a job.
func (c *Client) GetJob(ctx context.Context, jobID string) (*JobView, error) {
	var out JobView
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs/"+jobID, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// PostCreatives plays the automation target and reports finished creatives.
func (c *Client) PostCreatives(ctx context.Context, cb creativesCallback) (string, error) {
	var out callbackAck
	if err := c.do(ctx, http.MethodPost, "/api/v1/callbacks/creatives", cb, &out, http.StatusOK); err != nil {
		return "", err
	}
	return out.Status, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, want int) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accountID != "" {
		req.Header.Set("X-Account-ID", c.accountID)
	}
	if c.callbackToken != "" && strings.HasPrefix(path, "/api/v1/callbacks/") {
		req.Header.Set("X-Callback-Token", c.callbackToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != want {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
