// Package gemini is a REST client for the Gemini generateContent API. It
// implements generation.TextModel and generation.ImageModel.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/adcraft/pkg/logger"
)

const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com"
	defaultAPIVersion = "v1beta"
	defaultTextModel  = "gemini-2.5-flash"
	defaultImageModel = "gemini-2.5-flash-image"

	maxErrorBody = 4 << 10
)

// Errors returned by the client.
var (
	ErrNoAPIKey     = errors.New("gemini api key not configured")
	ErrEmptyPrompt  = errors.New("prompt is empty")
	ErrNoCandidates = errors.New("gemini returned no content")
	ErrNoImageData  = errors.New("gemini returned no inline image")
)

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini api: status %d: %s", e.StatusCode, e.Body)
}

// Options configures New.
type Options struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	TextModel  string
	ImageModel string
	HTTPClient *http.Client
	Logger     logger.Logger
	// RequestsPerSecond throttles outgoing calls. Zero disables throttling.
	RequestsPerSecond float64
}

// Client talks to one Gemini endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	textModel  string
	imageModel string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        logger.Logger
}

// New creates a client. Empty options fall back to public defaults.
func New(opts Options) *Client {
	c := &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiVersion: strings.TrimSpace(opts.APIVersion),
		textModel:  opts.TextModel,
		imageModel: opts.ImageModel,
		httpClient: opts.HTTPClient,
		log:        opts.Logger,
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.apiVersion == "" {
		c.apiVersion = defaultAPIVersion
	}
	if c.textModel == "" {
		c.textModel = defaultTextModel
	}
	if c.imageModel == "" {
		c.imageModel = defaultImageModel
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c
}

// GenerateText implements generation.TextModel.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	req := generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:      0.7,
			ResponseMimeType: "application/json",
		},
	}

	resp, err := c.generateContent(ctx, c.textModel, req)
	if err != nil && isUnknownFieldError(err, "responseMimeType") {
		req.GenerationConfig.ResponseMimeType = ""
		resp, err = c.generateContent(ctx, c.textModel, req)
	}
	if err != nil {
		return "", err
	}
	text, _ := extractParts(resp)
	if strings.TrimSpace(text) == "" {
		return "", ErrNoCandidates
	}
	return text, nil
}

// GenerateImage implements generation.ImageModel and returns the first inline image.
func (c *Client) GenerateImage(ctx context.Context, prompt, aspectRatio string) ([]byte, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	req := generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"IMAGE"},
		},
	}
	if aspectRatio != "" {
		req.GenerationConfig.ImageConfig = &imageConfig{AspectRatio: aspectRatio}
	}

	resp, err := c.generateContent(ctx, c.imageModel, req)
	if err != nil && req.GenerationConfig.ImageConfig != nil && isUnknownFieldError(err, "imageConfig") {
		req.GenerationConfig.ImageConfig = nil
		resp, err = c.generateContent(ctx, c.imageModel, req)
	}
	if err != nil {
		return nil, err
	}

	_, images := extractParts(resp)
	if len(images) == 0 {
		return nil, ErrNoImageData
	}
	img, err := base64.StdEncoding.DecodeString(images[0].Data)
	if err != nil {
		return nil, fmt.Errorf("decode inline image: %w", err)
	}
	return img, nil
}

func (c *Client) generateContent(ctx context.Context, model string, payload generateContentRequest) (generateContentResponse, error) {
	if c.apiKey == "" {
		return generateContentResponse{}, ErrNoAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return generateContentResponse{}, fmt.Errorf("rate limit: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("read response: %w", err)
	}
	c.log.Debug(ctx, "gemini call",
		logger.String("model", model),
		logger.Int("status", httpResp.StatusCode),
		logger.Duration("took", time.Since(start)))

	if httpResp.StatusCode >= 300 {
		b := strings.TrimSpace(string(rawBody))
		if len(b) > maxErrorBody {
			b = b[:maxErrorBody]
		}
		return generateContentResponse{}, &APIError{StatusCode: httpResp.StatusCode, Body: b}
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return generateContentResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Candidates) == 0 {
		if decoded.PromptFeedback != nil && decoded.PromptFeedback.BlockReason != "" {
			return generateContentResponse{}, fmt.Errorf("%w: blocked: %s", ErrNoCandidates, decoded.PromptFeedback.BlockReason)
		}
		return generateContentResponse{}, ErrNoCandidates
	}
	return decoded, nil
}

func extractParts(resp generateContentResponse) (string, []blob) {
	if len(resp.Candidates) == 0 {
		return "", nil
	}
	var text strings.Builder
	var images []blob
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			text.WriteString(p.Text)
		}
		if p.InlineData != nil && p.InlineData.Data != "" && strings.HasPrefix(p.InlineData.MimeType, "image/") {
			images = append(images, *p.InlineData)
		}
	}
	return text.String(), images
}

func isUnknownFieldError(err error, field string) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		return false
	}
	return strings.Contains(apiErr.Body, "Unknown name") && strings.Contains(apiErr.Body, field)
}
