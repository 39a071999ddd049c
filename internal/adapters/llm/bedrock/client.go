// Package bedrock implements generation.TextModel on AWS Bedrock with
// Anthropic messages models.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"golang.org/x/time/rate"

	"github.com/okian/adcraft/pkg/logger"
)

const (
	anthropicVersion = "bedrock-2023-05-31"
	defaultModelID   = "anthropic.claude-3-5-sonnet-20240620-v1:0"
	defaultMaxTokens = 4000
)

// Errors returned by the client.
var (
	ErrEmptyPrompt   = errors.New("prompt is empty")
	ErrEmptyResponse = errors.New("bedrock returned no text")
)

// InvokeAPI is the part of *bedrockruntime.Client the adapter needs.
type InvokeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Options configures the client.
type Options struct {
	ModelID           string
	Region            string
	MaxTokens         int
	Temperature       float64
	RequestsPerSecond float64
	Logger            logger.Logger
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type request struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	System           string    `json:"system,omitempty"`
	Messages         []message `json:"messages"`
	Temperature      float64   `json:"temperature,omitempty"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Client calls InvokeModel with an Anthropic messages body.
type Client struct {
	api       InvokeAPI
	modelID   string
	maxTokens int
	temp      float64
	limiter   *rate.Limiter
	log       logger.Logger
}

// New loads the default AWS credential chain for opts.Region.
func New(ctx context.Context, opts Options) (*Client, error) {
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewWithAPI(bedrockruntime.NewFromConfig(cfg), opts), nil
}

// NewWithAPI wraps an existing Bedrock runtime API.
func NewWithAPI(api InvokeAPI, opts Options) *Client {
	c := &Client{
		api:       api,
		modelID:   opts.ModelID,
		maxTokens: opts.MaxTokens,
		temp:      opts.Temperature,
		limiter:   rate.NewLimiter(rate.Inf, 1),
		log:       opts.Logger,
	}
	if c.modelID == "" {
		c.modelID = defaultModelID
	}
	if c.maxTokens <= 0 {
		c.maxTokens = defaultMaxTokens
	}
	if c.temp <= 0 {
		c.temp = 0.7
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	return c
}

// GenerateText implements generation.TextModel.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}

	body, err := json.Marshal(request{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        c.maxTokens,
		System:           "You answer with a single JSON object and nothing else.",
		Messages:         []message{{Role: "user", Content: []contentBlock{{Type: "text", Text: prompt}}}},
		Temperature:      c.temp,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	start := time.Now()
	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock invoke %s: %w", c.modelID, err)
	}

	var resp response
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("decode bedrock response: %w", err)
	}
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	c.log.Debug(ctx, "bedrock call",
		logger.String("model", c.modelID),
		logger.Int("input_tokens", resp.Usage.InputTokens),
		logger.Int("output_tokens", resp.Usage.OutputTokens),
		logger.Duration("took", time.Since(start)))

	if strings.TrimSpace(text.String()) == "" {
		return "", ErrEmptyResponse
	}
	return text.String(), nil
}
