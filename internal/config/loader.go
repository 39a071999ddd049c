package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "ADCRAFT_"
	envFileVar = "ADCRAFT_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if ADCRAFT_CONFIG is set
//  3. env (prefix ADCRAFT_)
func Load(_ context.Context) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// ADCRAFT_QUEUE_SIZE -> queue_size. Underscores are kept to match the flat koanf tags.
	// Comma separated values become slices (cors_allowed_origins).
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(envPrefix))
		if strings.Contains(value, ",") {
			return key, strings.Split(value, ",")
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.MaxCount < 1 || c.MaxCount > 10 {
		return fmt.Errorf("%w: max_count must be within 1..10, got %d", ErrInvalidConfig, c.MaxCount)
	}
	if c.QueueSize <= 0 || c.WorkerCount <= 0 {
		return fmt.Errorf("%w: queue_size and worker_count must be positive", ErrInvalidConfig)
	}
	if c.RenderConcurrency <= 0 {
		return fmt.Errorf("%w: render_concurrency must be positive", ErrInvalidConfig)
	}
	if c.WinnerTopN <= 0 {
		return fmt.Errorf("%w: winner_top_n must be positive", ErrInvalidConfig)
	}

	checks := []struct {
		key, val string
		allowed  []string
	}{
		{"dispatch_mode", c.DispatchMode, []string{DispatchWebhook, DispatchLocal}},
		{"store_backend", c.StoreBackend, []string{StoreMemory, StoreRedis, StorePostgres}},
		{"llm_provider", c.LLMProvider, []string{LLMGemini, LLMBedrock}},
		{"render_backend", c.RenderBackend, []string{RenderRaster, RenderSVG, RenderNone}},
		{"assets_backend", c.AssetsBackend, []string{AssetsMemory, AssetsS3}},
		{"ads_backend", c.AdsBackend, []string{AdsMeta, AdsStatic}},
		{"adapt_strategy", c.AdaptStrategy, []string{"auto", "cover", "inset"}},
		{"log_format", c.LogFormat, []string{"text", "json"}},
	}
	for _, ch := range checks {
		if !oneOf(ch.val, ch.allowed) {
			return fmt.Errorf("%w: %s must be one of %s, got %q", ErrInvalidConfig, ch.key, strings.Join(ch.allowed, "|"), ch.val)
		}
	}

	if c.DispatchMode == DispatchWebhook && c.WebhookURL == "" {
		return fmt.Errorf("%w: webhook_url is required when dispatch_mode=webhook", ErrInvalidConfig)
	}
	if c.StoreBackend == StorePostgres && c.PostgresDSN == "" {
		return fmt.Errorf("%w: postgres_dsn is required when store_backend=postgres", ErrInvalidConfig)
	}
	if c.AssetsBackend == AssetsS3 && c.S3Bucket == "" {
		return fmt.Errorf("%w: s3_bucket is required when assets_backend=s3", ErrInvalidConfig)
	}
	if c.AdsBackend == AdsMeta && c.GraphAccessToken == "" {
		return fmt.Errorf("%w: graph_access_token is required when ads_backend=meta", ErrInvalidConfig)
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
