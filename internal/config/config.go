// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keys are flat snake_case so they map 1:1 onto ADCRAFT_* env vars.
// - New() returns a Config filled with defaults; Load layers file and env on top.
package config

import (
	"runtime"
	"time"
)

// Backend and mode names accepted by the config.
const (
	DispatchWebhook = "webhook"
	DispatchLocal   = "local"

	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"

	LLMGemini  = "gemini"
	LLMBedrock = "bedrock"

	RenderRaster = "raster"
	RenderSVG    = "svg"
	RenderNone   = "none"

	AssetsMemory = "memory"
	AssetsS3     = "s3"

	AdsMeta   = "meta"
	AdsStatic = "static"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// CORSAllowedOrigins lists origins allowed to call the API from a browser.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// QueueSize bounds the in-memory dispatch queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of dispatch workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds the callback delivery-id cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxCount is the upper bound for variations per job.
	MaxCount int `koanf:"max_count"`
	// WinnerTopN is how many ranked ads the dispatcher asks the scorer for.
	WinnerTopN int `koanf:"winner_top_n"`
	// JobTimeout fails jobs that stay in processing longer than this. Zero disables the reaper.
	JobTimeout time.Duration `koanf:"job_timeout"`
	// ReaperInterval is how often the timeout reaper scans.
	ReaperInterval time.Duration `koanf:"reaper_interval"`

	// DispatchMode selects the automation target: webhook or local.
	DispatchMode string `koanf:"dispatch_mode"`
	// WebhookURL receives the dispatch payload in webhook mode.
	WebhookURL string `koanf:"webhook_url"`
	// WebhookTimeout bounds a single dispatch POST.
	WebhookTimeout time.Duration `koanf:"webhook_timeout"`
	// CallbackBaseURL is the externally reachable base of this service, used to build callbackUrl.
	CallbackBaseURL string `koanf:"callback_base_url"`
	// CallbackToken, when set, must be presented in X-Callback-Token on callbacks.
	CallbackToken string `koanf:"callback_token"`

	// StoreBackend selects the job store: memory, redis or postgres.
	StoreBackend   string `koanf:"store_backend"`
	RedisAddr      string `koanf:"redis_addr"`
	RedisPassword  string `koanf:"redis_password"`
	RedisDB        int    `koanf:"redis_db"`
	RedisKeyPrefix string `koanf:"redis_key_prefix"`
	PostgresDSN    string `koanf:"postgres_dsn"`

	// LLMProvider selects the text model client: gemini or bedrock. Images always use Gemini.
	LLMProvider          string        `koanf:"llm_provider"`
	GeminiAPIKey         string        `koanf:"gemini_api_key"`
	GeminiBaseURL        string        `koanf:"gemini_base_url"`
	GeminiAPIVersion     string        `koanf:"gemini_api_version"`
	TextModel            string        `koanf:"text_model"`
	ImageModel           string        `koanf:"image_model"`
	BedrockModelID       string        `koanf:"bedrock_model_id"`
	AWSRegion            string        `koanf:"aws_region"`
	LLMRequestsPerSecond float64       `koanf:"llm_requests_per_second"`
	LLMTimeout           time.Duration `koanf:"llm_timeout"`

	// RenderBackend selects the text renderer: raster, svg or none.
	RenderBackend string `koanf:"render_backend"`
	// RenderConcurrency bounds the per-job format fan-out.
	RenderConcurrency int `koanf:"render_concurrency"`
	// AdaptStrategy forces a format adaptation strategy: auto, cover or inset.
	AdaptStrategy string `koanf:"adapt_strategy"`

	// AssetsBackend selects where rendered creatives go: memory or s3.
	AssetsBackend string `koanf:"assets_backend"`
	S3Bucket      string `koanf:"s3_bucket"`
	S3Prefix      string `koanf:"s3_prefix"`
	CDNDomain     string `koanf:"cdn_domain"`
	// PublicBaseURL prefixes asset URLs served from memory.
	PublicBaseURL string `koanf:"public_base_url"`

	// AdsBackend selects the ad performance source: meta or static.
	AdsBackend       string `koanf:"ads_backend"`
	GraphBaseURL     string `koanf:"graph_base_url"`
	GraphAPIVersion  string `koanf:"graph_api_version"`
	GraphAccessToken string `koanf:"graph_access_token"`
	// AdsFixturePath points at a JSON file of campaigns for the static backend.
	AdsFixturePath string `koanf:"ads_fixture_path"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		CORSAllowedOrigins: []string{"*"},
		QueueSize:          10_000,
		WorkerCount:        runtime.NumCPU() * 2,
		DedupeSize:         50_000,
		MaxCount:           10,
		WinnerTopN:         5,
		JobTimeout:         15 * time.Minute,
		ReaperInterval:     30 * time.Second,
		DispatchMode:       DispatchLocal,
		WebhookTimeout:     10 * time.Second,
		CallbackBaseURL:    "http://localhost:9080",
		StoreBackend:       StoreMemory,
		RedisAddr:          "localhost:6379",
		RedisKeyPrefix:     "adcraft:job:",

		LLMProvider:          LLMGemini,
		GeminiBaseURL:        "https://generativelanguage.googleapis.com",
		GeminiAPIVersion:     "v1beta",
		TextModel:            "gemini-2.5-flash",
		ImageModel:           "gemini-2.5-flash-image",
		BedrockModelID:       "anthropic.claude-3-5-sonnet-20240620-v1:0",
		AWSRegion:            "us-east-1",
		LLMRequestsPerSecond: 2,
		LLMTimeout:           2 * time.Minute,

		RenderBackend:     RenderRaster,
		RenderConcurrency: 4,
		AdaptStrategy:     "auto",
		AssetsBackend:     AssetsMemory,
		S3Prefix:          "creatives/",
		PublicBaseURL:     "http://localhost:9080/assets",
		AdsBackend:        AdsStatic,
		GraphBaseURL:      "https://graph.facebook.com",
		GraphAPIVersion:   "v21.0",
	}
}
