package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/okian/adcraft/internal/adapters/adsplatform"
	"github.com/okian/adcraft/internal/adapters/assets"
	"github.com/okian/adcraft/internal/adapters/http/api"
	"github.com/okian/adcraft/internal/adapters/http/swagger"
	"github.com/okian/adcraft/internal/adapters/httpclient"
	"github.com/okian/adcraft/internal/adapters/landing"
	"github.com/okian/adcraft/internal/adapters/llm/bedrock"
	"github.com/okian/adcraft/internal/adapters/llm/gemini"
	"github.com/okian/adcraft/internal/adapters/repository"
	"github.com/okian/adcraft/internal/adapters/webhook"
	service "github.com/okian/adcraft/internal/app"
	"github.com/okian/adcraft/internal/config"
	"github.com/okian/adcraft/internal/domain/generation"
	"github.com/okian/adcraft/internal/pipeline"
	"github.com/okian/adcraft/internal/render/adapter"
	"github.com/okian/adcraft/internal/render/compositor"
	"github.com/okian/adcraft/pkg/logger"
)

// application is the wired process: service, optional local pipeline and router.
type application struct {
	svc     *service.Service
	pipe    *pipeline.Pipeline
	handler http.Handler
	assets  *assets.MemoryStore
	log     logger.Logger
	stopped bool
}

// build wires every component named by cfg. Nothing is started.
func build(ctx context.Context, cfg *config.Config, log logger.Logger) (*application, error) {
	if log == nil {
		log = logger.Nop()
	}
	a := &application{log: log}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client := httpclient.New(httpclient.Options{Timeout: cfg.LLMTimeout})
	ads, err := openAdsSource(cfg, client, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	svc := service.New(
		service.WithLogger(log.Named("service")),
		service.WithStore(store),
		service.WithAdsSource(ads),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithMaxCount(cfg.MaxCount),
		service.WithWinnerTopN(cfg.WinnerTopN),
		service.WithJobTimeout(cfg.JobTimeout, cfg.ReaperInterval),
		service.WithCallbackBaseURL(cfg.CallbackBaseURL),
	)
	a.svc = svc

	switch cfg.DispatchMode {
	case config.DispatchWebhook:
		svc.Attach(webhook.New(cfg.WebhookURL,
			webhook.WithHTTPClient(httpclient.New(httpclient.Options{Timeout: cfg.WebhookTimeout})),
			webhook.WithLogger(log.Named("webhook")),
		))
	case config.DispatchLocal:
		pipe, mem, err := buildPipeline(ctx, cfg, client, log)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		pipe.Attach(svc)
		svc.Attach(pipe)
		a.pipe, a.assets = pipe, mem
	default:
		_ = store.Close()
		return nil, fmt.Errorf("%w: dispatch_mode %q", config.ErrInvalidConfig, cfg.DispatchMode)
	}

	opts := []api.Option{
		api.WithLogger(log.Named("api")),
		api.WithAllowedOrigins(cfg.CORSAllowedOrigins),
		api.WithCallbackToken(cfg.CallbackToken),
		api.WithRoutes(func(r chi.Router) { swagger.Register(r) }),
	}
	if a.assets != nil {
		opts = append(opts, api.WithAssets(a.assets.Handler()))
	}
	a.handler = api.NewServer(svc, svc, opts...).Handler()
	return a, nil
}

func (a *application) start(ctx context.Context) error {
	if a.pipe != nil {
		a.pipe.Start(ctx)
	}
	return a.svc.Start(ctx)
}

// stop drains the pipeline first so in-flight jobs can still report back.
func (a *application) stop() {
	if a.stopped {
		return
	}
	a.stopped = true
	if a.pipe != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.pipe.Shutdown(ctx); err != nil {
			a.log.Warn(ctx, "pipeline did not drain", logger.Error(err))
		}
		cancel()
	}
	a.svc.Stop()
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return repository.NewMemoryStore(), nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
		}
		return repository.NewRedisStore(client, repository.WithKeyPrefix(cfg.RedisKeyPrefix)), nil
	case config.StorePostgres:
		return repository.OpenPostgres(ctx, cfg.PostgresDSN)
	}
	return nil, fmt.Errorf("%w: store_backend %q", config.ErrInvalidConfig, cfg.StoreBackend)
}

func openAdsSource(cfg *config.Config, client *http.Client, log logger.Logger) (service.AdsSource, error) {
	switch cfg.AdsBackend {
	case config.AdsMeta:
		return adsplatform.NewMetaClient(cfg.GraphAccessToken,
			adsplatform.WithGraphURL(cfg.GraphBaseURL, cfg.GraphAPIVersion),
			adsplatform.WithHTTPClient(client),
			adsplatform.WithMetaLogger(log.Named("meta")),
		), nil
	case config.AdsStatic:
		if cfg.AdsFixturePath == "" {
			log.Warn(context.Background(), "static ads backend has no fixture; every campaign is unknown")
			return adsplatform.NewStaticSource(), nil
		}
		src, err := adsplatform.LoadStaticSource(cfg.AdsFixturePath)
		if err != nil {
			return nil, fmt.Errorf("load ads fixture: %w", err)
		}
		return src, nil
	}
	return nil, fmt.Errorf("%w: ads_backend %q", config.ErrInvalidConfig, cfg.AdsBackend)
}

func buildPipeline(ctx context.Context, cfg *config.Config, client *http.Client, log logger.Logger) (*pipeline.Pipeline, *assets.MemoryStore, error) {
	g := gemini.New(gemini.Options{
		APIKey:            cfg.GeminiAPIKey,
		BaseURL:           cfg.GeminiBaseURL,
		APIVersion:        cfg.GeminiAPIVersion,
		TextModel:         cfg.TextModel,
		ImageModel:        cfg.ImageModel,
		HTTPClient:        client,
		Logger:            log.Named("gemini"),
		RequestsPerSecond: cfg.LLMRequestsPerSecond,
	})

	var text generation.TextModel = g
	if cfg.LLMProvider == config.LLMBedrock {
		b, err := bedrock.New(ctx, bedrock.Options{
			ModelID:           cfg.BedrockModelID,
			Region:            cfg.AWSRegion,
			RequestsPerSecond: cfg.LLMRequestsPerSecond,
			Logger:            log.Named("bedrock"),
		})
		if err != nil {
			return nil, nil, err
		}
		text = b
	}

	var store assets.Store
	var mem *assets.MemoryStore
	switch cfg.AssetsBackend {
	case config.AssetsS3:
		s3, err := assets.NewS3Store(ctx, assets.S3Config{
			Region:    cfg.AWSRegion,
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			CDNDomain: cfg.CDNDomain,
		})
		if err != nil {
			return nil, nil, err
		}
		store = s3
	default:
		mem = assets.NewMemoryStore(cfg.PublicBaseURL)
		store = mem
	}

	adapt, err := adapter.New(
		adapter.WithStrategy(adapter.Strategy(cfg.AdaptStrategy)),
		adapter.WithLogger(log.Named("adapter")),
	)
	if err != nil {
		return nil, nil, err
	}

	renderer := compositor.NewTextRenderer(ctx, cfg.RenderBackend, log.Named("renderer"))
	genLog := generation.WithLogger(log.Named("generation"))

	pipe, err := pipeline.New(pipeline.Stages{
		Landing:    landing.New(landing.WithHTTPClient(client), landing.WithLogger(log.Named("landing"))),
		Analyzer:   generation.NewBrandAnalyzer(text, genLog),
		Variations: generation.NewTextVariationGenerator(text, genLog),
		Visual:     generation.NewVisualSynthesizer(g, genLog),
		Adapter:    adapt,
		Compositor: compositor.New(compositor.WithRenderer(renderer), compositor.WithLogger(log.Named("compositor"))),
		Assets:     store,
	},
		pipeline.WithConcurrency(cfg.RenderConcurrency),
		pipeline.WithQueueSize(cfg.QueueSize),
		pipeline.WithLogger(log.Named("pipeline")),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("build pipeline: %w", err)
	}
	return pipe, mem, nil
}
