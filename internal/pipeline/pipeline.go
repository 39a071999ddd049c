// Package pipeline is the in-process automation target. It receives dispatch
// payloads, generates creatives and reports the outcome through the same
// completion and failure handlers an external target would call.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/adcraft/internal/adapters/assets"
	"github.com/okian/adcraft/internal/adapters/mq/queue"
	"github.com/okian/adcraft/internal/adapters/mq/worker"
	"github.com/okian/adcraft/internal/domain/model"
	"github.com/okian/adcraft/internal/render/codec"
	"github.com/okian/adcraft/internal/render/compositor"
	"github.com/okian/adcraft/pkg/logger"
	"github.com/okian/adcraft/pkg/metrics"
)

const (
	defaultConcurrency = 4
	defaultQueueSize   = 256
	defaultWorkers     = 2
	targetName         = "local"
	outputKind         = "png" // the compositor always encodes PNG
)

// Errors.
var (
	ErrNotAttached = errors.New("pipeline has no reporter attached")
	ErrNoVisual    = errors.New("no base visual")
)

// Reporter receives the outcome of a job.
type Reporter interface {
	CompleteJob(ctx context.Context, jobID string, creatives []model.GeneratedCreative, deliveryID string) (model.CallbackOutcome, error)
	FailJob(ctx context.Context, jobID, message, deliveryID string) (model.CallbackOutcome, error)
}

// LandingFetcher returns a landing page's copy.
type LandingFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Analyzer derives the brand profile.
type Analyzer interface {
	Analyze(ctx context.Context, landingText string, adTexts []string) (model.DeepAnalysisResult, error)
}

// VariationGenerator writes copy variations.
type VariationGenerator interface {
	Generate(ctx context.Context, analysis model.DeepAnalysisResult, count int) ([]model.TextIteration, error)
}

// Synthesizer renders the base visual.
type Synthesizer interface {
	Synthesize(ctx context.Context, it model.TextIteration, analysis model.DeepAnalysisResult) ([]byte, error)
}

// FormatAdapter remaps a visual into a format's canvas.
type FormatAdapter interface {
	Adapt(ctx context.Context, base []byte, f model.CreativeFormat) ([]byte, error)
}

// Compositor bakes overlay text into a visual.
type Compositor interface {
	Compose(ctx context.Context, base []byte, f model.CreativeFormat, ov compositor.Overlay, palette []string) ([]byte, error)
}

// Stages bundles the generation steps.
type Stages struct {
	Landing    LandingFetcher
	Analyzer   Analyzer
	Variations VariationGenerator
	Visual     Synthesizer
	Adapter    FormatAdapter
	Compositor Compositor
	Assets     assets.Store
}

func (s Stages) validate() error {
	var missing []string
	if s.Analyzer == nil {
		missing = append(missing, "analyzer")
	}
	if s.Variations == nil {
		missing = append(missing, "variations")
	}
	if s.Visual == nil {
		missing = append(missing, "visual")
	}
	if s.Adapter == nil {
		missing = append(missing, "adapter")
	}
	if s.Compositor == nil {
		missing = append(missing, "compositor")
	}
	if s.Assets == nil {
		missing = append(missing, "assets")
	}
	if len(missing) > 0 {
		return fmt.Errorf("pipeline stages missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConcurrency bounds the per-job render fan-out.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithQueueSize sets how many dispatched jobs may wait.
func WithQueueSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.queueSize = n
		}
	}
}

// WithWorkers sets how many jobs run at once.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// Pipeline runs jobs on its own worker pool.
type Pipeline struct {
	stages      Stages
	concurrency int
	queueSize   int
	workers     int
	log         logger.Logger

	mu       sync.RWMutex
	reporter Reporter

	queue *queue.InMemoryQueue[model.DispatchPayload]
	pool  *worker.Pool[model.DispatchPayload]
}

// New validates the stages and creates a Pipeline.
func New(stages Stages, opts ...Option) (*Pipeline, error) {
	if err := stages.validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		stages:      stages,
		concurrency: defaultConcurrency,
		queueSize:   defaultQueueSize,
		workers:     defaultWorkers,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Get().Named("pipeline")
	}
	p.queue = queue.NewInMemoryQueue[model.DispatchPayload](queue.WithCapacity(p.queueSize), queue.WithName("pipeline"))
	p.pool = worker.NewPool[model.DispatchPayload](p.queue, p.handle,
		worker.WithSize(p.workers), worker.WithName("pipeline"), worker.WithLogger(p.log))
	return p, nil
}

// Attach sets where outcomes are reported.
func (p *Pipeline) Attach(r Reporter) {
	p.mu.Lock()
	p.reporter = r
	p.mu.Unlock()
}

// Start launches the pipeline workers.
func (p *Pipeline) Start(ctx context.Context) { p.pool.Start(ctx) }

// Shutdown drains queued jobs.
func (p *Pipeline) Shutdown(ctx context.Context) error { return p.pool.Shutdown(ctx) }

// Dispatch queues a job. It returns as soon as the job is accepted.
func (p *Pipeline) Dispatch(ctx context.Context, payload model.DispatchPayload) error {
	if p.getReporter() == nil {
		return ErrNotAttached
	}
	if err := p.queue.Enqueue(ctx, payload); err != nil {
		metrics.RecordDispatchError(targetName)
		return fmt.Errorf("queue job %s: %w", payload.JobID, err)
	}
	return nil
}

func (p *Pipeline) getReporter() Reporter {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reporter
}

func (p *Pipeline) handle(ctx context.Context, payload model.DispatchPayload) error {
	r := p.getReporter()
	deliveryID := targetName + "-" + payload.JobID

	creatives, err := p.Run(ctx, payload)
	if err != nil {
		if _, rerr := r.FailJob(ctx, payload.JobID, err.Error(), deliveryID); rerr != nil {
			return fmt.Errorf("report failure: %w", rerr)
		}
		return nil
	}
	outcome, err := r.CompleteJob(ctx, payload.JobID, creatives, deliveryID)
	if err != nil {
		return fmt.Errorf("report completion: %w", err)
	}
	if outcome != model.OutcomeApplied {
		p.log.Info(ctx, "generated creatives were not applied", logger.JobID(payload.JobID), logger.String("outcome", string(outcome)))
	}
	return nil
}

// Run executes every stage for one payload and returns the creatives.
func (p *Pipeline) Run(ctx context.Context, payload model.DispatchPayload) ([]model.GeneratedCreative, error) {
	log := p.log.With(logger.JobID(payload.JobID))
	start := time.Now()

	formats, err := model.ExpandFormats(payload.Format)
	if err != nil {
		return nil, err
	}

	landing := ""
	if p.stages.Landing != nil && payload.LandingPageURL != "" {
		landing, err = p.stages.Landing.Fetch(ctx, payload.LandingPageURL)
		if err != nil {
			// reference ad copy alone can still carry the analysis
			log.Warn(ctx, "landing page unavailable", logger.String("url", payload.LandingPageURL), logger.Error(err))
			landing = ""
		}
	}

	analysis, err := p.stages.Analyzer.Analyze(ctx, landing, referenceTexts(payload))
	if err != nil {
		return nil, err
	}
	variations, err := p.stages.Variations.Generate(ctx, analysis, payload.Count)
	if err != nil {
		return nil, err
	}
	base, err := p.stages.Visual.Synthesize(ctx, variations[0], analysis)
	if err != nil {
		return nil, err
	}
	if len(base) == 0 {
		return nil, ErrNoVisual
	}

	creatives, err := p.render(ctx, payload.JobID, base, formats, variations, analysis.ColorPalette)
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "creatives generated",
		logger.Int("creatives", len(creatives)),
		logger.Duration("took", time.Since(start)),
	)
	return creatives, nil
}

// render adapts the base once per format, then composes and uploads every
// variation in every format with at most p.concurrency renders in flight.
func (p *Pipeline) render(ctx context.Context, jobID string, base []byte, formats []model.CreativeFormat,
	variations []model.TextIteration, palette []string,
) ([]model.GeneratedCreative, error) {
	adapted := make([][]byte, len(formats))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for k, f := range formats {
		g.Go(func() error {
			start := time.Now()
			out, err := p.stages.Adapter.Adapt(gctx, base, f)
			if err != nil {
				metrics.RecordStageError("adapt")
				return fmt.Errorf("adapt %s: %w", f, err)
			}
			metrics.RecordStageLatency("adapt", float64(time.Since(start).Milliseconds()))
			adapted[k] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	creatives := make([]model.GeneratedCreative, len(variations)*len(formats))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, it := range variations {
		for k, f := range formats {
			g.Go(func() error {
				img, err := p.stages.Compositor.Compose(gctx, adapted[k], f, compositor.OverlayFromTexts(it), palette)
				if err != nil {
					metrics.RecordStageError("compose")
					return fmt.Errorf("compose variation %d %s: %w", i, f, err)
				}
				url, err := p.stages.Assets.Put(gctx, assets.CreativeKey(jobID, i, string(f), outputKind), img, codec.ContentType(outputKind))
				if err != nil {
					metrics.RecordStageError("upload")
					return fmt.Errorf("upload variation %d %s: %w", i, f, err)
				}
				metrics.RecordCreativeRendered(string(f))
				creatives[i*len(formats)+k] = model.GeneratedCreative{Index: i, Format: f, ImageURL: url, Texts: it}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return creatives, nil
}

// referenceTexts are the winner's copy first, then the other ranked ads.
func referenceTexts(p model.DispatchPayload) []string {
	out := make([]string, 0, len(p.ReferenceTexts)+1)
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	if p.WinningAd != nil {
		add(strings.TrimSpace(p.WinningAd.Headline + "\n" + p.WinningAd.BodyText))
	}
	for _, t := range p.ReferenceTexts {
		add(t)
	}
	return out
}
