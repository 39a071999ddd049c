// Package service owns the creative job lifecycle: creation, dispatch to the
// automation target, completion and failure callbacks, pause/resume, delete
// and timeouts.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/adcraft/internal/adapters/mq/queue"
	"github.com/okian/adcraft/internal/adapters/mq/worker"
	"github.com/okian/adcraft/internal/adapters/repository"
	"github.com/okian/adcraft/internal/domain/dedupe"
	"github.com/okian/adcraft/internal/domain/model"
	"github.com/okian/adcraft/internal/domain/scoring"
	"github.com/okian/adcraft/pkg/logger"
	"github.com/okian/adcraft/pkg/metrics"
)

const (
	defaultMaxCount     = 10
	defaultTopN         = 5
	defaultQueueSize    = 10_000
	defaultDedupeSize   = 50_000
	defaultReapInterval = 30 * time.Second
	maxWinnersLimit     = 50
	stopTimeout         = 30 * time.Second

	callbackKindComplete = "complete"
	callbackKindFail     = "fail"
	callbackKindTimeout  = "timeout"
)

// AdsSource reads a campaign's ad performance and an ad set's targeting.
type AdsSource interface {
	CampaignAds(ctx context.Context, campaignID string) ([]model.AdPerformanceSample, error)
	Targeting(ctx context.Context, adSetID string) (*model.Targeting, error)
}

// Dispatcher hands a job to the automation target. It must not block until
// the creatives exist; results come back through CompleteJob or FailJob.
type Dispatcher interface {
	Dispatch(ctx context.Context, p model.DispatchPayload) error
}

// DispatchTask is one queued dispatch attempt.
type DispatchTask struct {
	JobID string
}

// CreateJobRequest is a validated-on-entry request for new creatives.
type CreateJobRequest struct {
	OwnerID        string
	CampaignID     string
	LandingPageURL string
	Format         string
	Count          int
}

// Service implements the job orchestration used by the HTTP API.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	ads        AdsSource
	dispatcher Dispatcher
	scorer     *scoring.Scorer
	deduper    dedupe.Deduper
	queue      *queue.InMemoryQueue[DispatchTask]
	pool       *worker.Pool[DispatchTask]

	workerCount  int
	queueSize    int
	dedupeSize   int
	maxCount     int
	topN         int
	jobTimeout   time.Duration
	reapInterval time.Duration
	callbackBase string

	now   func() time.Time
	newID func() string

	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	logger logger.Logger
}

// New constructs a Service. Jobs can be created before Start; they are
// dispatched once workers run.
func New(opts ...Option) *Service {
	s := &Service{
		store:        repository.NewMemoryStore(),
		scorer:       scoring.NewScorer(),
		workerCount:  runtime.NumCPU() * 2,
		queueSize:    defaultQueueSize,
		dedupeSize:   defaultDedupeSize,
		maxCount:     defaultMaxCount,
		topN:         defaultTopN,
		reapInterval: defaultReapInterval,
		callbackBase: "http://localhost:9080",
		now:          time.Now,
		newID:        uuid.NewString,
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue[DispatchTask](queue.WithCapacity(s.queueSize), queue.WithName("dispatch"))
	return s
}

// Store returns the job store.
func (s *Service) Store() repository.Store { return s.store }

// Attach sets the dispatcher after construction, for targets that need the
// service themselves. Must be called before Start.
func (s *Service) Attach(d Dispatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatcher = d
}

// Start launches the dispatch workers and the background loops.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.ads == nil || s.dispatcher == nil {
		return fmt.Errorf("%w: ads source and dispatcher are required", ErrValidation)
	}

	s.pool = worker.NewPool[DispatchTask](s.queue, s.handleDispatch,
		worker.WithSize(s.workerCount), worker.WithName("dispatch"), worker.WithLogger(s.logger))
	s.pool.Start(ctx)

	s.wg.Add(1)
	go s.runMaintenance(ctx)

	s.started = true
	s.logger.Info(ctx, "creative job service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("store", s.store.Name()),
		logger.Duration("jobTimeout", s.jobTimeout),
	)
	return nil
}

// Stop drains the dispatch queue, stops background loops and closes the store.
// A stopped service cannot be restarted.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping creative job service...")
	close(s.stopCh)
	s.wg.Wait()

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "dispatch pool did not drain", logger.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "error closing store", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "creative job service stopped")
}

// CreateJob validates req, persists a pending job, moves it to processing and
// queues its dispatch. The returned job is always processing.
func (s *Service) CreateJob(ctx context.Context, req CreateJobRequest) (*model.CreativeJob, error) {
	format, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	job := model.NewCreativeJob(s.newID(), req.OwnerID, strings.TrimSpace(req.CampaignID),
		strings.TrimSpace(req.LandingPageURL), format, req.Count, now)
	if err := s.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	// processing is recorded before the task is visible to workers, so the
	// returned job is never one a fast dispatch already finished
	updated, err := s.store.Update(ctx, job.ID, markProcessing(s.now()))
	if err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}

	if err := s.queue.Enqueue(ctx, DispatchTask{JobID: job.ID}); err != nil {
		s.logger.Error(ctx, "dispatch enqueue failed", logger.JobID(job.ID), logger.Error(err))
		_, _ = s.store.Update(ctx, job.ID, func(j *model.CreativeJob) error {
			return j.Fail("dispatch queue unavailable", s.now())
		})
		metrics.RecordJobFailed("enqueue", 0)
		return nil, fmt.Errorf("%w: %v", ErrBusy, err)
	}

	metrics.RecordJobCreated(format)
	s.logger.Info(ctx, "job created",
		logger.JobID(job.ID),
		logger.String("campaign", job.CampaignID),
		logger.String("format", format),
		logger.Int("count", job.Count),
	)
	return updated, nil
}

func (s *Service) validate(req CreateJobRequest) (string, error) {
	if strings.TrimSpace(req.CampaignID) == "" {
		return "", fmt.Errorf("%w: campaignId is required", ErrValidation)
	}
	if req.Count < 1 || req.Count > s.maxCount {
		return "", fmt.Errorf("%w: count must be between 1 and %d", ErrValidation, s.maxCount)
	}
	if _, err := model.ExpandFormats(req.Format); err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if lp := strings.TrimSpace(req.LandingPageURL); lp != "" {
		u, err := url.Parse(lp)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return "", fmt.Errorf("%w: landingPageUrl must be an absolute http(s) url", ErrValidation)
		}
	}
	return strings.ToLower(strings.TrimSpace(req.Format)), nil
}

// markProcessing is idempotent; jobs already past pending are left alone.
func markProcessing(now time.Time) repository.UpdateFunc {
	return func(j *model.CreativeJob) error {
		if j.Status == model.StatusPending {
			return j.MarkProcessing(now)
		}
		return nil
	}
}

// GetJob returns the job if ownerID may see it. Jobs without an owner are
// visible to everyone.
func (s *Service) GetJob(ctx context.Context, ownerID, jobID string) (*model.CreativeJob, error) {
	job, err := s.store.Get(ctx, jobID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	if err != nil {
		return nil, err
	}
	if job.OwnerID != "" && job.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return job, nil
}

// Pause suppresses new work for a pending or processing job.
func (s *Service) Pause(ctx context.Context, ownerID, jobID string) (*model.CreativeJob, error) {
	job, err := s.mutate(ctx, ownerID, jobID, func(j *model.CreativeJob) error { return j.Pause(s.now()) })
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "job paused", logger.JobID(jobID))
	return job, nil
}

// Resume clears the paused flag. A callback result held while paused is
// applied now. A job whose dispatch was suppressed while paused is queued
// again; a task for it that is still queued finds the dispatch claimed and
// drops out.
func (s *Service) Resume(ctx context.Context, ownerID, jobID string) (*model.CreativeJob, error) {
	var held string
	job, err := s.mutate(ctx, ownerID, jobID, func(j *model.CreativeJob) error {
		held = ""
		if j.Held != nil {
			held = callbackKindFail
			if len(j.Held.Creatives) > 0 {
				held = callbackKindComplete
			}
		}
		return j.Resume(s.now())
	})
	if err != nil {
		return nil, err
	}
	if held != "" && job.Status.Terminal() {
		s.recordFinish(ctx, job, held)
	}
	if !job.Status.Terminal() && job.DispatchedAt == nil {
		if err := s.queue.Enqueue(ctx, DispatchTask{JobID: jobID}); err != nil {
			s.logger.Warn(ctx, "re-dispatch after resume failed", logger.JobID(jobID), logger.Error(err))
			return job, fmt.Errorf("%w: %v", ErrBusy, err)
		}
	}
	s.logger.Info(ctx, "job resumed", logger.JobID(jobID))
	return job, nil
}

// Delete removes a job. Callbacks for it become no-ops.
func (s *Service) Delete(ctx context.Context, ownerID, jobID string) error {
	if _, err := s.GetJob(ctx, ownerID, jobID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, jobID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, jobID)
		}
		return err
	}
	s.logger.Info(ctx, "job deleted", logger.JobID(jobID))
	return nil
}

func (s *Service) mutate(ctx context.Context, ownerID, jobID string, fn repository.UpdateFunc) (*model.CreativeJob, error) {
	if _, err := s.GetJob(ctx, ownerID, jobID); err != nil {
		return nil, err
	}
	job, err := s.store.Update(ctx, jobID, fn)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	case errors.Is(err, model.ErrJobTerminal):
		return nil, fmt.Errorf("%w: %v", ErrConflict, err)
	case err != nil:
		return nil, err
	}
	return job, nil
}

// CompleteJob applies a completion callback to a processing job. While the
// job is paused the result is held and OutcomeHeld returned; Resume applies
// it. Any other state yields OutcomeIgnored. A repeated deliveryID yields
// OutcomeDuplicate without touching the job.
func (s *Service) CompleteJob(ctx context.Context, jobID string, creatives []model.GeneratedCreative, deliveryID string) (model.CallbackOutcome, error) {
	if len(creatives) == 0 {
		return "", fmt.Errorf("%w: at least one creative is required", ErrValidation)
	}
	held := &model.HeldOutcome{Creatives: creatives}
	return s.applyCallback(ctx, jobID, callbackKindComplete, deliveryID, held, func(j *model.CreativeJob) error {
		return j.Complete(creatives, s.now())
	})
}

// FailJob applies a failure callback with the same rules as CompleteJob.
func (s *Service) FailJob(ctx context.Context, jobID, message, deliveryID string) (model.CallbackOutcome, error) {
	if strings.TrimSpace(message) == "" {
		message = "automation target reported an unspecified error"
	}
	held := &model.HeldOutcome{ErrorMessage: message}
	return s.applyCallback(ctx, jobID, callbackKindFail, deliveryID, held, func(j *model.CreativeJob) error {
		return j.Fail(message, s.now())
	})
}

// Timeout fails a processing job with a timeout message.
func (s *Service) Timeout(ctx context.Context, jobID string) (model.CallbackOutcome, error) {
	msg := "job timed out waiting for creatives"
	if s.jobTimeout > 0 {
		msg = fmt.Sprintf("job timed out after %s waiting for creatives", s.jobTimeout)
	}
	return s.applyCallback(ctx, jobID, callbackKindTimeout, "", nil, func(j *model.CreativeJob) error {
		return j.Fail(msg, s.now())
	})
}

// applyCallback runs fn on a processing, unpaused job. A paused job keeps held
// instead when it is non-nil.
func (s *Service) applyCallback(ctx context.Context, jobID, kind, deliveryID string, held *model.HeldOutcome, fn repository.UpdateFunc) (model.CallbackOutcome, error) {
	var key string
	if deliveryID != "" {
		key = dedupe.Key(jobID, kind, deliveryID)
		if s.deduper.SeenAndRecord(ctx, key) {
			metrics.RecordCallbackDuplicate()
			s.logger.Debug(ctx, "duplicate callback delivery", logger.JobID(jobID), logger.String("delivery", deliveryID))
			return model.OutcomeDuplicate, nil
		}
	}

	var parked bool
	job, err := s.store.Update(ctx, jobID, func(j *model.CreativeJob) error {
		parked = false
		if j.Status == model.StatusProcessing && j.Paused && held != nil {
			if parked = j.Hold(*held, s.now()); parked {
				return nil
			}
		}
		if j.Status != model.StatusProcessing || j.Paused {
			return errNotApplicable
		}
		return fn(j)
	})
	switch {
	case err == nil && parked:
		s.logger.Info(ctx, "callback held until resume", logger.JobID(jobID), logger.String("kind", kind))
		return model.OutcomeHeld, nil
	case err == nil:
	case errors.Is(err, errNotApplicable):
		metrics.RecordCallbackIgnored(kind)
		s.logger.Info(ctx, "callback ignored", logger.JobID(jobID), logger.String("kind", kind))
		return model.OutcomeIgnored, nil
	case errors.Is(err, repository.ErrNotFound):
		metrics.RecordCallbackIgnored(kind)
		return model.OutcomeIgnored, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	default:
		if key != "" {
			s.deduper.Unrecord(ctx, key)
		}
		return "", fmt.Errorf("apply %s callback: %w", kind, err)
	}

	s.recordFinish(ctx, job, kind)
	return model.OutcomeApplied, nil
}

func (s *Service) recordFinish(ctx context.Context, job *model.CreativeJob, kind string) {
	elapsed := float64(job.UpdatedAt.Sub(job.CreatedAt).Milliseconds())
	switch job.Status {
	case model.StatusCompleted:
		metrics.RecordJobCompleted(elapsed)
		s.logger.Info(ctx, "job completed", logger.JobID(job.ID), logger.Int("creatives", len(job.Result.Creatives)))
	case model.StatusFailed:
		if kind == callbackKindTimeout {
			metrics.RecordJobTimedOut()
		}
		metrics.RecordJobFailed(kind, elapsed)
		s.logger.Warn(ctx, "job failed", logger.JobID(job.ID), logger.String("kind", kind), logger.String("reason", job.ErrorMessage))
	}
}

// Winners ranks the campaign's ads. limit <= 0 uses the configured top N.
func (s *Service) Winners(ctx context.Context, campaignID string, limit int) ([]model.WinningCreativeScore, error) {
	if strings.TrimSpace(campaignID) == "" {
		return nil, fmt.Errorf("%w: campaignId is required", ErrValidation)
	}
	if limit <= 0 {
		limit = s.topN
	}
	if limit > maxWinnersLimit {
		limit = maxWinnersLimit
	}
	if s.ads == nil {
		return nil, fmt.Errorf("%w: no ads source configured", ErrValidation)
	}
	samples, err := s.ads.CampaignAds(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load campaign %s: %w", campaignID, err)
	}
	return s.scorer.IdentifyWinningCreatives(samples, limit), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	stats := map[string]any{
		"started":     started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"queueLength": s.queue.Len(),
		"dedupeSize":  s.dedupeSize,
		"dedupeUsed":  s.deduper.Size(),
		"store":       s.store.Name(),
	}
	if counts, err := s.store.CountByStatus(ctx); err == nil {
		jobs := make(map[string]int, len(counts))
		for st, n := range counts {
			jobs[string(st)] = n
		}
		stats["jobs"] = jobs
	}
	return stats
}
