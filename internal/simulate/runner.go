package simulate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/adcraft/internal/domain/model"
	"github.com/okian/adcraft/pkg/logger"
)

// ErrNoJobs is returned when no job could be created.
var ErrNoJobs = errors.New("no job was accepted")

// Run executes a complete simulation and returns its statistics. Jobs still
// processing when ctx ends are counted as pending.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Jobs <= 0 {
		cfg.Jobs = 1
	}
	formats, err := model.ExpandFormats(cfg.Format)
	if err != nil {
		return nil, err
	}

	log := logger.Get().Named("simulate")
	stats := &Stats{StartTime: time.Now()}
	client := NewClient(cfg.BaseURL, cfg.AccountID, cfg.CallbackToken, cfg.Timeout)

	log.Info(ctx, "starting adcraft simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("campaign", cfg.CampaignID),
		logger.String("format", cfg.Format),
		logger.Int("count", cfg.Count),
		logger.Int("jobs", cfg.Jobs),
		logger.Bool("playAutomation", cfg.PlayAutomation))

	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	ids := createJobs(ctx, client, cfg, stats, log)
	if len(ids) == 0 {
		return stats, ErrNoJobs
	}

	if cfg.PlayAutomation {
		playAutomation(ctx, client, cfg, ids, formats, stats, log)
	}

	pollJobs(ctx, client, cfg, ids, stats, log)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

func createJobs(ctx context.Context, client *Client, cfg *Config, stats *Stats, log logger.Logger) []string {
	var (
		mu  sync.Mutex
		ids []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := 0; i < cfg.Jobs; i++ {
		g.Go(func() error {
			id, err := client.CreateJob(gctx, createJobRequest{
				CampaignID:     cfg.CampaignID,
				LandingPageURL: cfg.LandingPageURL,
				Format:         cfg.Format,
				Count:          cfg.Count,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.JobsRejected++
				log.Warn(gctx, "job rejected", logger.Error(err))
				return nil
			}
			stats.JobsCreated++
			ids = append(ids, id)
			if cfg.Verbose {
				log.Info(gctx, "job created", logger.JobID(id))
			}
			return nil
		})
	}
	_ = g.Wait()
	return ids
}

// syntheticCreatives builds one creative per variation and format, the way
// the automation target would report them.
func syntheticCreatives(baseURL, jobID string, count int, formats []model.CreativeFormat) []creativeItem {
	out := make([]creativeItem, 0, count*len(formats))
	for i := 0; i < count; i++ {
		for _, f := range formats {
			out = append(out, creativeItem{
				URL:      baseURL + "/simulated/" + jobID + "/" + strconv.Itoa(i) + "-" + string(f) + ".png",
				Format:   string(f),
				Eyebrow:  "Simulation",
				Headline: "Variation " + strconv.Itoa(i+1),
				CTA:      "Mehr erfahren",
				Index:    i,
			})
		}
	}
	return out
}

func playAutomation(ctx context.Context, client *Client, cfg *Config, ids []string, formats []model.CreativeFormat, stats *Stats, log logger.Logger) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, id := range ids {
		g.Go(func() error {
			status, err := client.PostCreatives(gctx, creativesCallback{
				JobID:      id,
				Creatives:  syntheticCreatives(client.baseURL, id, max(cfg.Count, 1), formats),
				DeliveryID: "simulate-" + id,
			})
			if err != nil {
				log.Warn(gctx, "completion callback failed", logger.JobID(id), logger.Error(err))
				return nil
			}
			mu.Lock()
			stats.CallbacksSent++
			mu.Unlock()
			if cfg.Verbose {
				log.Info(gctx, "completion callback sent", logger.JobID(id), logger.String("outcome", status))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// pollJobs waits until every job is terminal or ctx ends.
func pollJobs(ctx context.Context, client *Client, cfg *Config, ids []string, stats *Stats, log logger.Logger) {
	pending := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		pending[id] = struct{}{}
	}

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		for id := range pending {
			job, err := client.GetJob(ctx, id)
			if err != nil {
				if ctx.Err() != nil {
					break
				}
				log.Warn(ctx, "poll failed", logger.JobID(id), logger.Error(err))
				continue
			}
			switch job.Status {
			case model.StatusCompleted:
				stats.JobsCompleted++
				delete(pending, id)
				if cfg.Verbose {
					n := 0
					if job.Result != nil {
						n = len(job.Result.Creatives)
					}
					log.Info(ctx, "job completed", logger.JobID(id), logger.Int("creatives", n))
				}
			case model.StatusFailed:
				stats.JobsFailed++
				delete(pending, id)
				log.Warn(ctx, "job failed", logger.JobID(id), logger.String("error", job.ErrorMessage))
			}
		}
		if len(pending) == 0 {
			return
		}

		select {
		case <-ctx.Done():
			stats.JobsPending = len(pending)
			log.Warn(ctx, "stopped waiting for jobs", logger.Int("pending", len(pending)))
			return
		case <-ticker.C:
		}
	}
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var jobsPerSecond float64
	if stats.Duration > 0 {
		jobsPerSecond = float64(stats.JobsCreated) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("jobsCreated", stats.JobsCreated),
		logger.Int("jobsRejected", stats.JobsRejected),
		logger.Int("callbacksSent", stats.CallbacksSent),
		logger.Int("jobsCompleted", stats.JobsCompleted),
		logger.Int("jobsFailed", stats.JobsFailed),
		logger.Int("jobsPending", stats.JobsPending),
		logger.Duration("duration", stats.Duration),
		logger.Float64("jobsPerSecond", jobsPerSecond))
}
