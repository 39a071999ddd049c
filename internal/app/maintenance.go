package service

import (
	"context"
	"runtime"
	"time"

	"github.com/okian/adcraft/internal/domain/model"
	"github.com/okian/adcraft/pkg/logger"
	"github.com/okian/adcraft/pkg/metrics"
)

// runMaintenance reaps timed-out jobs and refreshes gauges until Stop.
func (s *Service) runMaintenance(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.reap(ctx)
			s.updateGauges(ctx)
		}
	}
}

// reap fails processing jobs that have not moved for longer than the job
// timeout. Paused jobs are skipped; resuming refreshes UpdatedAt.
func (s *Service) reap(ctx context.Context) int {
	if s.jobTimeout <= 0 {
		return 0
	}
	jobs, err := s.store.ListByStatus(ctx, model.StatusProcessing)
	if err != nil {
		s.logger.Warn(ctx, "reaper could not list jobs", logger.Error(err))
		return 0
	}
	cutoff := s.now().Add(-s.jobTimeout)
	reaped := 0
	for _, j := range jobs {
		if j.Paused || j.UpdatedAt.After(cutoff) {
			continue
		}
		outcome, err := s.Timeout(ctx, j.ID)
		if err != nil {
			s.logger.Debug(ctx, "reaper skipped job", logger.JobID(j.ID), logger.Error(err))
			continue
		}
		if outcome == model.OutcomeApplied {
			reaped++
		}
	}
	if reaped > 0 {
		s.logger.Info(ctx, "reaped timed out jobs", logger.Int("count", reaped))
	}
	return reaped
}

func (s *Service) updateGauges(ctx context.Context) {
	if counts, err := s.store.CountByStatus(ctx); err == nil {
		for st, n := range counts {
			metrics.UpdateJobsByStatus(string(st), n)
		}
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
