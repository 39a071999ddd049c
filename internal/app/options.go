package service

import (
	"time"

	"github.com/okian/adcraft/internal/adapters/repository"
	"github.com/okian/adcraft/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the job store. Defaults to an in-memory store.
func WithStore(s repository.Store) Option {
	return func(svc *Service) {
		if s != nil {
			svc.store = s
		}
	}
}

// WithAdsSource sets where campaign performance is read from.
func WithAdsSource(a AdsSource) Option {
	return func(svc *Service) {
		if a != nil {
			svc.ads = a
		}
	}
}

// WithDispatcher sets the automation target.
func WithDispatcher(d Dispatcher) Option {
	return func(svc *Service) {
		if d != nil {
			svc.dispatcher = d
		}
	}
}

// WithWorkerCount sets the number of dispatch workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the dispatch queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many callback delivery ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxCount sets the upper bound for variations per job.
func WithMaxCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxCount = n
		}
	}
}

// WithWinnerTopN sets how many ranked ads are considered per dispatch.
func WithWinnerTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithJobTimeout enables the reaper. Jobs processing for longer than timeout
// are failed; the store is scanned every interval.
func WithJobTimeout(timeout, interval time.Duration) Option {
	return func(s *Service) {
		s.jobTimeout = timeout
		if interval > 0 {
			s.reapInterval = interval
		}
	}
}

// WithCallbackBaseURL sets the externally reachable base used for callbackUrl.
func WithCallbackBaseURL(u string) Option {
	return func(s *Service) {
		if u != "" {
			s.callbackBase = u
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the job id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}
