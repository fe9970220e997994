package service

import (
	"time"

	"github.com/okian/vmatch/internal/adapters/chat"
	"github.com/okian/vmatch/internal/adapters/notify"
	"github.com/okian/vmatch/internal/adapters/repository"
	"github.com/okian/vmatch/internal/domain/matching"
	"github.com/okian/vmatch/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the catalog store. Without one the service starts an in-memory store.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithNotifier sets the delivery channel for notifications.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithResponder enables the chatbot.
func WithResponder(r chat.Responder) Option {
	return func(s *Service) {
		if r != nil {
			s.responder = r
		}
	}
}

// WithMatcherOptions passes options through to the matcher.
func WithMatcherOptions(opts ...matching.Option) Option {
	return func(s *Service) {
		s.matcherOpts = append(s.matcherOpts, opts...)
	}
}

// WithWorkerCount sets the number of notification workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the notification queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many notification keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithNotifyTopK sets how many recommended volunteers are notified about a new project.
// Zero disables proactive notifications.
func WithNotifyTopK(k int) Option {
	return func(s *Service) {
		if k >= 0 {
			s.notifyTopK = k
		}
	}
}

// WithCandidatePoolSize sets how many volunteers are ranked for a new project.
func WithCandidatePoolSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.candidatePoolSize = n
		}
	}
}

// WithDeliveryTimeout bounds a single notification delivery.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.deliveryTimeout = d
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

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
