// Package worker delivers queued notifications through a Notifier.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/vmatch/internal/domain/model"
	"github.com/okian/vmatch/pkg/logger"
	"github.com/okian/vmatch/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 4 // delivery is I/O bound
	defaultDeliveryTimeout  = 10 * time.Second
	metricsUpdateInterval   = 5 * time.Second
)

// Notifier delivers one notification.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
	Channel() string
}

// Queue is where workers read notifications from.
type Queue interface {
	Next(ctx context.Context) (model.Notification, bool)
	Close() error
}

// Forgetter releases a dedupe key so a failed notification can be sent again later.
type Forgetter interface {
	Unrecord(ctx context.Context, key string)
}

// InMemoryWorker pulls notifications off the queue one at a time.
type InMemoryWorker struct {
	queue     Queue
	notifier  Notifier
	forgetter Forgetter
	name      string
	timeout   time.Duration
	logger    logger.Logger

	delivered atomic.Int64
	failed    atomic.Int64
	done      chan struct{}
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(q Queue, n Notifier, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		notifier: n,
		name:     "worker",
		timeout:  defaultDeliveryTimeout,
		logger:   logger.NewNop(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run delivers notifications until the queue is drained and closed, or ctx is done.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)
	for {
		n, ok := w.queue.Next(ctx)
		if !ok {
			return
		}
		w.deliver(ctx, n)
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Stats returns the number of delivered and failed notifications.
func (w *InMemoryWorker) Stats() (delivered, failed int64) {
	return w.delivered.Load(), w.failed.Load()
}

// deliver sends one notification. Failures are logged and counted, never returned.
func (w *InMemoryWorker) deliver(ctx context.Context, n model.Notification) { //nolint:gocritic // hugeParam: value semantics off the queue
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	dctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	channel := w.notifier.Channel()
	if err := w.notifier.Notify(dctx, n); err != nil {
		w.failed.Add(1)
		metrics.RecordNotificationFailed(channel)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "delivery_error")
		if w.forgetter != nil {
			w.forgetter.Unrecord(ctx, n.DedupeKey())
		}
		w.logger.Error(ctx, "notification delivery failed",
			logger.String("notification_id", n.ID),
			logger.String("recipient_id", n.RecipientID),
			logger.String("type", string(n.Type)),
			logger.String("channel", channel),
			logger.Error(err),
		)
		return
	}

	w.delivered.Add(1)
	metrics.RecordNotificationDelivered(channel)
	w.logger.Debug(ctx, "notification delivered",
		logger.String("notification_id", n.ID),
		logger.String("recipient_id", n.RecipientID),
	)
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	running atomic.Int32
	started atomic.Bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	stop    chan struct{}
	once    sync.Once
	logger  logger.Logger
}

// NewPool creates workerCount workers. A count below one scales with the CPU count.
// Options are applied to every worker.
func NewPool(workerCount int, q Queue, n Notifier, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		cancel:  func() {},
		stop:    make(chan struct{}),
		logger:  logger.NewNop(),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(q, n, wopts...)
	}
	probe := &InMemoryWorker{logger: logger.NewNop()}
	for _, opt := range opts {
		opt(probe)
	}
	p.logger = probe.logger.Named("worker-pool")
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Running returns the number of workers whose Run has not returned.
func (p *Pool) Running() int { return int(p.running.Load()) }

// Stats sums delivered and failed counts across workers.
func (p *Pool) Stats() (delivered, failed int64) {
	for _, w := range p.workers {
		d, f := w.Stats()
		delivered += d
		failed += f
	}
	return delivered, failed
}

// Start runs every worker until ctx is done or Shutdown drains the queue.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	for _, w := range p.workers {
		p.running.Add(1)
		p.wg.Add(1)
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			defer p.running.Add(-1)
			w.Run(runCtx)
		}(w)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
	go p.startMetricsUpdater(runCtx)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
			metrics.UpdateWorkerActiveCount(p.Running())
		}
	}
}

// Shutdown closes the queue and waits for workers to drain it. If ctx expires
// first, the remaining workers are cancelled and the context error is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}
	defer p.halt()
	if !p.started.Load() {
		return nil
	}

	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("shutdown timed out: %w", ctx.Err())
		}
	}
	return nil
}

// Stop cancels every worker without draining and waits for them to return.
func (p *Pool) Stop() {
	p.halt()
	p.wg.Wait()
}

func (p *Pool) halt() {
	p.once.Do(func() {
		close(p.stop)
		p.cancel()
		metrics.UpdateWorkerActiveCount(0)
	})
}
