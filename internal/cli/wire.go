package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/vmatch/internal/adapters/chat"
	"github.com/okian/vmatch/internal/adapters/notify"
	"github.com/okian/vmatch/internal/adapters/repository"
	service "github.com/okian/vmatch/internal/app"
	"github.com/okian/vmatch/internal/config"
	"github.com/okian/vmatch/internal/domain/matching"
	"github.com/okian/vmatch/internal/domain/scoring"
	"github.com/okian/vmatch/pkg/logger"
)

// stack holds everything built from configuration for one command.
type stack struct {
	svc     *service.Service
	closers []func() error
}

// close releases resources the service does not own.
func (r *stack) close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openStore builds the catalog store named by the storage section, with the
// redis cache in front when an address is configured.
func openStore(ctx context.Context, c *config.Config, log logger.Logger) (repository.Store, []func() error, error) {
	var (
		store   repository.Store
		closers []func() error
	)
	switch c.Storage.Driver {
	case "", "memory":
		store = repository.NewMemoryStore(ctx)
	case repository.DriverPostgres, repository.DriverSQLite:
		sqlStore, err := repository.OpenSQL(ctx, c.Storage.Driver, c.Storage.DSN,
			repository.WithMaxOpenConns(c.Storage.MaxOpenConns),
			repository.WithMaxIdleConns(c.Storage.MaxIdleConns),
			repository.WithConnMaxLifetime(c.Storage.ConnMaxLifetime),
		)
		if err != nil {
			return nil, nil, err
		}
		store = sqlStore
	default:
		return nil, nil, fmt.Errorf("%w: %q", repository.ErrUnsupportedDriver, c.Storage.Driver)
	}

	if c.Redis.Addr != "" {
		client := repository.NewRedisClient(c.Redis.Addr, c.Redis.Password, c.Redis.DB)
		store = repository.NewCachedStore(store, client,
			repository.WithCacheTTL(c.Redis.TTL),
			repository.WithCachePrefix(c.Redis.Prefix),
			repository.WithCacheLogger(log.Named("cache")),
		)
		closers = append(closers, client.Close)
		if err := store.Ping(ctx); err != nil {
			log.Warn(ctx, "redis cache unreachable; reads fall through to the store", logger.Error(err))
		}
	}
	log.Info(ctx, "catalog store ready",
		logger.String("driver", c.Storage.Driver),
		logger.Bool("cache", c.Redis.Addr != ""),
	)
	return store, closers, nil
}

// scorer builds the scoring engine from the matching section.
func scorer(m config.MatchingConfig) *scoring.Engine {
	return scoring.NewEngine(
		scoring.WithWeights(m.Weights),
		scoring.WithDistanceBounds(m.NearKm, m.MaxKm),
		scoring.WithExperienceCeilings(m.ExperienceHoursCeiling, m.ExperienceImpactCeiling),
	)
}

// build wires a service from configuration. extra options are applied last.
// The caller starts the service and must call close after stopping it.
func build(ctx context.Context, c *config.Config, extra ...service.Option) (*stack, error) {
	log := logger.Get()

	store, closers, err := openStore(ctx, c, log)
	if err != nil {
		return nil, err
	}
	rt := &stack{closers: closers}

	notifier, err := notify.New(ctx, notify.Config{
		Channel:   c.Notify.Channel,
		AWSRegion: c.Notify.AWSRegion,
		FromEmail: c.Notify.FromEmail,
		TopicARN:  c.Notify.TopicARN,
	}, log.Named("notify"))
	if err != nil {
		_ = store.Close()
		_ = rt.close()
		return nil, err
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithStore(store),
		service.WithNotifier(notifier),
		service.WithMatcherOptions(
			matching.WithScorer(scorer(c.Matching)),
			matching.WithMaxLimit(c.Matching.MaxLimit),
		),
		service.WithWorkerCount(c.Notify.Workers),
		service.WithQueueSize(c.Notify.QueueSize),
		service.WithDedupeSize(c.Notify.DedupeSize),
		service.WithDeliveryTimeout(c.Notify.DeliveryTimeout),
		service.WithCandidatePoolSize(c.Matching.CandidatePoolSize),
		service.WithNotifyTopK(c.Matching.NotifyTopK),
	}

	responder, err := chat.NewGeminiResponder(ctx, c.Chat.APIKey,
		chat.WithModel(c.Chat.Model),
		chat.WithTimeout(c.Chat.Timeout),
		chat.WithMaxMessageLen(c.Chat.MaxMessageLen),
		chat.WithLogger(log.Named("chat")),
	)
	switch {
	case errors.Is(err, chat.ErrDisabled):
		log.Info(ctx, "chat disabled; no api key configured")
	case err != nil:
		_ = store.Close()
		_ = rt.close()
		return nil, err
	default:
		opts = append(opts, service.WithResponder(responder))
	}

	rt.svc = service.New(append(opts, extra...)...)
	return rt, nil
}
