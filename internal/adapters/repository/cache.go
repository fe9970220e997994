package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/vmatch/internal/domain/model"
	"github.com/okian/vmatch/pkg/logger"
	"github.com/okian/vmatch/pkg/metrics"
)

const (
	defaultCacheTTL    = 5 * time.Minute
	defaultCachePrefix = "vmatch:"
)

// CacheOption configures a CachedStore.
type CacheOption func(*CachedStore)

// WithCacheTTL sets how long cached entities live.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *CachedStore) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCachePrefix namespaces cache keys.
func WithCachePrefix(prefix string) CacheOption {
	return func(c *CachedStore) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithCacheLogger sets the logger used for cache failures.
func WithCacheLogger(l logger.Logger) CacheOption {
	return func(c *CachedStore) {
		if l != nil {
			c.logger = l
		}
	}
}

// CachedStore is a read-through redis cache in front of another Store for
// single-entity lookups. Writes go to the backing store and evict the cached entry.
// A failing cache never fails a request; the backing store answers instead.
type CachedStore struct {
	Store
	client redis.Cmdable
	ttl    time.Duration
	prefix string
	logger logger.Logger
}

var _ Store = (*CachedStore)(nil)

// NewCachedStore wraps backing with a redis cache.
func NewCachedStore(backing Store, client redis.Cmdable, opts ...CacheOption) *CachedStore {
	c := &CachedStore{
		Store:  backing,
		client: client,
		ttl:    defaultCacheTTL,
		prefix: defaultCachePrefix,
		logger: logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewRedisClient builds a client with the pool settings used in production.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
}

func (c *CachedStore) volunteerKey(id string) string { return c.prefix + "volunteer:" + id }
func (c *CachedStore) projectKey(id string) string   { return c.prefix + "project:" + id }

// GetVolunteer implements Store.
func (c *CachedStore) GetVolunteer(ctx context.Context, id string) (model.VolunteerProfile, error) {
	var v model.VolunteerProfile
	if c.lookup(ctx, c.volunteerKey(id), &v) {
		return v, nil
	}
	v, err := c.Store.GetVolunteer(ctx, id)
	if err != nil {
		return v, err
	}
	c.fill(ctx, c.volunteerKey(id), v)
	return v, nil
}

// SaveVolunteer implements Store.
func (c *CachedStore) SaveVolunteer(ctx context.Context, v model.VolunteerProfile) error { //nolint:gocritic // hugeParam: mirrors Store
	if err := c.Store.SaveVolunteer(ctx, v); err != nil {
		return err
	}
	c.evict(ctx, c.volunteerKey(v.ID))
	return nil
}

// GetProject implements Store.
func (c *CachedStore) GetProject(ctx context.Context, id string) (model.Project, error) {
	var p model.Project
	if c.lookup(ctx, c.projectKey(id), &p) {
		return p, nil
	}
	p, err := c.Store.GetProject(ctx, id)
	if err != nil {
		return p, err
	}
	c.fill(ctx, c.projectKey(id), p)
	return p, nil
}

// UpdateProjectStatus implements Store.
func (c *CachedStore) UpdateProjectStatus(ctx context.Context, id string, status model.ProjectStatus, at time.Time) error {
	if err := c.Store.UpdateProjectStatus(ctx, id, status, at); err != nil {
		return err
	}
	c.evict(ctx, c.projectKey(id))
	return nil
}

// CreateApplication implements Store. The project's applied count changes, so its entry is evicted.
func (c *CachedStore) CreateApplication(ctx context.Context, a model.Application) error { //nolint:gocritic // hugeParam: mirrors Store
	if err := c.Store.CreateApplication(ctx, a); err != nil {
		return err
	}
	c.evict(ctx, c.projectKey(a.ProjectID))
	return nil
}

// Ping checks both the cache and the backing store.
func (c *CachedStore) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return c.Store.Ping(ctx)
}

func (c *CachedStore) lookup(ctx context.Context, key string, out any) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		metrics.RecordCacheMiss()
		return false
	case err != nil:
		c.fail(ctx, "get", key, err)
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.fail(ctx, "decode", key, err)
		c.evict(ctx, key)
		return false
	}
	metrics.RecordCacheHit()
	return true
}

func (c *CachedStore) fill(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.fail(ctx, "encode", key, err)
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.fail(ctx, "set", key, err)
	}
}

func (c *CachedStore) evict(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.fail(ctx, "del", key, err)
	}
}

func (c *CachedStore) fail(ctx context.Context, op, key string, err error) {
	metrics.RecordCacheError()
	c.logger.Warn(ctx, "cache operation failed",
		logger.String("op", op),
		logger.String("key", key),
		logger.Error(err),
	)
}
