package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate reports every problem with c, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(c.Addr) == "" {
		add("addr must not be empty")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		add("log_format must be text or json, got %q", c.LogFormat)
	}
	if c.ShutdownTimeout <= 0 {
		add("shutdown_timeout must be positive")
	}

	switch c.Storage.Driver {
	case "memory":
	case "postgres", "sqlite":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			add("storage.dsn is required for driver %q", c.Storage.Driver)
		}
	default:
		add("storage.driver must be memory, postgres or sqlite, got %q", c.Storage.Driver)
	}
	if c.Redis.Addr != "" && c.Redis.TTL <= 0 {
		add("redis.ttl must be positive")
	}

	m := c.Matching
	if m.DefaultLimit <= 0 || m.MaxLimit <= 0 {
		add("matching.default_limit and matching.max_limit must be positive")
	}
	if m.DefaultLimit > m.MaxLimit {
		add("matching.default_limit %d exceeds matching.max_limit %d", m.DefaultLimit, m.MaxLimit)
	}
	if m.NotifyTopK < 0 {
		add("matching.notify_top_k must not be negative")
	}
	if m.CandidatePoolSize <= 0 || m.CandidatePoolSize > m.MaxLimit {
		add("matching.candidate_pool_size must be in [1, %d], got %d", m.MaxLimit, m.CandidatePoolSize)
	}
	if m.NotifyTopK > m.CandidatePoolSize {
		add("matching.notify_top_k %d exceeds matching.candidate_pool_size %d", m.NotifyTopK, m.CandidatePoolSize)
	}
	if err := m.Weights.Validate(); err != nil {
		add("matching.weights: %w", err)
	}
	if m.NearKm < 0 || m.MaxKm <= m.NearKm {
		add("matching.max_km must exceed matching.near_km")
	}
	if m.ExperienceHoursCeiling <= 0 || m.ExperienceImpactCeiling <= 0 {
		add("matching experience ceilings must be positive")
	}

	n := c.Notify
	switch n.Channel {
	case "log":
	case "ses":
		if n.FromEmail == "" {
			add("notify.from_email is required for the ses channel")
		}
	case "sns":
		if n.TopicARN == "" {
			add("notify.topic_arn is required for the sns channel")
		}
	default:
		add("notify.channel must be log, ses or sns, got %q", n.Channel)
	}
	if n.QueueSize <= 0 || n.DedupeSize <= 0 {
		add("notify.queue_size and notify.dedupe_size must be positive")
	}

	if c.Chat.Timeout <= 0 || c.Chat.MaxMessageLen <= 0 {
		add("chat.timeout and chat.max_message_len must be positive")
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
