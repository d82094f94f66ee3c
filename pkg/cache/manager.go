package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/PepeHerrera14/final-adquisicion/pkg/logging"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cached value could not be decoded
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// scanBatch is the COUNT hint of each SCAN call during a purge.
const scanBatch = 500

// Options configures a Manager.
type Options struct {
	// Prefix namespaces every key.
	Prefix string

	// TTL is the lifetime of stored entries; zero keeps them until purged.
	TTL time.Duration
}

// DefaultOptions returns the options used by the acquisition commands.
func DefaultOptions() Options {
	return Options{
		Prefix: "f1",
		TTL:    24 * time.Hour,
	}
}

// Manager stores API response bodies in Redis.
type Manager struct {
	redis  redis.UniversalClient
	opts   Options
	logger zerolog.Logger
}

// NewManager creates a manager on top of redisClient.
func NewManager(redisClient redis.UniversalClient, opts Options) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultOptions().Prefix
	}
	if opts.TTL < 0 {
		opts.TTL = 0
	}
	return &Manager{
		redis:  redisClient,
		opts:   opts,
		logger: logging.NewLogger("cache"),
	}
}

// RedisKey is the full key under which k is stored.
func (m *Manager) RedisKey(k Key) string {
	return m.opts.Prefix + ":" + k.String()
}

// Get returns the entry stored for k, or ErrCacheMiss. An undecodable value
// is removed and reported as ErrInvalidEntry.
func (m *Manager) Get(ctx context.Context, k Key) (*Entry, error) {
	redisKey := m.RedisKey(k)

	data, err := m.redis.Get(ctx, redisKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			missesTotal.Inc()
			return nil, ErrCacheMiss
		}
		errorsTotal.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		errorsTotal.WithLabelValues("get").Inc()
		m.logger.Warn().Err(err).Str("key", redisKey).Msg("Dropping undecodable cache entry")
		_ = m.redis.Del(ctx, redisKey).Err()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	hitsTotal.Inc()
	return &entry, nil
}

// Put stores entry under k with the configured TTL.
func (m *Manager) Put(ctx context.Context, k Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		errorsTotal.WithLabelValues("put").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, m.RedisKey(k), data, m.opts.TTL).Err(); err != nil {
		errorsTotal.WithLabelValues("put").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	writtenBytesTotal.Add(float64(len(data)))
	return nil
}

// Delete removes the entry stored for k.
func (m *Manager) Delete(ctx context.Context, k Key) error {
	if err := m.redis.Del(ctx, m.RedisKey(k)).Err(); err != nil {
		errorsTotal.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Purge removes every entry whose path starts with pathPrefix and returns
// the number of keys removed. Purge(ctx, "/ergast/f1/2024") drops the
// calendar, results and pit stops cached for the 2024 season.
func (m *Manager) Purge(ctx context.Context, pathPrefix string) (int, error) {
	pattern := m.RedisKey(Key{Path: pathPrefix}) + "*"

	removed := 0
	iter := m.redis.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		n, err := m.redis.Del(ctx, iter.Val()).Result()
		if err != nil {
			errorsTotal.WithLabelValues("purge").Inc()
			return removed, fmt.Errorf("redis del: %w", err)
		}
		// SCAN may return a key twice
		removed += int(n)
	}
	if err := iter.Err(); err != nil {
		errorsTotal.WithLabelValues("purge").Inc()
		return removed, fmt.Errorf("redis scan: %w", err)
	}

	purgedKeysTotal.Add(float64(removed))
	m.logger.Info().Str("pattern", pattern).Int("keys", removed).Msg("Cache purged")
	return removed, nil
}
