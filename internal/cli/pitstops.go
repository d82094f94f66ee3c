package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/PepeHerrera14/final-adquisicion/internal/config"
	"github.com/PepeHerrera14/final-adquisicion/pkg/cache"
	"github.com/PepeHerrera14/final-adquisicion/pkg/client"
	"github.com/PepeHerrera14/final-adquisicion/pkg/ergast"
	"github.com/PepeHerrera14/final-adquisicion/pkg/pipeline"
)

func newPitStopsCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pitstops",
		Short: "Acquire per-driver pit-stop summaries from the statistics API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPitStops(cmd, cfg)
		},
	}
	addAPIFlags(cmd, cfg)
	return cmd
}

func addAPIFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	f.StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "statistics API base URL")
	f.StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent, "User-Agent header")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "timeout of one HTTP attempt")
	f.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "attempts per request, the first included")
	f.DurationVar(&cfg.BaseDelay, "base-delay", cfg.BaseDelay, "backoff before the first retry, doubled for each next one")
	f.IntVar(&cfg.PageSize, "page-size", cfg.PageSize, "pit stops requested per page")
	f.DurationVar(&cfg.EventDelay, "event-delay", cfg.EventDelay, "pause between consecutive events")
	f.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address of the response cache (disabled when empty)")
	f.IntVar(&cfg.RedisDB, "redis-db", cfg.RedisDB, "Redis database of the response cache")
	f.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "lifetime of cached responses (0 keeps them)")
	f.BoolVar(&cfg.RefreshCache, "refresh-cache", cfg.RefreshCache, "drop cached responses of the requested seasons first")
}

// newAPIClient builds the request executor, backed by Redis when configured.
// The returned func releases the cache connection.
func newAPIClient(ctx context.Context, cfg *config.Config) (*client.Client, func(), error) {
	if cfg.RedisAddr == "" {
		c, err := client.New(cfg.Client())
		return c, func() {}, err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")

	manager := cache.NewManager(redisClient, cfg.Cache())
	clientCfg := cfg.Client()
	clientCfg.Cache = manager

	c, err := client.New(clientCfg)
	if err != nil {
		_ = redisClient.Close()
		return nil, nil, err
	}

	if cfg.RefreshCache {
		for _, season := range seasons(cfg) {
			if _, err := manager.Purge(ctx, c.CachePath(fmt.Sprint(season))); err != nil {
				_ = redisClient.Close()
				return nil, nil, err
			}
		}
	}

	return c, func() { _ = redisClient.Close() }, nil
}

func runPitStops(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()

	api, cleanup, err := newAPIClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	source := ergast.NewClient(api, cfg.Pagination(), nil)
	stats, err := pipeline.New(source, cfg.Pipeline(), nil).Run(ctx, seasons(cfg))
	if err != nil {
		return err
	}

	log.Info().
		Int("seasons", stats.Seasons).
		Int("events", stats.Events).
		Int("rows", stats.Rows).
		Msg("Pit-stop acquisition complete")
	return nil
}
