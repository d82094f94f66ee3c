package client

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/PepeHerrera14/final-adquisicion/pkg/ratelimit"
)

// Prometheus metrics for retry operations.
var (
	apiRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "f1_api_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	apiRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "f1_api_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 4, 8, 16, 32},
	}, []string{"error_class"})

	apiRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "f1_api_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// BaseDelay is the delay before the first retry. It doubles for each
	// following retry.
	BaseDelay time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 6,
		BaseDelay:   1 * time.Second,
	}
}

// Backoff returns the delay slept after the failed attempt with the given
// 0-based index: BaseDelay * 2^attempt.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return c.BaseDelay << uint(attempt)
}

// attemptFunc performs one attempt and classifies its failure.
type attemptFunc func(attempt int) (ErrorClass, error)

// retryWithBackoff runs fn until it succeeds, fails with a non-retriable
// class, or MaxAttempts is reached. The delay is slept before each retry and
// never after the last attempt.
func retryWithBackoff(ctx context.Context, cfg RetryConfig, sleep ratelimit.Sleeper, url string, logger zerolog.Logger, fn attemptFunc) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if sleep == nil {
		sleep = ratelimit.ContextSleep
	}

	var lastErr error
	var lastClass ErrorClass

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		errClass, err := fn(attempt)
		if err == nil {
			if attempt > 0 {
				logger.Info().
					Str("url", url).
					Int("attempt", attempt+1).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err
		lastClass = errClass

		if !shouldRetry(errClass) {
			return err
		}

		if attempt == cfg.MaxAttempts-1 {
			break
		}

		backoff := cfg.Backoff(attempt)
		apiRetriesTotal.WithLabelValues(string(errClass)).Inc()
		apiRetryBackoffSeconds.WithLabelValues(string(errClass)).Observe(backoff.Seconds())

		logger.Warn().
			Err(err).
			Str("url", url).
			Str("error_class", string(errClass)).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("Retrying request after backoff")

		if err := sleep(ctx, backoff); err != nil {
			logger.Warn().
				Str("url", url).
				Int("attempt", attempt+1).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %w", ErrContextCancelled, err)
		}
	}

	apiRetryExhaustedTotal.WithLabelValues(string(lastClass)).Inc()
	logger.Error().
		Str("url", url).
		Str("error_class", string(lastClass)).
		Int("max_attempts", cfg.MaxAttempts).
		Msg("Retry attempts exhausted")

	return &ExhaustedError{URL: url, Attempts: cfg.MaxAttempts, Last: lastErr}
}
