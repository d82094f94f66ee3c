// Package ratelimit implements the request pacing used against the statistics
// API. The API has no quota headers; politeness is enforced client-side by a
// fixed pause between consecutive page and event requests.
package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for pacing.
var (
	pacingSecondsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "f1_pacing_seconds_total",
		Help: "Total time spent in mandatory pacing pauses",
	})

	pacingPausesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "f1_pacing_pauses_total",
		Help: "Total number of pacing pauses",
	})
)

// DefaultInterval is the pause applied between consecutive requests.
const DefaultInterval = 1200 * time.Millisecond

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the default Sleeper. It returns ctx.Err() when the context
// ends before d elapses.
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Pacer enforces a fixed pause between requests.
type Pacer struct {
	interval time.Duration
	sleep    Sleeper
	logger   zerolog.Logger
}

// NewPacer creates a pacer. A nil sleeper selects ContextSleep; a negative
// interval is treated as zero.
func NewPacer(interval time.Duration, sleep Sleeper, logger zerolog.Logger) *Pacer {
	if interval < 0 {
		interval = 0
	}
	if sleep == nil {
		sleep = ContextSleep
	}
	return &Pacer{
		interval: interval,
		sleep:    sleep,
		logger:   logger,
	}
}

// Interval returns the configured pause.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Pause waits for the configured interval.
func (p *Pacer) Pause(ctx context.Context) error {
	if p.interval == 0 {
		return nil
	}

	p.logger.Debug().Dur("interval", p.interval).Msg("Pacing pause")
	pacingPausesTotal.Inc()
	pacingSecondsTotal.Add(p.interval.Seconds())

	return p.sleep(ctx, p.interval)
}
