// Package pipeline runs the pit-stop acquisition: for every round of every
// requested season it resolves car numbers, fetches the pit stops, reduces
// them to per-driver summaries and writes one CSV per event.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/PepeHerrera14/final-adquisicion/pkg/ergast"
	"github.com/PepeHerrera14/final-adquisicion/pkg/logging"
	"github.com/PepeHerrera14/final-adquisicion/pkg/pitstops"
	"github.com/PepeHerrera14/final-adquisicion/pkg/ratelimit"
)

var (
	eventsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "f1_events_processed_total",
		Help: "Events whose pit-stop summary was written",
	})

	eventDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "f1_event_duration_seconds",
		Help:    "Time to acquire and persist one event, pauses excluded",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})
)

// Source is the subset of ergast.Client the pipeline needs.
type Source interface {
	Rounds(ctx context.Context, season int) ([]int, error)
	DriverNumbers(ctx context.Context, ev ergast.Event) (map[string]string, error)
	PitStops(ctx context.Context, ev ergast.Event) ([]ergast.PitStop, error)
}

// Config holds pipeline configuration.
type Config struct {
	// DataDir is the root of the per-season output directories.
	DataDir string
	// EventDelay is the pause between consecutive events.
	EventDelay time.Duration
}

// DefaultConfig returns the configuration used by the acquisition commands.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:    dataDir,
		EventDelay: ratelimit.DefaultInterval,
	}
}

// SummaryPath is the file an event's summary is written to.
func SummaryPath(dataDir string, ev ergast.Event) string {
	return filepath.Join(dataDir, fmt.Sprint(ev.Season), fmt.Sprintf("race_%02d_pitstops.csv", ev.Round))
}

// Stats counts the work of a run.
type Stats struct {
	Seasons int
	Events  int
	Rows    int
}

// Pipeline processes events sequentially.
type Pipeline struct {
	source Source
	config Config
	pacer  *ratelimit.Pacer
	logger zerolog.Logger
}

// New creates a pipeline. A nil sleeper selects ratelimit.ContextSleep.
func New(source Source, config Config, sleep ratelimit.Sleeper) *Pipeline {
	logger := logging.NewLogger("pipeline")
	return &Pipeline{
		source: source,
		config: config,
		pacer:  ratelimit.NewPacer(config.EventDelay, sleep, logger),
		logger: logger,
	}
}

// Run acquires every round of the given seasons in order. The first error
// aborts the run; summaries already written stay on disk.
func (p *Pipeline) Run(ctx context.Context, seasons []int) (Stats, error) {
	var stats Stats
	first := true

	for _, season := range seasons {
		rounds, err := p.source.Rounds(ctx, season)
		if err != nil {
			return stats, fmt.Errorf("season %d calendar: %w", season, err)
		}
		p.logger.Info().Int("season", season).Int("rounds", len(rounds)).Msg("Season calendar loaded")
		stats.Seasons++

		for _, rnd := range rounds {
			if !first {
				if err := p.pacer.Pause(ctx); err != nil {
					return stats, err
				}
			}
			first = false

			ev := ergast.Event{Season: season, Round: rnd}
			summaries, err := p.RunEvent(ctx, ev)
			if err != nil {
				return stats, err
			}
			stats.Events++
			stats.Rows += len(summaries)
		}
	}

	return stats, nil
}

// RunEvent acquires and persists a single event.
func (p *Pipeline) RunEvent(ctx context.Context, ev ergast.Event) (pitstops.Summaries, error) {
	start := time.Now()

	numbers, err := p.source.DriverNumbers(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("event %s driver numbers: %w", ev, err)
	}
	fragments, err := p.source.PitStops(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", ev, err)
	}

	summaries := pitstops.Aggregate(ev, fragments, numbers)
	path := SummaryPath(p.config.DataDir, ev)
	if err := summaries.Table().WriteFile(path); err != nil {
		return nil, fmt.Errorf("event %s: %w", ev, err)
	}

	eventsProcessedTotal.Inc()
	eventDuration.Observe(time.Since(start).Seconds())

	logger := logging.WithEvent(p.logger, ev.Season, ev.Round)
	logger.Info().
		Int("fragments", len(fragments)).
		Int("rows", len(summaries)).
		Str("file", path).
		Msg("Event done")

	return summaries, nil
}
