package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/PepeHerrera14/final-adquisicion/pkg/logging"
	"github.com/PepeHerrera14/final-adquisicion/pkg/ratelimit"
)

var pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "f1_pages_fetched_total",
	Help: "Total number of pages fetched by the offset fetcher",
})

// Config holds offset fetcher configuration
type Config struct {
	// PageSize is the limit sent with every page request
	PageSize int
	// PageDelay is the pause before each follow-up page
	PageDelay time.Duration
}

// DefaultConfig returns the paging used against the statistics API
func DefaultConfig() Config {
	return Config{
		PageSize:  1000,
		PageDelay: ratelimit.DefaultInterval,
	}
}

// Page is one decoded page of a paginated query.
type Page[T any] struct {
	Items []T
	// Total is the server-declared size of the whole query (0 when absent).
	Total int
	// NoEvent reports an empty event list in the response.
	NoEvent bool
}

// PageFetcher fetches a single page at the given limit and offset.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, limit, offset int) (Page[T], error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc[T any] func(ctx context.Context, limit, offset int) (Page[T], error)

// FetchPage calls f.
func (f PageFetcherFunc[T]) FetchPage(ctx context.Context, limit, offset int) (Page[T], error) {
	return f(ctx, limit, offset)
}

// OffsetFetcher accumulates every page of a query sequentially.
type OffsetFetcher[T any] struct {
	config Config
	pacer  *ratelimit.Pacer
	logger zerolog.Logger
}

// NewOffsetFetcher creates a fetcher. A nil sleeper selects ratelimit.ContextSleep.
func NewOffsetFetcher[T any](config Config, sleep ratelimit.Sleeper) *OffsetFetcher[T] {
	if config.PageSize <= 0 {
		config.PageSize = 1000
	}
	logger := logging.NewLogger("pagination")

	return &OffsetFetcher[T]{
		config: config,
		pacer:  ratelimit.NewPacer(config.PageDelay, sleep, logger),
		logger: logger,
	}
}

// FetchAll returns the items of every page of source in order.
func (f *OffsetFetcher[T]) FetchAll(ctx context.Context, source PageFetcher[T]) ([]T, error) {
	start := time.Now()
	limit := f.config.PageSize
	items := make([]T, 0)
	offset := 0
	pages := 0

	for {
		page, err := source.FetchPage(ctx, limit, offset)
		if err != nil {
			return nil, fmt.Errorf("fetch page at offset %d: %w", offset, err)
		}
		pages++
		pagesFetchedTotal.Inc()

		if page.NoEvent || len(page.Items) == 0 {
			break
		}
		items = append(items, page.Items...)

		offset += limit
		if offset >= page.Total {
			break
		}

		f.logger.Debug().
			Int("offset", offset).
			Int("total", page.Total).
			Msg("Fetching next page")

		if err := f.pacer.Pause(ctx); err != nil {
			return nil, fmt.Errorf("pause before offset %d: %w", offset, err)
		}
	}

	f.logger.Debug().
		Int("pages", pages).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return items, nil
}
