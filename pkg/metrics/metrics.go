// Package metrics exposes the Prometheus metrics of the acquisition tools.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, pagination, pipeline, crawl, reconcile) and registered via
// promauto on the default registry.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the default Prometheus registry used by every package.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - f1_api_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - f1_api_request_duration_seconds{endpoint} (Histogram): Request duration, retries included
//   - f1_api_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, decode)
//
// Retry Metrics (pkg/client):
//   - f1_api_retries_total{error_class} (Counter): Retry attempts by error class
//   - f1_api_retry_backoff_seconds{error_class} (Histogram): Backoff slept before each retry
//   - f1_api_retry_exhausted_total{error_class} (Counter): Requests that used every attempt
//
// Pacing Metrics (pkg/ratelimit, pkg/pagination):
//   - f1_pacing_pauses_total (Counter): Mandatory pauses between requests
//   - f1_pacing_seconds_total (Counter): Time spent in those pauses
//   - f1_pages_fetched_total (Counter): Pages fetched by the offset fetcher
//
// Cache Metrics (pkg/cache):
//   - f1_cache_hits_total (Counter), f1_cache_misses_total (Counter)
//   - f1_cache_written_bytes_total (Counter), f1_cache_purged_keys_total (Counter)
//   - f1_cache_errors_total{operation} (Counter)
//
// Run Metrics (pkg/pipeline, pkg/crawl, pkg/reconcile):
//   - f1_events_processed_total (Counter)
//   - f1_event_duration_seconds (Histogram)
//   - f1_crawl_pages_total{kind, outcome} (Counter)
//   - f1_reconcile_files_total{kind, outcome} (Counter)
//
// Example Prometheus Queries:
//
//   # Share of requests that needed a retry
//   sum(rate(f1_api_retries_total[5m])) / sum(rate(f1_api_requests_total[5m]))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(f1_api_request_duration_seconds_bucket[5m]))

// Handler returns the HTTP handler serving /metrics and /health.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})
	return mux
}

// Serve exposes Handler on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Serving metrics")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
