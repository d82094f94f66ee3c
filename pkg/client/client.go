// Package client provides the HTTP executor for the motorsport statistics API:
// a single GET with bounded exponential-backoff retry and an optional Redis
// response cache.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/PepeHerrera14/final-adquisicion/pkg/cache"
	"github.com/PepeHerrera14/final-adquisicion/pkg/ratelimit"
)

// Prometheus metrics for API client operations.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "f1_api_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "f1_api_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint, retries included",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"endpoint"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "f1_api_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})
)

// DefaultBaseURL is the Ergast-compatible Jolpica endpoint.
const DefaultBaseURL = "https://api.jolpi.ca/ergast/f1"

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents timeouts, refused connections and broken bodies.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents a 2xx body that is not the expected JSON.
	ErrorClassDecode ErrorClass = "decode"
)

// ResponseCache is the subset of cache.Manager used by the client.
type ResponseCache interface {
	Get(ctx context.Context, key cache.Key) (*cache.Entry, error)
	Put(ctx context.Context, key cache.Key, entry *cache.Entry) error
	Delete(ctx context.Context, key cache.Key) error
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is prepended to relative endpoints.
	BaseURL string

	// UserAgent header sent with each request.
	UserAgent string

	// Timeout per HTTP attempt.
	Timeout time.Duration

	// Retry
	MaxAttempts int
	BaseDelay   time.Duration

	// Cache is optional; nil disables response caching.
	Cache ResponseCache

	// Sleeper used for backoff; nil selects ratelimit.ContextSleep.
	Sleeper ratelimit.Sleeper
}

// DefaultConfig returns the configuration used by the acquisition commands.
func DefaultConfig(baseURL, userAgent string) Config {
	retry := DefaultRetryConfig()
	return Config{
		BaseURL:     baseURL,
		UserAgent:   userAgent,
		Timeout:     60 * time.Second,
		MaxAttempts: retry.MaxAttempts,
		BaseDelay:   retry.BaseDelay,
	}
}

// Client executes GET requests against the statistics API.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("max_attempts must be >= 1 (got %d)", cfg.MaxAttempts)
	}
	if cfg.BaseDelay < 0 {
		return nil, fmt.Errorf("base_delay must not be negative (got %s)", cfg.BaseDelay)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Sleeper == nil {
		cfg.Sleeper = ratelimit.ContextSleep
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: base,
		config:  cfg,
		logger:  log.With().Str("component", "api-client").Logger(),
	}, nil
}

// RetryConfig returns the retry settings derived from the client config.
func (c *Client) RetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: c.config.MaxAttempts, BaseDelay: c.config.BaseDelay}
}

// GetJSON fetches endpoint with params and decodes the JSON body into out.
// A body that is not valid JSON is returned as a non-retried APIError.
func (c *Client) GetJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	body, err := c.GetBytes(ctx, endpoint, params)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.Forget(ctx, endpoint, params)
		apiErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return &APIError{
			URL:        c.resolve(endpoint, params),
			StatusCode: http.StatusOK,
			ErrorClass: ErrorClassDecode,
			Message:    "decode response body",
			Err:        err,
		}
	}
	return nil
}

// GetBytes performs a GET with retry and returns the raw body of the first
// successful (2xx) response.
func (c *Client) GetBytes(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	target := c.resolve(endpoint, params)
	path := c.CachePath(endpoint)
	label := endpointLabel(path)

	startTime := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues(label).Observe(time.Since(startTime).Seconds())
	}()

	cacheKey := cache.Key{Path: path, Query: params}
	if c.config.Cache != nil {
		entry, err := c.config.Cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			c.logger.Debug().Str("url", target).Msg("Cache hit")
			apiRequestsTotal.WithLabelValues(label, "cached").Inc()
			return entry.Body, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("url", target).Msg("Cache get error")
		}
	}

	c.logger.Debug().Str("url", target).Msg("Executing API request")

	var body []byte
	err := retryWithBackoff(ctx, c.RetryConfig(), c.config.Sleeper, target, c.logger, func(attempt int) (ErrorClass, error) {
		var errClass ErrorClass
		var reqErr error
		body, errClass, reqErr = c.attempt(ctx, target, label)
		if reqErr != nil {
			apiErrorsTotal.WithLabelValues(string(errClass)).Inc()
		}
		return errClass, reqErr
	})
	if err != nil {
		return nil, err
	}

	// only JSON bodies are stored; anything else must be refetched next run
	if c.config.Cache != nil && json.Valid(body) {
		if err := c.config.Cache.Put(ctx, cacheKey, cache.NewEntry(target, body)); err != nil {
			c.logger.Warn().Err(err).Str("url", target).Msg("Failed to cache response")
		}
	}

	return body, nil
}

// Forget drops the cached response for endpoint and params, if any. Callers
// use it when a body that reached the cache later fails to decode.
func (c *Client) Forget(ctx context.Context, endpoint string, params url.Values) {
	if c.config.Cache == nil {
		return
	}
	key := cache.Key{Path: c.CachePath(endpoint), Query: params}
	if err := c.config.Cache.Delete(ctx, key); err != nil {
		c.logger.Warn().Err(err).Str("url", c.resolve(endpoint, params)).Msg("Failed to drop cached response")
	}
}

// attempt performs one HTTP exchange.
func (c *Client) attempt(ctx context.Context, target, label string) ([]byte, ErrorClass, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, ErrorClassClient, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// cancellation is not a transient failure
			return nil, ErrorClassClient, fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		}
		c.logger.Debug().Err(err).Str("url", target).Msg("HTTP request failed")
		apiRequestsTotal.WithLabelValues(label, "network_error").Inc()
		return nil, ErrorClassNetwork, &APIError{
			URL:        target,
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	apiRequestsTotal.WithLabelValues(label, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		errClass := classifyStatus(resp.StatusCode)
		return nil, errClass, &APIError{
			URL:        target,
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrorClassNetwork, &APIError{
			URL:        target,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}

	return body, "", nil
}

// classifyStatus categorizes an HTTP error status.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// resolve joins endpoint onto the base URL (absolute endpoints are kept) and
// encodes params.
func (c *Client) resolve(endpoint string, params url.Values) string {
	var u url.URL
	if parsed, err := url.Parse(endpoint); err == nil && parsed.IsAbs() {
		u = *parsed
	} else {
		u = *c.baseURL
		u.Path = c.baseURL.Path + "/" + strings.TrimLeft(endpoint, "/")
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

// CachePath is the request path used for cache keys.
func (c *Client) CachePath(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.IsAbs() {
		return parsed.Path
	}
	return c.baseURL.Path + "/" + strings.TrimLeft(endpoint, "/")
}

// endpointLabel maps a request path onto the fixed set of metric labels:
// "season", "results", "pitstops" or "other".
func endpointLabel(path string) string {
	last := path[strings.LastIndex(path, "/")+1:]
	switch {
	case last == "results.json":
		return "results"
	case last == "pitstops.json":
		return "pitstops"
	case isSeasonSegment(last):
		return "season"
	default:
		return "other"
	}
}

func isSeasonSegment(segment string) bool {
	year, ok := strings.CutSuffix(segment, ".json")
	if !ok || len(year) != 4 {
		return false
	}
	for _, r := range year {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
