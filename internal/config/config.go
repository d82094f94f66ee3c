// Package config holds the resolved command-line configuration and maps it
// onto the configuration of each component.
package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/PepeHerrera14/final-adquisicion/pkg/cache"
	"github.com/PepeHerrera14/final-adquisicion/pkg/client"
	"github.com/PepeHerrera14/final-adquisicion/pkg/crawl"
	"github.com/PepeHerrera14/final-adquisicion/pkg/logging"
	"github.com/PepeHerrera14/final-adquisicion/pkg/pagination"
	"github.com/PepeHerrera14/final-adquisicion/pkg/pipeline"
	"github.com/PepeHerrera14/final-adquisicion/pkg/ratelimit"
	"github.com/PepeHerrera14/final-adquisicion/pkg/reconcile"
	"github.com/PepeHerrera14/final-adquisicion/pkg/report"
)

// Config is the configuration of one f1data invocation.
type Config struct {
	DataDir string // root of the per-season directories
	Output  string // merged CSV; empty means {DataDir}/final_merged.csv
	Seasons string // season list, e.g. "2019-2024" or "2019,2021"

	LogLevel    string
	LogPretty   bool
	MetricsAddr string // serve /metrics here when set

	APIURL      string
	UserAgent   string
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	PageSize    int
	PageDelay   time.Duration
	EventDelay  time.Duration

	RedisAddr    string // response cache; empty disables it
	RedisDB      int
	CacheTTL     time.Duration
	RefreshCache bool // purge the cached pages of the requested seasons first

	WikiURL string

	SQLitePath string // export the merged table here when set

	ReportSeasons string
	Drivers       []string
}

// Default returns the configuration used when no flag, file or variable
// overrides it.
func Default() Config {
	retry := client.DefaultRetryConfig()
	pages := pagination.DefaultConfig()
	return Config{
		DataDir:     "data",
		Seasons:     "2019-2024",
		LogLevel:    string(logging.LevelInfo),
		APIURL:      client.DefaultBaseURL,
		UserAgent:   "f1data/1.0",
		Timeout:     60 * time.Second,
		MaxAttempts: retry.MaxAttempts,
		BaseDelay:   retry.BaseDelay,
		PageSize:    pages.PageSize,
		PageDelay:   pages.PageDelay,
		EventDelay:  ratelimit.DefaultInterval,
		CacheTTL:    cache.DefaultOptions().TTL,
		WikiURL:     crawl.DefaultConfig("").BaseURL,
	}
}

// Validate checks the values that components cannot default.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data dir is required")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max-attempts must be >= 1 (got %d)", c.MaxAttempts)
	}
	if c.BaseDelay < 0 || c.PageDelay < 0 || c.EventDelay < 0 || c.CacheTTL < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if c.PageSize < 1 {
		return fmt.Errorf("page-size must be >= 1 (got %d)", c.PageSize)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := ParseSeasons(c.Seasons); err != nil {
		return err
	}
	if c.ReportSeasons != "" {
		if _, err := ParseSeasons(c.ReportSeasons); err != nil {
			return err
		}
	}
	return nil
}

// ParseSeasons expands a comma-separated list of years and inclusive ranges
// ("2012-2014,2019") into sorted, distinct seasons.
func ParseSeasons(spec string) ([]int, error) {
	var seasons []int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		from, to, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(strings.TrimSpace(from))
		if err != nil {
			return nil, fmt.Errorf("invalid season %q", part)
		}
		end := start
		if isRange {
			if end, err = strconv.Atoi(strings.TrimSpace(to)); err != nil {
				return nil, fmt.Errorf("invalid season range %q", part)
			}
		}
		if end < start {
			return nil, fmt.Errorf("invalid season range %q", part)
		}
		for y := start; y <= end; y++ {
			seasons = append(seasons, y)
		}
	}
	if len(seasons) == 0 {
		return nil, fmt.Errorf("no seasons in %q", spec)
	}

	seasons = lo.Uniq(seasons)
	sort.Ints(seasons)
	return seasons, nil
}

// Logging returns the logger configuration.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.LogLevel)
	cfg.Pretty = c.LogPretty
	return cfg
}

// Client returns the request executor configuration without a cache.
func (c Config) Client() client.Config {
	cfg := client.DefaultConfig(c.APIURL, c.UserAgent)
	cfg.Timeout = c.Timeout
	cfg.MaxAttempts = c.MaxAttempts
	cfg.BaseDelay = c.BaseDelay
	return cfg
}

// Cache returns the response cache options.
func (c Config) Cache() cache.Options {
	opts := cache.DefaultOptions()
	opts.TTL = c.CacheTTL
	return opts
}

// Pagination returns the pit-stop paging configuration.
func (c Config) Pagination() pagination.Config {
	return pagination.Config{PageSize: c.PageSize, PageDelay: c.PageDelay}
}

// Pipeline returns the acquisition run configuration.
func (c Config) Pipeline() pipeline.Config {
	cfg := pipeline.DefaultConfig(c.DataDir)
	cfg.EventDelay = c.EventDelay
	return cfg
}

// Crawl returns the encyclopedia crawler configuration.
func (c Config) Crawl() crawl.Config {
	cfg := crawl.DefaultConfig(c.DataDir)
	cfg.BaseURL = c.WikiURL
	cfg.PageDelay = c.PageDelay
	return cfg
}

// Reconcile returns the merge configuration.
func (c Config) Reconcile() reconcile.Config {
	cfg := reconcile.DefaultConfig(c.DataDir)
	if c.Output != "" {
		cfg.Output = c.Output
	}
	return cfg
}

// OutputPath is the merged CSV path.
func (c Config) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	return filepath.Join(c.DataDir, "final_merged.csv")
}

// Report returns the report filters.
func (c Config) Report() report.Options {
	opts := report.DefaultOptions()
	opts.Drivers = c.Drivers
	if c.ReportSeasons != "" {
		opts.Seasons, _ = ParseSeasons(c.ReportSeasons)
	}
	return opts
}
