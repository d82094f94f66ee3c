// Package crawl scrapes race classification tables from the encyclopedia:
// the season page lists one report link per race, and each report page holds
// the classification written to {data}/{year}/{race-name}.csv.
package crawl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/PepeHerrera14/final-adquisicion/pkg/logging"
	"github.com/PepeHerrera14/final-adquisicion/pkg/ratelimit"
	"github.com/PepeHerrera14/final-adquisicion/pkg/table"
)

var pagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "f1_crawl_pages_total",
	Help: "Encyclopedia pages fetched by kind and outcome",
}, []string{"kind", "outcome"})

var (
	// ErrNoCalendar is returned when a season page has no usable calendar table.
	ErrNoCalendar = errors.New("season page has no calendar table")

	// ErrNoResultTable is returned when a report page has no classification.
	ErrNoResultTable = errors.New("report page has no result table")
)

// RoundColumn carries the calendar position of the race in each written table.
const RoundColumn = "Round"

// calendarFallbackIndex is the position of the calendar among a season
// page's wikitables when no table ends with a Report column.
const calendarFallbackIndex = 3

// Config holds crawler configuration.
type Config struct {
	BaseURL   string
	UserAgent string
	DataDir   string
	Timeout   time.Duration
	// PageDelay is the pause between consecutive page fetches.
	PageDelay time.Duration
	// Retries is the number of retries of a failed page fetch.
	Retries      int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
}

// DefaultConfig returns the configuration used by the crawl command.
func DefaultConfig(dataDir string) Config {
	return Config{
		BaseURL:      "https://en.wikipedia.org",
		UserAgent:    "f1data/1.0 (+https://github.com/PepeHerrera14/final-adquisicion)",
		DataDir:      dataDir,
		Timeout:      30 * time.Second,
		PageDelay:    ratelimit.DefaultInterval,
		Retries:      5,
		RetryWait:    1 * time.Second,
		RetryMaxWait: 30 * time.Second,
	}
}

// Stats counts the outcome of a season crawl.
type Stats struct {
	Races   int
	Written int
	Skipped int
}

// Crawler fetches season and report pages sequentially.
type Crawler struct {
	http   *resty.Client
	config Config
	pacer  *ratelimit.Pacer
	logger zerolog.Logger
}

// New creates a crawler. A nil sleeper selects ratelimit.ContextSleep.
func New(config Config, sleep ratelimit.Sleeper) *Crawler {
	client := resty.New().
		SetBaseURL(strings.TrimRight(config.BaseURL, "/")).
		SetHeader("User-Agent", config.UserAgent).
		SetTimeout(config.Timeout).
		SetRetryCount(config.Retries).
		SetRetryWaitTime(config.RetryWait).
		SetRetryMaxWaitTime(config.RetryMaxWait).
		AddRetryCondition(func(res *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return res.StatusCode() == http.StatusTooManyRequests || res.StatusCode() >= 500
		})

	logger := logging.NewLogger("crawl")
	return &Crawler{
		http:   client,
		config: config,
		pacer:  ratelimit.NewPacer(config.PageDelay, sleep, logger),
		logger: logger,
	}
}

// SeasonPath is the encyclopedia page of a championship season.
func SeasonPath(year int) string {
	return fmt.Sprintf("/wiki/%d_Formula_One_World_Championship", year)
}

// RaceName derives the file name stem from a report link.
func RaceName(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return strings.ReplaceAll(path.Base(link), "/", "_")
	}
	name := path.Base(u.Path)
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	return strings.NewReplacer("/", "_", "\\", "_").Replace(name)
}

func (c *Crawler) fetch(ctx context.Context, kind, target string) (*goquery.Document, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(target)
	if err != nil {
		pagesTotal.WithLabelValues(kind, "error").Inc()
		return nil, fmt.Errorf("get %s: %w", target, err)
	}
	if res.IsError() {
		pagesTotal.WithLabelValues(kind, "error").Inc()
		return nil, fmt.Errorf("get %s: status %d", target, res.StatusCode())
	}
	pagesTotal.WithLabelValues(kind, "ok").Inc()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", target, err)
	}
	return doc, nil
}

// CalendarTable picks the season calendar: the wikitable whose last header
// column is "Report", or the fourth wikitable when none is.
func CalendarTable(doc *goquery.Document) (*goquery.Selection, error) {
	tables := doc.Find("table.wikitable")
	var found *goquery.Selection
	tables.EachWithBreak(func(_ int, tbl *goquery.Selection) bool {
		header := headerTexts(tbl)
		if len(header) > 0 && header[len(header)-1] == "Report" {
			found = tbl
			return false
		}
		return true
	})
	if found != nil {
		return found, nil
	}
	if tables.Length() > calendarFallbackIndex {
		return tables.Eq(calendarFallbackIndex), nil
	}
	return nil, ErrNoCalendar
}

// ReportLinks returns the report link of every calendar row in order.
func ReportLinks(calendar *goquery.Selection) []string {
	var links []string
	ownRows(calendar).Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("td")
		if cells.Length() == 0 {
			return
		}
		href, ok := cells.Last().Find("a[href]").First().Attr("href")
		if !ok || href == "" {
			return
		}
		links = append(links, strings.SplitN(href, "#", 2)[0])
	})
	return links
}

// ResultTable returns the race classification of a report page: the first
// wikitable with Driver, Constructor and Laps columns, else the first with
// Driver and Constructor.
func ResultTable(doc *goquery.Document) (*table.Table, error) {
	var candidates []*table.Table
	doc.Find("table.wikitable").Each(func(_ int, tbl *goquery.Selection) {
		t := ParseWikitable(tbl)
		if t.Has("Driver", "Constructor") {
			candidates = append(candidates, t)
		}
	})

	for _, t := range candidates {
		if t.Has("Laps") {
			return t, nil
		}
	}
	if len(candidates) > 0 {
		return candidates[0], nil
	}
	return nil, ErrNoResultTable
}

// Season crawls every race of a championship year. A report page that fails
// is logged and skipped; failing to read the season page is an error.
func (c *Crawler) Season(ctx context.Context, year int) (Stats, error) {
	var stats Stats

	doc, err := c.fetch(ctx, "season", SeasonPath(year))
	if err != nil {
		return stats, err
	}
	calendar, err := CalendarTable(doc)
	if err != nil {
		return stats, fmt.Errorf("season %d: %w", year, err)
	}

	links := ReportLinks(calendar)
	stats.Races = len(links)
	c.logger.Info().Int("season", year).Int("races", len(links)).Msg("Season calendar parsed")

	for i, link := range links {
		if err := c.pacer.Pause(ctx); err != nil {
			return stats, err
		}

		round := i + 1
		file, err := c.Report(ctx, year, round, link)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.Skipped++
			c.logger.Warn().Err(err).Int("season", year).Int("round", round).Str("url", link).Msg("Report skipped")
			continue
		}
		stats.Written++
		c.logger.Info().Int("season", year).Int("round", round).Str("file", file).Msg("Report saved")
	}

	return stats, nil
}

// Report fetches one report page and writes its classification with the
// Round column. It returns the written path.
func (c *Crawler) Report(ctx context.Context, year, round int, link string) (string, error) {
	doc, err := c.fetch(ctx, "report", link)
	if err != nil {
		return "", err
	}
	t, err := ResultTable(doc)
	if err != nil {
		return "", fmt.Errorf("%s: %w", link, err)
	}
	t.AddColumn(RoundColumn, strconv.Itoa(round))

	out := filepath.Join(c.config.DataDir, strconv.Itoa(year), RaceName(link)+".csv")
	if err := t.WriteFile(out); err != nil {
		return "", err
	}
	return out, nil
}
