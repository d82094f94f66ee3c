package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/PepeHerrera14/final-adquisicion/pkg/pitstops"
	"github.com/PepeHerrera14/final-adquisicion/pkg/table"
)

// ErrNoData is returned by Run when no season yields a merged row.
var ErrNoData = errors.New("no season produced merged data")

// pitColumns are added to every merged row.
var pitColumns = []string{pitstops.ColDriverID, pitstops.ColDriverNumber, pitstops.ColNPitstops, pitstops.ColMedian}

type joinKey struct {
	season, race, number string
}

// Merge left-joins results onto pit-stop summaries on (Season, RaceNumber,
// No. = DriverNumber). Every result row appears once: unmatched rows get
// empty pit-stop cells and, when several summaries match, the first is used.
// Without any summary rows the pit-stop columns are filled with
// DriverId="", DriverNumber="", NPitstops=0 and an empty median.
func Merge(results, stops *table.Table) *table.Table {
	if results == nil || results.Len() == 0 {
		return table.New()
	}

	extra := lo.Without(lo.Union(pitColumns, stopsColumns(stops)), ColSeason, ColRaceNumber)
	columns := lo.Union(results.Columns, extra)
	out := table.New(columns...)

	if stops == nil || stops.Len() == 0 {
		for _, row := range results.Rows {
			out.Append(row)
			cells := out.Rows[len(out.Rows)-1]
			out.Set(cells, pitstops.ColNPitstops, "0")
		}
		return out
	}

	index := make(map[joinKey][]string, stops.Len())
	for _, row := range stops.Rows {
		key := joinKey{
			season: normalizeInt(stops.Get(row, ColSeason)),
			race:   normalizeInt(stops.Get(row, ColRaceNumber)),
			number: stops.Get(row, pitstops.ColDriverNumber),
		}
		if _, dup := index[key]; dup {
			log.Warn().
				Str("component", "reconcile").
				Str("season", key.season).
				Str("race", key.race).
				Str("number", key.number).
				Msg("Duplicate pit-stop summary, keeping the first")
			continue
		}
		index[key] = row
	}

	for _, row := range results.Rows {
		out.Append(row)
		cells := out.Rows[len(out.Rows)-1]

		key := joinKey{
			season: normalizeInt(results.Get(row, ColSeason)),
			race:   normalizeInt(results.Get(row, ColRaceNumber)),
			number: results.Get(row, ColNumber),
		}
		match, ok := index[key]
		if !ok {
			continue
		}
		for _, c := range extra {
			out.Set(cells, c, stops.Get(match, c))
		}
	}
	return out
}

func stopsColumns(stops *table.Table) []string {
	if stops == nil {
		return nil
	}
	return stops.Columns
}

// Config holds the reconciliation inputs and outputs.
type Config struct {
	// DataDir contains one numeric directory per season.
	DataDir string
	// Output is the merged CSV path.
	Output string
}

// DefaultConfig returns the layout used by the acquisition commands.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir: dataDir,
		Output:  filepath.Join(dataDir, "final_merged.csv"),
	}
}

// ManifestPath is where Run writes the manifest for a given output.
func ManifestPath(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + "_manifest.csv"
}

// Result summarizes a reconciliation run.
type Result struct {
	Output   string
	Rows     int
	Seasons  []int
	Manifest Manifest
}

// SeasonDirs returns the numeric sub-directories of dataDir in ascending
// season order.
func SeasonDirs(dataDir string) ([]string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, err
	}

	dirs := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		if !e.IsDir() {
			return "", false
		}
		if _, err := strconv.Atoi(e.Name()); err != nil {
			return "", false
		}
		return filepath.Join(dataDir, e.Name()), true
	})
	sort.Slice(dirs, func(i, j int) bool {
		a, _ := SeasonOf(dirs[i])
		b, _ := SeasonOf(dirs[j])
		return a < b
	})
	return dirs, nil
}

// Run merges every season under cfg.DataDir and writes the concatenation to
// cfg.Output together with its manifest. Seasons with no merged rows are
// left out; ErrNoData is returned when none remain.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	start := time.Now()
	logger := log.With().Str("component", "reconcile").Logger()

	dirs, err := SeasonDirs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("list seasons: %w", err)
	}

	result := &Result{Output: cfg.Output}
	var merged []*table.Table

	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		season, _ := SeasonOf(dir)
		logger.Info().Int("season", season).Msg("Loading season")

		results, resManifest, err := LoadResults(dir)
		if err != nil {
			return nil, err
		}
		stops, pitManifest, err := LoadPitStops(dir)
		if err != nil {
			return nil, err
		}
		result.Manifest = append(result.Manifest, resManifest...)
		result.Manifest = append(result.Manifest, pitManifest...)

		m := Merge(results, stops)
		if m.Len() == 0 {
			logger.Warn().Int("season", season).Msg("Season produced no merged rows")
			continue
		}

		logger.Info().
			Int("season", season).
			Int("rows", m.Len()).
			Int("pitstop_rows", stops.Len()).
			Msg("Season merged")
		merged = append(merged, m)
		result.Seasons = append(result.Seasons, season)
	}

	if len(merged) == 0 {
		return result, fmt.Errorf("%w under %s", ErrNoData, cfg.DataDir)
	}

	final := table.Concat(merged...)
	if err := final.WriteFile(cfg.Output); err != nil {
		return nil, fmt.Errorf("write merged table: %w", err)
	}
	if err := result.Manifest.Table().WriteFile(ManifestPath(cfg.Output)); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	result.Rows = final.Len()

	logger.Info().
		Str("output", cfg.Output).
		Int("rows", result.Rows).
		Int("skipped_files", len(result.Manifest.Skipped())).
		Dur("duration", time.Since(start)).
		Msg("Reconciliation complete")

	return result, nil
}
