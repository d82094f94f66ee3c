package reconcile

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/PepeHerrera14/final-adquisicion/pkg/pitstops"
	"github.com/PepeHerrera14/final-adquisicion/pkg/table"
)

// Result table columns.
const (
	ColDriver     = "Driver"
	ColNumber     = "No."
	ColRound      = "Round"
	ColSeason     = pitstops.ColSeason
	ColRaceNumber = pitstops.ColRaceNumber
)

// PitStopPattern matches summary files inside a season directory.
const PitStopPattern = "race_*_pitstops.csv"

// footerMarkers flag citation and regulation rows scraped below the classification.
var footerMarkers = []string{"Source", "107%"}

var digitRun = regexp.MustCompile(`\d+`)

// NormalizeNumber returns the first digit run of a car-number cell
// ("44†" -> "44") and false when there is none ("Ret").
func NormalizeNumber(raw string) (string, bool) {
	n := digitRun.FindString(raw)
	return n, n != ""
}

// isDriverRow reports whether a Driver cell names a driver.
func isDriverRow(driver string) bool {
	if strings.TrimSpace(driver) == "" {
		return false
	}
	return !lo.SomeBy(footerMarkers, func(m string) bool { return strings.Contains(driver, m) })
}

// normalizeInt renders integral numbers ("3", " 3", "3.0") as "3" and leaves
// anything else trimmed but unchanged.
func normalizeInt(raw string) string {
	s := strings.TrimSpace(raw)
	if n, err := strconv.Atoi(s); err == nil {
		return strconv.Itoa(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}

// explicitRound returns the Round column value shared by the file, if valid.
func explicitRound(t *table.Table) (int, bool) {
	if !t.Has(ColRound) || t.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(normalizeInt(t.Get(t.Rows[0], ColRound)))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// SeasonOf parses the season from a season directory name.
func SeasonOf(seasonDir string) (int, error) {
	name := filepath.Base(seasonDir)
	season, err := strconv.Atoi(name)
	if err != nil {
		return 0, fmt.Errorf("season directory %q is not numeric", name)
	}
	return season, nil
}

// LoadResults reads every result table of a season directory. Files without
// Driver and No. columns are skipped; footer rows and rows whose number has
// no digit are dropped. Season and RaceNumber are stamped on each row:
// RaceNumber comes from the file's Round column when valid, otherwise from a
// counter over accepted files in name order.
func LoadResults(seasonDir string) (*table.Table, Manifest, error) {
	season, err := SeasonOf(seasonDir)
	if err != nil {
		return nil, nil, err
	}
	logger := log.With().Str("component", "reconcile").Int("season", season).Logger()

	files, err := filepath.Glob(filepath.Join(seasonDir, "*.csv"))
	if err != nil {
		return nil, nil, err
	}

	var manifest Manifest
	var tables []*table.Table
	raceNumber := 1

	for _, path := range files {
		if strings.Contains(filepath.Base(path), "pitstops") {
			continue
		}
		outcome := FileOutcome{Season: season, Path: path, Kind: KindResults}

		t, err := table.ReadFile(path)
		if err != nil {
			logger.Error().Err(err).Str("file", path).Msg("Failed to read result table")
			outcome.Skipped, outcome.Reason = true, err.Error()
			record(&manifest, outcome)
			continue
		}
		if !t.Has(ColDriver, ColNumber) {
			logger.Debug().Str("file", path).Msg("Not a result table")
			outcome.Skipped, outcome.Reason = true, "missing Driver or No. column"
			record(&manifest, outcome)
			continue
		}

		kept := t.Filter(func(row []string) bool {
			if !isDriverRow(t.Get(row, ColDriver)) {
				return false
			}
			n, ok := NormalizeNumber(t.Get(row, ColNumber))
			if ok {
				t.Set(row, ColNumber, n)
			}
			return ok
		})

		rn := raceNumber
		if r, ok := explicitRound(kept); ok {
			rn = r
		}
		raceNumber++

		kept.AddColumn(ColSeason, strconv.Itoa(season))
		kept.AddColumn(ColRaceNumber, strconv.Itoa(rn))
		tables = append(tables, kept)

		outcome.Rows, outcome.Dropped = kept.Len(), t.Len()-kept.Len()
		record(&manifest, outcome)
	}

	if len(tables) == 0 {
		logger.Warn().Str("dir", seasonDir).Msg("No valid result tables")
		return table.New(), manifest, nil
	}
	return table.Concat(tables...), manifest, nil
}

// LoadPitStops concatenates the pit-stop summaries of a season directory with
// DriverNumber normalized for the join. Unreadable files are skipped.
func LoadPitStops(seasonDir string) (*table.Table, Manifest, error) {
	season, err := SeasonOf(seasonDir)
	if err != nil {
		return nil, nil, err
	}
	logger := log.With().Str("component", "reconcile").Int("season", season).Logger()

	files, err := filepath.Glob(filepath.Join(seasonDir, PitStopPattern))
	if err != nil {
		return nil, nil, err
	}

	var manifest Manifest
	var tables []*table.Table

	for _, path := range files {
		outcome := FileOutcome{Season: season, Path: path, Kind: KindPitStops}

		t, err := table.ReadFile(path)
		if err == nil && !t.Has(pitstops.ColDriverNumber) {
			err = fmt.Errorf("missing %s column", pitstops.ColDriverNumber)
		}
		if err != nil {
			logger.Error().Err(err).Str("file", path).Msg("Failed to read pit-stop summary")
			outcome.Skipped, outcome.Reason = true, err.Error()
			record(&manifest, outcome)
			continue
		}

		for _, row := range t.Rows {
			t.Set(row, pitstops.ColDriverNumber, normalizeInt(t.Get(row, pitstops.ColDriverNumber)))
		}
		tables = append(tables, t)

		outcome.Rows = t.Len()
		record(&manifest, outcome)
	}

	if len(tables) == 0 {
		logger.Warn().Str("dir", seasonDir).Msg("No pit-stop summaries")
		return table.New(), manifest, nil
	}
	return table.Concat(tables...), manifest, nil
}
