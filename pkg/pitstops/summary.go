// Package pitstops reduces the raw pit-stop records of one event to one
// summary row per driver.
package pitstops

import (
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/PepeHerrera14/final-adquisicion/pkg/ergast"
	"github.com/PepeHerrera14/final-adquisicion/pkg/table"
)

// Summary table columns, in file order.
const (
	ColSeason       = "Season"
	ColRaceNumber   = "RaceNumber"
	ColDriverID     = "DriverId"
	ColDriverNumber = "DriverNumber"
	ColNPitstops    = "NPitstops"
	ColMedian       = "MedianPitStopDuration"
)

// Columns is the schema of every summary table, empty ones included.
var Columns = []string{ColSeason, ColRaceNumber, ColDriverID, ColDriverNumber, ColNPitstops, ColMedian}

// Summary is the pit-stop activity of one driver in one event.
type Summary struct {
	Season       int
	RaceNumber   int
	DriverID     string
	DriverNumber string
	NPitstops    int
	// MedianPitStopDuration is invalid when no duration of the driver parsed.
	MedianPitStopDuration decimal.NullDecimal
}

// Summaries is the per-event summary, ordered by DriverID.
type Summaries []Summary

// Aggregate groups fragments by driver. NPitstops and the median only use
// durations that parse as numbers, so a driver whose stops all have malformed
// durations keeps a row with NPitstops 0. Drivers without an entry in numbers
// get an empty DriverNumber.
func Aggregate(ev ergast.Event, fragments []ergast.PitStop, numbers map[string]string) Summaries {
	groups := lo.GroupBy(fragments, func(p ergast.PitStop) string { return p.DriverID })

	out := make(Summaries, 0, len(groups))
	for driverID, stops := range groups {
		durations := lo.FilterMap(stops, func(p ergast.PitStop, _ int) (decimal.Decimal, bool) {
			return ParseDuration(p.Duration)
		})
		out = append(out, Summary{
			Season:                ev.Season,
			RaceNumber:            ev.Round,
			DriverID:              driverID,
			DriverNumber:          numbers[driverID],
			NPitstops:             len(durations),
			MedianPitStopDuration: Median(durations),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DriverID < out[j].DriverID })
	return out
}

// ParseDuration coerces a raw duration to a number. Anything that is not a
// plain decimal number (e.g. "1:02.345", "", "bad") is reported as missing.
func ParseDuration(raw ergast.RawValue) (decimal.Decimal, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// Median returns the median of values, invalid for an empty input.
func Median(values []decimal.Decimal) decimal.NullDecimal {
	if len(values) == 0 {
		return decimal.NullDecimal{}
	}

	sorted := append([]decimal.Decimal(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return decimal.NewNullDecimal(sorted[mid])
	}
	return decimal.NewNullDecimal(sorted[mid-1].Add(sorted[mid]).Div(decimal.NewFromInt(2)))
}

// Table renders the summaries with the full column set.
func (s Summaries) Table() *table.Table {
	t := table.New(Columns...)
	for _, row := range s {
		t.Append([]string{
			strconv.Itoa(row.Season),
			strconv.Itoa(row.RaceNumber),
			row.DriverID,
			row.DriverNumber,
			strconv.Itoa(row.NPitstops),
			FormatDecimal(row.MedianPitStopDuration),
		})
	}
	return t
}

// FormatDecimal writes a valid value in its shortest form and an invalid one
// as the empty cell.
func FormatDecimal(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
