// Package report summarizes the merged table: how the number of pit stops
// and their median duration relate to the finishing position.
package report

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"

	"github.com/PepeHerrera14/final-adquisicion/pkg/pitstops"
	"github.com/PepeHerrera14/final-adquisicion/pkg/table"
)

// ErrNoPositionColumn is returned when the merged table has no finishing
// position column.
var ErrNoPositionColumn = errors.New("no finishing position column")

// PositionColumns are the accepted names of the finishing position column,
// in order of preference.
var PositionColumns = []string{"Position", "Pos", "Pos.", "Finish"}

// Options filters the analysed rows.
type Options struct {
	// Seasons keeps only these seasons; empty keeps all.
	Seasons []int
	// Drivers keeps only these drivers (Driver column); empty keeps all.
	Drivers []string
	// MaxPosition bounds the finishing positions considered.
	MaxPosition int
}

// DefaultOptions returns the filters of the default report.
func DefaultOptions() Options {
	return Options{MaxPosition: 20}
}

// StopGroup is the mean finishing position of drivers with a given number
// of pit stops.
type StopGroup struct {
	NPitstops    int
	MeanPosition float64
	Observations int
}

// Fit is a least-squares line position = Slope*duration + Intercept with
// the Pearson correlation R. Valid is false with fewer than two distinct
// durations.
type Fit struct {
	N         int
	Slope     float64
	Intercept float64
	R         float64
	Valid     bool
}

// Summary is the result of Analyze.
type Summary struct {
	PositionColumn string
	Rows           int
	Seasons        []int
	ByStops        []StopGroup
	Duration       Fit
}

type observation struct {
	season   int
	position float64
	stops    float64
	median   float64
	hasMed   bool
}

// PositionColumn returns the first accepted position column of t.
func PositionColumn(t *table.Table) (string, bool) {
	return lo.Find(PositionColumns, func(c string) bool { return t.Has(c) })
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Analyze computes the report over the merged table. Rows without a numeric
// position, pit-stop count or season are ignored.
func Analyze(t *table.Table, opts Options) (*Summary, error) {
	posCol, ok := PositionColumn(t)
	if !ok {
		return nil, fmt.Errorf("%w (columns: %s)", ErrNoPositionColumn, strings.Join(t.Columns, ", "))
	}
	if opts.MaxPosition <= 0 {
		opts.MaxPosition = 20
	}

	var obs []observation
	for _, row := range t.Rows {
		pos, ok1 := parseFloat(t.Get(row, posCol))
		stops, ok2 := parseFloat(t.Get(row, pitstops.ColNPitstops))
		season, ok3 := parseFloat(t.Get(row, pitstops.ColSeason))
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		if len(opts.Seasons) > 0 && !lo.Contains(opts.Seasons, int(season)) {
			continue
		}
		if len(opts.Drivers) > 0 && !lo.Contains(opts.Drivers, t.Get(row, "Driver")) {
			continue
		}
		median, hasMed := parseFloat(t.Get(row, pitstops.ColMedian))
		obs = append(obs, observation{
			season:   int(season),
			position: pos,
			stops:    stops,
			median:   median,
			hasMed:   hasMed,
		})
	}

	inRange := lo.Filter(obs, func(o observation, _ int) bool {
		return o.position >= 1 && o.position <= float64(opts.MaxPosition)
	})

	seasons := lo.Uniq(lo.Map(obs, func(o observation, _ int) int { return o.season }))
	sort.Ints(seasons)

	return &Summary{
		PositionColumn: posCol,
		Rows:           len(obs),
		Seasons:        seasons,
		ByStops:        byStops(inRange),
		Duration: fitDuration(lo.Filter(inRange, func(o observation, _ int) bool {
			return o.stops > 0 && o.hasMed
		})),
	}, nil
}

func byStops(obs []observation) []StopGroup {
	groups := lo.GroupBy(obs, func(o observation) int { return int(o.stops) })

	out := make([]StopGroup, 0, len(groups))
	for n, g := range groups {
		sum := lo.SumBy(g, func(o observation) float64 { return o.position })
		out = append(out, StopGroup{
			NPitstops:    n,
			MeanPosition: sum / float64(len(g)),
			Observations: len(g),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NPitstops < out[j].NPitstops })
	return out
}

func fitDuration(obs []observation) Fit {
	fit := Fit{N: len(obs)}
	if len(obs) < 2 {
		return fit
	}

	n := float64(len(obs))
	meanX := lo.SumBy(obs, func(o observation) float64 { return o.median }) / n
	meanY := lo.SumBy(obs, func(o observation) float64 { return o.position }) / n

	var sxx, syy, sxy float64
	for _, o := range obs {
		dx, dy := o.median-meanX, o.position-meanY
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	if sxx == 0 {
		return fit
	}

	fit.Slope = sxy / sxx
	fit.Intercept = meanY - fit.Slope*meanX
	if syy > 0 {
		fit.R = sxy / math.Sqrt(sxx*syy)
	}
	fit.Valid = true
	return fit
}

// Render writes the summary as console tables.
func Render(w io.Writer, s *Summary) {
	fmt.Fprintf(w, "Rows analysed: %d  Seasons: %s  Position column: %s\n\n",
		s.Rows, strings.Join(lo.Map(s.Seasons, func(n int, _ int) string { return strconv.Itoa(n) }), ", "), s.PositionColumn)

	stops := newTable(w)
	stops.SetTitle("Pit stops vs finishing position")
	stops.AppendHeader(prettytable.Row{"Pit stops", "Mean position", "Observations"})
	for _, g := range s.ByStops {
		stops.AppendRow(prettytable.Row{g.NPitstops, fmt.Sprintf("%.2f", g.MeanPosition), g.Observations})
	}
	stops.Render()
	fmt.Fprintln(w)

	fit := newTable(w)
	fit.SetTitle("Median pit-stop duration vs finishing position")
	fit.AppendHeader(prettytable.Row{"Observations", "Slope", "Intercept", "Pearson r"})
	if s.Duration.Valid {
		fit.AppendRow(prettytable.Row{
			s.Duration.N,
			fmt.Sprintf("%.4f", s.Duration.Slope),
			fmt.Sprintf("%.4f", s.Duration.Intercept),
			fmt.Sprintf("%.3f", s.Duration.R),
		})
	} else {
		fit.AppendRow(prettytable.Row{s.Duration.N, "-", "-", "-"})
	}
	fit.Render()
}

func newTable(w io.Writer) prettytable.Writer {
	t := prettytable.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(prettytable.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	return t
}
