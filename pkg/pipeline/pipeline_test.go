package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PepeHerrera14/final-adquisicion/internal/testutil"
	"github.com/PepeHerrera14/final-adquisicion/pkg/client"
	"github.com/PepeHerrera14/final-adquisicion/pkg/ergast"
	"github.com/PepeHerrera14/final-adquisicion/pkg/pagination"
	"github.com/PepeHerrera14/final-adquisicion/pkg/table"
)

type fakeSource struct {
	rounds  map[int][]int
	numbers map[ergast.Event]map[string]string
	stops   map[ergast.Event][]ergast.PitStop
	failOn  ergast.Event
	calls   []ergast.Event
}

func (f *fakeSource) Rounds(_ context.Context, season int) ([]int, error) {
	return f.rounds[season], nil
}

func (f *fakeSource) DriverNumbers(_ context.Context, ev ergast.Event) (map[string]string, error) {
	f.calls = append(f.calls, ev)
	return f.numbers[ev], nil
}

func (f *fakeSource) PitStops(_ context.Context, ev ergast.Event) ([]ergast.PitStop, error) {
	if ev == f.failOn {
		return nil, client.ErrRetryExhausted
	}
	return f.stops[ev], nil
}

type pauseCounter struct{ n int }

func (p *pauseCounter) sleep(ctx context.Context, _ time.Duration) error {
	p.n++
	return ctx.Err()
}

func TestSummaryPath(t *testing.T) {
	got := SummaryPath("data", ergast.Event{Season: 2021, Round: 5})
	assert.Equal(t, filepath.Join("data", "2021", "race_05_pitstops.csv"), got)
}

func TestPipeline_Run(t *testing.T) {
	dir := t.TempDir()
	ev1 := ergast.Event{Season: 2021, Round: 1}
	source := &fakeSource{
		rounds: map[int][]int{2021: {1, 2}, 2022: {1}},
		numbers: map[ergast.Event]map[string]string{
			ev1: {"hamilton": "44"},
		},
		stops: map[ergast.Event][]ergast.PitStop{
			ev1: {
				{DriverID: "hamilton", Stop: "1", Duration: "22.0"},
				{DriverID: "hamilton", Stop: "2", Duration: "24.0"},
			},
		},
	}
	pauses := &pauseCounter{}

	stats, err := New(source, DefaultConfig(dir), pauses.sleep).Run(context.Background(), []int{2021, 2022})
	require.NoError(t, err)

	assert.Equal(t, Stats{Seasons: 2, Events: 3, Rows: 1}, stats)
	assert.Equal(t, 2, pauses.n, "pause between events only")

	got, err := table.ReadFile(filepath.Join(dir, "2021", "race_01_pitstops.csv"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"2021", "1", "hamilton", "44", "2", "23"}}, got.Rows)

	// events without stops still get a header-only file
	empty, err := table.ReadFile(filepath.Join(dir, "2022", "race_01_pitstops.csv"))
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
	assert.Len(t, empty.Columns, 6)
}

func TestPipeline_AbortsOnFailure(t *testing.T) {
	dir := t.TempDir()
	source := &fakeSource{
		rounds: map[int][]int{2021: {1, 2, 3}},
		failOn: ergast.Event{Season: 2021, Round: 2},
	}

	stats, err := New(source, DefaultConfig(dir), (&pauseCounter{}).sleep).Run(context.Background(), []int{2021})
	require.True(t, errors.Is(err, client.ErrRetryExhausted), "got %v", err)
	assert.Equal(t, 1, stats.Events)

	_, err = os.Stat(filepath.Join(dir, "2021", "race_01_pitstops.csv"))
	assert.NoError(t, err, "completed events stay on disk")
	_, err = os.Stat(filepath.Join(dir, "2021", "race_03_pitstops.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestPipeline_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	source := &fakeSource{rounds: map[int][]int{2021: {1, 2}}}

	sleeper := func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := New(source, DefaultConfig(t.TempDir()), sleeper).Run(ctx, []int{2021})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, source.calls, 1)
}

func TestPipeline_AgainstMockAPI(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetSeason(2023, 1)
	mock.SetResults(2023, 1, map[string]string{"max_verstappen": "1", "perez": "11"})
	mock.SetPitStops(2023, 1, []map[string]any{
		testutil.PitStop("max_verstappen", 1, "21.5"),
		testutil.PitStop("perez", 1, "22.5"),
		testutil.PitStop("perez", 2, "1:01.2"),
	})

	noSleep := func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	cfg := client.DefaultConfig(mock.URL(), "f1data-test")
	cfg.Sleeper = noSleep
	api, err := client.New(cfg)
	require.NoError(t, err)
	source := ergast.NewClient(api, pagination.DefaultConfig(), noSleep)

	dir := t.TempDir()
	_, err = New(source, DefaultConfig(dir), noSleep).Run(context.Background(), []int{2023})
	require.NoError(t, err)

	got, err := table.ReadFile(SummaryPath(dir, ergast.Event{Season: 2023, Round: 1}))
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"2023", "1", "max_verstappen", "1", "1", "21.5"},
		{"2023", "1", "perez", "11", "1", "22.5"},
	}, got.Rows)
}
