package table

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Accessors(t *testing.T) {
	tbl := New("Pos.", "No.", "Driver")
	tbl.Append([]string{"1", "44", "Lewis Hamilton"})
	tbl.Append([]string{"2", "33"})

	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, 1, tbl.Index("No."))
	assert.Equal(t, -1, tbl.Index("Laps"))
	assert.True(t, tbl.Has("Driver", "No."))
	assert.False(t, tbl.Has("Driver", "Laps"))
	assert.Equal(t, "Lewis Hamilton", tbl.Get(tbl.Rows[0], "Driver"))
	assert.Equal(t, "", tbl.Get(tbl.Rows[1], "Driver"), "short rows are padded")
	assert.Equal(t, "", tbl.Get(tbl.Rows[0], "Laps"))

	tbl.Set(tbl.Rows[1], "Driver", "Max Verstappen")
	assert.Equal(t, "Max Verstappen", tbl.Rows[1][2])
}

func TestTable_AddColumn(t *testing.T) {
	tbl := New("No.")
	tbl.Append([]string{"44"})
	tbl.Append([]string{"33"})

	tbl.AddColumn("Season", "2021")
	tbl.AddColumn("No.", "x")

	want := [][]string{{"x", "2021"}, {"x", "2021"}}
	if diff := cmp.Diff(want, tbl.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"No.", "Season"}, tbl.Columns)
}

func TestTable_Filter(t *testing.T) {
	tbl := New("No.")
	for _, n := range []string{"1", "", "3"} {
		tbl.Append([]string{n})
	}

	out := tbl.Filter(func(row []string) bool { return row[0] != "" })
	assert.Equal(t, 2, out.Len())
	assert.Equal(t, 3, tbl.Len(), "source table unchanged")
}

func TestConcat(t *testing.T) {
	a := New("Season", "No.", "Driver")
	a.Append([]string{"2021", "44", "Lewis Hamilton"})
	b := New("Season", "Driver", "Laps")
	b.Append([]string{"2022", "Max Verstappen", "57"})

	out := Concat(a, b)

	assert.Equal(t, []string{"Season", "No.", "Driver", "Laps"}, out.Columns)
	want := [][]string{
		{"2021", "44", "Lewis Hamilton", ""},
		{"2022", "", "Max Verstappen", "57"},
	}
	if diff := cmp.Diff(want, out.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestConcat_Empty(t *testing.T) {
	out := Concat()
	assert.Empty(t, out.Columns)
	assert.Equal(t, 0, out.Len())
}

func TestReadCSV(t *testing.T) {
	input := "\ufeffPos.,No.,Driver\n1,44,\"Hamilton, Lewis\"\n2,33\n"

	tbl, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"Pos.", "No.", "Driver"}, tbl.Columns)
	want := [][]string{{"1", "44", "Hamilton, Lewis"}, {"2", "33", ""}}
	if diff := cmp.Diff(want, tbl.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestReadCSV_DuplicateHeader(t *testing.T) {
	input := "No.,Driver,Pts,Pts,Pts.1,Pts\n44,Hamilton,25,1,x,0\n"

	tbl, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"No.", "Driver", "Pts", "Pts.2", "Pts.1", "Pts.3"}, tbl.Columns)
	row := tbl.Rows[0]
	assert.Equal(t, "25", tbl.Get(row, "Pts"))
	assert.Equal(t, "1", tbl.Get(row, "Pts.2"))
	assert.Equal(t, "x", tbl.Get(row, "Pts.1"))
	assert.Equal(t, "0", tbl.Get(row, "Pts.3"))

	tbl.AddColumn("Season", "2021")
	assert.Equal(t, "2021", tbl.Get(tbl.Rows[0], "Season"))
	assert.Len(t, tbl.Rows[0], len(tbl.Columns))
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrNoHeader))
}

func TestWriteFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2021", "race_01_pitstops.csv")

	tbl := New("DriverId", "MedianPitStopDuration")
	tbl.Append([]string{"hamilton", "21.5"})
	tbl.Append([]string{"bottas", ""})
	require.NoError(t, tbl.WriteFile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "DriverId,MedianPitStopDuration\nhamilton,21.5\nbottas,\n", string(raw))

	back, err := ReadFile(path)
	require.NoError(t, err)
	if diff := cmp.Diff(tbl.Rows, back.Rows); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteFile_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	first := New("a")
	first.Append([]string{"1"})
	first.Append([]string{"2"})
	require.NoError(t, first.WriteFile(path))

	second := New("a")
	second.Append([]string{"3"})
	require.NoError(t, second.WriteFile(path))

	var buf bytes.Buffer
	require.NoError(t, second.WriteCSV(&buf))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(raw))
}
