package reconcile

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/PepeHerrera14/final-adquisicion/pkg/table"
)

var filesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "f1_reconcile_files_total",
	Help: "Files read by the reconciler by kind and outcome",
}, []string{"kind", "outcome"})

// Kind classifies an input file.
type Kind string

const (
	// KindResults is a scraped result table.
	KindResults Kind = "results"
	// KindPitStops is a per-event pit-stop summary.
	KindPitStops Kind = "pitstops"
)

// FileOutcome records what happened to one input file.
type FileOutcome struct {
	Season  int
	Path    string
	Kind    Kind
	Rows    int
	Dropped int
	Skipped bool
	Reason  string
}

// Manifest lists the outcome of every file in read order.
type Manifest []FileOutcome

// ManifestColumns is the schema of the manifest file.
var ManifestColumns = []string{"Season", "Path", "Kind", "Rows", "Dropped", "Skipped", "Reason"}

func record(m *Manifest, o FileOutcome) {
	outcome := "loaded"
	if o.Skipped {
		outcome = "skipped"
	}
	filesTotal.WithLabelValues(string(o.Kind), outcome).Inc()
	*m = append(*m, o)
}

// Skipped returns the outcomes of skipped files.
func (m Manifest) Skipped() Manifest {
	var out Manifest
	for _, o := range m {
		if o.Skipped {
			out = append(out, o)
		}
	}
	return out
}

// Table renders the manifest.
func (m Manifest) Table() *table.Table {
	t := table.New(ManifestColumns...)
	for _, o := range m {
		t.Append([]string{
			strconv.Itoa(o.Season),
			o.Path,
			string(o.Kind),
			strconv.Itoa(o.Rows),
			strconv.Itoa(o.Dropped),
			strconv.FormatBool(o.Skipped),
			o.Reason,
		})
	}
	return t
}
