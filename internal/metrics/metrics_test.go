package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/covscan/domain"
)

// gathered returns metric values keyed by name, with the outcome label
// appended for the labelled counter
func gathered(t *testing.T, r *Recorder) map[string]float64 {
	t.Helper()
	families, err := r.Registry().Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			for _, lp := range m.GetLabel() {
				name += "/" + lp.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				values[name] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[name] = m.GetGauge().GetValue()
			}
		}
	}
	return values
}

func sampleResponse() *domain.CoverageResponse {
	return &domain.CoverageResponse{
		Summary: domain.CoverageSummary{
			ReportsFound:      3,
			ReportsParsed:     2,
			ReportsFailed:     1,
			RecordsParsed:     10,
			AdmissibleRecords: 4,
			MalformedRecords:  1,
			TotalViolations:   5,
		},
		DurationMs: 1500,
	}
}

func TestRecorder_Observe(t *testing.T) {
	r := NewRecorder()
	r.Observe(sampleResponse())

	values := gathered(t, r)
	assert.Equal(t, 2.0, values["covscan_reports_processed_total/parsed"])
	assert.Equal(t, 1.0, values["covscan_reports_processed_total/failed"])
	assert.Equal(t, 10.0, values["covscan_class_records_total"])
	assert.Equal(t, 4.0, values["covscan_admissible_records_total"])
	assert.Equal(t, 1.0, values["covscan_malformed_records_total"])
	assert.Equal(t, 5.0, values["covscan_violations_total"])
	assert.Equal(t, 1.5, values["covscan_last_run_duration_seconds"])
	assert.Greater(t, values["covscan_last_run_timestamp_seconds"], 0.0)
}

func TestRecorder_ObserveAccumulates(t *testing.T) {
	r := NewRecorder()
	r.Observe(sampleResponse())
	r.Observe(sampleResponse())
	r.Observe(nil)

	values := gathered(t, r)
	assert.Equal(t, 10.0, values["covscan_violations_total"])
	assert.Equal(t, 20.0, values["covscan_class_records_total"])
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.Observe(sampleResponse())

	path := filepath.Join(t.TempDir(), "covscan.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "# TYPE covscan_violations_total counter")
	assert.Contains(t, content, "covscan_violations_total 5")
	assert.Contains(t, content, `covscan_reports_processed_total{outcome="failed"} 1`)
}

func TestRecorder_WriteTextfileBadPath(t *testing.T) {
	r := NewRecorder()
	err := r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "covscan.prom"))
	assert.Error(t, err)
}
