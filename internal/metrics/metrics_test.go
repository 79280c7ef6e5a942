package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_RegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ImportRunsTotal.WithLabelValues("success").Inc()
	m.RecordsTotal.WithLabelValues("file", "new").Add(3)
	m.DownloadsTotal.WithLabelValues("success").Inc()
	m.DownloadBytes.Add(1024)
	m.RecordErrorsTotal.Inc()
	m.PublishedTotal.Inc()
	m.ImportRunDuration.Observe(2.5)

	if got := testutil.ToFloat64(m.ImportRunsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("expected 1 successful run, got %v", got)
	}
	if got := testutil.ToFloat64(m.RecordsTotal.WithLabelValues("file", "new")); got != 3 {
		t.Errorf("expected 3 new file records, got %v", got)
	}
	if got := testutil.ToFloat64(m.DownloadBytes); got != 1024 {
		t.Errorf("expected 1024 download bytes, got %v", got)
	}

	// All collectors must be gatherable from the injected registry
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected registered metric families")
	}
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	New(registry)

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	New(registry)
}

func TestSummarize_ReducesFamilies(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ImportRunsTotal.WithLabelValues("success").Inc()
	m.ImportRunsTotal.WithLabelValues("error").Add(2)
	m.RecordsTotal.WithLabelValues("file", "new").Add(4)
	m.RecordsTotal.WithLabelValues("course", "edit").Inc()
	m.DownloadBytes.Add(512)
	m.ImportRunDuration.Observe(1.5)
	m.ImportRunDuration.Observe(3)

	totals, err := Summarize(registry)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if got := totals["moodle_import_runs_total"]; got != 3 {
		t.Errorf("expected 3 runs across outcomes, got %v", got)
	}
	if got := totals["moodle_import_records_total"]; got != 5 {
		t.Errorf("expected 5 records across labels, got %v", got)
	}
	if got := totals["moodle_import_download_bytes_total"]; got != 512 {
		t.Errorf("expected 512 download bytes, got %v", got)
	}
	if got := totals["moodle_import_run_duration_seconds"]; got != 2 {
		t.Errorf("expected 2 duration observations, got %v", got)
	}
}
