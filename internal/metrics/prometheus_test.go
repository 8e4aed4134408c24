package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"workpool/internal/worker"
)

func TestNewExporterRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()

	if _, err := NewExporter(reg, "test"); err != nil {
		t.Fatalf("failed to create exporter: %v", err)
	}

	// Registering the same names twice must fail
	if _, err := NewExporter(reg, "test"); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestExporterHooksWithPool(t *testing.T) {
	reg := prometheus.NewRegistry()
	exp, err := NewExporter(reg, "test")
	if err != nil {
		t.Fatalf("failed to create exporter: %v", err)
	}

	pool := worker.NewPoolWithConfig(worker.PoolConfig{
		Workers:       2,
		ContainFaults: true,
		Hooks:         exp.Hooks(),
	})
	for i := range 10 {
		pool.Execute(func() {
			if i == 0 {
				panic("first job fails")
			}
		})
	}
	pool.Close()

	if got := testutil.ToFloat64(exp.JobsSubmitted); got != 10 {
		t.Errorf("expected 10 submitted, got %v", got)
	}
	if got := testutil.ToFloat64(exp.JobsCompleted); got != 9 {
		t.Errorf("expected 9 completed, got %v", got)
	}
	if got := testutil.ToFloat64(exp.JobsFaulted); got != 1 {
		t.Errorf("expected 1 faulted, got %v", got)
	}
	if got := testutil.ToFloat64(exp.ActiveWorkers); got != 0 {
		t.Errorf("expected 0 active workers, got %v", got)
	}

	expected := `
# HELP test_pool_jobs_faulted_total Total number of jobs that panicked
# TYPE test_pool_jobs_faulted_total counter
test_pool_jobs_faulted_total 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "test_pool_jobs_faulted_total"); err != nil {
		t.Errorf("unexpected gathered metrics: %v", err)
	}
}
