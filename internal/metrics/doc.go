// Package metrics provides job metrics collection and reporting for a worker pool.
//
// Metrics collects statistics about job execution time, completion and
// fault counts, and throughput (jobs per second). It is thread-safe and
// meant to be fed from pool hooks running on many workers at once.
//
// # Basic Usage
//
//	m := metrics.New()
//	pool := worker.NewPoolWithConfig(worker.PoolConfig{
//	    Workers: 8,
//	    Hooks:   m.Hooks(),
//	})
//
//	// ... submit jobs ...
//
//	fmt.Printf("Completed: %d, Throughput: %.2f/s, P99: %v\n",
//	    m.CompletedJobs(), m.Throughput(), m.P99Latency())
//
//	snap := m.Snapshot()
//
// # Configuration
//
// Use NewWithConfig for custom settings:
//
//	config := metrics.Config{
//	    MaxLatencySamples: 5000, // More samples for P99 accuracy
//	}
//	m := metrics.NewWithConfig(config)
//
// # Prometheus
//
// Exporter mirrors the same counters as Prometheus collectors registered on
// a caller-supplied registry:
//
//	reg := prometheus.NewRegistry()
//	exp, err := metrics.NewExporter(reg, "workpool")
//	hooks := worker.ChainHooks(m.Hooks(), exp.Hooks())
//
// # Thread Safety
//
// All operations use atomic counters and are safe for concurrent access.
package metrics
