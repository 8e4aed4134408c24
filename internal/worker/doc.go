// Package worker provides a fixed-size goroutine pool for deferred jobs.
//
// The Pool starts a fixed number of worker goroutines when it is created.
// All of them share the receiving end of one unbounded dispatch queue; a
// worker holds the receive lock only while taking the next entry, never
// while running a job. Each submitted job runs exactly once on one worker.
//
// # Basic Usage
//
//	pool := worker.NewPool(4) // 4 workers
//	defer pool.Close()
//
//	for i := 0; i < 100; i++ {
//	    pool.Execute(func() {
//	        // do work
//	    })
//	}
//
// Execute never waits for a job to finish and never waits for queue space.
//
// # Shutdown
//
// Close enqueues one stop signal per worker behind every job already
// submitted, then waits for each worker in creation order. It does not
// return until every worker has exited.
//
// # Faults
//
// A job that panics terminates the worker running it. The pool does not
// replace that worker, so capacity shrinks for the rest of the pool's life.
// The panic is held as a *JobPanic and re-raised by Close when it waits on
// that worker. Setting PoolConfig.ContainFaults keeps workers alive instead:
// the panic is logged and reported through Hooks.OnFault.
//
// # Misuse
//
// NewPool panics for a size of zero or less. Execute panics when called
// after Close has started.
package worker
