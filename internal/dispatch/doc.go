// Package dispatch provides the unbounded queue that carries work to pool workers.
//
// A queue has two ends. Any number of goroutines may hold the Sender and
// enqueue entries; Send never waits for capacity. The Receiver hands out
// each entry to exactly one caller, in the order entries were enqueued
// across all producers.
//
// # Entries
//
// An Entry is either a job (KindJob) or a stop signal (KindStop):
//
//	tx, rx := dispatch.New()
//	_ = tx.Send(dispatch.JobEntry(func() { fmt.Println("hello") }))
//	_ = tx.Send(dispatch.StopEntry())
//
//	for {
//	    e, err := rx.Receive()
//	    if err != nil || e.Kind == dispatch.KindStop {
//	        return
//	    }
//	    e.Job()
//	}
//
// # Closing
//
// Close on the Sender rejects further sends with ErrClosed. Entries that
// were already queued remain receivable; Receive reports ErrClosed only once
// the queue is both closed and empty.
package dispatch
