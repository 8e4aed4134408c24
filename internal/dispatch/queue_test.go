package dispatch

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindJob, "job"},
		{KindStop, "stop"},
		{Kind(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.expected {
			t.Errorf("Kind(%d).String() = %s, want %s", tt.kind, got, tt.expected)
		}
	}
}

func TestSendReceiveFIFO(t *testing.T) {
	tx, rx := New()

	var order []int
	for i := range 5 {
		if err := tx.Send(JobEntry(func() { order = append(order, i) })); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if err := tx.Send(StopEntry()); err != nil {
		t.Fatalf("send stop: %v", err)
	}

	if rx.Len() != 6 {
		t.Errorf("expected 6 queued entries, got %d", rx.Len())
	}

	for {
		e, err := rx.Receive()
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		if e.Kind == KindStop {
			break
		}
		e.Job()
	}

	for i, v := range order {
		if v != i {
			t.Fatalf("expected FIFO order, got %v", order)
		}
	}
	if len(order) != 5 {
		t.Errorf("expected 5 jobs, got %d", len(order))
	}
}

func TestSendNeverBlocks(t *testing.T) {
	tx, _ := New()
	done := make(chan struct{})

	go func() {
		for range 100000 {
			_ = tx.Send(JobEntry(func() {}))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Send blocked with no receiver")
	}

	if tx.Len() != 100000 {
		t.Errorf("expected 100000 queued entries, got %d", tx.Len())
	}
}

func TestReceiveBlocksUntilSend(t *testing.T) {
	tx, rx := New()
	got := make(chan Entry, 1)

	go func() {
		e, err := rx.Receive()
		if err == nil {
			got <- e
		}
	}()

	select {
	case <-got:
		t.Fatal("Receive returned before anything was sent")
	case <-time.After(20 * time.Millisecond):
	}

	_ = tx.Send(StopEntry())

	select {
	case e := <-got:
		if e.Kind != KindStop {
			t.Errorf("expected stop entry, got %s", e.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for Receive")
	}
}

func TestCloseRejectsSendButDrains(t *testing.T) {
	tx, rx := New()

	_ = tx.Send(JobEntry(func() {}))
	tx.Close()
	tx.Close()

	if err := tx.Send(StopEntry()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	e, err := rx.Receive()
	if err != nil {
		t.Fatalf("expected queued entry after close, got %v", err)
	}
	if e.Kind != KindJob {
		t.Errorf("expected job entry, got %s", e.Kind)
	}

	if _, err := rx.Receive(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed on drained queue, got %v", err)
	}
}

func TestCloseWakesBlockedReceivers(t *testing.T) {
	tx, rx := New()
	const receivers = 4

	var wg sync.WaitGroup
	errs := make(chan error, receivers)
	for range receivers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := rx.Receive()
			errs <- err
		}()
	}

	time.Sleep(20 * time.Millisecond)
	tx.Close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("receivers were not woken by Close")
	}

	close(errs)
	for err := range errs {
		if !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	}
}

func TestConcurrentProducersConsumers(t *testing.T) {
	tx, rx := New()
	const producers = 8
	const perProducer = 500
	const consumers = 4

	var seen [producers * perProducer]int32
	var mu sync.Mutex

	var consumed sync.WaitGroup
	for range consumers {
		consumed.Add(1)
		go func() {
			defer consumed.Done()
			for {
				e, err := rx.Receive()
				if err != nil || e.Kind == KindStop {
					return
				}
				e.Job()
			}
		}()
	}

	var produced sync.WaitGroup
	for p := range producers {
		produced.Add(1)
		go func() {
			defer produced.Done()
			for i := range perProducer {
				idx := p*perProducer + i
				_ = tx.Send(JobEntry(func() {
					mu.Lock()
					seen[idx]++
					mu.Unlock()
				}))
			}
		}()
	}
	produced.Wait()

	for range consumers {
		_ = tx.Send(StopEntry())
	}
	consumed.Wait()

	for i, n := range seen {
		if n != 1 {
			t.Fatalf("entry %d consumed %d times", i, n)
		}
	}

	stats := tx.Stats()
	if stats.JobsSent != producers*perProducer || stats.JobsReceived != producers*perProducer {
		t.Errorf("unexpected job stats: %+v", stats)
	}
	if stats.StopsSent != consumers || stats.StopsReceived != consumers {
		t.Errorf("unexpected stop stats: %+v", stats)
	}
}
