package dispatch

import (
	"errors"
	"sync"
)

// ErrClosed はクローズ済みのキューへの操作で返される
var ErrClosed = errors.New("dispatch: queue closed")

// Job はワーカーが一度だけ実行する処理
type Job func()

// Kind はエントリの種別
type Kind int

const (
	KindJob Kind = iota
	KindStop
)

func (k Kind) String() string {
	switch k {
	case KindJob:
		return "job"
	case KindStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Entry はキューで運ばれる単位。Kind が KindJob のときだけ Job が有効
type Entry struct {
	Kind Kind
	Job  Job
}

// JobEntry はジョブを運ぶエントリを返す
func JobEntry(job Job) Entry {
	return Entry{Kind: KindJob, Job: job}
}

// StopEntry は停止シグナルのエントリを返す
func StopEntry() Entry {
	return Entry{Kind: KindStop}
}

// Stats はキューを通過したエントリ数
type Stats struct {
	JobsSent      uint64
	StopsSent     uint64
	JobsReceived  uint64
	StopsReceived uint64
}

// queue は Sender と Receiver が共有する本体
type queue struct {
	mu     sync.Mutex
	ready  *sync.Cond
	items  []Entry
	closed bool
	stats  Stats
}

// New は新しいキューを作成し、送信側と受信側を返す
func New() (*Sender, *Receiver) {
	q := &queue{}
	q.ready = sync.NewCond(&q.mu)
	return &Sender{q: q}, &Receiver{q: q}
}

// Sender はキューの送信側。複数のゴルーチンから同時に使える
type Sender struct {
	q *queue
}

// Send はエントリを末尾に追加する。容量待ちでブロックすることはない
func (s *Sender) Send(e Entry) error {
	q := s.q
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	q.items = append(q.items, e)
	if e.Kind == KindStop {
		q.stats.StopsSent++
	} else {
		q.stats.JobsSent++
	}
	q.ready.Signal()
	return nil
}

// Close は以降の送信を拒否する。キュー済みのエントリは受信できる
func (s *Sender) Close() {
	q := s.q
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.ready.Broadcast()
}

// Len は未受信のエントリ数を返す
func (s *Sender) Len() int {
	return s.q.len()
}

// Stats は送受信の統計を返す
func (s *Sender) Stats() Stats {
	return s.q.snapshot()
}

// Receiver はキューの受信側
type Receiver struct {
	q *queue
}

// Receive は先頭のエントリを取り出す。空の間はブロックする
func (r *Receiver) Receive() (Entry, error) {
	q := r.q
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		if q.closed {
			return Entry{}, ErrClosed
		}
		q.ready.Wait()
	}

	e := q.items[0]
	q.items[0] = Entry{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}

	if e.Kind == KindStop {
		q.stats.StopsReceived++
	} else {
		q.stats.JobsReceived++
	}
	return e, nil
}

// Len は未受信のエントリ数を返す
func (r *Receiver) Len() int {
	return r.q.len()
}

// Stats は送受信の統計を返す
func (r *Receiver) Stats() Stats {
	return r.q.snapshot()
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *queue) snapshot() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}
