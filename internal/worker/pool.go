package worker

import (
	"fmt"
	"sync"
	"sync/atomic"

	"workpool/internal/dispatch"
	"workpool/internal/logger"
)

// Job はワーカーが実行するジョブを表す
type Job = dispatch.Job

// PoolConfig はワーカープールの設定
type PoolConfig struct {
	Workers       int   // ワーカー数（1以上）
	ContainFaults bool  // true ならジョブの panic を回収してワーカーを生かす
	Hooks         Hooks // ライフサイクルの通知先
}

// DefaultPoolConfig はデフォルト設定を返す
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers:       1,
		ContainFaults: false,
	}
}

// Pool は固定数のワーカーと送信側キューを所有する
type Pool struct {
	workers []*worker
	tx      *dispatch.Sender
	rx      *sharedReceiver
	hooks   Hooks
	alive   atomic.Int32

	mu     sync.RWMutex
	closed bool
}

// NewPool は size 個のワーカーを持つプールを作成する
// size が 0 以下の場合は panic する
func NewPool(size int) *Pool {
	config := DefaultPoolConfig()
	config.Workers = size
	return NewPoolWithConfig(config)
}

// NewPoolWithConfig は設定を指定してワーカープールを作成する
func NewPoolWithConfig(config PoolConfig) *Pool {
	if config.Workers <= 0 {
		panic(fmt.Sprintf("worker: pool size must be positive, got %d", config.Workers))
	}

	tx, rx := dispatch.New()
	p := &Pool{
		workers: make([]*worker, 0, config.Workers),
		tx:      tx,
		rx:      &sharedReceiver{rx: rx},
		hooks:   config.Hooks,
	}

	for i := range config.Workers {
		w := newWorker(i, p.rx, config.ContainFaults, p.hooks, &p.alive)
		p.workers = append(p.workers, w)
		p.alive.Add(1)
		go w.run()
	}

	logger.Info("", "WorkerPool started with %d workers", config.Workers)
	return p
}

// Execute はジョブをキューに積む。ジョブの完了は待たない
// Close 開始後に呼ぶと panic する
func (p *Pool) Execute(job Job) {
	if job == nil {
		panic("worker: nil job")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		panic(fmt.Errorf("worker: execute on closed pool: %w", dispatch.ErrClosed))
	}
	if err := p.tx.Send(dispatch.JobEntry(job)); err != nil {
		panic(fmt.Errorf("worker: enqueue job: %w", err))
	}
	if p.hooks.OnSubmit != nil {
		p.hooks.OnSubmit()
	}
}

// Close はワーカー数と同じ数の停止シグナルを積み、全ワーカーの終了を待つ
// 異常終了したワーカーに到達した時点でその *JobPanic で panic する
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for range p.workers {
		if err := p.tx.Send(dispatch.StopEntry()); err != nil {
			p.mu.Unlock()
			panic(fmt.Errorf("worker: enqueue stop: %w", err))
		}
	}
	p.tx.Close()
	p.mu.Unlock()

	for _, w := range p.workers {
		if fault := w.join(); fault != nil {
			logger.Error("", "WorkerPool shutdown hit a faulted worker: %v", fault)
			panic(fault)
		}
	}

	logger.Info("", "WorkerPool stopped")
}

// NumWorkers は作成時のワーカー数を返す
func (p *Pool) NumWorkers() int {
	return len(p.workers)
}

// Alive は稼働中のワーカー数を返す
func (p *Pool) Alive() int {
	return int(p.alive.Load())
}

// Pending はまだどのワーカーにも渡っていないエントリ数を返す
func (p *Pool) Pending() int {
	return p.tx.Len()
}

// Stats はキューの送受信統計を返す
func (p *Pool) Stats() dispatch.Stats {
	return p.tx.Stats()
}

// sharedReceiver は全ワーカーが共有する受信側
// ロックは Receive の間だけ保持する
type sharedReceiver struct {
	mu sync.Mutex
	rx *dispatch.Receiver
}

func (s *sharedReceiver) next() (dispatch.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rx.Receive()
}
