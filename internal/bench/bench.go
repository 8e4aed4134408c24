package bench

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"workpool/internal/events"
	"workpool/internal/logger"
	"workpool/internal/metrics"
	"workpool/internal/worker"
)

// ErrAlreadyRunning は実行中の Engine を再度 Run したときに返される
var ErrAlreadyRunning = errors.New("bench is already running")

// Config はベンチマークの設定
type Config struct {
	Name        string        // ベンチ名
	Description string        // 説明
	Workers     int           // プールのワーカー数
	Submitters  int           // ジョブを投入するゴルーチン数
	Jobs        int           // 総ジョブ数
	JobDuration time.Duration // 1ジョブあたりの処理時間

	// 障害注入
	FaultEvery    int  // n番目ごとのジョブを panic させる（0で無効）
	ContainFaults bool // panic をワーカー内で回収する
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Name:        "default",
		Description: "Default bench",
		Workers:     4,
		Submitters:  4,
		Jobs:        1000,
		JobDuration: time.Millisecond,
	}
}

// Validate は設定を検証する
func (c Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.Submitters <= 0 {
		return fmt.Errorf("submitters must be positive")
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must be non-negative")
	}
	if c.JobDuration < 0 {
		return fmt.Errorf("job duration must be non-negative")
	}
	if c.FaultEvery < 0 {
		return fmt.Errorf("fault_every must be non-negative")
	}
	// 回収しない panic はプール停止時に致命的エラーになる
	if c.FaultEvery > 0 && !c.ContainFaults {
		return fmt.Errorf("fault_every requires contain_faults")
	}
	return nil
}

// Result はベンチ実行結果
type Result struct {
	Name       string
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	SubmitTime time.Duration
	Cancelled  bool

	Workers    int
	Submitters int

	// メトリクス
	SubmittedJobs uint64
	CompletedJobs uint64
	FaultedJobs   uint64
	FaultRate     float64
	Throughput    float64
	AvgLatency    time.Duration
	P99Latency    time.Duration
}

// Engine はベンチ実行エンジン
type Engine struct {
	config   Config
	eventBus *events.Bus
	hooks    worker.Hooks

	mu      sync.RWMutex
	running bool
	metrics *metrics.Metrics
}

// New は新しいEngineを作成する
func New(config Config) *Engine {
	return &Engine{
		config: config,
	}
}

// SetEventBus はイベントバスを設定する
func (e *Engine) SetEventBus(bus *events.Bus) {
	e.eventBus = bus
}

// SetHooks は追加の Hooks を設定する（進捗表示など）
func (e *Engine) SetHooks(hooks worker.Hooks) {
	e.hooks = hooks
}

// Run はベンチを実行する
// ctx がキャンセルされると残りのジョブの投入をやめ、投入済みのジョブを待って戻る
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if err := e.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	m := metrics.New()

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	e.running = true
	e.metrics = m
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	logger.Info("", "=== Bench '%s' started ===", e.config.Name)
	logger.Info("", "Workers: %d, Submitters: %d, Jobs: %d", e.config.Workers, e.config.Submitters, e.config.Jobs)

	result := &Result{
		Name:       e.config.Name,
		StartTime:  time.Now(),
		Workers:    e.config.Workers,
		Submitters: e.config.Submitters,
	}

	hooks := []worker.Hooks{m.Hooks()}
	if e.eventBus != nil {
		hooks = append(hooks, events.Hooks(e.eventBus))
	}
	hooks = append(hooks, e.hooks)

	pool := worker.NewPoolWithConfig(worker.PoolConfig{
		Workers:       e.config.Workers,
		ContainFaults: e.config.ContainFaults,
		Hooks:         worker.ChainHooks(hooks...),
	})

	result.Cancelled = e.submitAll(ctx, pool)
	result.SubmitTime = time.Since(result.StartTime)

	pool.Close()
	if e.eventBus != nil {
		e.eventBus.Publish(events.NewPoolClosedEvent(pool.NumWorkers()))
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	collectResults(result, m)

	logger.Info("", "=== Bench '%s' completed ===", e.config.Name)

	return result, nil
}

// submitAll は Submitters 個のゴルーチンで Jobs 個のジョブを投入する
// キャンセルで打ち切った場合は true を返す
func (e *Engine) submitAll(ctx context.Context, pool *worker.Pool) bool {
	var next atomic.Int64
	var cancelled atomic.Bool
	var wg sync.WaitGroup

	total := int64(e.config.Jobs)
	for range e.config.Submitters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := next.Add(1) - 1
				if i >= total {
					return
				}
				if ctx.Err() != nil {
					cancelled.Store(true)
					return
				}
				pool.Execute(e.job(i))
			}
		}()
	}
	wg.Wait()

	return cancelled.Load()
}

// job は i 番目のジョブを作る
func (e *Engine) job(i int64) worker.Job {
	d := e.config.JobDuration
	faulty := e.config.FaultEvery > 0 && (i+1)%int64(e.config.FaultEvery) == 0

	return func() {
		if d > 0 {
			time.Sleep(d)
		}
		if faulty {
			panic(fmt.Sprintf("bench: injected fault in job %d", i))
		}
	}
}

// collectResults は結果を収集する
func collectResults(result *Result, m *metrics.Metrics) {
	snapshot := m.Snapshot()
	result.SubmittedJobs = snapshot.SubmittedJobs
	result.CompletedJobs = snapshot.CompletedJobs
	result.FaultedJobs = snapshot.FaultedJobs
	result.FaultRate = snapshot.FaultRate
	result.AvgLatency = snapshot.AverageLatency
	result.P99Latency = snapshot.P99Latency

	if secs := result.Duration.Seconds(); secs > 0 {
		result.Throughput = float64(snapshot.CompletedJobs) / secs
	}
}

// Report は結果をフォーマットして返す
func (r *Result) Report() string {
	status := "completed"
	if r.Cancelled {
		status = "cancelled"
	}

	return fmt.Sprintf(`
================================================================================
                           BENCH REPORT: %s
================================================================================

EXECUTION SUMMARY
-----------------
  Start Time:     %s
  End Time:       %s
  Duration:       %v
  Submit Time:    %v
  Status:         %s

POOL
----
  Workers:        %d
  Submitters:     %d

JOB METRICS
-----------
  Submitted:        %d
  Completed:        %d
  Faulted:          %d
  Fault Rate:       %.2f%%
  Throughput:       %.2f jobs/s
  Avg Latency:      %v
  P99 Latency:      %v

================================================================================`,
		r.Name,
		r.StartTime.Format("2006-01-02 15:04:05"),
		r.EndTime.Format("2006-01-02 15:04:05"),
		r.Duration.Round(time.Millisecond),
		r.SubmitTime.Round(time.Microsecond),
		status,
		r.Workers,
		r.Submitters,
		r.SubmittedJobs,
		r.CompletedJobs,
		r.FaultedJobs,
		r.FaultRate*100,
		r.Throughput,
		r.AvgLatency.Round(time.Microsecond),
		r.P99Latency.Round(time.Microsecond),
	)
}

// IsRunning は実行中かどうかを返す
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Metrics は直近の実行のメトリクスを返す
func (e *Engine) Metrics() *metrics.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.metrics == nil {
		return nil
	}
	snapshot := e.metrics.Snapshot()
	return &snapshot
}

// Config は設定を返す
func (e *Engine) Config() Config {
	return e.config
}
