package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"workpool/internal/worker"
)

// Config はメトリクスの設定
type Config struct {
	MaxLatencySamples int // P99 計算に使うサンプル数の上限
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		MaxLatencySamples: 1000,
	}
}

// Metrics はジョブのメトリクスを収集する
type Metrics struct {
	submittedJobs atomic.Uint64
	completedJobs atomic.Uint64
	faultedJobs   atomic.Uint64
	totalLatency  atomic.Uint64
	activeWorkers atomic.Int64

	mu                sync.RWMutex
	startTime         time.Time
	lastResetTime     time.Time
	windowCompleted   uint64
	latencies         []time.Duration
	maxLatencySamples int
}

// New は新しいメトリクスを作成する
func New() *Metrics {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig は設定を指定してメトリクスを作成する
func NewWithConfig(config Config) *Metrics {
	maxSamples := config.MaxLatencySamples
	if maxSamples <= 0 {
		maxSamples = 1000
	}
	now := time.Now()
	return &Metrics{
		startTime:         now,
		lastResetTime:     now,
		latencies:         make([]time.Duration, 0, maxSamples),
		maxLatencySamples: maxSamples,
	}
}

// RecordSubmit は投入されたジョブを記録する
func (m *Metrics) RecordSubmit() {
	m.submittedJobs.Add(1)
}

// RecordCompletion は正常終了したジョブを記録する
func (m *Metrics) RecordCompletion(latency time.Duration) {
	m.completedJobs.Add(1)
	m.totalLatency.Add(uint64(latency.Nanoseconds()))

	m.mu.Lock()
	m.windowCompleted++
	if len(m.latencies) < m.maxLatencySamples {
		m.latencies = append(m.latencies, latency)
	}
	m.mu.Unlock()
}

// RecordFault は panic したジョブを記録する
func (m *Metrics) RecordFault() {
	m.faultedJobs.Add(1)
}

// Hooks はプールに渡す Hooks を返す
func (m *Metrics) Hooks() worker.Hooks {
	return worker.Hooks{
		OnSubmit: m.RecordSubmit,
		OnStart: func(int) {
			m.activeWorkers.Add(1)
		},
		OnFinish: func(_ int, elapsed time.Duration) {
			m.RecordCompletion(elapsed)
		},
		OnFault: func(*worker.JobPanic) {
			m.RecordFault()
		},
		OnExit: func(int) {
			m.activeWorkers.Add(-1)
		},
	}
}

// SubmittedJobs は投入ジョブ数を返す
func (m *Metrics) SubmittedJobs() uint64 {
	return m.submittedJobs.Load()
}

// CompletedJobs は正常終了ジョブ数を返す
func (m *Metrics) CompletedJobs() uint64 {
	return m.completedJobs.Load()
}

// FaultedJobs は panic したジョブ数を返す
func (m *Metrics) FaultedJobs() uint64 {
	return m.faultedJobs.Load()
}

// ActiveWorkers は稼働中のワーカー数を返す
func (m *Metrics) ActiveWorkers() int64 {
	return m.activeWorkers.Load()
}

// InFlight は投入済みで未完了のジョブ数を返す
func (m *Metrics) InFlight() uint64 {
	done := m.completedJobs.Load() + m.faultedJobs.Load()
	submitted := m.submittedJobs.Load()
	if done > submitted {
		return 0
	}
	return submitted - done
}

// Throughput は直近ウィンドウの完了ジョブ/秒を返す
func (m *Metrics) Throughput() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	elapsed := time.Since(m.lastResetTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.windowCompleted) / elapsed
}

// OverallThroughput は開始からの平均完了ジョブ/秒を返す
func (m *Metrics) OverallThroughput() float64 {
	elapsed := time.Since(m.startTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.completedJobs.Load()) / elapsed
}

// AverageLatency は平均実行時間を返す
func (m *Metrics) AverageLatency() time.Duration {
	completed := m.completedJobs.Load()
	if completed == 0 {
		return 0
	}
	return time.Duration(m.totalLatency.Load() / completed)
}

// P99Latency はP99実行時間を返す（サンプルベース）
func (m *Metrics) P99Latency() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.latencies) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	idx := int(float64(len(sorted)) * 0.99)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// FaultRate は panic 率を返す（0.0〜1.0）
func (m *Metrics) FaultRate() float64 {
	faulted := m.faultedJobs.Load()
	total := m.completedJobs.Load() + faulted
	if total == 0 {
		return 0
	}
	return float64(faulted) / float64(total)
}

// Reset はウィンドウメトリクスをリセットする
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.windowCompleted = 0
	m.lastResetTime = time.Now()
	m.latencies = m.latencies[:0]
}

// Snapshot はメトリクスのスナップショット
type Snapshot struct {
	SubmittedJobs     uint64        `json:"submitted_jobs"`
	CompletedJobs     uint64        `json:"completed_jobs"`
	FaultedJobs       uint64        `json:"faulted_jobs"`
	InFlight          uint64        `json:"in_flight"`
	ActiveWorkers     int64         `json:"active_workers"`
	Throughput        float64       `json:"throughput"`
	OverallThroughput float64       `json:"overall_throughput"`
	AverageLatency    time.Duration `json:"average_latency_ns"`
	P99Latency        time.Duration `json:"p99_latency_ns"`
	FaultRate         float64       `json:"fault_rate"`
	Elapsed           time.Duration `json:"elapsed_ns"`
}

// Snapshot は現在のメトリクスのスナップショットを返す
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		SubmittedJobs:     m.SubmittedJobs(),
		CompletedJobs:     m.CompletedJobs(),
		FaultedJobs:       m.FaultedJobs(),
		InFlight:          m.InFlight(),
		ActiveWorkers:     m.ActiveWorkers(),
		Throughput:        m.Throughput(),
		OverallThroughput: m.OverallThroughput(),
		AverageLatency:    m.AverageLatency(),
		P99Latency:        m.P99Latency(),
		FaultRate:         m.FaultRate(),
		Elapsed:           time.Since(m.startTime),
	}
}
