package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/websocket"

	"workpool/internal/events"
	"workpool/internal/logger"
	"workpool/internal/metrics"
	"workpool/internal/worker"
)

// 1リクエストで投入できるジョブ数の上限
const maxJobsPerRequest = 10000

// Server はプールを操作・観測するAPIサーバー
type Server struct {
	pool     *worker.Pool
	metrics  *metrics.Metrics
	bus      *events.Bus
	gatherer prometheus.Gatherer

	mu        sync.RWMutex
	wsClients map[*websocket.Conn]bool

	// ジョブ投入中のハンドラは submitMu を読み取りロックで保持する
	submitMu sync.RWMutex
	stopped  bool

	server *http.Server
}

// NewServer は新しいAPIサーバーを作成する
// gatherer が nil の場合 /metrics は公開しない
func NewServer(pool *worker.Pool, m *metrics.Metrics, bus *events.Bus, gatherer prometheus.Gatherer) *Server {
	return &Server{
		pool:      pool,
		metrics:   m,
		bus:       bus,
		gatherer:  gatherer,
		wsClients: make(map[*websocket.Conn]bool),
	}
}

// Handler はルーティング済みのハンドラを返す
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.HandleFunc("/api/jobs", s.handleJobs)

	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	mux.Handle("/ws", websocket.Handler(s.handleWebSocket))

	return mux
}

// shutdownTimeout は処理中のリクエストを待つ上限
const shutdownTimeout = 5 * time.Second

// Serve は ln で待ち受ける。ctx が終わるまで戻らない
// ctx が終わると新規接続を止め、処理中のハンドラがすべて戻ってから返る。
// 戻った後はハンドラがプールに触れないので、呼び出し側はそのまま Close できる
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler: s.Handler(),
	}

	// バックグラウンドでイベント配信
	go s.broadcastLoop(ctx)

	logger.Info("", "API Server starting on http://%s", ln.Addr())

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("", "API Server shutdown: %v", err)
		}
		// タイムアウトしてもジョブ投入中のハンドラは待ち、以降の投入を断る
		s.submitMu.Lock()
		s.stopped = true
		s.submitMu.Unlock()
	}()

	if err := s.server.Serve(ln); err != http.ErrServerClosed {
		return err
	}
	<-done
	logger.Info("", "API Server stopped")
	return nil
}

// StatusResponse はステータスレスポンス
type StatusResponse struct {
	Workers       int    `json:"workers"`
	Alive         int    `json:"alive"`
	Pending       int    `json:"pending"`
	JobsSent      uint64 `json:"jobs_sent"`
	JobsReceived  uint64 `json:"jobs_received"`
	StopsSent     uint64 `json:"stops_sent"`
	StopsReceived uint64 `json:"stops_received"`
	WSClients     int    `json:"ws_clients"`
}

func (s *Server) status() StatusResponse {
	stats := s.pool.Stats()
	return StatusResponse{
		Workers:       s.pool.NumWorkers(),
		Alive:         s.pool.Alive(),
		Pending:       s.pool.Pending(),
		JobsSent:      stats.JobsSent,
		JobsReceived:  stats.JobsReceived,
		StopsSent:     stats.StopsSent,
		StopsReceived: stats.StopsReceived,
		WSClients:     s.clientCount(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

// JobsResponse はジョブ投入レスポンス
type JobsResponse struct {
	Submitted int    `json:"submitted"`
	Sleep     string `json:"sleep"`
}

// handleJobs は count 個の待機ジョブを投入する
// POST /api/jobs?count=10&sleep=50ms
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	count, sleep, err := parseJobsQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.submitMu.RLock()
	defer s.submitMu.RUnlock()
	if s.stopped {
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}

	for range count {
		s.pool.Execute(func() {
			time.Sleep(sleep)
		})
	}

	logger.Debug("", "API submitted %d jobs (sleep=%v)", count, sleep)
	s.writeJSON(w, http.StatusAccepted, JobsResponse{Submitted: count, Sleep: sleep.String()})
}

func parseJobsQuery(r *http.Request) (int, time.Duration, error) {
	q := r.URL.Query()

	count := 1
	if v := q.Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid count: %w", err)
		}
		if n <= 0 || n > maxJobsPerRequest {
			return 0, 0, fmt.Errorf("count must be between 1 and %d", maxJobsPerRequest)
		}
		count = n
	}

	var sleep time.Duration
	if v := q.Get("sleep"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid sleep: %w", err)
		}
		if d < 0 {
			return 0, 0, fmt.Errorf("sleep must be non-negative")
		}
		sleep = d
	}

	return count, sleep, nil
}

// WebSocket handling
func (s *Server) handleWebSocket(ws *websocket.Conn) {
	s.mu.Lock()
	s.wsClients[ws] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.wsClients, ws)
		s.mu.Unlock()
		_ = ws.Close()
	}()

	// Keep connection alive
	for {
		var msg string
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			break
		}
	}
}

func (s *Server) clientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.wsClients)
}

func (s *Server) broadcast(data any) {
	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.wsClients))
	for ws := range s.wsClients {
		clients = append(clients, ws)
	}
	s.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}

	for _, ws := range clients {
		_ = websocket.Message.Send(ws, string(jsonData))
	}
}

// broadcastLoop はプールのイベントと毎秒のステータスを配信する
func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	var eventCh <-chan events.Event
	if s.bus != nil {
		eventCh = s.bus.Subscribe()
		defer s.bus.Unsubscribe(eventCh)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-eventCh:
			if !ok {
				eventCh = nil
				continue
			}
			s.broadcast(map[string]any{
				"type":  "event",
				"event": e,
			})
		case <-ticker.C:
			s.broadcast(map[string]any{
				"type":   "status",
				"status": s.status(),
			})
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("", "Failed to encode JSON: %v", err)
	}
}
