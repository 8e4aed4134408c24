package main

import (
	"context"
	"fmt"
	"net"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"

	"workpool/internal/api"
	"workpool/internal/config"
	"workpool/internal/events"
	"workpool/internal/logger"
	"workpool/internal/metrics"
	"workpool/internal/worker"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "プールを起動し HTTP/WebSocket API で公開する",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "設定ファイルパス (YAML/JSON)"},
			&cli.StringFlag{Name: "addr", Aliases: []string{"a"}, Usage: "サーバーアドレス (例: :8080, 0.0.0.0:3000)"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "ワーカー数 (0でCPU数)"},
			&cli.BoolFlag{Name: "contain-faults", Usage: "ジョブの panic をワーカー内で回収する"},
			&cli.StringFlag{Name: "namespace", Usage: "Prometheus の namespace"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "ログレベル (debug, info, warn, error)"},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	if err := applyLogLevel(c.String("log-level")); err != nil {
		return err
	}

	fileConfig := &config.FileConfig{}
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return fmt.Errorf("設定ファイル読み込みエラー: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("設定検証エラー: %w", err)
		}
		fileConfig = loaded
		if !c.IsSet("log-level") {
			if err := applyFileLogLevel(fileConfig); err != nil {
				return err
			}
		}
	}

	if c.IsSet("workers") {
		fileConfig.Pool.Workers = c.Int("workers")
	}
	if c.IsSet("contain-faults") {
		fileConfig.Pool.ContainFaults = c.Bool("contain-faults")
	}
	if c.IsSet("addr") {
		fileConfig.Server.Addr = c.String("addr")
	}
	if c.IsSet("namespace") {
		fileConfig.Server.MetricsNamespace = c.String("namespace")
	}

	ln, err := net.Listen("tcp", fileConfig.ServerAddr())
	if err != nil {
		return fmt.Errorf("リッスンエラー: %w", err)
	}

	ctx, cancel := signalContext("中断シグナルを受信、サーバーを終了中...")
	defer cancel()

	return serve(ctx, fileConfig, ln)
}

// serve はプールと API サーバーを組み立て、ctx が終わるまで ln で待ち受ける
// HTTP を止めてから投入済みのジョブを処理し終えてプールを閉じる
func serve(ctx context.Context, fileConfig *config.FileConfig, ln net.Listener) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	exporter, err := metrics.NewExporter(reg, fileConfig.MetricsNamespace())
	if err != nil {
		return err
	}

	m := metrics.New()
	bus := events.NewBus()
	defer bus.Close()

	poolConfig := fileConfig.ToPoolConfig()
	poolConfig.Hooks = worker.ChainHooks(exporter.Hooks(), events.Hooks(bus), m.Hooks())
	pool := worker.NewPoolWithConfig(poolConfig)

	fmt.Println("workpool - API Server")
	fmt.Println("=====================")
	fmt.Printf("Starting server on http://%s (workers: %d)\n", ln.Addr(), pool.NumWorkers())
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	server := api.NewServer(pool, m, bus, reg)
	serveErr := server.Serve(ctx, ln)

	// Serve が戻った時点でハンドラはプールに触れない
	pool.Close()
	bus.Publish(events.NewPoolClosedEvent(pool.NumWorkers()))
	logger.Info("", "Processed %d jobs (%d faulted)", m.CompletedJobs(), m.FaultedJobs())

	return serveErr
}
