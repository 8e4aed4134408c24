package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	pg "github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"

	"workpool/internal/bench"
	"workpool/internal/config"
	"workpool/internal/metrics"
	"workpool/internal/worker"
)

func benchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "プールにジョブを流して計測する",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "設定ファイルパス (YAML/JSON)"},
			&cli.StringFlag{Name: "preset", Aliases: []string{"p"}, Usage: "プリセット名 (quick, serial, wide, burst, faulty)"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "ワーカー数"},
			&cli.IntFlag{Name: "submitters", Aliases: []string{"s"}, Usage: "投入ゴルーチン数"},
			&cli.IntFlag{Name: "jobs", Aliases: []string{"n"}, Usage: "総ジョブ数"},
			&cli.DurationFlag{Name: "job-duration", Aliases: []string{"d"}, Usage: "1ジョブの処理時間 (例: 1ms)"},
			&cli.IntFlag{Name: "fault-every", Usage: "n件ごとにジョブを panic させる"},
			&cli.BoolFlag{Name: "contain-faults", Usage: "ジョブの panic をワーカー内で回収する"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "ログレベル (debug, info, warn, error)"},
			&cli.BoolFlag{Name: "progress", Value: true, Usage: "進捗バーを表示"},
			&cli.BoolFlag{Name: "json", Usage: "レポートの代わりにメトリクスを JSON で出力"},
		},
		Action: runBench,
	}
}

func runBench(c *cli.Context) error {
	if err := applyLogLevel(c.String("log-level")); err != nil {
		return err
	}

	cfg, err := buildBenchConfig(c)
	if err != nil {
		return fmt.Errorf("設定エラー: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("設定検証エラー: %w", err)
	}

	engine := bench.New(cfg)
	cfg = engine.Config()

	fmt.Println("workpool - Fixed-Size Worker Pool Bench")
	fmt.Println("=======================================")
	fmt.Printf("Bench: %s\n", cfg.Name)
	fmt.Printf("Workers: %d, Submitters: %d, Jobs: %d\n", cfg.Workers, cfg.Submitters, cfg.Jobs)
	fmt.Printf("Job Duration: %v, Fault Every: %d, Contain Faults: %v\n", cfg.JobDuration, cfg.FaultEvery, cfg.ContainFaults)
	fmt.Println("=======================================")
	fmt.Println()

	ctx, cancel := signalContext("中断シグナルを受信、投入済みジョブを待機中...")
	defer cancel()

	var bar *pg.ProgressBar
	if c.Bool("progress") && cfg.Jobs > 0 {
		bar = newProgressBar(cfg.Jobs, cfg.Name)
		engine.SetHooks(progressHooks(bar))
	}

	result, err := engine.Run(ctx)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("ベンチ実行エラー: %w", err)
	}

	if c.Bool("json") {
		return printSnapshot(engine.Metrics())
	}

	fmt.Println(result.Report())
	return nil
}

// buildBenchConfig はベンチ設定を構築する
// 設定ファイル → プリセット → デフォルトの順に決め、フラグで上書きする
func buildBenchConfig(c *cli.Context) (bench.Config, error) {
	var cfg bench.Config

	if path := c.String("config"); path != "" {
		fileConfig, err := config.LoadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("設定ファイル読み込みエラー: %w", err)
		}
		if err := fileConfig.Validate(); err != nil {
			return cfg, fmt.Errorf("設定検証エラー: %w", err)
		}
		cfg, err = fileConfig.ToBenchConfig()
		if err != nil {
			return cfg, fmt.Errorf("設定変換エラー: %w", err)
		}
		if !c.IsSet("log-level") {
			if err := applyFileLogLevel(fileConfig); err != nil {
				return cfg, err
			}
		}
	} else if name := c.String("preset"); name != "" {
		preset, ok := bench.GetPreset(name)
		if !ok {
			return cfg, fmt.Errorf("不明なプリセット: %s (利用可能: %v)", name, bench.ListPresets())
		}
		cfg = preset
	} else {
		cfg = bench.QuickBench()
	}

	// フラグが明示的に指定された場合のみオーバーライド
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("submitters") {
		cfg.Submitters = c.Int("submitters")
	}
	if c.IsSet("jobs") {
		cfg.Jobs = c.Int("jobs")
	}
	if c.IsSet("job-duration") {
		cfg.JobDuration = c.Duration("job-duration")
	}
	if c.IsSet("fault-every") {
		cfg.FaultEvery = c.Int("fault-every")
	}
	if c.IsSet("contain-faults") {
		cfg.ContainFaults = c.Bool("contain-faults")
	}

	return cfg, nil
}

// printSnapshot はメトリクスのスナップショットを JSON で出力する
func printSnapshot(snapshot *metrics.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("メトリクスがありません")
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snapshot)
}

func newProgressBar(total int, desc string) *pg.ProgressBar {
	return pg.NewOptions64(
		int64(total),
		pg.OptionSetWriter(os.Stderr),
		pg.OptionSetDescription(desc),
		pg.OptionSetWidth(30),
		pg.OptionEnableColorCodes(true),
		pg.OptionShowCount(),
		pg.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}

// progressHooks は終了したジョブ（正常・panic とも）で進捗を進める
func progressHooks(bar *pg.ProgressBar) worker.Hooks {
	return worker.Hooks{
		OnFinish: func(int, time.Duration) {
			_ = bar.Add(1)
		},
		OnFault: func(*worker.JobPanic) {
			_ = bar.Add(1)
		},
	}
}

// printPresets は利用可能なプリセットを表示する
func printPresets() {
	fmt.Println("利用可能なプリセット:")
	fmt.Println()

	for _, name := range bench.ListPresets() {
		preset, _ := bench.GetPreset(name)
		fmt.Printf("  %-10s %s\n", name, preset.Description)
	}

	fmt.Println()
	fmt.Println("使用例: workpool bench --preset quick")
}
