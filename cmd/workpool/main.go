// Package main is the entry point for workpool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"workpool/internal/config"
	"workpool/internal/logger"
)

var (
	version = "dev"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.Error("", "%v", err)
		os.Exit(1)
	}
}

// newApp は CLI アプリケーションを組み立てる
func newApp() *cli.App {
	return &cli.App{
		Name:    "workpool",
		Usage:   "fixed-size worker pool bench and control server",
		Version: version,
		Commands: []*cli.Command{
			benchCommand(),
			serveCommand(),
			{
				Name:  "presets",
				Usage: "利用可能なベンチプリセットを表示",
				Action: func(*cli.Context) error {
					printPresets()
					return nil
				},
			},
		},
	}
}

// applyLogLevel はログレベルを設定する
func applyLogLevel(name string) error {
	level, err := logger.ParseLevel(name)
	if err != nil {
		return err
	}
	logger.Default.SetLevel(level)
	return nil
}

// applyFileLogLevel は設定ファイルのログレベルを適用する
// log.level が空ならそのまま
func applyFileLogLevel(fileConfig *config.FileConfig) error {
	if fileConfig.Log.Level == "" {
		return nil
	}
	level, err := fileConfig.LogLevel()
	if err != nil {
		return err
	}
	logger.Default.SetLevel(level)
	return nil
}

// signalContext は SIGINT/SIGTERM でキャンセルされるコンテキストを返す
func signalContext(msg string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			fmt.Println()
			fmt.Println(msg)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
