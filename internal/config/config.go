package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"workpool/internal/bench"
	"workpool/internal/logger"
	"workpool/internal/worker"

	"gopkg.in/yaml.v3"
)

// FileConfig は設定ファイルの構造
type FileConfig struct {
	Pool   PoolConfig   `yaml:"pool" json:"pool"`
	Log    LogConfig    `yaml:"log" json:"log"`
	Bench  BenchConfig  `yaml:"bench" json:"bench"`
	Server ServerConfig `yaml:"server" json:"server"`
}

// PoolConfig はプール設定
type PoolConfig struct {
	Workers       int  `yaml:"workers" json:"workers"`
	ContainFaults bool `yaml:"contain_faults" json:"contain_faults"`
}

// LogConfig はログ設定
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// BenchConfig はベンチ設定
type BenchConfig struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Preset      string `yaml:"preset" json:"preset"`
	Submitters  int    `yaml:"submitters" json:"submitters"`
	Jobs        int    `yaml:"jobs" json:"jobs"`
	JobDuration string `yaml:"job_duration" json:"job_duration"`
	FaultEvery  int    `yaml:"fault_every" json:"fault_every"`
}

// ServerConfig はAPIサーバー設定
type ServerConfig struct {
	Addr             string `yaml:"addr" json:"addr"`
	MetricsNamespace string `yaml:"metrics_namespace" json:"metrics_namespace"`
}

// デフォルト値
const (
	DefaultAddr             = ":8080"
	DefaultMetricsNamespace = "workpool"
)

// LoadFile は設定ファイルを読み込む
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// Validate は設定を検証する
func (f *FileConfig) Validate() error {
	if f.Pool.Workers < 0 {
		return fmt.Errorf("pool.workers must be non-negative")
	}

	if _, err := logger.ParseLevel(f.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	if f.Bench.Preset != "" {
		if _, ok := bench.GetPreset(f.Bench.Preset); !ok {
			return fmt.Errorf("bench.preset: unknown preset %s", f.Bench.Preset)
		}
	}
	if f.Bench.Submitters < 0 {
		return fmt.Errorf("bench.submitters must be non-negative")
	}
	if f.Bench.Jobs < 0 {
		return fmt.Errorf("bench.jobs must be non-negative")
	}
	if f.Bench.FaultEvery < 0 {
		return fmt.Errorf("bench.fault_every must be non-negative")
	}
	if f.Bench.FaultEvery > 0 && !f.Pool.ContainFaults {
		return fmt.Errorf("bench.fault_every requires pool.contain_faults")
	}

	return nil
}

// LogLevel はログレベルを返す
func (f *FileConfig) LogLevel() (logger.Level, error) {
	return logger.ParseLevel(f.Log.Level)
}

// ToPoolConfig はFileConfigをworker.PoolConfigに変換する
// workers が 0 の場合は CPU 数を使用
func (f *FileConfig) ToPoolConfig() worker.PoolConfig {
	config := worker.DefaultPoolConfig()

	config.Workers = f.Pool.Workers
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	config.ContainFaults = f.Pool.ContainFaults

	return config
}

// ToBenchConfig はFileConfigをbench.Configに変換する
// preset を基準にし、指定された項目だけ上書きする
func (f *FileConfig) ToBenchConfig() (bench.Config, error) {
	b := f.Bench

	config := bench.DefaultConfig()
	if b.Preset != "" {
		preset, ok := bench.GetPreset(b.Preset)
		if !ok {
			return config, fmt.Errorf("unknown preset: %s", b.Preset)
		}
		config = preset
	}

	if b.Name != "" {
		config.Name = b.Name
	}
	if b.Description != "" {
		config.Description = b.Description
	}
	if f.Pool.Workers > 0 {
		config.Workers = f.Pool.Workers
	}
	if f.Pool.ContainFaults {
		config.ContainFaults = true
	}
	if b.Submitters > 0 {
		config.Submitters = b.Submitters
	}
	if b.Jobs > 0 {
		config.Jobs = b.Jobs
	}
	if b.JobDuration != "" {
		d, err := time.ParseDuration(b.JobDuration)
		if err != nil {
			return config, fmt.Errorf("invalid job duration: %w", err)
		}
		config.JobDuration = d
	}
	if b.FaultEvery > 0 {
		config.FaultEvery = b.FaultEvery
	}

	return config, nil
}

// ServerAddr はサーバーアドレスを返す
func (f *FileConfig) ServerAddr() string {
	if f.Server.Addr == "" {
		return DefaultAddr
	}
	return f.Server.Addr
}

// MetricsNamespace は Prometheus の namespace を返す
func (f *FileConfig) MetricsNamespace() string {
	if f.Server.MetricsNamespace == "" {
		return DefaultMetricsNamespace
	}
	return f.Server.MetricsNamespace
}
