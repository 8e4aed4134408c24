package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"workpool/internal/logger"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	return path
}

func TestLoadFileYAML(t *testing.T) {
	content := `
pool:
  workers: 8
  contain_faults: true
log:
  level: debug
bench:
  name: yaml-bench
  submitters: 3
  jobs: 500
  job_duration: 2ms
  fault_every: 50
server:
  addr: ":9090"
  metrics_namespace: jobs
`
	cfg, err := LoadFile(writeTemp(t, "config.yaml", content))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Pool.Workers != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.Pool.Workers)
	}
	if !cfg.Pool.ContainFaults {
		t.Error("expected contain_faults to be enabled")
	}
	if cfg.Bench.Name != "yaml-bench" {
		t.Errorf("expected name 'yaml-bench', got '%s'", cfg.Bench.Name)
	}
	if cfg.ServerAddr() != ":9090" {
		t.Errorf("expected addr :9090, got %s", cfg.ServerAddr())
	}
	if cfg.MetricsNamespace() != "jobs" {
		t.Errorf("expected namespace jobs, got %s", cfg.MetricsNamespace())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config: %v", err)
	}
}

func TestLoadFileJSON(t *testing.T) {
	content := `{
  "pool": {
    "workers": 2
  },
  "log": {
    "level": "warn"
  },
  "bench": {
    "preset": "serial"
  }
}`
	cfg, err := LoadFile(writeTemp(t, "config.json", content))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Pool.Workers != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.Pool.Workers)
	}
	level, err := cfg.LogLevel()
	if err != nil {
		t.Fatalf("unexpected log level error: %v", err)
	}
	if level != logger.LevelWarn {
		t.Errorf("expected WARN, got %s", level)
	}
	if cfg.ServerAddr() != DefaultAddr {
		t.Errorf("expected default addr, got %s", cfg.ServerAddr())
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := LoadFile("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadFileUnsupportedFormat(t *testing.T) {
	_, err := LoadFile(writeTemp(t, "config.txt", "test"))
	if err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestLoadFileInvalidYAML(t *testing.T) {
	_, err := LoadFile(writeTemp(t, "config.yml", "pool: [unclosed"))
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestToPoolConfig(t *testing.T) {
	cfg := &FileConfig{Pool: PoolConfig{Workers: 6, ContainFaults: true}}

	pc := cfg.ToPoolConfig()
	if pc.Workers != 6 {
		t.Errorf("expected 6 workers, got %d", pc.Workers)
	}
	if !pc.ContainFaults {
		t.Error("expected ContainFaults to be set")
	}
}

func TestToPoolConfigDefaultsToCPUCount(t *testing.T) {
	cfg := &FileConfig{}

	pc := cfg.ToPoolConfig()
	if pc.Workers != runtime.NumCPU() {
		t.Errorf("expected %d workers, got %d", runtime.NumCPU(), pc.Workers)
	}
}

func TestToBenchConfig(t *testing.T) {
	cfg := &FileConfig{
		Pool: PoolConfig{Workers: 16, ContainFaults: true},
		Bench: BenchConfig{
			Name:        "custom",
			Preset:      "wide",
			Submitters:  2,
			Jobs:        300,
			JobDuration: "5ms",
			FaultEvery:  7,
		},
	}

	bc, err := cfg.ToBenchConfig()
	if err != nil {
		t.Fatalf("failed to convert: %v", err)
	}

	if bc.Name != "custom" {
		t.Errorf("expected name custom, got %s", bc.Name)
	}
	if bc.Description == "" {
		t.Error("expected description from preset")
	}
	if bc.Workers != 16 {
		t.Errorf("expected 16 workers, got %d", bc.Workers)
	}
	if bc.Submitters != 2 {
		t.Errorf("expected 2 submitters, got %d", bc.Submitters)
	}
	if bc.Jobs != 300 {
		t.Errorf("expected 300 jobs, got %d", bc.Jobs)
	}
	if bc.JobDuration != 5*time.Millisecond {
		t.Errorf("expected 5ms, got %v", bc.JobDuration)
	}
	if bc.FaultEvery != 7 || !bc.ContainFaults {
		t.Errorf("expected contained faults every 7, got %d/%v", bc.FaultEvery, bc.ContainFaults)
	}
	if err := bc.Validate(); err != nil {
		t.Errorf("expected valid bench config: %v", err)
	}
}

func TestToBenchConfigInvalidDuration(t *testing.T) {
	cfg := &FileConfig{Bench: BenchConfig{JobDuration: "soon"}}

	if _, err := cfg.ToBenchConfig(); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestToBenchConfigUnknownPreset(t *testing.T) {
	cfg := &FileConfig{Bench: BenchConfig{Preset: "nope"}}

	if _, err := cfg.ToBenchConfig(); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     FileConfig
		wantErr bool
	}{
		{"empty", FileConfig{}, false},
		{"negative workers", FileConfig{Pool: PoolConfig{Workers: -1}}, true},
		{"bad level", FileConfig{Log: LogConfig{Level: "loud"}}, true},
		{"unknown preset", FileConfig{Bench: BenchConfig{Preset: "nope"}}, true},
		{"negative submitters", FileConfig{Bench: BenchConfig{Submitters: -1}}, true},
		{"negative jobs", FileConfig{Bench: BenchConfig{Jobs: -1}}, true},
		{"negative fault_every", FileConfig{Bench: BenchConfig{FaultEvery: -1}}, true},
		{"uncontained faults", FileConfig{Bench: BenchConfig{FaultEvery: 3}}, true},
		{"contained faults", FileConfig{Pool: PoolConfig{ContainFaults: true}, Bench: BenchConfig{FaultEvery: 3}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
