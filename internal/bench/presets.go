package bench

import "time"

// QuickBench は短時間の動作確認用の設定を返す
func QuickBench() Config {
	return Config{
		Name:        "quick",
		Description: "Quick check with a small pool",
		Workers:     4,
		Submitters:  4,
		Jobs:        1000,
		JobDuration: 100 * time.Microsecond,
	}
}

// SerialBench はワーカー1つの設定を返す
// 投入順と実行順が一致する
func SerialBench() Config {
	return Config{
		Name:        "serial",
		Description: "Single worker, jobs run in submission order",
		Workers:     1,
		Submitters:  1,
		Jobs:        200,
		JobDuration: 100 * time.Microsecond,
	}
}

// WideBench は多数のワーカーで待ち時間の長いジョブを流す設定を返す
func WideBench() Config {
	return Config{
		Name:        "wide",
		Description: "64 workers with sleeping jobs",
		Workers:     64,
		Submitters:  8,
		Jobs:        5000,
		JobDuration: 2 * time.Millisecond,
	}
}

// BurstBench は処理時間ゼロのジョブを大量に投入する設定を返す
// キューと受信ロックの負荷を見る
func BurstBench() Config {
	return Config{
		Name:        "burst",
		Description: "Many empty jobs from many submitters",
		Workers:     8,
		Submitters:  32,
		Jobs:        100000,
		JobDuration: 0,
	}
}

// FaultyBench は一定間隔でジョブを panic させる設定を返す
func FaultyBench() Config {
	return Config{
		Name:          "faulty",
		Description:   "Every 10th job panics, faults are contained",
		Workers:       4,
		Submitters:    4,
		Jobs:          1000,
		JobDuration:   100 * time.Microsecond,
		FaultEvery:    10,
		ContainFaults: true,
	}
}

var presets = map[string]func() Config{
	"quick":  QuickBench,
	"serial": SerialBench,
	"wide":   WideBench,
	"burst":  BurstBench,
	"faulty": FaultyBench,
}

// GetPreset は名前からプリセットを取得する
func GetPreset(name string) (Config, bool) {
	if fn, ok := presets[name]; ok {
		return fn(), true
	}
	return Config{}, false
}

// ListPresets は利用可能なプリセット名を返す
func ListPresets() []string {
	return []string{"quick", "serial", "wide", "burst", "faulty"}
}
