// Package bench はワーカープールの負荷計測を提供する。
//
// Engine は設定どおりのプールを作り、複数のゴルーチンからジョブを投入し、
// プールを停止して結果を集計する。
//
// # 機能
//
// - 投入ゴルーチン数・ジョブ数・処理時間を指定した計測
// - 定義済みプリセット
// - 障害注入（ContainFaults と併用）
// - 実行結果のレポート生成
//
// # プリセット
//
// - quick: 短時間の動作確認
// - serial: ワーカー1つ
// - wide: 64ワーカー
// - burst: 空ジョブの大量投入
// - faulty: 10件に1件 panic
//
// # 使用例
//
//	engine := bench.New(bench.QuickBench())
//	result, err := engine.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Report())
package bench
