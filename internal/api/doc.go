// Package api はワーカープールを HTTP で操作・観測するサーバーを提供する。
//
// # エンドポイント
//
//   - GET  /api/status   プールの状態（ワーカー数、稼働数、キュー長、停止シグナル数）
//   - GET  /api/metrics  metrics.Snapshot の JSON
//   - POST /api/jobs     ?count=N&sleep=50ms の待機ジョブを投入
//   - GET  /metrics      Prometheus 形式のメトリクス
//   - /ws                イベントと毎秒のステータスを WebSocket で配信
//
// サーバーはプールを所有しない。Serve が戻った後のプールの Close は呼び出し側が行う。
package api
