// Package accountdata はユーザーごとのアカウントデータドキュメントを保存するストアを提供する。
//
// ドキュメントは (ユーザーID, データ種別) ごとに1つのJSONとして丸ごと読み書きされる。
// 部分更新はできない代わりに、リビジョンを使った比較交換（CAS）で
// 古い読み取りに基づく書き込みを検出できる。
//
// 実装:
//   - SQLiteStore: modernc.org/sqlite を使うローカル実装
//   - KVStore: NATS JetStream KeyValue を使う実装
package accountdata
