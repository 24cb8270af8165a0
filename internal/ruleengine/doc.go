// Package ruleengine はプッシュルールに対する操作（取得・作成・削除・アクション/有効状態の変更）を提供する。
//
// すべての操作は リクエストごとに ドキュメント取得 → デコード → 読み取りまたは変更 →
// エンコード → 書き込み の1往復で完結し、エンジン自身は状態を持たない。
//
// 同一ユーザーへの変更操作はユーザー単位のロックで直列化し、さらに書き込み時に
// リビジョンを比較することで、別プロセスからの書き込みを上書きしないようにしている。
package ruleengine
