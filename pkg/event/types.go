// Package event はプッシュルールサービスが発行する変更通知イベントを定義する。
//
// ルールセットやプッシャーが書き換わったことを同期サービスなど
// 他のコンポーネントに知らせるために使う。イベントは書き込み成功後にのみ発行される。
package event

import (
	"encoding/json"
	"time"
)

// AggregateType はイベントの対象となるエンティティの種類を表す。
type AggregateType string

const (
	// AggregateTypeAccountData はアカウントデータドキュメントを表す。
	AggregateTypeAccountData AggregateType = "AccountData"
	// AggregateTypePusher はプッシャー登録を表す。
	AggregateTypePusher AggregateType = "Pusher"
)

// Type はイベントの種類を表す。
type Type string

const (
	// TypePushRulesUpdated はプッシュルールドキュメントが書き込まれたことを表す。
	TypePushRulesUpdated Type = "PushRulesUpdated"
	// TypePusherChanged はプッシャーが追加・更新・削除されたことを表す。
	TypePusherChanged Type = "PusherChanged"
)

// Event は変更通知イベント。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// AggregateID は対象エンティティの識別子（ユーザーID）。
	AggregateID string `json:"aggregate_id"`
	// AggregateType は対象エンティティの種類。
	AggregateType AggregateType `json:"aggregate_type"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// Version は書き込み後のドキュメントのリビジョン。プッシャーでは0。
	Version uint64 `json:"version"`
	// CreatedAt はイベントが作成された日時。
	CreatedAt time.Time `json:"created_at"`
}

// PushRulesUpdatedData はPushRulesUpdatedイベントのデータ。
type PushRulesUpdatedData struct {
	// UserID はルールセットの所有ユーザーID。
	UserID string `json:"user_id"`
	// Operation は書き込みを行った操作名（put_rule, set_enabled など）。
	Operation string `json:"operation"`
	// Kind は対象ルールの種別。ルールセット全体の作成では空。
	Kind string `json:"kind,omitempty"`
	// RuleID は対象ルールのID。ルールセット全体の作成では空。
	RuleID string `json:"rule_id,omitempty"`
}

// PusherChangedData はPusherChangedイベントのデータ。
type PusherChangedData struct {
	// UserID はプッシャーの所有ユーザーID。
	UserID string `json:"user_id"`
	// AppID はプッシャーのアプリID。
	AppID string `json:"app_id"`
	// PushKey はプッシャーのプッシュキー。
	PushKey string `json:"pushkey"`
	// Removed は削除された場合にtrue。
	Removed bool `json:"removed"`
}
