package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrMalformedEvent は受信したペイロードがイベントとして解釈できないことを表す。
var ErrMalformedEvent = errors.New("不正なイベント")

// NewPushRulesUpdated はルールセットの書き込みを知らせるイベントを生成する。
// revisionは書き込み後のドキュメントのリビジョン。
func NewPushRulesUpdated(revision uint64, data PushRulesUpdatedData) (*Event, error) {
	return newEvent(data.UserID, AggregateTypeAccountData, TypePushRulesUpdated, revision, data)
}

// NewPusherChanged はプッシャーの変更を知らせるイベントを生成する。
func NewPusherChanged(data PusherChangedData) (*Event, error) {
	return newEvent(data.UserID, AggregateTypePusher, TypePusherChanged, 0, data)
}

func newEvent(userID string, aggregateType AggregateType, eventType Type, version uint64, data any) (*Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%sのデータのシリアライズに失敗: %w", eventType, err)
	}
	return &Event{
		ID:            uuid.NewString(),
		AggregateID:   userID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          payload,
		Version:       version,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// Parse は発行されたペイロードをイベントに戻す。
// id と event_type が無いものは ErrMalformedEvent を返す。
func Parse(payload []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if e.ID == "" || e.EventType == "" {
		return nil, fmt.Errorf("%w: idまたはevent_typeがありません", ErrMalformedEvent)
	}
	return &e, nil
}

// DecodeData はイベントのDataフィールドを指定された型にデシリアライズする。
func DecodeData[T any](e *Event) (*T, error) {
	var data T
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: %sのデータを復元できません: %v", ErrMalformedEvent, e.EventType, err)
	}
	return &data, nil
}

// Summary はイベントを1行の説明にする。未知の種類はデータをそのまま出す。
func Summary(e *Event) (string, error) {
	switch e.EventType {
	case TypePushRulesUpdated:
		d, err := DecodeData[PushRulesUpdatedData](e)
		if err != nil {
			return "", err
		}
		if d.Kind == "" {
			return fmt.Sprintf("%s rev=%d %s %s", e.EventType, e.Version, d.UserID, d.Operation), nil
		}
		return fmt.Sprintf("%s rev=%d %s %s %s/%s", e.EventType, e.Version, d.UserID, d.Operation, d.Kind, d.RuleID), nil
	case TypePusherChanged:
		d, err := DecodeData[PusherChangedData](e)
		if err != nil {
			return "", err
		}
		action := "set"
		if d.Removed {
			action = "removed"
		}
		return fmt.Sprintf("%s %s %s/%s %s", e.EventType, d.UserID, d.AppID, d.PushKey, action), nil
	default:
		return fmt.Sprintf("%s %s %s", e.EventType, e.AggregateID, string(e.Data)), nil
	}
}
