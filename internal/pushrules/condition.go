package pushrules

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ConditionKind は条件の種類を表す。
// 未知の条件はどのイベントにもマッチしない扱いになるが、ここでは値として保持するだけ。
type ConditionKind string

const (
	UnknownCondition                      ConditionKind = ""
	EventMatchCondition                   ConditionKind = "event_match"
	EventPropertyIsCondition              ConditionKind = "event_property_is"
	EventPropertyContainsCondition        ConditionKind = "event_property_contains"
	ContainsDisplayNameCondition          ConditionKind = "contains_display_name"
	RoomMemberCountCondition              ConditionKind = "room_member_count"
	SenderNotificationPermissionCondition ConditionKind = "sender_notification_permission"
)

// Condition はoverride / underride ルールのマッチ条件。
//
// デコードした条件は受け取ったJSONをそのまま書き戻す。空文字のpatternや
// nullのvalueもクライアントが送った形のまま残る。
type Condition struct {
	Kind    ConditionKind // 必須。
	Key     string        // event_match, event_property_* と sender_notification_permission で必須。
	Pattern string        // event_match で必須。
	Is      string        // room_member_count で必須。
	Value   any           // event_property_* で必須。

	// raw はデコード元のJSON。
	raw json.RawMessage
}

// conditionJSON は組み立てた条件のJSON表現。種別ごとの必須フィールドは空でも出力する。
type conditionJSON struct {
	Kind    ConditionKind `json:"kind"`
	Key     *string       `json:"key,omitempty"`
	Pattern *string       `json:"pattern,omitempty"`
	Is      *string       `json:"is,omitempty"`
	Value   *any          `json:"value,omitempty"`
}

// MarshalJSON は条件をJSONにエンコードする。
func (c *Condition) MarshalJSON() ([]byte, error) {
	if c.raw != nil {
		return c.raw, nil
	}

	w := conditionJSON{Kind: c.Kind}
	if c.Key != "" {
		w.Key = &c.Key
	}
	if c.Pattern != "" {
		w.Pattern = &c.Pattern
	}
	if c.Is != "" {
		w.Is = &c.Is
	}
	if c.Value != nil {
		w.Value = &c.Value
	}

	switch c.Kind {
	case EventMatchCondition:
		w.Key, w.Pattern = &c.Key, &c.Pattern
	case EventPropertyIsCondition, EventPropertyContainsCondition:
		w.Key, w.Value = &c.Key, &c.Value
	case RoomMemberCountCondition:
		w.Is = &c.Is
	case SenderNotificationPermissionCondition:
		w.Key = &c.Key
	}
	return json.Marshal(w)
}

// UnmarshalJSON はJSONから条件をデコードし、元の表現を保持する。
func (c *Condition) UnmarshalJSON(bs []byte) error {
	bs = bytes.TrimSpace(bs)
	if !bytes.HasPrefix(bs, []byte("{")) {
		return fmt.Errorf("条件の形式が不正です: %s", string(bs))
	}

	var w struct {
		Kind    ConditionKind `json:"kind"`
		Key     string        `json:"key"`
		Pattern string        `json:"pattern"`
		Is      string        `json:"is"`
		Value   any           `json:"value"`
	}
	if err := json.Unmarshal(bs, &w); err != nil {
		return err
	}

	*c = Condition{
		Kind:    w.Kind,
		Key:     w.Key,
		Pattern: w.Pattern,
		Is:      w.Is,
		Value:   w.Value,
		raw:     append(json.RawMessage(nil), bs...),
	}
	return nil
}

// CloneConditions は条件列のコピーを返す。
func CloneConditions(conds []*Condition) []*Condition {
	out := make([]*Condition, 0, len(conds))
	for _, c := range conds {
		if c == nil {
			continue
		}
		cc := *c
		if c.raw != nil {
			cc.raw = append(json.RawMessage(nil), c.raw...)
		}
		out = append(out, &cc)
	}
	return out
}
