package pushrules

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ActionKind はアクションの種類。
type ActionKind string

const (
	// UnknownAction は未知のアクション。
	UnknownAction ActionKind = ""
	// NotifyAction は通知を発生させる。
	NotifyAction ActionKind = "notify"
	// DontNotifyAction は通知を発生させない。
	DontNotifyAction ActionKind = "dont_notify"
	// CoalesceAction は通知をまとめる。
	CoalesceAction ActionKind = "coalesce"
	// SetTweakAction は通知の振る舞い（音やハイライト）を調整する。
	SetTweakAction ActionKind = "set_tweak"
)

// TweakKey は set_tweak アクションで調整する項目。
type TweakKey string

const (
	// UnknownTweak は未知の項目。
	UnknownTweak TweakKey = ""
	// SoundTweak は通知音。
	SoundTweak TweakKey = "sound"
	// HighlightTweak はハイライト表示。
	HighlightTweak TweakKey = "highlight"
)

// Action はルールにマッチしたときの通知の振る舞いを表す。
// 文字列形式（"notify" など）と set_tweak オブジェクト形式を扱う。
// それ以外の形のオブジェクトは中身を解釈せずそのまま保持する。
type Action struct {
	Kind  ActionKind
	Tweak TweakKey
	Value any

	// raw はデコード元のオブジェクト形式のJSON。
	raw json.RawMessage
}

// NewAction は文字列形式のアクションを生成する。
func NewAction(kind ActionKind) *Action {
	return &Action{Kind: kind}
}

// NewTweak は set_tweak アクションを生成する。valueがnilの場合はvalueを出力しない。
func NewTweak(key TweakKey, value any) *Action {
	return &Action{Kind: SetTweakAction, Tweak: key, Value: value}
}

// MarshalJSON はアクションをJSONにエンコードする。
func (a *Action) MarshalJSON() ([]byte, error) {
	if a.raw != nil {
		return a.raw, nil
	}

	if a.Kind != SetTweakAction {
		if a.Value != nil {
			return nil, fmt.Errorf("valueを持てるのはset_tweakアクションのみです: kind=%q", a.Kind)
		}
		return json.Marshal(a.Kind)
	}

	obj := map[string]any{string(SetTweakAction): a.Tweak}
	if a.Value != nil {
		obj["value"] = a.Value
	}
	return json.Marshal(obj)
}

// UnmarshalJSON はJSONからアクションをデコードする。
// オブジェクト形式は受け取ったJSONを保持し、エンコード時にそのまま書き戻す。
func (a *Action) UnmarshalJSON(bs []byte) error {
	bs = bytes.TrimSpace(bs)
	if bytes.HasPrefix(bs, []byte(`"`)) {
		*a = Action{}
		return json.Unmarshal(bs, &a.Kind)
	}
	if !bytes.HasPrefix(bs, []byte("{")) {
		return fmt.Errorf("アクションの形式が不正です: %s", string(bs))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(bs, &fields); err != nil {
		return err
	}

	*a = Action{raw: append(json.RawMessage(nil), bs...)}

	rawTweak, ok := fields[string(SetTweakAction)]
	var tweak TweakKey
	if !ok || len(fields) > 2 || json.Unmarshal(rawTweak, &tweak) != nil || tweak == UnknownTweak {
		// 知らない形は解釈せずに保持だけする。
		return nil
	}

	a.Kind = SetTweakAction
	a.Tweak = tweak
	if rawValue, ok := fields["value"]; ok {
		if err := json.Unmarshal(rawValue, &a.Value); err != nil {
			return err
		}
	}
	return nil
}

// clone はアクションのコピーを返す。Valueはスカラー値のみを想定した浅いコピー。
func (a *Action) clone() *Action {
	c := *a
	if a.raw != nil {
		c.raw = append(json.RawMessage(nil), a.raw...)
	}
	return &c
}

// CloneActions はアクション列のコピーを返す。nilの場合は空スライスを返す。
func CloneActions(actions []*Action) []*Action {
	out := make([]*Action, 0, len(actions))
	for _, a := range actions {
		if a == nil {
			continue
		}
		out = append(out, a.clone())
	}
	return out
}
