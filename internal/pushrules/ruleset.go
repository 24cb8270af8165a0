package pushrules

import (
	"encoding/json"
	"fmt"
)

// RuleSet はユーザーのプッシュルール全体。フィールドは優先順位の高い順に並ぶ。
type RuleSet struct {
	Override  *RuleList
	Content   *RuleList
	Room      *RuleList
	Sender    *RuleList
	Underride *RuleList
}

// NewRuleSet は空のルールセットを生成する。
func NewRuleSet() *RuleSet {
	return &RuleSet{
		Override:  NewRuleList(OverrideKind),
		Content:   NewRuleList(ContentKind),
		Room:      NewRuleList(RoomKind),
		Sender:    NewRuleList(SenderKind),
		Underride: NewRuleList(UnderrideKind),
	}
}

// List は種別のルールリストを返す。未サポートの種別ではnilを返す。
func (rs *RuleSet) List(kind Kind) *RuleList {
	switch kind {
	case OverrideKind:
		return rs.Override
	case ContentKind:
		return rs.Content
	case RoomKind:
		return rs.Room
	case SenderKind:
		return rs.Sender
	case UnderrideKind:
		return rs.Underride
	default:
		return nil
	}
}

// Find は種別とrule_idでルールを探す。見つからないことはエラーではない。
func (rs *RuleSet) Find(kind Kind, ruleID string) (*Rule, bool) {
	return rs.List(kind).Find(ruleID)
}

// Upsert は種別のリストにルールを追加または同じ位置で置き換える。
// 未サポートの種別では何もせずfalseを返す。
func (rs *RuleSet) Upsert(kind Kind, r *Rule) bool {
	l := rs.List(kind)
	if l == nil {
		return false
	}
	l.Upsert(r)
	return true
}

// Remove は種別のリストからrule_idのルールを削除し、削除したかどうかを返す。
func (rs *RuleSet) Remove(kind Kind, ruleID string) bool {
	return rs.List(kind).Remove(ruleID)
}

// ruleSetJSON はルールセットのJSON表現。
type ruleSetJSON struct {
	Override  *RuleList `json:"override"`
	Content   *RuleList `json:"content"`
	Room      *RuleList `json:"room"`
	Sender    *RuleList `json:"sender"`
	Underride *RuleList `json:"underride"`
}

// MarshalJSON は5種別すべてを配列として出力する。
func (rs *RuleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(ruleSetJSON{
		Override:  rs.Override,
		Content:   rs.Content,
		Room:      rs.Room,
		Sender:    rs.Sender,
		Underride: rs.Underride,
	})
}

// UnmarshalJSON はルールセットをデコードする。欠けている種別は空として扱う。
// 形式の誤りは ErrCorruptData として返す。
func (rs *RuleSet) UnmarshalJSON(bs []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(bs, &raw); err != nil {
		return fmt.Errorf("%w: ルールセットがオブジェクトではありません: %v", ErrCorruptData, err)
	}
	if raw == nil {
		return fmt.Errorf("%w: ルールセットがnullです", ErrCorruptData)
	}

	decoded := NewRuleSet()
	for _, kind := range Kinds() {
		l, err := decodeRuleList(kind, raw[string(kind)])
		if err != nil {
			return err
		}
		*decoded.slot(kind) = l
	}
	*rs = *decoded
	return nil
}

func (rs *RuleSet) slot(kind Kind) **RuleList {
	switch kind {
	case OverrideKind:
		return &rs.Override
	case ContentKind:
		return &rs.Content
	case RoomKind:
		return &rs.Room
	case SenderKind:
		return &rs.Sender
	default:
		return &rs.Underride
	}
}
