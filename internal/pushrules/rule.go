package pushrules

import (
	"encoding/json"
	"fmt"
)

// Rule はプッシュルール1件を表す。
//
// Conditions は override / underride、Pattern は content でのみ意味を持つ。
// room / sender では rule_id 自体がルームIDや送信者IDとして解釈される。
type Rule struct {
	// RuleID は種別内で一意なルールの識別子。
	RuleID string
	// Default はサーバーが用意した既定ルールかどうか。ユーザーが作るルールは常にfalse。
	Default bool
	// Enabled はルールが有効かどうか。
	Enabled bool
	// Actions はマッチ時のアクション列。順序に意味がある。
	Actions []*Action
	// Conditions はoverride / underride のマッチ条件。
	Conditions []*Condition
	// Pattern はcontentルールの本文globパターン。
	Pattern string
}

// Clone はルールの深いコピーを返す。
func (r *Rule) Clone() *Rule {
	c := *r
	c.Actions = CloneActions(r.Actions)
	if r.Conditions != nil {
		c.Conditions = CloneConditions(r.Conditions)
	}
	return &c
}

// ruleJSON はルールのJSON表現（デコード用）。必須フィールドの欠落を検出するためポインタで受ける。
type ruleJSON struct {
	RuleID     *string      `json:"rule_id"`
	Default    *bool        `json:"default"`
	Enabled    *bool        `json:"enabled"`
	Actions    []*Action    `json:"actions"`
	Conditions []*Condition `json:"conditions"`
	Pattern    *string      `json:"pattern"`
}

// simpleRuleJSON はroom / sender ルールのJSON表現。
type simpleRuleJSON struct {
	RuleID  string    `json:"rule_id"`
	Default bool      `json:"default"`
	Enabled bool      `json:"enabled"`
	Actions []*Action `json:"actions"`
}

// conditionalRuleJSON はoverride / underride ルールのJSON表現。
type conditionalRuleJSON struct {
	simpleRuleJSON
	Conditions []*Condition `json:"conditions"`
}

// patternedRuleJSON はcontentルールのJSON表現。
type patternedRuleJSON struct {
	simpleRuleJSON
	Pattern string `json:"pattern"`
}

// encodeRule は種別に応じた形でルールをJSON表現に変換する。
func encodeRule(kind Kind, r *Rule) any {
	base := simpleRuleJSON{
		RuleID:  r.RuleID,
		Default: r.Default,
		Enabled: r.Enabled,
		Actions: r.Actions,
	}
	if base.Actions == nil {
		base.Actions = []*Action{}
	}

	switch {
	case kind.conditional():
		conds := r.Conditions
		if conds == nil {
			conds = []*Condition{}
		}
		return conditionalRuleJSON{simpleRuleJSON: base, Conditions: conds}
	case kind == ContentKind:
		return patternedRuleJSON{simpleRuleJSON: base, Pattern: r.Pattern}
	default:
		return base
	}
}

// MarshalRule は種別に応じた形でルール1件をJSONにエンコードする。
func MarshalRule(kind Kind, r *Rule) ([]byte, error) {
	return json.Marshal(encodeRule(kind, r))
}

// decodeRule はJSON表現を検証してルールに変換する。
func decodeRule(kind Kind, w ruleJSON) (*Rule, error) {
	switch {
	case w.RuleID == nil || *w.RuleID == "":
		return nil, fmt.Errorf("%w: %sルールにrule_idがありません", ErrCorruptData, kind)
	case w.Default == nil:
		return nil, fmt.Errorf("%w: %sルール %q にdefaultがありません", ErrCorruptData, kind, *w.RuleID)
	case w.Enabled == nil:
		return nil, fmt.Errorf("%w: %sルール %q にenabledがありません", ErrCorruptData, kind, *w.RuleID)
	case w.Actions == nil:
		return nil, fmt.Errorf("%w: %sルール %q にactionsがありません", ErrCorruptData, kind, *w.RuleID)
	case kind == ContentKind && w.Pattern == nil:
		return nil, fmt.Errorf("%w: contentルール %q にpatternがありません", ErrCorruptData, *w.RuleID)
	}

	r := &Rule{
		RuleID:  *w.RuleID,
		Default: *w.Default,
		Enabled: *w.Enabled,
		Actions: w.Actions,
	}
	for i, c := range w.Conditions {
		if c == nil || c.Kind == UnknownCondition {
			return nil, fmt.Errorf("%w: %sルール %q の条件[%d]にkindがありません", ErrCorruptData, kind, r.RuleID, i)
		}
	}
	if kind.conditional() {
		r.Conditions = w.Conditions
		if r.Conditions == nil {
			r.Conditions = []*Condition{}
		}
	}
	if kind == ContentKind {
		r.Pattern = *w.Pattern
	}
	return r, nil
}

// RuleList は1種別分のルールの順序付きコレクション。
// 並び順を保持するスライスと、rule_idから位置を引くインデックスを持つ。
type RuleList struct {
	kind  Kind
	rules []*Rule
	index map[string]int
}

// NewRuleList は指定種別のルールリストを生成する。
// 同じrule_idが複数ある場合は後のものが前の位置を置き換える。
func NewRuleList(kind Kind, rules ...*Rule) *RuleList {
	l := &RuleList{kind: kind, index: make(map[string]int, len(rules))}
	for _, r := range rules {
		l.Upsert(r)
	}
	return l
}

// Kind はリストの種別を返す。
func (l *RuleList) Kind() Kind {
	if l == nil {
		return UnknownKind
	}
	return l.kind
}

// Len はルール数を返す。
func (l *RuleList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.rules)
}

// Rules は優先順位順のルール列を返す。返すスライスはコピーだが要素は共有する。
func (l *RuleList) Rules() []*Rule {
	if l == nil {
		return nil
	}
	out := make([]*Rule, len(l.rules))
	copy(out, l.rules)
	return out
}

// IDs は優先順位順のrule_id列を返す。
func (l *RuleList) IDs() []string {
	if l == nil {
		return nil
	}
	ids := make([]string, 0, len(l.rules))
	for _, r := range l.rules {
		ids = append(ids, r.RuleID)
	}
	return ids
}

// Find はrule_idでルールを探す。返すルールはリスト内の実体なので、
// フィールドを書き換えても並び順は変わらない。
func (l *RuleList) Find(ruleID string) (*Rule, bool) {
	if l == nil {
		return nil, false
	}
	i, ok := l.index[ruleID]
	if !ok {
		return nil, false
	}
	return l.rules[i], true
}

// Upsert はルールを追加する。同じrule_idが既にあれば同じ位置で置き換える。
func (l *RuleList) Upsert(r *Rule) {
	if i, ok := l.index[r.RuleID]; ok {
		l.rules[i] = r
		return
	}
	l.index[r.RuleID] = len(l.rules)
	l.rules = append(l.rules, r)
}

// InsertBefore はanchorの直前にルールを置く。同じrule_idが既にあれば移動になる。
func (l *RuleList) InsertBefore(r *Rule, anchor string) error {
	return l.insertRelative(r, anchor, 0)
}

// InsertAfter はanchorの直後にルールを置く。同じrule_idが既にあれば移動になる。
func (l *RuleList) InsertAfter(r *Rule, anchor string) error {
	return l.insertRelative(r, anchor, 1)
}

func (l *RuleList) insertRelative(r *Rule, anchor string, offset int) error {
	if _, ok := l.index[anchor]; !ok || anchor == r.RuleID {
		return fmt.Errorf("%w: %s/%s", ErrRuleNotFound, l.kind, anchor)
	}
	l.Remove(r.RuleID)

	pos := l.index[anchor] + offset
	l.rules = append(l.rules, nil)
	copy(l.rules[pos+1:], l.rules[pos:])
	l.rules[pos] = r
	l.reindex()
	return nil
}

// Remove はrule_idのルールを削除し、削除したかどうかを返す。
func (l *RuleList) Remove(ruleID string) bool {
	if l == nil {
		return false
	}
	i, ok := l.index[ruleID]
	if !ok {
		return false
	}
	l.rules = append(l.rules[:i], l.rules[i+1:]...)
	l.reindex()
	return true
}

func (l *RuleList) reindex() {
	clear(l.index)
	for i, r := range l.rules {
		l.index[r.RuleID] = i
	}
}

// MarshalJSON は種別に応じた形のJSON配列にエンコードする。
func (l *RuleList) MarshalJSON() ([]byte, error) {
	out := make([]any, 0, l.Len())
	if l != nil {
		for _, r := range l.rules {
			out = append(out, encodeRule(l.kind, r))
		}
	}
	return json.Marshal(out)
}

// decodeRuleList はJSON配列を種別のルールリストに変換する。
func decodeRuleList(kind Kind, raw json.RawMessage) (*RuleList, error) {
	l := NewRuleList(kind)
	if len(raw) == 0 || string(raw) == "null" {
		return l, nil
	}

	var items []ruleJSON
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %sルールの形式が不正です: %v", ErrCorruptData, kind, err)
	}
	for _, item := range items {
		r, err := decodeRule(kind, item)
		if err != nil {
			return nil, err
		}
		if _, dup := l.index[r.RuleID]; dup {
			return nil, fmt.Errorf("%w: %sルール %q が重複しています", ErrCorruptData, kind, r.RuleID)
		}
		l.Upsert(r)
	}
	return l, nil
}
