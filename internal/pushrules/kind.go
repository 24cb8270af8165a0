package pushrules

// Kind はプッシュルールの種別を表す。
// 種別ごとにルールの追加ペイロードの形と優先順位が決まる。
type Kind string

const (
	// UnknownKind は未知の種別を表す。
	UnknownKind Kind = ""
	// OverrideKind は最優先で評価される条件付きルール。
	OverrideKind Kind = "override"
	// ContentKind は本文のglobパターンにマッチするルール。
	ContentKind Kind = "content"
	// RoomKind はルームIDをrule_idとするルール。
	RoomKind Kind = "room"
	// SenderKind は送信者のユーザーIDをrule_idとするルール。
	SenderKind Kind = "sender"
	// UnderrideKind は最後に評価される条件付きルール。
	UnderrideKind Kind = "underride"
)

// Kinds は全種別を優先順位の高い順に返す。
func Kinds() []Kind {
	return []Kind{OverrideKind, ContentKind, RoomKind, SenderKind, UnderrideKind}
}

// Valid は種別がサポート対象かどうかを返す。
func (k Kind) Valid() bool {
	switch k {
	case OverrideKind, ContentKind, RoomKind, SenderKind, UnderrideKind:
		return true
	default:
		return false
	}
}

// conditional はconditionsを持つ種別かどうかを返す。
func (k Kind) conditional() bool {
	return k == OverrideKind || k == UnderrideKind
}

// Scope はルールセットのスコープ。サポートするのは global のみ。
type Scope string

const (
	// UnknownScope は未知のスコープ。
	UnknownScope Scope = ""
	// GlobalScope は唯一サポートされるスコープ。
	GlobalScope Scope = "global"
)

// Valid はスコープがサポート対象かどうかを返す。
func (s Scope) Valid() bool {
	return s == GlobalScope
}
