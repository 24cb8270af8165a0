package pushrules

import "errors"

var (
	// ErrCorruptData は保存済みドキュメントがルールセットとして解釈できないことを表す。
	// 呼び出し元の誤りではなくデータ整合性の問題。
	ErrCorruptData = errors.New("プッシュルールのデータが破損しています")
	// ErrRuleNotFound は指定したrule_idのルールが存在しないことを表す。
	ErrRuleNotFound = errors.New("プッシュルールが見つかりません")
)
