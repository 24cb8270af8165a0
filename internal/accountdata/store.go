package accountdata

import (
	"context"
	"errors"
)

// DataTypePushRules はプッシュルールドキュメントのデータ種別。
const DataTypePushRules = "m.push_rules"

var (
	// ErrNotFound はドキュメントが存在しないことを表す。
	ErrNotFound = errors.New("アカウントデータが見つかりません")
	// ErrConflict は期待したリビジョンと保存済みのリビジョンが一致しないことを表す。
	ErrConflict = errors.New("アカウントデータが他の書き込みで更新されています")
)

// Document は保存済みドキュメントとそのリビジョン。
type Document struct {
	// Content はドキュメント本体（JSON）。
	Content []byte
	// Revision は読み取った時点のリビジョン。1以上。
	Revision uint64
}

// Store はアカウントデータのドキュメントストア。
type Store interface {
	// Get はドキュメントを取得する。存在しない場合は ErrNotFound を返す。
	Get(ctx context.Context, userID, dataType string) (*Document, error)
	// Update はドキュメントを丸ごと書き込み、新しいリビジョンを返す。
	// revisionが0の場合は新規作成で、既に存在すれば ErrConflict を返す。
	// それ以外は保存済みのリビジョンと一致した場合のみ書き込み、不一致なら ErrConflict を返す。
	Update(ctx context.Context, userID, dataType string, content []byte, revision uint64) (uint64, error)
}
