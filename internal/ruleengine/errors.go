package ruleengine

import (
	"errors"
	"fmt"

	"github.com/nao1215/pushrules/internal/accountdata"
	"github.com/nao1215/pushrules/internal/pushrules"
)

var (
	// ErrInvalidParam は呼び出し元の指定が不正であることを表す。
	ErrInvalidParam = errors.New("パラメータが不正です")
	// ErrNotFound はルールセットドキュメントまたはルールが存在しないことを表す。
	ErrNotFound = errors.New("見つかりません")
	// ErrDefaultRule はサーバー既定のルールを削除・上書きしようとしたことを表す。
	ErrDefaultRule = fmt.Errorf("%w: サーバー既定のルールは削除・上書きできません", ErrInvalidParam)

	// ErrCorruptData は保存済みドキュメントが壊れていることを表す。呼び出し元にそのまま見せてはならない。
	ErrCorruptData = pushrules.ErrCorruptData
	// ErrConflict は他の書き込みと競合したことを表す。
	ErrConflict = accountdata.ErrConflict
)
