package accountdata

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// KVStore はNATS JetStream KeyValueバケットに保存するアカウントデータストア。
// リビジョンにはKVエントリのリビジョンをそのまま使う。
type KVStore struct {
	// kv はドキュメントを保存するKVバケット。
	kv jetstream.KeyValue
}

// NewKVStore はKVバケットを作成（既存なら取得）してストアを生成する。
func NewKVStore(ctx context.Context, js jetstream.JetStream, bucket string) (*KVStore, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "per-user account data documents",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("KVバケット %q の作成に失敗: %w", bucket, err)
	}
	return &KVStore{kv: kv}, nil
}

// kvKey はKVのキーを組み立てる。ユーザーIDはキーに使えない文字を含むため16進にする。
func kvKey(userID, dataType string) string {
	return hex.EncodeToString([]byte(userID)) + "." + dataType
}

// Get はドキュメントを取得する。
func (s *KVStore) Get(ctx context.Context, userID, dataType string) (*Document, error) {
	entry, err := s.kv.Get(ctx, kvKey(userID, dataType))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("アカウントデータの取得に失敗: %w", err)
	}
	return &Document{Content: entry.Value(), Revision: entry.Revision()}, nil
}

// Update はリビジョンを比較してドキュメントを書き込む。
func (s *KVStore) Update(ctx context.Context, userID, dataType string, content []byte, revision uint64) (uint64, error) {
	key := kvKey(userID, dataType)

	var (
		rev uint64
		err error
	)
	if revision == 0 {
		rev, err = s.kv.Create(ctx, key, content)
	} else {
		rev, err = s.kv.Update(ctx, key, content, revision)
	}
	// 最終シーケンス不一致のAPIエラーは ErrKeyExists と一致する。
	if errors.Is(err, jetstream.ErrKeyExists) {
		return 0, ErrConflict
	}
	if err != nil {
		return 0, fmt.Errorf("アカウントデータの書き込みに失敗: %w", err)
	}
	return rev, nil
}
