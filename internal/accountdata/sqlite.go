package accountdata

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/nao1215/pushrules/pkg/migration"
)

//go:embed migrations/*.sql
var migrations embed.FS

// OpenSQLite はSQLiteデータベースを開く。
// 書き込みの競合でSQLITE_BUSYにならないよう接続は1本に絞る。
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// SQLiteStore はSQLiteに保存するアカウントデータストア。
type SQLiteStore struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// NewSQLiteStore はマイグレーションを適用してストアを生成する。
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if err := migration.Run(ctx, db, "accountdata", migrations, "migrations"); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Get はドキュメントを取得する。
func (s *SQLiteStore) Get(ctx context.Context, userID, dataType string) (*Document, error) {
	var (
		content  string
		revision int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT content, revision FROM account_data WHERE user_id = ? AND data_type = ?",
		userID, dataType,
	).Scan(&content, &revision)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("アカウントデータの取得に失敗: %w", err)
	}
	return &Document{Content: []byte(content), Revision: uint64(revision)}, nil
}

// Update はリビジョンを比較してドキュメントを書き込む。
func (s *SQLiteStore) Update(ctx context.Context, userID, dataType string, content []byte, revision uint64) (uint64, error) {
	if revision == 0 {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO account_data (user_id, data_type, content, revision)
			VALUES (?, ?, ?, 1)
			ON CONFLICT (user_id, data_type) DO NOTHING`,
			userID, dataType, string(content))
		if err != nil {
			return 0, fmt.Errorf("アカウントデータの作成に失敗: %w", err)
		}
		if err := expectOneRow(res); err != nil {
			return 0, err
		}
		return 1, nil
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE account_data
		SET content = ?, revision = revision + 1, updated_at = datetime('now')
		WHERE user_id = ? AND data_type = ? AND revision = ?`,
		string(content), userID, dataType, int64(revision))
	if err != nil {
		return 0, fmt.Errorf("アカウントデータの更新に失敗: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return 0, err
	}
	return revision + 1, nil
}

// expectOneRow は1行だけ更新されたことを確認し、そうでなければ ErrConflict を返す。
func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新件数の取得に失敗: %w", err)
	}
	if n != 1 {
		return ErrConflict
	}
	return nil
}
