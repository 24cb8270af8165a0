package pusher

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/nao1215/pushrules/pkg/migration"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteRegistry はSQLiteに保存するプッシャーレジストリ。
type SQLiteRegistry struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// NewSQLiteRegistry はマイグレーションを適用してレジストリを生成する。
// dbはアカウントデータストアと共有してよい。
func NewSQLiteRegistry(ctx context.Context, db *sql.DB) (*SQLiteRegistry, error) {
	if err := migration.Run(ctx, db, "pusher", migrations, "migrations"); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return &SQLiteRegistry{db: db}, nil
}

// GetPushers はユーザーのプッシャーを登録順に返す。
func (r *SQLiteRegistry) GetPushers(ctx context.Context, userID string) ([]Pusher, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT pushkey, kind, app_id, app_display_name, device_display_name, profile_tag, lang, data
		FROM pushers
		WHERE user_id = ?
		ORDER BY created_at, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("プッシャー一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	pushers := []Pusher{}
	for rows.Next() {
		var (
			p    Pusher
			data string
		)
		if err := rows.Scan(&p.PushKey, &p.Kind, &p.AppID, &p.AppDisplayName,
			&p.DeviceDisplayName, &p.ProfileTag, &p.Lang, &data); err != nil {
			return nil, fmt.Errorf("プッシャーの読み取りに失敗: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &p.Data); err != nil {
			return nil, fmt.Errorf("プッシャー %s/%s のdataが不正です: %w", p.AppID, p.PushKey, err)
		}
		pushers = append(pushers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("プッシャー一覧の取得に失敗: %w", err)
	}
	return pushers, nil
}

// SetPusher はプッシャーを登録・更新・削除する。
// 存在しないプッシャーの削除はエラーにならない。
func (r *SQLiteRegistry) SetPusher(ctx context.Context, userID string, req SetRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	if req.Delete() {
		if _, err := r.db.ExecContext(ctx,
			"DELETE FROM pushers WHERE user_id = ? AND app_id = ? AND pushkey = ?",
			userID, req.AppID, req.PushKey); err != nil {
			return fmt.Errorf("プッシャーの削除に失敗: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(req.Data)
	if err != nil {
		return fmt.Errorf("プッシャーのdataのシリアライズに失敗: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if !req.Append {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM pushers WHERE app_id = ? AND pushkey = ? AND user_id != ?",
			req.AppID, req.PushKey, userID); err != nil {
			return fmt.Errorf("他ユーザーのプッシャーの削除に失敗: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO pushers (user_id, app_id, pushkey, kind, app_display_name, device_display_name, profile_tag, lang, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, app_id, pushkey) DO UPDATE SET
			kind = excluded.kind,
			app_display_name = excluded.app_display_name,
			device_display_name = excluded.device_display_name,
			profile_tag = excluded.profile_tag,
			lang = excluded.lang,
			data = excluded.data,
			updated_at = datetime('now')`,
		userID, req.AppID, req.PushKey, req.Kind, req.AppDisplayName,
		req.DeviceDisplayName, req.ProfileTag, req.Lang, string(data)); err != nil {
		return fmt.Errorf("プッシャーの保存に失敗: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("コミットに失敗: %w", err)
	}
	return nil
}
