// Package config は環境変数からサービスの設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config はプッシュルールサービスの設定。
type Config struct {
	// Port はHTTPサーバーの待ち受けポート。
	Port string `env:"PORT" envDefault:"8080"`
	// DatabasePath はSQLiteファイルのパス。NATSのKVを使う場合もプッシャーの保存に使う。
	DatabasePath string `env:"DATABASE_PATH" envDefault:"pushrules.db"`
	// JWTSecret はアクセストークンの署名検証に使う共有鍵。
	JWTSecret string `env:"JWT_SECRET"`
	// NATSURL が設定されていればルールセットをJetStream KVに保存し、変更通知を発行する。
	NATSURL string `env:"NATS_URL"`
	// NATSKVBucket はルールセットを保存するKVバケット名。
	NATSKVBucket string `env:"NATS_KV_BUCKET" envDefault:"account_data"`
	// EventSubjectPrefix は変更通知のサブジェクト接頭辞。
	EventSubjectPrefix string `env:"EVENT_SUBJECT_PREFIX" envDefault:"pushrules.events"`
	// PusherRegistryURL が設定されていればプッシャーを外部レジストリに委譲する。
	PusherRegistryURL string `env:"PUSHER_REGISTRY_URL"`
	// PusherRegistryToken は外部レジストリ呼び出し時のBearerトークン。
	PusherRegistryToken string `env:"PUSHER_REGISTRY_TOKEN"`
	// CORSOrigins は許可するオリジンの一覧。
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	// ShutdownTimeout はグレースフルシャットダウンの待ち時間。
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// ParseEnv は環境変数を target に読み込む。
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load は環境変数から Config を読み込んで検証する。
func Load() (*Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate は設定値の組み合わせを検証する。
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRETが設定されていません")
	}
	if c.NATSURL != "" && c.NATSKVBucket == "" {
		return errors.New("NATS_URLを使う場合はNATS_KV_BUCKETが必要です")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUTは正の値である必要があります: %s", c.ShutdownTimeout)
	}
	return nil
}
