// Package cli はプッシュルールサービスの管理CLIを提供する。
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/pushrules/internal/app"
	"github.com/nao1215/pushrules/pkg/config"
)

// RootOptions はすべてのサブコマンドに共通するフラグ。
type RootOptions struct {
	// DatabasePath はDATABASE_PATHを上書きする。
	DatabasePath string
	// NATSURL はNATS_URLを上書きする。
	NATSURL string
}

// NewRootCommand は管理CLIのルートコマンドを生成する。
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "pushrulesctl",
		Short: "プッシュルールサービスの管理ツール",
		Long: `プッシュルールサービスのストアを直接操作する管理ツール。

設定はサービスと同じ環境変数（DATABASE_PATH, NATS_URL など）から読み込む。`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.DatabasePath, "db", "", "SQLiteファイルのパス（DATABASE_PATHより優先）")
	cmd.PersistentFlags().StringVar(&opts.NATSURL, "nats-url", "", "NATSのURL（NATS_URLより優先）")

	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewSetEnabledCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

// loadConfig は環境変数を読み込み、フラグで上書きした設定を返す。
// 管理CLIはトークンを検証しないため Validate は行わない。
func (o *RootOptions) loadConfig() (*config.Config, error) {
	var cfg config.Config
	if err := config.ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if o.DatabasePath != "" {
		cfg.DatabasePath = o.DatabasePath
	}
	if o.NATSURL != "" {
		cfg.NATSURL = o.NATSURL
	}
	return &cfg, nil
}

// openApp は設定からコンポーネントを組み立てる。
func (o *RootOptions) openApp(ctx context.Context) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.Open(ctx, cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("ストアを開けません: %w", err)
	}
	return a, nil
}
