package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/pushrules/pkg/middleware"
)

// NewTokenCommand は動作確認用のアクセストークンを発行するコマンドを生成する。
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		deviceID string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "JWT_SECRETで署名したアクセストークンを発行する",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRETが設定されていません")
			}

			token, err := middleware.GenerateJWT(cfg.JWTSecret, args[0], deviceID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&deviceID, "device", "", "トークンに含めるデバイスID")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "トークンの有効期間")
	return cmd
}
