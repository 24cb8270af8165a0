package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/nao1215/pushrules/pkg/event"
)

// NewWatchCommand はNATSに発行される変更通知を表示するコマンドを生成する。
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "ルールセットとプッシャーの変更通知を表示する",
		Long: `EVENT_SUBJECT_PREFIX 以下に発行される変更通知を購読し、1件1行で表示する。

NATS_URL（または --nats-url）が必要。--count を指定するとその件数で終了する。`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.NATSURL == "" {
				return errors.New("NATS_URLが設定されていません")
			}

			nc, err := nats.Connect(cfg.NATSURL, nats.Name("pushrulesctl"))
			if err != nil {
				return fmt.Errorf("NATSへの接続に失敗: %w", err)
			}
			defer nc.Close()

			msgs := make(chan *nats.Msg, 64)
			sub, err := nc.ChanSubscribe(cfg.EventSubjectPrefix+".>", msgs)
			if err != nil {
				return fmt.Errorf("購読に失敗: %w", err)
			}
			defer func() { _ = sub.Unsubscribe() }()

			ctx := cmd.Context()
			for seen := 0; count <= 0 || seen < count; {
				select {
				case <-ctx.Done():
					return nil
				case msg := <-msgs:
					if printEvent(cmd.OutOrStdout(), cmd.ErrOrStderr(), msg.Data) {
						seen++
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 0, "表示する件数（0なら無制限）")
	return cmd
}

// printEvent はペイロードを1行で書き出す。解釈できないものはerrに書いてfalseを返す。
func printEvent(out, errOut io.Writer, payload []byte) bool {
	ev, err := event.Parse(payload)
	if err == nil {
		var line string
		if line, err = event.Summary(ev); err == nil {
			fmt.Fprintf(out, "%s %s\n", ev.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), line)
			return true
		}
	}
	fmt.Fprintf(errOut, "イベントを解釈できません: %v\n", err)
	return false
}
