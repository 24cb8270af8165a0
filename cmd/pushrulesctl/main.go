// プッシュルールサービスの管理CLIのエントリポイント。
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/nao1215/pushrules/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
