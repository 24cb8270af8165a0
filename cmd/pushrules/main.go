// プッシュルールサービスのエントリポイント。
// ユーザーごとのプッシュルールとプッシャーを管理するMatrixクライアントAPIを提供する。
package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nao1215/pushrules/internal/app"
	"github.com/nao1215/pushrules/internal/pushserver"
	"github.com/nao1215/pushrules/pkg/config"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("プッシュルールサービスの起動に失敗: %v", err)
	}
	log.Printf("プッシュルールサービスを停止しました")
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := app.Open(ctx, cfg, reg)
	if err != nil {
		return fmt.Errorf("初期化に失敗: %w", err)
	}
	defer a.Close()

	server := pushserver.NewServer(pushserver.Config{
		Port:            cfg.Port,
		JWTSecret:       cfg.JWTSecret,
		CORSOrigins:     cfg.CORSOrigins,
		Gatherer:        reg,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, a.Engine, a.Pushers)

	log.Printf("プッシュルールサービスを起動します: :%s", cfg.Port)
	return server.Run(ctx)
}
