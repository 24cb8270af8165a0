// Package app は設定から各コンポーネントを組み立てる。
// サービス本体と管理CLIの両方から使う。
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nao1215/pushrules/internal/accountdata"
	"github.com/nao1215/pushrules/internal/pusher"
	"github.com/nao1215/pushrules/internal/ruleengine"
	"github.com/nao1215/pushrules/pkg/config"
	"github.com/nao1215/pushrules/pkg/event"
	"github.com/nao1215/pushrules/pkg/httpclient"
)

// App は組み立て済みのコンポーネント。
type App struct {
	// Engine はプッシュルールエンジン。
	Engine *ruleengine.Engine
	// Store はルールセットドキュメントのストア。
	Store accountdata.Store
	// Pushers はプッシャーの登録先。
	Pushers pusher.Registry

	db *sql.DB
	nc *nats.Conn
}

// Open は設定に従ってストア、イベント発行先、プッシャーレジストリ、エンジンを組み立てる。
// NATS_URLが設定されていればルールセットはJetStream KVに保存し、変更通知をNATSに発行する。
// regがnilならメトリクスは登録しない。
func Open(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (_ *App, err error) {
	a := &App{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.db, err = accountdata.OpenSQLite(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	var publisher event.Publisher = event.NopPublisher{}
	if cfg.NATSURL != "" {
		a.nc, err = nats.Connect(cfg.NATSURL, nats.Name("pushrules"))
		if err != nil {
			return nil, fmt.Errorf("NATSへの接続に失敗: %w", err)
		}
		js, err := jetstream.New(a.nc)
		if err != nil {
			return nil, fmt.Errorf("JetStreamの初期化に失敗: %w", err)
		}
		a.Store, err = accountdata.NewKVStore(ctx, js, cfg.NATSKVBucket)
		if err != nil {
			return nil, err
		}
		publisher = event.NewNATSPublisher(a.nc, cfg.EventSubjectPrefix)
		log.Printf("[App] ルールセットをNATS KV %q に保存します", cfg.NATSKVBucket)
	} else {
		a.Store, err = accountdata.NewSQLiteStore(ctx, a.db)
		if err != nil {
			return nil, err
		}
		log.Printf("[App] ルールセットをSQLite %s に保存します", cfg.DatabasePath)
	}

	var registry pusher.Registry
	if cfg.PusherRegistryURL != "" {
		var opts []httpclient.Option
		if cfg.PusherRegistryToken != "" {
			opts = append(opts, httpclient.WithBearerToken(cfg.PusherRegistryToken))
		}
		registry = pusher.NewRemoteRegistry(httpclient.New(cfg.PusherRegistryURL, opts...))
		log.Printf("[App] プッシャーを %s に委譲します", cfg.PusherRegistryURL)
	} else {
		registry, err = pusher.NewSQLiteRegistry(ctx, a.db)
		if err != nil {
			return nil, err
		}
	}
	a.Pushers = pusher.WithEvents(registry, publisher)

	opts := []ruleengine.Option{ruleengine.WithPublisher(publisher)}
	if reg != nil {
		opts = append(opts, ruleengine.WithRegisterer(reg))
	}
	a.Engine = ruleengine.New(a.Store, opts...)
	return a, nil
}

// Close は接続を閉じる。
func (a *App) Close() {
	if a.nc != nil {
		if err := a.nc.Drain(); err != nil {
			log.Printf("[App] NATS接続のドレインに失敗: %v", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Printf("[App] データベースのクローズに失敗: %v", err)
		}
	}
}
