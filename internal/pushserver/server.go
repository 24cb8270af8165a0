package pushserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/pushrules/internal/pusher"
	"github.com/nao1215/pushrules/internal/ruleengine"
	"github.com/nao1215/pushrules/pkg/middleware"
)

// Config はサーバーの設定。
type Config struct {
	// Port はリッスンポート。
	Port string
	// JWTSecret はアクセストークンの検証鍵。
	JWTSecret string
	// CORSOrigins は許可するオリジン。
	CORSOrigins []string
	// Gatherer は /metrics で公開するメトリクスの取得元。nilなら既定のレジストリ。
	Gatherer prometheus.Gatherer
	// ShutdownTimeout はグレースフルシャットダウンの待ち時間。
	ShutdownTimeout time.Duration
}

// Server はプッシュルールサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg はサーバーの設定。
	cfg Config
	// engine はプッシュルールの操作を行うエンジン。
	engine *ruleengine.Engine
	// pushers はプッシャーの登録先。
	pushers pusher.Registry
}

// NewServer は新しいサーバーを生成する。
func NewServer(cfg Config, engine *ruleengine.Engine, pushers pusher.Registry) *Server {
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS(cfg.CORSOrigins))

	s := &Server{
		router:  router,
		cfg:     cfg,
		engine:  engine,
		pushers: pushers,
	}
	s.setupRoutes(middleware.JWTAuth(cfg.JWTSecret))
	return s
}

// Handler はサーバーのhttp.Handlerを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルに停止する。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("[PushServer] シャットダウンします")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("シャットダウンに失敗: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// setupRoutes はAPIルーティングを設定する。authはクライアントAPIに適用する認証ミドルウェア。
func (s *Server) setupRoutes(auth gin.HandlerFunc) {
	for _, version := range []string{"v3", "r0"} {
		client := s.router.Group("/_matrix/client/" + version)
		client.Use(auth)
		{
			rules := client.Group("/pushrules")
			{
				rules.GET("", s.handleGetAll())
				rules.GET("/", s.handleGetAll())
				rules.GET("/global", s.handleGetGlobal())
				rules.GET("/global/", s.handleGetGlobal())

				rules.GET("/:scope/:kind/:ruleId", s.handleGetRule())
				rules.PUT("/:scope/:kind/:ruleId", s.handlePutRule())
				rules.DELETE("/:scope/:kind/:ruleId", s.handleDeleteRule())

				rules.GET("/:scope/:kind/:ruleId/actions", s.handleGetActions())
				rules.PUT("/:scope/:kind/:ruleId/actions", s.handleSetActions())

				rules.GET("/:scope/:kind/:ruleId/enabled", s.handleGetEnabled())
				rules.PUT("/:scope/:kind/:ruleId/enabled", s.handleSetEnabled())
			}

			client.GET("/pushers", s.handleGetPushers())
			client.POST("/pushers/set", s.handleSetPusher())
		}
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "pushrules"})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{})))
}

// writeError はエラーをMatrix形式のレスポンスに変換する。
// 内部エラーの詳細はログにのみ残し、クライアントには汎用メッセージを返す。
func writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, ruleengine.ErrInvalidParam), errors.Is(err, pusher.ErrInvalidPusher):
		middleware.AbortWithError(c, http.StatusBadRequest, middleware.ErrCodeInvalidParam, err.Error())
	case errors.Is(err, ruleengine.ErrNotFound):
		middleware.AbortWithError(c, http.StatusNotFound, middleware.ErrCodeNotFound, err.Error())
	case errors.Is(err, ruleengine.ErrConflict):
		middleware.AbortWithError(c, http.StatusConflict, middleware.ErrCodeUnknown,
			"同時に別の更新が行われました。再試行してください")
	default:
		log.Printf("[PushServer] %sエラー: request_id=%s user=%s: %v",
			op, middleware.GetRequestID(c), middleware.GetUserID(c), err)
		middleware.AbortWithError(c, http.StatusInternalServerError, middleware.ErrCodeUnknown,
			"内部サーバーエラーが発生しました")
	}
}

// writeBadJSON はリクエストボディを解釈できなかったことを返す。
func writeBadJSON(c *gin.Context, err error) {
	middleware.AbortWithError(c, http.StatusBadRequest, middleware.ErrCodeBadJSON,
		fmt.Sprintf("リクエストが不正です: %v", err))
}

// requireUser は認証済みユーザーIDを返す。取得できなければ401を返してfalseを返す。
func requireUser(c *gin.Context) (string, bool) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		middleware.AbortWithError(c, http.StatusUnauthorized, middleware.ErrCodeMissingToken, "ユーザーIDが取得できません")
		return "", false
	}
	return userID, true
}
