package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery はパニックからの回復を行うGinミドルウェアを返す。
// パニック発生時にスタックトレースをログに出力し、500エラーを返す。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[PANIC] request_id=%s %s %s: %v\n%s",
					GetRequestID(c), c.Request.Method, c.Request.URL.Path, r, debug.Stack())
				AbortWithError(c, http.StatusInternalServerError, ErrCodeUnknown, "内部サーバーエラーが発生しました")
			}
		}()
		c.Next()
	}
}
