package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestRecovery(t *testing.T) {
	t.Parallel()

	t.Run("パニックが発生した場合M_UNKNOWNの500が返ること", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(RequestID(), Recovery())
		router.GET("/panic", func(_ *gin.Context) {
			panic("テスト用パニック")
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

		if w.Code != http.StatusInternalServerError {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusInternalServerError)
		}
		body := decodeMatrixError(t, w)
		if body.ErrCode != ErrCodeUnknown {
			t.Errorf("errcode = %q, want %q", body.ErrCode, ErrCodeUnknown)
		}
		if body.Error != "内部サーバーエラーが発生しました" {
			t.Errorf("error = %q", body.Error)
		}
	})

	t.Run("パニックが発生しない場合は正常にレスポンスが返ること", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Recovery())
		router.GET("/ok", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
	})
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	newRouter := func(captured *string) *gin.Engine {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			*captured = GetRequestID(c)
			c.Status(http.StatusOK)
		})
		return router
	}

	t.Run("未指定ならUUIDを割り当てること", func(t *testing.T) {
		t.Parallel()

		var captured string
		w := httptest.NewRecorder()
		newRouter(&captured).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		if _, err := uuid.Parse(captured); err != nil {
			t.Errorf("request_id = %q はUUIDではない: %v", captured, err)
		}
		if got := w.Header().Get(HeaderRequestID); got != captured {
			t.Errorf("%s = %q, want %q", HeaderRequestID, got, captured)
		}
	})

	t.Run("クライアントのIDを引き継ぐこと", func(t *testing.T) {
		t.Parallel()

		var captured string
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(HeaderRequestID, "client-id")
		newRouter(&captured).ServeHTTP(httptest.NewRecorder(), req)

		if captured != "client-id" {
			t.Errorf("request_id = %q, want %q", captured, "client-id")
		}
	})
}

func TestCORS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantStatus int
	}{
		{name: "許可されたオリジン", allowed: []string{"http://localhost:3000", "https://example.com"}, origin: "https://example.com", method: http.MethodGet, wantOrigin: "https://example.com", wantStatus: http.StatusOK},
		{name: "許可されていないオリジン", allowed: []string{"http://localhost:3000"}, origin: "https://evil.com", method: http.MethodGet, wantOrigin: "", wantStatus: http.StatusOK},
		{name: "ワイルドカード", allowed: []string{"*"}, origin: "https://any.example", method: http.MethodGet, wantOrigin: "*", wantStatus: http.StatusOK},
		{name: "Originなし", allowed: []string{"*"}, origin: "", method: http.MethodGet, wantOrigin: "", wantStatus: http.StatusOK},
		{name: "プリフライトは204", allowed: []string{"*"}, origin: "https://any.example", method: http.MethodOptions, wantOrigin: "*", wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := gin.New()
			router.Use(CORS(tt.allowed))
			router.GET("/test", func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("ステータスコード = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if tt.wantOrigin != "" {
				if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, PUT, DELETE, OPTIONS" {
					t.Errorf("Access-Control-Allow-Methods = %q", got)
				}
			}
		})
	}
}
