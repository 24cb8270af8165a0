package middleware

import "github.com/gin-gonic/gin"

// Matrixクライアントに返すエラーコード。
const (
	ErrCodeMissingToken = "M_MISSING_TOKEN"
	ErrCodeUnknownToken = "M_UNKNOWN_TOKEN"
	ErrCodeInvalidParam = "M_INVALID_PARAM"
	ErrCodeNotFound     = "M_NOT_FOUND"
	ErrCodeBadJSON      = "M_BAD_JSON"
	ErrCodeUnrecognized = "M_UNRECOGNIZED"
	ErrCodeUnknown      = "M_UNKNOWN"
)

// MatrixError はエラー応答のボディ。
type MatrixError struct {
	// ErrCode は機械可読なエラーコード。
	ErrCode string `json:"errcode"`
	// Error は人が読むためのメッセージ。
	Error string `json:"error"`
}

// AbortWithError はMatrix形式のエラーを返してハンドラチェーンを中断する。
func AbortWithError(c *gin.Context, status int, errcode, msg string) {
	c.AbortWithStatusJSON(status, MatrixError{ErrCode: errcode, Error: msg})
}
