package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Issuer は発行するアクセストークンの iss。
const Issuer = "pushrules"

// JWTClaims はアクセストークンのクレーム。
type JWTClaims struct {
	jwt.RegisteredClaims
	// UserID はMatrixユーザーID（例: @alice:example.org）。
	UserID string `json:"user_id"`
	// DeviceID はトークンを発行したデバイス。
	DeviceID string `json:"device_id,omitempty"`
}

// コンテキストキー。
const (
	contextKeyUserID   = "user_id"
	contextKeyDeviceID = "device_id"
)

// GenerateJWT はユーザーとデバイスのアクセストークンを生成する。
// 管理CLIやテストがトークンを発行する際に使う。
func GenerateJWT(secret, userID, deviceID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    Issuer,
		},
		UserID:   userID,
		DeviceID: deviceID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// JWTAuth はアクセストークンを検証するGinミドルウェアを返す。
// トークンはAuthorizationヘッダー、無ければ access_token クエリから読む。
// 検証に成功した場合、コンテキストに "user_id" と "device_id" を設定する。
func JWTAuth(secret string) gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)

	return func(c *gin.Context) {
		tokenString, err := accessToken(c)
		if err != nil {
			AbortWithError(c, http.StatusUnauthorized, ErrCodeMissingToken, err.Error())
			return
		}

		claims := &JWTClaims{}
		token, err := parser.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
			return []byte(secret), nil
		})
		if err != nil || !token.Valid || claims.UserID == "" {
			AbortWithError(c, http.StatusUnauthorized, ErrCodeUnknownToken, "トークンが無効です")
			return
		}

		c.Set(contextKeyUserID, claims.UserID)
		c.Set(contextKeyDeviceID, claims.DeviceID)
		c.Next()
	}
}

func accessToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("access_token"); token != "" {
			return token, nil
		}
		return "", errors.New("アクセストークンが必要です")
	}

	token, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found || token == "" {
		return "", errors.New("Bearer トークン形式が不正です")
	}
	return token, nil
}

// GetUserID はGinコンテキストからユーザーIDを取得する。
// JWTAuthミドルウェアが事前に適用されている必要がある。
func GetUserID(c *gin.Context) string {
	return c.GetString(contextKeyUserID)
}

// GetDeviceID はGinコンテキストからデバイスIDを取得する。
func GetDeviceID(c *gin.Context) string {
	return c.GetString(contextKeyDeviceID)
}
