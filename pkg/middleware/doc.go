// Package middleware はクライアントAPIで使用する共通のGinミドルウェアを提供する。
//
// アクセストークン(JWT)の検証、リクエストID、パニックリカバリ、CORSを含む。
// エラー応答はすべてMatrix形式の {"errcode": ..., "error": ...} で返す。
package middleware
