// Package pushserver はプッシュルールとプッシャーのクライアントAPIを提供する。
//
// Matrix Client-Server API の /pushrules と /pushers を /_matrix/client/v3
// （互換のため r0 にも）にマウントする。リクエストの解釈と認証、
// ルールエンジンの呼び出し、エラーのMatrix形式への変換を担う。
package pushserver
