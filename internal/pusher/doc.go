// Package pusher はユーザーのプッシャー（通知の配送先）の登録を管理する。
//
// プッシャーは (app_id, pushkey) で識別される。登録はSQLiteに保存するか、
// 外部のプッシャーレジストリにHTTPで委譲する。
package pusher
