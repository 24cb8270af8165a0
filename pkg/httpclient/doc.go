// Package httpclient は外部サービスとJSONでやり取りするHTTPクライアントを提供する。
//
// 外部のプッシャーレジストリなど、別プロセスに状態を持つ依存先を呼び出す際に使う。
// 2xx以外の応答は *StatusError として返し、呼び出し側がステータスコードと
// Matrix形式のerrcodeで分岐できるようにする。
package httpclient
