package pusher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"unicode/utf8"
)

// プッシャーの種類。
const (
	KindHTTP  = "http"
	KindEmail = "email"
)

// FormatEventIDOnly は通知に event_id だけを載せる形式。
const FormatEventIDOnly = "event_id_only"

// 識別子の長さの上限。
const (
	maxAppIDLength   = 64
	maxPushKeyLength = 512
)

var (
	// ErrInvalidPusher はプッシャーの内容が不正であることを表す。
	ErrInvalidPusher = errors.New("不正なプッシャー")
)

// Data はプッシャーの種類ごとの設定。
// url と format 以外のキー（default_payload など）は Extra にそのまま保持する。
type Data struct {
	// URL はhttpプッシャーの通知先。
	URL string
	// Format は通知の形式。空ならフルの通知。
	Format string
	// Extra はurl / format 以外のキー。
	Extra map[string]json.RawMessage
}

// MarshalJSON はExtraのキーとurl / formatを1つのオブジェクトにエンコードする。
func (d Data) MarshalJSON() ([]byte, error) {
	obj := make(map[string]json.RawMessage, len(d.Extra)+2)
	for k, v := range d.Extra {
		obj[k] = v
	}
	if d.URL != "" {
		obj["url"], _ = json.Marshal(d.URL)
	}
	if d.Format != "" {
		obj["format"], _ = json.Marshal(d.Format)
	}
	return json.Marshal(obj)
}

// UnmarshalJSON はurl / formatを取り出し、残りのキーをExtraに入れる。
func (d *Data) UnmarshalJSON(bs []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(bs, &obj); err != nil {
		return err
	}

	var out Data
	if raw, ok := obj["url"]; ok {
		if err := json.Unmarshal(raw, &out.URL); err != nil {
			return fmt.Errorf("data.urlが文字列ではありません: %w", err)
		}
		delete(obj, "url")
	}
	if raw, ok := obj["format"]; ok {
		if err := json.Unmarshal(raw, &out.Format); err != nil {
			return fmt.Errorf("data.formatが文字列ではありません: %w", err)
		}
		delete(obj, "format")
	}
	if len(obj) > 0 {
		out.Extra = obj
	}
	*d = out
	return nil
}

// Pusher は登録済みのプッシャー。
type Pusher struct {
	// PushKey はデバイスを識別するキー。
	PushKey string `json:"pushkey"`
	// Kind は "http" か "email"。SetRequest で空の場合は削除を意味する。
	Kind string `json:"kind"`
	// AppID はアプリケーションの識別子。
	AppID string `json:"app_id"`
	// AppDisplayName はユーザーに見せるアプリ名。
	AppDisplayName string `json:"app_display_name"`
	// DeviceDisplayName はユーザーに見せるデバイス名。
	DeviceDisplayName string `json:"device_display_name"`
	// ProfileTag はデバイス固有ルールセットの識別子。
	ProfileTag string `json:"profile_tag,omitempty"`
	// Lang は通知に使う言語。
	Lang string `json:"lang"`
	// Data は種類ごとの設定。
	Data Data `json:"data"`
}

// SetRequest はプッシャーの登録・更新・削除の要求。
type SetRequest struct {
	Pusher
	// Append がfalseなら、同じ (app_id, pushkey) を持つ他ユーザーのプッシャーを削除する。
	Append bool `json:"append,omitempty"`
}

// Delete は要求が削除であればtrueを返す。
func (r SetRequest) Delete() bool {
	return r.Kind == ""
}

// Registry はプッシャーの保存先。
type Registry interface {
	// GetPushers はユーザーのプッシャーを登録順に返す。
	GetPushers(ctx context.Context, userID string) ([]Pusher, error)
	// SetPusher はプッシャーを登録・更新・削除する。
	SetPusher(ctx context.Context, userID string, req SetRequest) error
}

// Validate は要求を検証する。違反は ErrInvalidPusher でラップして返す。
func (r SetRequest) Validate() error {
	switch {
	case r.AppID == "":
		return fmt.Errorf("%w: app_idが必要です", ErrInvalidPusher)
	case utf8.RuneCountInString(r.AppID) > maxAppIDLength:
		return fmt.Errorf("%w: app_idは%d文字以内である必要があります", ErrInvalidPusher, maxAppIDLength)
	case r.PushKey == "":
		return fmt.Errorf("%w: pushkeyが必要です", ErrInvalidPusher)
	case len(r.PushKey) > maxPushKeyLength:
		return fmt.Errorf("%w: pushkeyは%dバイト以内である必要があります", ErrInvalidPusher, maxPushKeyLength)
	}
	if r.Delete() {
		return nil
	}

	switch r.Kind {
	case KindHTTP:
		if err := validateHTTPData(r.Data); err != nil {
			return err
		}
	case KindEmail:
	default:
		return fmt.Errorf("%w: 未サポートのkindです: %q", ErrInvalidPusher, r.Kind)
	}
	switch {
	case r.AppDisplayName == "":
		return fmt.Errorf("%w: app_display_nameが必要です", ErrInvalidPusher)
	case r.DeviceDisplayName == "":
		return fmt.Errorf("%w: device_display_nameが必要です", ErrInvalidPusher)
	case r.Lang == "":
		return fmt.Errorf("%w: langが必要です", ErrInvalidPusher)
	}
	return nil
}

func validateHTTPData(d Data) error {
	if d.URL == "" {
		return fmt.Errorf("%w: httpプッシャーにはdata.urlが必要です", ErrInvalidPusher)
	}
	u, err := url.Parse(d.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: data.urlが不正です: %q", ErrInvalidPusher, d.URL)
	}
	if d.Format != "" && d.Format != FormatEventIDOnly {
		return fmt.Errorf("%w: 未サポートのdata.formatです: %q", ErrInvalidPusher, d.Format)
	}
	return nil
}
