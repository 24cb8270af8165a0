package pusher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nao1215/pushrules/pkg/httpclient"
)

// RemoteRegistry は外部のプッシャーレジストリにHTTPで委譲するレジストリ。
type RemoteRegistry struct {
	// client はレジストリへのHTTPクライアント。
	client *httpclient.Client
}

// NewRemoteRegistry は新しいRemoteRegistryを生成する。
func NewRemoteRegistry(client *httpclient.Client) *RemoteRegistry {
	return &RemoteRegistry{client: client}
}

type remoteGetResponse struct {
	Pushers []Pusher `json:"pushers"`
}

type remoteSetRequest struct {
	UserID string `json:"user_id"`
	SetRequest
}

// GetPushers はユーザーのプッシャーをレジストリから取得する。
func (r *RemoteRegistry) GetPushers(ctx context.Context, userID string) ([]Pusher, error) {
	var resp remoteGetResponse
	if err := r.client.GetJSON(ctx, "/pushers", url.Values{"user_id": {userID}}, &resp); err != nil {
		return nil, fmt.Errorf("プッシャーレジストリからの取得に失敗: %w", err)
	}
	if resp.Pushers == nil {
		resp.Pushers = []Pusher{}
	}
	return resp.Pushers, nil
}

// SetPusher はプッシャーの変更をレジストリに送る。
// レジストリが400を返した場合は ErrInvalidPusher として扱う。
func (r *RemoteRegistry) SetPusher(ctx context.Context, userID string, req SetRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	err := r.client.PostJSON(ctx, "/pushers/set", remoteSetRequest{UserID: userID, SetRequest: req}, nil)
	var se *httpclient.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusBadRequest {
		return fmt.Errorf("%w: レジストリが拒否しました: %s", ErrInvalidPusher, se.Body)
	}
	if err != nil {
		return fmt.Errorf("プッシャーレジストリへの送信に失敗: %w", err)
	}
	return nil
}
