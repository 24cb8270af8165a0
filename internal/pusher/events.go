package pusher

import (
	"context"
	"log"

	"github.com/nao1215/pushrules/pkg/event"
)

// NotifyingRegistry は変更が成功した後にPusherChangedイベントを発行するレジストリ。
type NotifyingRegistry struct {
	Registry
	// publisher はイベントの発行先。
	publisher event.Publisher
}

// WithEvents はレジストリをイベント発行付きでラップする。
func WithEvents(r Registry, p event.Publisher) *NotifyingRegistry {
	return &NotifyingRegistry{Registry: r, publisher: p}
}

// SetPusher はプッシャーを変更し、成功した場合にイベントを発行する。
// 発行の失敗はログに残すだけで呼び出し元には返さない。
func (r *NotifyingRegistry) SetPusher(ctx context.Context, userID string, req SetRequest) error {
	if err := r.Registry.SetPusher(ctx, userID, req); err != nil {
		return err
	}

	ev, err := event.NewPusherChanged(event.PusherChangedData{
		UserID:  userID,
		AppID:   req.AppID,
		PushKey: req.PushKey,
		Removed: req.Delete(),
	})
	if err != nil {
		log.Printf("[Pusher] 変更通知の生成に失敗: %v", err)
		return nil
	}
	if err := r.publisher.Publish(context.WithoutCancel(ctx), ev); err != nil {
		log.Printf("[Pusher] 変更通知の発行に失敗: user=%s app_id=%s: %v", userID, req.AppID, err)
	}
	return nil
}
