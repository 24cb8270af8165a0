package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// Publisher はイベントを外部に発行する。
type Publisher interface {
	Publish(ctx context.Context, e *Event) error
}

// NopPublisher は何もしないPublisher。イベント配信先が設定されていない場合に使う。
type NopPublisher struct{}

// Publish は何もしない。
func (NopPublisher) Publish(context.Context, *Event) error { return nil }

// NATSPublisher はNATSのサブジェクトにイベントを発行する。
// サブジェクトは "<prefix>.<イベント種類>" になる。
type NATSPublisher struct {
	// conn はNATS接続。
	conn *nats.Conn
	// prefix はサブジェクトの接頭辞。
	prefix string
}

// NewNATSPublisher は新しいNATSPublisherを生成する。
func NewNATSPublisher(conn *nats.Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix}
}

// Subject はイベント種類に対応するサブジェクトを返す。
func (p *NATSPublisher) Subject(t Type) string {
	return p.prefix + "." + string(t)
}

// Publish はイベントをJSONにしてNATSに発行する。
func (p *NATSPublisher) Publish(ctx context.Context, e *Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("イベントのシリアライズに失敗: %w", err)
	}
	msg := nats.NewMsg(p.Subject(e.EventType))
	msg.Data = payload
	msg.Header.Set(nats.MsgIdHdr, e.ID)
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("イベントの発行に失敗: %w", err)
	}
	return nil
}
