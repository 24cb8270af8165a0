package event

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

// TestNewPushRulesUpdated はルールセット更新イベントの生成を検証する。
func TestNewPushRulesUpdated(t *testing.T) {
	t.Parallel()

	data := PushRulesUpdatedData{
		UserID:    "@alice:example.org",
		Operation: "set_enabled",
		Kind:      "content",
		RuleID:    "r1",
	}

	before := time.Now().UTC()
	ev, err := NewPushRulesUpdated(3, data)
	after := time.Now().UTC()
	if err != nil {
		t.Fatalf("NewPushRulesUpdated()でエラーが発生: %v", err)
	}

	if ev.ID == "" {
		t.Error("IDが空文字列")
	}
	if ev.AggregateID != data.UserID {
		t.Errorf("AggregateID = %q, want %q", ev.AggregateID, data.UserID)
	}
	if ev.AggregateType != AggregateTypeAccountData || ev.EventType != TypePushRulesUpdated {
		t.Errorf("種類が不正: %q / %q", ev.AggregateType, ev.EventType)
	}
	if ev.Version != 3 {
		t.Errorf("Version = %d, want 3", ev.Version)
	}
	if ev.CreatedAt.Before(before) || ev.CreatedAt.After(after) {
		t.Errorf("CreatedAt = %v, 期待する範囲: [%v, %v]", ev.CreatedAt, before, after)
	}

	got, err := DecodeData[PushRulesUpdatedData](ev)
	if err != nil {
		t.Fatalf("DecodeData()でエラーが発生: %v", err)
	}
	if *got != data {
		t.Errorf("Data = %+v, want %+v", *got, data)
	}
}

// TestNewPusherChanged はプッシャー変更イベントの生成を検証する。
func TestNewPusherChanged(t *testing.T) {
	t.Parallel()

	ev1, err := NewPusherChanged(PusherChangedData{UserID: "@a:example.org", AppID: "com.example", PushKey: "k"})
	if err != nil {
		t.Fatalf("NewPusherChanged()でエラーが発生: %v", err)
	}
	ev2, err := NewPusherChanged(PusherChangedData{UserID: "@a:example.org", AppID: "com.example", PushKey: "k"})
	if err != nil {
		t.Fatalf("NewPusherChanged()でエラーが発生: %v", err)
	}

	if ev1.ID == ev2.ID {
		t.Errorf("IDが重複: %q", ev1.ID)
	}
	if ev1.Version != 0 || ev1.AggregateType != AggregateTypePusher {
		t.Errorf("イベントが不正: %+v", ev1)
	}
}

// TestParse は発行されたペイロードの解釈を検証する。
func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("発行した形のまま復元できること", func(t *testing.T) {
		t.Parallel()

		ev, err := NewPushRulesUpdated(7, PushRulesUpdatedData{UserID: "@a:example.org", Operation: "provision"})
		if err != nil {
			t.Fatalf("イベント生成でエラーが発生: %v", err)
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			t.Fatalf("シリアライズに失敗: %v", err)
		}

		got, err := Parse(payload)
		if err != nil {
			t.Fatalf("Parse()でエラーが発生: %v", err)
		}
		if got.ID != ev.ID || got.Version != 7 || got.EventType != TypePushRulesUpdated {
			t.Errorf("Parse() = %+v", got)
		}
	})

	tests := []struct {
		name    string
		payload string
	}{
		{name: "JSONではない", payload: `{broken`},
		{name: "idがない", payload: `{"event_type":"PusherChanged","data":{}}`},
		{name: "event_typeがない", payload: `{"id":"x","data":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Parse([]byte(tt.payload)); !errors.Is(err, ErrMalformedEvent) {
				t.Errorf("ErrMalformedEventであるべき: %v", err)
			}
		})
	}
}

// TestDecodeData は不正なデータでエラーになることを検証する。
func TestDecodeData(t *testing.T) {
	t.Parallel()

	ev := &Event{EventType: TypePusherChanged, Data: json.RawMessage(`{broken`)}
	if _, err := DecodeData[PusherChangedData](ev); !errors.Is(err, ErrMalformedEvent) {
		t.Fatalf("ErrMalformedEventであるべき: %v", err)
	}
}

// TestSummary はイベントの1行表示を検証する。
func TestSummary(t *testing.T) {
	t.Parallel()

	rules, _ := NewPushRulesUpdated(2, PushRulesUpdatedData{UserID: "@a:example.org", Operation: "put_rule", Kind: "room", RuleID: "!r:example.org"})
	provision, _ := NewPushRulesUpdated(1, PushRulesUpdatedData{UserID: "@a:example.org", Operation: "provision"})
	removed, _ := NewPusherChanged(PusherChangedData{UserID: "@a:example.org", AppID: "app", PushKey: "k", Removed: true})

	tests := []struct {
		name string
		ev   *Event
		want string
	}{
		{name: "ルール更新", ev: rules, want: "PushRulesUpdated rev=2 @a:example.org put_rule room/!r:example.org"},
		{name: "ルールセット作成", ev: provision, want: "PushRulesUpdated rev=1 @a:example.org provision"},
		{name: "プッシャー削除", ev: removed, want: "PusherChanged @a:example.org app/k removed"},
		{name: "未知の種類", ev: &Event{EventType: "Other", AggregateID: "u", Data: json.RawMessage(`{"x":1}`)}, want: `Other u {"x":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Summary(tt.ev)
			if err != nil {
				t.Fatalf("Summary()でエラーが発生: %v", err)
			}
			if got != tt.want {
				t.Errorf("Summary() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("データが壊れていればエラー", func(t *testing.T) {
		t.Parallel()
		_, err := Summary(&Event{EventType: TypePushRulesUpdated, Data: json.RawMessage(`[]`)})
		if err == nil || !strings.Contains(err.Error(), "PushRulesUpdated") {
			t.Errorf("エラーが期待と異なる: %v", err)
		}
	})
}
