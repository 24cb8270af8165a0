package pushrules

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EventType はプッシュルールのアカウントデータ種別。
const EventType = "m.push_rules"

// Document はプッシュルールを保持するアカウントデータドキュメント。
//
// 保存形式は {"type": "m.push_rules", "content": {"global": {...}}} で、
// ルールセット以外のフィールドはデコード時の値のまま書き戻される。
type Document struct {
	// Global はglobalスコープのルールセット。
	Global *RuleSet

	// fields はcontent以外のトップレベルフィールド。
	fields map[string]json.RawMessage
	// content はglobal以外のcontent内フィールド。
	content map[string]json.RawMessage
}

// NewDocument はルールセットを包む新しいドキュメントを生成する。
func NewDocument(rs *RuleSet) *Document {
	typ, _ := json.Marshal(EventType)
	return &Document{
		Global:  rs,
		fields:  map[string]json.RawMessage{"type": typ},
		content: map[string]json.RawMessage{},
	}
}

// Decode は保存済みのドキュメントをデコードする。
// 期待する形と一致しない場合は ErrCorruptData を返す。
func Decode(data []byte) (*Document, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: ドキュメントがJSONオブジェクトではありません", ErrCorruptData)
	}

	rawContent, ok := fields["content"]
	if !ok {
		return nil, fmt.Errorf("%w: contentがありません", ErrCorruptData)
	}
	var content map[string]json.RawMessage
	if err := json.Unmarshal(rawContent, &content); err != nil || content == nil {
		return nil, fmt.Errorf("%w: contentがオブジェクトではありません", ErrCorruptData)
	}

	rawGlobal, ok := content[string(GlobalScope)]
	if !ok || bytes.Equal(bytes.TrimSpace(rawGlobal), []byte("null")) {
		return nil, fmt.Errorf("%w: content.globalがありません", ErrCorruptData)
	}
	global := &RuleSet{}
	if err := json.Unmarshal(rawGlobal, global); err != nil {
		return nil, err
	}

	delete(fields, "content")
	delete(content, string(GlobalScope))
	return &Document{Global: global, fields: fields, content: content}, nil
}

// Encode はドキュメントをJSONにエンコードする。途中までの結果を返すことはない。
func (d *Document) Encode() ([]byte, error) {
	global, err := json.Marshal(d.Global)
	if err != nil {
		return nil, fmt.Errorf("ルールセットのエンコードに失敗: %w", err)
	}

	content := make(map[string]json.RawMessage, len(d.content)+1)
	for k, v := range d.content {
		content[k] = v
	}
	content[string(GlobalScope)] = global

	rawContent, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("contentのエンコードに失敗: %w", err)
	}

	fields := make(map[string]json.RawMessage, len(d.fields)+1)
	for k, v := range d.fields {
		fields[k] = v
	}
	fields["content"] = rawContent

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return nil, fmt.Errorf("ドキュメントのエンコードに失敗: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
