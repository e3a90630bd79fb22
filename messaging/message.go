// Package messaging 领域事件的消息信封、处理器注册与传输抽象
package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message 消息信封，Payload 保存 JSON 编码后的事件体
type Message struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   json.RawMessage   `json:"payload,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewMessage 编码 payload 并生成消息 ID
func NewMessage(messageType string, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", messageType, err)
	}
	return &Message{
		ID:        uuid.NewString(),
		Type:      messageType,
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	}, nil
}

// Decode 解码 Payload
func (m *Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("message %s has empty payload", m.ID)
	}
	return json.Unmarshal(m.Payload, v)
}

// Meta 读取元数据
func (m *Message) Meta(key string) string {
	return m.Metadata[key]
}

// SetMeta 写入元数据
func (m *Message) SetMeta(key, value string) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	m.Metadata[key] = value
}

// wireMessage 跨进程传输的编码，时间戳为纳秒
type wireMessage struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Timestamp int64             `json:"timestamp"`
	Payload   json.RawMessage   `json:"payload,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Marshal 编码为传输格式
func Marshal(m *Message) ([]byte, error) {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return json.Marshal(wireMessage{
		ID:        m.ID,
		Type:      m.Type,
		Timestamp: ts.UnixNano(),
		Payload:   m.Payload,
		Metadata:  m.Metadata,
	})
}

// Unmarshal 解码传输格式
func Unmarshal(data []byte) (*Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return &Message{
		ID:        w.ID,
		Type:      w.Type,
		Timestamp: time.Unix(0, w.Timestamp).UTC(),
		Payload:   w.Payload,
		Metadata:  w.Metadata,
	}, nil
}
