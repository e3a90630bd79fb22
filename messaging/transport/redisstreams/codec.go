package redisstreams

import (
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"natours/messaging"
)

// 条目字段：data 为完整消息，id/type/timestamp 冗余一份便于 redis-cli 查看
const (
	fieldID   = "id"
	fieldType = "type"
	fieldTS   = "timestamp"
	fieldData = "data"
)

func encodeMessage(m *messaging.Message) (map[string]any, error) {
	data, err := messaging.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode message %s: %w", m.ID, err)
	}
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return map[string]any{
		fieldID:   m.ID,
		fieldType: m.Type,
		fieldTS:   ts.UnixNano(),
		fieldData: string(data),
	}, nil
}

// decodeMessage data 里缺失的字段从冗余字段补齐
func decodeMessage(entry redis.XMessage) (*messaging.Message, error) {
	raw, _ := entry.Values[fieldData].(string)
	if raw == "" {
		return nil, fmt.Errorf("entry %s has no data", entry.ID)
	}
	m, err := messaging.Unmarshal([]byte(raw))
	if err != nil {
		return nil, err
	}
	if m.ID == "" {
		m.ID = entry.ID
	}
	if m.Type == "" {
		m.Type, _ = entry.Values[fieldType].(string)
	}
	if m.Timestamp.UnixNano() == 0 {
		if ns, ok := unixNano(entry.Values[fieldTS]); ok {
			m.Timestamp = time.Unix(0, ns).UTC()
		}
	}
	return m, nil
}

// redis 返回的字段值都是字符串，本地写入的可能是 int64
func unixNano(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case string:
		ns, err := strconv.ParseInt(x, 10, 64)
		return ns, err == nil
	}
	return 0, false
}
