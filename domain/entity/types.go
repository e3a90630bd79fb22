package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimeLayout 存储与输出统一使用的格式，UTC 毫秒精度，字典序即时间序
const TimeLayout = "2006-01-02T15:04:05.000Z"

// 可接受的输入格式
var inputLayouts = []string{
	TimeLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02,15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-01",
	"2006",
}

// Time 以 TEXT 列存储的时间
type Time struct {
	time.Time
}

// NewTime 归一化为 UTC 毫秒
func NewTime(t time.Time) Time {
	return Time{Time: t.UTC().Truncate(time.Millisecond)}
}

// Now 当前时间
func Now() Time {
	return NewTime(time.Now())
}

// Date 指定日期的零点
func Date(year int, month time.Month, day int) Time {
	return NewTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// ParseTime 依次尝试 inputLayouts
func ParseTime(s string) (Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewTime(t), nil
		}
	}
	return Time{}, fmt.Errorf("cannot parse %q as time", s)
}

// String 存储格式
func (t Time) String() string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

// MarshalJSON 零值输出 null
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}

// UnmarshalJSON 接受字符串或毫秒时间戳
func (t *Time) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Time{}
		return nil
	}
	var ms int64
	if err := json.Unmarshal(data, &ms); err == nil {
		*t = NewTime(time.UnixMilli(ms))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value 实现 driver.Valuer
func (t Time) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.String(), nil
}

// Scan 实现 sql.Scanner
func (t *Time) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = Time{}
		return nil
	case time.Time:
		*t = NewTime(v)
		return nil
	case []byte:
		return t.scanString(string(v))
	case string:
		return t.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into entity.Time", src)
	}
}

func (t *Time) scanString(s string) error {
	if s == "" {
		*t = Time{}
		return nil
	}
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseFilter 查询串中的时间值转换为可比较的存储格式
func (Time) ParseFilter(raw string) (any, error) {
	t, err := ParseTime(raw)
	if err != nil {
		return nil, err
	}
	return t.String(), nil
}

// StringList 以 JSON 数组存储的字符串列表
type StringList []string

// Value 实现 driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner
func (l *StringList) Scan(src any) error {
	raw, err := jsonText(src)
	if err != nil {
		return err
	}
	if raw == "" {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return fmt.Errorf("scan string list: %w", err)
	}
	*l = out
	return nil
}

// TimeList 以 JSON 数组存储的时间列表
type TimeList []Time

// Value 实现 driver.Valuer
func (l TimeList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]Time(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner
func (l *TimeList) Scan(src any) error {
	raw, err := jsonText(src)
	if err != nil {
		return err
	}
	if raw == "" {
		*l = TimeList{}
		return nil
	}
	var out []Time
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return fmt.Errorf("scan time list: %w", err)
	}
	*l = out
	return nil
}

func jsonText(src any) (string, error) {
	switch v := src.(type) {
	case nil:
		return "", nil
	case []byte:
		return string(v), nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("cannot scan %T into a JSON list", src)
	}
}
