package http

// 响应状态
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

// Envelope 统一响应信封
type Envelope struct {
	Status  string `json:"status"`
	Results *int   `json:"results,omitempty"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`

	// 仅开发模式
	Error any    `json:"error,omitempty"`
	Stack string `json:"stack,omitempty"`
}

// Success 单个资源，key 为资源名
func Success(key string, value any) *Envelope {
	return &Envelope{Status: StatusSuccess, Data: map[string]any{key: value}}
}

// List 列表资源，带结果数
func List[T any](key string, items []T) *Envelope {
	n := len(items)
	if items == nil {
		items = []T{}
	}
	return &Envelope{Status: StatusSuccess, Results: &n, Data: map[string]any{key: items}}
}

// Fail 4xx 为 fail，其余为 error
func Fail(status int, message string) *Envelope {
	s := StatusError
	if status >= 400 && status < 500 {
		s = StatusFail
	}
	return &Envelope{Status: s, Message: message}
}
