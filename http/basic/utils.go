package basic

import (
	"net/http"

	"natours/domain/entity"
	"natours/errors"
	httpx "natours/http"
	"natours/logging"
	"natours/validation"
)

// MsgSomethingWrong 生产模式下非业务错误的统一消息
const MsgSomethingWrong = "Something went wrong"

// HttpUtils 参数解析与统一错误输出
type HttpUtils struct {
	Development bool
	Logger      logging.Logger
}

// ParseID 解析路径参数中的记录 ID
func (u *HttpUtils) ParseID(ctx httpx.IHttpContext, paramName string) (int64, error) {
	raw := ctx.GetParam(paramName)
	id, ok := entity.ParseID(raw)
	if !ok {
		return 0, validation.ValidateID(0, raw)
	}
	return id, nil
}

// WriteErrorResponse 开发模式输出错误详情与堆栈；生产模式只输出业务错误的消息
func (u *HttpUtils) WriteErrorResponse(ctx httpx.IHttpContext, err error) {
	if ctx.Written() {
		u.Logger.Warn(ctx.Context(), "error after response written", logging.Error(err))
		return
	}
	err = errors.Normalize(err)

	status := http.StatusInternalServerError
	message := err.Error()
	operational := false
	var details map[string]any
	var stack string
	code := errors.ErrCodeInternal
	if appErr, ok := errors.AsAppError(err); ok {
		status = appErr.Status()
		message = appErr.Message()
		operational = appErr.Operational()
		details = appErr.Details()
		stack = appErr.Stack()
		code = appErr.Code()
	}

	if !operational {
		u.Logger.Error(ctx.Context(), "request failed",
			logging.String("method", ctx.GetMethod()),
			logging.String("path", ctx.GetPath()),
			logging.Error(err))
	}

	var env *httpx.Envelope
	switch {
	case u.Development:
		env = httpx.Fail(status, message)
		env.Error = map[string]any{"code": code, "details": details}
		env.Stack = stack
	case operational:
		env = httpx.Fail(status, message)
	default:
		status = http.StatusInternalServerError
		env = httpx.Fail(status, MsgSomethingWrong)
	}
	if jerr := ctx.JSON(status, env); jerr != nil {
		u.Logger.Warn(ctx.Context(), "write error response failed", logging.Error(jerr))
	}
}
