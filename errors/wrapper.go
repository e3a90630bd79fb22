package errors

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"natours/logging"
)

// Wrap 包装错误，添加错误码和上下文信息
// 在 Service/Handler 层边界使用
func Wrap(ctx context.Context, err error, code ErrorCode, msg string) error {
	if err == nil {
		return nil
	}

	loc := callerLocation()
	logging.GetLogger().Debug(ctx, "wrap error",
		logging.String("message", msg),
		logging.String("location", loc),
	)
	return WrapError(err, code, msg).WithDetails(map[string]any{"location": loc})
}

// WrapWithLog 包装错误并记录警告日志
func WrapWithLog(ctx context.Context, err error, code ErrorCode, msg string, fields ...logging.Field) error {
	if err == nil {
		return nil
	}

	allFields := append([]logging.Field{
		logging.Error(err),
		logging.String("error_code", string(code)),
		logging.String("location", callerLocation()),
	}, fields...)
	logging.GetLogger().Warn(ctx, msg, allFields...)

	return WrapError(err, code, msg)
}

// WrapDatabaseError 包装数据库错误
// 可识别的错误（未找到、唯一约束）先规范化，其余按数据库错误记录
func WrapDatabaseError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	if normalized := Normalize(err); normalized != err {
		return normalized
	}
	if _, ok := err.(IError); ok {
		return err
	}

	return WrapWithLog(ctx, err, ErrCodeDatabase,
		fmt.Sprintf("database operation failed: %s", operation),
		logging.String("operation", operation),
	)
}

// New 创建新错误，调用位置记录在详情中
func New(code ErrorCode, msg string) error {
	return NewError(code, msg).WithDetails(map[string]any{"location": callerLocation()})
}

// callerLocation 返回调用 errors 包导出函数的位置
func callerLocation() string {
	_, file, line, _ := runtime.Caller(2)
	return fmt.Sprintf("%s:%d", file, line)
}

// NewNotFoundError 创建未找到错误
func NewNotFoundError(msg string) error {
	return NewError(ErrCodeNotFound, msg)
}

// NewValidationError 创建验证错误，多条消息以 ". " 连接
func NewValidationError(messages ...string) error {
	msg := "Invalid input data."
	if len(messages) > 0 {
		msg = "Invalid input data. " + strings.Join(messages, ". ")
	}
	return NewError(ErrCodeValidation, msg).WithDetails(map[string]any{"errors": messages})
}

// NewInvalidValueError 字段值无法解析时使用
func NewInvalidValueError(field string, value any) error {
	return NewError(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %v", field, value))
}

// NewDuplicateError 唯一字段重复
func NewDuplicateError(value any) error {
	return NewError(ErrCodeDuplicate, fmt.Sprintf("Duplicate field value: %v. Please use another value", value))
}

// NewInvalidFieldError 查询引用了不存在或不可见的字段
func NewInvalidFieldError(field string) error {
	return NewError(ErrCodeValidation, "Invalid field: "+field)
}
