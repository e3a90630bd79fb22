package errors

import (
	stdErrors "errors"
	"fmt"
	"maps"
	"net/http"
	"runtime"
	"strings"
)

// ErrorCode 错误代码
type ErrorCode string

const (
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeTimeout         ErrorCode = "TIMEOUT"
	ErrCodeTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeDuplicate       ErrorCode = "DUPLICATE_ERROR"
	ErrCodeDatabase        ErrorCode = "DATABASE_ERROR"
)

// 面向客户端的错误代码及其状态码，其余一律 500
var statusByCode = map[ErrorCode]int{
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeDuplicate:       http.StatusBadRequest,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeTooManyRequests: http.StatusTooManyRequests,
}

// StatusOf 返回错误代码对应的 HTTP 状态码
func StatusOf(code ErrorCode) int {
	if s, ok := statusByCode[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// IError 带错误代码的应用错误
type IError interface {
	error

	Code() ErrorCode
	// Message 不含代码前缀，可直接返回给客户端
	Message() string
	Cause() error
	Details() map[string]any
	Stack() string
	Status() int
	// Operational 为 true 时消息原样返回，否则只返回通用提示
	Operational() bool

	// WithDetails 返回附加了详情的副本
	WithDetails(details map[string]any) IError
}

// AppError IError 的唯一实现
type AppError struct {
	code    ErrorCode
	message string
	cause   error
	details map[string]any
	stack   string
}

func newAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		code:    code,
		message: message,
		cause:   cause,
		details: map[string]any{},
		stack:   captureStack(),
	}
}

// NewError 创建新错误
func NewError(code ErrorCode, message string) IError {
	return newAppError(code, message, nil)
}

// NewErrorWithCause 创建带原因的错误
func NewErrorWithCause(code ErrorCode, message string, cause error) IError {
	return newAppError(code, message, cause)
}

// WrapError 用错误代码包装 err，err 为 nil 时返回 nil
func WrapError(err error, code ErrorCode, message string) IError {
	if err == nil {
		return nil
	}
	return newAppError(code, message, err)
}

func (e *AppError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("[%s] %s", e.code, e.message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
}

func (e *AppError) Code() ErrorCode         { return e.code }
func (e *AppError) Message() string         { return e.message }
func (e *AppError) Cause() error            { return e.cause }
func (e *AppError) Details() map[string]any { return e.details }
func (e *AppError) Stack() string           { return e.stack }
func (e *AppError) Status() int             { return StatusOf(e.code) }
func (e *AppError) Unwrap() error           { return e.cause }

func (e *AppError) Operational() bool {
	return e.Status() < http.StatusInternalServerError
}

// Is 同代码的 AppError 视为相等
func (e *AppError) Is(target error) bool {
	var other *AppError
	if stdErrors.As(target, &other) {
		return e.code == other.code
	}
	return false
}

func (e *AppError) WithDetails(details map[string]any) IError {
	cp := *e
	cp.details = make(map[string]any, len(e.details)+len(details))
	maps.Copy(cp.details, e.details)
	maps.Copy(cp.details, details)
	return &cp
}

// 仅用于 errors.Is 比较
var (
	ErrInternal        = NewError(ErrCodeInternal, "internal error")
	ErrInvalidInput    = NewError(ErrCodeInvalidInput, "invalid input")
	ErrNotFound        = NewError(ErrCodeNotFound, "resource not found")
	ErrTimeout         = NewError(ErrCodeTimeout, "operation timed out")
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "too many requests")
	ErrValidation      = NewError(ErrCodeValidation, "validation failed")
	ErrDuplicate       = NewError(ErrCodeDuplicate, "duplicate value")
	ErrDatabase        = NewError(ErrCodeDatabase, "database error")
)

func IsNotFound(err error) bool   { return GetErrorCode(err) == ErrCodeNotFound }
func IsValidation(err error) bool { return GetErrorCode(err) == ErrCodeValidation }
func IsDuplicate(err error) bool  { return GetErrorCode(err) == ErrCodeDuplicate }

// GetErrorCode 返回错误链上第一个 AppError 的代码；普通错误视为内部错误
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr.code
	}
	return ErrCodeInternal
}

// AsAppError 提取错误链上的 AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := stdErrors.As(err, &appErr)
	return appErr, ok
}

func captureStack() string {
	var pcs [32]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var sb strings.Builder
	for {
		f, more := frames.Next()
		fmt.Fprintf(&sb, "%s:%d %s\n", f.File, f.Line, f.Function)
		if !more {
			return sb.String()
		}
	}
}
