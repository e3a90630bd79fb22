package errors

import (
	"context"
	"database/sql"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"strings"
)

// Normalize 将基础设施层的错误规范化为 AppError。
//
// 已经是 IError 的错误原样返回；未识别的错误也原样返回，由调用方决定是否 Wrap。
func Normalize(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := err.(IError); ok {
		return err
	}

	if stdErrors.Is(err, sql.ErrNoRows) {
		return WrapError(err, ErrCodeNotFound, "record not found")
	}

	if stdErrors.Is(err, context.DeadlineExceeded) {
		return WrapError(err, ErrCodeTimeout, "operation timed out")
	}

	// sqlite: "UNIQUE constraint failed: tours.name"
	msg := err.Error()
	if idx := strings.Index(strings.ToLower(msg), "unique constraint failed"); idx >= 0 {
		field := strings.TrimSpace(msg[idx+len("unique constraint failed"):])
		field = strings.TrimPrefix(field, ":")
		field = strings.TrimSpace(field)
		if dot := strings.LastIndex(field, "."); dot >= 0 {
			field = field[dot+1:]
		}
		if end := strings.IndexAny(field, " ,)"); end >= 0 {
			field = field[:end]
		}
		return WrapError(err, ErrCodeDuplicate, fmt.Sprintf("Duplicate field value: %s. Please use another value", field))
	}

	var syntaxErr *json.SyntaxError
	if stdErrors.As(err, &syntaxErr) {
		return WrapError(err, ErrCodeInvalidInput, "Invalid JSON body")
	}

	var typeErr *json.UnmarshalTypeError
	if stdErrors.As(err, &typeErr) {
		return WrapError(err, ErrCodeInvalidInput, "Invalid "+typeErr.Field+": "+typeErr.Value)
	}

	return err
}
