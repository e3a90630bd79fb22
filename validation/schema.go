package validation

import (
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"

	"natours/errors"
)

// Schema 预编译的 JSON Schema，用于在解码前检查请求体的结构和类型
type Schema struct {
	schema *gojsonschema.Schema
}

// Compile 编译 schema 文档
func Compile(doc string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

// MustCompile 编译失败时 panic，用于包级变量
func MustCompile(doc string) *Schema {
	s, err := Compile(doc)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate 校验原始 JSON，结构不符时返回校验错误，信息按字段排序
func (s *Schema) Validate(body []byte) error {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return errors.NewErrorWithCause(errors.ErrCodeInvalidInput, "Invalid JSON body", err)
	}
	if result.Valid() {
		return nil
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		field := re.Field()
		if field == "(root)" {
			field = "body"
		}
		messages = append(messages, fmt.Sprintf("Invalid %s: %s", field, re.Description()))
	}
	sort.Strings(messages)
	return errors.NewValidationError(messages...)
}
