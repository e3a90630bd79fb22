package tour

import "natours/validation"

const propertiesDoc = `{
	"name":            {"type": "string"},
	"duration":        {"type": "integer"},
	"maxGroupSize":    {"type": "integer"},
	"difficulty":      {"type": "string"},
	"ratingsAverage":  {"type": "number"},
	"ratingsQuantity": {"type": "integer", "minimum": 0},
	"price":           {"type": "number"},
	"priceDiscount":   {"type": ["number", "null"]},
	"summary":         {"type": "string"},
	"description":     {"type": "string"},
	"imageCover":      {"type": "string"},
	"images":          {"type": "array", "items": {"type": "string"}},
	"startDates":      {"type": "array", "items": {"type": ["string", "number"]}},
	"secretTour":      {"type": "boolean"}
}`

// CreateSchema 创建请求体的结构校验，必填与取值规则由 Validate 负责
var CreateSchema = validation.MustCompile(`{
	"type": "object",
	"properties": ` + propertiesDoc + `
}`)

// PatchSchema 部分更新请求体，至少包含一个字段
var PatchSchema = validation.MustCompile(`{
	"type": "object",
	"minProperties": 1,
	"properties": ` + propertiesDoc + `
}`)
