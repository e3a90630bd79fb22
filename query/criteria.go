package query

import (
	"fmt"
	"sort"

	"natours/errors"
)

// Operator 比较操作符，带 $ 前缀以区别于字段名
type Operator string

const (
	OpEq  Operator = "$eq"
	OpGte Operator = "$gte"
	OpGt  Operator = "$gt"
	OpLte Operator = "$lte"
	OpLt  Operator = "$lt"
)

// rangeTokens 查询串中的比较标记
var rangeTokens = map[string]Operator{
	"gte": OpGte,
	"gt":  OpGt,
	"lte": OpLte,
	"lt":  OpLt,
}

// SQL 对应的 SQL 比较符
func (o Operator) SQL() string {
	switch o {
	case OpGte:
		return ">="
	case OpGt:
		return ">"
	case OpLte:
		return "<="
	case OpLt:
		return "<"
	default:
		return "="
	}
}

// Condition 单个过滤条件
type Condition struct {
	Field string
	Op    Operator
	Value string
}

// Criteria 条件的合取
type Criteria []Condition

// RewriteOperator 将 gte/gt/lte/lt 改写为 $gte/$gt/$lte/$lt
func RewriteOperator(token string) (Operator, bool) {
	op, ok := rangeTokens[token]
	return op, ok
}

// BuildCriteria 去除控制参数后生成过滤条件，按字段、操作符排序
func BuildCriteria(req Request) (Criteria, error) {
	var criteria Criteria
	for _, key := range req.FilterKeys() {
		p := req[key]
		if v, ok := p.Last(); ok {
			criteria = append(criteria, Condition{Field: key, Op: OpEq, Value: v})
		}

		tokens := make([]string, 0, len(p.Ops))
		for token := range p.Ops {
			tokens = append(tokens, token)
		}
		sort.Strings(tokens)
		for _, token := range tokens {
			op, ok := RewriteOperator(token)
			if !ok {
				return nil, errors.NewError(errors.ErrCodeInvalidInput,
					fmt.Sprintf("Invalid operator %q on field %s", token, key))
			}
			criteria = append(criteria, Condition{Field: key, Op: op, Value: p.Ops[token]})
		}
	}
	return criteria, nil
}
