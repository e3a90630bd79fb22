package query

import (
	"context"
	"fmt"
	"sort"
	"strconv"
)

// memoryQuery 基于内存记录的 IComposableQuery，用于验证构建器语义
type memoryQuery struct {
	fields  []string
	records []map[string]any

	criteria Criteria
	keys     []SortKey
	selected []string
	skip     int
	limit    int

	calls []string
}

func newMemoryQuery(fields []string, records ...map[string]any) *memoryQuery {
	return &memoryQuery{fields: fields, records: records}
}

func (q *memoryQuery) known(field string) bool {
	for _, f := range q.fields {
		if f == field {
			return true
		}
	}
	return false
}

func (q *memoryQuery) ApplyFilter(criteria Criteria) error {
	q.calls = append(q.calls, "filter")
	for _, c := range criteria {
		if !q.known(c.Field) {
			return fmt.Errorf("unknown field %s", c.Field)
		}
	}
	q.criteria = criteria
	return nil
}

func (q *memoryQuery) ApplySort(keys []SortKey) error {
	q.calls = append(q.calls, "sort")
	q.keys = keys
	return nil
}

func (q *memoryQuery) SelectFields(p Projection) error {
	q.calls = append(q.calls, "fields")
	selected, err := p.Resolve(q.fields)
	if err != nil {
		return err
	}
	q.selected = selected
	return nil
}

func (q *memoryQuery) ApplyOffsetLimit(skip, limit int) {
	q.calls = append(q.calls, "paginate")
	q.skip, q.limit = skip, limit
}

func (q *memoryQuery) Count(ctx context.Context) (int64, error) {
	return int64(len(q.matching())), nil
}

func (q *memoryQuery) matching() []map[string]any {
	var out []map[string]any
	for _, r := range q.records {
		if q.match(r) {
			out = append(out, r)
		}
	}
	return out
}

func (q *memoryQuery) match(r map[string]any) bool {
	for _, c := range q.criteria {
		v, ok := r[c.Field]
		if !ok {
			return false
		}
		cmp := compare(v, c.Value)
		switch c.Op {
		case OpEq:
			if cmp != 0 {
				return false
			}
		case OpGte:
			if cmp < 0 {
				return false
			}
		case OpGt:
			if cmp <= 0 {
				return false
			}
		case OpLte:
			if cmp > 0 {
				return false
			}
		case OpLt:
			if cmp >= 0 {
				return false
			}
		}
	}
	return true
}

func compare(v any, raw string) int {
	switch x := v.(type) {
	case int:
		n, _ := strconv.ParseFloat(raw, 64)
		return cmpFloat(float64(x), n)
	case float64:
		n, _ := strconv.ParseFloat(raw, 64)
		return cmpFloat(x, n)
	default:
		s := fmt.Sprint(x)
		switch {
		case s < raw:
			return -1
		case s > raw:
			return 1
		}
		return 0
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareValues(a, b any) int {
	return compare(a, fmt.Sprint(b))
}

// exec 执行查询
func (q *memoryQuery) exec() []map[string]any {
	rows := q.matching()
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range q.keys {
			c := compareValues(rows[i][k.Field], rows[j][k.Field])
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	if q.skip >= len(rows) {
		rows = nil
	} else {
		rows = rows[q.skip:]
	}
	if q.limit > 0 && q.limit < len(rows) {
		rows = rows[:q.limit]
	}
	if q.selected == nil {
		return rows
	}
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = Shape(r, q.selected)
	}
	return out
}
