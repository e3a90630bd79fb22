package orm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectQueryOptions(t *testing.T) {
	qo := CollectQueryOptions(
		WithWhere("price < ?", 500),
		WithWhere(""),
		WithOrderBy("price", true),
		WithOrderBy("", false),
		WithLimit(0),
		WithLimit(5),
		WithOffset(-1),
		WithSelect("name", "price"),
		nil,
	)

	assert.Equal(t, []Condition{{Expr: "price < ?", Args: []any{500}}}, qo.Where)
	assert.Equal(t, []OrderBy{{Column: "price", Desc: true}}, qo.OrderBy)
	assert.Equal(t, 5, qo.Limit)
	assert.Zero(t, qo.Offset)
	assert.Equal(t, []string{"name", "price"}, qo.Select)
}

func TestCollectQueryOptions_Empty(t *testing.T) {
	assert.Equal(t, QueryOptions{}, CollectQueryOptions())
}
