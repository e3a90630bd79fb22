package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natours/errors"
)

func TestParseValues_Brackets(t *testing.T) {
	req := ParseValues(url.Values{
		"price[gte]": {"1200"},
		"price[lt]":  {"2000"},
		"duration":   {"5", "7"},
		"bad[]":      {"x"},
	})

	require.Contains(t, req, "price")
	assert.Equal(t, map[string]string{"gte": "1200", "lt": "2000"}, req["price"].Ops)

	v, ok := req.Get("duration")
	assert.True(t, ok)
	assert.Equal(t, "7", v)

	_, ok = req["bad[]"]
	assert.True(t, ok)
}

func TestRequest_FilterKeysSkipsControlKeys(t *testing.T) {
	req, err := ParseQuery("page=2&sort=-price&limit=3&fields=name&difficulty=easy&duration[gte]=5")
	require.NoError(t, err)
	assert.Equal(t, []string{"difficulty", "duration"}, req.FilterKeys())
}

func TestPreset_ApplyOverridesWithoutMutating(t *testing.T) {
	req, err := ParseQuery("limit=50&difficulty=easy")
	require.NoError(t, err)

	preset := Preset{KeyLimit: "5", KeySort: "-ratingsAverage,price"}
	out := preset.Apply(req)

	limit, _ := out.Get(KeyLimit)
	assert.Equal(t, "5", limit)
	sortSpec, _ := out.Get(KeySort)
	assert.Equal(t, "-ratingsAverage,price", sortSpec)
	difficulty, _ := out.Get("difficulty")
	assert.Equal(t, "easy", difficulty)

	original, _ := req.Get(KeyLimit)
	assert.Equal(t, "50", original)
}

func TestBuildCriteria(t *testing.T) {
	req, err := ParseQuery("duration=5&price[gte]=100&price=500")
	require.NoError(t, err)

	criteria, err := BuildCriteria(req)
	require.NoError(t, err)
	assert.Equal(t, Criteria{
		{Field: "duration", Op: OpEq, Value: "5"},
		{Field: "price", Op: OpEq, Value: "500"},
		{Field: "price", Op: OpGte, Value: "100"},
	}, criteria)
}

func TestRewriteOperator(t *testing.T) {
	for token, want := range map[string]Operator{"gte": OpGte, "gt": OpGt, "lte": OpLte, "lt": OpLt} {
		got, ok := RewriteOperator(token)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := RewriteOperator("gtx")
	assert.False(t, ok)
	assert.Equal(t, ">=", OpGte.SQL())
	assert.Equal(t, "=", OpEq.SQL())
}

func TestParseSort(t *testing.T) {
	keys, err := ParseSort("-ratingsAverage, price")
	require.NoError(t, err)
	assert.Equal(t, []SortKey{{Field: "ratingsAverage", Desc: true}, {Field: "price"}}, keys)

	_, err = ParseSort(",")
	assert.Error(t, err)
	_, err = ParseSort("-")
	assert.Error(t, err)
}

func TestParseFields(t *testing.T) {
	p, err := ParseFields("name,price")
	require.NoError(t, err)
	assert.Equal(t, Projection{Fields: []string{"name", "price"}}, p)

	p, err = ParseFields("-__v,-summary")
	require.NoError(t, err)
	assert.True(t, p.Exclude)

	_, err = ParseFields("name,-price")
	assert.True(t, errors.IsValidation(err))
}

func TestProjection_Resolve(t *testing.T) {
	available := []string{"id", "name", "price", "__v"}

	got, err := Projection{Fields: []string{"price", "name"}}.Resolve(available)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "price"}, got)

	got, err = Projection{Fields: []string{"__v", "id"}, Exclude: true}.Resolve(available)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "price"}, got)

	_, err = Projection{Fields: []string{"secret"}}.Resolve(available)
	assert.True(t, errors.IsValidation(err))
}

func TestShape_KeepsListedKeys(t *testing.T) {
	doc := map[string]any{"id": "1", "name": "A", "duration": 14, "durationWeeks": 2.0, "price": 10}

	got := Shape(doc, []string{"id", "duration", "durationWeeks"})
	assert.Equal(t, map[string]any{"id": "1", "duration": 14, "durationWeeks": 2.0}, got)

	got = Shape(doc, []string{"id", "name", "missing"})
	assert.Equal(t, map[string]any{"id": "1", "name": "A"}, got)

	assert.Equal(t, doc, Shape(doc, nil))
}

func TestToDocument_KeepsJSONNames(t *testing.T) {
	type rec struct {
		ID     int64   `json:"id,string"`
		Price  float64 `json:"price"`
		Hidden string  `json:"-"`
	}
	doc, err := ToDocument(rec{ID: 9007199254740993, Price: 497, Hidden: "x"})
	require.NoError(t, err)
	assert.Equal(t, "9007199254740993", doc["id"])
	assert.Equal(t, "497", doc["price"].(interface{ String() string }).String())
	assert.NotContains(t, doc, "Hidden")
}
