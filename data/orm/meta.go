package orm

import (
	"database/sql"
	"database/sql/driver"
	"reflect"
	"strings"
	"unicode"
)

// FieldMeta 描述字段元信息。
//
// Name 为对外（JSON）字段名，Column 为数据库列名。
// Hidden 字段（json:"-"）可以持久化，但不能被查询、排序或投影。
type FieldMeta struct {
	Name       string
	Column     string
	Type       reflect.Type
	Index      []int
	PrimaryKey bool
	Hidden     bool
}

// ModelMeta 描述模型级别元信息。
type ModelMeta struct {
	Model  any
	Table  string
	Fields []FieldMeta
	Tags   map[string]string

	byName   map[string]int
	byColumn map[string]int
}

// Tag 返回模型级别的标签内容。
func (m *ModelMeta) Tag(key string) string {
	if m == nil || m.Tags == nil {
		return ""
	}
	return m.Tags[key]
}

// NewModelMeta 从结构体标签构建元信息，table 为空时尝试调用 TableName()。
//
// 列名取 db 标签，缺省为字段名的蛇形形式；db:"-" 的字段不持久化。
// 字段名取 json 标签，json:"-" 的字段标记为 Hidden。
// 匿名嵌入且不实现 driver.Valuer 的结构体会被展开。
func NewModelMeta(model any, table string) *ModelMeta {
	t := reflect.TypeOf(model)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if table == "" {
		table, _ = tableNameOf(model)
	}
	m := &ModelMeta{Model: model, Table: table}
	if t != nil && t.Kind() == reflect.Struct {
		m.Fields = collectFields(t, nil)
	}
	m.index()
	return m
}

func (m *ModelMeta) index() {
	m.byName = make(map[string]int, len(m.Fields))
	m.byColumn = make(map[string]int, len(m.Fields))
	for i, f := range m.Fields {
		// 内层定义覆盖外层同名字段
		m.byName[f.Name] = i
		m.byColumn[f.Column] = i
	}
}

// FieldByName 按对外字段名查找
func (m *ModelMeta) FieldByName(name string) (FieldMeta, bool) {
	if m.byName == nil {
		m.index()
	}
	i, ok := m.byName[name]
	if !ok {
		return FieldMeta{}, false
	}
	return m.Fields[i], true
}

// FieldByColumn 按列名查找
func (m *ModelMeta) FieldByColumn(column string) (FieldMeta, bool) {
	if m.byColumn == nil {
		m.index()
	}
	i, ok := m.byColumn[column]
	if !ok {
		return FieldMeta{}, false
	}
	return m.Fields[i], true
}

// VisibleNames 非隐藏字段的对外名称，按声明顺序
func (m *ModelMeta) VisibleNames() []string {
	out := make([]string, 0, len(m.Fields))
	for _, f := range m.Fields {
		if !f.Hidden {
			out = append(out, f.Name)
		}
	}
	return out
}

// PrimaryKey 主键字段
func (m *ModelMeta) PrimaryKey() (FieldMeta, bool) {
	for _, f := range m.Fields {
		if f.PrimaryKey {
			return f, true
		}
	}
	return FieldMeta{}, false
}

var (
	valuerType  = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
)

// IsCustomType 类型自行实现持久化
func IsCustomType(t reflect.Type) bool {
	return t.Implements(valuerType) || reflect.PointerTo(t).Implements(scannerType)
}

func collectFields(t reflect.Type, prefix []int) []FieldMeta {
	var out []FieldMeta
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		index := append(append([]int(nil), prefix...), i)

		if f.Anonymous && f.Type.Kind() == reflect.Struct && !IsCustomType(f.Type) {
			out = append(out, collectFields(f.Type, index)...)
			continue
		}

		column := f.Tag.Get("db")
		if column == "-" {
			continue
		}
		if !isPersistable(f.Type) {
			continue
		}
		if column == "" {
			column = toSnakeCase(f.Name)
		}

		name, hidden := jsonName(f)
		out = append(out, FieldMeta{
			Name:       name,
			Column:     column,
			Type:       f.Type,
			Index:      index,
			PrimaryKey: column == "id",
			Hidden:     hidden,
		})
	}
	return out
}

func isPersistable(t reflect.Type) bool {
	if IsCustomType(t) {
		return true
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
		if IsCustomType(t) {
			return true
		}
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func jsonName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("json")
	name := strings.Split(tag, ",")[0]
	if name == "-" {
		return lowerFirst(f.Name), true
	}
	if name == "" {
		return f.Name, false
	}
	return name, false
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func toSnakeCase(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			sb.WriteByte('_')
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}

func tableNameOf(model any) (string, bool) {
	if model == nil {
		return "", false
	}
	if tn, ok := model.(interface{ TableName() string }); ok {
		return tn.TableName(), true
	}
	t := reflect.TypeOf(model)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if tn, ok := reflect.New(t).Interface().(interface{ TableName() string }); ok {
		return tn.TableName(), true
	}
	return "", false
}

// IFilterValue 自定义类型将查询串中的原始值转换为可比较的存储值
type IFilterValue interface {
	ParseFilter(raw string) (any, error)
}
