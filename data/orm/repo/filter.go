package repo

import (
	"fmt"
	"reflect"
	"strconv"

	"natours/data/orm"
)

// convertFilterValue 按字段类型转换查询串中的值
func convertFilterValue(t reflect.Type, raw string) (any, error) {
	if fv, ok := filterValueOf(t); ok {
		return fv.ParseFilter(raw)
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
		if fv, ok := filterValueOf(t); ok {
			return fv.ParseFilter(raw)
		}
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.ParseInt(raw, 10, 64)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.ParseUint(raw, 10, 64)
	case reflect.Float32, reflect.Float64:
		return strconv.ParseFloat(raw, 64)
	case reflect.Bool:
		return strconv.ParseBool(raw)
	case reflect.String:
		return raw, nil
	default:
		return nil, fmt.Errorf("%s values cannot be filtered", t)
	}
}

// filterable 字段类型是否支持过滤
func filterable(t reflect.Type) bool {
	if _, ok := filterValueOf(t); ok {
		return true
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
		if _, ok := filterValueOf(t); ok {
			return true
		}
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct, reflect.Interface:
		return false
	default:
		return true
	}
}

func filterValueOf(t reflect.Type) (orm.IFilterValue, bool) {
	if t.Implements(filterValueType) {
		fv, ok := reflect.Zero(t).Interface().(orm.IFilterValue)
		return fv, ok && t.Kind() != reflect.Ptr
	}
	if reflect.PointerTo(t).Implements(filterValueType) {
		fv, ok := reflect.New(t).Interface().(orm.IFilterValue)
		return fv, ok
	}
	return nil, false
}

var filterValueType = reflect.TypeOf((*orm.IFilterValue)(nil)).Elem()
