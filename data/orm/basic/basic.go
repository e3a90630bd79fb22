// Package basic 基于 data/db 与 data/db/sql 的轻量 IOrm 实现
package basic

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	dbcore "natours/data/db"
	dbsql "natours/data/db/sql"
	"natours/data/orm"
)

// Orm 直接在 DB 抽象之上工作，字段映射全部来自 orm.ModelMeta。
type Orm struct {
	db  dbcore.IDatabase
	sql dbsql.ISql
}

// New 创建一个基于指定 IDatabase 的 Orm 适配器。
func New(db dbcore.IDatabase) *Orm {
	return &Orm{db: db, sql: dbsql.New(db)}
}

// Model 返回模型级操作入口，meta 未包含字段时从 meta.Model 反射生成。
func (o *Orm) Model(meta *orm.ModelMeta) orm.IModel {
	if meta == nil {
		panic("basic.Orm: ModelMeta cannot be nil")
	}
	if len(meta.Fields) == 0 && meta.Model != nil {
		meta = orm.NewModelMeta(meta.Model, meta.Table)
	}
	if meta.Table == "" {
		panic("basic.Orm: table name is empty")
	}
	return &model{orm: o, meta: meta}
}

// Begin 开启事务会话。
func (o *Orm) Begin(ctx context.Context) (orm.IOrmSession, error) {
	return o.BeginTx(ctx, nil)
}

// BeginTx 开启带选项的事务会话。
func (o *Orm) BeginTx(ctx context.Context, opts *sql.TxOptions) (orm.IOrmSession, error) {
	tx, err := o.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &session{Orm: New(tx), tx: tx}, nil
}

// Database 返回底层数据库抽象。
func (o *Orm) Database() dbcore.IDatabase { return o.db }

// session 实现 IOrmSession，委托给绑定事务的 Orm。
type session struct {
	*Orm
	tx dbcore.ITransaction
}

// Commit 提交事务。
func (s *session) Commit() error { return s.tx.Commit() }

// Rollback 回滚事务。
func (s *session) Rollback() error { return s.tx.Rollback() }

type model struct {
	orm  *Orm
	meta *orm.ModelMeta
}

func (m *model) Meta() *orm.ModelMeta { return m.meta }

func (m *model) quote(column string) string {
	return m.orm.sql.Dialect().QuoteIdentifier(column)
}

// selectBuilder 按 QueryOptions 构建 SELECT
func (m *model) selectBuilder(qo orm.QueryOptions) dbsql.ISelectBuilder {
	columns := qo.Select
	if len(columns) == 0 {
		columns = make([]string, 0, len(m.meta.Fields))
		for _, f := range m.meta.Fields {
			columns = append(columns, f.Column)
		}
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = m.quote(c)
	}

	builder := m.orm.sql.Select(quoted...).From(m.meta.Table)
	for _, w := range qo.Where {
		builder = builder.Where(w.Expr, w.Args...)
	}
	if len(qo.OrderBy) > 0 {
		exprs := make([]string, 0, len(qo.OrderBy))
		for _, o := range qo.OrderBy {
			dir := " ASC"
			if o.Desc {
				dir = " DESC"
			}
			exprs = append(exprs, m.quote(o.Column)+dir)
		}
		builder = builder.OrderBy(exprs...)
	}
	if qo.Limit > 0 {
		builder = builder.Limit(qo.Limit)
	}
	if qo.Offset > 0 {
		builder = builder.Offset(qo.Offset)
	}
	return builder
}

// First 查询单条记录。
func (m *model) First(ctx context.Context, dest any, opts ...orm.QueryOption) error {
	qo := orm.CollectQueryOptions(opts...)
	qo.Limit = 1

	rows, err := m.selectBuilder(qo).Query(ctx)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return orm.ErrNotFound
	}
	return scanRowsIntoDest(rows, dest, m.meta)
}

// Find 查询多条记录，dest 为 *[]T 或 *[]*T。
func (m *model) Find(ctx context.Context, dest any, opts ...orm.QueryOption) error {
	rows, err := m.selectBuilder(orm.CollectQueryOptions(opts...)).Query(ctx)
	if err != nil {
		return err
	}
	defer rows.Close()
	return scanRowsIntoDest(rows, dest, m.meta)
}

// Count 统计数量（忽略 Select/OrderBy/Limit）。
func (m *model) Count(ctx context.Context, opts ...orm.QueryOption) (int64, error) {
	qo := orm.CollectQueryOptions(opts...)

	builder := m.orm.sql.Select("COUNT(*)").From(m.meta.Table)
	for _, w := range qo.Where {
		builder = builder.Where(w.Expr, w.Args...)
	}

	var count int64
	if err := builder.QueryRow(ctx).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Create 插入记录（支持批量），所有实体须为同一类型。
func (m *model) Create(ctx context.Context, entities ...any) error {
	if len(entities) == 0 {
		return nil
	}

	cols := make([]string, len(m.meta.Fields))
	for i, f := range m.meta.Fields {
		cols[i] = f.Column
	}
	builder := m.orm.sql.InsertInto(m.meta.Table).Columns(cols...)

	for _, e := range entities {
		val, err := structValue(e)
		if err != nil {
			return fmt.Errorf("basic.Model.Create: %w", err)
		}
		rowVals := make([]any, len(m.meta.Fields))
		for i, f := range m.meta.Fields {
			rowVals[i] = fieldValue(val, f.Index)
		}
		builder = builder.Values(rowVals...)
	}

	_, err := builder.Exec(ctx)
	return err
}

// Save 更新全部非主键列。
func (m *model) Save(ctx context.Context, entity any, opts ...orm.QueryOption) (int64, error) {
	val, err := structValue(entity)
	if err != nil {
		return 0, fmt.Errorf("basic.Model.Save: %w", err)
	}

	qo := orm.CollectQueryOptions(opts...)
	if len(qo.Where) == 0 {
		return 0, fmt.Errorf("basic.Model.Save: update without where is not allowed")
	}

	builder := m.orm.sql.Update(m.meta.Table)
	for _, f := range m.meta.Fields {
		if f.PrimaryKey {
			continue
		}
		builder = builder.Set(f.Column, fieldValue(val, f.Index))
	}
	for _, w := range qo.Where {
		builder = builder.Where(w.Expr, w.Args...)
	}
	return rowsAffected(builder.Exec(ctx))
}

// Delete 根据 QueryOptions 删除记录，删除全部须显式传入 "1 = 1"。
func (m *model) Delete(ctx context.Context, opts ...orm.QueryOption) (int64, error) {
	qo := orm.CollectQueryOptions(opts...)
	if len(qo.Where) == 0 {
		return 0, fmt.Errorf("basic.Orm: delete without where is not allowed")
	}

	builder := m.orm.sql.DeleteFrom(m.meta.Table)
	for _, w := range qo.Where {
		builder = builder.Where(w.Expr, w.Args...)
	}
	if qo.Limit > 0 && m.orm.sql.Dialect().SupportsDeleteLimit() {
		builder = builder.Limit(qo.Limit)
	}
	return rowsAffected(builder.Exec(ctx))
}

func rowsAffected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func structValue(v any) (reflect.Value, error) {
	val := reflect.ValueOf(v)
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return reflect.Value{}, fmt.Errorf("nil entity %T", v)
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("entity must be struct or *struct, got %T", v)
	}
	return val, nil
}

func fieldValue(v reflect.Value, index []int) any {
	fv := fieldByIndexSafe(v, index, false)
	if !fv.IsValid() {
		return nil
	}
	return fv.Interface()
}

// scanRowsIntoDest 将 rows 扫描到 dest 中。
// dest 为 *T 时扫描当前行（调用方已 Next），为 *[]T 或 *[]*T 时遍历全部行。
func scanRowsIntoDest(rows dbcore.IRows, dest any, meta *orm.ModelMeta) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("basic.scanRowsIntoDest: dest must be non-nil pointer")
	}

	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	elem := rv.Elem()
	switch elem.Kind() {
	case reflect.Slice:
		elemType := elem.Type().Elem()
		isPtr := elemType.Kind() == reflect.Ptr
		if isPtr {
			elemType = elemType.Elem()
		}
		for rows.Next() {
			item := reflect.New(elemType)
			if err := scanOneRow(rows, cols, item.Elem(), meta); err != nil {
				return err
			}
			if isPtr {
				elem.Set(reflect.Append(elem, item))
			} else {
				elem.Set(reflect.Append(elem, item.Elem()))
			}
		}
		return rows.Err()
	case reflect.Struct:
		return scanOneRow(rows, cols, elem, meta)
	default:
		return fmt.Errorf("basic.scanRowsIntoDest: unsupported dest element kind %s", elem.Kind())
	}
}

func scanOneRow(rows dbcore.IRows, cols []string, v reflect.Value, meta *orm.ModelMeta) error {
	destPtrs := make([]any, len(cols))
	for i, col := range cols {
		f, ok := meta.FieldByColumn(strings.Trim(col, "\"`"))
		if !ok {
			var tmp any
			destPtrs[i] = &tmp
			continue
		}
		fv := fieldByIndexSafe(v, f.Index, true)
		if !fv.IsValid() || !fv.CanSet() {
			var tmp any
			destPtrs[i] = &tmp
			continue
		}
		destPtrs[i] = fv.Addr().Interface()
	}
	return rows.Scan(destPtrs...)
}

// fieldByIndexSafe alloc 为 true 时为嵌入的 nil 指针分配零值
func fieldByIndexSafe(v reflect.Value, index []int, alloc bool) reflect.Value {
	for _, i := range index {
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				if !alloc || !v.CanSet() {
					return reflect.Value{}
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct || i < 0 || i >= v.NumField() {
			return reflect.Value{}
		}
		v = v.Field(i)
	}
	return v
}
