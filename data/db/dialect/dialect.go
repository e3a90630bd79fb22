// Package dialect 各数据库在标识符引用、占位符和 DELETE LIMIT 上的差异
package dialect

import (
	"strconv"
	"strings"

	core "natours/data/db"
)

// Name 标准化的方言名称
type Name string

const (
	NameMySQL    Name = "mysql"
	NameSQLite   Name = "sqlite"
	NamePostgres Name = "postgres"
	NameUnknown  Name = ""
)

type traits struct {
	quote       string // 空串表示不引用
	numbered    bool   // $1, $2 ... 占位符
	deleteLimit bool
}

var (
	known = map[Name]traits{
		NameMySQL:    {quote: "`", deleteLimit: true},
		NameSQLite:   {quote: `"`},
		NamePostgres: {quote: `"`, numbered: true},
	}
	aliases = map[string]Name{
		"mysql":      NameMySQL,
		"sqlite":     NameSQLite,
		"sqlite3":    NameSQLite,
		"postgres":   NamePostgres,
		"postgresql": NamePostgres,
		"pgx":        NamePostgres,
	}
)

// Dialect 值类型，零值为 Unknown：不引用标识符，保留 ? 占位符
type Dialect struct {
	name Name
	traits
}

// New 按驱动名构造，大小写不敏感，未知名称得到 Unknown
func New(driver string) Dialect {
	name := aliases[strings.ToLower(strings.TrimSpace(driver))]
	return Dialect{name: name, traits: known[name]}
}

// FromDatabase 依据 IDialectNameProvider 推断
func FromDatabase(db core.IDatabase) Dialect {
	if p, ok := db.(core.IDialectNameProvider); ok {
		return New(p.GetDialectName())
	}
	return Dialect{}
}

func (d Dialect) Name() Name { return d.name }

// QuoteIdentifier "tours.price" 逐段引用为 "tours"."price"
func (d Dialect) QuoteIdentifier(name string) string {
	if name == "" || d.quote == "" {
		return name
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p != "" {
			parts[i] = d.quote + p + d.quote
		}
	}
	return strings.Join(parts, ".")
}

// Rebind 把 ? 换成方言占位符。不识别字符串字面量，SQL 文本里不能有字面 ?
func (d Dialect) Rebind(query string) string {
	if !d.numbered || !strings.Contains(query, "?") {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r != '?' {
			sb.WriteRune(r)
			continue
		}
		n++
		sb.WriteByte('$')
		sb.WriteString(strconv.Itoa(n))
	}
	return sb.String()
}

// SupportsDeleteLimit sqlite 的 DELETE ... LIMIT 依赖编译选项，按不支持处理
func (d Dialect) SupportsDeleteLimit() bool { return d.deleteLimit }
