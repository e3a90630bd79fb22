package store

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"natours/data/orm"
	"natours/data/orm/repo"
	"natours/domain/crud"
	"natours/domain/entity"
	"natours/domain/tour"
	"natours/errors"
	"natours/logging"
	"natours/query"
)

// Tours 线路存储，秘密线路对所有读取、按 ID 更新删除和报表都不可见
type Tours struct {
	repo   *repo.Repo[tour.Tour, *tour.Tour]
	cfg    config
	logger logging.Logger
}

var (
	_ tour.IRepository                         = (*Tours)(nil)
	_ crud.IBatchOperations[*tour.Tour, int64] = (*Tours)(nil)
)

// NewTours 创建线路存储
func NewTours(o orm.IOrm, opts ...Option) *Tours {
	cfg := newConfig(opts)
	ropts := append(cfg.repoOptions(tour.NotFoundMessage), repo.WithDefaultWhere("secret_tour = ?", false))
	return &Tours{
		repo:   repo.NewRepo[tour.Tour, *tour.Tour](o, tour.Tour{}.TableName(), ropts...),
		cfg:    cfg,
		logger: cfg.logger,
	}
}

// Create 新增，名称重复时返回重复值错误
func (s *Tours) Create(ctx context.Context, t *tour.Tour) error {
	return duplicate(s.repo.Create(ctx, t), t.Name)
}

// Get 按 ID 查找
func (s *Tours) Get(ctx context.Context, id int64) (*tour.Tour, error) {
	return s.repo.Get(ctx, id)
}

// Update 覆盖写入
func (s *Tours) Update(ctx context.Context, t *tour.Tour) error {
	return duplicate(s.repo.Update(ctx, t), t.Name)
}

// Delete 按 ID 删除
func (s *Tours) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Count 可见线路数
func (s *Tours) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// Find 执行查询特性构建器
func (s *Tours) Find(ctx context.Context, req query.Request) ([]*tour.Tour, []string, error) {
	return find[*tour.Tour](ctx, newTourQuery(s.repo.NewQuery()), req, s.cfg.query)
}

// CreateAll 单个事务内批量插入
func (s *Tours) CreateAll(ctx context.Context, tours []*tour.Tour) error {
	return s.repo.CreateAll(ctx, tours)
}

// DeleteAll 删除全部线路，包括秘密线路
func (s *Tours) DeleteAll(ctx context.Context) (int64, error) {
	return s.repo.DeleteAll(ctx)
}

// Stats 评分不低于 4.5 的线路按难度分组统计，按平均价格倒序
func (s *Tours) Stats(ctx context.Context) ([]tour.Stats, error) {
	b := s.repo.Sql().Select(
		"UPPER(difficulty)",
		"COUNT(*)",
		"COALESCE(SUM(ratings_quantity), 0)",
		"AVG(ratings_average)",
		"AVG(price)",
		"MIN(price)",
		"MAX(price)",
	).From(tour.Tour{}.TableName()).
		Where("ratings_average >= ?", tour.StatsMinRating).
		And("secret_tour = ?", false).
		GroupBy("UPPER(difficulty)").
		OrderBy("AVG(price) DESC", "UPPER(difficulty) ASC")

	start := time.Now()
	rows, err := b.Query(ctx)
	if err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "tour stats")
	}
	defer rows.Close()

	out := []tour.Stats{}
	for rows.Next() {
		var st tour.Stats
		if err := rows.Scan(&st.ID, &st.NumTours, &st.NumRatings, &st.AvgRating, &st.AvgPrice, &st.MinPrice, &st.MaxPrice); err != nil {
			return nil, errors.WrapDatabaseError(ctx, err, "tour stats")
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "tour stats")
	}
	s.logger.Debug(ctx, "tour stats",
		logging.Int("groups", len(out)),
		logging.Duration("elapsed", time.Since(start)))
	return out, nil
}

const monthlyPlanSQL = `SELECT CAST(substr(d.value, 6, 2) AS INTEGER) AS month,
	COUNT(*) AS num_tour_starts,
	json_group_array(t.name) AS tours
FROM tours AS t, json_each(t.start_dates) AS d
WHERE t.secret_tour = ? AND d.value >= ? AND d.value < ?
GROUP BY month
ORDER BY num_tour_starts DESC, month ASC
LIMIT 12`

// MonthlyPlan 展开出发日期，统计 year 年每月出发的线路
func (s *Tours) MonthlyPlan(ctx context.Context, year int) ([]tour.MonthlyPlan, error) {
	from := entity.Date(year, time.January, 1).String()
	to := entity.Date(year+1, time.January, 1).String()

	start := time.Now()
	rows, err := s.repo.Orm().Database().Query(ctx, monthlyPlanSQL, false, from, to)
	if err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "monthly plan")
	}
	defer rows.Close()

	out := []tour.MonthlyPlan{}
	for rows.Next() {
		var (
			p     tour.MonthlyPlan
			names string
		)
		if err := rows.Scan(&p.Month, &p.NumTourStarts, &names); err != nil {
			return nil, errors.WrapDatabaseError(ctx, err, "monthly plan")
		}
		if err := json.Unmarshal([]byte(names), &p.Tours); err != nil {
			return nil, errors.WrapDatabaseError(ctx, err, "monthly plan")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "monthly plan")
	}
	s.logger.Debug(ctx, "monthly plan",
		logging.Int("year", year),
		logging.Int("months", len(out)),
		logging.Duration("elapsed", time.Since(start)))
	return out, nil
}

// tourQuery 把虚拟字段的投影换成它依赖的持久化字段，并记录需要输出的虚拟字段
type tourQuery struct {
	*repo.Query[tour.Tour, *tour.Tour]
	virtuals []string
}

func newTourQuery(q *repo.Query[tour.Tour, *tour.Tour]) *tourQuery {
	return &tourQuery{Query: q, virtuals: tour.VirtualNames()}
}

func (q *tourQuery) SelectFields(p query.Projection) error {
	fields := make([]string, 0, len(p.Fields))
	seen := make(map[string]bool, len(p.Fields))
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			fields = append(fields, name)
		}
	}

	if p.Exclude {
		excluded := make(map[string]bool)
		for _, f := range p.Fields {
			if _, ok := tour.Virtuals[f]; ok {
				excluded[f] = true
				continue
			}
			add(f)
		}
		q.virtuals = q.virtuals[:0]
		for _, name := range tour.VirtualNames() {
			if !excluded[name] {
				q.virtuals = append(q.virtuals, name)
			}
		}
	} else {
		q.virtuals = nil
		for _, f := range p.Fields {
			deps, ok := tour.Virtuals[f]
			if !ok {
				add(f)
				continue
			}
			for _, d := range deps {
				add(d)
			}
			if !slices.Contains(q.virtuals, f) {
				q.virtuals = append(q.virtuals, f)
			}
		}
	}

	p.Fields = fields
	return q.Query.SelectFields(p)
}

// Fields 持久化字段之后追加输出的虚拟字段
func (q *tourQuery) Fields() []string {
	return append(q.Query.Fields(), q.virtuals...)
}
