// Package tour 旅游线路实体、校验规则与报表类型
package tour

import (
	"context"
	"slices"

	"natours/domain/entity"
	"natours/query"
)

// Difficulty 难度
type Difficulty string

const (
	Easy      Difficulty = "easy"
	Medium    Difficulty = "medium"
	Difficult Difficulty = "difficult"
)

// Difficulties 合法取值
var Difficulties = []string{string(Easy), string(Medium), string(Difficult)}

// 默认值
const (
	DefaultRatingsAverage = 4.5
	NotFoundMessage       = "No tour found with that ID"
)

// Tour 旅游线路
type Tour struct {
	entity.Entity
	Name            string            `json:"name" db:"name"`
	Slug            string            `json:"slug" db:"slug"`
	Duration        int               `json:"duration" db:"duration"`
	MaxGroupSize    int               `json:"maxGroupSize" db:"max_group_size"`
	Difficulty      Difficulty        `json:"difficulty" db:"difficulty"`
	RatingsAverage  float64           `json:"ratingsAverage" db:"ratings_average"`
	RatingsQuantity int               `json:"ratingsQuantity" db:"ratings_quantity"`
	Price           float64           `json:"price" db:"price"`
	PriceDiscount   *float64          `json:"priceDiscount,omitempty" db:"price_discount"`
	Summary         string            `json:"summary" db:"summary"`
	Description     string            `json:"description" db:"description"`
	ImageCover      string            `json:"imageCover" db:"image_cover"`
	Images          entity.StringList `json:"images" db:"images"`
	StartDates      entity.TimeList   `json:"startDates" db:"start_dates"`
	SecretTour      bool              `json:"secretTour" db:"secret_tour"`
}

// TableName 表名
func (Tour) TableName() string { return "tours" }

// DurationWeeks 持续周数，不持久化
func (t *Tour) DurationWeeks() float64 {
	return float64(t.Duration) / 7
}

// Virtuals 虚拟字段及其依赖的持久化字段
var Virtuals = map[string][]string{
	"durationWeeks": {"duration"},
}

// VirtualNames 按名称排序的虚拟字段
func VirtualNames() []string {
	names := make([]string, 0, len(Virtuals))
	for name := range Virtuals {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Document 输出文档：持久化字段加虚拟字段，fields 非空时只保留其中列出的字段
func (t *Tour) Document(fields []string) (map[string]any, error) {
	doc, err := query.ToDocument(t)
	if err != nil {
		return nil, err
	}
	doc["durationWeeks"] = t.DurationWeeks()
	return query.Shape(doc, fields), nil
}

// ApplyDefaults 补齐默认值并规范化
func (t *Tour) ApplyDefaults() {
	t.Normalize()
	if t.RatingsAverage == 0 {
		t.RatingsAverage = DefaultRatingsAverage
	}
	if t.Images == nil {
		t.Images = entity.StringList{}
	}
	if t.StartDates == nil {
		t.StartDates = entity.TimeList{}
	}
}

// Normalize 去除首尾空白并根据名称生成 slug
func (t *Tour) Normalize() {
	t.Name = trim(t.Name)
	t.Summary = trim(t.Summary)
	t.Description = trim(t.Description)
	t.Slug = Slugify(t.Name)
}

// TopCheap top-5-cheap 别名预设
var TopCheap = query.Preset{
	query.KeyLimit:  "5",
	query.KeySort:   "-ratingsAverage,price",
	query.KeyFields: "name,price,ratingsAverage,summary,difficulty",
}

// Stats 按难度分组的统计
type Stats struct {
	ID         string  `json:"_id"`
	NumTours   int64   `json:"numTours"`
	NumRatings int64   `json:"numRatings"`
	AvgRating  float64 `json:"avgRating"`
	AvgPrice   float64 `json:"avgPrice"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
}

// MonthlyPlan 某月出发的线路
type MonthlyPlan struct {
	Month         int      `json:"month"`
	NumTourStarts int64    `json:"numTourStarts"`
	Tours         []string `json:"tours"`
}

// StatsMinRating 统计只包含评分不低于该值的线路
const StatsMinRating = 4.5

// IRepository 线路存储
type IRepository interface {
	Create(ctx context.Context, t *Tour) error
	Get(ctx context.Context, id int64) (*Tour, error)
	Update(ctx context.Context, t *Tour) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)

	// Find 按查询串执行四步查询，返回结果与保留的字段
	Find(ctx context.Context, req query.Request) ([]*Tour, []string, error)

	CreateAll(ctx context.Context, tours []*Tour) error
	DeleteAll(ctx context.Context) (int64, error)

	Stats(ctx context.Context) ([]Stats, error)
	MonthlyPlan(ctx context.Context, year int) ([]MonthlyPlan, error)
}
