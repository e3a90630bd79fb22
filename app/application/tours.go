package application

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"natours/cache"
	"natours/domain/tour"
	"natours/errors"
	"natours/logging"
	"natours/messaging"
	"natours/query"
)

const statsKey = "stats"

func planKey(year int) string { return "plan:" + strconv.Itoa(year) }

// TourService 线路服务
type TourService struct {
	repo    tour.IRepository
	reports *cache.Cache[string, any]
	events  publisher
	cfg     *ServiceConfig
	logger  logging.Logger
}

// NewTourService bus 为 nil 时不发布事件，报表缓存只在本进程写操作后失效
func NewTourService(repo tour.IRepository, bus *messaging.Bus, cfg *ServiceConfig) (*TourService, error) {
	cfg = configOrDefault(cfg)
	logger := cfg.logger("application.tours")
	s := &TourService{
		repo: repo,
		reports: cache.New[string, any](cache.Config{
			Name:    "tour-reports",
			MaxSize: cfg.CacheSize,
			TTL:     cfg.CacheTTL,
		}),
		events: publisher{bus: bus, logger: logger},
		cfg:    cfg,
		logger: logger,
	}
	if bus != nil {
		h := messaging.NewHandler("tour-reports-invalidation", s.onTourEvent)
		for _, t := range tour.EventTypes {
			if err := bus.Subscribe(t, h); err != nil {
				return nil, fmt.Errorf("subscribe %s: %w", t, err)
			}
		}
	}
	return s, nil
}

// onTourEvent 其他实例的写操作同样使报表失效
func (s *TourService) onTourEvent(ctx context.Context, m *messaging.Message) error {
	s.reports.Clear()
	s.logger.Debug(ctx, "tour reports invalidated", logging.String("event", m.Type))
	return nil
}

// changed 写操作之后调用
func (s *TourService) changed(ctx context.Context, e tour.Event) {
	s.reports.Clear()
	s.events.publish(ctx, e)
}

// List 执行查询并输出按投影裁剪后的文档
func (s *TourService) List(ctx context.Context, req query.Request) ([]map[string]any, error) {
	tours, fields, err := s.repo.Find(ctx, req)
	if err != nil {
		return nil, err
	}
	docs := make([]map[string]any, 0, len(tours))
	for _, t := range tours {
		doc, err := t.Document(fields)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *TourService) Get(ctx context.Context, id int64) (*tour.Tour, error) {
	return s.repo.Get(ctx, id)
}

// Create 补齐默认值、校验后写入
func (s *TourService) Create(ctx context.Context, t *tour.Tour) (*tour.Tour, error) {
	t.ID = 0
	t.ApplyDefaults()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.changed(ctx, tour.Created(t))
	return t, nil
}

// Update 读取现有线路，apply 修改后重新校验并写回；ID、创建时间与版本不受 apply 影响
func (s *TourService) Update(ctx context.Context, id int64, apply func(*tour.Tour) error) (*tour.Tour, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	keep := t.Entity
	if err := apply(t); err != nil {
		return nil, err
	}
	t.Entity = keep
	t.Normalize()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	s.changed(ctx, tour.Updated(t))
	return t, nil
}

func (s *TourService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, tour.Deleted(id))
	return nil
}

// Stats 按难度分组统计，结果缓存
func (s *TourService) Stats(ctx context.Context) ([]tour.Stats, error) {
	v, err := s.reports.GetOrLoad(ctx, statsKey, func(ctx context.Context) (any, error) {
		return s.repo.Stats(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]tour.Stats), nil
}

// MonthlyPlan 某年每月出发的线路，结果缓存
func (s *TourService) MonthlyPlan(ctx context.Context, year int) ([]tour.MonthlyPlan, error) {
	if year < 1 || year > 9999 {
		return nil, errors.NewInvalidValueError("year", year)
	}
	v, err := s.reports.GetOrLoad(ctx, planKey(year), func(ctx context.Context) (any, error) {
		return s.repo.MonthlyPlan(ctx, year)
	})
	if err != nil {
		return nil, err
	}
	return v.([]tour.MonthlyPlan), nil
}

// Import 并行校验全部线路，全部通过后在一个事务内写入
func (s *TourService) Import(ctx context.Context, tours []*tour.Tour) (int, error) {
	if len(tours) == 0 {
		return 0, nil
	}
	if len(tours) > s.cfg.MaxBatchSize {
		return 0, errors.NewValidationError(fmt.Sprintf("Batch size exceeds maximum limit of %d", s.cfg.MaxBatchSize))
	}

	failures := make([]string, len(tours))
	var g errgroup.Group
	g.SetLimit(8)
	for i, t := range tours {
		i, t := i, t
		g.Go(func() error {
			t.ID = 0
			t.ApplyDefaults()
			if err := t.Validate(); err != nil {
				failures[i] = fmt.Sprintf("Tour %d (%s): %s", i+1, t.Name, reason(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	var msgs []string
	for _, f := range failures {
		if f != "" {
			msgs = append(msgs, f)
		}
	}
	if len(msgs) > 0 {
		return 0, errors.NewValidationError(msgs...)
	}

	if err := s.repo.CreateAll(ctx, tours); err != nil {
		return 0, err
	}
	s.changed(ctx, tour.Imported(len(tours)))
	s.logger.Info(ctx, "tours imported", logging.Int("count", len(tours)))
	return len(tours), nil
}

// DeleteAll 删除全部线路，包括秘密线路
func (s *TourService) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.changed(ctx, tour.Purged(n))
	s.logger.Info(ctx, "tours deleted", logging.Int64("count", n))
	return n, nil
}

// reason 校验错误的原始消息，去掉 "Invalid input data. " 前缀
func reason(err error) string {
	if ae, ok := errors.AsAppError(err); ok {
		if list, ok := ae.Details()["errors"].([]string); ok && len(list) > 0 {
			return strings.Join(list, "; ")
		}
		return ae.Message()
	}
	return err.Error()
}
