package crud

import (
	"context"

	"natours/domain"
)

// Service 在仓储之上补一层写前校验。
// 实体实现 domain.IValidatable 时 Create 与 Update 先调用 Validate
type Service[T domain.IEntity[ID], ID comparable] struct {
	repo IRepository[T, ID]
}

func NewService[T domain.IEntity[ID], ID comparable](r IRepository[T, ID]) *Service[T, ID] {
	return &Service[T, ID]{repo: r}
}

func validate(e any) error {
	if v, ok := e.(domain.IValidatable); ok {
		return v.Validate()
	}
	return nil
}

func (s *Service[T, ID]) Create(ctx context.Context, e T) error {
	if err := validate(e); err != nil {
		return err
	}
	return s.repo.Create(ctx, e)
}

func (s *Service[T, ID]) Update(ctx context.Context, e T) error {
	if err := validate(e); err != nil {
		return err
	}
	return s.repo.Update(ctx, e)
}

func (s *Service[T, ID]) GetByID(ctx context.Context, id ID) (T, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service[T, ID]) Delete(ctx context.Context, id ID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service[T, ID]) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}
