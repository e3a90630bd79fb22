package application

import (
	"context"

	"natours/domain/crud"
	"natours/domain/user"
	"natours/errors"
	"natours/logging"
	"natours/query"
)

// UserRepository 用户服务依赖的存储能力
type UserRepository interface {
	crud.IRepository[*user.User, int64]
	user.IRepository
}

// UserService 用户服务，基础读写沿用 crud.Service
type UserService struct {
	*crud.Service[*user.User, int64]
	users  UserRepository
	hasher *user.Hasher
	logger logging.Logger
}

func NewUserService(users UserRepository, cfg *ServiceConfig) *UserService {
	cfg = configOrDefault(cfg)
	return &UserService{
		Service: crud.NewService[*user.User, int64](users),
		users:   users,
		hasher:  user.NewHasher(cfg.BcryptCost),
		logger:  cfg.logger("application.users"),
	}
}

// Signup 校验注册信息、哈希密码后创建用户
func (s *UserService) Signup(ctx context.Context, in user.Signup) (*user.User, error) {
	u, err := in.NewUser(s.hasher)
	if err != nil {
		return nil, err
	}
	// 唯一约束仍然兜底并发注册
	switch _, err := s.users.FindByEmail(ctx, u.Email); {
	case err == nil:
		return nil, errors.NewDuplicateError(u.Email)
	case !errors.IsNotFound(err):
		return nil, err
	}
	if err := s.Service.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "user signed up", logging.Int64("id", u.ID))
	return u, nil
}

// Create 管理接口创建用户，规则与注册一致
func (s *UserService) Create(ctx context.Context, in user.Signup) (*user.User, error) {
	return s.Signup(ctx, in)
}

// List 执行查询并输出裁剪后的文档
func (s *UserService) List(ctx context.Context, req query.Request) ([]map[string]any, error) {
	users, fields, err := s.users.Find(ctx, req)
	if err != nil {
		return nil, err
	}
	docs := make([]map[string]any, 0, len(users))
	for _, u := range users {
		doc, err := u.Document(fields)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*user.User, error) {
	return s.GetByID(ctx, id)
}

// Update 部分更新，密码不能通过此接口修改
func (s *UserService) Update(ctx context.Context, id int64, p user.Patch) (*user.User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.Apply(u); err != nil {
		return nil, err
	}
	if err := s.Service.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
