package services

// 用户服务：注册、凭据校验与基础查询。

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"inkwell/internal/storage"
)

// UserService 提供用户注册与口令校验。口令只保存 bcrypt 哈希。
type UserService struct{ db *gorm.DB }

func NewUserService(db *gorm.DB) *UserService { return &UserService{db: db} }

// Register 创建新用户。邮箱已存在时返回 ErrDuplicateEmail；
// 姓名/邮箱/口令为空时返回 ErrValidation。
func (s *UserService) Register(ctx context.Context, name, email, password string) (*storage.User, error) {
	if name == "" || email == "" || password == "" {
		return nil, ErrValidation
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &storage.User{Name: name, Email: email, PasswordHash: string(hash)}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		// 并发注册同一邮箱时依赖唯一索引兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return u, nil
}

// Authenticate 校验邮箱与口令。邮箱不存在返回 ErrUnknownEmail，
// 口令不匹配返回 ErrInvalidPassword。比较通过 bcrypt 完成，绝不比对明文。
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*storage.User, error) {
	u, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownEmail
		}
		return nil, err
	}
	if u.PasswordHash == "" {
		return nil, ErrInvalidPassword
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidPassword
	}
	return u, nil
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*storage.User, error) {
	var u storage.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserService) FindByID(ctx context.Context, id uint64) (*storage.User, error) {
	var u storage.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Count 返回用户总数，供启动引导判断用户表是否为空。
func (s *UserService) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&storage.User{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// EnsureInitialAdmin 在用户表为空时建立管理员账号。
// 自增主键保证该账号取得 id=1，即固定的管理员身份。
func (s *UserService) EnsureInitialAdmin(ctx context.Context, name, email, password string) error {
	n, err := s.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err = s.Register(ctx, name, email, password)
	return err
}

func (s *UserService) IDPtr(id uint64) *uint64 { return &id }
