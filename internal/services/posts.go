package services

// 文章服务：文章的查询与管理员专属的创建/编辑/删除。
// 所有写操作在入口处做显式鉴权，绝不依赖环境中的“当前用户”。

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"inkwell/internal/storage"
)

// DateLayout 为文章展示日期的格式（如 "June 03, 2024"）。
const DateLayout = "January 02, 2006"

// PostInput 为创建/编辑文章的字段集合。
type PostInput struct {
	Title    string
	Subtitle string
	Body     string
	ImageURL string
}

func (in PostInput) validate() error {
	if in.Title == "" || in.Subtitle == "" || in.Body == "" || in.ImageURL == "" {
		return ErrValidation
	}
	return nil
}

// PostService 负责文章的读写与级联删除。
type PostService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPostService(db *gorm.DB) *PostService {
	return &PostService{db: db, now: time.Now}
}

// SetClock 替换取当前时间的函数，仅测试使用。
func (s *PostService) SetClock(now func() time.Time) { s.now = now }

// List 返回全部文章，新文章在前（按 id 降序）。
func (s *PostService) List(ctx context.Context) ([]storage.Post, error) {
	var posts []storage.Post
	if err := s.db.WithContext(ctx).Order("id DESC").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// Get 返回指定文章；不存在返回 ErrNotFound。
func (s *PostService) Get(ctx context.Context, id uint64) (*storage.Post, error) {
	var p storage.Post
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Create 建立新文章：要求管理员身份，字段齐全且标题唯一。
// 展示日期在此处以当前日期生成，此后编辑不再变更。
func (s *PostService) Create(ctx context.Context, identity uint64, in PostInput) (*storage.Post, error) {
	if err := RequireAdministrator(identity); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	p := &storage.Post{
		AuthorID: identity,
		Title:    in.Title,
		Subtitle: in.Subtitle,
		Body:     in.Body,
		ImageURL: in.ImageURL,
		Date:     s.now().Format(DateLayout),
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		// 标题唯一性由数据库唯一索引保证，冲突翻译为用户错误
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateTitle
		}
		return nil, err
	}
	return p, nil
}

// Edit 覆盖文章的标题/副标题/正文/配图；作者与原始日期保持不变。
func (s *PostService) Edit(ctx context.Context, identity uint64, id uint64, in PostInput) (*storage.Post, error) {
	if err := RequireAdministrator(identity); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Title = in.Title
	p.Subtitle = in.Subtitle
	p.Body = in.Body
	p.ImageURL = in.ImageURL
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateTitle
		}
		return nil, err
	}
	return p, nil
}

// Delete 删除文章并在同一事务内级联删除其全部评论，避免孤儿记录。
func (s *PostService) Delete(ctx context.Context, identity uint64, id uint64) error {
	if err := RequireAdministrator(identity); err != nil {
		return err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&storage.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&storage.Post{}, id).Error
	})
}
