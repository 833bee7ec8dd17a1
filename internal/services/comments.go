package services

// 评论服务：已登录用户对文章追加评论；评论按插入顺序读取。

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"inkwell/internal/storage"
)

// CommentService 负责评论的创建与按文章查询。
type CommentService struct{ db *gorm.DB }

func NewCommentService(db *gorm.DB) *CommentService { return &CommentService{db: db} }

// Add 为指定文章追加评论：要求已登录身份、文章存在且正文非空。
// 作者与所属文章的关联在单次写入内完成。
func (s *CommentService) Add(ctx context.Context, identity uint64, postID uint64, body string) (*storage.Comment, error) {
	if err := RequireAuthenticated(identity); err != nil {
		return nil, err
	}
	if body == "" {
		return nil, ErrValidation
	}
	var p storage.Post
	if err := s.db.WithContext(ctx).Select("id").Where("id = ?", postID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c := &storage.Comment{AuthorID: identity, PostID: postID, Body: body}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// ListByPost 返回文章的全部评论，按插入顺序（id 升序）。
func (s *CommentService) ListByPost(ctx context.Context, postID uint64) ([]storage.Comment, error) {
	var comments []storage.Comment
	if err := s.db.WithContext(ctx).Where("post_id = ?", postID).Order("id ASC").Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}
