package storage

import (
	"time"

	"gorm.io/gorm"
)

// 本文件定义博客使用的所有 GORM 模型，集中管理数据结构。

// User 为注册账号。邮箱全局唯一（按存储值区分大小写），口令仅保存 bcrypt 哈希。
// 用户当前不支持删除，只会随发帖/评论增加关联记录。
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Name         string `gorm:"size:190"`
	Email        string `gorm:"size:190;uniqueIndex"`
	PasswordHash string `gorm:"size:255"` // 已哈希的口令
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Post 为博客文章。标题全局唯一；Date 为面向读者的展示日期字符串
// （如 "June 03, 2024"），不可用于排序。作者通过 AuthorID 单向引用。
type Post struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	AuthorID  uint64 `gorm:"index"`
	Title     string `gorm:"size:250;uniqueIndex"`
	Subtitle  string `gorm:"size:250"`
	Body      string `gorm:"type:longtext"`
	ImageURL  string `gorm:"size:250"`
	Date      string `gorm:"size:64"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Comment 为文章评论。作者与所属文章均以外键单向引用；
// 评论不可编辑或单独删除，仅随文章级联删除。
type Comment struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	AuthorID  uint64 `gorm:"index"`
	PostID    uint64 `gorm:"index"`
	Body      string `gorm:"type:text"`
	CreatedAt time.Time
}

// LogRecord 为审计日志：记录登录、注册与文章/评论变更等事件。
type LogRecord struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	Timestamp   time.Time `gorm:"index"`
	Level       string    `gorm:"size:16;index"`
	Event       string    `gorm:"size:64;index"`
	UserID      *uint64   `gorm:"index"`
	Description string    `gorm:"type:longtext"`
	IPAddress   string    `gorm:"size:64"`
	RequestID   string    `gorm:"size:64;index"`
}

// AutoMigrate 执行数据库自动迁移。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Post{}, &Comment{}, &LogRecord{})
}
