package services

// 会话服务：在 Redis 中创建、读取与删除浏览器会话。
// Cookie 中只携带经 HMAC 签名的会话 id，会话内容保存在服务端。

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"inkwell/internal/config"
)

// Session 表示一次已登录的浏览器会话。
// 存储在 Redis：key=session:<sid>，值为 JSON。
type Session struct {
	SID      string    `json:"sid"`
	UserID   uint64    `json:"user_id"`
	AuthTime time.Time `json:"auth_time"`
}

// SessionStore 抽象会话持久化所需的最小 Redis 能力，便于测试替换。
// *redis.Client 直接满足该接口。
type SessionStore interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// SessionService 提供会话的创建/读取/删除能力。
type SessionService struct {
	store SessionStore
	cfg   config.Config
}

func NewSessionService(store SessionStore, cfg config.Config) *SessionService {
	return &SessionService{store: store, cfg: cfg}
}

// New 为指定用户建立会话。已有会话的用户再次登录/注册时，
// 调用方直接用新会话覆盖 Cookie 即可（旧会话到期自动失效）。
func (s *SessionService) New(ctx context.Context, userID uint64) (*Session, error) {
	sid := uuid.NewString()
	sess := &Session{SID: sid, UserID: userID, AuthTime: time.Now()}
	b, _ := json.Marshal(sess)
	key := fmt.Sprintf("session:%s", sid)
	if err := s.store.Set(ctx, key, b, s.cfg.Session.TTL).Err(); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get 读取会话；不存在或已过期返回 ErrNotFound。
func (s *SessionService) Get(ctx context.Context, sid string) (*Session, error) {
	key := fmt.Sprintf("session:%s", sid)
	cmd := s.store.Get(ctx, key)
	if err := cmd.Err(); err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal([]byte(cmd.Val()), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Delete 删除会话。对不存在的 sid 同样返回成功（登出幂等）。
func (s *SessionService) Delete(ctx context.Context, sid string) error {
	key := fmt.Sprintf("session:%s", sid)
	return s.store.Del(ctx, key).Err()
}

// Identity 根据 sid 解析当前身份；无会话时返回 AnonymousID。
func (s *SessionService) Identity(ctx context.Context, sid string) uint64 {
	if sid == "" {
		return AnonymousID
	}
	sess, err := s.Get(ctx, sid)
	if err != nil {
		return AnonymousID
	}
	return sess.UserID
}
