package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

type localCursor struct {
	index   int
	expires time.Time
}

// PlayerSessionRepository 保存播放器游标，过期后从第一个活动开始
// 未配置 Redis 时退化为进程内存储，仅适用于单实例
type PlayerSessionRepository struct {
	Redis *redis.Client
	TTL   time.Duration

	mu    sync.Mutex
	local map[string]localCursor
}

func NewPlayerSessionRepository(rdb *redis.Client, ttl time.Duration) *PlayerSessionRepository {
	return &PlayerSessionRepository{Redis: rdb, TTL: ttl, local: make(map[string]localCursor)}
}

func cursorKey(contentID, userID string) string {
	return fmt.Sprintf("lms:player:cursor:%s:%s", contentID, userID)
}

func (r *PlayerSessionRepository) LoadCursor(ctx context.Context, contentID, userID string) (int, bool, error) {
	key := cursorKey(contentID, userID)
	if r.Redis == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		c, ok := r.local[key]
		if !ok {
			return 0, false, nil
		}
		if time.Now().After(c.expires) {
			delete(r.local, key)
			return 0, false, nil
		}
		return c.index, true, nil
	}

	idx, err := r.Redis.Get(ctx, key).Int()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return idx, true, nil
}

func (r *PlayerSessionRepository) SaveCursor(ctx context.Context, contentID, userID string, index int) error {
	key := cursorKey(contentID, userID)
	if r.Redis == nil {
		r.mu.Lock()
		r.local[key] = localCursor{index: index, expires: time.Now().Add(r.TTL)}
		r.mu.Unlock()
		return nil
	}
	return r.Redis.Set(ctx, key, index, r.TTL).Err()
}
