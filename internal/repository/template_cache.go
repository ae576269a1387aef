package repository

import (
	"context"
	"encoding/json"
	"time"

	"lms_backend/internal/model"
	"lms_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const templateCachePrefix = "lms:template:"

// CachedTemplateStore 播放器打开内容时并发读取模板，用 Redis 做读穿缓存
type CachedTemplateStore struct {
	Templates *TemplateRepository
	Redis     *redis.Client
	TTL       time.Duration
}

func NewCachedTemplateStore(templates *TemplateRepository, rdb *redis.Client, ttl time.Duration) *CachedTemplateStore {
	return &CachedTemplateStore{Templates: templates, Redis: rdb, TTL: ttl}
}

func templateCacheKey(id string) string {
	return templateCachePrefix + id
}

func (s *CachedTemplateStore) GetTemplate(ctx context.Context, id string) (*model.Template, error) {
	if s.Redis != nil {
		raw, err := s.Redis.Get(ctx, templateCacheKey(id)).Bytes()
		switch {
		case err == nil:
			var t model.Template
			if jerr := json.Unmarshal(raw, &t); jerr == nil {
				return &t, nil
			}
		case err != redis.Nil:
			logger.Log.Warn("template cache read failed", zap.String("template_id", id), zap.Error(err))
		}
	}

	t, err := s.Templates.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if raw, jerr := json.Marshal(t); jerr == nil {
			if err := s.Redis.Set(ctx, templateCacheKey(id), raw, s.TTL).Err(); err != nil {
				logger.Log.Warn("template cache write failed", zap.String("template_id", id), zap.Error(err))
			}
		}
	}
	return t, nil
}

func (s *CachedTemplateStore) ListTemplates(ctx context.Context) ([]model.Template, error) {
	return s.Templates.ListTemplates(ctx)
}

func (s *CachedTemplateStore) CreateTemplate(ctx context.Context, t *model.Template) (*model.Template, error) {
	return s.Templates.CreateTemplate(ctx, t)
}

func (s *CachedTemplateStore) UpdateTemplate(ctx context.Context, t *model.Template) (*model.Template, error) {
	updated, err := s.Templates.UpdateTemplate(ctx, t)
	if err != nil {
		return nil, err
	}
	if err := s.Invalidate(ctx, t.ID); err != nil {
		logger.Log.Warn("template cache invalidate failed", zap.String("template_id", t.ID), zap.Error(err))
	}
	return updated, nil
}

func (s *CachedTemplateStore) Invalidate(ctx context.Context, id string) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Del(ctx, templateCacheKey(id)).Err()
}
