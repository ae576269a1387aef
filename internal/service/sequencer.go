package service

import (
	"context"
	"encoding/json"
	"fmt"

	"lms_backend/internal/model"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"lms_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sequencer 把内容引用的模板展开为有序活动列表
type Sequencer struct {
	templates   TemplateStore
	concurrency int
}

func NewSequencer(templates TemplateStore, concurrency int) *Sequencer {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Sequencer{templates: templates, concurrency: concurrency}
}

// Build 并发拉取模板，单个模板失败只会被跳过，顺序与 conteudos 一致
func (s *Sequencer) Build(ctx context.Context, conteudos []string) (*Sequence, error) {
	ctx, span := tracing.StartSpan(ctx, "sequencer.build", attribute.Int("templates", len(conteudos)))
	defer span.End()

	fetched := make([]*model.Template, len(conteudos))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, id := range conteudos {
		i, id := i, id
		g.Go(func() error {
			t, err := s.templates.GetTemplate(ctx, id)
			if err != nil {
				logger.Log.Warn("template dropped from sequence",
					zap.String("template_id", id),
					zap.Error(err))
				monitoring.TemplatesDropped.Inc()
				return nil
			}
			fetched[i] = t
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kept := make([]*model.Template, 0, len(fetched))
	for _, t := range fetched {
		if t != nil {
			kept = append(kept, t)
		}
	}
	return NewSequence(FlattenTemplates(kept)), nil
}

// FlattenTemplates 组合模板的每个子活动独立成项，继承模板名称；所有负载在此统一归一化
func FlattenTemplates(templates []*model.Template) []Activity {
	var out []Activity
	for _, t := range templates {
		if len(t.Atividades) > 0 {
			for i, sub := range t.Atividades {
				id := sub.ID
				if id == "" {
					id = compositeActivityID(t.ID, i, len(t.Atividades))
				}
				out = append(out, Activity{
					ID:           id,
					TemplateID:   t.ID,
					Tipo:         sub.Tipo,
					Data:         model.NormalizePayload(sub.Data),
					TemplateName: t.Nome,
					Thumbnail:    t.Thumbnail(),
				})
			}
			continue
		}
		out = append(out, Activity{
			ID:           t.ID,
			TemplateID:   t.ID,
			Tipo:         t.Tipo,
			Data:         model.NormalizePayload(json.RawMessage(t.Data)),
			TemplateName: t.Nome,
			Thumbnail:    t.Thumbnail(),
		})
	}
	return out
}

func compositeActivityID(templateID string, i, n int) string {
	if n == 1 {
		return templateID
	}
	return fmt.Sprintf("%s:%d", templateID, i)
}

// Sequence 活动列表和当前游标
type Sequence struct {
	activities []Activity
	index      int
}

func NewSequence(activities []Activity) *Sequence {
	return &Sequence{activities: activities}
}

func (s *Sequence) Len() int { return len(s.activities) }

func (s *Sequence) Index() int { return s.index }

func (s *Sequence) Activities() []Activity { return s.activities }

func (s *Sequence) Current() (Activity, bool) {
	if len(s.activities) == 0 {
		return Activity{}, false
	}
	return s.activities[s.index], true
}

// ProgressPercent (index+1)/len*100
func (s *Sequence) ProgressPercent() float64 {
	if len(s.activities) == 0 {
		return 0
	}
	return float64(s.index+1) / float64(len(s.activities)) * 100
}

func (s *Sequence) IsLast() bool {
	return len(s.activities) > 0 && s.index == len(s.activities)-1
}

// Advance 已在最后一项时返回 false
func (s *Sequence) Advance() bool {
	if s.index+1 >= len(s.activities) {
		return false
	}
	s.index++
	return true
}

// Previous 后退不做校验，在第一项时停留
func (s *Sequence) Previous() bool {
	if s.index == 0 {
		return false
	}
	s.index--
	return true
}

// Seek 恢复游标，越界时夹到合法范围
func (s *Sequence) Seek(i int) {
	switch {
	case len(s.activities) == 0 || i < 0:
		s.index = 0
	case i >= len(s.activities):
		s.index = len(s.activities) - 1
	default:
		s.index = i
	}
}
