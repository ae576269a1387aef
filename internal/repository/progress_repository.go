package repository

import (
	"context"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

// mutateProgress 在事务内读取-修改-写回单个用户的进度
func (r *ContentRepository) mutateProgress(ctx context.Context, contentID, userID string, create bool, fn func(rec *model.ProgressRecord) error) (*model.Content, error) {
	var out *model.Content
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := findContent(tx, contentID)
		if err != nil {
			return err
		}
		if create {
			c.Assign(userID)
		}
		rec := c.Usuarios[userID]
		if rec == nil {
			return util.ErrNotAssigned
		}
		if err := fn(rec); err != nil {
			return err
		}
		if err := tx.Model(c).Select("usuarios").Updates(c).Error; err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

// SubmitAnswer 未分配的用户首次作答时创建进度；已有作答时保留旧值，锁定类活动返回 ErrActivityLocked
func (r *ContentRepository) SubmitAnswer(ctx context.Context, contentID string, sub model.AnswerSubmission) (*model.Content, error) {
	return r.mutateProgress(ctx, contentID, sub.UserID, true, func(rec *model.ProgressRecord) error {
		if rec.AnswerFor(sub.TemplateID) != nil {
			if sub.Tipo.LocksAfterSubmit() {
				return util.ErrActivityLocked
			}
			return nil
		}
		rec.UpsertAnswer(model.Answer{
			TemplateID:   sub.TemplateID,
			Tipo:         sub.Tipo,
			Resposta:     sub.Resposta,
			Correta:      sub.Correta,
			DataResposta: time.Now(),
			Nota:         sub.Nota,
			Realizado:    sub.Realizado,
		})
		return nil
	})
}

// ConcludeContent 已完成时返回 false，不改动完成时间
func (r *ContentRepository) ConcludeContent(ctx context.Context, contentID, userID string) (bool, error) {
	concluded := false
	_, err := r.mutateProgress(ctx, contentID, userID, true, func(rec *model.ProgressRecord) error {
		if rec.Realizado {
			return nil
		}
		now := time.Now()
		rec.Realizado = true
		rec.DataConclusao = &now
		concluded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return concluded, nil
}

func (r *ContentRepository) GradeContent(ctx context.Context, contentID string, g model.GradeSubmission) error {
	_, err := r.mutateProgress(ctx, contentID, g.UserID, false, func(rec *model.ProgressRecord) error {
		status := g.Status
		rec.Status = &status
		rec.Nota = g.Nota
		return nil
	})
	return err
}
