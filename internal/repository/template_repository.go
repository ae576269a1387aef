package repository

import (
	"context"
	"errors"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

type TemplateRepository struct {
	DB *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{DB: db}
}

func (r *TemplateRepository) GetTemplate(ctx context.Context, id string) (*model.Template, error) {
	var t model.Template
	if err := r.DB.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTemplateNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TemplateRepository) ListTemplates(ctx context.Context) ([]model.Template, error) {
	var list []model.Template
	err := r.DB.WithContext(ctx).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *TemplateRepository) CreateTemplate(ctx context.Context, t *model.Template) (*model.Template, error) {
	if err := r.DB.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TemplateRepository) UpdateTemplate(ctx context.Context, t *model.Template) (*model.Template, error) {
	res := r.DB.WithContext(ctx).Model(&model.Template{}).Where("id = ?", t.ID).
		Select("nome", "tipo", "descricao", "data", "atividades").
		Updates(t)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, util.ErrTemplateNotFound
	}
	return r.GetTemplate(ctx, t.ID)
}
