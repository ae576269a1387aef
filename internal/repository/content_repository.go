package repository

import (
	"context"
	"errors"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

// ContentRepository 内容及 usuarios 进度表，进度以 JSON 列存储
type ContentRepository struct {
	DB *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{DB: db}
}

func findContent(tx *gorm.DB, id string) (*model.Content, error) {
	var c model.Content
	if err := tx.First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrContentNotFound
		}
		return nil, err
	}
	if c.Usuarios == nil {
		c.Usuarios = make(map[string]*model.ProgressRecord)
	}
	return &c, nil
}

func (r *ContentRepository) GetContent(ctx context.Context, id string) (*model.Content, error) {
	return findContent(r.DB.WithContext(ctx), id)
}

func (r *ContentRepository) ListContents(ctx context.Context) ([]model.Content, error) {
	var list []model.Content
	err := r.DB.WithContext(ctx).Order("nivel ASC, created_at ASC").Find(&list).Error
	return list, err
}

func (r *ContentRepository) CreateContent(ctx context.Context, c *model.Content) (*model.Content, error) {
	if c.Usuarios == nil {
		c.Usuarios = make(map[string]*model.ProgressRecord)
	}
	if err := r.DB.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateContent 整条记录覆盖写入，后写者覆盖
func (r *ContentRepository) UpdateContent(ctx context.Context, c *model.Content) error {
	res := r.DB.WithContext(ctx).Model(&model.Content{}).Where("id = ?", c.ID).
		Select("nome", "descricao", "nivel", "setores", "conteudos", "correcao", "certificado_id", "usuarios").
		Updates(c)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrContentNotFound
	}
	return nil
}
