package repository

import (
	"context"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

type CertificateRepository struct {
	DB *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{DB: db}
}

func (r *CertificateRepository) GetCertificates(ctx context.Context) ([]model.Certificate, error) {
	var list []model.Certificate
	err := r.DB.WithContext(ctx).Order("data_criacao ASC").Find(&list).Error
	return list, err
}

func (r *CertificateRepository) CreateCertificate(ctx context.Context, cert *model.Certificate) (*model.Certificate, error) {
	if cert.Relacionados == nil {
		cert.Relacionados = []string{}
	}
	if err := r.DB.WithContext(ctx).Create(cert).Error; err != nil {
		return nil, err
	}
	return cert, nil
}

// UpdateCertificate 证书编辑和级别同步都走这里，nivel 为空时写入 NULL
func (r *CertificateRepository) UpdateCertificate(ctx context.Context, cert *model.Certificate) (*model.Certificate, error) {
	if cert.Relacionados == nil {
		cert.Relacionados = []string{}
	}
	res := r.DB.WithContext(ctx).Model(&model.Certificate{}).Where("id = ?", cert.ID).
		Select("nome", "descricao", "insignia", "carga_horaria", "nivel", "relacionados").
		Updates(cert)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, util.ErrCertificateNotFound
	}
	return cert, nil
}
