package repository

import (
	"context"
	"errors"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if user.Role == "" {
		user.Role = model.Learner
	}
	if user.Certificados == nil {
		user.Certificados = []model.UserCertificate{}
	}
	return r.DB.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	return findUser(r.DB.WithContext(ctx), id)
}

func findUser(tx *gorm.DB, id string) (*model.User, error) {
	var user model.User
	if err := tx.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ListUsersBySectors 按部门批量查询，用于内容自动分配
func (r *UserRepository) ListUsersBySectors(ctx context.Context, setores []string) ([]model.User, error) {
	var users []model.User
	if len(setores) == 0 {
		return users, nil
	}
	err := r.DB.WithContext(ctx).Where("setor IN ?", setores).Order("nome ASC").Find(&users).Error
	return users, err
}

// AwardCertificate 已持有时不重复写入
func (r *UserRepository) AwardCertificate(ctx context.Context, userID, certificateID string, at time.Time) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := findUser(tx, userID)
		if err != nil {
			return err
		}
		if user.HasCertificate(certificateID) {
			return nil
		}
		user.Certificados = append(user.Certificados, model.UserCertificate{ID: certificateID, DataConclusao: at})
		return tx.Model(user).Select("certificados").Updates(user).Error
	})
}
