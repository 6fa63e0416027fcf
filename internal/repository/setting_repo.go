package repository

import (
	"context"

	"gorm.io/gorm"

	"resv-system/backend/internal/model"
)

// SettingRepository 设置数据访问接口
type SettingRepository interface {
	List(ctx context.Context) ([]model.Setting, error)
	GetByID(ctx context.Context, id int) (*model.Setting, error)
	Update(ctx context.Context, setting *model.Setting) error
}

type settingRepo struct {
	db *gorm.DB
}

// NewSettingRepo 创建 SettingRepository 实例
func NewSettingRepo(db *gorm.DB) SettingRepository {
	return &settingRepo{db: db}
}

func (r *settingRepo) List(ctx context.Context) ([]model.Setting, error) {
	var settings []model.Setting
	err := r.db.WithContext(ctx).Order("id ASC").Find(&settings).Error
	return settings, err
}

func (r *settingRepo) GetByID(ctx context.Context, id int) (*model.Setting, error) {
	var setting model.Setting
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *settingRepo) Update(ctx context.Context, setting *model.Setting) error {
	return r.db.WithContext(ctx).Save(setting).Error
}
