package repository

import (
	"context"

	"gorm.io/gorm"

	"resv-system/backend/internal/model"
)

// PeriodRepository 节次数据访问接口
type PeriodRepository interface {
	Create(ctx context.Context, period *model.Period) error
	List(ctx context.Context) ([]model.Period, error)
	Delete(ctx context.Context, id string) error
}

type periodRepo struct {
	db *gorm.DB
}

// NewPeriodRepo 创建 PeriodRepository 实例
func NewPeriodRepo(db *gorm.DB) PeriodRepository {
	return &periodRepo{db: db}
}

func (r *periodRepo) Create(ctx context.Context, period *model.Period) error {
	return r.db.WithContext(ctx).Create(period).Error
}

func (r *periodRepo) List(ctx context.Context) ([]model.Period, error) {
	var periods []model.Period
	err := r.db.WithContext(ctx).Order("start_time ASC").Find(&periods).Error
	return periods, err
}

func (r *periodRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("period_id = ?", id).
		Delete(&model.Period{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
