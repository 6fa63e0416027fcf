package repository

import (
	"context"

	"gorm.io/gorm"

	"resv-system/backend/internal/model"
)

// NoticeRepository 公告数据访问接口
type NoticeRepository interface {
	Create(ctx context.Context, notice *model.Notice) error
	GetByID(ctx context.Context, id string) (*model.Notice, error)
	List(ctx context.Context) ([]model.Notice, error)
	Update(ctx context.Context, notice *model.Notice) error
	Delete(ctx context.Context, id string) error
}

type noticeRepo struct {
	db *gorm.DB
}

// NewNoticeRepo 创建 NoticeRepository 实例
func NewNoticeRepo(db *gorm.DB) NoticeRepository {
	return &noticeRepo{db: db}
}

func (r *noticeRepo) Create(ctx context.Context, notice *model.Notice) error {
	return r.db.WithContext(ctx).Create(notice).Error
}

func (r *noticeRepo) GetByID(ctx context.Context, id string) (*model.Notice, error) {
	var notice model.Notice
	err := r.db.WithContext(ctx).
		Where("notice_id = ?", id).
		First(&notice).Error
	if err != nil {
		return nil, err
	}
	return &notice, nil
}

func (r *noticeRepo) List(ctx context.Context) ([]model.Notice, error) {
	var notices []model.Notice
	err := r.db.WithContext(ctx).
		Order("created_at DESC, updated_at DESC").
		Find(&notices).Error
	return notices, err
}

func (r *noticeRepo) Update(ctx context.Context, notice *model.Notice) error {
	return r.db.WithContext(ctx).Save(notice).Error
}

func (r *noticeRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("notice_id = ?", id).
		Delete(&model.Notice{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// LanguageRepository 语言数据访问接口
type LanguageRepository interface {
	List(ctx context.Context) ([]model.Language, error)
}

type languageRepo struct {
	db *gorm.DB
}

// NewLanguageRepo 创建 LanguageRepository 实例
func NewLanguageRepo(db *gorm.DB) LanguageRepository {
	return &languageRepo{db: db}
}

func (r *languageRepo) List(ctx context.Context) ([]model.Language, error) {
	var langs []model.Language
	err := r.db.WithContext(ctx).Order("lang_code ASC").Find(&langs).Error
	return langs, err
}
