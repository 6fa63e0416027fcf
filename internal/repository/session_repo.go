package repository

import (
	"context"

	"gorm.io/gorm"

	"resv-system/backend/internal/model"
)

// SessionRepository 会话数据访问接口
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	GetByID(ctx context.Context, id string) (*model.Session, error)
	List(ctx context.Context, currentOnly bool) ([]model.Session, error)
	Delete(ctx context.Context, id string) error
	// ClearCurrent 将所有会话的 is_current 设为 false
	ClearCurrent(ctx context.Context) error
}

type sessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo 创建 SessionRepository 实例
func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.WithContext(ctx).
		Where("session_id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) List(ctx context.Context, currentOnly bool) ([]model.Session, error) {
	var sessions []model.Session
	db := r.db.WithContext(ctx)
	if currentOnly {
		db = db.Where("is_current = ?", true)
	}
	err := db.Order("start_time DESC").Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("session_id = ?", id).
		Delete(&model.Session{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *sessionRepo) ClearCurrent(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("is_current = ?", true).
		Update("is_current", false).Error
}
