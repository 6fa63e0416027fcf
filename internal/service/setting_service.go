package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"resv-system/backend/internal/dto"
	"resv-system/backend/internal/policy"
	"resv-system/backend/internal/repository"
)

var (
	ErrSettingNotFound = errors.New("设置项不存在")
	ErrInvalidSetting  = errors.New("设置值无效")
)

// SettingsCache 设置快照缓存，*redis.Client 实现
type SettingsCache interface {
	GetSettings(ctx context.Context) (map[string]string, error)
	SetSettings(ctx context.Context, values map[string]string, ttl time.Duration) error
	InvalidateSettings(ctx context.Context) error
}

// SettingService 系统设置业务接口
type SettingService interface {
	// Snapshot 返回当前设置的只读快照，供预约准入使用
	Snapshot(ctx context.Context) (*policy.Settings, error)
	List(ctx context.Context) ([]dto.SettingResponse, error)
	Update(ctx context.Context, id int, req *dto.UpdateSettingRequest) (*dto.SettingResponse, error)
}

type settingService struct {
	repo     *repository.Repository
	cache    SettingsCache
	cacheTTL time.Duration
	loc      *time.Location
	logger   *zap.Logger
}

// NewSettingService 创建 SettingService 实例；cache 可为 nil
func NewSettingService(repo *repository.Repository, cache SettingsCache, cacheTTL time.Duration, loc *time.Location, logger *zap.Logger) SettingService {
	return &settingService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		loc:      loc,
		logger:   logger,
	}
}

func (s *settingService) Snapshot(ctx context.Context) (*policy.Settings, error) {
	values, err := s.cachedValues(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := policy.ParseSettings(values, s.loc)
	if err != nil {
		// 存储中的值无效时回退默认值，避免预约功能整体不可用
		s.logger.Warn("设置值解析失败，使用默认设置", zap.Error(err))
		return policy.DefaultSettings(s.loc), nil
	}
	return settings, nil
}

func (s *settingService) cachedValues(ctx context.Context) (map[string]string, error) {
	if s.cache != nil {
		values, err := s.cache.GetSettings(ctx)
		if err != nil {
			s.logger.Warn("读取设置缓存失败", zap.Error(err))
		} else if values != nil {
			return values, nil
		}
	}

	rows, err := s.repo.Setting.List(ctx)
	if err != nil {
		s.logger.Error("查询设置失败", zap.Error(err))
		return nil, err
	}
	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Name] = row.Value
	}

	if s.cache != nil && len(values) > 0 {
		if err := s.cache.SetSettings(ctx, values, s.cacheTTL); err != nil {
			s.logger.Warn("写入设置缓存失败", zap.Error(err))
		}
	}
	return values, nil
}

func (s *settingService) List(ctx context.Context) ([]dto.SettingResponse, error) {
	rows, err := s.repo.Setting.List(ctx)
	if err != nil {
		s.logger.Error("查询设置失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.SettingResponse, 0, len(rows))
	for i := range rows {
		result = append(result, dto.SettingResponse{
			ID:          rows[i].ID,
			Name:        rows[i].Name,
			Value:       rows[i].Value,
			Description: rows[i].Description,
			UpdatedAt:   formatTime(rows[i].UpdatedAt, s.loc),
		})
	}
	return result, nil
}

func (s *settingService) Update(ctx context.Context, id int, req *dto.UpdateSettingRequest) (*dto.SettingResponse, error) {
	setting, err := s.repo.Setting.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettingNotFound
		}
		s.logger.Error("查询设置失败", zap.Int("id", id), zap.Error(err))
		return nil, err
	}

	if req.Value != nil {
		// 用新值构造一次快照，确保写入后仍可解析
		if _, err := policy.ParseSettings(map[string]string{setting.Name: *req.Value}, s.loc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSetting, err)
		}
		setting.Value = *req.Value
	}
	if req.Description != nil {
		setting.Description = *req.Description
	}

	if err := s.repo.Setting.Update(ctx, setting); err != nil {
		s.logger.Error("更新设置失败", zap.Int("id", id), zap.Error(err))
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateSettings(ctx); err != nil {
			s.logger.Warn("清除设置缓存失败", zap.Error(err))
		}
	}
	s.logger.Info("设置已更新", zap.String("name", setting.Name), zap.String("value", setting.Value))

	return &dto.SettingResponse{
		ID:          setting.ID,
		Name:        setting.Name,
		Value:       setting.Value,
		Description: setting.Description,
		UpdatedAt:   formatTime(setting.UpdatedAt, s.loc),
	}, nil
}
