package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"resv-system/backend/internal/dto"
	"resv-system/backend/internal/model"
	"resv-system/backend/internal/policy"
	"resv-system/backend/internal/repository"
	pkgerrors "resv-system/backend/pkg/errors"
)

// ── 会话 / 节次 / 公告 业务错误 ──

var (
	ErrSessionNotFound = errors.New("会话不存在")
	ErrSessionInUse    = errors.New("会话已被预约引用，无法删除")
	ErrInvalidSession  = errors.New("会话开始时间必须早于结束时间")
	ErrPeriodNotFound  = errors.New("节次不存在")
	ErrInvalidPeriod   = errors.New("节次时间格式应为 HH:MM，且开始早于结束")
	ErrPeriodExists    = errors.New("相同开始时间的节次已存在")
	ErrNoticeNotFound  = errors.New("公告不存在")
)

// CatalogService 会话、节次、公告、语言等目录数据业务接口
type CatalogService interface {
	ListSessions(ctx context.Context, currentOnly bool) ([]dto.SessionResponse, error)
	CreateSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.SessionResponse, error)
	DeleteSession(ctx context.Context, id string) error

	ListPeriods(ctx context.Context) ([]dto.PeriodResponse, error)
	CreatePeriod(ctx context.Context, req *dto.CreatePeriodRequest) (*dto.PeriodResponse, error)
	DeletePeriod(ctx context.Context, id string) error

	ListNotices(ctx context.Context) ([]dto.NoticeResponse, error)
	CreateNotice(ctx context.Context, req *dto.CreateNoticeRequest, caller string) (*dto.NoticeResponse, error)
	UpdateNotice(ctx context.Context, id string, req *dto.UpdateNoticeRequest) (*dto.NoticeResponse, error)
	DeleteNotice(ctx context.Context, id string) error

	ListLanguages(ctx context.Context) ([]dto.LanguageResponse, error)
}

type catalogService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
}

// NewCatalogService 创建 CatalogService 实例
func NewCatalogService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) CatalogService {
	return &catalogService{repo: repo, loc: loc, logger: logger}
}

// ────────────────────── Session ──────────────────────

func (s *catalogService) ListSessions(ctx context.Context, currentOnly bool) ([]dto.SessionResponse, error) {
	sessions, err := s.repo.Session.List(ctx, currentOnly)
	if err != nil {
		s.logger.Error("列出会话失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		result = append(result, s.toSessionResponse(&sessions[i]))
	}
	return result, nil
}

func (s *catalogService) CreateSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	if !req.StartTime.Before(req.EndTime) {
		return nil, ErrInvalidSession
	}

	session := &model.Session{
		Name:      req.Name,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		IsCurrent: req.IsCurrent,
	}

	// 同一时间只有一个当前会话
	err := s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		if session.IsCurrent {
			if err := txRepo.Session.ClearCurrent(ctx); err != nil {
				return err
			}
		}
		return txRepo.Session.Create(ctx, session)
	})
	if err != nil {
		s.logger.Error("创建会话失败", zap.Error(err))
		return nil, err
	}

	resp := s.toSessionResponse(session)
	return &resp, nil
}

func (s *catalogService) DeleteSession(ctx context.Context, id string) error {
	if !isUUID(id) {
		return ErrSessionNotFound
	}
	if err := s.repo.Session.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		if pkgerrors.IsForeignKeyViolation(err) {
			return ErrSessionInUse
		}
		s.logger.Error("删除会话失败", zap.String("session_id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *catalogService) toSessionResponse(m *model.Session) dto.SessionResponse {
	return dto.SessionResponse{
		SessionID: m.SessionID,
		Name:      m.Name,
		StartTime: formatTime(m.StartTime, s.loc),
		EndTime:   formatTime(m.EndTime, s.loc),
		IsCurrent: m.IsCurrent,
	}
}

// ────────────────────── Period ──────────────────────

func (s *catalogService) ListPeriods(ctx context.Context) ([]dto.PeriodResponse, error) {
	periods, err := s.repo.Period.List(ctx)
	if err != nil {
		s.logger.Error("列出节次失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.PeriodResponse, 0, len(periods))
	for i := range periods {
		result = append(result, toPeriodResponse(&periods[i]))
	}
	return result, nil
}

func (s *catalogService) CreatePeriod(ctx context.Context, req *dto.CreatePeriodRequest) (*dto.PeriodResponse, error) {
	if _, err := policy.ParsePeriod(req.StartTime, req.EndTime); err != nil {
		return nil, ErrInvalidPeriod
	}

	period := &model.Period{
		Name:      req.Name,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	if err := s.repo.Period.Create(ctx, period); err != nil {
		if pkgerrors.IsConstraintViolation(err) {
			return nil, ErrPeriodExists
		}
		s.logger.Error("创建节次失败", zap.Error(err))
		return nil, err
	}

	resp := toPeriodResponse(period)
	return &resp, nil
}

func (s *catalogService) DeletePeriod(ctx context.Context, id string) error {
	if !isUUID(id) {
		return ErrPeriodNotFound
	}
	if err := s.repo.Period.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPeriodNotFound
		}
		s.logger.Error("删除节次失败", zap.String("period_id", id), zap.Error(err))
		return err
	}
	return nil
}

func toPeriodResponse(m *model.Period) dto.PeriodResponse {
	return dto.PeriodResponse{
		PeriodID:  m.PeriodID,
		Name:      m.Name,
		StartTime: m.StartTime,
		EndTime:   m.EndTime,
	}
}

// ────────────────────── Notice ──────────────────────

func (s *catalogService) ListNotices(ctx context.Context) ([]dto.NoticeResponse, error) {
	notices, err := s.repo.Notice.List(ctx)
	if err != nil {
		s.logger.Error("列出公告失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.NoticeResponse, 0, len(notices))
	for i := range notices {
		result = append(result, s.toNoticeResponse(&notices[i]))
	}
	return result, nil
}

func (s *catalogService) CreateNotice(ctx context.Context, req *dto.CreateNoticeRequest, caller string) (*dto.NoticeResponse, error) {
	notice := &model.Notice{
		Title:    req.Title,
		Content:  req.Content,
		Username: &caller,
	}
	if err := s.repo.Notice.Create(ctx, notice); err != nil {
		s.logger.Error("创建公告失败", zap.Error(err))
		return nil, err
	}
	resp := s.toNoticeResponse(notice)
	return &resp, nil
}

func (s *catalogService) UpdateNotice(ctx context.Context, id string, req *dto.UpdateNoticeRequest) (*dto.NoticeResponse, error) {
	if !isUUID(id) {
		return nil, ErrNoticeNotFound
	}
	notice, err := s.repo.Notice.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoticeNotFound
		}
		s.logger.Error("查询公告失败", zap.String("notice_id", id), zap.Error(err))
		return nil, err
	}

	if req.Title != nil {
		notice.Title = *req.Title
	}
	if req.Content != nil {
		notice.Content = *req.Content
	}
	if err := s.repo.Notice.Update(ctx, notice); err != nil {
		s.logger.Error("更新公告失败", zap.String("notice_id", id), zap.Error(err))
		return nil, err
	}

	resp := s.toNoticeResponse(notice)
	return &resp, nil
}

func (s *catalogService) DeleteNotice(ctx context.Context, id string) error {
	if !isUUID(id) {
		return ErrNoticeNotFound
	}
	if err := s.repo.Notice.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoticeNotFound
		}
		s.logger.Error("删除公告失败", zap.String("notice_id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *catalogService) toNoticeResponse(m *model.Notice) dto.NoticeResponse {
	resp := dto.NoticeResponse{
		NoticeID:  m.NoticeID,
		Title:     m.Title,
		Content:   m.Content,
		CreatedAt: formatTime(m.CreatedAt, s.loc),
		UpdatedAt: formatTime(m.UpdatedAt, s.loc),
	}
	if m.Username != nil {
		resp.Username = *m.Username
	}
	return resp
}

// ────────────────────── Language ──────────────────────

func (s *catalogService) ListLanguages(ctx context.Context) ([]dto.LanguageResponse, error) {
	langs, err := s.repo.Language.List(ctx)
	if err != nil {
		s.logger.Error("列出语言失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.LanguageResponse, 0, len(langs))
	for _, l := range langs {
		result = append(result, dto.LanguageResponse{LangCode: l.LangCode, Name: l.Name})
	}
	return result, nil
}
