package service

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"resv-system/backend/internal/dto"
	"resv-system/backend/internal/model"
	"resv-system/backend/internal/policy"
	"resv-system/backend/internal/repository"
	pkgerrors "resv-system/backend/pkg/errors"
	"resv-system/backend/pkg/mq"
)

// ── 预约模块业务错误 ──

var (
	ErrMissingFields        = errors.New("缺少必填字段")
	ErrEmptyTimeSlots       = errors.New("time_slots 不能为空")
	ErrInvalidTimeSlot      = errors.New("时段开始时间必须早于结束时间，且不能跨日")
	ErrSelfOverlap          = errors.New("请求中的时段互相重叠")
	ErrInvalidPrivacy       = errors.New("无效的隐私级别")
	ErrRoleBlocked          = errors.New("账号已被封禁")
	ErrSessionRequired      = errors.New("多时段预约必须指定 session_id")
	ErrAdmissionDenied      = errors.New("Access denied")
	ErrRoomUnavailable      = errors.New("房间不可预约")
	ErrDailyLimitReached    = errors.New("今日预约数已达上限")
	ErrNotPeriodCombination = errors.New("时段必须由完整的节次组成")
	ErrOutOfSession         = errors.New("时段不在所选会话范围内")
	ErrReservationConflict  = errors.New("时段已被占用")
	ErrReservationNotFound  = errors.New("预约不存在")
	ErrSlotNotFound         = errors.New("时段不存在")
	ErrNotOwner             = errors.New("只能操作本人的预约")
	ErrInvalidStatus        = errors.New("status 只能修改为已取消")
	ErrNothingToUpdate      = errors.New("没有可修改的字段")
	ErrInvalidDate          = errors.New("日期格式应为 YYYY-MM-DD")
	ErrInvalidTitle         = errors.New("标题不能为空且不超过 200 个字符")
)

// Caller 当前请求的身份，由认证中间件提供
type Caller struct {
	Username string
	Role     model.Role
}

// EventPublisher 预约事件发布（可为 nil 实现）
type EventPublisher interface {
	Publish(ctx context.Context, evt mq.Event)
}

// ReservationService 预约生命周期业务接口
type ReservationService interface {
	Create(ctx context.Context, caller Caller, req *dto.CreateReservationRequest) (*dto.CreateReservationResponse, error)
	Patch(ctx context.Context, caller Caller, req *dto.PatchReservationRequest) error
	DeleteSlot(ctx context.Context, caller Caller, req *dto.DeleteSlotRequest) error
	ListMine(ctx context.Context, caller Caller, date string) ([]dto.ReservationResponse, error)
	Today(ctx context.Context, caller Caller) ([]dto.ReservationResponse, error)
	ListPublic(ctx context.Context, q *dto.ReservationListQuery) ([]dto.PublicReservationResponse, error)
	// SetStatus 管理员审批或取消；重新激活与他人时段重叠时返回冲突
	SetStatus(ctx context.Context, resvID string, status model.ResvStatus) (*dto.ReservationResponse, error)
}

type reservationService struct {
	repo      *repository.Repository
	settings  SettingService
	publisher EventPublisher
	loc       *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

// NewReservationService 创建 ReservationService 实例
func NewReservationService(
	repo *repository.Repository,
	settings SettingService,
	publisher EventPublisher,
	loc *time.Location,
	logger *zap.Logger,
) ReservationService {
	return &reservationService{
		repo:      repo,
		settings:  settings,
		publisher: publisher,
		loc:       loc,
		now:       time.Now,
		logger:    logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *reservationService) Create(ctx context.Context, caller Caller, req *dto.CreateReservationRequest) (*dto.CreateReservationResponse, error) {
	// 1. 必填字段
	if req.RoomID == "" || req.Title == "" {
		return nil, ErrMissingFields
	}
	if !validTitle(req.Title) {
		return nil, ErrInvalidTitle
	}
	if len(req.TimeSlots) == 0 {
		return nil, ErrEmptyTimeSlots
	}

	// 2. 时段自身合法性
	slots := make([]policy.Slot, 0, len(req.TimeSlots))
	for _, in := range req.TimeSlots {
		slot := policy.Slot{Start: in.StartTime, End: in.EndTime}
		if !slot.Valid() || !policy.SameDay(slot, s.loc) {
			return nil, ErrInvalidTimeSlot
		}
		slots = append(slots, slot)
	}
	if policy.HasSelfOverlap(slots) {
		return nil, ErrSelfOverlap
	}
	privacy := model.PrivacyPublic
	if req.SecuLevel != nil {
		privacy = model.Privacy(*req.SecuLevel)
		if !privacy.Valid() {
			return nil, ErrInvalidPrivacy
		}
	}

	// 3. 角色闸门
	if caller.Role <= model.RoleBlocked {
		return nil, ErrRoleBlocked
	}
	hasSession := req.SessionID != nil && *req.SessionID != ""
	if caller.Role < model.RoleAdvanced && len(slots) > 1 && !hasSession {
		return nil, ErrSessionRequired
	}

	settings, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()

	// 4. 准入判定；ADVANCED 及以上不受窗口与期限约束
	in := policy.AdmissionInput{Role: caller.Role, SlotCount: len(slots), InTimeWindow: true, InTimeLimit: true}
	if caller.Role < model.RoleAdvanced {
		in.InTimeWindow = settings.InTimeWindow(slots)
		in.InTimeLimit = settings.InTimeLimit(slots, now)
	}
	decision := policy.Classify(in)
	if decision.Forbidden() {
		s.logger.Info("预约准入被拒绝",
			zap.String("username", caller.Username),
			zap.String("rule", decision.Rule),
		)
		return nil, ErrAdmissionDenied
	}

	periods, err := s.loadPeriods(ctx)
	if err != nil {
		return nil, err
	}

	resv := &model.Reservation{
		ResvID:    uuid.NewString(),
		Username:  caller.Username,
		RoomID:    req.RoomID,
		Title:     req.Title,
		Note:      req.Note,
		Type:      decision.Type,
		Status:    decision.Status,
		SecuLevel: privacy,
	}
	if hasSession {
		resv.SessionID = req.SessionID
	}
	for _, sl := range slots {
		resv.TimeSlots = append(resv.TimeSlots, model.TimeSlot{
			SlotID:    uuid.NewString(),
			ResvID:    resv.ResvID,
			RoomID:    req.RoomID,
			StartTime: sl.Start,
			EndTime:   sl.End,
			IsActive:  decision.Status.Active(),
		})
	}

	// 5. 锁定房间后完成剩余检查并写入
	// 加锁顺序固定为 用户 → 房间：用户行锁串行化同一用户的配额检查
	err = s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		if _, err := txRepo.User.GetByUsernameForUpdate(ctx, caller.Username); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoleBlocked
			}
			return err
		}

		room, err := txRepo.Room.GetByIDForUpdate(ctx, req.RoomID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomUnavailable
			}
			return err
		}
		if !room.Available() {
			return ErrRoomUnavailable
		}

		dayStart, dayEnd := settings.DayBounds(now)
		count, err := txRepo.Reservation.CountActiveCreated(ctx, caller.Username,
			repository.TimeRange{From: dayStart, To: dayEnd})
		if err != nil {
			return err
		}
		if !settings.BelowMaxDaily(count) {
			return ErrDailyLimitReached
		}

		if !policy.IsCombinationOfPeriods(periods, slots, s.loc) {
			return ErrNotPeriodCombination
		}

		if hasSession {
			if !isUUID(*req.SessionID) {
				return ErrOutOfSession
			}
			session, err := txRepo.Session.GetByID(ctx, *req.SessionID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrOutOfSession
				}
				return err
			}
			if !policy.ContainsAll(policy.Slot{Start: session.StartTime, End: session.EndTime}, slots) {
				return ErrOutOfSession
			}
		}

		if err := s.checkRoomFree(ctx, txRepo, req.RoomID, slots); err != nil {
			return err
		}

		if err := txRepo.Reservation.Create(ctx, resv); err != nil {
			if pkgerrors.IsConstraintViolation(err) {
				return ErrReservationConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		if !isBusinessError(err) {
			s.logger.Error("创建预约失败",
				zap.String("username", caller.Username),
				zap.String("room_id", req.RoomID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.logger.Info("预约已创建",
		zap.String("resv_id", resv.ResvID),
		zap.String("username", caller.Username),
		zap.String("status", resv.Status.String()),
		zap.String("rule", decision.Rule),
	)
	s.publish(ctx, mq.EventReservationCreated, resv, "")

	msg := "预约成功"
	if resv.Status == model.StatusPending {
		msg = "预约已提交，等待审批"
	}
	return &dto.CreateReservationResponse{
		ResvID:  resv.ResvID,
		Status:  int(resv.Status),
		Type:    int(resv.Type),
		Message: msg,
	}, nil
}

// checkRoomFree 与房间现有有效时段比对；最终由排他约束兜底
func (s *reservationService) checkRoomFree(ctx context.Context, txRepo *repository.Repository, roomID string, slots []policy.Slot) error {
	span := repository.TimeRange{From: slots[0].Start, To: slots[0].End}
	for _, sl := range slots[1:] {
		if sl.Start.Before(span.From) {
			span.From = sl.Start
		}
		if sl.End.After(span.To) {
			span.To = sl.End
		}
	}

	existing, err := txRepo.Reservation.ListActiveSlots(ctx, roomID, span)
	if err != nil {
		return err
	}
	taken := make([]policy.Slot, 0, len(existing))
	for _, ts := range existing {
		taken = append(taken, policy.Slot{Start: ts.StartTime, End: ts.EndTime})
	}
	if _, _, found := policy.FirstConflict(slots, taken); found {
		return ErrReservationConflict
	}
	return nil
}

func (s *reservationService) loadPeriods(ctx context.Context) ([]policy.Period, error) {
	rows, err := s.repo.Period.List(ctx)
	if err != nil {
		s.logger.Error("查询节次失败", zap.Error(err))
		return nil, err
	}
	periods := make([]policy.Period, 0, len(rows))
	for _, p := range rows {
		period, err := policy.ParsePeriod(p.StartTime, p.EndTime)
		if err != nil {
			s.logger.Warn("忽略无效节次", zap.String("period_id", p.PeriodID), zap.Error(err))
			continue
		}
		periods = append(periods, period)
	}
	return periods, nil
}

// ────────────────────── Patch ──────────────────────

func (s *reservationService) Patch(ctx context.Context, caller Caller, req *dto.PatchReservationRequest) error {
	if caller.Role <= model.RoleBlocked {
		return ErrRoleBlocked
	}
	if req.ResvID == "" {
		return ErrMissingFields
	}
	if req.Status != nil && *req.Status != model.StatusCancelled {
		return ErrInvalidStatus
	}
	if req.Empty() {
		return ErrNothingToUpdate
	}
	if req.Title != nil && !validTitle(*req.Title) {
		return ErrInvalidTitle
	}

	var resv *model.Reservation
	err := s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		var err error
		resv, err = s.getOwned(ctx, txRepo, caller, req.ResvID)
		if err != nil {
			return err
		}

		fields := map[string]interface{}{}
		if req.Title != nil {
			fields["title"] = *req.Title
		}
		if req.Note != nil {
			fields["note"] = *req.Note
		}
		if len(fields) > 0 {
			fields["updated_at"] = gorm.Expr("NOW()")
			if err := txRepo.Reservation.UpdateFields(ctx, resv.ResvID, fields); err != nil {
				return err
			}
		}

		if req.Status != nil && resv.Status != model.StatusCancelled {
			if err := txRepo.Reservation.UpdateStatus(ctx, resv.ResvID, model.StatusCancelled); err != nil {
				return err
			}
			resv.Status = model.StatusCancelled
		}
		return nil
	})
	if err != nil {
		if !isBusinessError(err) {
			s.logger.Error("修改预约失败", zap.String("resv_id", req.ResvID), zap.Error(err))
		}
		return err
	}

	evt := mq.EventReservationUpdated
	if req.Status != nil {
		evt = mq.EventReservationCancelled
	}
	s.publish(ctx, evt, resv, "")
	return nil
}

// ────────────────────── Delete Slot ──────────────────────

func (s *reservationService) DeleteSlot(ctx context.Context, caller Caller, req *dto.DeleteSlotRequest) error {
	if caller.Role <= model.RoleBlocked {
		return ErrRoleBlocked
	}
	if req.ResvID == "" || req.SlotID == "" {
		return ErrMissingFields
	}

	var (
		resv       *model.Reservation
		autoCancel bool
	)
	err := s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		var err error
		resv, err = s.getOwned(ctx, txRepo, caller, req.ResvID)
		if err != nil {
			return err
		}

		if !isUUID(req.SlotID) {
			return ErrSlotNotFound
		}
		n, err := txRepo.Reservation.DeleteSlot(ctx, resv.ResvID, req.SlotID)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrSlotNotFound
		}

		// 最后一个时段被删除时自动取消预约
		remaining, err := txRepo.Reservation.CountSlots(ctx, resv.ResvID)
		if err != nil {
			return err
		}
		if remaining == 0 && resv.Status != model.StatusCancelled {
			if err := txRepo.Reservation.UpdateStatus(ctx, resv.ResvID, model.StatusCancelled); err != nil {
				return err
			}
			resv.Status = model.StatusCancelled
			autoCancel = true
		}
		return nil
	})
	if err != nil {
		if !isBusinessError(err) {
			s.logger.Error("删除时段失败",
				zap.String("resv_id", req.ResvID),
				zap.String("slot_id", req.SlotID),
				zap.Error(err),
			)
		}
		return err
	}

	s.publish(ctx, mq.EventSlotRemoved, resv, req.SlotID)
	if autoCancel {
		s.logger.Info("预约已无时段，自动取消", zap.String("resv_id", resv.ResvID))
		s.publish(ctx, mq.EventReservationCancelled, resv, "")
	}
	return nil
}

func (s *reservationService) getOwned(ctx context.Context, repo *repository.Repository, caller Caller, resvID string) (*model.Reservation, error) {
	if !isUUID(resvID) {
		return nil, ErrReservationNotFound
	}
	resv, err := repo.Reservation.GetByID(ctx, resvID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	if resv.Username != caller.Username {
		return nil, ErrNotOwner
	}
	return resv, nil
}

// ────────────────────── Read ──────────────────────

func (s *reservationService) ListMine(ctx context.Context, caller Caller, date string) ([]dto.ReservationResponse, error) {
	filter := repository.ReservationFilter{Username: caller.Username}
	if date != "" {
		rng, err := s.dayRange(date)
		if err != nil {
			return nil, err
		}
		filter.SlotStart = rng
	}
	return s.listOwn(ctx, filter)
}

func (s *reservationService) Today(ctx context.Context, caller Caller) ([]dto.ReservationResponse, error) {
	return s.ListMine(ctx, caller, s.now().In(s.loc).Format(dateLayout))
}

func (s *reservationService) listOwn(ctx context.Context, filter repository.ReservationFilter) ([]dto.ReservationResponse, error) {
	list, err := s.repo.Reservation.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询预约失败", zap.String("username", filter.Username), zap.Error(err))
		return nil, err
	}
	result := make([]dto.ReservationResponse, 0, len(list))
	for i := range list {
		result = append(result, toReservationResponse(&list[i], s.loc))
	}
	return result, nil
}

func (s *reservationService) ListPublic(ctx context.Context, q *dto.ReservationListQuery) ([]dto.PublicReservationResponse, error) {
	filter := repository.ReservationFilter{
		RoomID:   q.RoomID,
		Username: q.Username,
	}
	if q.Status != nil {
		status := model.ResvStatus(*q.Status)
		filter.Status = &status
	}

	var err error
	for _, f := range []struct {
		value string
		dst   *repository.TimeRange
	}{
		{q.StartDate, &filter.SlotStart},
		{q.EndDate, &filter.SlotEnd},
		{q.CreateDate, &filter.Created},
		{q.UpdateDate, &filter.Updated},
	} {
		if f.value == "" {
			continue
		}
		if *f.dst, err = s.dayRange(f.value); err != nil {
			return nil, err
		}
	}

	list, err := s.repo.Reservation.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询公开预约失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.PublicReservationResponse, 0, len(list))
	for i := range list {
		result = append(result, toPublicReservation(&list[i], s.loc))
	}
	return result, nil
}

// ────────────────────── Admin ──────────────────────

func (s *reservationService) SetStatus(ctx context.Context, resvID string, status model.ResvStatus) (*dto.ReservationResponse, error) {
	if !status.Persistable() {
		return nil, ErrInvalidStatus
	}
	if !isUUID(resvID) {
		return nil, ErrReservationNotFound
	}

	var resv *model.Reservation
	err := s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		var err error
		resv, err = txRepo.Reservation.GetByID(ctx, resvID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReservationNotFound
			}
			return err
		}
		if resv.Status == status {
			return nil
		}

		// 从已取消恢复时先做重叠检查，数据库约束兜底
		if !resv.Status.Active() && status.Active() && len(resv.TimeSlots) > 0 {
			if _, err := txRepo.Room.GetByIDForUpdate(ctx, resv.RoomID); err != nil {
				return err
			}
			slots := make([]policy.Slot, 0, len(resv.TimeSlots))
			for _, ts := range resv.TimeSlots {
				slots = append(slots, policy.Slot{Start: ts.StartTime, End: ts.EndTime})
			}
			if err := s.checkRoomFree(ctx, txRepo, resv.RoomID, slots); err != nil {
				return err
			}
		}

		if err := txRepo.Reservation.UpdateStatus(ctx, resvID, status); err != nil {
			if pkgerrors.IsConstraintViolation(err) {
				return ErrReservationConflict
			}
			return err
		}
		resv.Status = status
		for i := range resv.TimeSlots {
			resv.TimeSlots[i].IsActive = status.Active()
		}
		return nil
	})
	if err != nil {
		if !isBusinessError(err) {
			s.logger.Error("修改预约状态失败", zap.String("resv_id", resvID), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("管理员修改预约状态", zap.String("resv_id", resvID), zap.String("status", status.String()))
	s.publish(ctx, mq.EventReservationReviewed, resv, "")

	resp := toReservationResponse(resv, s.loc)
	return &resp, nil
}

// ── 辅助函数 ──

func (s *reservationService) dayRange(date string) (repository.TimeRange, error) {
	day, err := time.ParseInLocation(dateLayout, date, s.loc)
	if err != nil {
		return repository.TimeRange{}, ErrInvalidDate
	}
	return repository.TimeRange{From: day, To: day.AddDate(0, 0, 1)}, nil
}

func (s *reservationService) publish(ctx context.Context, eventType string, resv *model.Reservation, slotID string) {
	if s.publisher == nil || resv == nil {
		return
	}
	s.publisher.Publish(ctx, mq.Event{
		Type:     eventType,
		ResvID:   resv.ResvID,
		RoomID:   resv.RoomID,
		Username: resv.Username,
		Status:   int(resv.Status),
		SlotID:   slotID,
	})
}

// reservationErrors 可直接返回给调用方的业务错误（不记录为系统错误）
var reservationErrors = []error{
	ErrMissingFields, ErrEmptyTimeSlots, ErrInvalidTimeSlot, ErrSelfOverlap, ErrInvalidPrivacy,
	ErrRoleBlocked, ErrSessionRequired, ErrAdmissionDenied, ErrRoomUnavailable,
	ErrDailyLimitReached, ErrNotPeriodCombination, ErrOutOfSession, ErrReservationConflict,
	ErrReservationNotFound, ErrSlotNotFound, ErrNotOwner, ErrInvalidStatus, ErrNothingToUpdate,
	ErrInvalidDate, ErrInvalidTitle,
}

const maxTitleLen = 200

// validTitle 与 reservations.title VARCHAR(200) 一致，按字符计数
func validTitle(title string) bool {
	n := utf8.RuneCountInString(title)
	return n > 0 && n <= maxTitleLen
}

func isBusinessError(err error) bool {
	for _, target := range reservationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
