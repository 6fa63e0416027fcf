package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"resv-system/backend/internal/model"
)

// activeStatuses 占用房间的预约状态
var activeStatuses = []model.ResvStatus{model.StatusPending, model.StatusConfirmed}

// TimeRange 左闭右开时间范围，任一端为零值表示不限
type TimeRange struct {
	From time.Time
	To   time.Time
}

// IsZero 两端均未设置
func (r TimeRange) IsZero() bool { return r.From.IsZero() && r.To.IsZero() }

// ReservationFilter 预约列表过滤条件
type ReservationFilter struct {
	RoomID    string
	Username  string
	Status    *model.ResvStatus
	SlotStart TimeRange // 存在开始时间落在范围内的时段
	SlotEnd   TimeRange // 存在结束时间落在范围内的时段
	Created   TimeRange
	Updated   TimeRange
}

// ReservationRepository 预约与预约时段数据访问接口
type ReservationRepository interface {
	// Create 写入预约及其时段；重叠由数据库排他约束兜底
	Create(ctx context.Context, resv *model.Reservation) error
	GetByID(ctx context.Context, resvID string) (*model.Reservation, error)
	List(ctx context.Context, filter ReservationFilter) ([]model.Reservation, error)
	// CountActiveCreated 统计用户在范围内创建的有效预约数（每日限额）
	CountActiveCreated(ctx context.Context, username string, created TimeRange) (int64, error)
	// ListActiveSlots 查询房间在范围内与之相交的有效时段
	ListActiveSlots(ctx context.Context, roomID string, within TimeRange) ([]model.TimeSlot, error)
	UpdateFields(ctx context.Context, resvID string, fields map[string]interface{}) error
	// UpdateStatus 更新状态并同步时段 is_active
	UpdateStatus(ctx context.Context, resvID string, status model.ResvStatus) error
	// DeleteSlot 删除属于该预约的单个时段，返回删除行数
	DeleteSlot(ctx context.Context, resvID, slotID string) (int64, error)
	CountSlots(ctx context.Context, resvID string) (int64, error)
}

type reservationRepo struct {
	db *gorm.DB
}

// NewReservationRepo 创建 ReservationRepository 实例
func NewReservationRepo(db *gorm.DB) ReservationRepository {
	return &reservationRepo{db: db}
}

func (r *reservationRepo) Create(ctx context.Context, resv *model.Reservation) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(resv).Error; err != nil {
		return err
	}
	if len(resv.TimeSlots) == 0 {
		return nil
	}
	// 时段单独插入，避免关联保存附加 ON CONFLICT 子句吞掉排他约束冲突
	for i := range resv.TimeSlots {
		resv.TimeSlots[i].ResvID = resv.ResvID
		resv.TimeSlots[i].RoomID = resv.RoomID
		resv.TimeSlots[i].IsActive = resv.Status.Active()
	}
	return db.Create(&resv.TimeSlots).Error
}

func (r *reservationRepo) GetByID(ctx context.Context, resvID string) (*model.Reservation, error) {
	var resv model.Reservation
	err := r.db.WithContext(ctx).
		Preload("TimeSlots", orderSlots).
		Where("resv_id = ?", resvID).
		First(&resv).Error
	if err != nil {
		return nil, err
	}
	return &resv, nil
}

func (r *reservationRepo) List(ctx context.Context, filter ReservationFilter) ([]model.Reservation, error) {
	var list []model.Reservation
	db := r.db.WithContext(ctx).Model(&model.Reservation{})

	if filter.RoomID != "" {
		db = db.Where("reservations.room_id = ?", filter.RoomID)
	}
	if filter.Username != "" {
		db = db.Where("reservations.username = ?", filter.Username)
	}
	if filter.Status != nil {
		db = db.Where("reservations.status = ?", *filter.Status)
	}
	db = whereRange(db, "reservations.created_at", filter.Created)
	db = whereRange(db, "reservations.updated_at", filter.Updated)

	// 时段条件同时约束预加载，只返回命中范围的时段
	slotScope := func(tx *gorm.DB) *gorm.DB {
		tx = whereRange(tx, "start_time", filter.SlotStart)
		tx = whereRange(tx, "end_time", filter.SlotEnd)
		return orderSlots(tx)
	}
	if !filter.SlotStart.IsZero() || !filter.SlotEnd.IsZero() {
		sub := r.db.Model(&model.TimeSlot{}).
			Select("1").
			Where("time_slots.resv_id = reservations.resv_id")
		sub = whereRange(sub, "time_slots.start_time", filter.SlotStart)
		sub = whereRange(sub, "time_slots.end_time", filter.SlotEnd)
		db = db.Where("EXISTS (?)", sub)
	}

	err := db.Preload("TimeSlots", slotScope).
		Order("reservations.created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *reservationRepo) CountActiveCreated(ctx context.Context, username string, created TimeRange) (int64, error) {
	var count int64
	db := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("username = ? AND status IN ?", username, activeStatuses)
	err := whereRange(db, "created_at", created).Count(&count).Error
	return count, err
}

func (r *reservationRepo) ListActiveSlots(ctx context.Context, roomID string, within TimeRange) ([]model.TimeSlot, error) {
	var slots []model.TimeSlot
	db := r.db.WithContext(ctx).
		Where("room_id = ? AND is_active = ?", roomID, true)
	if !within.To.IsZero() {
		db = db.Where("start_time < ?", within.To)
	}
	if !within.From.IsZero() {
		db = db.Where("end_time > ?", within.From)
	}
	err := orderSlots(db).Find(&slots).Error
	return slots, err
}

func (r *reservationRepo) UpdateFields(ctx context.Context, resvID string, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("resv_id = ?", resvID).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *reservationRepo) UpdateStatus(ctx context.Context, resvID string, status model.ResvStatus) error {
	if err := r.UpdateFields(ctx, resvID, map[string]interface{}{
		"status":     status,
		"updated_at": gorm.Expr("NOW()"),
	}); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&model.TimeSlot{}).
		Where("resv_id = ?", resvID).
		Update("is_active", status.Active()).Error
}

func (r *reservationRepo) DeleteSlot(ctx context.Context, resvID, slotID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("resv_id = ? AND slot_id = ?", resvID, slotID).
		Delete(&model.TimeSlot{})
	return result.RowsAffected, result.Error
}

func (r *reservationRepo) CountSlots(ctx context.Context, resvID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.TimeSlot{}).
		Where("resv_id = ?", resvID).
		Count(&count).Error
	return count, err
}

// ── 查询辅助 ──

func orderSlots(db *gorm.DB) *gorm.DB {
	return db.Order("start_time ASC, end_time ASC")
}

func whereRange(db *gorm.DB, column string, rng TimeRange) *gorm.DB {
	if !rng.From.IsZero() {
		db = db.Where(column+" >= ?", rng.From)
	}
	if !rng.To.IsZero() {
		db = db.Where(column+" < ?", rng.To)
	}
	return db
}
