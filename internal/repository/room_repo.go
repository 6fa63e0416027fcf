package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"resv-system/backend/internal/model"
)

// RoomFilter 房间列表过滤条件
type RoomFilter struct {
	Type   *int
	Status *model.RoomStatus
}

// RoomRepository 房间数据访问接口
type RoomRepository interface {
	Create(ctx context.Context, room *model.Room) error
	GetByID(ctx context.Context, roomID string) (*model.Room, error)
	// GetByIDForUpdate 使用 SELECT ... FOR UPDATE 锁定房间行，串行化同一房间的预约准入
	// 必须在事务连接上调用（通过 Repository.WithTx 注入）
	GetByIDForUpdate(ctx context.Context, roomID string) (*model.Room, error)
	List(ctx context.Context, filter RoomFilter) ([]model.Room, error)
	Update(ctx context.Context, room *model.Room) error
	ListTypes(ctx context.Context) ([]model.RoomType, error)
	TypeExists(ctx context.Context, typeID int) (bool, error)
}

type roomRepo struct {
	db *gorm.DB
}

// NewRoomRepo 创建 RoomRepository 实例
func NewRoomRepo(db *gorm.DB) RoomRepository {
	return &roomRepo{db: db}
}

func (r *roomRepo) Create(ctx context.Context, room *model.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *roomRepo) GetByID(ctx context.Context, roomID string) (*model.Room, error) {
	var room model.Room
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) GetByIDForUpdate(ctx context.Context, roomID string) (*model.Room, error) {
	var room model.Room
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("room_id = ?", roomID).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) List(ctx context.Context, filter RoomFilter) ([]model.Room, error) {
	var rooms []model.Room
	db := r.db.WithContext(ctx)

	if filter.Type != nil {
		db = db.Where("type = ?", *filter.Type)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}

	err := db.Order("room_id ASC").Find(&rooms).Error
	return rooms, err
}

func (r *roomRepo) Update(ctx context.Context, room *model.Room) error {
	return r.db.WithContext(ctx).Save(room).Error
}

func (r *roomRepo) ListTypes(ctx context.Context) ([]model.RoomType, error) {
	var types []model.RoomType
	err := r.db.WithContext(ctx).Order("type_id ASC").Find(&types).Error
	return types, err
}

func (r *roomRepo) TypeExists(ctx context.Context, typeID int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.RoomType{}).
		Where("type_id = ?", typeID).
		Count(&count).Error
	return count > 0, err
}
