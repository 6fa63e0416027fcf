package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"resv-system/backend/internal/dto"
	"resv-system/backend/internal/model"
	"resv-system/backend/internal/repository"
	pkgerrors "resv-system/backend/pkg/errors"
)

// ── 房间模块业务错误 ──

var (
	ErrRoomNotFound      = errors.New("房间不存在")
	ErrRoomExists        = errors.New("房间编号已存在")
	ErrRoomTypeNotFound  = errors.New("房间类型不存在")
	ErrInvalidRoomStatus = errors.New("无效的房间状态")
)

// RoomService 房间业务接口
type RoomService interface {
	List(ctx context.Context, q *dto.RoomListQuery) ([]dto.RoomResponse, error)
	ListTypes(ctx context.Context) ([]dto.RoomTypeResponse, error)
	Create(ctx context.Context, req *dto.CreateRoomRequest) (*dto.RoomResponse, error)
	Update(ctx context.Context, roomID string, req *dto.UpdateRoomRequest) (*dto.RoomResponse, error)
}

type roomService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewRoomService 创建 RoomService 实例
func NewRoomService(repo *repository.Repository, logger *zap.Logger) RoomService {
	return &roomService{repo: repo, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *roomService) List(ctx context.Context, q *dto.RoomListQuery) ([]dto.RoomResponse, error) {
	filter := repository.RoomFilter{Type: q.Type}
	if q.Status != nil {
		status := model.RoomStatus(*q.Status)
		filter.Status = &status
	}

	rooms, err := s.repo.Room.List(ctx, filter)
	if err != nil {
		s.logger.Error("列出房间失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.RoomResponse, 0, len(rooms))
	for i := range rooms {
		result = append(result, toRoomResponse(&rooms[i]))
	}
	return result, nil
}

func (s *roomService) ListTypes(ctx context.Context) ([]dto.RoomTypeResponse, error) {
	types, err := s.repo.Room.ListTypes(ctx)
	if err != nil {
		s.logger.Error("列出房间类型失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.RoomTypeResponse, 0, len(types))
	for _, t := range types {
		result = append(result, dto.RoomTypeResponse{TypeID: t.TypeID, Name: t.Name, Description: t.Description})
	}
	return result, nil
}

// ────────────────────── Create ──────────────────────

func (s *roomService) Create(ctx context.Context, req *dto.CreateRoomRequest) (*dto.RoomResponse, error) {
	if err := s.checkType(ctx, req.Type); err != nil {
		return nil, err
	}

	room := &model.Room{
		RoomID:      req.RoomID,
		Name:        req.Name,
		Type:        req.Type,
		Capacity:    req.Capacity,
		Status:      model.RoomAvailable,
		Description: req.Description,
	}
	if req.Status != nil {
		room.Status = model.RoomStatus(*req.Status)
		if !room.Status.Valid() {
			return nil, ErrInvalidRoomStatus
		}
	}

	if err := s.repo.Room.Create(ctx, room); err != nil {
		if pkgerrors.IsConstraintViolation(err) {
			return nil, ErrRoomExists
		}
		s.logger.Error("创建房间失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("房间已创建", zap.String("room_id", room.RoomID))
	resp := toRoomResponse(room)
	return &resp, nil
}

// ────────────────────── Update ──────────────────────

func (s *roomService) Update(ctx context.Context, roomID string, req *dto.UpdateRoomRequest) (*dto.RoomResponse, error) {
	room, err := s.repo.Room.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		s.logger.Error("查询房间失败", zap.String("room_id", roomID), zap.Error(err))
		return nil, err
	}

	// 应用更新字段（仅更新非 nil 字段）
	if req.Name != nil {
		room.Name = *req.Name
	}
	if req.Type != nil {
		if err := s.checkType(ctx, *req.Type); err != nil {
			return nil, err
		}
		room.Type = *req.Type
	}
	if req.Capacity != nil {
		room.Capacity = *req.Capacity
	}
	if req.Status != nil {
		room.Status = model.RoomStatus(*req.Status)
		if !room.Status.Valid() {
			return nil, ErrInvalidRoomStatus
		}
	}
	if req.Description != nil {
		room.Description = *req.Description
	}

	// 房间置为不可用不影响已有预约，仅阻止新的预约
	if err := s.repo.Room.Update(ctx, room); err != nil {
		s.logger.Error("更新房间失败", zap.String("room_id", roomID), zap.Error(err))
		return nil, err
	}

	resp := toRoomResponse(room)
	return &resp, nil
}

func (s *roomService) checkType(ctx context.Context, typeID int) error {
	ok, err := s.repo.Room.TypeExists(ctx, typeID)
	if err != nil {
		s.logger.Error("查询房间类型失败", zap.Error(err))
		return err
	}
	if !ok {
		return ErrRoomTypeNotFound
	}
	return nil
}
