package service

import (
	"time"

	"github.com/google/uuid"

	"resv-system/backend/internal/dto"
	"resv-system/backend/internal/model"
)

const dateLayout = "2006-01-02"

// isUUID 主键列为 uuid 类型，格式不符的 ID 不可能命中任何记录
func isUUID(id string) bool {
	return len(id) == 36 && uuid.Validate(id) == nil
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(time.RFC3339)
}

func toSlotResponses(slots []model.TimeSlot, loc *time.Location) []dto.SlotResponse {
	result := make([]dto.SlotResponse, 0, len(slots))
	for _, ts := range slots {
		result = append(result, dto.SlotResponse{
			SlotID:    ts.SlotID,
			StartTime: formatTime(ts.StartTime, loc),
			EndTime:   formatTime(ts.EndTime, loc),
			IsActive:  ts.IsActive,
		})
	}
	return result
}

func toReservationResponse(r *model.Reservation, loc *time.Location) dto.ReservationResponse {
	return dto.ReservationResponse{
		ResvID:    r.ResvID,
		Username:  r.Username,
		RoomID:    r.RoomID,
		SessionID: r.SessionID,
		Title:     r.Title,
		Note:      r.Note,
		Type:      int(r.Type),
		Status:    int(r.Status),
		SecuLevel: int(r.SecuLevel),
		CreatedAt: formatTime(r.CreatedAt, loc),
		UpdatedAt: formatTime(r.UpdatedAt, loc),
		TimeSlots: toSlotResponses(r.TimeSlots, loc),
	}
}

// toPublicReservation 按隐私级别裁剪：ANONYMOUS 隐去用户名，PRIVATE 仅保留房间、状态与时间
func toPublicReservation(r *model.Reservation, loc *time.Location) dto.PublicReservationResponse {
	slots := toSlotResponses(r.TimeSlots, loc)

	if r.SecuLevel == model.PrivacyPrivate {
		for i := range slots {
			slots[i].SlotID = ""
		}
		return dto.PublicReservationResponse{
			RoomID:    r.RoomID,
			Status:    int(r.Status),
			TimeSlots: slots,
		}
	}

	typ := int(r.Type)
	privacy := int(r.SecuLevel)
	resp := dto.PublicReservationResponse{
		ResvID:    r.ResvID,
		Username:  r.Username,
		RoomID:    r.RoomID,
		Title:     r.Title,
		Note:      r.Note,
		Type:      &typ,
		Status:    int(r.Status),
		Privacy:   &privacy,
		CreatedAt: formatTime(r.CreatedAt, loc),
		UpdatedAt: formatTime(r.UpdatedAt, loc),
		TimeSlots: slots,
	}
	if r.SecuLevel == model.PrivacyAnonymous {
		resp.Username = ""
	}
	return resp
}

func toUserResponse(u *model.User, loc *time.Location) dto.UserResponse {
	return dto.UserResponse{
		Username:  u.Username,
		Name:      u.Name,
		Email:     u.Email,
		Role:      int(u.Role),
		RoleName:  u.Role.String(),
		CreatedAt: formatTime(u.CreatedAt, loc),
	}
}

func toRoomResponse(r *model.Room) dto.RoomResponse {
	return dto.RoomResponse{
		RoomID:      r.RoomID,
		Name:        r.Name,
		Type:        r.Type,
		Capacity:    r.Capacity,
		Status:      int(r.Status),
		Description: r.Description,
	}
}
