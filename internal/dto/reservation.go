package dto

import (
	"encoding/json"
	"errors"
	"time"

	"resv-system/backend/internal/model"
)

// ── 预约模块 DTO ──

// TimeSlotInput 请求中的单个时段（RFC3339）
type TimeSlotInput struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// CreateReservationRequest 创建预约请求
// 必填字段由服务层校验，保证缺失字段时不访问存储
type CreateReservationRequest struct {
	RoomID    string          `json:"room_id"`
	Title     string          `json:"title" binding:"max=200"`
	Note      string          `json:"note"`
	SessionID *string         `json:"session_id"`
	SecuLevel *int            `json:"secu_level"`
	TimeSlots []TimeSlotInput `json:"time_slots"`
}

// PatchReservationRequest 修改预约请求：{resv_id, data:{title?, note?, status?}}
type PatchReservationRequest struct {
	ResvID string
	Title  *string
	Note   *string
	Status *model.ResvStatus
}

// ErrInvalidStatus status 字段不是整数
var ErrInvalidStatus = errors.New("无效的预约状态")

// ParsePatchReservation 严格解析修改请求，data 只允许 title/note/status
func ParsePatchReservation(body []byte) (*PatchReservationRequest, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return nil, err
	}
	if err := checkKeys(obj, []string{"resv_id", "data"}, []string{"resv_id", "data"}); err != nil {
		return nil, err
	}

	req := &PatchReservationRequest{}
	if req.ResvID, err = decodeString(obj["resv_id"], "resv_id"); err != nil {
		return nil, err
	}

	data, err := decodeObject(obj["data"])
	if err != nil {
		return nil, err
	}
	if err := checkKeys(data, nil, []string{"title", "note", "status"}); err != nil {
		return nil, err
	}
	if req.Title, err = decodeOptionalString(data, "title"); err != nil {
		return nil, err
	}
	if req.Note, err = decodeOptionalString(data, "note"); err != nil {
		return nil, err
	}
	if raw, ok := data["status"]; ok {
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, ErrInvalidStatus
		}
		status := model.ResvStatus(n)
		req.Status = &status
	}
	return req, nil
}

// Empty 未包含任何可修改字段
func (r *PatchReservationRequest) Empty() bool {
	return r.Title == nil && r.Note == nil && r.Status == nil
}

// DeleteSlotRequest 删除时段请求，字段集必须恰好为 {resv_id, slot_id}
type DeleteSlotRequest struct {
	ResvID string
	SlotID string
}

// ParseDeleteSlot 严格解析删除时段请求
func ParseDeleteSlot(body []byte) (*DeleteSlotRequest, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return nil, err
	}
	keys := []string{"resv_id", "slot_id"}
	if err := checkKeys(obj, keys, keys); err != nil {
		return nil, err
	}

	req := &DeleteSlotRequest{}
	if req.ResvID, err = decodeString(obj["resv_id"], "resv_id"); err != nil {
		return nil, err
	}
	if req.SlotID, err = decodeString(obj["slot_id"], "slot_id"); err != nil {
		return nil, err
	}
	return req, nil
}

// MyReservationQuery 当前用户预约查询参数
type MyReservationQuery struct {
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// ReservationListQuery 公开预约查询参数
type ReservationListQuery struct {
	RoomID     string `form:"room_id"`
	Status     *int   `form:"status"      binding:"omitempty,min=0,max=2"`
	Username   string `form:"username"`
	StartDate  string `form:"start_date"  binding:"omitempty,datetime=2006-01-02"`
	EndDate    string `form:"end_date"    binding:"omitempty,datetime=2006-01-02"`
	CreateDate string `form:"create_date" binding:"omitempty,datetime=2006-01-02"`
	UpdateDate string `form:"update_date" binding:"omitempty,datetime=2006-01-02"`
}

// SetReservationStatusRequest 管理员审批/取消预约
type SetReservationStatusRequest struct {
	Status *int `json:"status" binding:"required,min=0,max=2"`
}

// ExportQuery 导出时间范围
type ExportQuery struct {
	StartDate string `form:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string `form:"end_date"   binding:"required,datetime=2006-01-02"`
}

// ── 响应 ──

// CreateReservationResponse 创建预约结果
type CreateReservationResponse struct {
	ResvID  string `json:"resv_id"`
	Status  int    `json:"status"`
	Type    int    `json:"type"`
	Message string `json:"message"`
}

// SlotResponse 时段信息
type SlotResponse struct {
	SlotID    string `json:"slot_id,omitempty"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsActive  bool   `json:"is_active"`
}

// ReservationResponse 预约详情（本人或管理员可见）
type ReservationResponse struct {
	ResvID    string         `json:"resv_id"`
	Username  string         `json:"username"`
	RoomID    string         `json:"room_id"`
	SessionID *string        `json:"session_id,omitempty"`
	Title     string         `json:"title"`
	Note      string         `json:"note"`
	Type      int            `json:"type"`
	Status    int            `json:"status"`
	SecuLevel int            `json:"secu_level"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
	TimeSlots []SlotResponse `json:"time_slots"`
}

// PublicReservationResponse 公开预约列表项，按隐私级别裁剪字段
type PublicReservationResponse struct {
	ResvID    string         `json:"resv_id,omitempty"`
	Username  string         `json:"username,omitempty"`
	RoomID    string         `json:"room_id"`
	Title     string         `json:"title,omitempty"`
	Note      string         `json:"note,omitempty"`
	Type      *int           `json:"type,omitempty"`
	Status    int            `json:"status"`
	Privacy   *int           `json:"privacy,omitempty"`
	CreatedAt string         `json:"created_at,omitempty"`
	UpdatedAt string         `json:"updated_at,omitempty"`
	TimeSlots []SlotResponse `json:"time_slots"`
}
