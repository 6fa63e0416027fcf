package dto

import "time"

// ── 会话 ──

// CreateSessionRequest 创建会话
type CreateSessionRequest struct {
	Name      string    `json:"name"       binding:"required,max=100"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time"   binding:"required"`
	IsCurrent bool      `json:"is_current"`
}

// SessionListQuery 会话查询参数
type SessionListQuery struct {
	Current bool `form:"current"`
}

// SessionResponse 会话信息
type SessionResponse struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsCurrent bool   `json:"is_current"`
}

// ── 节次 ──

// CreatePeriodRequest 创建节次（HH:MM）
type CreatePeriodRequest struct {
	Name      string `json:"name"       binding:"required,max=50"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time"   binding:"required"`
}

// PeriodResponse 节次信息
type PeriodResponse struct {
	PeriodID  string `json:"period_id"`
	Name      string `json:"name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// ── 设置 ──

// UpdateSettingRequest 修改设置项
type UpdateSettingRequest struct {
	Value       *string `json:"value"       binding:"omitempty,max=255"`
	Description *string `json:"description"`
}

// SettingResponse 设置项
type SettingResponse struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Value       string `json:"value"`
	Description string `json:"description"`
	UpdatedAt   string `json:"updated_at"`
}

// ── 公告 ──

// CreateNoticeRequest 创建公告
type CreateNoticeRequest struct {
	Title   string `json:"title"   binding:"required,max=200"`
	Content string `json:"content"`
}

// UpdateNoticeRequest 修改公告
type UpdateNoticeRequest struct {
	Title   *string `json:"title"   binding:"omitempty,min=1,max=200"`
	Content *string `json:"content"`
}

// NoticeResponse 公告
type NoticeResponse struct {
	NoticeID  string `json:"notice_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Username  string `json:"username,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ── 其他目录 ──

// RoomTypeResponse 房间类型
type RoomTypeResponse struct {
	TypeID      int    `json:"type_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LanguageResponse 语言
type LanguageResponse struct {
	LangCode string `json:"lang_code"`
	Name     string `json:"name"`
}
