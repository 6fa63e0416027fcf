package model

import "time"

// Session 会话表，对应 sessions；多时段预约必须落在某个会话范围内
type Session struct {
	SessionID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"session_id"`
	Name      string    `gorm:"type:varchar(100);not null"                     json:"name"`
	StartTime time.Time `gorm:"type:timestamptz;not null"                      json:"start_time"`
	EndTime   time.Time `gorm:"type:timestamptz;not null"                      json:"end_time"`
	IsCurrent bool      `gorm:"not null;default:false"                         json:"is_current"`
	BaseModel
}

// TableName 指定表名
func (Session) TableName() string { return "sessions" }
