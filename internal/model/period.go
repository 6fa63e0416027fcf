package model

import "time"

// Period 节次表，对应 periods；每天重复的固定时间块，时间格式 HH:MM[:SS]
type Period struct {
	PeriodID  string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"period_id"`
	Name      string    `gorm:"type:varchar(50);not null"                      json:"name"`
	StartTime string    `gorm:"type:time;not null"                             json:"start_time"`
	EndTime   string    `gorm:"type:time;not null"                             json:"end_time"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (Period) TableName() string { return "periods" }
