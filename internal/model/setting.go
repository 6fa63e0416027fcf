package model

import "time"

// Setting 设置表，对应 settings（name → value）
type Setting struct {
	ID          int       `gorm:"primaryKey"                          json:"id"`
	Name        string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"name"`
	Value       string    `gorm:"type:varchar(255);not null"          json:"value"`
	Description string    `gorm:"type:text;not null"                  json:"description"`
	UpdatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"  json:"updated_at"`
}

// TableName 指定表名
func (Setting) TableName() string { return "settings" }
