package model

import "time"

// Reservation 预约表，对应 reservations
type Reservation struct {
	ResvID    string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"resv_id"`
	Username  string     `gorm:"type:varchar(64);not null;index"                json:"username"`
	RoomID    string     `gorm:"type:varchar(32);not null;index"                json:"room_id"`
	SessionID *string    `gorm:"type:uuid"                                      json:"session_id,omitempty"`
	Title     string     `gorm:"type:varchar(200);not null"                     json:"title"`
	Note      string     `gorm:"type:text;not null"                             json:"note"`
	Type      ResvType   `gorm:"type:smallint;not null"                         json:"type"`
	Status    ResvStatus `gorm:"type:smallint;not null"                         json:"status"`
	SecuLevel Privacy    `gorm:"type:smallint;not null;default:0"               json:"secu_level"`
	BaseModel

	// 关联
	TimeSlots []TimeSlot `gorm:"foreignKey:ResvID;references:ResvID" json:"time_slots,omitempty"`
}

// TableName 指定表名
func (Reservation) TableName() string { return "reservations" }

// TimeSlot 预约时段表，对应 time_slots
// IsActive 由数据库触发器与所属预约状态保持一致
type TimeSlot struct {
	SlotID    string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"slot_id"`
	ResvID    string    `gorm:"type:uuid;not null;index"                       json:"resv_id"`
	RoomID    string    `gorm:"type:varchar(32);not null"                      json:"room_id"`
	StartTime time.Time `gorm:"type:timestamptz;not null"                      json:"start_time"`
	EndTime   time.Time `gorm:"type:timestamptz;not null"                      json:"end_time"`
	IsActive  bool      `gorm:"not null;default:true"                          json:"is_active"`
}

// TableName 指定表名
func (TimeSlot) TableName() string { return "time_slots" }
