package model

// RoomType 房间类型表，对应 room_types
type RoomType struct {
	TypeID      int    `gorm:"column:type_id;type:smallint;primaryKey" json:"type_id"`
	Name        string `gorm:"type:varchar(50);not null"               json:"name"`
	Description string `gorm:"type:text;not null"                      json:"description"`
}

// TableName 指定表名
func (RoomType) TableName() string { return "room_types" }

// Room 房间表，对应 rooms
type Room struct {
	RoomID      string     `gorm:"type:varchar(32);primaryKey"      json:"room_id"`
	Name        string     `gorm:"type:varchar(100);not null"       json:"name"`
	Type        int        `gorm:"type:smallint;not null"           json:"type"`
	Capacity    int        `gorm:"not null;default:0"               json:"capacity"`
	Status      RoomStatus `gorm:"type:smallint;not null;default:1" json:"status"`
	Description string     `gorm:"type:text;not null"               json:"description"`
	BaseModel
}

// TableName 指定表名
func (Room) TableName() string { return "rooms" }

// Available 房间当前是否可预约
func (r *Room) Available() bool { return r != nil && r.Status == RoomAvailable }
