package model

// User 用户表，对应 users；username 即身份标识
type User struct {
	Username     string `gorm:"type:varchar(64);primaryKey"         json:"username"`
	PasswordHash string `gorm:"column:password;type:varchar(255);not null" json:"-"`
	Name         string `gorm:"type:varchar(100);not null"          json:"name"`
	Email        string `gorm:"type:varchar(255);not null"          json:"email"`
	Role         Role   `gorm:"type:smallint;not null;default:1"    json:"role"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }
