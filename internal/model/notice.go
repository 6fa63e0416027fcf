package model

// Notice 公告表，对应 notices
type Notice struct {
	NoticeID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notice_id"`
	Title    string  `gorm:"type:varchar(200);not null"                     json:"title"`
	Content  string  `gorm:"type:text;not null"                             json:"content"`
	Username *string `gorm:"type:varchar(64)"                               json:"username,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Notice) TableName() string { return "notices" }

// Language 语言表，对应 languages
type Language struct {
	LangCode string `gorm:"type:varchar(16);primaryKey" json:"lang_code"`
	Name     string `gorm:"type:varchar(50);not null"   json:"name"`
}

// TableName 指定表名
func (Language) TableName() string { return "languages" }
