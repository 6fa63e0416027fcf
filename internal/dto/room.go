package dto

// ── 房间模块 DTO ──

// RoomListQuery 房间列表查询参数
type RoomListQuery struct {
	Type   *int `form:"type"`
	Status *int `form:"status" binding:"omitempty,min=0,max=1"`
}

// CreateRoomRequest 创建房间请求
type CreateRoomRequest struct {
	RoomID      string `json:"room_id"     binding:"required,max=32"`
	Name        string `json:"name"        binding:"required,max=100"`
	Type        int    `json:"type"        binding:"min=0"`
	Capacity    int    `json:"capacity"    binding:"min=0"`
	Status      *int   `json:"status"      binding:"omitempty,min=0,max=1"`
	Description string `json:"description"`
}

// UpdateRoomRequest 更新房间请求
type UpdateRoomRequest struct {
	Name        *string `json:"name"        binding:"omitempty,max=100"`
	Type        *int    `json:"type"        binding:"omitempty,min=0"`
	Capacity    *int    `json:"capacity"    binding:"omitempty,min=0"`
	Status      *int    `json:"status"      binding:"omitempty,min=0,max=1"`
	Description *string `json:"description"`
}

// RoomResponse 房间信息
type RoomResponse struct {
	RoomID      string `json:"room_id"`
	Name        string `json:"name"`
	Type        int    `json:"type"`
	Capacity    int    `json:"capacity"`
	Status      int    `json:"status"`
	Description string `json:"description"`
}
