package dto

// ── 用户模块 DTO ──

// UpdateUserRequest 修改本人信息：{email?, password?, new_password?}
type UpdateUserRequest struct {
	Email       *string
	Password    *string
	NewPassword *string
}

// ParseUpdateUser 严格解析修改本人信息请求
func ParseUpdateUser(body []byte) (*UpdateUserRequest, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return nil, err
	}
	if err := checkKeys(obj, nil, []string{"email", "password", "new_password"}); err != nil {
		return nil, err
	}

	req := &UpdateUserRequest{}
	if req.Email, err = decodeOptionalString(obj, "email"); err != nil {
		return nil, err
	}
	if req.Password, err = decodeOptionalString(obj, "password"); err != nil {
		return nil, err
	}
	if req.NewPassword, err = decodeOptionalString(obj, "new_password"); err != nil {
		return nil, err
	}
	return req, nil
}

// UserListQuery 公开用户查询参数
type UserListQuery struct {
	Username string `form:"username"`
	Name     string `form:"name"`
}

// CreateUserRequest 管理员创建用户
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=2,max=64"`
	Name     string `json:"name"     binding:"required,max=100"`
	Email    string `json:"email"    binding:"omitempty,email"`
	Role     *int   `json:"role"     binding:"omitempty,min=-1,max=3"`
	Password string `json:"password" binding:"omitempty,min=8,max=64"` // 为空时生成临时密码
}

// SetRoleRequest 管理员设置角色
type SetRoleRequest struct {
	Role *int `json:"role" binding:"required,min=-1,max=3"`
}

// ── 响应 ──

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	Username  string `json:"username"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      int    `json:"role"`
	RoleName  string `json:"role_name"`
	CreatedAt string `json:"created_at"`
}

// UserBrief 公开用户列表项
type UserBrief struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

// CreateUserResponse 创建用户结果，临时密码仅返回一次
type CreateUserResponse struct {
	User         UserResponse `json:"user"`
	TempPassword string       `json:"temp_password,omitempty"`
}

// ImportUserError 导入失败的行
type ImportUserError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportUserResponse 批量导入结果；Passwords 为新用户临时密码，仅返回一次
type ImportUserResponse struct {
	Total     int               `json:"total"`
	Success   int               `json:"success"`
	Failed    int               `json:"failed"`
	Errors    []ImportUserError `json:"errors,omitempty"`
	Passwords map[string]string `json:"passwords,omitempty"`
}
