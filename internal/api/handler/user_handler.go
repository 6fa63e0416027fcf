package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"resv-system/backend/internal/dto"
	"resv-system/backend/internal/service"
	"resv-system/backend/pkg/response"
)

// UserHandler 当前用户 HTTP 处理器
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// GetProfile 获取当前用户信息
// GET /api/v1/user
func (h *UserHandler) GetProfile(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	user, err := h.userSvc.GetProfile(c.Request.Context(), caller.Username)
	if err != nil {
		handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// UpdateProfile 修改邮箱或密码
// PATCH /api/v1/user
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	body, ok := readBody(c)
	if !ok {
		return
	}

	req, err := dto.ParseUpdateUser(body)
	if err != nil {
		if !handleDecodeError(c, err) {
			response.InternalError(c)
		}
		return
	}

	user, err := h.userSvc.UpdateProfile(c.Request.Context(), caller.Username, req)
	if err != nil {
		handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// handleUserError 统一处理用户模块业务错误（管理员接口共用）
func handleUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 12001, "用户不存在")
	case errors.Is(err, service.ErrUsernameExists):
		response.Conflict(c, 12002, "用户名已存在")
	case errors.Is(err, service.ErrUserSelfRoleChange):
		response.Forbidden(c, 12003, "不能修改自己的角色")
	case errors.Is(err, service.ErrInvalidRole):
		response.BadRequest(c, 12004, "无效的角色")
	case errors.Is(err, service.ErrPasswordMismatch):
		response.BadRequest(c, 12005, "原密码错误")
	case errors.Is(err, service.ErrPasswordIncomplete):
		response.BadRequest(c, 12006, "修改密码需同时提供 password 与 new_password")
	case errors.Is(err, service.ErrWeakPassword):
		response.BadRequest(c, 12007, "新密码长度至少 8 位")
	case errors.Is(err, service.ErrNothingToUpdate):
		response.BadRequest(c, 10001, "没有可修改的字段")
	case errors.Is(err, service.ErrImportNoData),
		errors.Is(err, service.ErrImportTooManyRows),
		errors.Is(err, service.ErrImportBadHeader):
		response.BadRequest(c, 12008, err.Error())
	default:
		response.InternalError(c)
	}
}
