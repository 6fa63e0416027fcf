package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"resv-system/backend/internal/api/middleware"
	"resv-system/backend/internal/dto"
	"resv-system/backend/internal/model"
	"resv-system/backend/internal/service"
	"resv-system/backend/pkg/jwt"
	"resv-system/backend/pkg/response"
)

// MustGetCaller 从 Gin 上下文中提取当前调用者。
// 如果 JWT 中间件未正确注入身份信息，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetCaller(c *gin.Context) (service.Caller, bool) {
	username := c.GetString(middleware.CtxUsername)
	v, exists := c.Get(middleware.CtxRole)
	role, ok := v.(model.Role)
	if username == "" || !exists || !ok {
		response.Unauthorized(c, 10002, "未认证")
		return service.Caller{}, false
	}
	return service.Caller{Username: username, Role: role}, true
}

// GetClaims 返回当前 Access Token 的声明，未认证时为 nil
func GetClaims(c *gin.Context) *jwt.Claims {
	v, exists := c.Get(middleware.CtxClaims)
	if !exists {
		return nil
	}
	claims, _ := v.(*jwt.Claims)
	return claims
}

// readBody 读取原始请求体，供严格字段集校验使用
func readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			return nil, false
		}
		response.BadRequest(c, 10001, "读取请求体失败")
		return nil, false
	}
	return body, true
}

// handleDecodeError 严格解析失败统一返回 400，并携带具体字段
func handleDecodeError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, dto.ErrMissingFields),
		errors.Is(err, dto.ErrInvalidFields),
		errors.Is(err, dto.ErrMalformedBody),
		errors.Is(err, dto.ErrInvalidStatus):
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return true
	}
	return false
}
