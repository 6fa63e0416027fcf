package handler

import (
	"github.com/gin-gonic/gin"

	"resv-system/backend/internal/dto"
	"resv-system/backend/internal/model"
	"resv-system/backend/internal/service"
	"resv-system/backend/pkg/response"
)

// PublicHandler 登录用户可见的公开查询
type PublicHandler struct {
	resvSvc    service.ReservationService
	userSvc    service.UserService
	roomSvc    service.RoomService
	catalogSvc service.CatalogService
	settingSvc service.SettingService
}

// NewPublicHandler 创建 PublicHandler
func NewPublicHandler(svc *service.Service) *PublicHandler {
	return &PublicHandler{
		resvSvc:    svc.Reservation,
		userSvc:    svc.User,
		roomSvc:    svc.Room,
		catalogSvc: svc.Catalog,
		settingSvc: svc.Setting,
	}
}

// ListReservations 公开预约列表（按隐私级别裁剪）
// GET /api/v1/reservations
func (h *PublicHandler) ListReservations(c *gin.Context) {
	var q dto.ReservationListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.resvSvc.ListPublic(c.Request.Context(), &q)
	if err != nil {
		handleReservationError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ── 枚举目录 ──

// ReservationStatuses GET /api/v1/reservations/status
func (h *PublicHandler) ReservationStatuses(c *gin.Context) {
	response.OK(c, gin.H{"list": model.StatusCatalog()})
}

// ReservationPrivacies GET /api/v1/reservations/privacy
func (h *PublicHandler) ReservationPrivacies(c *gin.Context) {
	response.OK(c, gin.H{"list": model.PrivacyCatalog()})
}

// UserRoles GET /api/v1/users/roles
func (h *PublicHandler) UserRoles(c *gin.Context) {
	response.OK(c, gin.H{"list": model.RoleCatalog()})
}

// RoomStatuses GET /api/v1/rooms/status
func (h *PublicHandler) RoomStatuses(c *gin.Context) {
	response.OK(c, gin.H{"list": model.RoomStatusCatalog()})
}

// ── 目录查询 ──

// ListRooms 房间列表
// GET /api/v1/rooms?type=&status=
func (h *PublicHandler) ListRooms(c *gin.Context) {
	var q dto.RoomListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	rooms, err := h.roomSvc.List(c.Request.Context(), &q)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": rooms})
}

// ListRoomTypes GET /api/v1/rooms/types
func (h *PublicHandler) ListRoomTypes(c *gin.Context) {
	types, err := h.roomSvc.ListTypes(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": types})
}

// ListPeriods GET /api/v1/periods
func (h *PublicHandler) ListPeriods(c *gin.Context) {
	periods, err := h.catalogSvc.ListPeriods(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": periods})
}

// ListSessions 会话列表
// GET /api/v1/sessions?current=true
func (h *PublicHandler) ListSessions(c *gin.Context) {
	var q dto.SessionListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	sessions, err := h.catalogSvc.ListSessions(c.Request.Context(), q.Current)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": sessions})
}

// ListNotices GET /api/v1/notices
func (h *PublicHandler) ListNotices(c *gin.Context) {
	notices, err := h.catalogSvc.ListNotices(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": notices})
}

// ListSettings GET /api/v1/settings
func (h *PublicHandler) ListSettings(c *gin.Context) {
	settings, err := h.settingSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": settings})
}

// ListLanguages GET /api/v1/languages
func (h *PublicHandler) ListLanguages(c *gin.Context) {
	langs, err := h.catalogSvc.ListLanguages(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": langs})
}

// ListUsers 用户名与姓名列表
// GET /api/v1/users?username=&name=
func (h *PublicHandler) ListUsers(c *gin.Context) {
	var q dto.UserListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	users, err := h.userSvc.ListBrief(c.Request.Context(), &q)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": users})
}
