package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resv-system/backend/internal/dto"
	"resv-system/backend/internal/model"
	"resv-system/backend/internal/service"
	"resv-system/backend/pkg/response"
)

// AdminHandler 管理员接口（路由层已限制 ADMIN）
type AdminHandler struct {
	userSvc    service.UserService
	roomSvc    service.RoomService
	catalogSvc service.CatalogService
	settingSvc service.SettingService
	resvSvc    service.ReservationService
}

// NewAdminHandler 创建 AdminHandler
func NewAdminHandler(svc *service.Service) *AdminHandler {
	return &AdminHandler{
		userSvc:    svc.User,
		roomSvc:    svc.Room,
		catalogSvc: svc.Catalog,
		settingSvc: svc.Setting,
		resvSvc:    svc.Reservation,
	}
}

// ────────────────────── 房间 ──────────────────────

// CreateRoom POST /api/v1/admin/rooms
func (h *AdminHandler) CreateRoom(c *gin.Context) {
	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	room, err := h.roomSvc.Create(c.Request.Context(), &req)
	if err != nil {
		handleRoomError(c, err)
		return
	}

	response.Created(c, room)
}

// UpdateRoom PATCH /api/v1/admin/rooms/:id
func (h *AdminHandler) UpdateRoom(c *gin.Context) {
	var req dto.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	room, err := h.roomSvc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleRoomError(c, err)
		return
	}

	response.OK(c, room)
}

func handleRoomError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRoomNotFound):
		response.NotFound(c, 14001, "房间不存在")
	case errors.Is(err, service.ErrRoomExists):
		response.Conflict(c, 14002, "房间编号已存在")
	case errors.Is(err, service.ErrRoomTypeNotFound):
		response.BadRequest(c, 14003, "房间类型不存在")
	case errors.Is(err, service.ErrInvalidRoomStatus):
		response.BadRequest(c, 14004, "无效的房间状态")
	default:
		response.InternalError(c)
	}
}

// ────────────────────── 用户 ──────────────────────

// CreateUser 创建用户（未指定密码时返回一次性临时密码）
// POST /api/v1/admin/users
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.userSvc.CreateUser(c.Request.Context(), &req)
	if err != nil {
		handleUserError(c, err)
		return
	}

	response.Created(c, result)
}

// SetRole PATCH /api/v1/admin/users/:username/role
func (h *AdminHandler) SetRole(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	user, err := h.userSvc.SetRole(c.Request.Context(), c.Param("username"), model.Role(*req.Role), caller.Username)
	if err != nil {
		handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// ResetPassword POST /api/v1/admin/users/:username/reset-password
func (h *AdminHandler) ResetPassword(c *gin.Context) {
	result, err := h.userSvc.ResetPassword(c.Request.Context(), c.Param("username"))
	if err != nil {
		handleUserError(c, err)
		return
	}

	response.OK(c, result)
}

// ImportUsers 通过 Excel 批量导入用户
// POST /api/v1/admin/users/import (multipart/form-data, field="file")
func (h *AdminHandler) ImportUsers(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, 12008, "请上传 Excel 文件")
		return
	}
	defer file.Close()

	rows, err := h.userSvc.ParseImportFile(file)
	if err != nil {
		if errors.Is(err, service.ErrImportNoData) ||
			errors.Is(err, service.ErrImportTooManyRows) ||
			errors.Is(err, service.ErrImportBadHeader) {
			handleUserError(c, err)
			return
		}
		response.ErrorWithDetails(c, http.StatusBadRequest, 12008, "Excel 文件解析失败", err.Error())
		return
	}

	result, err := h.userSvc.ImportUsers(c.Request.Context(), rows)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// ────────────────────── 设置 ──────────────────────

// UpdateSetting PATCH /api/v1/admin/settings/:id
func (h *AdminHandler) UpdateSetting(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.BadRequest(c, 10001, "设置项ID无效")
		return
	}

	var req dto.UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	setting, err := h.settingSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSettingNotFound):
			response.NotFound(c, 17001, "设置项不存在")
		case errors.Is(err, service.ErrInvalidSetting):
			response.ErrorWithDetails(c, http.StatusBadRequest, 17002, "设置值无效", err.Error())
		default:
			response.InternalError(c)
		}
		return
	}

	response.OK(c, setting)
}

// ────────────────────── 公告 ──────────────────────

// CreateNotice POST /api/v1/admin/notices
func (h *AdminHandler) CreateNotice(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.CreateNoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	notice, err := h.catalogSvc.CreateNotice(c.Request.Context(), &req, caller.Username)
	if err != nil {
		handleCatalogError(c, err)
		return
	}

	response.Created(c, notice)
}

// UpdateNotice PATCH /api/v1/admin/notices/:id
func (h *AdminHandler) UpdateNotice(c *gin.Context) {
	var req dto.UpdateNoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	notice, err := h.catalogSvc.UpdateNotice(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleCatalogError(c, err)
		return
	}

	response.OK(c, notice)
}

// DeleteNotice DELETE /api/v1/admin/notices/:id
func (h *AdminHandler) DeleteNotice(c *gin.Context) {
	if err := h.catalogSvc.DeleteNotice(c.Request.Context(), c.Param("id")); err != nil {
		handleCatalogError(c, err)
		return
	}
	response.NoContent(c)
}

// ────────────────────── 会话 / 节次 ──────────────────────

// CreateSession POST /api/v1/admin/sessions
func (h *AdminHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	session, err := h.catalogSvc.CreateSession(c.Request.Context(), &req)
	if err != nil {
		handleCatalogError(c, err)
		return
	}

	response.Created(c, session)
}

// DeleteSession DELETE /api/v1/admin/sessions/:id
func (h *AdminHandler) DeleteSession(c *gin.Context) {
	if err := h.catalogSvc.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		handleCatalogError(c, err)
		return
	}
	response.NoContent(c)
}

// CreatePeriod POST /api/v1/admin/periods
func (h *AdminHandler) CreatePeriod(c *gin.Context) {
	var req dto.CreatePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	period, err := h.catalogSvc.CreatePeriod(c.Request.Context(), &req)
	if err != nil {
		handleCatalogError(c, err)
		return
	}

	response.Created(c, period)
}

// DeletePeriod DELETE /api/v1/admin/periods/:id
func (h *AdminHandler) DeletePeriod(c *gin.Context) {
	if err := h.catalogSvc.DeletePeriod(c.Request.Context(), c.Param("id")); err != nil {
		handleCatalogError(c, err)
		return
	}
	response.NoContent(c)
}

func handleCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 15001, "会话不存在")
	case errors.Is(err, service.ErrSessionInUse):
		response.Conflict(c, 15002, "会话已被预约引用，无法删除")
	case errors.Is(err, service.ErrInvalidSession):
		response.BadRequest(c, 15003, "会话开始时间必须早于结束时间")
	case errors.Is(err, service.ErrPeriodNotFound):
		response.NotFound(c, 15101, "节次不存在")
	case errors.Is(err, service.ErrInvalidPeriod):
		response.BadRequest(c, 15102, "节次时间格式应为 HH:MM，且开始早于结束")
	case errors.Is(err, service.ErrPeriodExists):
		response.Conflict(c, 15103, "相同开始时间的节次已存在")
	case errors.Is(err, service.ErrNoticeNotFound):
		response.NotFound(c, 15201, "公告不存在")
	default:
		response.InternalError(c)
	}
}

// ────────────────────── 预约审批 ──────────────────────

// SetReservationStatus 审批或取消预约
// PATCH /api/v1/admin/reservations/:id/status
func (h *AdminHandler) SetReservationStatus(c *gin.Context) {
	var req dto.SetReservationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resv, err := h.resvSvc.SetStatus(c.Request.Context(), c.Param("id"), model.ResvStatus(*req.Status))
	if err != nil {
		handleReservationError(c, err)
		return
	}

	response.OK(c, resv)
}
