package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resv-system/backend/internal/dto"
	"resv-system/backend/internal/service"
	"resv-system/backend/pkg/response"
)

// ReservationHandler 当前用户预约 HTTP 处理器
type ReservationHandler struct {
	resvSvc service.ReservationService
}

// NewReservationHandler 创建 ReservationHandler
func NewReservationHandler(resvSvc service.ReservationService) *ReservationHandler {
	return &ReservationHandler{resvSvc: resvSvc}
}

// Create 创建预约
// POST /api/v1/user/reservation
func (h *ReservationHandler) Create(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	result, err := h.resvSvc.Create(c.Request.Context(), caller, &req)
	if err != nil {
		handleReservationError(c, err)
		return
	}

	response.Created(c, result)
}

// Patch 修改标题/备注或取消本人预约
// PATCH /api/v1/user/reservation
func (h *ReservationHandler) Patch(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	body, ok := readBody(c)
	if !ok {
		return
	}

	req, err := dto.ParsePatchReservation(body)
	if err != nil {
		if !handleDecodeError(c, err) {
			response.InternalError(c)
		}
		return
	}

	if err := h.resvSvc.Patch(c.Request.Context(), caller, req); err != nil {
		handleReservationError(c, err)
		return
	}

	response.OK(c, dto.MessageResponse{Message: "预约已更新"})
}

// DeleteSlot 删除本人预约中的一个时段
// DELETE /api/v1/user/reservation
func (h *ReservationHandler) DeleteSlot(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}
	body, ok := readBody(c)
	if !ok {
		return
	}

	req, err := dto.ParseDeleteSlot(body)
	if err != nil {
		if !handleDecodeError(c, err) {
			response.InternalError(c)
		}
		return
	}

	if err := h.resvSvc.DeleteSlot(c.Request.Context(), caller, req); err != nil {
		handleReservationError(c, err)
		return
	}

	response.NoContent(c)
}

// ListMine 本人预约列表
// GET /api/v1/user/reservation?date=YYYY-MM-DD
func (h *ReservationHandler) ListMine(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var q dto.MyReservationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "日期格式应为 YYYY-MM-DD")
		return
	}

	list, err := h.resvSvc.ListMine(c.Request.Context(), caller, q.Date)
	if err != nil {
		handleReservationError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Today 本人今日预约
// GET /api/v1/user/reservation/today
func (h *ReservationHandler) Today(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, err := h.resvSvc.Today(c.Request.Context(), caller)
	if err != nil {
		handleReservationError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// handleReservationError 统一处理预约模块业务错误（公开查询与审批共用）
func handleReservationError(c *gin.Context, err error) {
	switch {
	// 校验错误
	case errors.Is(err, service.ErrMissingFields),
		errors.Is(err, service.ErrEmptyTimeSlots),
		errors.Is(err, service.ErrInvalidTimeSlot),
		errors.Is(err, service.ErrSelfOverlap),
		errors.Is(err, service.ErrInvalidPrivacy),
		errors.Is(err, service.ErrSessionRequired),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrNothingToUpdate),
		errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrInvalidTitle):
		response.BadRequest(c, 10001, err.Error())

	// 权限
	case errors.Is(err, service.ErrRoleBlocked):
		response.Forbidden(c, 13001, "账号已被封禁")
	case errors.Is(err, service.ErrNotOwner):
		response.Forbidden(c, 13002, "只能操作本人的预约")

	// 策略拒绝
	case errors.Is(err, service.ErrAdmissionDenied):
		response.BadRequest(c, 13101, "Access denied")
	case errors.Is(err, service.ErrRoomUnavailable):
		response.BadRequest(c, 13102, "房间不可预约")
	case errors.Is(err, service.ErrDailyLimitReached):
		response.BadRequest(c, 13103, "今日预约数已达上限")
	case errors.Is(err, service.ErrNotPeriodCombination):
		response.BadRequest(c, 13104, "时段必须由完整的节次组成")
	case errors.Is(err, service.ErrOutOfSession):
		response.BadRequest(c, 13105, "时段不在所选会话范围内")

	// 冲突与不存在
	case errors.Is(err, service.ErrReservationConflict):
		response.Conflict(c, 13201, "时段已被占用")
	case errors.Is(err, service.ErrReservationNotFound):
		response.NotFound(c, 13301, "预约不存在")
	case errors.Is(err, service.ErrSlotNotFound):
		response.NotFound(c, 13302, "时段不存在")

	default:
		response.InternalError(c)
	}
}
