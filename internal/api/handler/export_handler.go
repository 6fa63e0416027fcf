package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"resv-system/backend/internal/dto"
	"resv-system/backend/internal/service"
	"resv-system/backend/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportReservations 导出时间范围内的预约
// GET /api/v1/admin/export/reservations?start_date=2026-03-01&end_date=2026-03-31
func (h *ExportHandler) ExportReservations(c *gin.Context) {
	var q dto.ExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "start_date 与 end_date 不能为空，格式为 YYYY-MM-DD")
		return
	}

	buf, filename, err := h.exportSvc.ExportReservations(c.Request.Context(), q.StartDate, q.EndDate)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	sendFile(c, buf, filename, contentTypeXLSX)
}

// ExportCalendar 导出本人有效预约为 iCalendar
// GET /api/v1/user/reservation/ics
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportCalendar(c.Request.Context(), caller)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	sendFile(c, buf, filename, contentTypeICS)
}

// sendFile 设置下载响应头
func sendFile(c *gin.Context, buf *bytes.Buffer, filename, contentType string) {
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 16101, "日期格式应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrExportRange):
		response.BadRequest(c, 16102, "导出范围无效：结束日期不能早于开始日期，且跨度不超过 366 天")
	default:
		response.InternalError(c)
	}
}
