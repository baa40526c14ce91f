package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"name-rotation/backend/internal/dto"
	"name-rotation/backend/internal/service"
	"name-rotation/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出（Excel / iCalendar）HTTP 处理器
type ExportHandler struct {
	exportSvc   service.ExportService
	calendarSvc service.CalendarService
	clock       Clock
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService, calendarSvc service.CalendarService, clock Clock) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, calendarSvc: calendarSvc, clock: clock}
}

// ExportSession 导出会话任务
// GET /api/v1/tasks/export?date=YYYY-MM-DD
func (h *ExportHandler) ExportSession(c *gin.Context) {
	var q dto.SessionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 14001, "参数校验失败")
		return
	}
	date, err := h.clock.sessionDateOrToday(q.Date)
	if err != nil {
		response.BadRequest(c, 14001, "date 格式应为 YYYY-MM-DD")
		return
	}

	buf, filename, err := h.exportSvc.ExportSession(c.Request.Context(), date)
	if err != nil {
		handleTaskError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ParticipantCalendar 成员任务日历（今天起）
// GET /api/v1/participants/:id/calendar
func (h *ExportHandler) ParticipantCalendar(c *gin.Context) {
	id, ok := MustGetPathID(c)
	if !ok {
		return
	}
	body, err := h.calendarSvc.ParticipantCalendar(c.Request.Context(), id, h.clock.Today())
	if err != nil {
		handleTaskError(c, err)
		return
	}

	c.Header("Content-Disposition", "inline; filename=tasks.ics")
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}
