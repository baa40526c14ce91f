package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"name-rotation/backend/internal/dto"
	"name-rotation/backend/internal/model"
	"name-rotation/backend/internal/service"
	pkgerrors "name-rotation/backend/pkg/errors"
	"name-rotation/backend/pkg/response"
)

// TaskHandler 会话任务 HTTP 处理器
type TaskHandler struct {
	taskSvc      service.TaskService
	clock        Clock
	defaultCount int
}

// NewTaskHandler 创建 TaskHandler
func NewTaskHandler(taskSvc service.TaskService, clock Clock, defaultCount int) *TaskHandler {
	return &TaskHandler{taskSvc: taskSvc, clock: clock, defaultCount: defaultCount}
}

// Generate 生成（替换）会话任务
// POST /api/v1/tasks/generate
func (h *TaskHandler) Generate(c *gin.Context) {
	var req dto.GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 14001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	date, err := h.clock.sessionDateOrToday(req.SessionDate)
	if err != nil {
		response.BadRequest(c, 14001, "session_date 格式应为 YYYY-MM-DD")
		return
	}
	count := h.defaultCount
	if req.Count != nil {
		count = *req.Count
	}

	result, err := h.taskSvc.Generate(c.Request.Context(), date, count, callerID)
	if err != nil {
		handleTaskError(c, err)
		return
	}

	response.Created(c, result)
}

// List 会话任务列表
// GET /api/v1/tasks?date=YYYY-MM-DD&type=normal|special
func (h *TaskHandler) List(c *gin.Context) {
	var req dto.TaskListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 14001, "参数校验失败")
		return
	}

	switch req.Type {
	case "normal":
		h.listWith(c, req.Date, h.taskSvc.ListNormal)
	case "special":
		h.listWith(c, req.Date, h.taskSvc.ListSpecial)
	default:
		h.listWith(c, req.Date, h.taskSvc.ListAll)
	}
}

// ListNormal 普通任务
// GET /api/v1/tasks/normal?date=YYYY-MM-DD
func (h *TaskHandler) ListNormal(c *gin.Context) {
	var q dto.SessionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 14001, "参数校验失败")
		return
	}
	h.listWith(c, q.Date, h.taskSvc.ListNormal)
}

// ListSpecial 特殊任务
// GET /api/v1/tasks/special?date=YYYY-MM-DD
func (h *TaskHandler) ListSpecial(c *gin.Context) {
	var q dto.SessionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 14001, "参数校验失败")
		return
	}
	h.listWith(c, q.Date, h.taskSvc.ListSpecial)
}

func (h *TaskHandler) listWith(c *gin.Context, rawDate string, fn func(ctx context.Context, date time.Time) ([]dto.TaskResponse, error)) {
	date, err := h.clock.sessionDateOrToday(rawDate)
	if err != nil {
		response.BadRequest(c, 14001, "date 格式应为 YYYY-MM-DD")
		return
	}

	list, err := fn(c.Request.Context(), date)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	response.OK(c, gin.H{
		"session_date": date.Format(model.DateLayout),
		"list":         list,
	})
}

// Update 修改单条任务（label / 负责人）
// PUT /api/v1/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 14001, "参数校验失败")
		return
	}

	id, ok := MustGetPathID(c)
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	item, err := h.taskSvc.Update(c.Request.Context(), id, &req, callerID)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	response.OK(c, item)
}

// Clear 清空会话
// DELETE /api/v1/tasks?date=YYYY-MM-DD
func (h *TaskHandler) Clear(c *gin.Context) {
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

	if err := h.taskSvc.Clear(c.Request.Context(), date); err != nil {
		handleTaskError(c, err)
		return
	}
	response.OK(c, nil)
}

// Exists 会话是否已生成
// GET /api/v1/tasks/exists?date=YYYY-MM-DD
func (h *TaskHandler) Exists(c *gin.Context) {
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

	exists, err := h.taskSvc.HasSession(c.Request.Context(), date)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	response.OK(c, dto.SessionExistsResponse{
		SessionDate: date.Format(model.DateLayout),
		Exists:      exists,
	})
}

// LatestDate 最近一次会话日期
// GET /api/v1/tasks/latest-date
func (h *TaskHandler) LatestDate(c *gin.Context) {
	latest, err := h.taskSvc.LatestSessionDate(c.Request.Context())
	if err != nil {
		handleTaskError(c, err)
		return
	}

	var resp dto.LatestSessionResponse
	if latest != nil {
		s := latest.Format(model.DateLayout)
		resp.SessionDate = &s
	}
	response.OK(c, resp)
}

// handleTaskError 业务错误 → 响应码
func handleTaskError(c *gin.Context, err error) {
	var insufficient *service.InsufficientParticipantsError
	switch {
	case errors.As(err, &insufficient):
		response.ErrorWithData(c, http.StatusUnprocessableEntity, 14103, "可用成员不足", gin.H{
			"available": insufficient.Available,
			"requested": insufficient.Requested,
		})
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.NotFound(c, 14101, "任务分配不存在")
	case errors.Is(err, service.ErrParticipantNotFound):
		response.NotFound(c, 14102, "成员不存在")
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.NotFound(c, 14101, err.Error())
	case errors.Is(err, pkgerrors.ErrInvalidArgument):
		response.BadRequest(c, 14001, err.Error())
	case errors.Is(err, service.ErrSessionBusy):
		response.Conflict(c, 14104, "该日期的任务正在生成中，请稍后重试")
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
