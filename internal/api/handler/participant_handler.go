package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"name-rotation/backend/internal/dto"
	"name-rotation/backend/internal/service"
	pkgerrors "name-rotation/backend/pkg/errors"
	"name-rotation/backend/pkg/response"
)

// ParticipantHandler 成员名册 HTTP 处理器
type ParticipantHandler struct {
	participantSvc service.ParticipantService
}

// NewParticipantHandler 创建 ParticipantHandler
func NewParticipantHandler(participantSvc service.ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{participantSvc: participantSvc}
}

// List 成员列表
// GET /api/v1/participants?active=true&page=1&page_size=20
func (h *ParticipantHandler) List(c *gin.Context) {
	var req dto.ParticipantListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 14001, "参数校验失败")
		return
	}

	list, total, err := h.participantSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleParticipantError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Count 启用成员数
// GET /api/v1/participants/count
func (h *ParticipantHandler) Count(c *gin.Context) {
	n, err := h.participantSvc.CountActive(c.Request.Context())
	if err != nil {
		h.handleParticipantError(c, err)
		return
	}
	response.OK(c, dto.ParticipantCountResponse{Active: n})
}

// NeverSelected 从未被抽中的启用成员
// GET /api/v1/participants/never-selected
func (h *ParticipantHandler) NeverSelected(c *gin.Context) {
	list, err := h.participantSvc.ListNeverSelected(c.Request.Context())
	if err != nil {
		h.handleParticipantError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// Get 成员详情
// GET /api/v1/participants/:id
func (h *ParticipantHandler) Get(c *gin.Context) {
	id, ok := MustGetPathID(c)
	if !ok {
		return
	}
	p, err := h.participantSvc.Get(c.Request.Context(), id)
	if err != nil {
		h.handleParticipantError(c, err)
		return
	}
	response.OK(c, p)
}

// Create 新增成员
// POST /api/v1/participants
func (h *ParticipantHandler) Create(c *gin.Context) {
	var req dto.CreateParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 14001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	p, err := h.participantSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleParticipantError(c, err)
		return
	}
	response.Created(c, p)
}

// Rename 修改成员名称
// PUT /api/v1/participants/:id
func (h *ParticipantHandler) Rename(c *gin.Context) {
	var req dto.RenameParticipantRequest
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

	p, err := h.participantSvc.Rename(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleParticipantError(c, err)
		return
	}
	response.OK(c, p)
}

// Deactivate 停用成员（软删除）
// PUT /api/v1/participants/:id/deactivate
func (h *ParticipantHandler) Deactivate(c *gin.Context) {
	id, ok := MustGetPathID(c)
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	p, err := h.participantSvc.Deactivate(c.Request.Context(), id, callerID)
	if err != nil {
		h.handleParticipantError(c, err)
		return
	}
	response.OK(c, p)
}

// Activate 重新启用成员
// PUT /api/v1/participants/:id/activate
func (h *ParticipantHandler) Activate(c *gin.Context) {
	id, ok := MustGetPathID(c)
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	p, err := h.participantSvc.Activate(c.Request.Context(), id, callerID)
	if err != nil {
		h.handleParticipantError(c, err)
		return
	}
	response.OK(c, p)
}

func (h *ParticipantHandler) handleParticipantError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrParticipantNotFound):
		response.NotFound(c, 14102, "成员不存在")
	case errors.Is(err, pkgerrors.ErrInvalidArgument):
		response.BadRequest(c, 14001, err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 14105, err.Error())
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
