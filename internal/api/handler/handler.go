package handler

import "name-rotation/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Participant *ParticipantHandler
	Task        *TaskHandler
	Export      *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, clock Clock, defaultCount int) *Handler {
	return &Handler{
		Participant: NewParticipantHandler(svc.Participant),
		Task:        NewTaskHandler(svc.Task, clock, defaultCount),
		Export:      NewExportHandler(svc.Export, svc.Calendar, clock),
	}
}
