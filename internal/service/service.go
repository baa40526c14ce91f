package service

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"name-rotation/backend/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Participant ParticipantService
	Task        TaskService
	Export      ExportService
	Calendar    CalendarService
}

// NewService 创建 Service 聚合；taskOpts 透传给 TaskService（会话锁、洗牌函数）
func NewService(
	repo *repository.Repository,
	logger *zap.Logger,
	taskOpts ...TaskOption,
) *Service {
	return &Service{
		Participant: NewParticipantService(repo, logger),
		Task:        NewTaskService(repo, logger, taskOpts...),
		Export:      NewExportService(repo, logger),
		Calendar:    NewCalendarService(repo, logger),
	}
}

// notFoundAs 将 gorm.ErrRecordNotFound 替换为业务错误
func notFoundAs(err, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}
