package service

import (
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"name-rotation/backend/internal/model"
	"name-rotation/backend/internal/repository"
	pkgerrors "name-rotation/backend/pkg/errors"
)

const calendarProductID = "-//name-rotation//tasks//CN"

// CalendarService 生成成员任务日历（iCalendar）
//
// 每条任务分配对应一个全天 VEVENT，UID 使用 assignment_id，重新生成会话后旧事件自然失效。
type CalendarService interface {
	// ParticipantCalendar 返回成员自 from（含）起的任务日历文本
	ParticipantCalendar(ctx context.Context, participantID string, from time.Time) (string, error)
}

type calendarService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(repo *repository.Repository, logger *zap.Logger) CalendarService {
	return &calendarService{repo: repo, logger: logger}
}

func (s *calendarService) ParticipantCalendar(ctx context.Context, participantID string, from time.Time) (string, error) {
	p, err := s.repo.Participant.GetByID(ctx, participantID)
	if err != nil {
		return "", pkgerrors.Wrap("查询成员", notFoundAs(err, ErrParticipantNotFound))
	}

	items, err := s.repo.Assignment.ListByParticipant(ctx, participantID, model.SessionDate(from))
	if err != nil {
		s.logger.Error("查询成员任务失败", zap.String("participant_id", participantID), zap.Error(err))
		return "", pkgerrors.Storage("查询成员任务", err)
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)
	cal.SetName(fmt.Sprintf("%s 的轮值任务", p.Name))

	stamp := time.Now().UTC()
	for _, item := range items {
		day := model.SessionDate(item.SessionDate)
		evt := cal.AddEvent(item.AssignmentID)
		evt.SetDtStampTime(stamp)
		evt.SetAllDayStartAt(day)
		evt.SetAllDayEndAt(day.AddDate(0, 0, 1))
		evt.SetSummary(eventSummary(item))
	}
	return cal.Serialize(), nil
}

func eventSummary(a model.Assignment) string {
	if a.IsSpecial {
		return "特殊任务"
	}
	if a.Label == nil || *a.Label == "" {
		return "轮值任务"
	}
	return "轮值任务: " + *a.Label
}
