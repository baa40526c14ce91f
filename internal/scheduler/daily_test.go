package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"name-rotation/backend/internal/dto"
	"name-rotation/backend/internal/model"
	"name-rotation/backend/internal/service"
)

type mockTaskService struct {
	service.TaskService

	exists      bool
	generateErr error

	generated bool
	gotDate   time.Time
	gotCount  int
	gotCaller string
}

func (m *mockTaskService) HasSession(_ context.Context, date time.Time) (bool, error) {
	m.gotDate = date
	return m.exists, nil
}

func (m *mockTaskService) Generate(_ context.Context, date time.Time, n int, callerID string) (*dto.GenerateTasksResponse, error) {
	m.generated = true
	m.gotDate, m.gotCount, m.gotCaller = date, n, callerID
	if m.generateErr != nil {
		return nil, m.generateErr
	}
	return &dto.GenerateTasksResponse{SessionDate: date.Format(model.DateLayout)}, nil
}

func newTestJob(mock *mockTaskService, loc *time.Location) *DailyJob {
	j := NewDailyJob(mock, 6, loc, zap.NewNop())
	j.now = func() time.Time { return time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC) }
	return j
}

func TestDailyJob_GeneratesToday(t *testing.T) {
	mock := &mockTaskService{}
	if err := newTestJob(mock, time.UTC).Run(context.Background()); err != nil {
		t.Fatalf("Run 失败: %v", err)
	}

	if !mock.generated {
		t.Fatal("会话不存在时应自动生成")
	}
	if mock.gotCount != 6 {
		t.Errorf("期望人数 6，实际 %d", mock.gotCount)
	}
	if mock.gotCaller != "" {
		t.Errorf("自动生成不应带操作人，实际 %q", mock.gotCaller)
	}
	if got := mock.gotDate.Format(model.DateLayout); got != "2025-03-10" {
		t.Errorf("期望 2025-03-10，实际 %s", got)
	}
}

func TestDailyJob_UsesConfiguredTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		t.Skip("时区数据不可用")
	}
	mock := &mockTaskService{}
	if err := newTestJob(mock, loc).Run(context.Background()); err != nil {
		t.Fatalf("Run 失败: %v", err)
	}
	if got := mock.gotDate.Format(model.DateLayout); got != "2025-03-11" {
		t.Errorf("期望 2025-03-11，实际 %s", got)
	}
}

func TestDailyJob_SkipsExistingSession(t *testing.T) {
	mock := &mockTaskService{exists: true}
	if err := newTestJob(mock, time.UTC).Run(context.Background()); err != nil {
		t.Fatalf("Run 失败: %v", err)
	}
	if mock.generated {
		t.Error("会话已存在时不应重新生成")
	}
}

func TestDailyJob_PropagatesError(t *testing.T) {
	insufficient := &service.InsufficientParticipantsError{Available: 3, Requested: 6}
	mock := &mockTaskService{generateErr: insufficient}

	err := newTestJob(mock, time.UTC).Run(context.Background())
	if !errors.Is(err, insufficient) {
		t.Errorf("期望返回成员不足错误，实际: %v", err)
	}
}

func TestDailyJob_StartRejectsBadSpec(t *testing.T) {
	j := newTestJob(&mockTaskService{}, time.UTC)
	if _, err := j.Start("not a cron"); err == nil {
		t.Error("非法 cron 表达式应返回错误")
	}

	c, err := j.Start("0 8 * * 1-5")
	if err != nil {
		t.Fatalf("Start 失败: %v", err)
	}
	<-c.Stop().Done()
}
