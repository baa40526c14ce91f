package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"name-rotation/backend/internal/model"
	"name-rotation/backend/internal/service"
	pkgerrors "name-rotation/backend/pkg/errors"
)

// runTimeout 单次任务生成的超时
const runTimeout = 2 * time.Minute

// DailyJob 按 cron 表达式在每个工作日自动生成当天会话
type DailyJob struct {
	tasks  service.TaskService
	count  int
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewDailyJob 创建每日生成任务
func NewDailyJob(tasks service.TaskService, count int, loc *time.Location, logger *zap.Logger) *DailyJob {
	if loc == nil {
		loc = time.UTC
	}
	return &DailyJob{tasks: tasks, count: count, loc: loc, now: time.Now, logger: logger}
}

// Start 注册 cron 并启动；调用方负责 Stop
func (j *DailyJob) Start(spec string) (*cron.Cron, error) {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(j.logger.Named("cron")))
	c := cron.New(
		cron.WithLocation(j.loc),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	if _, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		_ = j.Run(ctx)
	}); err != nil {
		return nil, err
	}

	j.logger.Info("每日任务生成已启动",
		zap.String("cron", spec),
		zap.Int("count", j.count),
		zap.String("timezone", j.loc.String()),
	)
	c.Start()
	return c, nil
}

// Run 生成今天的会话；已存在时跳过
func (j *DailyJob) Run(ctx context.Context) error {
	today := model.Today(j.now(), j.loc)
	day := today.Format(model.DateLayout)

	exists, err := j.tasks.HasSession(ctx, today)
	if err != nil {
		j.logger.Error("查询会话失败", zap.String("session_date", day), zap.Error(err))
		return err
	}
	if exists {
		j.logger.Info("今日会话已存在，跳过自动生成", zap.String("session_date", day))
		return nil
	}

	result, err := j.tasks.Generate(ctx, today, j.count, "")
	if err != nil {
		if errors.Is(err, pkgerrors.ErrInsufficientParticipants) || errors.Is(err, pkgerrors.ErrSessionBusy) {
			j.logger.Warn("自动生成未执行", zap.String("session_date", day), zap.Error(err))
		} else {
			j.logger.Error("自动生成失败", zap.String("session_date", day), zap.Error(err))
		}
		return err
	}

	j.logger.Info("自动生成完成",
		zap.String("session_date", day),
		zap.Int("normal", len(result.Normal)),
		zap.Int("special", len(result.Special)),
	)
	return nil
}
