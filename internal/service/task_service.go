package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"name-rotation/backend/internal/dto"
	"name-rotation/backend/internal/model"
	"name-rotation/backend/internal/repository"
	pkgerrors "name-rotation/backend/pkg/errors"
)

// ── 任务分配模块业务错误 ──

var (
	ErrInvalidCount        = pkgerrors.New(pkgerrors.ErrInvalidArgument, "抽取人数不能少于 4 人")
	ErrAssignmentNotFound  = pkgerrors.New(pkgerrors.ErrNotFound, "任务分配不存在")
	ErrParticipantNotFound = pkgerrors.New(pkgerrors.ErrNotFound, "成员不存在")
	ErrSessionBusy         = pkgerrors.ErrSessionBusy
)

// TaskService 会话任务生成与维护接口
//
// 所有 sessionDate 参数由调用方给出，内部统一归一为当天 UTC 零点。
type TaskService interface {
	// Generate 为会话日期重新生成 n 条普通任务与固定数量的特殊任务（整体替换）
	Generate(ctx context.Context, sessionDate time.Time, n int, callerID string) (*dto.GenerateTasksResponse, error)
	// Update 修改单条任务的名称或负责人；换人时同步该会话中原负责人的特殊任务
	Update(ctx context.Context, assignmentID string, req *dto.UpdateTaskRequest, callerID string) (*dto.TaskResponse, error)
	ListNormal(ctx context.Context, sessionDate time.Time) ([]dto.TaskResponse, error)
	ListSpecial(ctx context.Context, sessionDate time.Time) ([]dto.TaskResponse, error)
	ListAll(ctx context.Context, sessionDate time.Time) ([]dto.TaskResponse, error)
	HasSession(ctx context.Context, sessionDate time.Time) (bool, error)
	// LatestSessionDate 无任何会话时返回 nil
	LatestSessionDate(ctx context.Context) (*time.Time, error)
	// Clear 删除会话日期下的全部任务
	Clear(ctx context.Context, sessionDate time.Time) error
}

// TaskOption 可选依赖
type TaskOption func(*taskService)

// WithShuffle 替换特殊任务抽取使用的洗牌函数
func WithShuffle(fn ShuffleFunc) TaskOption {
	return func(s *taskService) { s.shuffle = fn }
}

// WithLocker 替换会话锁实现（默认进程内锁）
func WithLocker(l SessionLocker) TaskOption {
	return func(s *taskService) { s.locker = l }
}

type taskService struct {
	repo    *repository.Repository
	logger  *zap.Logger
	locker  SessionLocker
	shuffle ShuffleFunc
}

// NewTaskService 创建 TaskService 实例
func NewTaskService(repo *repository.Repository, logger *zap.Logger, opts ...TaskOption) TaskService {
	s := &taskService{
		repo:    repo,
		logger:  logger,
		locker:  NewLocalLocker(),
		shuffle: DefaultShuffle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func sessionKey(date time.Time) string {
	return "session:" + date.Format(model.DateLayout)
}

// ════════════════════════════════════════════════════════════
// Generate：清空、轮换抽取、写入普通/特殊任务、更新成员状态
// ════════════════════════════════════════════════════════════

func (s *taskService) Generate(ctx context.Context, sessionDate time.Time, n int, callerID string) (*dto.GenerateTasksResponse, error) {
	if n < MinSelectionCount {
		return nil, ErrInvalidCount
	}
	date := model.SessionDate(sessionDate)

	unlock, err := s.locker.Lock(ctx, sessionKey(date))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var normal, special []model.Assignment
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		available, err := tx.Participant.CountActive(ctx)
		if err != nil {
			return pkgerrors.Storage("统计启用成员", err)
		}
		if int(available) < n {
			return &InsufficientParticipantsError{Available: int(available), Requested: n}
		}

		if err := tx.Assignment.DeleteBySession(ctx, date); err != nil {
			return pkgerrors.Storage("清空会话任务", err)
		}

		active, err := tx.Participant.ListActive(ctx)
		if err != nil {
			return pkgerrors.Storage("查询启用成员", err)
		}
		selected, err := SelectRotation(active, n)
		if err != nil {
			return err
		}

		// created_at 逐条递增，使读取顺序与写入顺序一致
		base := time.Now().UTC()
		seq := 0
		build := func(p model.Participant, label *string, isSpecial bool) model.Assignment {
			ts := base.Add(time.Duration(seq) * time.Microsecond)
			seq++
			pp := p
			return model.Assignment{
				ParticipantID: p.ParticipantID,
				Label:         label,
				IsSpecial:     isSpecial,
				SessionDate:   date,
				BaseModel: model.BaseModel{
					CreatedAt: ts,
					UpdatedAt: ts,
					CreatedBy: optionalCaller(callerID),
					UpdatedBy: optionalCaller(callerID),
				},
				Participant: &pp,
			}
		}

		ids := make([]string, 0, len(selected))
		normal = make([]model.Assignment, 0, len(selected))
		for _, p := range selected {
			empty := ""
			normal = append(normal, build(p, &empty, false))
			ids = append(ids, p.ParticipantID)
		}
		if err := tx.Assignment.BatchCreate(ctx, normal); err != nil {
			return pkgerrors.Storage("写入普通任务", err)
		}
		if err := tx.Participant.MarkSelected(ctx, ids, date); err != nil {
			return pkgerrors.Storage("更新成员抽取记录", err)
		}

		picked := pickSpecial(selected, s.shuffle)
		special = make([]model.Assignment, 0, len(picked))
		for _, p := range picked {
			special = append(special, build(p, nil, true))
		}
		if err := tx.Assignment.BatchCreate(ctx, special); err != nil {
			return pkgerrors.Storage("写入特殊任务", err)
		}
		return nil
	})
	if err != nil {
		err = pkgerrors.Wrap("生成会话任务", err)
		if errors.Is(err, pkgerrors.ErrStorage) {
			s.logger.Error("生成会话任务失败",
				zap.String("session_date", date.Format(model.DateLayout)),
				zap.Int("count", n),
				zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("会话任务已生成",
		zap.String("session_date", date.Format(model.DateLayout)),
		zap.Int("normal", len(normal)),
		zap.Int("special", len(special)),
		zap.String("caller_id", callerID))

	return &dto.GenerateTasksResponse{
		SessionDate: date.Format(model.DateLayout),
		Normal:      toTaskResponses(normal),
		Special:     toTaskResponses(special),
	}, nil
}

// ════════════════════════════════════════════════════════════
// Update：修改任务；换人时镜像到特殊任务
// ════════════════════════════════════════════════════════════

func (s *taskService) Update(ctx context.Context, assignmentID string, req *dto.UpdateTaskRequest, callerID string) (*dto.TaskResponse, error) {
	var updated *model.Assignment
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		item, err := tx.Assignment.GetByID(ctx, assignmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAssignmentNotFound
			}
			return pkgerrors.Storage("查询任务分配", err)
		}

		if req.Label != nil {
			label := *req.Label
			item.Label = &label
		}

		var previous string
		if req.ParticipantID != nil {
			target, err := tx.Participant.GetByID(ctx, *req.ParticipantID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrParticipantNotFound
				}
				return pkgerrors.Storage("查询成员", err)
			}
			previous = item.ParticipantID
			item.ParticipantID = target.ParticipantID
			item.Participant = target
		}

		item.UpdatedBy = optionalCaller(callerID)
		if err := tx.Assignment.UpdateFields(ctx, item); err != nil {
			return pkgerrors.Storage("更新任务分配", err)
		}
		updated = item

		if previous == "" || previous == item.ParticipantID {
			return nil
		}

		mirror, err := tx.Assignment.FindSpecialByParticipant(ctx, model.SessionDate(item.SessionDate), previous)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Storage("查询特殊任务", err)
		}
		mirror.ParticipantID = item.ParticipantID
		mirror.UpdatedBy = optionalCaller(callerID)
		if err := tx.Assignment.UpdateFields(ctx, mirror); err != nil {
			return pkgerrors.Storage("同步特殊任务", err)
		}
		s.logger.Info("特殊任务已随换人同步",
			zap.String("assignment_id", mirror.AssignmentID),
			zap.String("from", previous),
			zap.String("to", item.ParticipantID))
		return nil
	})
	if err != nil {
		err = pkgerrors.Wrap("修改任务分配", err)
		if errors.Is(err, pkgerrors.ErrStorage) {
			s.logger.Error("修改任务分配失败", zap.String("assignment_id", assignmentID), zap.Error(err))
		}
		return nil, err
	}

	resp := toTaskResponse(*updated)
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// 查询 / 清空
// ════════════════════════════════════════════════════════════

func (s *taskService) ListNormal(ctx context.Context, sessionDate time.Time) ([]dto.TaskResponse, error) {
	special := false
	return s.list(ctx, sessionDate, &special)
}

func (s *taskService) ListSpecial(ctx context.Context, sessionDate time.Time) ([]dto.TaskResponse, error) {
	special := true
	return s.list(ctx, sessionDate, &special)
}

func (s *taskService) ListAll(ctx context.Context, sessionDate time.Time) ([]dto.TaskResponse, error) {
	return s.list(ctx, sessionDate, nil)
}

func (s *taskService) list(ctx context.Context, sessionDate time.Time, special *bool) ([]dto.TaskResponse, error) {
	items, err := s.repo.Assignment.ListBySession(ctx, model.SessionDate(sessionDate), special)
	if err != nil {
		s.logger.Error("查询会话任务失败", zap.Error(err))
		return nil, pkgerrors.Storage("查询会话任务", err)
	}
	return toTaskResponses(items), nil
}

func (s *taskService) HasSession(ctx context.Context, sessionDate time.Time) (bool, error) {
	exists, err := s.repo.Assignment.ExistsForSession(ctx, model.SessionDate(sessionDate))
	if err != nil {
		return false, pkgerrors.Storage("查询会话是否存在", err)
	}
	return exists, nil
}

func (s *taskService) LatestSessionDate(ctx context.Context) (*time.Time, error) {
	latest, err := s.repo.Assignment.LatestSessionDate(ctx)
	if err != nil {
		return nil, pkgerrors.Storage("查询最近会话日期", err)
	}
	return latest, nil
}

func (s *taskService) Clear(ctx context.Context, sessionDate time.Time) error {
	date := model.SessionDate(sessionDate)
	unlock, err := s.locker.Lock(ctx, sessionKey(date))
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.repo.Assignment.DeleteBySession(ctx, date); err != nil {
		s.logger.Error("清空会话任务失败", zap.String("session_date", date.Format(model.DateLayout)), zap.Error(err))
		return pkgerrors.Storage("清空会话任务", err)
	}
	return nil
}

// ── 转换 ──

func toTaskResponse(a model.Assignment) dto.TaskResponse {
	resp := dto.TaskResponse{
		ID:            a.AssignmentID,
		ParticipantID: a.ParticipantID,
		Label:         a.Label,
		IsSpecial:     a.IsSpecial,
		SessionDate:   model.SessionDate(a.SessionDate).Format(model.DateLayout),
		CreatedAt:     a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     a.UpdatedAt.Format(time.RFC3339),
	}
	if a.Participant != nil {
		resp.ParticipantName = a.Participant.Name
	}
	return resp
}

func toTaskResponses(items []model.Assignment) []dto.TaskResponse {
	list := make([]dto.TaskResponse, 0, len(items))
	for _, a := range items {
		list = append(list, toTaskResponse(a))
	}
	return list
}

func optionalCaller(callerID string) *string {
	if callerID == "" {
		return nil
	}
	return &callerID
}
