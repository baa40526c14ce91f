package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"name-rotation/backend/internal/dto"
	"name-rotation/backend/internal/model"
	"name-rotation/backend/internal/repository"
	pkgerrors "name-rotation/backend/pkg/errors"
)

// ── 成员模块业务错误 ──

var (
	ErrParticipantNameEmpty = pkgerrors.New(pkgerrors.ErrInvalidArgument, "成员名称不能为空")
)

// ParticipantService 轮值成员名册管理接口
type ParticipantService interface {
	Create(ctx context.Context, req *dto.CreateParticipantRequest, callerID string) (*dto.ParticipantResponse, error)
	Get(ctx context.Context, id string) (*dto.ParticipantResponse, error)
	List(ctx context.Context, req *dto.ParticipantListRequest) ([]dto.ParticipantResponse, int64, error)
	ListNeverSelected(ctx context.Context) ([]dto.ParticipantResponse, error)
	CountActive(ctx context.Context) (int64, error)
	Rename(ctx context.Context, id string, req *dto.RenameParticipantRequest, callerID string) (*dto.ParticipantResponse, error)
	// Deactivate 软删除：停用后不再参与抽取，历史任务保留
	Deactivate(ctx context.Context, id, callerID string) (*dto.ParticipantResponse, error)
	Activate(ctx context.Context, id, callerID string) (*dto.ParticipantResponse, error)
}

type participantService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewParticipantService 创建 ParticipantService 实例
func NewParticipantService(repo *repository.Repository, logger *zap.Logger) ParticipantService {
	return &participantService{repo: repo, logger: logger}
}

func (s *participantService) Create(ctx context.Context, req *dto.CreateParticipantRequest, callerID string) (*dto.ParticipantResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrParticipantNameEmpty
	}

	p := &model.Participant{
		Name:     name,
		IsActive: true,
		BaseModel: model.BaseModel{
			CreatedBy: optionalCaller(callerID),
			UpdatedBy: optionalCaller(callerID),
		},
	}
	if err := s.repo.Participant.Create(ctx, p); err != nil {
		s.logger.Error("创建成员失败", zap.String("name", name), zap.Error(err))
		return nil, pkgerrors.Storage("创建成员", err)
	}

	resp := toParticipantResponse(p)
	return &resp, nil
}

func (s *participantService) Get(ctx context.Context, id string) (*dto.ParticipantResponse, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toParticipantResponse(p)
	return &resp, nil
}

func (s *participantService) List(ctx context.Context, req *dto.ParticipantListRequest) ([]dto.ParticipantResponse, int64, error) {
	list, total, err := s.repo.Participant.List(ctx, req.ActiveOnly, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询成员列表失败", zap.Error(err))
		return nil, 0, pkgerrors.Storage("查询成员列表", err)
	}
	return toParticipantResponses(list), total, nil
}

func (s *participantService) ListNeverSelected(ctx context.Context) ([]dto.ParticipantResponse, error) {
	list, err := s.repo.Participant.ListNeverSelected(ctx)
	if err != nil {
		return nil, pkgerrors.Storage("查询未抽中成员", err)
	}
	return toParticipantResponses(list), nil
}

func (s *participantService) CountActive(ctx context.Context) (int64, error) {
	total, err := s.repo.Participant.CountActive(ctx)
	if err != nil {
		return 0, pkgerrors.Storage("统计启用成员", err)
	}
	return total, nil
}

func (s *participantService) Rename(ctx context.Context, id string, req *dto.RenameParticipantRequest, callerID string) (*dto.ParticipantResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrParticipantNameEmpty
	}
	return s.mutate(ctx, id, callerID, func(p *model.Participant) { p.Name = name })
}

func (s *participantService) Deactivate(ctx context.Context, id, callerID string) (*dto.ParticipantResponse, error) {
	return s.mutate(ctx, id, callerID, func(p *model.Participant) { p.IsActive = false })
}

func (s *participantService) Activate(ctx context.Context, id, callerID string) (*dto.ParticipantResponse, error) {
	return s.mutate(ctx, id, callerID, func(p *model.Participant) { p.IsActive = true })
}

// mutate 读取 → 修改 → 按版本号写回；版本冲突直接返回 ErrOptimisticLock，由调用方重试
func (s *participantService) mutate(ctx context.Context, id, callerID string, apply func(p *model.Participant)) (*dto.ParticipantResponse, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	apply(p)
	p.UpdatedBy = optionalCaller(callerID)
	if err := s.repo.Participant.Update(ctx, p); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, err
		}
		s.logger.Error("更新成员失败", zap.String("participant_id", id), zap.Error(err))
		return nil, pkgerrors.Storage("更新成员", err)
	}
	p.UpdatedAt = time.Now()

	resp := toParticipantResponse(p)
	return &resp, nil
}

func (s *participantService) load(ctx context.Context, id string) (*model.Participant, error) {
	p, err := s.repo.Participant.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, pkgerrors.Storage("查询成员", err)
	}
	return p, nil
}

// ── 转换 ──

func toParticipantResponse(p *model.Participant) dto.ParticipantResponse {
	resp := dto.ParticipantResponse{
		ID:             p.ParticipantID,
		Name:           p.Name,
		IsActive:       p.IsActive,
		SelectionCount: p.SelectionCount,
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      p.UpdatedAt.Format(time.RFC3339),
	}
	if p.LastSelectedDate != nil {
		d := model.SessionDate(*p.LastSelectedDate).Format(model.DateLayout)
		resp.LastSelectedDate = &d
	}
	return resp
}

func toParticipantResponses(list []model.Participant) []dto.ParticipantResponse {
	out := make([]dto.ParticipantResponse, 0, len(list))
	for i := range list {
		out = append(out, toParticipantResponse(&list[i]))
	}
	return out
}
