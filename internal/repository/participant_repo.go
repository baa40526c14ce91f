package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"name-rotation/backend/internal/model"
	pkgerrors "name-rotation/backend/pkg/errors"
)

// ParticipantRepository 轮值成员数据访问接口
type ParticipantRepository interface {
	Create(ctx context.Context, p *model.Participant) error
	GetByID(ctx context.Context, id string) (*model.Participant, error)
	List(ctx context.Context, activeOnly bool, offset, limit int) ([]model.Participant, int64, error)
	// ListActive 按存储自然顺序（created_at, participant_id）返回全部启用成员
	ListActive(ctx context.Context) ([]model.Participant, error)
	ListNeverSelected(ctx context.Context) ([]model.Participant, error)
	CountActive(ctx context.Context) (int64, error)
	Update(ctx context.Context, p *model.Participant) error
	// MarkSelected 将成员标记为在 date 被抽中：更新日期并累加次数
	MarkSelected(ctx context.Context, ids []string, date time.Time) error
}

// participantRepo ParticipantRepository 的 GORM 实现
type participantRepo struct {
	db *gorm.DB
}

// NewParticipantRepo 创建 ParticipantRepository 实例
func NewParticipantRepo(db *gorm.DB) ParticipantRepository {
	return &participantRepo{db: db}
}

func (r *participantRepo) Create(ctx context.Context, p *model.Participant) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *participantRepo) GetByID(ctx context.Context, id string) (*model.Participant, error) {
	var p model.Participant
	err := r.db.WithContext(ctx).
		Where("participant_id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *participantRepo) List(ctx context.Context, activeOnly bool, offset, limit int) ([]model.Participant, int64, error) {
	var list []model.Participant
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Participant{})
	if activeOnly {
		db = db.Where("is_active = ?", true)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("created_at ASC, participant_id ASC").
		Find(&list).Error; err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

func (r *participantRepo) ListActive(ctx context.Context) ([]model.Participant, error) {
	var list []model.Participant
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC, participant_id ASC").
		Find(&list).Error
	return list, err
}

func (r *participantRepo) ListNeverSelected(ctx context.Context) ([]model.Participant, error) {
	var list []model.Participant
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND last_selected_date IS NULL", true).
		Order("created_at ASC, participant_id ASC").
		Find(&list).Error
	return list, err
}

func (r *participantRepo) CountActive(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.Participant{}).
		Where("is_active = ?", true).
		Count(&total).Error
	return total, err
}

func (r *participantRepo) Update(ctx context.Context, p *model.Participant) error {
	oldVersion := p.Version
	result := r.db.WithContext(ctx).
		Model(&model.Participant{}).
		Where("participant_id = ? AND version = ?", p.ParticipantID, oldVersion).
		Updates(map[string]interface{}{
			"name":       p.Name,
			"is_active":  p.IsActive,
			"updated_by": p.UpdatedBy,
			"updated_at": time.Now(),
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	p.Version = oldVersion + 1
	return nil
}

func (r *participantRepo) MarkSelected(ctx context.Context, ids []string, date time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.Participant{}).
		Where("participant_id IN ?", ids).
		Updates(map[string]interface{}{
			"last_selected_date": date,
			"selection_count":    gorm.Expr("selection_count + ?", 1),
			"version":            gorm.Expr("version + ?", 1),
			"updated_at":         time.Now(),
		}).Error
}
