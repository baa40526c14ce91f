package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"name-rotation/backend/internal/model"
)

// AssignmentRepository 会话任务分配数据访问接口
type AssignmentRepository interface {
	BatchCreate(ctx context.Context, items []model.Assignment) error
	GetByID(ctx context.Context, id string) (*model.Assignment, error)
	// ListBySession special 为 nil 时返回全部，否则按普通/特殊过滤
	ListBySession(ctx context.Context, date time.Time, special *bool) ([]model.Assignment, error)
	// FindSpecialByParticipant 返回会话中引用该成员的第一条特殊任务（按创建顺序）
	FindSpecialByParticipant(ctx context.Context, date time.Time, participantID string) (*model.Assignment, error)
	ListByParticipant(ctx context.Context, participantID string, from time.Time) ([]model.Assignment, error)
	UpdateFields(ctx context.Context, item *model.Assignment) error
	DeleteBySession(ctx context.Context, date time.Time) error
	ExistsForSession(ctx context.Context, date time.Time) (bool, error)
	// LatestSessionDate 无任何记录时返回 nil
	LatestSessionDate(ctx context.Context) (*time.Time, error)
}

type assignmentRepo struct {
	db *gorm.DB
}

func NewAssignmentRepo(db *gorm.DB) AssignmentRepository {
	return &assignmentRepo{db: db}
}

func (r *assignmentRepo) BatchCreate(ctx context.Context, items []model.Assignment) error {
	if len(items) == 0 {
		return nil
	}
	// 关联的成员已存在，禁止级联写入
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&items).Error
}

func (r *assignmentRepo) GetByID(ctx context.Context, id string) (*model.Assignment, error) {
	var item model.Assignment
	err := r.db.WithContext(ctx).
		Preload("Participant").
		Where("assignment_id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *assignmentRepo) ListBySession(ctx context.Context, date time.Time, special *bool) ([]model.Assignment, error) {
	var items []model.Assignment
	db := r.db.WithContext(ctx).
		Preload("Participant").
		Where("session_date = ?", date)
	if special != nil {
		db = db.Where("is_special = ?", *special)
	}
	err := db.Order("is_special ASC, created_at ASC, assignment_id ASC").Find(&items).Error
	return items, err
}

func (r *assignmentRepo) FindSpecialByParticipant(ctx context.Context, date time.Time, participantID string) (*model.Assignment, error) {
	var item model.Assignment
	err := r.db.WithContext(ctx).
		Where("session_date = ? AND is_special = ? AND participant_id = ?", date, true, participantID).
		Order("created_at ASC, assignment_id ASC").
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *assignmentRepo) ListByParticipant(ctx context.Context, participantID string, from time.Time) ([]model.Assignment, error) {
	var items []model.Assignment
	err := r.db.WithContext(ctx).
		Preload("Participant").
		Where("participant_id = ? AND session_date >= ?", participantID, from).
		Order("session_date ASC, is_special ASC").
		Find(&items).Error
	return items, err
}

func (r *assignmentRepo) UpdateFields(ctx context.Context, item *model.Assignment) error {
	now := time.Now()
	err := r.db.WithContext(ctx).
		Model(&model.Assignment{}).
		Where("assignment_id = ?", item.AssignmentID).
		Updates(map[string]interface{}{
			"label":          item.Label,
			"participant_id": item.ParticipantID,
			"updated_by":     item.UpdatedBy,
			"updated_at":     now,
		}).Error
	if err != nil {
		return err
	}
	item.UpdatedAt = now
	return nil
}

func (r *assignmentRepo) DeleteBySession(ctx context.Context, date time.Time) error {
	return r.db.WithContext(ctx).
		Where("session_date = ?", date).
		Delete(&model.Assignment{}).Error
}

func (r *assignmentRepo) ExistsForSession(ctx context.Context, date time.Time) (bool, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.Assignment{}).
		Where("session_date = ?", date).
		Count(&total).Error
	return total > 0, err
}

func (r *assignmentRepo) LatestSessionDate(ctx context.Context) (*time.Time, error) {
	// 取最新一条记录而非 MAX()：聚合结果在部分驱动下会丢失列类型
	var item model.Assignment
	err := r.db.WithContext(ctx).
		Select("session_date").
		Order("session_date DESC").
		Take(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	d := model.SessionDate(item.SessionDate)
	return &d, nil
}
