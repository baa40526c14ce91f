package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Participant ParticipantRepository
	Assignment  AssignmentRepository
	// Tx 事务执行器；测试中可替换为内存实现
	Tx TxManager
}

// TxManager 在同一事务内执行一组仓储操作。
// fn 返回错误时整体回滚，调用方看不到任何中间状态。
type TxManager interface {
	WithinTx(ctx context.Context, fn func(tx *Repository) error) error
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	r := &Repository{
		Participant: NewParticipantRepo(db),
		Assignment:  NewAssignmentRepo(db),
	}
	r.Tx = &gormTxManager{db: db}
	return r
}

// Transaction 以事务方式执行 fn
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.Tx.WithinTx(ctx, fn)
}

type gormTxManager struct {
	db *gorm.DB
}

func (m *gormTxManager) WithinTx(ctx context.Context, fn func(tx *Repository) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
