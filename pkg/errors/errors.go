package errors

import (
	"errors"
	"fmt"
)

// ── 错误类别 ──
// 业务层错误均包装以下类别之一，Handler 可按类别或具体错误映射响应。

var (
	// ErrInvalidArgument 参数非法（如抽取人数低于下限）
	ErrInvalidArgument = errors.New("参数非法")
	// ErrNotFound 目标记录不存在
	ErrNotFound = errors.New("记录不存在")
	// ErrInsufficientParticipants 可用成员数不足
	ErrInsufficientParticipants = errors.New("可用成员不足")
	// ErrStorage 存储层未能完成事务
	ErrStorage = errors.New("存储操作失败")
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrSessionBusy 同一会话日期的生成/清空正在进行，等待超时
var ErrSessionBusy = errors.New("该日期的任务正在生成中，请稍后重试")

// New 创建归属于指定类别的业务错误，errors.Is 对具体错误与类别均成立
func New(kind error, message string) error {
	return &kindError{kind: kind, msg: message}
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// Storage 将存储层错误包装为 ErrStorage，保留原始错误链
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// HasKind 判断 err 是否已归属某个错误类别（含并发冲突）
func HasKind(err error) bool {
	for _, kind := range []error{ErrInvalidArgument, ErrNotFound, ErrInsufficientParticipants, ErrStorage, ErrOptimisticLock, ErrSessionBusy} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// Wrap 未归类的错误按存储失败处理；已归类的原样返回
func Wrap(op string, err error) error {
	if err == nil || HasKind(err) {
		return err
	}
	return Storage(op, err)
}
