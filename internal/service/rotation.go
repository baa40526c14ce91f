package service

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"name-rotation/backend/internal/model"
	pkgerrors "name-rotation/backend/pkg/errors"
)

const (
	// MinSelectionCount 单次生成的最少人数（需能切出全部特殊任务）
	MinSelectionCount = 4
	// SpecialTaskCount 每个会话固定的特殊任务数
	SpecialTaskCount = 4
)

// InsufficientParticipantsError 启用成员不足以满足抽取人数
type InsufficientParticipantsError struct {
	Available int
	Requested int
}

func (e *InsufficientParticipantsError) Error() string {
	return fmt.Sprintf("可用成员不足: 可用 %d 人, 请求 %d 人", e.Available, e.Requested)
}

// Is 使 errors.Is(err, pkgerrors.ErrInsufficientParticipants) 成立
func (e *InsufficientParticipantsError) Is(target error) bool {
	return target == pkgerrors.ErrInsufficientParticipants
}

// ShuffleFunc 均匀随机打乱 n 个元素；签名与 rand.Shuffle 一致，测试可注入固定种子
type ShuffleFunc func(n int, swap func(i, j int))

// DefaultShuffle 使用运行时自动播种的全局随机源
var DefaultShuffle ShuffleFunc = rand.Shuffle

// SelectRotation 按最久未抽中优先挑选 n 名成员。
//
// active 需按存储自然顺序给出；排序按 last_selected_date 升序，从未抽中（nil）
// 视为最小值，日期相同保持输入顺序。本函数不修改任何成员状态。
func SelectRotation(active []model.Participant, n int) ([]model.Participant, error) {
	if len(active) < n {
		return nil, &InsufficientParticipantsError{Available: len(active), Requested: n}
	}

	ranked := make([]model.Participant, len(active))
	copy(ranked, active)
	if len(ranked) == n {
		return ranked, nil
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].LastSelectedDate, ranked[j].LastSelectedDate
		switch {
		case a == nil:
			return b != nil
		case b == nil:
			return false
		default:
			return a.Before(*b)
		}
	})
	return ranked[:n], nil
}

// pickSpecial 从已选成员中随机取 min(SpecialTaskCount, len) 人，不改变入参顺序
func pickSpecial(selected []model.Participant, shuffle ShuffleFunc) []model.Participant {
	pool := make([]model.Participant, len(selected))
	copy(pool, selected)
	shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:min(SpecialTaskCount, len(pool))]
}
