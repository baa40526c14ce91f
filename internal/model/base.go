package model

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout 会话日期的文本格式（请求参数、响应、导出统一使用）
const DateLayout = "2006-01-02"

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:varchar(64)"                   json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:varchar(64)"                   json:"updated_by,omitempty"`
}

// SessionDate 将任意时间归一为其日历日的 UTC 零点。
// 同一天的所有调用得到同一个值，可直接作为会话分区键比较。
func SessionDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseSessionDate 解析 YYYY-MM-DD 文本为会话日期
func ParseSessionDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return SessionDate(t), nil
}

// Today 返回指定时区下"今天"对应的会话日期
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return SessionDate(now.In(loc))
}

// newID 生成主键（不依赖数据库端 gen_random_uuid，便于 SQLite 测试）
func newID() string {
	return uuid.NewString()
}
