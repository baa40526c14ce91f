package model

import (
	"time"

	"gorm.io/gorm"
)

// Participant 轮值成员表，对应 participants
//
// is_active 为软删除标记：停用成员不参与任何抽取，但历史排班仍可关联。
// last_selected_date 为空表示从未被抽中，轮换时优先级最高。
type Participant struct {
	ParticipantID    string     `gorm:"type:uuid;primaryKey"        json:"participant_id"`
	Name             string     `gorm:"type:varchar(100);not null"  json:"name"`
	IsActive         bool       `gorm:"not null"                    json:"is_active"`
	LastSelectedDate *time.Time `gorm:"type:date"                   json:"last_selected_date,omitempty"`
	SelectionCount   int        `gorm:"not null;default:0"          json:"selection_count"`
	Version          int        `gorm:"not null;default:1"          json:"version"`
	BaseModel
}

// TableName 指定表名
func (Participant) TableName() string { return "participants" }

// BeforeCreate 补齐主键与初始版本号
func (p *Participant) BeforeCreate(_ *gorm.DB) error {
	if p.ParticipantID == "" {
		p.ParticipantID = newID()
	}
	if p.Version == 0 {
		p.Version = 1
	}
	return nil
}

// NeverSelected 是否从未被抽中
func (p *Participant) NeverSelected() bool {
	return p.LastSelectedDate == nil
}
