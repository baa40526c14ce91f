package model

import (
	"time"

	"gorm.io/gorm"
)

// Assignment 任务分配表，对应 assignments
//
// 同一 session_date 的全部记录构成一个会话；重新生成会整体替换。
// 普通任务 label 初始为空串，由管理员填写；特殊任务 label 恒为 NULL。
type Assignment struct {
	AssignmentID  string    `gorm:"type:uuid;primaryKey"       json:"assignment_id"`
	ParticipantID string    `gorm:"type:uuid;not null;index"   json:"participant_id"`
	Label         *string   `gorm:"type:varchar(255)"          json:"label"`
	IsSpecial     bool      `gorm:"not null"                   json:"is_special"`
	SessionDate   time.Time `gorm:"type:date;not null;index"   json:"session_date"`
	BaseModel

	// 关联
	Participant *Participant `gorm:"foreignKey:ParticipantID;references:ParticipantID" json:"participant,omitempty"`
}

// TableName 指定表名
func (Assignment) TableName() string { return "assignments" }

// BeforeCreate 补齐主键
func (a *Assignment) BeforeCreate(_ *gorm.DB) error {
	if a.AssignmentID == "" {
		a.AssignmentID = newID()
	}
	return nil
}
