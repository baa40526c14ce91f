package dto

// ── 任务分配模块 DTO ──

// GenerateTasksRequest 生成会话任务请求
//
// count 缺省时使用配置的默认人数；session_date 缺省时取当天。
type GenerateTasksRequest struct {
	Count       *int   `json:"count"`
	SessionDate string `json:"session_date" binding:"omitempty,session_date"`
}

// UpdateTaskRequest 修改单条任务请求
//
// 字段为 nil 表示不修改；label 为 "" 是合法值（清空任务名）。
type UpdateTaskRequest struct {
	Label         *string `json:"label"          binding:"omitempty,max=255"`
	ParticipantID *string `json:"participant_id" binding:"omitempty,uuid"`
}

// TaskListRequest 任务列表查询参数
type TaskListRequest struct {
	SessionQuery
	Type string `form:"type" binding:"omitempty,oneof=normal special"`
}

// ── 响应 ──

// TaskResponse 任务分配响应（带成员名称）
type TaskResponse struct {
	ID              string  `json:"id"`
	ParticipantID   string  `json:"participant_id"`
	ParticipantName string  `json:"participant_name"`
	Label           *string `json:"label"`
	IsSpecial       bool    `json:"is_special"`
	SessionDate     string  `json:"session_date"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// GenerateTasksResponse 生成结果
type GenerateTasksResponse struct {
	SessionDate string         `json:"session_date"`
	Normal      []TaskResponse `json:"normal"`
	Special     []TaskResponse `json:"special"`
}

// SessionExistsResponse 会话是否存在
type SessionExistsResponse struct {
	SessionDate string `json:"session_date"`
	Exists      bool   `json:"exists"`
}

// LatestSessionResponse 最近一次会话日期；无记录时为 null
type LatestSessionResponse struct {
	SessionDate *string `json:"session_date"`
}
