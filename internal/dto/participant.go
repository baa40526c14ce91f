package dto

// ── 成员模块 DTO ──

// CreateParticipantRequest 新增成员请求
type CreateParticipantRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// RenameParticipantRequest 修改成员名称请求
type RenameParticipantRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// ParticipantListRequest 成员列表查询参数
type ParticipantListRequest struct {
	ActiveOnly bool `form:"active"`
	PaginationRequest
}

// ParticipantResponse 成员信息响应
type ParticipantResponse struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	IsActive         bool    `json:"is_active"`
	LastSelectedDate *string `json:"last_selected_date"`
	SelectionCount   int     `json:"selection_count"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

// ParticipantCountResponse 启用成员数
type ParticipantCountResponse struct {
	Active int64 `json:"active"`
}
