package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"name-rotation/backend/internal/dto"
	"name-rotation/backend/internal/model"
	"name-rotation/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetPathID 绑定并校验路径参数 :id。
// 非法 UUID 写入 400 响应并返回 false，不会进入 Service。
func MustGetPathID(c *gin.Context) (string, bool) {
	var p dto.IDParam
	if err := c.ShouldBindUri(&p); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 14001, "参数校验失败", "id 必须是合法的 UUID")
		return "", false
	}
	return p.ID, true
}

// Clock 计算调用方"今天"的会话日期
type Clock struct {
	Location *time.Location
	Now      func() time.Time
}

// NewClock 使用系统时间与指定时区
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{Location: loc, Now: time.Now}
}

// Today 当前时区下的会话日期
func (k Clock) Today() time.Time {
	return model.Today(k.Now(), k.Location)
}

// sessionDateOrToday 解析 YYYY-MM-DD；为空时返回今天。格式已由 binding 校验。
func (k Clock) sessionDateOrToday(raw string) (time.Time, error) {
	if raw == "" {
		return k.Today(), nil
	}
	return model.ParseSessionDate(raw)
}
