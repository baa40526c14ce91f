package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"name-rotation/backend/config"
	"name-rotation/backend/internal/api/handler"
	"name-rotation/backend/internal/api/middleware"
	"name-rotation/backend/pkg/jwt"
	"name-rotation/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时黑名单与限流均降级放行
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	// 避免把 nil *redis.Client 装进接口
	var (
		blacklist middleware.TokenBlacklist
		limiter   middleware.RateLimiter
	)
	if rdb != nil {
		blacklist = rdb
		limiter = rdb
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	admin := middleware.RoleAuth(middleware.RoleAdmin)

	// ── API v1（全部需要认证）──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr, blacklist, logger))
	{
		// 成员名册
		participants := v1.Group("/participants")
		{
			participants.GET("", h.Participant.List)
			participants.GET("/count", h.Participant.Count)
			participants.GET("/never-selected", h.Participant.NeverSelected)
			participants.GET("/:id", h.Participant.Get)
			participants.GET("/:id/calendar", h.Export.ParticipantCalendar)
			participants.POST("", admin, h.Participant.Create)
			participants.PUT("/:id", admin, h.Participant.Rename)
			participants.PUT("/:id/deactivate", admin, h.Participant.Deactivate)
			participants.PUT("/:id/activate", admin, h.Participant.Activate)
		}

		// 会话任务
		tasks := v1.Group("/tasks")
		{
			tasks.GET("", h.Task.List)
			tasks.GET("/normal", h.Task.ListNormal)
			tasks.GET("/special", h.Task.ListSpecial)
			tasks.GET("/exists", h.Task.Exists)
			tasks.GET("/latest-date", h.Task.LatestDate)
			tasks.GET("/export", h.Export.ExportSession)
			tasks.POST("/generate", admin,
				middleware.RateLimit(limiter, cfg.RateLimit.GenerateLimit, cfg.RateLimit.Window, logger),
				h.Task.Generate)
			tasks.PUT("/:id", admin, h.Task.Update)
			tasks.DELETE("", admin, h.Task.Clear)
		}
	}

	return r
}
