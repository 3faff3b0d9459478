package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ssebin/pandagrad-sub000/config"
	"github.com/ssebin/pandagrad-sub000/internal/api/handler"
	"github.com/ssebin/pandagrad-sub000/internal/api/middleware"
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时变更接口不限流
func Setup(cfg *config.Config, h *handler.Handler, limiter middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins, cfg.Server.ActorHeader))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	window, err := time.ParseDuration(cfg.Server.RateWindow)
	if err != nil {
		window = time.Minute
	}

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 只读接口
		v1.GET("/intakes", h.Intake.ListIntakes)
		v1.GET("/intakes/:id", h.Intake.GetIntake)
		v1.GET("/intakes/:id/tasks", h.Task.ListTasks)

		v1.GET("/tasks/:id", h.Task.GetTask)
		v1.GET("/tasks/:id/history", h.Task.GetHistory)
		v1.GET("/tasks/:id/statuses", h.Status.ListLineageStatuses)

		v1.GET("/students/:id/semester", h.Status.CurrentSemester)
		v1.GET("/students/:id/tasks/:lineage_id/status", h.Status.GetStatus)
		v1.GET("/students/:id/tasks/:lineage_id/progress", h.Status.ListProgress)

		v1.GET("/calendar", h.Calendar.ListEntries)
		v1.GET("/export/intakes/:id/catalog", h.Export.ExportCatalog)

		// 变更接口（需要操作人，限流）
		admin := v1.Group("")
		admin.Use(middleware.Actor(cfg.Server.ActorHeader))
		admin.Use(middleware.RateLimit(limiter, cfg.Server.RateLimit, window))
		{
			admin.POST("/intakes", h.Intake.CreateIntake)
			admin.PUT("/intakes/:id", h.Intake.UpdateIntake)
			admin.POST("/intakes/:id/tasks", h.Task.CreateTask)

			admin.PUT("/tasks/:id", h.Task.AmendTask)
			admin.DELETE("/tasks/:id", h.Task.DeleteTask)
			admin.POST("/tasks/:id/revert", h.Task.RevertTask)

			admin.POST("/progress-updates", h.Status.AppendProgress)

			admin.PUT("/calendar", h.Calendar.UpsertEntry)
			admin.POST("/calendar/import", h.Calendar.ImportICS)
		}
	}

	return r
}
