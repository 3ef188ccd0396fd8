package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/huntlog/internal/cache"
	"github.com/huntlog/internal/config"
	"github.com/huntlog/internal/db"
	"github.com/huntlog/internal/handler"
)

// Setup 配置 Gin 引擎和路由
func Setup(cfg config.AppConfig, c *cache.Cache) *gin.Engine {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("huntlog_session", store))

	api := handler.NewAPI(db.DB, c)

	r.GET("/ping", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"message": "pong"})
	})

	auth := r.Group("/api/auth")
	{
		auth.POST("/login", handler.Login)
		auth.POST("/logout", handler.Logout)
	}

	// 需要认证的业务路由
	authed := r.Group("/api")
	authed.Use(handler.AuthRequired())
	{
		timelogs := authed.Group("/timelogs")
		{
			timelogs.GET("/:date", api.GetDayLog)
			timelogs.POST("/:date/entries", api.AddEntry)
			timelogs.PUT("/:date/entries/:entryId", api.UpdateEntry)
			timelogs.POST("/:date/entries/:entryId/stop", api.StopEntry)
			timelogs.DELETE("/:date/entries/:entryId", api.DeleteEntry)
		}

		authed.GET("/stats", api.GetStats)

		analyses := authed.Group("/analyses")
		{
			analyses.POST("", api.GenerateAnalysis)
			analyses.GET("", api.ListAnalyses)
			analyses.GET("/:id", api.GetAnalysis)
		}

		goals := authed.Group("/goals")
		{
			goals.GET("", api.ListGoals)
			goals.POST("", api.CreateGoal)
			goals.GET("/:id", api.GetGoal)
			goals.PUT("/:id", api.UpdateGoal)
			goals.DELETE("/:id", api.DeleteGoal)
		}

		settings := authed.Group("/settings")
		{
			settings.GET("", api.GetSettings)
			settings.PUT("", api.UpdateSettings)
			settings.POST("/ai/test", api.TestAIConnection)
		}
	}

	return r
}
