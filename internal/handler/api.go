package handler

import (
	"gorm.io/gorm"

	"github.com/huntlog/internal/cache"
	"github.com/huntlog/internal/service"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db       *gorm.DB
	timelogs *service.TimeLogService
	analyses *service.AnalysisService
	goals    *service.GoalService
	system   *service.SystemSettingService
}

// NewAPI constructs a handler set with shared services.
// 建议协作方由这里显式构造并注入分析服务，避免全局懒加载状态。
func NewAPI(gdb *gorm.DB, c *cache.Cache) *API {
	systemService := service.NewSystemSettingService(gdb)
	recommender := service.NewAIRecommendationService(systemService)

	return &API{
		db:       gdb,
		timelogs: service.NewTimeLogService(gdb, c),
		analyses: service.NewAnalysisService(gdb, c, recommender),
		goals:    service.NewGoalService(gdb),
		system:   systemService,
	}
}

// WithRecommender 覆盖分析服务使用的建议协作方，主要用于测试。
func (a *API) WithRecommender(c *cache.Cache, recommender service.RecommendationGenerator) *API {
	a.analyses = service.NewAnalysisService(a.db, c, recommender)
	return a
}

// DB exposes the underlying gorm instance for legacy paths.
func (a *API) DB() *gorm.DB {
	return a.db
}
