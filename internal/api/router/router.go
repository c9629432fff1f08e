package router

import (
	"skillmatch/internal/api/handler"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/route"
)

// RegisterRoutes 注册 API 路由，admin 用于保护管理接口
func RegisterRoutes(r *route.Engine, h *handler.Handler, admin app.HandlerFunc) {
	api := r.Group("/api/v1")

	api.GET("/health", h.HandleHealth)

	match := api.Group("/candidates/:candidate_id/jobs/:job_id")
	match.GET("/match", h.HandleGetMatch)
	match.POST("/match", h.HandleGetMatch)
	match.DELETE("/match", admin, h.HandleInvalidateMatch)
	match.GET("/recommendations", h.HandleRecommendations)

	api.POST("/reanalyze", admin, h.HandleReanalyze)

	api.POST("/jobs/:job_id/skills/extract", h.HandleExtractSkills)

	api.GET("/applications/:application_id/compatibility", h.HandleCompatibility)
	api.POST("/applications/:application_id/compatibility", h.HandleCompatibility)

	api.GET("/cache/statistics", admin, h.HandleCacheStatistics)
}
