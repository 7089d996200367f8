package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/fyp-portal-api/internal/handler"
	"github.com/noah-isme/fyp-portal-api/internal/middleware"
	"github.com/noah-isme/fyp-portal-api/internal/models"
	"github.com/noah-isme/fyp-portal-api/internal/service"
	"github.com/noah-isme/fyp-portal-api/pkg/config"
	"github.com/noah-isme/fyp-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/fyp-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/fyp-portal-api/pkg/middleware/requestid"
)

type routerDeps struct {
	tokens   middleware.TokenValidator
	metrics  *service.MetricsService
	defense  *handler.DefenseHandler
	advisors *handler.AdvisorHandler
	projects *handler.ProjectHandler
	exports  *handler.ExportHandler
	ops      *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics, "/metrics"))

	r.GET("/health", deps.ops.Health)
	r.GET("/ready", deps.ops.Ready)
	r.GET("/metrics", deps.ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	// The token in the path is the credential.
	api.GET("/defense/exports/download/:token", deps.exports.Download)

	authed := api.Group("", middleware.JWT(deps.tokens))
	admin := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)

	defense := authed.Group("/defense", admin)
	defense.POST("/schedule/run", deps.defense.Run)
	defense.POST("/schedule/preview", deps.defense.Preview)
	defense.GET("/schedule/last-run", deps.defense.LastRun)
	defense.GET("/settings", deps.defense.GetSettings)
	defense.PUT("/settings", deps.defense.UpdateSettings)
	defense.POST("/exports", deps.exports.Create)
	defense.GET("/exports/:id", deps.exports.Status)

	authed.GET("/advisors", deps.advisors.List)
	authed.GET("/advisors/:id/workload", deps.advisors.Workload)

	authed.GET("/projects", deps.projects.List)
	authed.GET("/projects/:id", deps.projects.Get)
	authed.PATCH("/projects/:id/defense", admin, deps.projects.OverrideDefense)

	return r
}
