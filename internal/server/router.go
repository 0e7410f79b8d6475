package server

import (
	"github.com/gin-gonic/gin"

	"github.com/classpulse/classpulse-backend/internal/http/handlers"
	"github.com/classpulse/classpulse-backend/internal/http/middleware"
	"github.com/classpulse/classpulse-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log              *logger.Logger
	CORSOrigins      string
	AuthMiddleware   *middleware.AuthMiddleware
	AuthHandler      *handlers.AuthHandler
	VideoHandler     *handlers.VideoHandler
	ProgressHandler  *handlers.ProgressHandler
	AnalyticsHandler *handlers.AnalyticsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLog(cfg.Log))
	router.Use(middleware.CORS(cfg.CORSOrigins))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")

	// Public
	api.POST("/auth/register", cfg.AuthHandler.Register)
	api.POST("/auth/login", cfg.AuthHandler.Login)

	// Protected
	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	protected.GET("/auth/me", cfg.AuthHandler.GetMe)

	// Video catalog
	videos := protected.Group("/videos")
	{
		videos.POST("", cfg.AuthMiddleware.RequireTeacher(), cfg.VideoHandler.Create)
		videos.GET("", cfg.VideoHandler.List)
		videos.GET("/:id", cfg.VideoHandler.Get)
		videos.PUT("/:id", cfg.AuthMiddleware.RequireTeacher(), cfg.VideoHandler.Update)
		videos.DELETE("/:id", cfg.AuthMiddleware.RequireTeacher(), cfg.VideoHandler.Delete)
	}

	// Progress core: student telemetry in, teacher analytics out.
	progress := protected.Group("/progress")
	{
		progress.POST("/update", cfg.ProgressHandler.Heartbeat)
		progress.POST("/click", cfg.ProgressHandler.RecordClick)
		progress.GET("/me", cfg.ProgressHandler.GetAllMyProgress)
		progress.GET("/me/:videoId", cfg.ProgressHandler.GetMyProgress)

		teacher := progress.Group("/")
		teacher.Use(cfg.AuthMiddleware.RequireTeacher())
		teacher.GET("/analytics/classroom", cfg.AnalyticsHandler.ClassroomAnalytics)
		teacher.GET("/analytics/video/:videoId", cfg.AnalyticsHandler.VideoAnalytics)
		teacher.GET("/export-csv/:videoId", cfg.AnalyticsHandler.ExportVideoCSV)
		teacher.GET("/export-classroom-csv", cfg.AnalyticsHandler.ExportClassroomCSV)
		teacher.GET("/export-clicks-csv/:videoId", cfg.AnalyticsHandler.ExportClicksCSV)
		teacher.GET("/export-all-clicks-csv", cfg.AnalyticsHandler.ExportAllClicksCSV)
	}

	return router
}
