package main

import (
	"context"
	"fmt"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/classpulse/classpulse-backend/internal/db"
	"github.com/classpulse/classpulse-backend/internal/http/handlers"
	"github.com/classpulse/classpulse-backend/internal/http/middleware"
	"github.com/classpulse/classpulse-backend/internal/platform/logger"
	"github.com/classpulse/classpulse-backend/internal/repos"
	"github.com/classpulse/classpulse-backend/internal/server"
	"github.com/classpulse/classpulse-backend/internal/services"
	"github.com/classpulse/classpulse-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	port := utils.GetEnv("PORT", "8080", log)
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 86400, log)
	teacherAllowlist := utils.GetEnv("TEACHER_ALLOWLIST", "", log)
	corsOrigins := utils.GetEnv("CORS_ORIGINS", "", log)
	redisAddr := utils.GetEnv("REDIS_ADDR", "", log)
	cacheTTL := utils.GetEnvAsInt("ANALYTICS_CACHE_TTL", 30, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Redis is optional: without it the classroom view reads through.
	var redisClient *goredis.Client
	if redisAddr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:        redisAddr,
			DialTimeout: 5 * time.Second,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			log.Warn("Redis unreachable, analytics cache disabled", "error", err)
			_ = client.Close()
		} else {
			redisClient = client
		}
		cancel()
	}

	// Repos
	log.Info("Setting up repos...")
	userRepo := repos.NewUserRepo(thePG, log)
	videoRepo := repos.NewVideoRepo(thePG, log)
	progressRepo := repos.NewProgressRepo(thePG, log)
	clickRepo := repos.NewClickRepo(thePG, log)

	// Services
	log.Info("Setting up services...")
	teacherPolicy := services.NewAllowlistTeacherPolicy(teacherAllowlist)
	authService := services.NewAuthService(thePG, log, userRepo, teacherPolicy, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second)
	videoService := services.NewVideoService(thePG, log, videoRepo)
	progressService := services.NewProgressService(thePG, log, videoRepo, progressRepo, clickRepo)
	analyticsService := services.NewAnalyticsService(thePG, log, videoRepo, progressRepo, userRepo, redisClient, time.Duration(cacheTTL)*time.Second)
	exportService := services.NewExportService(thePG, log, analyticsService, videoRepo, clickRepo, userRepo)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	videoHandler := handlers.NewVideoHandler(videoService)
	progressHandler := handlers.NewProgressHandler(progressService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService, exportService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		Log:              log,
		CORSOrigins:      corsOrigins,
		AuthMiddleware:   authMiddleware,
		AuthHandler:      authHandler,
		VideoHandler:     videoHandler,
		ProgressHandler:  progressHandler,
		AnalyticsHandler: analyticsHandler,
	})

	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
