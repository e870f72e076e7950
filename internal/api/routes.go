package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"recruithub/internal/ai"
	"recruithub/internal/api/middleware"
	"recruithub/internal/auth"
	"recruithub/internal/candidate"
	"recruithub/internal/config"
	"recruithub/internal/pipeline"
)

// RegisterRoutes 注册 /api 下的全部业务路由。
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	authService *auth.Service,
	redisClient redis.UniversalClient,
	logger *slog.Logger,
) {
	store := candidate.NewStore(db, logger)
	board := pipeline.NewBoard(store)
	settings := pipeline.NewSettingsStore(db)
	providers := ai.NewProviderStore(db)
	aiClient := ai.NewClient(providers, cfg.AI.RequestTimeout, logger)

	authHandler := NewAuthHandler(db, authService, redisClient, logger, cfg.Auth.LoginRateLimitPerHour)
	candidateHandler := NewCandidateHandler(store, board, settings, redisClient, logger)
	settingsHandler := NewSettingsHandler(settings, logger)
	providerHandler := NewProviderHandler(providers, logger)
	aiHandler := NewAIHandler(aiClient, store, redisClient, logger, cfg.AI.RateLimitPerMinute)
	wsHandler := NewWsHandler(redisClient, authService, logger, cfg.API.AllowedOrigins)

	authMiddleware := middleware.AuthMiddleware(authService)
	adminRequired := middleware.AdminRequired()

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/ws", wsHandler.HandleConnection)

		apiGroup.POST("/auth/login", authHandler.Login)

		userGroup := apiGroup.Group("/users", authMiddleware, adminRequired)
		{
			userGroup.GET("", authHandler.ListUsers)
			userGroup.POST("", authHandler.CreateUser)
			userGroup.DELETE("/:id", authHandler.DeleteUser)
		}

		candidateGroup := apiGroup.Group("/candidates", authMiddleware)
		{
			candidateGroup.GET("", candidateHandler.List)
			candidateGroup.POST("", candidateHandler.Create)
			candidateGroup.PUT("/:id", candidateHandler.Update)
			candidateGroup.PATCH("/:id/stage", candidateHandler.UpdateStage)
			candidateGroup.DELETE("/:id", adminRequired, candidateHandler.Delete)
		}

		stageGroup := apiGroup.Group("/settings/pipeline-stages", authMiddleware)
		{
			stageGroup.GET("", settingsHandler.Stages)
			stageGroup.POST("", adminRequired, settingsHandler.AddStage)
			stageGroup.PUT("", adminRequired, settingsHandler.ReplaceStages)
			stageGroup.PATCH("", adminRequired, settingsHandler.RenameStage)
			stageGroup.DELETE("", adminRequired, settingsHandler.DeleteStage)
		}

		providerGroup := apiGroup.Group("/ai-providers", authMiddleware, adminRequired)
		{
			providerGroup.GET("", providerHandler.List)
			providerGroup.POST("", providerHandler.Create)
			providerGroup.PUT("/:id", providerHandler.Update)
			providerGroup.DELETE("/:id", providerHandler.Delete)
			providerGroup.POST("/active", providerHandler.SetActive)
		}

		aiGroup := apiGroup.Group("/ai", authMiddleware)
		{
			aiGroup.POST("/parse-resume", aiHandler.ParseResume)
			aiGroup.POST("/match-candidates", aiHandler.MatchCandidates)
			aiGroup.POST("/generate-questions", aiHandler.GenerateQuestions)
		}
	}
}
