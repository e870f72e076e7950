package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"recruithub/internal/api"
	"recruithub/internal/auth"
	"recruithub/internal/config"
	"recruithub/internal/database"
	"recruithub/internal/pipeline"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.MustLoad()
	logger.Info("api bootstrapped",
		slog.String("db_host", cfg.Database.Host),
		slog.Int("db_port", cfg.Database.Port),
		slog.String("db_name", cfg.Database.Name),
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		logger.Error("init database failed", slog.Any("error", err))
		os.Exit(1)
	}

	if err := database.AutoMigrate(db); err != nil {
		logger.Error("auto migrate failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database migrated")

	if err := seedAdminUser(db, logger); err != nil {
		logger.Error("seed admin user failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := seedPipelineStages(db, logger); err != nil {
		logger.Error("seed pipeline stages failed", slog.Any("error", err))
		os.Exit(1)
	}

	authService, err := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Error("init auth service failed", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("redis unreachable, rate limiting and board events degraded", slog.Any("error", err))
	}

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, cfg, db, authService, redisClient, logger)

	address := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("api listening", slog.String("address", address))
	if err := router.Run(address); err != nil {
		logger.Error("api server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

// seedAdminUser 保证至少存在一个管理员账号，初始口令通过环境变量给出。
func seedAdminUser(db *gorm.DB, logger *slog.Logger) error {
	var existing database.User
	switch err := db.First(&existing, "role = ?", auth.RoleAdmin).Error; {
	case err == nil:
		return nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin@example.com"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin"
		logger.Warn("seeding admin with default password, set ADMIN_PASSWORD in production")
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	admin := database.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hashed,
		Role:         auth.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	logger.Info("seeded admin user", slog.String("username", username))
	return nil
}

// seedPipelineStages 触发一次阶段读取，首次启动时落库默认阶段列表。
func seedPipelineStages(db *gorm.DB, logger *slog.Logger) error {
	stages, err := pipeline.NewSettingsStore(db).Stages(context.Background())
	if err != nil {
		return err
	}
	logger.Info("pipeline stages ready", slog.Int("count", len(stages)))
	return nil
}
