package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"projecthub/internal/api"
	"projecthub/internal/app/service"
	"projecthub/internal/common/security"
	"projecthub/internal/domain/repository"
	"projecthub/internal/platform/cache"
	"projecthub/internal/platform/config"
	"projecthub/internal/platform/database"
	"projecthub/internal/platform/logger"
)

func main() {
	// 1. Load Configuration
	config.Load()
	log := logger.New(config.AppConfig.LogLevel)
	log.Info("configuration loaded")

	// 2. Initialize JWT
	security.InitJWT()

	// 3. Initialize Database
	database.Connect()
	defer database.Close()
	log.Info("database connected")

	ctx := context.Background()
	if err := database.Migrate(ctx, database.DB); err != nil {
		log.WithError(err).Fatal("schema migration failed")
	}
	if err := database.Seed(ctx, database.DB, config.AppConfig.GuardName, config.AppConfig.SeedDemoUsers, log); err != nil {
		log.WithError(err).Fatal("seed failed")
	}

	// 4. Initialize Redis (token denylist)
	cache.ConnectRedis()
	defer cache.CloseRedis()
	log.Info("redis connected")
	denylist := cache.NewRedisDenylist(cache.RDB)

	// 5. Initialize Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	roleRepo := repository.NewPgRoleRepository(database.DB)
	projectRepo := repository.NewPgProjectRepository(database.DB)
	taskRepo := repository.NewPgTaskRepository(database.DB)

	// 6. Initialize Services
	access := service.NewAccessService(roleRepo, config.AppConfig.GuardName,
		config.AppConfig.PermCacheSize, config.AppConfig.PermCacheTTL)
	authService := service.NewAuthService(userRepo, roleRepo, access, denylist, config.AppConfig.GuardName, log)
	userService := service.NewUserService(userRepo, roleRepo, access, config.AppConfig.GuardName)
	projectService := service.NewProjectService(projectRepo)
	taskService := service.NewTaskService(taskRepo, projectRepo, userRepo)

	// 7. Initialize Router & HTTP Server
	router := api.NewRouter(authService, userService, projectService, taskService, access, denylist)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.WithField("port", config.AppConfig.APIPort).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-stop // Wait for interrupt signal

	log.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("server shutdown failed")
	}
	log.Info("server stopped gracefully")
}
