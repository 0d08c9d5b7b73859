// @title           Relief Dispatch API
// @version         1.0
// @description     SMS intake, volunteer verification and mission dispatch for disaster relief

// @BasePath  /api

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Enter the token with the `Bearer ` prefix
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"relief-http-service/internal/app/routes"
	"relief-http-service/internal/domain/services/container"
	"relief-http-service/internal/infrastructure/config"
	"relief-http-service/pkg/logger"
)

func main() {
	if err := logger.SetupLogger(); err != nil {
		fmt.Printf("failed to set up logger: %v\n", err)
		os.Exit(1)
	}

	// the environment may already be set by other means
	if err := godotenv.Load(); err != nil {
		logger.Warning("could not load .env file: %v", err)
	} else {
		logger.Info(".env file loaded")
	}

	cfg := config.GetConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration: %v", err)
		os.Exit(1)
	}
	logger.Info("configuration: %s", cfg)
	if cfg.EnvType == "SERVER" {
		gin.SetMode(gin.ReleaseMode)
	}

	bootCtx, cancel := context.WithTimeout(context.Background(), cfg.MongoTimeout+5*time.Second)
	serviceContainer, err := container.Build(bootCtx, cfg)
	cancel()
	if err != nil {
		logger.Error("failed to start services: %v", err)
		os.Exit(1)
	}

	r := routes.SetupRouter(serviceContainer)
	printSystemInfo()

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening on http://0.0.0.0:%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown: %v", err)
	}
	serviceContainer.Close()
	logger.Info("bye")
}

// printSystemInfo logs runtime resources
func printSystemInfo() {
	logger.Info("CPU cores: %d, goroutines: %d", runtime.NumCPU(), runtime.NumGoroutine())

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	logger.Info("memory: Alloc=%v MiB, TotalAlloc=%v MiB, Sys=%v MiB",
		m.Alloc/1024/1024, m.TotalAlloc/1024/1024, m.Sys/1024/1024)
}
