// @title           Taskflow API
// @version         1.0
// @description     Personal tasks, subtasks, notes and announcements with daily/weekly recurring resets.
// @BasePath        /api
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @securityDefinitions.apikey  CronSecret
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryan-kier/productivity/internal/app"
	"github.com/bryan-kier/productivity/internal/config"
	"github.com/bryan-kier/productivity/internal/logger"

	_ "github.com/bryan-kier/productivity/docs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if cfg.App.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	lg.Info("config loaded, connecting to DB", zap.String("env", cfg.App.Env), zap.String("version", cfg.App.Version))
	application, err := app.New(cfg, lg)
	if err != nil {
		lg.Fatal("app init", zap.Error(err))
	}
	application.Start()

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.HTTP.ListenPort(),
		Handler:      application.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout.Duration(),
		WriteTimeout: cfg.HTTP.WriteTimeout.Duration(),
		IdleTimeout:  cfg.HTTP.IdleTimeout.Duration(),
	}

	go func() {
		lg.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	lg.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		lg.Error("server shutdown", zap.Error(err))
	}
	if err := application.Close(ctx); err != nil {
		lg.Error("app close", zap.Error(err))
	}
}
