package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"codesync/internal/api"
	"codesync/internal/config"
	"codesync/internal/exec"
	"codesync/internal/history"
	"codesync/internal/llm"
	_ "codesync/internal/llm/gemini"
	"codesync/internal/metrics"
	"codesync/internal/routers"
	"codesync/internal/session"
	"codesync/internal/utils"
)

func main() {
	logger := utils.NewLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err.Error())
	}

	hub := session.NewHub(logger)
	if cfg.HistoryEnabled() {
		publisher := history.NewPublisher(cfg.RedisAddr)
		defer publisher.Close()
		hub.SetHistorySink(publisher)
		logger.Info("session history publishing enabled", "redis", cfg.RedisAddr)
	}

	provider, err := llm.NewProvider(cfg.AIProvider)
	if err != nil {
		logger.Warn("AI provider unavailable, /ask-ai disabled", "provider", cfg.AIProvider, "error", err.Error())
		provider = nil
	}

	limits := exec.SandboxLimits{
		WallTime: time.Duration(cfg.SandboxWallSec) * time.Second,
		MemoryB:  cfg.SandboxMemoryMB * 1024 * 1024,
		NanoCPUs: cfg.SandboxNanoCPUs,
	}
	handlers := api.NewHandlers(logger, hub, exec.NewRunner(), provider, limits)

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		metrics.Middleware,
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		}),
	)
	r.Mount("/", routers.New(handlers))

	server := &http.Server{Addr: cfg.Addr(), Handler: r}

	go func() {
		logger.Info("codesync listening", "addr", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", "error", err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err.Error())
	}
	logger.Info("server stopped")
}
