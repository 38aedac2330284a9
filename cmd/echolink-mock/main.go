package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/0gfoundation/echolink-client/internal/config"
	"github.com/0gfoundation/echolink-client/internal/logger"
	"github.com/0gfoundation/echolink-client/internal/mockapi"
)

func main() {
	envFile := flag.String("env", "", "path to .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	gin.SetMode(gin.ReleaseMode)
	api := mockapi.NewServer(mockapi.Options{
		ConfirmAfter: cfg.Mock.ConfirmAfter,
		AuthWindow:   time.Duration(cfg.Mock.AuthWindowSec) * time.Second,
		Logger:       log,
		ChatRate:     rate.Limit(cfg.Mock.ChatRate),
		ChatBurst:    cfg.Mock.ChatBurst,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Mock.Port),
		Handler: api.Handler(),
	}

	go func() {
		log.Info("mock API starting", zap.Int("port", cfg.Mock.Port), zap.Int("confirm_after", cfg.Mock.ConfirmAfter))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	log.Info("shutdown complete")
}
