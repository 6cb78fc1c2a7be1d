// Package main runs the Screenloom desktop backend: local HTTP API for the
// shell, public webhook ingress via a cloudflared tunnel, and the background
// enrichment worker.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/screenloom/backend/config"
	"github.com/screenloom/backend/internal/enrich"
	"github.com/screenloom/backend/internal/middleware"
	"github.com/screenloom/backend/internal/realtime"
	"github.com/screenloom/backend/internal/recordings"
	"github.com/screenloom/backend/internal/sessions"
	"github.com/screenloom/backend/internal/tunnel"
	"github.com/screenloom/backend/internal/users"
	"github.com/screenloom/backend/pkg/capture"
	"github.com/screenloom/backend/pkg/database"
	"github.com/screenloom/backend/pkg/queue"
	"github.com/screenloom/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	db, err := database.Open(cfg.Database.Path, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	clientCache := capture.NewCache(cfg.Capture.BaseURL, time.Duration(cfg.Capture.RequestTimeoutSec)*time.Second, logger)
	hub := realtime.NewHub(logger)
	jobQueue := queue.New(queue.DefaultCapacity, logger)

	// Repositories
	userRepo := users.NewRepository(db)
	recordingRepo := recordings.NewRepository(db)

	// Core: correlator + enrichment pipeline
	correlator := recordings.NewCorrelator(recordingRepo, userRepo, jobQueue, hub, logger)
	pipeline := enrich.NewPipeline(recordingRepo, jobQueue,
		func(apiKey string) enrich.IndexingClient { return clientCache.Get(apiKey) },
		hub, logger)

	// Tunnel
	tun := tunnel.New(cfg.Tunnel.Binary, logger)
	if cfg.Tunnel.Enabled {
		if url, err := tun.Start(cfg.Server.Port); err != nil {
			logger.Warn("tunnel disabled", zap.Error(err))
		} else {
			logger.Info("webhook ingress public", zap.String("url", url+"/webhook"))
		}
	}

	// Handlers
	userHandler := users.NewHandler(userRepo, clientCache, logger)
	recordingHandler := recordings.NewHandler(recordingRepo, logger)
	webhookHandler := recordings.NewWebhookHandler(correlator, logger)
	sessionHandler := sessions.NewHandler(clientCache, tun, cfg.Capture.SessionTokenTTLSec, logger)
	tunnelHandler := tunnel.NewHandler(tun)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Liveness
	router.GET("/", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Webhook ingress (public via tunnel; the provider signs nothing, so
	// there is nothing to verify here)
	router.POST("/webhook", webhookHandler.Receive)
	router.GET("/tunnel/status", tunnelHandler.GetStatus)

	// Registration (public: this is how the shell obtains its token)
	router.POST("/auth/register", userHandler.Register)

	// Shell API (access token required)
	api := router.Group("")
	api.Use(middleware.AccessToken(userRepo))
	{
		api.POST("/auth/logout", userHandler.Logout)
		api.GET("/settings", userHandler.Settings)
		api.PATCH("/settings", userHandler.UpdateSettings)
		api.GET("/recordings", recordingHandler.List)
		api.POST("/sessions/start", sessionHandler.Start)
		api.POST("/sessions/:id/stop", sessionHandler.Stop)
		api.POST("/sessions/:id/pause", sessionHandler.Pause)
		api.POST("/sessions/:id/resume", sessionHandler.Resume)
	}

	// Status push (token in shell-local context; socket stays on localhost)
	router.GET("/ws", realtime.ServeWs(hub, logger))

	srv := &http.Server{
		Addr:         "127.0.0.1:" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background enrichment worker
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go pipeline.Run(workerCtx)

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	tun.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
