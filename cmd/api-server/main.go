package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"chatdesk/database"
	"chatdesk/internal/cache"
	"chatdesk/internal/config"
	"chatdesk/internal/microservices/http-api/handler"
	"chatdesk/internal/microservices/http-api/middleware"
	"chatdesk/internal/microservices/http-api/repository"
	"chatdesk/internal/microservices/http-api/service"
	"chatdesk/internal/microservices/websocket"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("could not load config", "error", err)
		os.Exit(1)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.ConnectDB(cfg)
	if err != nil {
		slog.Error("could not connect to database", "error", err)
		os.Exit(1)
	}

	// redis caches are optional: without them every read goes to postgres
	var redisClient *redis.Client
	var pageCache service.PageCache
	var roomListCache service.RoomListCache
	redisClient, err = cache.NewRedisClient(cfg.RedisURL, cfg.RedisPassword)
	if err != nil {
		slog.Warn("redis unavailable, running without caches", "error", err)
	} else {
		pageCache = cache.NewRedisPageCache(redisClient, cfg.CacheTTL)
		roomListCache = cache.NewRedisRoomListCache(redisClient, cfg.CacheTTL)
	}

	// repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	// live delivery hub
	hub := websocket.NewHub()
	go hub.Run()

	// services
	authService := service.NewAuthService(userRepo, refreshTokenRepo, service.NewProfileProvisioner(profileRepo), cfg)
	queryService := service.NewChatQueryService(messageRepo, roomRepo, profileRepo, pageCache, roomListCache)
	mutationService := service.NewChatMutationService(messageRepo, roomRepo, roomListCache, hub)

	var uploadService service.UploadService
	if redisClient != nil {
		uploadService, err = service.NewUploadService(
			cache.NewRedisUploadTokenStore(redisClient), cfg.UploadDataPath, cfg.BaseURL, cfg.UploadTokenTTL)
		if err != nil {
			slog.Error("could not set up upload storage", "error", err)
			os.Exit(1)
		}
	}

	// handlers
	authHandler := handler.NewAuthHandler(authService, int64(cfg.AccessTokenTTL.Seconds()))
	chatHandler := handler.NewChatHandler(queryService, mutationService)
	sendLimiter := middleware.NewRateLimiter(cfg.SendRatePerSecond, cfg.SendRateBurst)

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	r.GET("/check-conn", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API is alive and database connected"})
	})

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)
	}

	api := r.Group("/api", middleware.AuthMiddleware(authService))
	{
		api.GET("/chat/rooms", chatHandler.GetRooms)
		api.POST("/chat/rooms", chatHandler.CreateRoom)
		api.PATCH("/chat/rooms/:id", chatHandler.UpdateRoom)
		api.GET("/chat/rooms/:id/messages", chatHandler.GetRoomMessages)
		api.POST("/chat/rooms/:id/messages", sendLimiter.Middleware(), chatHandler.SendMessage)
	}

	if uploadService != nil {
		uploadHandler := handler.NewUploadHandler(uploadService)
		api.POST("/uploads", uploadHandler.RequestTarget)
		r.PUT("/uploads/:token", uploadHandler.Receive)
		r.GET("/files/:ref", uploadHandler.Serve)
	} else {
		slog.Warn("upload endpoints disabled, redis is required for upload tokens")
	}

	r.GET("/ws", middleware.AuthMiddleware(authService), websocket.WSHandler(hub))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("Server running", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	hub.Shutdown()
	slog.Info("Server exited")
}
