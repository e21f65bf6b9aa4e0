package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-service/config"
	"chat-service/internal/handler"
	"chat-service/internal/model"
	"chat-service/internal/repository"
	"chat-service/internal/service"
	dbPkg "chat-service/pkg/db"
	"chat-service/pkg/jwt"
	"chat-service/pkg/logger"
	redisPkg "chat-service/pkg/redis"
	"chat-service/pkg/response"
	"chat-service/pkg/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg := config.LoadConfig()

	// 2. 初始化日志系统
	log := logger.InitLogger(cfg.Log)
	defer log.Sync()

	log.Info("=== 聊天服务启动 ===")
	log.Info("服务器配置信息",
		zap.String("port", cfg.Server.Port),
		zap.String("database_host", cfg.Database.Host),
		zap.Int("database_port", cfg.Database.Port),
		zap.String("database_name", cfg.Database.Database),
		zap.Duration("jwt_expire_time", cfg.JWT.ExpireTime),
		zap.Duration("session_lifetime", cfg.Session.Lifetime),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 初始化数据库连接
	if _, err := dbPkg.InitDB(cfg.Database); err != nil {
		log.Fatal("数据库连接失败", zap.Error(err))
	}
	defer func() {
		if err := dbPkg.CloseDB(); err != nil {
			log.Error("关闭数据库连接失败", zap.Error(err))
		}
	}()
	log.Info("数据库连接成功")

	// 3.1 自动迁移表结构
	if err := dbPkg.AutoMigrate(
		&model.User{},
		&model.UserDevice{},
		&model.Session{},
		&model.Code{},
		&model.Room{},
		&model.Member{},
		&model.Message{},
		&model.ReadReceipt{},
		&model.MessageReaction{},
		&model.TypingStatus{},
		&model.FriendRequest{},
		&model.Friendship{},
	); err != nil {
		log.Fatal("自动迁移失败", zap.Error(err))
	}
	log.Info("自动迁移完成")

	// 3.2 初始化Redis（在线状态、未读计数、输入状态）
	// Redis不可用时降级运行，相关功能静默跳过
	if err := redisPkg.InitRedis(cfg.Redis); err != nil {
		log.Warn("Redis连接失败，相关功能降级", zap.Error(err))
	} else {
		log.Info("Redis连接成功")
		defer redisPkg.Close()
	}

	// 3.3 初始化业务服务
	db := dbPkg.GetDB()
	jwtSvc := jwt.NewJWTService(cfg.JWT)

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)
	friendRepo := repository.NewFriendRepository(db)

	wsManager := websocket.NewManager()

	sessionSvc := service.NewSessionService(sessionRepo, userRepo, cfg.Session)
	userSvc := service.NewUserService(userRepo, sessionSvc, jwtSvc)
	roomSvc := service.NewRoomService(roomRepo)
	messageSvc := service.NewMessageService(messageRepo, roomRepo, sessionRepo, wsManager, cfg.Chat)
	receiptSvc := service.NewReceiptService(receiptRepo, messageRepo, roomRepo)
	friendSvc := service.NewFriendService(friendRepo, userRepo, sessionRepo, wsManager)
	presenceSvc := service.NewPresenceService(userRepo, roomRepo, friendRepo, receiptRepo, sessionRepo, wsManager, cfg.Chat)

	userHandler := handler.NewUserHandler(userSvc, sessionSvc)
	roomHandler := handler.NewRoomHandler(roomSvc)
	messageHandler := handler.NewMessageHandler(messageSvc, receiptSvc, presenceSvc)
	friendHandler := handler.NewFriendHandler(friendSvc)
	wsHandler := websocket.NewHandler(jwtSvc, wsManager, roomSvc, presenceSvc, receiptSvc, cfg.WebSocket)

	// 4. 设置Gin模式
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 5. 创建Gin路由
	router := gin.New()
	router.Use(logger.LoggerMiddleware())
	router.Use(logger.ErrorLoggerMiddleware())

	// 6. 基础路由
	setupBasicRoutes(router)

	// 6.1 业务路由
	v1 := router.Group("/api/v1")
	{
		users := v1.Group("/users")
		{
			// 公开接口（无需认证）
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)
			users.POST("/refresh", userHandler.Refresh)
			users.POST("/verify-email", userHandler.VerifyEmail)
			users.POST("/password-reset/request", userHandler.RequestPasswordReset)
			users.POST("/password-reset", userHandler.ResetPassword)

			// 需要认证的接口
			authUsers := users.Group("")
			authUsers.Use(jwtSvc.AuthMiddleware())
			{
				authUsers.GET("/profile", userHandler.GetProfile)
				authUsers.POST("/logout", userHandler.Logout)
				authUsers.GET("/online", userHandler.GetOnlineUsers)
				authUsers.GET("/:user_id/online", userHandler.CheckUserOnline)
			}
		}

		// 房间路由（需要认证）
		rooms := v1.Group("/rooms")
		rooms.Use(jwtSvc.AuthMiddleware())
		{
			rooms.POST("", roomHandler.CreateRoom)
			rooms.GET("", roomHandler.ListMyRooms)
			rooms.POST("/join", roomHandler.JoinByLink)
			rooms.POST("/:room_id/join", roomHandler.Join)
			rooms.DELETE("/:room_id/members/me", roomHandler.Leave)
			rooms.GET("/:room_id", roomHandler.GetRoom)
			rooms.GET("/:room_id/members", roomHandler.ListMembers)
			rooms.GET("/:room_id/messages", messageHandler.ListRoomMessages)
			rooms.GET("/:room_id/unread", messageHandler.GetRoomUnread)
		}

		// 消息路由（需要认证）
		messages := v1.Group("/messages")
		messages.Use(jwtSvc.AuthMiddleware())
		{
			messages.POST("", messageHandler.SendMessage)
			messages.PUT("/:message_id", messageHandler.EditMessage)
			messages.DELETE("/:message_id", messageHandler.DeleteMessage)
			messages.PUT("/:message_id/read", messageHandler.MarkRead)
			messages.POST("/:message_id/reactions", messageHandler.ToggleReaction)
			messages.GET("/:message_id/reactions", messageHandler.ListReactions)
		}

		// 输入状态上报（需要认证）
		v1.POST("/typing", jwtSvc.AuthMiddleware(), messageHandler.SetTyping)
		v1.GET("/typing/:chat_id", jwtSvc.AuthMiddleware(), messageHandler.GetTyping)

		// 好友路由（需要认证）
		friends := v1.Group("/friends")
		friends.Use(jwtSvc.AuthMiddleware())
		{
			friends.GET("", friendHandler.ListFriends)
			friends.DELETE("/:user_id", friendHandler.Unfriend)
			friends.POST("/requests", friendHandler.SendRequest)
			friends.GET("/requests", friendHandler.ListPendingRequests)
			friends.PUT("/requests/:request_id", friendHandler.Respond)
		}
	}

	// WebSocket路由
	router.GET("/ws", wsHandler.Serve)

	// 7. 创建HTTP服务器
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 8. 启动HTTP服务器
	go func() {
		log.Info("HTTP服务器启动", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP服务器启动失败", zap.Error(err))
		}
	}()

	// 9. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("HTTP服务器关闭失败", zap.Error(err))
	}

	log.Info("服务器已安全关闭")
}

// setupBasicRoutes 设置基础路由
func setupBasicRoutes(router *gin.Engine) {
	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		if err := dbPkg.HealthCheck(); err != nil {
			status = "db-down"
		} else if err := redisPkg.HealthCheck(); err != nil {
			status = "redis-down"
		}
		response.Success(c, gin.H{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// 根路径
	router.GET("/", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "聊天服务运行中",
			"version": "1.0.0",
		})
	})
}
