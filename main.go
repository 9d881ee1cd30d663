package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"room-service/internal/config"
	"room-service/internal/db"
	"room-service/internal/handlers"
	"room-service/internal/middleware"
	"room-service/internal/notify"
	"room-service/internal/observability"
	"room-service/internal/rabbitmq"
	"room-service/internal/relationship"
	"room-service/internal/repositories"
	"room-service/internal/ws"
)

const serviceName = "room-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("failed to connect to db", zap.Error(err))
	}

	shutdownTracing, err := observability.InitTracing(context.Background(), serviceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("failed to init tracing", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	roomRepo := repositories.NewRoomRepo(database, cfg.RoomCodeLength)
	messageRepo := repositories.NewMessageRepo(database)
	presenceRepo := repositories.NewPresenceRepo(database)
	inviteRepo := repositories.NewInviteRepo(database)

	relations := relationship.NewHTTPClient(cfg.RelationshipURL)

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.PushExchange, logger)
	defer publisher.Close()
	notifier := notify.NewNotifier(presenceRepo, notify.NewAMQPSink(publisher), logger)

	verifier := middleware.NewTokenVerifier(cfg.JWTSecret)

	hub := ws.NewHub(logger)
	sessionHandler := ws.NewSessionHandler(hub, roomRepo, messageRepo, presenceRepo, relations, notifier, verifier, logger)

	roomHandler := handlers.NewRoomHandler(roomRepo, presenceRepo, hub, sessionHandler.Presences(), logger)
	inviteHandler := handlers.NewInviteHandler(inviteRepo, roomRepo, relations, logger)
	userHandler := handlers.NewUserHandler(messageRepo, presenceRepo, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.POST("/rooms", authMiddleware, roomHandler.CreateRoom)
	router.GET("/rooms", authMiddleware, roomHandler.ListRooms)
	router.GET("/rooms/:room_id", authMiddleware, roomHandler.GetRoom)
	router.POST("/rooms/:room_id/join", authMiddleware, roomHandler.JoinRoom)
	router.POST("/rooms/:room_id/leave", authMiddleware, roomHandler.LeaveRoom)
	router.DELETE("/rooms/:room_id", authMiddleware, roomHandler.DeleteRoom)

	router.POST("/rooms/:room_id/invites", authMiddleware, inviteHandler.CreateInvite)
	router.GET("/invites", authMiddleware, inviteHandler.ListInvites)
	router.POST("/invites/:room_id/accept", authMiddleware, inviteHandler.AcceptInvite)
	router.DELETE("/invites/:room_id", authMiddleware, inviteHandler.DeclineInvite)

	router.GET("/unread", authMiddleware, userHandler.GetUnreadSummary)
	router.POST("/push-token", authMiddleware, userHandler.RegisterPushToken)

	router.GET("/ws/rooms/:room_id", sessionHandler.Handle)

	logger.Info("room service listening", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
