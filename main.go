package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"skillswap-hub/internal/auth"
	"skillswap-hub/internal/db"
	"skillswap-hub/internal/handlers"
	"skillswap-hub/internal/middleware"
	"skillswap-hub/internal/observability"
	"skillswap-hub/internal/rabbitmq"
	"skillswap-hub/internal/repositories"
	"skillswap-hub/internal/telemetry"
	"skillswap-hub/internal/tracing"
	"skillswap-hub/internal/ws"
)

const serviceName = "skillswap-hub"

func main() {
	_ = godotenv.Load()

	shutdownTracing, err := tracing.Init(context.Background(), serviceName, getEnv("OTLP_ENDPOINT", ""))
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	authenticator := auth.NewAuthenticator(
		getEnv("JWT_SECRET", "dev-secret"),
		serviceName,
		24*time.Hour,
	)

	amqpURL := getEnv("AMQP_URL", "")
	eventPublisher, err := observability.NewAMQPPublisher(amqpURL, getEnv("AMQP_EXCHANGE", "skillswap.events"))
	if err != nil {
		log.Printf("event publishing disabled: %v", err)
	} else {
		observability.SetPublisher(eventPublisher)
		defer eventPublisher.Close()
	}

	auditPublisher := rabbitmq.NewPublisher(amqpURL, getEnv("AUDIT_EXCHANGE", "skillswap.audit"))
	defer auditPublisher.Close()
	auditEmitter := telemetry.NewAuditEmitter(auditPublisher, "audit_log.chat", serviceName, getEnv("ENVIRONMENT", "dev"))

	userRepo := repositories.NewUserRepo(database)
	conversationRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	hub := ws.NewHub()

	authHandler := handlers.NewAuthHandler(userRepo, authenticator)
	userHandler := handlers.NewUserHandler(userRepo)
	chatHandler := handlers.NewChatHandler(conversationRepo, messageRepo, userRepo, auditEmitter)
	socketHandler := ws.NewSocketHandler(hub, authenticator, userRepo, conversationRepo, messageRepo)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "SkillSwap Hub API is running"})
	})
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/api/auth/register", authHandler.Register)
	router.POST("/api/auth/login", authHandler.Login)

	authMiddleware := middleware.AuthMiddleware(authenticator)

	router.GET("/api/users", authMiddleware, userHandler.ListUsers)
	router.GET("/api/users/profile", authMiddleware, userHandler.GetProfile)
	router.PUT("/api/users/profile", authMiddleware, userHandler.UpdateProfile)

	router.GET("/api/chat", authMiddleware, chatHandler.ListChats)
	router.POST("/api/chat", authMiddleware, chatHandler.StartChat)
	router.GET("/api/chat/:chatId", authMiddleware, chatHandler.GetChat)

	router.GET("/ws", socketHandler.Handle)

	handlers.RegisterDebugRoutes(router, auditEmitter, getEnv("DEBUG_ROUTES", "") == "true")

	port := getEnv("PORT", "3002")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
