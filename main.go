package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"teamchat/internal/config"
	"teamchat/internal/db"
	"teamchat/internal/handlers"
	"teamchat/internal/logging"
	"teamchat/internal/middleware"
	"teamchat/internal/notify"
	"teamchat/internal/observability"
	"teamchat/internal/rabbitmq"
	"teamchat/internal/repositories"
	"teamchat/internal/retention"
	"teamchat/internal/telemetry"
	"teamchat/internal/ws"
)

func main() {
	config.LoadDotenv()
	cfg := config.LoadServer()
	logging.Setup(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.ServiceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init tracing")
	}

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to db")
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	log.Info().
		Str("mode", rabbitmq.PublisherMode(publisher)).
		Str("reason", rabbitmq.PublisherNoopReason(publisher)).
		Msg("event publisher ready")
	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, cfg.ServiceName, cfg.Environment)

	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	userRepo := repositories.NewUserRepo(database)
	contentRepo := repositories.NewContentRepo(database)

	hub := ws.NewHub()
	typing := ws.NewTypingTracker(ws.DefaultTypingTTL)
	notifier := notify.New(chatRepo, messageRepo, userRepo, hub)
	verifier := middleware.NewJWTVerifier(cfg.JWTSecret)

	job, err := retention.NewJob(messageRepo, cfg.RetentionCron, cfg.NotificationRetentionDays)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid retention schedule")
	}
	go job.Run(ctx)

	chatHandler := handlers.NewChatHandler(chatRepo, messageRepo, userRepo, hub, typing, notifier, audit)
	userHandler := handlers.NewUserHandler(userRepo)
	contentHandler := handlers.NewContentHandler(contentRepo, userRepo, notifier, audit)
	chatWS := ws.NewChatWebSocketHandler(hub, chatRepo, verifier, typing)

	router := gin.New()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(logging.GinLogger())

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, audit, hub, cfg.DebugRoutes)

	api := router.Group("/api", middleware.AuthMiddleware(verifier))

	api.GET("/chats", chatHandler.ListChats)
	api.POST("/chats", chatHandler.CreateChat)
	api.GET("/chats/notifications/:user_id", chatHandler.NotificationsChat)
	api.GET("/chats/:chat_id", chatHandler.GetChat)
	api.DELETE("/chats/:chat_id", chatHandler.DeleteChat)
	api.GET("/chats/:chat_id/messages", chatHandler.ListMessages)
	api.POST("/chats/:chat_id/messages", chatHandler.PostMessage)
	api.PATCH("/chats/:chat_id/messages/:message_id", chatHandler.EditMessage)
	api.DELETE("/chats/:chat_id/messages/:message_id", chatHandler.DeleteMessage)
	api.POST("/chats/:chat_id/messages/:message_id/forward", chatHandler.ForwardMessage)
	api.POST("/chats/:chat_id/mark-read", chatHandler.MarkRead)
	api.POST("/chats/:chat_id/pin", chatHandler.SetPinned)
	api.POST("/chats/:chat_id/typing", chatHandler.Typing)
	api.GET("/chats/:chat_id/typing", chatHandler.ListTyping)

	api.GET("/users", userHandler.ListUsers)
	api.GET("/users/me", userHandler.Me)
	api.POST("/users/me/status", userHandler.UpdateStatus)
	api.GET("/users/:user_id", userHandler.GetUser)

	api.GET("/content-plan", contentHandler.ListPosts)
	api.POST("/content-plan", contentHandler.CreatePost)
	api.POST("/content-plan/comments", contentHandler.AddComment)
	api.PATCH("/content-plan/comments/:comment_id", contentHandler.EditComment)
	api.DELETE("/content-plan/comments/:comment_id", contentHandler.DeleteComment)
	api.PUT("/content-plan/:post_id", contentHandler.UpdatePost)
	api.DELETE("/content-plan/:post_id", contentHandler.DeletePost)
	api.POST("/content-plan/:post_id/read", contentHandler.MarkCommentsRead)

	router.GET("/ws/chats/:chat_id", chatWS.Handle)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Environment).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("tracing shutdown failed")
	}
}
