package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/pawhaven/chat-service/internal/cache"
	"github.com/pawhaven/chat-service/internal/config"
	"github.com/pawhaven/chat-service/internal/events"
	"github.com/pawhaven/chat-service/internal/handlers"
	"github.com/pawhaven/chat-service/internal/hub"
	"github.com/pawhaven/chat-service/internal/logger"
	"github.com/pawhaven/chat-service/internal/metrics"
	"github.com/pawhaven/chat-service/internal/middleware"
	"github.com/pawhaven/chat-service/internal/profile"
	"github.com/pawhaven/chat-service/internal/repository"
	"github.com/pawhaven/chat-service/internal/service"
	"github.com/pawhaven/chat-service/internal/storage"
	"github.com/pawhaven/chat-service/internal/ws"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "./config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.App.Env == "development")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Infow("starting chatd", "env", cfg.App.Env, "port", cfg.App.Port)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Mongo
	mc, err := repository.Connect(ctx, cfg.Mongo.URI)
	if err != nil {
		log.Fatalw("mongo connect", "err", err)
	}
	db := mc.Database(cfg.Mongo.Database)
	store := repository.NewStore(mc, db,
		cfg.Mongo.RoomsCollection, cfg.Mongo.MessagesCollection, cfg.Mongo.NotificationsCollection)

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalw("redis ping", "err", err)
	}
	presence := cache.NewPresenceStore(rdb, cfg.Redis.Prefix)

	// Kafka mirror for the external fan-out adapter
	var pub service.Publisher
	var kafkaPub *events.Publisher
	if cfg.Kafka.Enabled {
		kafkaPub = events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		pub = kafkaPub
	}

	// S3
	s3store, err := storage.NewS3Store(ctx, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.PublicRead)
	if err != nil {
		log.Fatalw("s3 init", "err", err)
	}

	// Profile lookups
	var profiles service.ProfileLookup
	if cfg.Profile.BaseURL != "" {
		profiles = profile.NewClient(cfg.Profile.BaseURL, cfg.ProfileTimeout)
	}

	broker := hub.New()
	notifier := service.NewNotifier(store, broker, broker, profiles, log)
	chatSvc := service.NewChatService(store, broker, s3store, profiles, presence, notifier, pub, log)
	gateway := ws.NewGateway(broker, chatSvc, cfg.JWT.Secret,
		cfg.PingInterval, cfg.WriteDeadline, cfg.WS.MaxMessageBytes, cfg.WS.SendBuffer, log)
	handler := handlers.NewChatHandler(chatSvc, log)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		BodyLimit:    cfg.Server.BodyLimitMB * 1024 * 1024,
	})
	app.Use(middleware.Recovery(log))
	app.Use(middleware.RequestLogger(log))

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })
	handlers.Register(app, handler, middleware.JWTAuth(cfg.JWT.Secret))
	app.Use("/ws", gateway.UpgradeGuard())
	app.Get("/ws", gateway.Handler())

	// metrics on a separate listener so scrapes bypass the fiber stack
	var metricsSrv *http.Server
	if cfg.Metrics.Addr != "" {
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: metrics.Handler()}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorw("metrics server", "err", err)
			}
		}()
	}

	go func() {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.App.Port)); err != nil {
			log.Fatalw("server failed", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down chatd...")

	shutCtx, cancel2 := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel2()
	_ = app.Shutdown()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutCtx)
	}
	if kafkaPub != nil {
		_ = kafkaPub.Close()
	}
	_ = mc.Disconnect(shutCtx)
	_ = rdb.Close()
	log.Info("shutdown complete")
}
