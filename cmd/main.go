package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Aciila/go-ddd-boilerplate/config"
	"github.com/Aciila/go-ddd-boilerplate/internal/application"
	"github.com/Aciila/go-ddd-boilerplate/internal/infrastructure/messaging"
	"github.com/Aciila/go-ddd-boilerplate/internal/infrastructure/search"
	"github.com/Aciila/go-ddd-boilerplate/internal/infrastructure/storage"
	handlers "github.com/Aciila/go-ddd-boilerplate/internal/interface/http"
	"github.com/Aciila/go-ddd-boilerplate/internal/interface/middleware"
	"github.com/Aciila/go-ddd-boilerplate/internal/router"
	"github.com/Aciila/go-ddd-boilerplate/internal/transport"
	"github.com/Aciila/go-ddd-boilerplate/pkg/helpers"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()

	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to open storage")
	}
	defer store.Close()

	checks := map[string]handlers.Pinger{"database": store.Users}
	opts := []application.Option{application.WithLogger(logger)}

	deps := router.Deps{
		Config:  cfg,
		Logger:  logger,
		Version: version,
	}

	// Redis backs the rate limiter; without it requests are not limited.
	if cfg.RateLimitEnabled {
		rdb, err := helpers.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			helpers.LogError(logger, "redis unavailable, rate limiting disabled", err, logrus.Fields{"addr": cfg.RedisAddr})
		} else {
			defer func() { _ = rdb.Close() }()
			deps.Redis = rdb
			checks["redis"] = handlers.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		}
	}

	if cfg.EventsEnabled {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.EventsTopology())
		if err != nil {
			helpers.LogError(logger, "rabbitmq unavailable, events disabled", err, nil)
		} else {
			defer pub.Close()
			opts = append(opts, application.WithPublisher(messaging.NewEventPublisher(pub)))
			logger.WithField("exchange", cfg.RabbitMQExchange).Info("publishing user events")
		}
	}

	if cfg.SearchEnabled {
		es, err := helpers.NewESClient(ctx, cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			helpers.LogError(logger, "elasticsearch unavailable, search disabled", err, nil)
		} else {
			idx := search.NewUserIndex(es, cfg.ESUsersIndex)
			if err := idx.EnsureIndex(ctx); err != nil {
				helpers.LogError(logger, "failed to ensure search index", err, logrus.Fields{"index": cfg.ESUsersIndex})
			}
			opts = append(opts, application.WithIndexer(idx))
		}
	}

	if cfg.AuthEnabled {
		deps.JWT = helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTTL)
	}
	if cfg.MetricsEnabled {
		deps.Metrics = middleware.NewMetrics("users")
	}

	deps.Users = application.NewUserService(store.Users, opts...)
	deps.Checks = checks
	engine := router.New(deps)

	var listeners []transport.Transport
	for _, spec := range cfg.Transports() {
		t, err := transport.New(spec, transport.Options{
			Handler: engine,
			Logger:  logger,
			Service: "users.v1.UserDirectory",
		})
		if err != nil {
			logger.WithError(err).Fatal("failed to build transport")
		}
		listeners = append(listeners, t)
	}
	mgr := transport.NewManager(logger, listeners...)
	if err := mgr.StartAll(ctx); err != nil {
		logger.WithError(err).Fatal("failed to start transports")
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := mgr.StopAll(ctxShutdown); err != nil {
		logger.WithError(err).Error("transports did not stop cleanly")
	}
	logger.Info("server exited properly")
}
