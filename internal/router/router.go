package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Aciila/go-ddd-boilerplate/config"
	"github.com/Aciila/go-ddd-boilerplate/internal/application"
	handlers "github.com/Aciila/go-ddd-boilerplate/internal/interface/http"
	"github.com/Aciila/go-ddd-boilerplate/internal/interface/middleware"
	"github.com/Aciila/go-ddd-boilerplate/internal/router/modules"
	"github.com/Aciila/go-ddd-boilerplate/pkg/helpers"
	"github.com/Aciila/go-ddd-boilerplate/pkg/validation"
)

// Deps is everything the HTTP surface needs. Optional collaborators may be nil.
type Deps struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Users   *application.UserService
	Redis   *redis.Client       // rate limiting; nil disables it
	JWT     *helpers.JWTManager // bearer guard on writes; nil leaves writes open
	Metrics *middleware.Metrics // nil disables /metrics
	Checks  map[string]handlers.Pinger
	Version string
}

// New builds the gin engine with global middleware and every module registered.
func New(d Deps) *gin.Engine {
	validation.Init()
	cfg := d.Config

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware(), middleware.RealIP())
	if d.Metrics != nil {
		r.Use(d.Metrics.Instrument())
	}
	if cfg.HTTPLogEnabled && d.Logger != nil {
		r.Use(middleware.AccessLog(d.Logger))
	}
	if origins := cfg.CORSOrigins(); len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", "Location", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	var rdb *redis.Client
	if cfg.RateLimitEnabled {
		rdb = d.Redis
	}
	var jwt *helpers.JWTManager
	if cfg.AuthEnabled {
		jwt = d.JWT
	}

	reg := NewRegistry(r)
	reg.AddRoot(modules.NewHealthModule(handlers.NewHealthHandler(cfg.AppName, d.Version, d.Checks)))
	if cfg.DocsEnabled {
		reg.AddRoot(modules.NewDocsModule(handlers.NewDocsHandler(cfg.AppName)))
	}
	if cfg.MetricsEnabled && d.Metrics != nil {
		scrapeLimit := middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
		reg.AddRoot(modules.NewMetricsModule(d.Metrics, scrapeLimit))
	}

	reg.Add(modules.NewUserModule(
		handlers.NewUserHandler(d.Users, d.Logger),
		middleware.BearerAuth(jwt),
		middleware.RateLimit(rdb, cfg.RateLimitPerMinute, time.Minute, middleware.KeyBySubject(), middleware.AllowMethods("OPTIONS")),
	))
	reg.RegisterAll()
	return r
}
