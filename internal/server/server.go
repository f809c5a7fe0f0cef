package server

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/ksred/ventil-api/internal/config"
	"github.com/ksred/ventil-api/internal/inventory"
	"github.com/ksred/ventil-api/internal/observability"
	"github.com/ksred/ventil-api/internal/trade"
	"github.com/ksred/ventil-api/pkg/middleware"
	"github.com/ksred/ventil-api/pkg/response"
)

// Server bundles the router with the long lived pieces behind it
type Server struct {
	Router   *gin.Engine
	Registry *trade.Registry

	monitor *trade.Monitor
	limiter *middleware.RateLimiter
}

// New wires services, handlers and middleware onto a fresh gin engine.
// db must already be migrated.
func New(db *gorm.DB, cfg config.Config) (*Server, error) {
	policy, err := trade.ParseMissingPolicy(cfg.MissingPossessionPolicy)
	if err != nil {
		return nil, err
	}

	observability.RegisterMetrics()

	tradeDB := trade.NewDatabase(db)
	registry := trade.NewRegistry(tradeDB, trade.NewExecutor(tradeDB, policy))
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog())

	router.GET("/health", healthHandler(db))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(limiter.Middleware())

	inventory.NewGinHandlers(inventory.NewService(db)).RegisterRoutes(v1)
	trade.NewGinHandlers(registry, tradeDB).RegisterRoutes(v1)

	return &Server{
		Router:   router,
		Registry: registry,
		monitor:  trade.NewMonitor(registry, cfg.MonitorInterval),
		limiter:  limiter,
	}, nil
}

// StartBackground runs the open trade monitor and the rate limiter sweeper
// until ctx is cancelled
func (s *Server) StartBackground(ctx context.Context) {
	go s.monitor.Start(ctx)
	go s.limiter.Cleanup(ctx)
}

func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			response.Unavailable(c, "database unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	}
}
