package webserver

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	sharedconfig "github.com/stake-plus/giveaways/src/data/config"
	"github.com/stake-plus/giveaways/src/data/giveaways"
	"github.com/stake-plus/giveaways/src/shared/giveaway"
)

// Store is the part of the giveaway store the dashboard uses. The dashboard
// only reads records and enqueues intents; the worker executes them.
type Store interface {
	List(ctx context.Context, f giveaways.Filter) ([]giveaway.Giveaway, error)
	Get(ctx context.Context, id string) (*giveaway.Giveaway, error)
	EnqueueStart(ctx context.Context, g *giveaway.Giveaway, now time.Time) error
	Enqueue(ctx context.Context, id string, action giveaway.Action, patch *giveaway.Patch, now time.Time) error
}

// HealthFunc reports whether the API's dependencies are reachable.
type HealthFunc func(ctx context.Context) error

// New builds the dashboard router.
func New(cfg sharedconfig.APIConfig, store Store, health HealthFunc) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	attachRoutes(r, cfg, store, health)
	return r
}

func attachRoutes(r *gin.Engine, cfg sharedconfig.APIConfig, store Store, health HealthFunc) {
	corsCfg := cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) == 0 {
		corsCfg.AllowOrigins = nil
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", Health(health))

	secret := []byte(cfg.JWTSecret)
	authH := NewAuth(cfg.AdminUser, cfg.AdminPasswordHash, secret, cfg.TokenTTL)
	giveawayH := NewGiveaways(store)
	limiter := NewRateLimiter(cfg.RateLimit, cfg.RateBurst)

	v1 := r.Group("/v1")
	v1.Use(RateLimitMiddleware(limiter))
	{
		v1.POST("/auth/login", authH.Login)

		secured := v1.Group("")
		secured.Use(JWTMiddleware(secret))
		secured.GET("/giveaways", giveawayH.List)
		secured.GET("/giveaways/:id", giveawayH.Get)
		secured.POST("/giveaways", giveawayH.Create)
		secured.POST("/giveaways/:id/actions", giveawayH.Enqueue)
	}
}
