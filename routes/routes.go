package routes

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"card-trader/auth"
	"card-trader/cache"
	"card-trader/catalog"
	"card-trader/logging"
	"card-trader/middleware"
	"card-trader/services"
	"card-trader/websocket"
)

type Deps struct {
	Services    *services.Services
	Catalog     *catalog.Client
	Hub         *websocket.Hub
	Tokens      *auth.TokenIssuer
	Cache       cache.Store
	Idempotency middleware.IdempotencyConfig
	Log         logrus.FieldLogger
}

// corsConfig lets the mobile app call the API from any origin.
func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", middleware.IdempotencyHeader, logging.RequestIDHeader)
	cfg.ExposeHeaders = []string{logging.RequestIDHeader, middleware.IdempotencyHitHeader}
	return cfg
}

// Setup builds the engine with every route of the API.
func Setup(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(d.Log), cors.New(corsConfig()))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	WebSocketRoutes(r, d)

	api := r.Group("/api")
	requireAuth := middleware.RequireAuth(d.Tokens)

	UserRoutes(api, requireAuth, d)
	MatchRoutes(api, requireAuth, d)
	TransactionRoutes(api, requireAuth, d)
	CardRoutes(api, d)

	return r
}
