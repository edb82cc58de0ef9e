// Package api exposes the engine over HTTP/JSON with a server-sent event stream
// of combat events.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cory-johannsen/arena/internal/events"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
	"github.com/cory-johannsen/arena/internal/game/session"
	"github.com/cory-johannsen/arena/internal/game/shop"
)

// DefaultKeepAlive is the idle interval between SSE keepalive comments.
const DefaultKeepAlive = 30 * time.Second

// Catalog lists the static content served by the API.
type Catalog interface {
	Races() []ruleset.Race
	Locations() []ruleset.Location
}

// Wallet reports the global currency balance.
type Wallet interface {
	GlobalCurrency(ctx context.Context) (int, error)
}

// HealthFunc probes the backing store.
type HealthFunc func(ctx context.Context) error

// Handler serves the HTTP API.
type Handler struct {
	sessions  *session.Manager
	shop      *shop.Shop
	catalog   Catalog
	wallet    Wallet
	bus       events.Bus
	health    HealthFunc
	keepAlive time.Duration
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// NewHandler creates a Handler.
//
// Precondition: sessions, items, catalog, wallet and bus must be non-nil. health may
// be nil for backends without a probe.
func NewHandler(
	sessions *session.Manager,
	items *shop.Shop,
	catalog Catalog,
	wallet Wallet,
	bus events.Bus,
	health HealthFunc,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		sessions:  sessions,
		shop:      items,
		catalog:   catalog,
		wallet:    wallet,
		bus:       bus,
		health:    health,
		keepAlive: DefaultKeepAlive,
		logger:    logger,
	}
}

// SetKeepAlive overrides the SSE keepalive interval.
func (h *Handler) SetKeepAlive(d time.Duration) {
	if d > 0 {
		h.keepAlive = d
	}
}

// SetRateLimit caps session actions at rps with the given burst. A non-positive rps
// disables limiting.
func (h *Handler) SetRateLimit(rps float64, burst int) {
	if rps <= 0 {
		h.limiter = nil
		return
	}
	h.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// Router builds the gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(traceID(), requestLogger(h.logger), recovery(h.logger))

	r.GET("/health", h.Health)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})

	api := r.Group("/api")
	{
		api.GET("/races", h.ListRaces)
		api.GET("/locations", h.ListLocations)
		api.GET("/shop", h.ListShop)
		api.POST("/shop/:item_id/purchase", h.Purchase)
		api.GET("/currency", h.Currency)
		api.GET("/stats", h.Stats)
		api.GET("/events", h.Events)

		chars := api.Group("/characters")
		chars.GET("", h.ListCharacters)
		chars.POST("", h.CreateCharacter)
		chars.GET("/:id", h.GetCharacter)
		chars.DELETE("/:id", h.DeleteCharacter)

		sess := api.Group("/session")
		if h.limiter != nil {
			sess.Use(rateLimit(h.limiter))
		}
		sess.POST("", h.StartSession)
		sess.GET("", h.GetSession)
		sess.DELETE("", h.EndSession)
		sess.POST("/location", h.SelectLocation)
		sess.POST("/enemy", h.FindEnemy)
		sess.POST("/flee", h.Flee)
		sess.POST("/attack", h.Attack)
		sess.POST("/stats", h.AllocateStatPoint)
		sess.POST("/restore", h.Restore)
	}
	return r
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
