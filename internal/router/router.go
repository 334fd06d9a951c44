package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/slopesquad/presence-api/internal/config"
	"github.com/slopesquad/presence-api/internal/handler"
	"github.com/slopesquad/presence-api/internal/middleware"
)

// RegisterRoutes registers the operational endpoints on the provided
// Echo instance: the health check and the Prometheus scrape target.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterGroups registers all presence endpoints under /v1.  Group
// read endpoints go through the Redis response cache; everything under
// the group prefix is rate limited.  With a nil Redis client both
// middlewares are pass-through.
func RegisterGroups(e *echo.Echo, h *handler.GroupHandler, rdb *redis.Client) {
	rl := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	e.POST("/v1/groups", h.CreateGroup, rl)

	g := e.Group("/v1/groups/:code", rl)
	g.GET("", h.GetGroup)
	g.POST("/checkin", h.CheckIn)
	g.POST("/checkout", h.CheckOut)
	g.PUT("/members/:device_id/accommodation", h.UpdateAccommodation)

	// Reads poll hard from lift lines; a few seconds of cache is
	// indistinguishable from sweep staleness between requests.
	g.GET("/checkins", h.ListCheckins, cache)
	g.GET("/members", h.ListMembers, cache)
}
