package router

import (
    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
    "github.com/redis/go-redis/v9"

    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/config"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/handler"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/logger"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/middleware"
)

// Deps carries what route registration needs.  Redis may be nil, which
// disables the limiter and the response cache.
type Deps struct {
    JWTSecret    string
    Redis        *redis.Client
    RateLimit    config.RateLimitConfig
    Cache        config.CacheConfig
    Gatherer     prometheus.Gatherer
    Log          logger.Logger
    Ready        echo.HandlerFunc
    Bookings     *handler.BookingHandler
    Availability *handler.AvailabilityHandler
    Admin        *handler.AdminHandler
}

// RegisterRoutes registers the probes and the metrics endpoint.
func RegisterRoutes(e *echo.Echo, d Deps) {
    e.GET("/healthz", handler.Health)
    if d.Ready != nil {
        e.GET("/readyz", d.Ready)
    }
    if d.Gatherer != nil {
        e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
    }
}

// RegisterPublic registers the unauthenticated seat endpoints.  Batch
// availability goes through the Redis response cache.
func RegisterPublic(e *echo.Echo, d Deps) {
    h := d.Availability
    e.GET("/v1/schedules/:id/seats", h.SeatMap)
    e.GET("/v1/availability", h.Availability, middleware.ResponseCache(d.Cache, d.Redis, d.Log))
}

// RegisterCustomer registers the booking endpoints under /v1.  All of them
// need a CUSTOMER token; the mutations are rate limited per user.
func RegisterCustomer(e *echo.Echo, d Deps) {
    h := d.Bookings
    g := e.Group("/v1", middleware.JWTAuth(d.JWTSecret), middleware.RequireRole(middleware.RoleCustomer))
    limit := middleware.RateLimit(d.RateLimit, d.Redis, d.Log)

    g.POST("/bookings", h.Create, limit)
    g.POST("/bookings/round-trip", h.CreateRoundTrip, limit)
    g.POST("/bookings/multi-city", h.CreateMultiCity, limit)
    g.DELETE("/bookings/:code", h.Cancel, limit)
    g.DELETE("/bookings/:code/family", h.CancelFamily, limit)
    g.GET("/my-bookings", h.List)
    g.GET("/bookings/:code", h.Get)
}

// RegisterAdmin registers operator endpoints under /v1/admin.
func RegisterAdmin(e *echo.Echo, d Deps) {
    h := d.Admin
    g := e.Group("/v1/admin", middleware.JWTAuth(d.JWTSecret), middleware.RequireRole(middleware.RoleAdmin))
    g.PATCH("/bookings/:id/status", h.UpdateBookingStatus)
    g.POST("/trips", h.ResolveTrip)
    g.POST("/trips/:id/recompute", h.RecomputeTrip)
    g.PATCH("/trips/:id/status", h.UpdateTripStatus)
}

// Register wires every route group.
func Register(e *echo.Echo, d Deps) {
    RegisterRoutes(e, d)
    RegisterPublic(e, d)
    RegisterCustomer(e, d)
    RegisterAdmin(e, d)
}
