package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aman-zulfiqar/solana-swap-executor/internal/metrics"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	// Every error leaves as an ErrorResponse
	e.HTTPErrorHandler = JSONErrorHandler(h.logger())

	// Apply global middleware
	e.Use(CountRequests)      // Prometheus request counter
	e.Use(SetJSONContentType) // Ensure all responses are JSON
	e.Use(SetNoCacheHeaders)  // Prevent caching of API responses

	// Optional API key authentication; health and metrics stay open
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Skipper: func(c echo.Context) bool {
				p := c.Path()
				return p == "/v1/health" || p == "/metrics"
			},
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API v1 routes
	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)            // Health check endpoint
	v1.GET("/quote", h.Quote)              // Price a swap without executing
	v1.GET("/swaps/recent", h.RecentSwaps) // Recent swap records

	// Swap execution with rate limiting
	swapRate := cfg.SwapRateLimit
	if swapRate <= 0 {
		swapRate = 0.5
	}
	swaps := v1.Group("/swaps")
	swaps.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(swapRate),
		Burst:     2,
		ExpiresIn: 2 * time.Minute,
	})))
	swaps.POST("", h.ExecuteSwap)

	// Pause switches
	ctl := v1.Group("/controls")
	ctl.GET("", h.ControlsList)
	ctl.GET("/:scope", h.ControlsGet)
	ctl.PUT("/:scope", h.ControlsUpdate)
	ctl.DELETE("/:scope", h.ControlsDelete)

	// Catch-all route for 404 responses
	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}

// CountRequests records every response in metrics.HTTPRequests, keyed by
// route template rather than raw path.
func CountRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		status := c.Response().Status
		if err != nil {
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
		}
		metrics.HTTPRequests.WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(status)).Inc()
		return err
	}
}
