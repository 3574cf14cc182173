package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/aman-zulfiqar/solana-swap-executor/internal/controls"
	"github.com/aman-zulfiqar/solana-swap-executor/internal/models"
	"github.com/aman-zulfiqar/solana-swap-executor/internal/swapengine"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// SwapService executes and prices swap intents.
type SwapService interface {
	ExecuteIntent(ctx context.Context, intent *swapengine.SwapIntent) (*swapengine.SwapResult, error)
	GetQuote(ctx context.Context, intent *swapengine.SwapIntent) (*swapengine.Quote, error)
}

// RecentSwaps lists the newest swap records.
type RecentSwaps interface {
	GetRecentSwaps(ctx context.Context, limit int64) ([]*models.SwapRecord, error)
}

// ControlStore manages pause switches.
type ControlStore interface {
	Set(ctx context.Context, scope string, paused bool, reason string) (*controls.Control, error)
	Get(ctx context.Context, scope string) (*controls.Control, error)
	List(ctx context.Context) ([]*controls.Control, error)
	Delete(ctx context.Context, scope string) error
}

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Swaps    SwapService    // swap engine
	Recent   RecentSwaps    // Redis-backed recent swaps (optional)
	Controls ControlStore   // Redis-backed pause switches (optional)
	Wallet   string         // engine wallet address, reported by /health
	DevMode  bool           // Enable detailed error responses in development
	Logger   *logrus.Logger // Structured logger

	// SwapTimeout bounds one POST /v1/swaps call.
	SwapTimeout time.Duration
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health returns a simple health check endpoint
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true, Wallet: h.Wallet})
}

// RecentSwaps returns the most recent swap records with optional limit parameter
// Accepts limit query parameter (default: 100, range: 1-200)
func (h *Handlers) RecentSwaps(c echo.Context) error {
	if h.Recent == nil {
		return h.err(c, http.StatusServiceUnavailable, "swap history is not configured", nil)
	}

	limitStr := c.QueryParam("limit")
	limit := 100
	if limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > 200 {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Recent.GetRecentSwaps(ctx, int64(limit))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get swaps", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}
