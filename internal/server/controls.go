package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solana-swap-executor/internal/controls"
	"github.com/labstack/echo/v4"
)

// ControlsList returns every pause switch
func (h *Handlers) ControlsList(c echo.Context) error {
	if h.Controls == nil {
		return h.err(c, http.StatusServiceUnavailable, "controls are not configured", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Controls.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list controls", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// ControlsGet retrieves a pause switch by scope
// Returns 404 if it doesn't exist
func (h *Handlers) ControlsGet(c echo.Context) error {
	if h.Controls == nil {
		return h.err(c, http.StatusServiceUnavailable, "controls are not configured", nil)
	}
	scope := c.Param("scope")
	if err := controls.ValidateScope(scope); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid scope", map[string]any{"scope": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Controls.Get(ctx, scope)
	if err != nil {
		if errors.Is(err, controls.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "control not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get control", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// ControlsUpdate pauses or resumes a scope
func (h *Handlers) ControlsUpdate(c echo.Context) error {
	if h.Controls == nil {
		return h.err(c, http.StatusServiceUnavailable, "controls are not configured", nil)
	}
	scope := c.Param("scope")
	if err := controls.ValidateScope(scope); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid scope", map[string]any{"scope": "invalid format"})
	}
	var req ControlUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Controls.Set(ctx, scope, req.Paused, strings.TrimSpace(req.Reason))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to update control", nil)
	}
	h.logger().WithField("scope", scope).WithField("paused", out.Paused).Info("control updated")
	return c.JSON(http.StatusOK, out)
}

// ControlsDelete removes a pause switch
// Returns 204 No Content on successful deletion
func (h *Handlers) ControlsDelete(c echo.Context) error {
	if h.Controls == nil {
		return h.err(c, http.StatusServiceUnavailable, "controls are not configured", nil)
	}
	scope := c.Param("scope")
	if err := controls.ValidateScope(scope); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid scope", map[string]any{"scope": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Controls.Delete(ctx, scope); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete control", nil)
	}
	return c.NoContent(http.StatusNoContent)
}
