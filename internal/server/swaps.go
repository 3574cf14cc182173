package server

import (
	"net/http"
	"time"

	"github.com/aman-zulfiqar/solana-swap-executor/internal/swapengine"
	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// ExecuteSwap runs a swap intent to completion and reports the outcome.
// Failed swaps that produced a result are answered with the result body and
// a status derived from the failure kind.
func (h *Handlers) ExecuteSwap(c echo.Context) error {
	var intent swapengine.SwapIntent
	if err := c.Bind(&intent); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	timeout := h.SwapTimeout
	if timeout <= 0 {
		timeout = 4 * time.Minute
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), timeout)
	defer cancel()

	res, err := h.Swaps.ExecuteIntent(ctx, &intent)
	if res == nil {
		if err == nil {
			return h.err(c, http.StatusInternalServerError, "swap returned no result", nil)
		}
		return h.err(c, statusForKind(swapengine.KindOf(err)), "swap rejected", map[string]any{"err": err.Error()})
	}

	out := swapResponse(res)
	if err != nil {
		out.ErrorKind = swapengine.KindOf(err).String()
		out.Message = swapengine.HumanMessage(err)
		h.logger().WithFields(logrus.Fields{
			"execution_id": res.ExecutionID,
			"kind":         out.ErrorKind,
		}).WithError(err).Warn("swap failed")
		return c.JSON(statusForKind(swapengine.KindOf(err)), out)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handlers) logger() *logrus.Logger {
	if h.Logger == nil {
		return logrus.StandardLogger()
	}
	return h.Logger
}

func swapResponse(res *swapengine.SwapResult) *SwapResponse {
	out := &SwapResponse{
		ExecutionID: res.ExecutionID,
		Success:     res.Success,
		ExplorerURL: res.ExplorerURL,
		Attempts:    res.Attempts,
		Quote:       quoteResponse(res.Quote),
		Error:       res.Error,
		Category:    string(res.Category),
		DurationMs:  res.Duration.Milliseconds(),
	}
	if res.Signature != (solana.Signature{}) {
		out.Signature = res.Signature.String()
	}
	return out
}

func statusForKind(k swapengine.Kind) int {
	switch k {
	case swapengine.KindInvalidRequest:
		return http.StatusBadRequest
	case swapengine.KindInsufficientBalance, swapengine.KindOnChainExecutionFailed:
		return http.StatusUnprocessableEntity
	case swapengine.KindSwapsPaused:
		return http.StatusServiceUnavailable
	case swapengine.KindCancelled, swapengine.KindConfirmationTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
