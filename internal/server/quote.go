package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solana-swap-executor/internal/swapengine"
	"github.com/labstack/echo/v4"
)

// Quote prices a swap without executing it.
// Query: in, out (symbol or mint), amount (human units) or rawAmount, slippageBps.
func (h *Handlers) Quote(c echo.Context) error {
	intent := &swapengine.SwapIntent{
		InputToken:  strings.TrimSpace(c.QueryParam("in")),
		OutputToken: strings.TrimSpace(c.QueryParam("out")),
	}
	if intent.InputToken == "" {
		return h.err(c, http.StatusBadRequest, "invalid in", map[string]any{"in": "required"})
	}
	if intent.OutputToken == "" {
		return h.err(c, http.StatusBadRequest, "invalid out", map[string]any{"out": "required"})
	}

	if v := strings.TrimSpace(c.QueryParam("rawAmount")); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil || n == 0 {
			return h.err(c, http.StatusBadRequest, "invalid rawAmount", map[string]any{"rawAmount": "must be a positive uint64"})
		}
		intent.RawAmount = n
	} else {
		f, err := strconv.ParseFloat(strings.TrimSpace(c.QueryParam("amount")), 64)
		if err != nil || f <= 0 {
			return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "must be a positive number"})
		}
		intent.Amount = f
	}

	if v := strings.TrimSpace(c.QueryParam("slippageBps")); v != "" {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid slippageBps", map[string]any{"slippageBps": "must be uint16"})
		}
		tmp := uint16(n)
		intent.SlippageBps = &tmp
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	q, err := h.Swaps.GetQuote(ctx, intent)
	if err != nil {
		if errors.Is(err, swapengine.ErrInvalidRequest) {
			return h.err(c, http.StatusBadRequest, "invalid quote request", map[string]any{"err": err.Error()})
		}
		return h.err(c, http.StatusBadGateway, "quote failed", map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, quoteResponse(q))
}

func quoteResponse(q *swapengine.Quote) *QuoteResponse {
	if q == nil {
		return nil
	}
	return &QuoteResponse{
		InputMint:            q.InputMint.String(),
		OutputMint:           q.OutputMint.String(),
		InAmount:             q.InAmount,
		OutAmount:            q.OutAmount,
		OtherAmountThreshold: q.OtherAmountThreshold,
		PriceImpactPct:       q.PriceImpactPct,
		SlippageBps:          q.SlippageBps,
		RouteID:              q.RouteID,
	}
}
