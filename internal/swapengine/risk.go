package swapengine

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// RiskConfig defines quote-time risk limits
type RiskConfig struct {
	// Price impact limit in bps (e.g. 500 = 5%); 0 disables the check
	MaxPriceImpactBps uint16

	// Token whitelist as symbols or mints (empty = allow all)
	AllowedTokens []string
}

// DefaultRiskConfig returns conservative risk settings
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		MaxPriceImpactBps: 500, // 5% max price impact
	}
}

// RiskGuard is a QuoteService that refuses quotes outside the risk limits.
// A non-whitelisted token is a fatal request error; excessive price impact
// is reported as an unavailable quote so the next attempt re-prices.
type RiskGuard struct {
	next    QuoteService
	config  RiskConfig
	allowed map[solana.PublicKey]struct{}
}

// NewRiskGuard wraps next. Whitelist entries that are neither a known
// symbol nor a valid mint are rejected.
func NewRiskGuard(next QuoteService, config RiskConfig) (*RiskGuard, error) {
	g := &RiskGuard{next: next, config: config}
	if len(config.AllowedTokens) == 0 {
		return g, nil
	}

	g.allowed = make(map[solana.PublicKey]struct{}, len(config.AllowedTokens))
	for _, tok := range config.AllowedTokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		mint, _, _, err := resolveToken(tok)
		if err != nil {
			return nil, fmt.Errorf("allowed tokens: %w", err)
		}
		g.allowed[mint] = struct{}{}
	}
	return g, nil
}

func (g *RiskGuard) GetQuote(ctx context.Context, params QuoteParams) (*Quote, error) {
	if !g.isTokenAllowed(params.InputMint) || !g.isTokenAllowed(params.OutputMint) {
		return nil, newError(KindInvalidRequest, StageQuoteFetch,
			fmt.Errorf("token not whitelisted: %s or %s", g.tokenSymbol(params.InputMint), g.tokenSymbol(params.OutputMint)))
	}

	quote, err := g.next.GetQuote(ctx, params)
	if err != nil || quote == nil {
		return quote, err
	}

	if g.config.MaxPriceImpactBps > 0 && quote.PriceImpactPct*10000 > float64(g.config.MaxPriceImpactBps) {
		return nil, newError(KindQuoteUnavailable, StageQuoteFetch,
			fmt.Errorf("price impact %.2f%% exceeds max %.2f%%",
				quote.PriceImpactPct*100, float64(g.config.MaxPriceImpactBps)/100))
	}
	return quote, nil
}

// isTokenAllowed checks if a mint is in the whitelist
func (g *RiskGuard) isTokenAllowed(mint solana.PublicKey) bool {
	if g.allowed == nil {
		return true // No whitelist = allow all
	}
	_, ok := g.allowed[mint]
	return ok
}

func (g *RiskGuard) tokenSymbol(mint solana.PublicKey) string {
	if sym, ok := symbolForMint(mint); ok {
		return sym
	}
	// fallback: keep it deterministic for logs/debug
	return mint.String()
}
