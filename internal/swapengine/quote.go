package swapengine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solana-swap-executor/internal/jupiter"
	"github.com/gagliardetto/solana-go"
)

// JupiterQuoter is a QuoteService backed by the Jupiter quote endpoint.
type JupiterQuoter struct {
	client *jupiter.Client
}

func NewJupiterQuoter(client *jupiter.Client) *JupiterQuoter {
	return &JupiterQuoter{client: client}
}

func (q *JupiterQuoter) GetQuote(ctx context.Context, params QuoteParams) (*Quote, error) {
	if params.Amount == 0 {
		return nil, newError(KindInvalidRequest, StageQuoteFetch, fmt.Errorf("amount must be > 0"))
	}

	slippage := params.SlippageBps
	restrict := true
	res, err := q.client.Quote(ctx, jupiter.QuoteRequest{
		InputMint:                  params.InputMint.String(),
		OutputMint:                 params.OutputMint.String(),
		Amount:                     strconv.FormatUint(params.Amount, 10),
		SlippageBps:                &slippage,
		RestrictIntermediateTokens: &restrict,
	})
	if err != nil {
		return nil, newError(KindQuoteUnavailable, StageQuoteFetch, err)
	}

	quote, err := quoteFromResponse(res)
	if err != nil {
		return nil, newError(KindQuoteUnavailable, StageQuoteFetch, err)
	}
	return quote, nil
}

func quoteFromResponse(res *jupiter.QuoteResponse) (*Quote, error) {
	inMint, err := solana.PublicKeyFromBase58(res.InputMint)
	if err != nil {
		return nil, fmt.Errorf("invalid inputMint %q: %w", res.InputMint, err)
	}
	outMint, err := solana.PublicKeyFromBase58(res.OutputMint)
	if err != nil {
		return nil, fmt.Errorf("invalid outputMint %q: %w", res.OutputMint, err)
	}

	inAmount, err := strconv.ParseUint(res.InAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid inAmount %q: %w", res.InAmount, err)
	}
	outAmount, err := strconv.ParseUint(res.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid outAmount %q: %w", res.OutAmount, err)
	}

	var threshold uint64
	if res.OtherAmountThreshold != "" {
		threshold, err = strconv.ParseUint(res.OtherAmountThreshold, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid otherAmountThreshold %q: %w", res.OtherAmountThreshold, err)
		}
	}

	var impact float64
	if res.PriceImpactPct != "" {
		impact, _ = strconv.ParseFloat(res.PriceImpactPct, 64)
	}

	return &Quote{
		InputMint:            inMint,
		OutputMint:           outMint,
		InAmount:             inAmount,
		OutAmount:            outAmount,
		OtherAmountThreshold: threshold,
		PriceImpactPct:       impact,
		SlippageBps:          res.SlippageBps,
		RouteID:              routeID(res),
		Route:                res.Raw,
		FetchedAt:            time.Now(),
	}, nil
}

// routeID identifies a route by its hops and the slot it was priced at.
func routeID(res *jupiter.QuoteResponse) string {
	hops := make([]string, 0, len(res.RoutePlan))
	for _, step := range res.RoutePlan {
		hop := step.SwapInfo.AmmKey
		if step.SwapInfo.Label != "" {
			hop = step.SwapInfo.Label + ":" + hop
		}
		hops = append(hops, hop)
	}
	return fmt.Sprintf("%s@%d", strings.Join(hops, ">"), res.ContextSlot)
}
