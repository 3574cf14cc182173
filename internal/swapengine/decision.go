package swapengine

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

// SwapIntent is a human-facing swap order: token symbols or mint addresses
// and a decimal amount.
type SwapIntent struct {
	InputToken  string  `json:"input_token"`
	OutputToken string  `json:"output_token"`
	Amount      float64 `json:"amount"`

	// RawAmount, when set, is used as-is instead of Amount and allows
	// mints with unknown decimals.
	RawAmount uint64 `json:"raw_amount,omitempty"`

	SlippageBps *uint16   `json:"slippage_bps,omitempty"`
	RequestedAt time.Time `json:"requested_at,omitempty"`
}

// IntentPolicy bounds what an intent may ask for.
type IntentPolicy struct {
	DefaultSlippageBps uint16
	MaxSlippageBps     uint16
}

func DefaultIntentPolicy() IntentPolicy {
	return IntentPolicy{
		DefaultSlippageBps: 50,
		MaxSlippageBps:     1000,
	}
}

type DecisionEngine struct {
	policy IntentPolicy
}

func NewDecisionEngine(policy IntentPolicy) *DecisionEngine {
	if policy.MaxSlippageBps == 0 {
		policy.MaxSlippageBps = DefaultIntentPolicy().MaxSlippageBps
	}
	return &DecisionEngine{policy: policy}
}

func (de *DecisionEngine) ValidateIntent(intent *SwapIntent) error {
	if intent == nil {
		return fmt.Errorf("intent is nil")
	}
	if intent.InputToken == "" || intent.OutputToken == "" {
		return fmt.Errorf("input/output token required")
	}
	if intent.RawAmount == 0 && intent.Amount <= 0 {
		return fmt.Errorf("amount must be > 0")
	}
	if intent.SlippageBps != nil && *intent.SlippageBps > de.policy.MaxSlippageBps {
		return fmt.Errorf("slippage %d bps exceeds max %d", *intent.SlippageBps, de.policy.MaxSlippageBps)
	}
	return nil
}

func (de *DecisionEngine) EnrichIntent(intent *SwapIntent) {
	if intent.RequestedAt.IsZero() {
		intent.RequestedAt = time.Now()
	}
	if intent.SlippageBps == nil {
		v := de.policy.DefaultSlippageBps
		intent.SlippageBps = &v
	}
}

// ParseIntent resolves an intent into a SwapRequest for signer.
func (de *DecisionEngine) ParseIntent(intent *SwapIntent, signer solana.PublicKey) (SwapRequest, error) {
	if err := de.ValidateIntent(intent); err != nil {
		return SwapRequest{}, err
	}
	de.EnrichIntent(intent)

	inMint, inDecimals, inKnown, err := resolveToken(intent.InputToken)
	if err != nil {
		return SwapRequest{}, fmt.Errorf("input token: %w", err)
	}
	outMint, _, _, err := resolveToken(intent.OutputToken)
	if err != nil {
		return SwapRequest{}, fmt.Errorf("output token: %w", err)
	}
	if inMint.Equals(outMint) {
		return SwapRequest{}, fmt.Errorf("input and output token must differ")
	}

	amount := intent.RawAmount
	if amount == 0 {
		if !inKnown {
			return SwapRequest{}, fmt.Errorf("decimals unknown for %s, use raw_amount", inMint)
		}
		amount = toRawAmount(intent.Amount, inDecimals)
		if amount == 0 {
			return SwapRequest{}, fmt.Errorf("amount %v rounds to zero", intent.Amount)
		}
	}

	return SwapRequest{
		InputMint:   inMint,
		OutputMint:  outMint,
		Amount:      amount,
		Signer:      signer,
		SlippageBps: *intent.SlippageBps,
	}, nil
}

// resolveToken accepts a known symbol (case-insensitive) or a base58 mint.
func resolveToken(token string) (solana.PublicKey, uint8, bool, error) {
	sym := strings.ToUpper(strings.TrimSpace(token))
	if mint, ok := TokenMints[sym]; ok {
		return solana.MustPublicKeyFromBase58(mint), TokenDecimals[sym], true, nil
	}

	pk, err := solana.PublicKeyFromBase58(strings.TrimSpace(token))
	if err != nil {
		return solana.PublicKey{}, 0, false, fmt.Errorf("unknown token %q", token)
	}
	if sym, ok := symbolForMint(pk); ok {
		return pk, TokenDecimals[sym], true, nil
	}
	return pk, 0, false, nil
}

func symbolForMint(mint solana.PublicKey) (string, bool) {
	m := mint.String()
	for sym, mintStr := range TokenMints {
		if mintStr == m {
			return sym, true
		}
	}
	return "", false
}

func toRawAmount(amount float64, decimals uint8) uint64 {
	if amount <= 0 {
		return 0
	}
	mul := math.Pow10(int(decimals))
	return uint64(math.Round(amount * mul))
}
