package swapengine

import (
	"context"
	"fmt"

	"github.com/aman-zulfiqar/solana-swap-executor/internal/jupiter"
	"github.com/gagliardetto/solana-go"
)

// PriorityFeePolicy is the fee instruction sent with every build request.
type PriorityFeePolicy struct {
	MaxLamports   uint64
	Global        bool
	PriorityLevel string
}

// DefaultPriorityFeePolicy caps the priority fee at 0.01 SOL at the
// "veryHigh" level, priced against local fee markets.
func DefaultPriorityFeePolicy() PriorityFeePolicy {
	return PriorityFeePolicy{
		MaxLamports:   10_000_000,
		Global:        false,
		PriorityLevel: "veryHigh",
	}
}

// JupiterBuilder is an InstructionBuilder backed by /swap-instructions.
type JupiterBuilder struct {
	client *jupiter.Client
	fee    PriorityFeePolicy
}

func NewJupiterBuilder(client *jupiter.Client, fee PriorityFeePolicy) *JupiterBuilder {
	return &JupiterBuilder{client: client, fee: fee}
}

func (b *JupiterBuilder) BuildInstructions(ctx context.Context, quote *Quote, signer solana.PublicKey) (*InstructionSet, error) {
	if quote == nil || len(quote.Route) == 0 {
		return nil, newError(KindInstructionBuildFailed, StageBuildInstructions, fmt.Errorf("quote has no route"))
	}

	wrap := true
	res, err := b.client.SwapInstructions(ctx, jupiter.SwapInstructionsRequest{
		QuoteResponse:           quote.Route,
		UserPublicKey:           signer.String(),
		WrapAndUnwrapSol:        &wrap,
		DynamicComputeUnitLimit: true,
		DynamicSlippage:         true,
		PrioritizationFeeLamports: &jupiter.PrioritizationFeeLamports{
			PriorityLevelWithMaxLamports: &jupiter.PriorityLevelWithMaxLamports{
				MaxLamports:   b.fee.MaxLamports,
				Global:        b.fee.Global,
				PriorityLevel: b.fee.PriorityLevel,
			},
		},
	})
	if err != nil {
		return nil, newError(KindInstructionBuildFailed, StageBuildInstructions, err)
	}

	set, err := instructionSetFromResponse(res)
	if err != nil {
		return nil, newError(KindInstructionBuildFailed, StageBuildInstructions, err)
	}
	set.Quote = quote
	return set, nil
}

// instructionSetFromResponse decodes the descriptors. The response's own
// compute budget instructions are dropped; the assembler prepends ours.
func instructionSetFromResponse(res *jupiter.SwapInstructionsResponse) (*InstructionSet, error) {
	set := &InstructionSet{}

	for i, desc := range res.SetupInstructions {
		ix, err := desc.ToSolana()
		if err != nil {
			return nil, fmt.Errorf("setup instruction %d: %w", i, err)
		}
		set.Setup = append(set.Setup, ix)
	}

	if res.SwapInstruction == nil {
		return nil, fmt.Errorf("missing swap instruction")
	}
	swapIx, err := res.SwapInstruction.ToSolana()
	if err != nil {
		return nil, fmt.Errorf("swap instruction: %w", err)
	}
	set.Swap = swapIx

	if res.CleanupInstruction != nil {
		cleanup, err := res.CleanupInstruction.ToSolana()
		if err != nil {
			return nil, fmt.Errorf("cleanup instruction: %w", err)
		}
		set.Cleanup = cleanup
	}

	for _, addr := range res.AddressLookupTableAddresses {
		pk, err := solana.PublicKeyFromBase58(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid lookup table address %q: %w", addr, err)
		}
		set.LookupTableAddresses = append(set.LookupTableAddresses, pk)
	}

	return set, nil
}
