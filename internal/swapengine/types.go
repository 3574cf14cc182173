package swapengine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

// SwapRequest is the immutable input of one Execute call.
type SwapRequest struct {
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	Amount      uint64 // smallest unit of InputMint
	Signer      solana.PublicKey
	SlippageBps uint16
}

func (r SwapRequest) validate() error {
	if r.InputMint.IsZero() || r.OutputMint.IsZero() {
		return fmt.Errorf("input and output mint are required")
	}
	if r.InputMint.Equals(r.OutputMint) {
		return fmt.Errorf("input and output mint must differ")
	}
	if r.Amount == 0 {
		return fmt.Errorf("amount must be > 0")
	}
	if r.Signer.IsZero() {
		return fmt.Errorf("signer is required")
	}
	if r.SlippageBps > 10_000 {
		return fmt.Errorf("slippage %d bps exceeds 10000", r.SlippageBps)
	}
	return nil
}

// QuoteParams is what a quote is requested for.
type QuoteParams struct {
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	Amount      uint64
	SlippageBps uint16
}

// Quote is a priced route. Route is opaque to the engine and is handed back
// verbatim to the instruction builder.
type Quote struct {
	InputMint            solana.PublicKey
	OutputMint           solana.PublicKey
	InAmount             uint64
	OutAmount            uint64
	OtherAmountThreshold uint64
	PriceImpactPct       float64
	SlippageBps          uint16
	RouteID              string
	Route                json.RawMessage
	FetchedAt            time.Time
}

// InstructionSet is the instruction material derived from exactly one Quote.
type InstructionSet struct {
	Setup                []solana.Instruction
	Swap                 solana.Instruction
	Cleanup              solana.Instruction // nil when absent
	LookupTableAddresses []solana.PublicKey

	// Quote is the quote the set was built from.
	Quote *Quote
}

// LookupTableAccount is a resolved address lookup table.
type LookupTableAccount struct {
	Key       solana.PublicKey
	Addresses solana.PublicKeySlice
}

// BlockhashLease bounds the validity window of a transaction.
type BlockhashLease struct {
	Blockhash       solana.Hash
	LastValidHeight uint64
	FetchedAt       time.Time
}

// ComputeBudget is the fee/compute policy prepended to every transaction.
type ComputeBudget struct {
	UnitLimit              uint32
	UnitPriceMicroLamports uint64
}

// DefaultComputeBudget is 400k units at 1,000,000 micro-lamports per unit.
func DefaultComputeBudget() ComputeBudget {
	return ComputeBudget{
		UnitLimit:              400_000,
		UnitPriceMicroLamports: 1_000_000,
	}
}

// Envelope is a compiled versioned transaction bound to one lease and one
// fee payer. It belongs to a single attempt.
type Envelope struct {
	Tx       *solana.Transaction
	Lease    BlockhashLease
	FeePayer solana.PublicKey
}

// ConfirmationStatus is the terminal state of a confirmation wait.
type ConfirmationStatus int

const (
	ConfirmationConfirmed ConfirmationStatus = iota
	ConfirmationOnChainError
	ConfirmationTimedOut
	ConfirmationExpired
)

func (s ConfirmationStatus) String() string {
	switch s {
	case ConfirmationConfirmed:
		return "confirmed"
	case ConfirmationOnChainError:
		return "on_chain_error"
	case ConfirmationTimedOut:
		return "timed_out"
	case ConfirmationExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// ConfirmationResult is what the watcher observed for one signature.
type ConfirmationResult struct {
	Status    ConfirmationStatus
	Signature solana.Signature
	Slot      uint64
	// Err is the raw on-chain error payload when Status is
	// ConfirmationOnChainError.
	Err interface{}
}

// Transition records one state change of an execution.
type Transition struct {
	Attempt int
	Stage   Stage
	At      time.Time
	Err     error
}

// SwapResult is returned by Execute for both outcomes.
type SwapResult struct {
	ExecutionID string
	Success     bool
	Signature   solana.Signature
	ExplorerURL string
	Attempts    int
	Quote       *Quote
	Error       string
	Category    Category
	Duration    time.Duration
	Trace       []Transition
}

// TokenDecimals maps token symbols to their decimal places
var TokenDecimals = map[string]uint8{
	"SOL":  9,
	"USDC": 6,
	"USDT": 6,
	"JUP":  6,
	"BONK": 5,
	"MSOL": 9,
	"RAY":  6,
}

// TokenMints maps token symbols to their mint addresses
var TokenMints = map[string]string{
	"SOL":  "So11111111111111111111111111111111111111112",
	"USDC": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
	"USDT": "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB",
	"JUP":  "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN",
	"BONK": "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
	"MSOL": "mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So",
	"RAY":  "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R",
}

// WrappedSOLMint is the mint used for native SOL.
var WrappedSOLMint = solana.MustPublicKeyFromBase58(TokenMints["SOL"])
