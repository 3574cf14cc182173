package swapengine

import (
	"context"

	"github.com/aman-zulfiqar/solana-swap-executor/internal/models"
	"github.com/aman-zulfiqar/solana-swap-executor/internal/rpc"
	"github.com/gagliardetto/solana-go"
)

// QuoteService prices a swap. Implementations must not retry internally.
type QuoteService interface {
	GetQuote(ctx context.Context, params QuoteParams) (*Quote, error)
}

// InstructionBuilder turns a quote into executable instructions for signer.
type InstructionBuilder interface {
	BuildInstructions(ctx context.Context, quote *Quote, signer solana.PublicKey) (*InstructionSet, error)
}

// LookupTableResolver fetches lookup table contents.
type LookupTableResolver interface {
	ResolveLookupTables(ctx context.Context, addresses []solana.PublicKey) ([]LookupTableAccount, error)
}

// Ledger is the read side of the chain the engine needs for leases.
type Ledger interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.Commitment) (*rpc.LatestBlockhash, error)
	GetBlockHeight(ctx context.Context, commitment rpc.Commitment) (uint64, error)
}

// Signer signs a transaction without broadcasting it. The input must not be
// mutated; a signed copy is returned.
type Signer interface {
	SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error)
}

// Submitter broadcasts a transaction, signing it first when it carries no
// signatures.
type Submitter interface {
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// SignatureStatusSource reports signature statuses.
type SignatureStatusSource interface {
	GetSignatureStatuses(ctx context.Context, sigs ...solana.Signature) ([]*rpc.SignatureStatus, error)
	GetBlockHeight(ctx context.Context, commitment rpc.Commitment) (uint64, error)
}

// BalanceSource reports the spendable balance of owner in mint's smallest
// unit.
type BalanceSource interface {
	SpendableBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error)
}

// PauseChecker reports whether any of the given scopes is paused, and why.
type PauseChecker interface {
	IsPaused(ctx context.Context, scopes ...string) (bool, string, error)
}

// Recorder receives the terminal record of every execution.
type Recorder interface {
	RecordSwap(ctx context.Context, rec *models.SwapRecord) error
}

// Confirmer waits for a submitted signature's terminal status.
type Confirmer interface {
	Confirm(ctx context.Context, sig solana.Signature, lease BlockhashLease) (*ConfirmationResult, error)
}
