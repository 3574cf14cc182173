package wallet

import (
	"context"
	"errors"
	"fmt"

	projectrpc "github.com/aman-zulfiqar/solana-swap-executor/internal/rpc"
	"github.com/gagliardetto/solana-go"
)

// ErrSigningDisabled is returned by SignTransaction in send-only mode.
var ErrSigningDisabled = errors.New("wallet: standalone signing is disabled, use sign-and-send")

// SendOptions returns the sendTransaction settings derived from the config.
func (w *Wallet) SendOptions() projectrpc.SendOptions {
	// The node must not rebroadcast on its own; retries are driven by the
	// caller with a fresh blockhash.
	maxRetries := uint(0)
	return projectrpc.SendOptions{
		SkipPreflight:       w.cfg.SkipPreflight,
		PreflightCommitment: w.cfg.PreflightCommitment,
		MaxRetries:          &maxRetries,
	}
}

// SignTransaction returns a signed copy of tx; tx itself is not modified.
func (w *Wallet) SignTransaction(_ context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	if w.cfg.SignMode == SignModeSendOnly {
		return nil, ErrSigningDisabled
	}
	return w.signCopy(tx)
}

// SendTransaction broadcasts tx, signing it first when it carries no
// signatures.
func (w *Wallet) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if len(tx.Signatures) == 0 {
		signed, err := w.signCopy(tx)
		if err != nil {
			return solana.Signature{}, err
		}
		tx = signed
	}

	sig, err := w.rpc.SendTransaction(ctx, tx, w.SendOptions())
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sendTransaction: %w", err)
	}
	return sig, nil
}

func (w *Wallet) signCopy(tx *solana.Transaction) (*solana.Transaction, error) {
	if tx == nil {
		return nil, fmt.Errorf("wallet: nil transaction")
	}
	if tx.Message.Header.NumRequiredSignatures != 1 {
		return nil, fmt.Errorf("wallet: transaction requires %d signers, only the fee payer is supported",
			tx.Message.Header.NumRequiredSignatures)
	}
	if len(tx.Message.AccountKeys) == 0 || !tx.Message.AccountKeys[0].Equals(w.pub) {
		return nil, fmt.Errorf("wallet: fee payer is not %s", w.pub)
	}

	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("wallet: failed to serialize message: %w", err)
	}

	sig, err := w.priv.Sign(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	return &solana.Transaction{
		Signatures: []solana.Signature{sig},
		Message:    tx.Message,
	}, nil
}
