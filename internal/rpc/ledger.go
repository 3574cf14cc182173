package rpc

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
)

// GetLatestBlockhash fetches the newest blockhash together with the last
// block height at which a transaction referencing it is still accepted.
func (c *Client) GetLatestBlockhash(ctx context.Context, commitment Commitment) (*LatestBlockhash, error) {
	params := []any{
		map[string]any{"commitment": string(commitment)},
	}

	var res contextValue[struct {
		Blockhash            string `json:"blockhash"`
		LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
	}]
	if err := c.CallResult(ctx, "getLatestBlockhash", params, &res); err != nil {
		return nil, err
	}

	hash, err := solana.HashFromBase58(res.Value.Blockhash)
	if err != nil {
		return nil, fmt.Errorf("invalid blockhash format: %w", err)
	}

	return &LatestBlockhash{
		Blockhash:            hash,
		LastValidBlockHeight: res.Value.LastValidBlockHeight,
	}, nil
}

// GetBlockHeight returns the current block height at the given commitment.
func (c *Client) GetBlockHeight(ctx context.Context, commitment Commitment) (uint64, error) {
	params := []any{
		map[string]any{"commitment": string(commitment)},
	}

	var height uint64
	if err := c.CallResult(ctx, "getBlockHeight", params, &height); err != nil {
		return 0, err
	}
	return height, nil
}

// GetMultipleAccounts fetches all keys in one request. The result is aligned
// with keys; accounts that do not exist are nil.
func (c *Client) GetMultipleAccounts(ctx context.Context, keys []solana.PublicKey, commitment Commitment) ([]*AccountInfo, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	addrs := make([]string, len(keys))
	for i, k := range keys {
		addrs[i] = k.String()
	}

	params := []any{
		addrs,
		map[string]any{
			"encoding":   "base64",
			"commitment": string(commitment),
		},
	}

	var res contextValue[[]*accountValue]
	if err := c.CallResult(ctx, "getMultipleAccounts", params, &res); err != nil {
		return nil, err
	}

	if len(res.Value) != len(keys) {
		return nil, fmt.Errorf("getMultipleAccounts: expected %d entries, got %d", len(keys), len(res.Value))
	}

	out := make([]*AccountInfo, len(keys))
	for i, v := range res.Value {
		if v == nil {
			continue
		}
		info := &AccountInfo{
			Lamports:   v.Lamports,
			Owner:      v.Owner,
			Executable: v.Executable,
		}
		if len(v.Data) > 0 && v.Data[0] != "" {
			data, err := base64.StdEncoding.DecodeString(v.Data[0])
			if err != nil {
				return nil, fmt.Errorf("getMultipleAccounts: account %s: invalid base64 data: %w", addrs[i], err)
			}
			info.Data = data
		}
		out[i] = info
	}

	return out, nil
}

// GetBalance returns the lamport balance of an account.
func (c *Client) GetBalance(ctx context.Context, account solana.PublicKey, commitment Commitment) (uint64, error) {
	params := []any{
		account.String(),
		map[string]any{"commitment": string(commitment)},
	}

	var res contextValue[uint64]
	if err := c.CallResult(ctx, "getBalance", params, &res); err != nil {
		return 0, err
	}
	return res.Value, nil
}

// GetTokenBalance sums the raw amounts of every token account owner holds
// for mint. An owner with no accounts for the mint has a zero balance.
func (c *Client) GetTokenBalance(ctx context.Context, owner, mint solana.PublicKey, commitment Commitment) (uint64, error) {
	params := []any{
		owner.String(),
		map[string]any{"mint": mint.String()},
		map[string]any{
			"encoding":   "jsonParsed",
			"commitment": string(commitment),
		},
	}

	var res contextValue[[]parsedTokenAccount]
	if err := c.CallResult(ctx, "getTokenAccountsByOwner", params, &res); err != nil {
		return 0, err
	}

	var total uint64
	for _, acc := range res.Value {
		raw := acc.Account.Data.Parsed.Info.TokenAmount.Amount
		if raw == "" {
			continue
		}
		amt, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("token account %s: invalid amount %q: %w", acc.Pubkey, raw, err)
		}
		total += amt
	}
	return total, nil
}

// SendTransaction broadcasts a serialized transaction and returns the
// signature the node reports.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction, opts SendOptions) (solana.Signature, error) {
	txBytes, err := tx.MarshalBinary()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to serialize transaction: %w", err)
	}

	cfg := map[string]any{
		"encoding":      "base64",
		"skipPreflight": opts.SkipPreflight,
	}
	if opts.PreflightCommitment != "" {
		cfg["preflightCommitment"] = string(opts.PreflightCommitment)
	}
	if opts.MaxRetries != nil {
		cfg["maxRetries"] = *opts.MaxRetries
	}

	params := []any{
		base64.StdEncoding.EncodeToString(txBytes),
		cfg,
	}

	var sig string
	if err := c.CallResult(ctx, "sendTransaction", params, &sig); err != nil {
		return solana.Signature{}, err
	}

	out, err := solana.SignatureFromBase58(sig)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sendTransaction: invalid signature %q: %w", sig, err)
	}
	return out, nil
}

// GetSignatureStatuses looks up the status of each signature, searching
// transaction history so that slow confirmations are still found.
func (c *Client) GetSignatureStatuses(ctx context.Context, sigs ...solana.Signature) ([]*SignatureStatus, error) {
	encoded := make([]string, len(sigs))
	for i, s := range sigs {
		encoded[i] = s.String()
	}

	params := []any{
		encoded,
		map[string]any{"searchTransactionHistory": true},
	}

	var res contextValue[[]*SignatureStatus]
	if err := c.CallResult(ctx, "getSignatureStatuses", params, &res); err != nil {
		return nil, err
	}
	return res.Value, nil
}
