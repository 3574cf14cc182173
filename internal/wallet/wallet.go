package wallet

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	projectrpc "github.com/aman-zulfiqar/solana-swap-executor/internal/rpc"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// SignMode selects whether the wallet signs on request or only inside
// SendTransaction.
type SignMode string

const (
	SignModeSign     SignMode = "sign"
	SignModeSendOnly SignMode = "send-only"
)

var nativeMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

type WalletConfig struct {
	RPCURL       string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// RPC, when set, is used instead of dialing RPCURL.
	RPC *projectrpc.Client

	PrivateKey string // base58-encoded 64-byte key OR solana-keygen JSON array
	SignMode   SignMode

	DefaultCommitment   projectrpc.Commitment // e.g. "confirmed"
	SkipPreflight       bool
	PreflightCommitment projectrpc.Commitment // e.g. "processed"
}

type Wallet struct {
	cfg  WalletConfig
	rpc  *projectrpc.Client
	priv solana.PrivateKey
	pub  solana.PublicKey
}

func NewWallet(cfg WalletConfig) (*Wallet, error) {
	if cfg.RPC == nil && cfg.RPCURL == "" {
		return nil, fmt.Errorf("wallet: RPCURL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 1 * time.Second
	}
	if cfg.DefaultCommitment == "" {
		cfg.DefaultCommitment = projectrpc.CommitmentConfirmed
	}
	if cfg.PreflightCommitment == "" {
		cfg.PreflightCommitment = projectrpc.CommitmentProcessed
	}
	if cfg.SignMode == "" {
		cfg.SignMode = SignModeSign
	}
	if cfg.SignMode != SignModeSign && cfg.SignMode != SignModeSendOnly {
		return nil, fmt.Errorf("wallet: unknown sign mode %q", cfg.SignMode)
	}
	if strings.TrimSpace(cfg.PrivateKey) == "" {
		return nil, fmt.Errorf("wallet: PrivateKey is required")
	}

	priv, err := parsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	rpcClient := cfg.RPC
	if rpcClient == nil {
		rpcClient = projectrpc.NewClient(projectrpc.ClientConfig{
			BaseURL:      cfg.RPCURL,
			Timeout:      cfg.Timeout,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
		})
	}

	return &Wallet{
		cfg:  cfg,
		rpc:  rpcClient,
		priv: priv,
		pub:  priv.PublicKey(),
	}, nil
}

func (w *Wallet) Address() string             { return w.pub.String() }
func (w *Wallet) PublicKey() solana.PublicKey { return w.pub }
func (w *Wallet) Close() error                { return nil }

func (w *Wallet) GetBalanceSOL(ctx context.Context) (float64, error) {
	lamports, err := w.rpc.GetBalance(ctx, w.pub, w.cfg.DefaultCommitment)
	if err != nil {
		return 0, fmt.Errorf("getBalance failed: %w", err)
	}
	return float64(lamports) / 1e9, nil
}

// SpendableBalance returns owner's balance of mint in its smallest unit.
// Native SOL is read as lamports; any other mint sums owner's token
// accounts.
func (w *Wallet) SpendableBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error) {
	if mint.Equals(nativeMint) {
		return w.rpc.GetBalance(ctx, owner, w.cfg.DefaultCommitment)
	}
	return w.rpc.GetTokenBalance(ctx, owner, mint, w.cfg.DefaultCommitment)
}

func parsePrivateKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("wallet: invalid JSON private key: %w", err)
		}
		b := make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("wallet: invalid byte at %d: %d", i, v)
			}
			b[i] = byte(v)
		}
		if len(b) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("wallet: expected %d bytes, got %d", ed25519.PrivateKeySize, len(b))
		}
		return solana.PrivateKey(ed25519.PrivateKey(b)), nil
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid base58 private key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("wallet: expected %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return solana.PrivateKey(ed25519.PrivateKey(raw)), nil
}
