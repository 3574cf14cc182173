package rpc

import (
	"encoding/json"

	"github.com/gagliardetto/solana-go"
)

// RPCError represents a JSON-RPC error response
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// Commitment is the ledger confirmation level a read or a wait targets.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// Satisfies reports whether an observed confirmation status meets c.
func (c Commitment) Satisfies(status string) bool {
	switch c {
	case CommitmentProcessed:
		return status != ""
	case CommitmentConfirmed:
		return status == "confirmed" || status == "finalized"
	case CommitmentFinalized:
		return status == "finalized"
	default:
		return status != ""
	}
}

// AtLeastConfirmed raises processed (or unset) to confirmed. Blockhashes read
// at processed may belong to a fork that is later dropped.
func (c Commitment) AtLeastConfirmed() Commitment {
	if c == CommitmentFinalized {
		return c
	}
	return CommitmentConfirmed
}

// LatestBlockhash is the result of getLatestBlockhash.
type LatestBlockhash struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
}

// AccountInfo is one entry of getMultipleAccounts with base64 data decoded.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Executable bool
	Data       []byte
}

// SignatureStatus is one entry of getSignatureStatuses. A nil entry means the
// signature has not been seen by the node.
type SignatureStatus struct {
	Slot               uint64      `json:"slot"`
	Confirmations      *uint64     `json:"confirmations"`
	Err                interface{} `json:"err"`
	ConfirmationStatus string      `json:"confirmationStatus"`
}

// SendOptions configures sendTransaction
type SendOptions struct {
	SkipPreflight       bool
	PreflightCommitment Commitment
	MaxRetries          *uint
}

type contextValue[T any] struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value T `json:"value"`
}

type accountValue struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Executable bool     `json:"executable"`
	Data       []string `json:"data"`
}

// TokenAmount represents token balance information
type TokenAmount struct {
	Amount         string  `json:"amount"`
	Decimals       int     `json:"decimals"`
	UIAmountString string  `json:"uiAmountString"`
	UIAmount       float64 `json:"uiAmount"`
}

type parsedTokenAccount struct {
	Pubkey  string `json:"pubkey"`
	Account struct {
		Data struct {
			Parsed struct {
				Info struct {
					Mint        string      `json:"mint"`
					Owner       string      `json:"owner"`
					TokenAmount TokenAmount `json:"tokenAmount"`
				} `json:"info"`
			} `json:"parsed"`
		} `json:"data"`
	} `json:"account"`
}
