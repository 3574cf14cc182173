package jupiter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// SwapInstructionsRequest is the body of POST /swap-instructions.
type SwapInstructionsRequest struct {
	QuoteResponse             json.RawMessage            `json:"quoteResponse"`
	UserPublicKey             string                     `json:"userPublicKey"`
	WrapAndUnwrapSol          *bool                      `json:"wrapAndUnwrapSol,omitempty"`
	DynamicComputeUnitLimit   bool                       `json:"dynamicComputeUnitLimit"`
	DynamicSlippage           bool                       `json:"dynamicSlippage"`
	PrioritizationFeeLamports *PrioritizationFeeLamports `json:"prioritizationFeeLamports,omitempty"`
}

type PrioritizationFeeLamports struct {
	PriorityLevelWithMaxLamports *PriorityLevelWithMaxLamports `json:"priorityLevelWithMaxLamports,omitempty"`
}

type PriorityLevelWithMaxLamports struct {
	MaxLamports   uint64 `json:"maxLamports"`
	Global        bool   `json:"global"`
	PriorityLevel string `json:"priorityLevel"` // medium | high | veryHigh
}

// AccountMeta is one account entry of an instruction descriptor.
type AccountMeta struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

// Instruction is an instruction descriptor as returned by the API: program
// id, ordered accounts and base64 data.
type Instruction struct {
	ProgramID string        `json:"programId"`
	Accounts  []AccountMeta `json:"accounts"`
	Data      string        `json:"data"`
}

// SwapInstructionsResponse is the decoded body of /swap-instructions.
type SwapInstructionsResponse struct {
	TokenLedgerInstruction      *Instruction  `json:"tokenLedgerInstruction,omitempty"`
	ComputeBudgetInstructions   []Instruction `json:"computeBudgetInstructions"`
	SetupInstructions           []Instruction `json:"setupInstructions"`
	SwapInstruction             *Instruction  `json:"swapInstruction"`
	CleanupInstruction          *Instruction  `json:"cleanupInstruction,omitempty"`
	OtherInstructions           []Instruction `json:"otherInstructions,omitempty"`
	AddressLookupTableAddresses []string      `json:"addressLookupTableAddresses"`
	PrioritizationFeeLamports   uint64        `json:"prioritizationFeeLamports,omitempty"`
	ComputeUnitLimit            uint32        `json:"computeUnitLimit,omitempty"`

	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
}

// SwapInstructions asks the API for the instructions executing a previously
// fetched quote on behalf of req.UserPublicKey.
func (c *Client) SwapInstructions(ctx context.Context, req SwapInstructionsRequest) (*SwapInstructionsResponse, error) {
	if len(req.QuoteResponse) == 0 {
		return nil, fmt.Errorf("quoteResponse is required")
	}
	if strings.TrimSpace(req.UserPublicKey) == "" {
		return nil, fmt.Errorf("userPublicKey is required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode swap-instructions request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, c.BaseURL+"/swap-instructions", payload)
	if err != nil {
		return nil, err
	}

	var out SwapInstructionsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode jupiter swap-instructions response: %w", err)
	}
	if out.Error != "" {
		return nil, &APIError{Endpoint: "swap-instructions", Message: out.Error, Code: out.ErrorCode}
	}
	if out.SwapInstruction == nil {
		return nil, &APIError{Endpoint: "swap-instructions", Message: "response has no swapInstruction"}
	}
	return &out, nil
}

// ToSolana decodes the descriptor. Account order and signer/writable flags
// are kept exactly as received.
func (i Instruction) ToSolana() (solana.Instruction, error) {
	programID, err := solana.PublicKeyFromBase58(i.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("invalid program id %q: %w", i.ProgramID, err)
	}

	data, err := base64.StdEncoding.DecodeString(i.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 instruction data: %w", err)
	}

	metas := make(solana.AccountMetaSlice, 0, len(i.Accounts))
	for idx, acc := range i.Accounts {
		pk, err := solana.PublicKeyFromBase58(acc.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("invalid account %d pubkey %q: %w", idx, acc.Pubkey, err)
		}
		metas = append(metas, &solana.AccountMeta{
			PublicKey:  pk,
			IsSigner:   acc.IsSigner,
			IsWritable: acc.IsWritable,
		})
	}

	return solana.NewInstruction(programID, metas, data), nil
}
