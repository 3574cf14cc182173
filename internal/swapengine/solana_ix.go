package swapengine

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

var (
	// Compute Budget program
	computeBudgetProgramID = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")
)

const (
	computeBudgetSetUnitLimit = 2
	computeBudgetSetUnitPrice = 3
)

// NewSetComputeUnitLimitIx builds a ComputeBudget SetComputeUnitLimit
// instruction.
func NewSetComputeUnitLimitIx(units uint32) solana.Instruction {
	// ComputeBudget instruction layout:
	// u8:  instruction index (2 = SetComputeUnitLimit)
	// u32: units
	data := make([]byte, 1+4)
	data[0] = computeBudgetSetUnitLimit
	binary.LittleEndian.PutUint32(data[1:5], units)
	return solana.NewInstruction(computeBudgetProgramID, solana.AccountMetaSlice{}, data)
}

// NewSetComputeUnitPriceIx builds a ComputeBudget SetComputeUnitPrice
// instruction.
func NewSetComputeUnitPriceIx(microLamports uint64) solana.Instruction {
	// u8:  instruction index (3 = SetComputeUnitPrice)
	// u64: micro-lamports per compute unit
	data := make([]byte, 1+8)
	data[0] = computeBudgetSetUnitPrice
	binary.LittleEndian.PutUint64(data[1:9], microLamports)
	return solana.NewInstruction(computeBudgetProgramID, solana.AccountMetaSlice{}, data)
}
