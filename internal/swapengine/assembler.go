package swapengine

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// orderedInstructions lays out a transaction body:
// [unit limit, unit price, setup..., swap, cleanup?].
func orderedInstructions(set *InstructionSet, budget ComputeBudget) []solana.Instruction {
	ixs := make([]solana.Instruction, 0, len(set.Setup)+4)
	ixs = append(ixs,
		NewSetComputeUnitLimitIx(budget.UnitLimit),
		NewSetComputeUnitPriceIx(budget.UnitPriceMicroLamports),
	)
	ixs = append(ixs, set.Setup...)
	ixs = append(ixs, set.Swap)
	if set.Cleanup != nil {
		ixs = append(ixs, set.Cleanup)
	}
	return ixs
}

// Assemble compiles set into an unsigned versioned transaction paid by
// feePayer and bound to lease. It performs no I/O.
func Assemble(
	set *InstructionSet,
	budget ComputeBudget,
	lease BlockhashLease,
	feePayer solana.PublicKey,
	tables []LookupTableAccount,
) (*Envelope, error) {
	if set == nil || set.Swap == nil {
		return nil, newError(KindAssemblyFailed, StageAssemble, fmt.Errorf("instruction set has no swap instruction"))
	}
	if feePayer.IsZero() {
		return nil, newError(KindAssemblyFailed, StageAssemble, fmt.Errorf("fee payer is required"))
	}

	opts := []solana.TransactionOption{solana.TransactionPayer(feePayer)}
	if len(tables) > 0 {
		addressTables := make(map[solana.PublicKey]solana.PublicKeySlice, len(tables))
		for _, t := range tables {
			addressTables[t.Key] = t.Addresses
		}
		opts = append(opts, solana.TransactionAddressTables(addressTables))
	}

	tx, err := solana.NewTransaction(orderedInstructions(set, budget), lease.Blockhash, opts...)
	if err != nil {
		return nil, newError(KindAssemblyFailed, StageAssemble, err)
	}
	if !tx.Message.IsVersioned() {
		tx.Message.SetVersion(solana.MessageVersionV0)
	}

	return &Envelope{
		Tx:       tx,
		Lease:    lease,
		FeePayer: feePayer,
	}, nil
}
