package swapengine

import (
	"context"
	"errors"

	"github.com/aman-zulfiqar/solana-swap-executor/internal/rpc"
	"github.com/gagliardetto/solana-go"
)

// SubmissionGateway broadcasts exactly one transaction per call.
type SubmissionGateway struct {
	submitter Submitter
}

func NewSubmissionGateway(submitter Submitter) *SubmissionGateway {
	return &SubmissionGateway{submitter: submitter}
}

// Submit sends tx. A JSON-RPC error object from the node is a rejection;
// anything else is a transport failure.
func (g *SubmissionGateway) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := g.submitter.SendTransaction(ctx, tx)
	if err == nil {
		return sig, nil
	}

	var se *Error
	if errors.As(err, &se) {
		return solana.Signature{}, err
	}

	var rpcErr *rpc.RPCError
	if errors.As(err, &rpcErr) {
		return solana.Signature{}, newError(KindSubmissionRejected, StageSubmit, err)
	}
	return solana.Signature{}, newError(KindSubmissionFailed, StageSubmit, err)
}
