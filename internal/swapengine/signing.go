package swapengine

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// SignResult is the outcome of a signing request. When Signed is false, Tx
// is the untouched unsigned transaction and Err says why signing failed.
type SignResult struct {
	Tx     *solana.Transaction
	Signed bool
	Err    error
}

// SigningGateway asks the signer to sign and falls back to the unsigned
// transaction when it cannot.
type SigningGateway struct {
	signer Signer
	logger *logrus.Logger
}

func NewSigningGateway(signer Signer, logger *logrus.Logger) *SigningGateway {
	if logger == nil {
		logger = logrus.New()
	}
	return &SigningGateway{signer: signer, logger: logger}
}

func (g *SigningGateway) Sign(ctx context.Context, env *Envelope) SignResult {
	if g.signer == nil {
		return SignResult{Tx: env.Tx, Err: newError(KindSigningFailed, StageSign, fmt.Errorf("no signer configured"))}
	}

	signed, err := g.signer.SignTransaction(ctx, env.Tx)
	if err != nil {
		return SignResult{Tx: env.Tx, Err: newError(KindSigningFailed, StageSign, err)}
	}
	if signed == nil || len(signed.Signatures) == 0 {
		return SignResult{Tx: env.Tx, Err: newError(KindSigningFailed, StageSign, fmt.Errorf("signer returned no signatures"))}
	}
	return SignResult{Tx: signed, Signed: true}
}
