package swapengine

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aman-zulfiqar/solana-swap-executor/internal/models"
	"github.com/aman-zulfiqar/solana-swap-executor/internal/rpc"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var (
	usdcMint    = solana.MustPublicKeyFromBase58(TokenMints["USDC"])
	swapProgram = solana.MustPublicKeyFromBase58("JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4")
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fakeQuotes struct {
	mu    sync.Mutex
	calls int
	err   func(call int) error
}

func (f *fakeQuotes) GetQuote(_ context.Context, p QuoteParams) (*Quote, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()

	if f.err != nil {
		if err := f.err(call); err != nil {
			return nil, err
		}
	}
	return &Quote{
		InputMint:   p.InputMint,
		OutputMint:  p.OutputMint,
		InAmount:    p.Amount,
		OutAmount:   150_000_000,
		SlippageBps: p.SlippageBps,
		RouteID:     fmt.Sprintf("route-%d", call),
		Route:       []byte(`{}`),
		FetchedAt:   time.Now(),
	}, nil
}

func (f *fakeQuotes) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeBuilder struct {
	mu     sync.Mutex
	quotes []*Quote
	tables []solana.PublicKey
}

func (f *fakeBuilder) BuildInstructions(_ context.Context, q *Quote, signer solana.PublicKey) (*InstructionSet, error) {
	f.mu.Lock()
	f.quotes = append(f.quotes, q)
	f.mu.Unlock()

	return &InstructionSet{
		Swap: solana.NewInstruction(swapProgram, solana.AccountMetaSlice{
			solana.Meta(signer).SIGNER().WRITE(),
			solana.Meta(q.OutputMint),
		}, []byte{0xe5, 1, 2}),
		LookupTableAddresses: f.tables,
		Quote:                q,
	}, nil
}

type fakeLookups struct{}

func (fakeLookups) ResolveLookupTables(_ context.Context, _ []solana.PublicKey) ([]LookupTableAccount, error) {
	return nil, nil
}

// fakeLedger hands out a new blockhash per call with LastValidBlockHeight
// 1000. height decides what the recheck observes.
type fakeLedger struct {
	mu          sync.Mutex
	hashes      int
	leaseLevels []rpc.Commitment
	heightCalls int
	height      func(call int) (uint64, error)
}

func (f *fakeLedger) GetLatestBlockhash(_ context.Context, commitment rpc.Commitment) (*rpc.LatestBlockhash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hashes++
	f.leaseLevels = append(f.leaseLevels, commitment)
	var h solana.Hash
	h[0] = byte(f.hashes)
	h[1] = 0xaa
	return &rpc.LatestBlockhash{Blockhash: h, LastValidBlockHeight: 1000}, nil
}

func (f *fakeLedger) GetBlockHeight(_ context.Context, _ rpc.Commitment) (uint64, error) {
	f.mu.Lock()
	f.heightCalls++
	call := f.heightCalls
	f.mu.Unlock()
	if f.height != nil {
		return f.height(call)
	}
	return 900, nil
}

type fakeSigner struct {
	err error
}

func (f *fakeSigner) SignTransaction(_ context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	cp := *tx
	cp.Signatures = []solana.Signature{{9, 9, 9}}
	return &cp, nil
}

type fakeSubmitter struct {
	mu   sync.Mutex
	txs  []*solana.Transaction
	next byte
	err  func(call int) error
}

func (f *fakeSubmitter) SendTransaction(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs = append(f.txs, tx)
	if f.err != nil {
		if err := f.err(len(f.txs)); err != nil {
			return solana.Signature{}, err
		}
	}
	f.next++
	return solana.Signature{f.next, 0xbb}, nil
}

func (f *fakeSubmitter) Sent() []*solana.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*solana.Transaction(nil), f.txs...)
}

type fakeConfirmer struct {
	mu     sync.Mutex
	calls  int
	result func(call int, sig solana.Signature) (*ConfirmationResult, error)
}

func (f *fakeConfirmer) Confirm(_ context.Context, sig solana.Signature, _ BlockhashLease) (*ConfirmationResult, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	if f.result != nil {
		return f.result(call, sig)
	}
	return &ConfirmationResult{Status: ConfirmationConfirmed, Signature: sig, Slot: 42}, nil
}

type fakeBalances struct {
	balance uint64
	err     error
}

func (f *fakeBalances) SpendableBalance(_ context.Context, _, _ solana.PublicKey) (uint64, error) {
	return f.balance, f.err
}

type fakePauses struct {
	paused bool
	reason string
	scopes []string
	err    error
}

func (f *fakePauses) IsPaused(_ context.Context, scopes ...string) (bool, string, error) {
	f.scopes = scopes
	return f.paused, f.reason, f.err
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []*models.SwapRecord
	err     error
}

func (f *fakeRecorder) RecordSwap(_ context.Context, rec *models.SwapRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return f.err
}

type harness struct {
	quotes    *fakeQuotes
	builder   *fakeBuilder
	ledger    *fakeLedger
	signer    *fakeSigner
	submitter *fakeSubmitter
	confirmer *fakeConfirmer
	recorder  *fakeRecorder
	delays    []time.Duration

	deps Dependencies
	cfg  OrchestratorConfig
}

func newHarness() *harness {
	h := &harness{
		quotes:    &fakeQuotes{},
		builder:   &fakeBuilder{},
		ledger:    &fakeLedger{},
		signer:    &fakeSigner{},
		submitter: &fakeSubmitter{},
		confirmer: &fakeConfirmer{},
		recorder:  &fakeRecorder{},
	}
	h.deps = Dependencies{
		Quotes:    h.quotes,
		Builder:   h.builder,
		Lookups:   fakeLookups{},
		Ledger:    h.ledger,
		Signer:    h.signer,
		Submitter: h.submitter,
		Confirmer: h.confirmer,
		Recorders: []Recorder{h.recorder},
	}
	h.cfg = DefaultOrchestratorConfig()
	h.cfg.Backoff.Rand = func() float64 { return 0.5 }
	h.cfg.Logger = quietLogger()
	return h
}

func (h *harness) orchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(h.deps, h.cfg)
	require.NoError(t, err)
	o.sleep = func(ctx context.Context, d time.Duration) error {
		h.delays = append(h.delays, d)
		return ctx.Err()
	}
	return o
}

func solToUSDC(signer solana.PublicKey) SwapRequest {
	return SwapRequest{
		InputMint:   WrappedSOLMint,
		OutputMint:  usdcMint,
		Amount:      1_000_000_000,
		Signer:      signer,
		SlippageBps: 50,
	}
}
