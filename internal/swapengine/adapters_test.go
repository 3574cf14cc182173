package swapengine

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aman-zulfiqar/solana-swap-executor/internal/jupiter"
	"github.com/aman-zulfiqar/solana-swap-executor/internal/rpc"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quoteFunc func(ctx context.Context, params QuoteParams) (*Quote, error)

func (f quoteFunc) GetQuote(ctx context.Context, params QuoteParams) (*Quote, error) {
	return f(ctx, params)
}

const quoteBody = `{
	"inputMint": "So11111111111111111111111111111111111111112",
	"outputMint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
	"inAmount": "1000000000",
	"outAmount": "150123456",
	"otherAmountThreshold": "149372839",
	"swapMode": "ExactIn",
	"slippageBps": 50,
	"priceImpactPct": "0.0012",
	"routePlan": [{"swapInfo": {"ammKey": "amm1", "label": "Whirlpool", "inputMint": "So11111111111111111111111111111111111111112", "outputMint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "inAmount": "1000000000", "outAmount": "150123456"}, "percent": 100, "bps": 10000}],
	"contextSlot": 123
}`

func TestJupiterQuoter_GetQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "true", q.Get("restrictIntermediateTokens"))
		assert.Equal(t, "1000000000", q.Get("amount"))
		assert.Equal(t, "50", q.Get("slippageBps"))
		_, _ = w.Write([]byte(quoteBody))
	}))
	defer srv.Close()

	quoter := NewJupiterQuoter(jupiter.NewClient(srv.URL, ""))
	quote, err := quoter.GetQuote(context.Background(), QuoteParams{
		InputMint:   WrappedSOLMint,
		OutputMint:  usdcMint,
		Amount:      1_000_000_000,
		SlippageBps: 50,
	})
	require.NoError(t, err)

	assert.Equal(t, WrappedSOLMint, quote.InputMint)
	assert.Equal(t, usdcMint, quote.OutputMint)
	assert.Equal(t, uint64(1_000_000_000), quote.InAmount)
	assert.Equal(t, uint64(150_123_456), quote.OutAmount)
	assert.Equal(t, uint64(149_372_839), quote.OtherAmountThreshold)
	assert.InDelta(t, 0.0012, quote.PriceImpactPct, 1e-9)
	assert.Equal(t, "Whirlpool:amm1@123", quote.RouteID)
	assert.JSONEq(t, quoteBody, string(quote.Route))
}

func TestJupiterQuoter_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Could not find any route","errorCode":"COULD_NOT_FIND_ANY_ROUTE"}`))
	}))
	defer srv.Close()

	quoter := NewJupiterQuoter(jupiter.NewClient(srv.URL, ""))

	_, err := quoter.GetQuote(context.Background(), QuoteParams{InputMint: WrappedSOLMint, OutputMint: usdcMint})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = quoter.GetQuote(context.Background(), QuoteParams{InputMint: WrappedSOLMint, OutputMint: usdcMint, Amount: 1})
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
	assert.Equal(t, Retryable, Classify(err))
}

func ixJSON(program solana.PublicKey, data []byte, accounts ...solana.PublicKey) map[string]interface{} {
	metas := make([]map[string]interface{}, 0, len(accounts))
	for _, a := range accounts {
		metas = append(metas, map[string]interface{}{"pubkey": a.String(), "isSigner": false, "isWritable": true})
	}
	return map[string]interface{}{
		"programId": program.String(),
		"accounts":  metas,
		"data":      base64.StdEncoding.EncodeToString(data),
	}
}

func TestJupiterBuilder_BuildInstructions(t *testing.T) {
	signer := solana.NewWallet().PublicKey()
	alt := solana.NewWallet().PublicKey()
	pool := solana.NewWallet().PublicKey()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/swap-instructions", r.URL.Path)
		var req map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, signer.String(), req["userPublicKey"])
		assert.Equal(t, true, req["wrapAndUnwrapSol"])
		assert.Equal(t, true, req["dynamicComputeUnitLimit"])
		assert.NotNil(t, req["quoteResponse"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"computeBudgetInstructions":   []interface{}{ixJSON(computeBudgetProgramID, []byte{2, 0, 0, 0, 0})},
			"setupInstructions":           []interface{}{ixJSON(solana.SystemProgramID, []byte{1}, pool)},
			"swapInstruction":             ixJSON(swapProgram, []byte{7, 7}, pool),
			"cleanupInstruction":          ixJSON(solana.TokenProgramID, []byte{9}),
			"addressLookupTableAddresses": []string{alt.String()},
		})
	}))
	defer srv.Close()

	builder := NewJupiterBuilder(jupiter.NewClient(srv.URL, ""), DefaultPriorityFeePolicy())
	quote := &Quote{Route: json.RawMessage(quoteBody)}

	set, err := builder.BuildInstructions(context.Background(), quote, signer)
	require.NoError(t, err)

	require.Len(t, set.Setup, 1)
	assert.Equal(t, solana.SystemProgramID, set.Setup[0].ProgramID())
	assert.Equal(t, swapProgram, set.Swap.ProgramID())
	data, err := set.Swap.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 7}, data)
	require.NotNil(t, set.Cleanup)
	assert.Equal(t, solana.TokenProgramID, set.Cleanup.ProgramID())
	assert.Equal(t, []solana.PublicKey{alt}, set.LookupTableAddresses)
	assert.Same(t, quote, set.Quote)

	for _, ix := range set.Setup {
		assert.NotEqual(t, computeBudgetProgramID, ix.ProgramID())
	}
}

func TestJupiterBuilder_Errors(t *testing.T) {
	builder := NewJupiterBuilder(jupiter.NewClient("http://127.0.0.1:1", ""), DefaultPriorityFeePolicy())
	_, err := builder.BuildInstructions(context.Background(), &Quote{}, solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrInstructionBuildFailed)
	assert.Equal(t, Retryable, Classify(err))

	_, err = instructionSetFromResponse(&jupiter.SwapInstructionsResponse{})
	assert.Error(t, err)

	_, err = instructionSetFromResponse(&jupiter.SwapInstructionsResponse{
		SwapInstruction:             &jupiter.Instruction{ProgramID: swapProgram.String()},
		AddressLookupTableAddresses: []string{"not-a-key"},
	})
	assert.Error(t, err)
}

// encodeLookupTable lays out an address lookup table account: 56 bytes of
// metadata followed by the packed addresses.
func encodeLookupTable(authority solana.PublicKey, addrs ...solana.PublicKey) []byte {
	buf := make([]byte, 56, 56+32*len(addrs))
	binary.LittleEndian.PutUint32(buf[0:4], 1)
	binary.LittleEndian.PutUint64(buf[4:12], math.MaxUint64)
	binary.LittleEndian.PutUint64(buf[12:20], 42)
	buf[20] = 0
	buf[21] = 1
	copy(buf[22:54], authority[:])
	for _, a := range addrs {
		buf = append(buf, a[:]...)
	}
	return buf
}

type fakeAccounts struct {
	infos []*rpc.AccountInfo
	err   error
	keys  []solana.PublicKey
}

func (f *fakeAccounts) GetMultipleAccounts(_ context.Context, keys []solana.PublicKey, _ rpc.Commitment) ([]*rpc.AccountInfo, error) {
	f.keys = keys
	return f.infos, f.err
}

func TestRPCLookupResolver(t *testing.T) {
	tableA := solana.NewWallet().PublicKey()
	missing := solana.NewWallet().PublicKey()
	garbage := solana.NewWallet().PublicKey()
	a1 := solana.NewWallet().PublicKey()
	a2 := solana.NewWallet().PublicKey()

	accounts := &fakeAccounts{infos: []*rpc.AccountInfo{
		{Data: encodeLookupTable(solana.NewWallet().PublicKey(), a1, a2)},
		nil,
		{Data: []byte{1, 2, 3}},
	}}
	resolver := NewRPCLookupResolver(accounts, rpc.CommitmentConfirmed, quietLogger())

	tables, err := resolver.ResolveLookupTables(context.Background(), []solana.PublicKey{tableA, missing, garbage})
	require.NoError(t, err)
	assert.Len(t, accounts.keys, 3)
	require.Len(t, tables, 1)
	assert.Equal(t, tableA, tables[0].Key)
	assert.Equal(t, []solana.PublicKey{a1, a2}, []solana.PublicKey(tables[0].Addresses))
}

func TestRPCLookupResolver_NoTablesOrFailure(t *testing.T) {
	accounts := &fakeAccounts{err: errors.New("rpc down")}
	resolver := NewRPCLookupResolver(accounts, rpc.CommitmentConfirmed, quietLogger())

	tables, err := resolver.ResolveLookupTables(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, tables)
	assert.Nil(t, accounts.keys)

	_, err = resolver.ResolveLookupTables(context.Background(), []solana.PublicKey{solana.NewWallet().PublicKey()})
	assert.ErrorIs(t, err, ErrLookupUnavailable)
}

type errSubmitter struct{ err error }

func (s errSubmitter) SendTransaction(context.Context, *solana.Transaction) (solana.Signature, error) {
	return solana.Signature{}, s.err
}

func TestSubmissionGateway_Mapping(t *testing.T) {
	tx := &solana.Transaction{}

	_, err := NewSubmissionGateway(errSubmitter{&rpc.RPCError{Code: -32002, Message: "Blockhash not found"}}).Submit(context.Background(), tx)
	assert.Equal(t, KindSubmissionRejected, KindOf(err))
	var rpcErr *rpc.RPCError
	assert.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, Retryable, Classify(err))

	_, err = NewSubmissionGateway(errSubmitter{errors.New("dial tcp: connection reset")}).Submit(context.Background(), tx)
	assert.Equal(t, KindSubmissionFailed, KindOf(err))

	inner := newError(KindSigningFailed, StageSign, errors.New("key unavailable"))
	_, err = NewSubmissionGateway(errSubmitter{inner}).Submit(context.Background(), tx)
	assert.Same(t, inner, err)

	sub := &fakeSubmitter{}
	sig, err := NewSubmissionGateway(sub).Submit(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, solana.Signature{1, 0xbb}, sig)
	assert.Len(t, sub.Sent(), 1)
}

type emptySigner struct{}

func (emptySigner) SignTransaction(_ context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	cp := *tx
	cp.Signatures = nil
	return &cp, nil
}

func TestSigningGateway(t *testing.T) {
	env := &Envelope{Tx: &solana.Transaction{}}

	res := NewSigningGateway(nil, quietLogger()).Sign(context.Background(), env)
	assert.False(t, res.Signed)
	assert.Same(t, env.Tx, res.Tx)
	assert.ErrorIs(t, res.Err, ErrSigningFailed)

	res = NewSigningGateway(&fakeSigner{err: errors.New("hsm offline")}, quietLogger()).Sign(context.Background(), env)
	assert.False(t, res.Signed)
	assert.Same(t, env.Tx, res.Tx)
	assert.Contains(t, res.Err.Error(), "hsm offline")

	res = NewSigningGateway(emptySigner{}, quietLogger()).Sign(context.Background(), env)
	assert.False(t, res.Signed)
	assert.Same(t, env.Tx, res.Tx)

	res = NewSigningGateway(&fakeSigner{}, quietLogger()).Sign(context.Background(), env)
	require.True(t, res.Signed)
	assert.NoError(t, res.Err)
	assert.Len(t, res.Tx.Signatures, 1)
	assert.Empty(t, env.Tx.Signatures)
}

func TestRiskGuard_Whitelist(t *testing.T) {
	inner := &fakeQuotes{}
	guard, err := NewRiskGuard(inner, RiskConfig{AllowedTokens: []string{"sol", " USDC ", ""}})
	require.NoError(t, err)

	_, err = guard.GetQuote(context.Background(), QuoteParams{InputMint: WrappedSOLMint, OutputMint: usdcMint, Amount: 1})
	require.NoError(t, err)

	bonk := solana.MustPublicKeyFromBase58(TokenMints["BONK"])
	_, err = guard.GetQuote(context.Background(), QuoteParams{InputMint: WrappedSOLMint, OutputMint: bonk, Amount: 1})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "BONK")
	assert.Equal(t, 1, inner.Calls())

	_, err = NewRiskGuard(inner, RiskConfig{AllowedTokens: []string{"NOTATOKEN!"}})
	assert.Error(t, err)
}

func TestRiskGuard_PriceImpact(t *testing.T) {
	impact := 0.06
	inner := quoteFunc(func(_ context.Context, p QuoteParams) (*Quote, error) {
		return &Quote{InputMint: p.InputMint, OutputMint: p.OutputMint, PriceImpactPct: impact}, nil
	})
	guard, err := NewRiskGuard(inner, DefaultRiskConfig())
	require.NoError(t, err)

	params := QuoteParams{InputMint: WrappedSOLMint, OutputMint: usdcMint, Amount: 1}
	_, err = guard.GetQuote(context.Background(), params)
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
	assert.Equal(t, Retryable, Classify(err))

	impact = 0.01
	q, err := guard.GetQuote(context.Background(), params)
	require.NoError(t, err)
	assert.InDelta(t, 0.01, q.PriceImpactPct, 1e-9)

	impact = 0.9
	unlimited, err := NewRiskGuard(inner, RiskConfig{})
	require.NoError(t, err)
	_, err = unlimited.GetQuote(context.Background(), params)
	assert.NoError(t, err)
}

func TestDecisionEngine_ParseIntent(t *testing.T) {
	de := NewDecisionEngine(DefaultIntentPolicy())
	signer := solana.NewWallet().PublicKey()

	t.Run("symbols", func(t *testing.T) {
		req, err := de.ParseIntent(&SwapIntent{InputToken: "sol", OutputToken: "USDC", Amount: 0.5}, signer)
		require.NoError(t, err)
		assert.Equal(t, WrappedSOLMint, req.InputMint)
		assert.Equal(t, usdcMint, req.OutputMint)
		assert.Equal(t, uint64(500_000_000), req.Amount)
		assert.Equal(t, uint16(50), req.SlippageBps)
		assert.Equal(t, signer, req.Signer)
	})

	t.Run("mint address", func(t *testing.T) {
		req, err := de.ParseIntent(&SwapIntent{InputToken: TokenMints["USDC"], OutputToken: "SOL", Amount: 12.345678}, signer)
		require.NoError(t, err)
		assert.Equal(t, usdcMint, req.InputMint)
		assert.Equal(t, uint64(12_345_678), req.Amount)
	})

	t.Run("unknown mint needs raw amount", func(t *testing.T) {
		other := solana.NewWallet().PublicKey().String()
		_, err := de.ParseIntent(&SwapIntent{InputToken: other, OutputToken: "SOL", Amount: 1}, signer)
		assert.Error(t, err)

		req, err := de.ParseIntent(&SwapIntent{InputToken: other, OutputToken: "SOL", RawAmount: 777}, signer)
		require.NoError(t, err)
		assert.Equal(t, uint64(777), req.Amount)
	})

	t.Run("rejects", func(t *testing.T) {
		tooHigh := uint16(1500)
		cases := []*SwapIntent{
			nil,
			{InputToken: "SOL", OutputToken: "SOL", Amount: 1},
			{InputToken: "SOL", OutputToken: TokenMints["SOL"], Amount: 1},
			{InputToken: "SOL", OutputToken: "USDC"},
			{InputToken: "SOL", OutputToken: "USDC", Amount: 1, SlippageBps: &tooHigh},
			{InputToken: "DOGE", OutputToken: "USDC", Amount: 1},
			{InputToken: "SOL", OutputToken: "USDC", Amount: 1e-12},
		}
		for i, intent := range cases {
			_, err := de.ParseIntent(intent, signer)
			assert.Error(t, err, "case %d", i)
		}
	})

	t.Run("explicit slippage", func(t *testing.T) {
		bps := uint16(300)
		intent := &SwapIntent{InputToken: "SOL", OutputToken: "USDC", Amount: 1, SlippageBps: &bps}
		req, err := de.ParseIntent(intent, signer)
		require.NoError(t, err)
		assert.Equal(t, uint16(300), req.SlippageBps)
		assert.False(t, intent.RequestedAt.IsZero())
	})
}
