package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// newTestServer answers every JSON-RPC call with handler's raw "result" or
// "error" payload.
func newTestServer(t *testing.T, handler func(req rpcRequest) (result string, rpcErr string)) (*Client, *int32) {
	t.Helper()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req rpcRequest
		require.NoError(t, json.Unmarshal(body, &req))

		result, rpcErr := handler(req)
		w.Header().Set("Content-Type", "application/json")
		if rpcErr != "" {
			_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":1,"error":`+rpcErr+`}`)
			return
		}
		_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":1,"result":`+result+`}`)
	}))
	t.Cleanup(srv.Close)

	return NewClient(ClientConfig{BaseURL: srv.URL, Timeout: 2 * time.Second}), &calls
}

func TestGetLatestBlockhash(t *testing.T) {
	hash := solana.HashFromBytes([]byte("01234567890123456789012345678901"))

	client, _ := newTestServer(t, func(req rpcRequest) (string, string) {
		assert.Equal(t, "getLatestBlockhash", req.Method)
		assert.JSONEq(t, `{"commitment":"finalized"}`, string(req.Params[0]))
		return `{"context":{"slot":10},"value":{"blockhash":"` + hash.String() + `","lastValidBlockHeight":1500}}`, ""
	})

	res, err := client.GetLatestBlockhash(context.Background(), CommitmentFinalized)
	require.NoError(t, err)
	assert.Equal(t, hash, res.Blockhash)
	assert.Equal(t, uint64(1500), res.LastValidBlockHeight)
}

func TestGetBlockHeight(t *testing.T) {
	client, _ := newTestServer(t, func(req rpcRequest) (string, string) {
		assert.Equal(t, "getBlockHeight", req.Method)
		return `1234`, ""
	})

	h, err := client.GetBlockHeight(context.Background(), CommitmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, uint64(1234), h)
}

func TestGetMultipleAccounts_SingleRequestWithMissingEntries(t *testing.T) {
	keys := []solana.PublicKey{
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
	}
	data := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})

	client, calls := newTestServer(t, func(req rpcRequest) (string, string) {
		assert.Equal(t, "getMultipleAccounts", req.Method)

		var addrs []string
		require.NoError(t, json.Unmarshal(req.Params[0], &addrs))
		assert.Len(t, addrs, 3)

		return `{"context":{"slot":1},"value":[
			{"lamports":5,"owner":"AddressLookupTab1e1111111111111111111111111","executable":false,"data":["` + data + `","base64"]},
			null,
			{"lamports":7,"owner":"AddressLookupTab1e1111111111111111111111111","executable":false,"data":["","base64"]}
		]}`, ""
	})

	infos, err := client.GetMultipleAccounts(context.Background(), keys, CommitmentConfirmed)
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	require.NotNil(t, infos[0])
	assert.Equal(t, []byte{1, 2, 3}, infos[0].Data)
	assert.Nil(t, infos[1])
	require.NotNil(t, infos[2])
	assert.Empty(t, infos[2].Data)
}

func TestGetMultipleAccounts_Empty(t *testing.T) {
	client, calls := newTestServer(t, func(req rpcRequest) (string, string) {
		return `null`, ""
	})

	infos, err := client.GetMultipleAccounts(context.Background(), nil, CommitmentConfirmed)
	require.NoError(t, err)
	assert.Nil(t, infos)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestGetTokenBalance_SumsAccounts(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	client, _ := newTestServer(t, func(req rpcRequest) (string, string) {
		assert.Equal(t, "getTokenAccountsByOwner", req.Method)
		assert.JSONEq(t, `{"mint":"`+mint.String()+`"}`, string(req.Params[1]))
		return `{"context":{"slot":1},"value":[
			{"pubkey":"a","account":{"data":{"parsed":{"info":{"mint":"m","owner":"o","tokenAmount":{"amount":"150000000","decimals":6}}}}}},
			{"pubkey":"b","account":{"data":{"parsed":{"info":{"mint":"m","owner":"o","tokenAmount":{"amount":"50","decimals":6}}}}}}
		]}`, ""
	})

	bal, err := client.GetTokenBalance(context.Background(), owner, mint, CommitmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, uint64(150000050), bal)
}

func TestSendTransaction_RPCErrorIsTyped(t *testing.T) {
	client, _ := newTestServer(t, func(req rpcRequest) (string, string) {
		assert.Equal(t, "sendTransaction", req.Method)
		return "", `{"code":-32002,"message":"Transaction simulation failed: Blockhash not found"}`
	})

	payer := solana.NewWallet()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{solana.NewInstruction(
			solana.SystemProgramID,
			solana.AccountMetaSlice{solana.Meta(payer.PublicKey()).SIGNER().WRITE()},
			[]byte{2, 0, 0, 0},
		)},
		solana.Hash{},
		solana.TransactionPayer(payer.PublicKey()),
	)
	require.NoError(t, err)
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer.PublicKey()) {
			return &payer.PrivateKey
		}
		return nil
	})
	require.NoError(t, err)

	_, err = client.SendTransaction(context.Background(), tx, SendOptions{})
	require.Error(t, err)

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32002, rpcErr.Code)
	assert.Contains(t, err.Error(), "Blockhash not found")
}

func TestGetSignatureStatuses_NullEntry(t *testing.T) {
	client, _ := newTestServer(t, func(req rpcRequest) (string, string) {
		assert.Equal(t, "getSignatureStatuses", req.Method)
		return `{"context":{"slot":1},"value":[null,{"slot":9,"confirmations":null,"err":{"InstructionError":[2,{"Custom":6001}]},"confirmationStatus":"confirmed"}]}`, ""
	})

	statuses, err := client.GetSignatureStatuses(context.Background(), solana.Signature{}, solana.Signature{1})
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Nil(t, statuses[0])
	require.NotNil(t, statuses[1])
	assert.NotNil(t, statuses[1].Err)
	assert.Equal(t, "confirmed", statuses[1].ConfirmationStatus)
}

func TestCall_RetriesWhenConfigured(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":1,"result":42}`)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		BaseURL:      srv.URL,
		Timeout:      time.Second,
		MaxRetries:   1,
		RetryBackoff: time.Millisecond,
	})

	h, err := client.GetBlockHeight(context.Background(), CommitmentProcessed)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), h)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCall_ClientErrorIsFinal(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, "api key required\n")
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		BaseURL:      srv.URL,
		Timeout:      time.Second,
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
	})

	_, err := client.GetBlockHeight(context.Background(), CommitmentProcessed)
	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.Code)
	assert.Contains(t, err.Error(), "api key required")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCall_RetriesExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		BaseURL:      srv.URL,
		Timeout:      time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	})

	_, err := client.GetBlockHeight(context.Background(), CommitmentProcessed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestCommitmentSatisfies(t *testing.T) {
	assert.True(t, CommitmentProcessed.Satisfies("processed"))
	assert.False(t, CommitmentConfirmed.Satisfies("processed"))
	assert.True(t, CommitmentConfirmed.Satisfies("finalized"))
	assert.False(t, CommitmentFinalized.Satisfies("confirmed"))
	assert.False(t, CommitmentConfirmed.Satisfies(""))
}
