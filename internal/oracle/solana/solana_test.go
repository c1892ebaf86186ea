package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dealmint/internal/oracle"

	"github.com/stretchr/testify/require"
)

const (
	owner = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	mint  = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func newRPCServer(t *testing.T, handle func(req rpcRequest) (interface{}, map[string]interface{})) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode rpc request failed: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		result, rpcErr := handle(req)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func accountsWithAmount(amounts ...string) map[string]interface{} {
	value := make([]interface{}, 0, len(amounts))
	for _, amount := range amounts {
		value = append(value, map[string]interface{}{
			"account": map[string]interface{}{
				"data": map[string]interface{}{
					"parsed": map[string]interface{}{
						"info": map[string]interface{}{
							"tokenAmount": map[string]interface{}{"amount": amount},
						},
					},
				},
			},
		})
	}
	return map[string]interface{}{"value": value}
}

func dialTest(t *testing.T, url string) *Oracle {
	t.Helper()
	o, err := Dial(context.Background(), url, "finalized")
	require.NoError(t, err)
	t.Cleanup(o.Close)
	return o
}

func TestVerifyOwnershipOwned(t *testing.T) {
	requests := make(chan rpcRequest, 1)
	srv := newRPCServer(t, func(req rpcRequest) (interface{}, map[string]interface{}) {
		requests <- req
		return accountsWithAmount("0", "1"), nil
	})

	owned, err := dialTest(t, srv.URL).VerifyOwnership(context.Background(), owner, mint)
	require.NoError(t, err)
	require.True(t, owned)
	seen := <-requests
	require.Equal(t, "getTokenAccountsByOwner", seen.Method)
	require.Len(t, seen.Params, 3)
	require.JSONEq(t, `{"mint":"`+mint+`"}`, string(seen.Params[1]))
	require.JSONEq(t, `{"encoding":"jsonParsed","commitment":"finalized"}`, string(seen.Params[2]))
}

func TestVerifyOwnershipEmptyAccounts(t *testing.T) {
	srv := newRPCServer(t, func(req rpcRequest) (interface{}, map[string]interface{}) {
		return accountsWithAmount("0"), nil
	})
	owned, err := dialTest(t, srv.URL).VerifyOwnership(context.Background(), owner, mint)
	require.NoError(t, err)
	require.False(t, owned)
}

func TestVerifyOwnershipInvalidParamsIsNotOwned(t *testing.T) {
	srv := newRPCServer(t, func(req rpcRequest) (interface{}, map[string]interface{}) {
		return nil, map[string]interface{}{"code": codeInvalidParams, "message": "Invalid param: WrongSize"}
	})
	owned, err := dialTest(t, srv.URL).VerifyOwnership(context.Background(), owner, mint)
	require.NoError(t, err)
	require.False(t, owned)
}

func TestVerifyOwnershipServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := dialTest(t, srv.URL).VerifyOwnership(context.Background(), owner, mint)
	require.ErrorIs(t, err, oracle.ErrUnavailable)
}

func TestVerifyOwnershipTimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	o := oracle.WithTimeout(dialTest(t, srv.URL), 50*time.Millisecond)
	_, err := o.VerifyOwnership(context.Background(), owner, mint)
	require.ErrorIs(t, err, oracle.ErrUnavailable)
}

func TestVerifyOwnershipRejectsMalformedKeysWithoutCalling(t *testing.T) {
	var called atomic.Bool
	srv := newRPCServer(t, func(req rpcRequest) (interface{}, map[string]interface{}) {
		called.Store(true)
		return accountsWithAmount("1"), nil
	})
	o := dialTest(t, srv.URL)
	for _, principal := range []string{"", "0xabc", "short"} {
		owned, err := o.VerifyOwnership(context.Background(), principal, mint)
		require.NoError(t, err)
		require.False(t, owned)
	}
	require.False(t, called.Load())
}
