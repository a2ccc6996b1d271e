package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/supplyscan/internal/testutil"
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
}

// newRPCServer serves a minimal JSON-RPC node answering the given methods
// with fixed results
func newRPCServer(t *testing.T, results map[string]string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, ok := results[req.Method]
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"error":{"code":-32601,"message":"method not found"}}`, req.ID)
			return
		}
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%q}`, req.ID, result)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDial(t *testing.T) {
	server := newRPCServer(t, map[string]string{
		"eth_chainId":     "0x89",
		"eth_blockNumber": "0x64",
	})

	c, err := Dial(context.Background(), &Config{
		Endpoint: server.URL,
		Timeout:  5 * time.Second,
		Logger:   testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, server.URL, c.Endpoint())

	chainID, err := c.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "137", chainID.String())

	head, err := c.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(100), head)
}

func TestDialValidation(t *testing.T) {
	_, err := Dial(context.Background(), nil)
	assert.Error(t, err)

	_, err = Dial(context.Background(), &Config{})
	assert.Error(t, err)
}

func TestDialUnreachableEndpoint(t *testing.T) {
	server := newRPCServer(t, nil)
	url := server.URL
	server.Close()

	_, err := Dial(context.Background(), &Config{
		Endpoint: url,
		Timeout:  time.Second,
		Logger:   testutil.NewTestLogger(t),
	})
	assert.Error(t, err)
}

func TestDialFailsLivenessCheck(t *testing.T) {
	// The endpoint accepts connections but cannot answer eth_chainId
	server := newRPCServer(t, map[string]string{})

	_, err := Dial(context.Background(), &Config{
		Endpoint: server.URL,
		Timeout:  time.Second,
		Logger:   testutil.NewTestLogger(t),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping")
}
