package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalysfun/evalys-arcium-bridge-service/business/solana/domain"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/apperror"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/logger"
)

const (
	deployedProgram = "Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS"
	loaderProgram   = "BPFLoaderUpgradeab1e11111111111111111111111"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// fakeNode answers the handful of methods the client uses.
type fakeNode struct {
	mu      sync.Mutex
	calls   map[string]int
	healthy bool
	slot    uint64
	params  map[string][]json.RawMessage
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		calls:   make(map[string]int),
		params:  make(map[string][]json.RawMessage),
		healthy: true,
		slot:    314159,
	}
}

func (n *fakeNode) count(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.calls[req.Method]++
	n.params[req.Method] = req.Params
	healthy, slot := n.healthy, n.slot
	n.mu.Unlock()

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	switch req.Method {
	case "getHealth":
		if healthy {
			resp["result"] = "ok"
		} else {
			resp["error"] = map[string]any{"code": -32005, "message": "Node is behind by 42 slots"}
		}
	case "getSlot":
		resp["result"] = slot
	case "getAccountInfo":
		var addr string
		_ = json.Unmarshal(req.Params[0], &addr)
		if addr == deployedProgram {
			resp["result"] = map[string]any{
				"context": map[string]any{"slot": slot},
				"value": map[string]any{
					"data":       []string{"", "base64"},
					"executable": true,
					"lamports":   1141440,
					"owner":      loaderProgram,
					"rentEpoch":  0,
				},
			}
		} else {
			resp["result"] = map[string]any{
				"context": map[string]any{"slot": slot},
				"value":   nil,
			}
		}
	default:
		resp["error"] = map[string]any{"code": -32601, "message": "Method not found"}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := New(DefaultConfig(url), logger.New(io.Discard, logger.LevelError, "solana-test", nil))
	require.NoError(t, err)
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_HealthAndSlot(t *testing.T) {
	node := newFakeNode()
	srv := httptest.NewServer(node)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, c.GetHealth(ctx))

	slot, err := c.GetSlot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(314159), slot)

	// Served from cache.
	_, err = c.GetSlot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, node.count("getSlot"))

	node.mu.Lock()
	params := node.params["getSlot"]
	node.mu.Unlock()
	require.Len(t, params, 1)
	assert.JSONEq(t, `{"commitment":"confirmed"}`, string(params[0]))
}

func TestClient_UnhealthyNode(t *testing.T) {
	node := newFakeNode()
	node.healthy = false
	srv := httptest.NewServer(node)
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	err := c.GetHealth(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperror.CodeSolanaRPCError, apperror.GetCode(err))

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadGateway, appErr.StatusCode)
	assert.Contains(t, appErr.Context, "code -32005")
}

func TestClient_ProgramExists(t *testing.T) {
	node := newFakeNode()
	srv := httptest.NewServer(node)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	deployed, err := domain.ParseProgramID(deployedProgram)
	require.NoError(t, err)
	ok, err := c.ProgramExists(ctx, deployed)
	require.NoError(t, err)
	assert.True(t, ok)

	info, err := c.GetAccountInfo(ctx, deployed)
	require.NoError(t, err)
	assert.Equal(t, uint64(1141440), info.Lamports)
	assert.Equal(t, loaderProgram, info.Owner.String())

	missing, err := domain.ParseProgramID(loaderProgram)
	require.NoError(t, err)
	ok, err = c.ProgramExists(ctx, missing)
	require.NoError(t, err)
	assert.False(t, ok)

	node.mu.Lock()
	params := node.params["getAccountInfo"]
	node.mu.Unlock()
	require.Len(t, params, 2)
	assert.JSONEq(t, `{"encoding":"base64","commitment":"confirmed"}`, string(params[1]))
}

func TestClient_NotConnected(t *testing.T) {
	c, err := New(DefaultConfig("http://127.0.0.1:1"), logger.New(io.Discard, logger.LevelError, "solana-test", nil))
	require.NoError(t, err)
	defer c.Close()

	err = c.GetHealth(context.Background())
	assert.Equal(t, apperror.CodeSolanaConnectionFailed, apperror.GetCode(err))
}

func TestClient_BreakerOpensOnTransportErrors(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	for range 5 {
		err := c.GetHealth(ctx)
		require.Error(t, err)
		assert.Equal(t, apperror.CodeSolanaConnectionFailed, apperror.GetCode(err))
	}

	err := c.GetHealth(ctx)
	assert.Equal(t, apperror.CodeCircuitOpen, apperror.GetCode(err))
	assert.Equal(t, 5, hits)
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(Config{}, logger.New(io.Discard, logger.LevelError, "solana-test", nil))
	assert.Equal(t, apperror.CodeConfigurationError, apperror.GetCode(err))
}
