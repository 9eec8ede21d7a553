package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	bob   = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

// fakeNode is a minimal JSON-RPC wallet backend.
type fakeNode struct {
	mu          sync.Mutex
	accounts    []string
	chainID     string
	knownChains map[string]bool
	reject      map[string]bool
	noRequest   bool
	calls       []string
	lastParams  []json.RawMessage
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		accounts:    []string{alice},
		chainID:     "0x1",
		knownChains: map[string]bool{"0x1": true},
		reject:      map[string]bool{},
	}
}

func (n *fakeNode) setAccounts(a ...string) {
	n.mu.Lock()
	n.accounts = a
	n.mu.Unlock()
}

func (n *fakeNode) called(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.calls {
		if m == method {
			c++
		}
	}
	return c
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
		ID     uint64            `json:"id"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	n.mu.Lock()
	n.calls = append(n.calls, req.Method)
	n.lastParams = req.Params
	result, perr := n.handle(req.Method, req.Params)
	n.mu.Unlock()

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if perr != nil {
		resp["error"] = perr
	} else {
		resp["result"] = result
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (n *fakeNode) handle(method string, params []json.RawMessage) (any, *ProviderError) {
	if n.reject[method] {
		return nil, &ProviderError{Code: CodeUserRejected, Message: "User rejected the request."}
	}
	switch method {
	case "eth_requestAccounts":
		if n.noRequest {
			return nil, &ProviderError{Code: CodeMethodNotFound, Message: "method not found"}
		}
		return n.accounts, nil
	case "eth_accounts":
		return n.accounts, nil
	case "eth_chainId":
		return n.chainID, nil
	case "personal_sign":
		return "0xsig", nil
	case "eth_sendTransaction":
		return "0xabc123", nil
	case "eth_getBalance":
		return "0xde0b6b3a7640000", nil
	case "wallet_switchEthereumChain":
		var p map[string]string
		_ = json.Unmarshal(params[0], &p)
		if !n.knownChains[p["chainId"]] {
			return nil, &ProviderError{Code: CodeUnrecognizedChain, Message: "Unrecognized chain ID"}
		}
		n.chainID = p["chainId"]
		return nil, nil
	case "wallet_addEthereumChain":
		var p map[string]any
		_ = json.Unmarshal(params[0], &p)
		id := p["chainId"].(string)
		n.knownChains[id] = true
		n.chainID = id
		return nil, nil
	}
	return nil, &ProviderError{Code: CodeMethodNotFound, Message: "method not found"}
}

func newTestBridge(t *testing.T, node *fakeNode, interval time.Duration) (*Bridge, *RPCProvider) {
	t.Helper()
	ts := httptest.NewServer(node)
	t.Cleanup(ts.Close)
	p, err := NewRPCProvider(RPCConfig{URL: ts.URL, WatchInterval: interval}, nil)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return NewBridge(p, Network{ChainID: "0x539", ChainName: "Ganache Local", RPCURL: "http://localhost:7545", Symbol: "ETH"}, nil), p
}

func TestBridge_NoProvider(t *testing.T) {
	b := NewBridge(nil, Network{}, nil)
	assert.False(t, b.Available())
	_, err := b.Connect(context.Background())
	assert.ErrorIs(t, err, ErrNoProvider)
	_, err = b.SendTransaction(context.Background(), Transfer{To: bob, AmountEth: 1})
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestBridge_Connect(t *testing.T) {
	t.Run("ChecksumsAccount", func(t *testing.T) {
		b, _ := newTestBridge(t, newFakeNode(), time.Hour)
		addr, err := b.Connect(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", addr)
		assert.Equal(t, addr, b.Account())
	})

	t.Run("UserRejected", func(t *testing.T) {
		node := newFakeNode()
		node.reject["eth_requestAccounts"] = true
		b, _ := newTestBridge(t, node, time.Hour)
		_, err := b.Connect(context.Background())
		require.Error(t, err)
		assert.True(t, IsUserRejected(err))
		assert.Equal(t, CodeUserRejected, ErrorCode(err))
	})

	t.Run("FallsBackToAccountsOnPlainNode", func(t *testing.T) {
		node := newFakeNode()
		node.noRequest = true
		b, _ := newTestBridge(t, node, time.Hour)
		_, err := b.Connect(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, node.called("eth_accounts"))
	})

	t.Run("NoAccounts", func(t *testing.T) {
		node := newFakeNode()
		node.setAccounts()
		b, _ := newTestBridge(t, node, time.Hour)
		_, err := b.Connect(context.Background())
		assert.ErrorIs(t, err, ErrNotConnected)
	})
}

func TestBridge_SendTransaction(t *testing.T) {
	node := newFakeNode()
	b, _ := newTestBridge(t, node, time.Hour)
	ctx := context.Background()

	_, err := b.SendTransaction(ctx, Transfer{To: bob, AmountEth: 0.176})
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = b.Connect(ctx)
	require.NoError(t, err)

	_, err = b.SendTransaction(ctx, Transfer{To: "host-42", AmountEth: 0.176})
	assert.ErrorIs(t, err, ErrInvalidAddress)

	hash, err := b.SendTransaction(ctx, Transfer{To: bob, AmountEth: 0.176})
	require.NoError(t, err)
	assert.Equal(t, "0xabc123", hash)

	var tx map[string]string
	require.NoError(t, json.Unmarshal(node.lastParams[0], &tx))
	assert.Equal(t, "0x5208", tx["gas"])
	assert.Equal(t, "0x271471148780000", tx["value"])
	assert.Equal(t, "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359", tx["to"])

	node.mu.Lock()
	node.reject["eth_sendTransaction"] = true
	node.mu.Unlock()
	_, err = b.SendTransaction(ctx, Transfer{To: bob, AmountEth: 0.176})
	assert.True(t, IsUserRejected(err))
}

func TestBridge_SignMessage(t *testing.T) {
	node := newFakeNode()
	b, _ := newTestBridge(t, node, time.Hour)
	ctx := context.Background()
	_, err := b.Connect(ctx)
	require.NoError(t, err)

	sig, err := b.SignMessage(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "0xsig", sig)

	var msg string
	require.NoError(t, json.Unmarshal(node.lastParams[0], &msg))
	assert.Equal(t, "0x68656c6c6f", msg)

	assert.Contains(t, AuthMessage(b.Account(), time.UnixMilli(1700000000000)), "Timestamp: 1700000000000")
}

func TestBridge_Network(t *testing.T) {
	t.Run("SwitchAddsUnknownChain", func(t *testing.T) {
		node := newFakeNode()
		b, _ := newTestBridge(t, node, time.Hour)
		ctx := context.Background()

		ok, err := b.CheckNetwork(ctx)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, b.EnsureNetwork(ctx))
		assert.Equal(t, 1, node.called("wallet_addEthereumChain"))

		ok, err = b.CheckNetwork(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("SwitchRejected", func(t *testing.T) {
		node := newFakeNode()
		node.reject["wallet_switchEthereumChain"] = true
		b, _ := newTestBridge(t, node, time.Hour)
		err := b.SwitchNetwork(context.Background())
		assert.True(t, IsUserRejected(err))
		assert.Zero(t, node.called("wallet_addEthereumChain"))
	})

	t.Run("SameChain", func(t *testing.T) {
		assert.True(t, SameChain("0x539", "0x0539"))
		assert.True(t, SameChain("0x539", "0X539"))
		assert.False(t, SameChain("0x1", "0x539"))
	})
}

func TestBridge_Balance(t *testing.T) {
	b, _ := newTestBridge(t, newFakeNode(), time.Hour)
	wei, err := b.Balance(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", wei.String())
}

func TestBridge_Subscriptions(t *testing.T) {
	node := newFakeNode()
	b, p := newTestBridge(t, node, 10*time.Millisecond)

	changed := make(chan []string, 4)
	b.SetHandlers(Handlers{AccountsChanged: func(a []string) { changed <- a }})

	_, err := b.Connect(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return node.called("eth_accounts") >= 2 }, 2*time.Second, 5*time.Millisecond)
	node.setAccounts(bob)

	select {
	case accounts := <-changed:
		assert.Equal(t, []string{"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"}, accounts)
	case <-time.After(2 * time.Second):
		t.Fatal("accountsChanged not delivered")
	}

	b.Disconnect()
	assert.Empty(t, b.Account())

	p.mu.Lock()
	polling := p.stopPoll != nil
	p.mu.Unlock()
	assert.False(t, polling)
}

func TestProviderError(t *testing.T) {
	err := error(&ProviderError{Code: CodeUserRejected, Message: "no"})
	assert.True(t, errors.Is(err, ErrUserRejected))
	assert.False(t, errors.Is(&ProviderError{Code: 4100}, ErrUserRejected))
	assert.Equal(t, 0, ErrorCode(errors.New("x")))
}
