package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *ProviderError  `json:"error"`
	ID      uint64          `json:"id"`
}

// RPCProvider talks JSON-RPC 2.0 over HTTP to a node or wallet daemon.
// Account and chain events are detected by polling.
type RPCProvider struct {
	url        string
	httpClient *http.Client
	logger     *zerolog.Logger
	interval   time.Duration
	nextID     atomic.Uint64

	mu       sync.Mutex
	subs     map[string]map[uint64]func(json.RawMessage)
	subID    uint64
	stopPoll context.CancelFunc
	pollDone chan struct{}
}

// RPCConfig configures an RPCProvider.
type RPCConfig struct {
	URL           string
	Timeout       time.Duration
	WatchInterval time.Duration
}

func NewRPCProvider(cfg RPCConfig, logger *zerolog.Logger) (*RPCProvider, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("rpc url required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	interval := cfg.WatchInterval
	if interval == 0 {
		interval = 2 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &RPCProvider{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		interval:   interval,
		subs:       make(map[string]map[uint64]func(json.RawMessage)),
	}, nil
}

// Request makes one RPC call. Error objects are returned as *ProviderError.
func (p *RPCProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: p.nextID.Add(1)})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal %s response (http %d): %w", method, resp.StatusCode, err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

// Subscribe registers fn for event. Polling runs while any listener exists.
func (p *RPCProvider) Subscribe(event string, fn func(json.RawMessage)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.subID++
	id := p.subID
	if p.subs[event] == nil {
		p.subs[event] = make(map[uint64]func(json.RawMessage))
	}
	p.subs[event][id] = fn
	if p.stopPoll == nil {
		ctx, cancel := context.WithCancel(context.Background())
		p.stopPoll = cancel
		p.pollDone = make(chan struct{})
		go p.watch(ctx, p.pollDone)
	}

	var once sync.Once
	return func() {
		once.Do(func() { p.unsubscribe(event, id) })
	}
}

func (p *RPCProvider) unsubscribe(event string, id uint64) {
	p.mu.Lock()
	delete(p.subs[event], id)
	if len(p.subs[event]) == 0 {
		delete(p.subs, event)
	}
	// Listeners may unsubscribe from inside a callback, so this must not
	// wait for the poller to exit.
	if len(p.subs) == 0 && p.stopPoll != nil {
		p.stopPoll()
		p.stopPoll, p.pollDone = nil, nil
	}
	p.mu.Unlock()
}

// Close stops polling and drops every listener.
func (p *RPCProvider) Close() {
	p.mu.Lock()
	p.subs = make(map[string]map[uint64]func(json.RawMessage))
	stop, done := p.stopPoll, p.pollDone
	p.stopPoll, p.pollDone = nil, nil
	p.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
}

func (p *RPCProvider) watch(ctx context.Context, done chan struct{}) {
	defer close(done)

	lastAccounts, _ := p.Request(ctx, "eth_accounts")
	lastChain, _ := p.Request(ctx, "eth_chainId")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if accounts, err := p.Request(ctx, "eth_accounts"); err == nil {
			if !bytes.Equal(compact(accounts), compact(lastAccounts)) {
				lastAccounts = accounts
				p.emit(EventAccountsChanged, accounts)
			}
		} else if ctx.Err() == nil {
			p.logger.Debug().Err(err).Msg("poll eth_accounts failed")
		}

		if chain, err := p.Request(ctx, "eth_chainId"); err == nil {
			if !bytes.Equal(compact(chain), compact(lastChain)) {
				lastChain = chain
				p.emit(EventChainChanged, chain)
			}
		} else if ctx.Err() == nil {
			p.logger.Debug().Err(err).Msg("poll eth_chainId failed")
		}
	}
}

func (p *RPCProvider) emit(event string, payload json.RawMessage) {
	p.mu.Lock()
	fns := make([]func(json.RawMessage), 0, len(p.subs[event]))
	for _, fn := range p.subs[event] {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(payload)
	}
}

func compact(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
