package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"rentdapp/internal/models"
	"rentdapp/internal/pricing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
)

// Network describes the chain payments must be sent on.
type Network struct {
	ChainID      string
	ChainName    string
	RPCURL       string
	CurrencyName string
	Symbol       string
	ExplorerURL  string
}

// Handlers receive provider events while the bridge is connected.
type Handlers struct {
	AccountsChanged func(accounts []string)
	ChainChanged    func(chainID string)
}

// Transfer is a plain value transfer from the connected account.
type Transfer struct {
	To        string
	AmountEth float64
}

// Bridge exposes wallet operations on top of a Provider.
type Bridge struct {
	provider Provider
	network  Network
	logger   *zerolog.Logger

	mu       sync.Mutex
	account  string
	handlers Handlers
	unsubs   []func()
}

// NewBridge wraps p, which may be nil when no wallet is installed.
func NewBridge(p Provider, network Network, logger *zerolog.Logger) *Bridge {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Bridge{provider: p, network: network, logger: logger}
}

// Available reports whether a provider is present.
func (b *Bridge) Available() bool {
	return b.provider != nil
}

// SetHandlers sets the listeners attached on the next Connect.
func (b *Bridge) SetHandlers(h Handlers) {
	b.mu.Lock()
	b.handlers = h
	b.mu.Unlock()
}

// Account returns the connected address, or "".
func (b *Bridge) Account() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.account
}

// Connect asks the wallet for account access and subscribes to its events.
func (b *Bridge) Connect(ctx context.Context) (string, error) {
	if b.provider == nil {
		return "", ErrNoProvider
	}

	raw, err := b.provider.Request(ctx, "eth_requestAccounts")
	if ErrorCode(err) == CodeMethodNotFound {
		raw, err = b.provider.Request(ctx, "eth_accounts")
	}
	if err != nil {
		return "", fmt.Errorf("connect wallet: %w", err)
	}

	accounts, err := decodeAccounts(raw)
	if err != nil {
		return "", fmt.Errorf("connect wallet: %w", err)
	}
	if len(accounts) == 0 {
		return "", fmt.Errorf("connect wallet: %w", ErrNotConnected)
	}

	b.mu.Lock()
	b.account = accounts[0]
	b.unsubscribeLocked()
	b.subscribeLocked()
	b.mu.Unlock()

	b.logger.Info().Str("account", accounts[0]).Msg("wallet connected")
	return accounts[0], nil
}

// Disconnect forgets the account and removes event listeners.
func (b *Bridge) Disconnect() {
	b.mu.Lock()
	b.account = ""
	b.unsubscribeLocked()
	b.mu.Unlock()
}

// SetAccount records an account reported by an accountsChanged event.
func (b *Bridge) SetAccount(account string) {
	b.mu.Lock()
	b.account = account
	b.mu.Unlock()
}

func (b *Bridge) subscribeLocked() {
	sub, ok := b.provider.(Subscriber)
	if !ok {
		return
	}
	h := b.handlers
	if h.AccountsChanged != nil {
		b.unsubs = append(b.unsubs, sub.Subscribe(EventAccountsChanged, func(raw json.RawMessage) {
			accounts, err := decodeAccounts(raw)
			if err != nil {
				b.logger.Warn().Err(err).Msg("bad accountsChanged payload")
				return
			}
			current := ""
			if len(accounts) > 0 {
				current = accounts[0]
			}
			b.SetAccount(current)
			h.AccountsChanged(accounts)
		}))
	}
	if h.ChainChanged != nil {
		b.unsubs = append(b.unsubs, sub.Subscribe(EventChainChanged, func(raw json.RawMessage) {
			var chainID string
			if err := json.Unmarshal(raw, &chainID); err != nil {
				b.logger.Warn().Err(err).Msg("bad chainChanged payload")
				return
			}
			h.ChainChanged(chainID)
		}))
	}
}

func (b *Bridge) unsubscribeLocked() {
	for _, unsub := range b.unsubs {
		unsub()
	}
	b.unsubs = nil
}

// CurrentAccount asks the provider for the first authorized account.
func (b *Bridge) CurrentAccount(ctx context.Context) (string, error) {
	if b.provider == nil {
		return "", ErrNoProvider
	}
	raw, err := b.provider.Request(ctx, "eth_accounts")
	if err != nil {
		return "", fmt.Errorf("current account: %w", err)
	}
	accounts, err := decodeAccounts(raw)
	if err != nil {
		return "", fmt.Errorf("current account: %w", err)
	}
	if len(accounts) == 0 {
		return "", nil
	}
	return accounts[0], nil
}

// SignMessage signs message with the connected account (personal_sign).
func (b *Bridge) SignMessage(ctx context.Context, message string) (string, error) {
	account := b.Account()
	if b.provider == nil {
		return "", ErrNoProvider
	}
	if account == "" {
		return "", ErrNotConnected
	}
	raw, err := b.provider.Request(ctx, "personal_sign", hexutil.Encode([]byte(message)), account)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	var sig string
	if err := json.Unmarshal(raw, &sig); err != nil {
		return "", fmt.Errorf("sign message: decode signature: %w", err)
	}
	return sig, nil
}

// SendTransaction submits a transfer and returns its hash.
func (b *Bridge) SendTransaction(ctx context.Context, t Transfer) (string, error) {
	account := b.Account()
	if b.provider == nil {
		return "", ErrNoProvider
	}
	if account == "" {
		return "", ErrNotConnected
	}
	if !common.IsHexAddress(t.To) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, t.To)
	}
	value, err := pricing.WeiHex(t.AmountEth)
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}

	tx := map[string]string{
		"from":  account,
		"to":    common.HexToAddress(t.To).Hex(),
		"value": value,
		"gas":   hexutil.EncodeUint64(models.TransferGas),
	}
	raw, err := b.provider.Request(ctx, "eth_sendTransaction", tx)
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}
	var hash string
	if err := json.Unmarshal(raw, &hash); err != nil {
		return "", fmt.Errorf("send transaction: decode hash: %w", err)
	}
	if hash == "" {
		return "", fmt.Errorf("send transaction: %w", ErrUserRejected)
	}
	return hash, nil
}

// ChainID returns the provider's current chain id.
func (b *Bridge) ChainID(ctx context.Context) (string, error) {
	if b.provider == nil {
		return "", ErrNoProvider
	}
	raw, err := b.provider.Request(ctx, "eth_chainId")
	if err != nil {
		return "", fmt.Errorf("chain id: %w", err)
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return "", fmt.Errorf("chain id: %w", err)
	}
	return id, nil
}

// CheckNetwork reports whether the provider is on the configured chain.
func (b *Bridge) CheckNetwork(ctx context.Context) (bool, error) {
	id, err := b.ChainID(ctx)
	if err != nil {
		return false, err
	}
	return SameChain(id, b.network.ChainID), nil
}

// SwitchNetwork moves the wallet to the configured chain, adding it first
// when the wallet does not know it.
func (b *Bridge) SwitchNetwork(ctx context.Context) error {
	if b.provider == nil {
		return ErrNoProvider
	}
	_, err := b.provider.Request(ctx, "wallet_switchEthereumChain", map[string]string{"chainId": b.network.ChainID})
	if err == nil {
		return nil
	}
	if ErrorCode(err) != CodeUnrecognizedChain {
		return fmt.Errorf("switch network: %w", err)
	}
	if err := b.addNetwork(ctx); err != nil {
		return fmt.Errorf("switch network: %w", err)
	}
	return nil
}

func (b *Bridge) addNetwork(ctx context.Context) error {
	params := map[string]any{
		"chainId":   b.network.ChainID,
		"chainName": b.network.ChainName,
		"rpcUrls":   []string{b.network.RPCURL},
	}
	if b.network.Symbol != "" {
		params["nativeCurrency"] = map[string]any{
			"name":     b.network.CurrencyName,
			"symbol":   b.network.Symbol,
			"decimals": 18,
		}
	}
	if b.network.ExplorerURL != "" {
		params["blockExplorerUrls"] = []string{b.network.ExplorerURL}
	}
	_, err := b.provider.Request(ctx, "wallet_addEthereumChain", params)
	return err
}

// EnsureNetwork switches networks when needed and fails if still wrong.
func (b *Bridge) EnsureNetwork(ctx context.Context) error {
	ok, err := b.CheckNetwork(ctx)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if err := b.SwitchNetwork(ctx); err != nil {
		return err
	}
	if ok, err = b.CheckNetwork(ctx); err != nil {
		return err
	}
	if !ok {
		return ErrWrongNetwork
	}
	return nil
}

// Balance returns the on-chain balance of address in wei.
func (b *Bridge) Balance(ctx context.Context, address string) (*big.Int, error) {
	if b.provider == nil {
		return nil, ErrNoProvider
	}
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	raw, err := b.provider.Request(ctx, "eth_getBalance", common.HexToAddress(address).Hex(), "latest")
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	var hex string
	if err := json.Unmarshal(raw, &hex); err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return hexutil.DecodeBig(hex)
}

// AuthMessage is the text a user signs to prove wallet ownership.
func AuthMessage(address string, now time.Time) string {
	return fmt.Sprintf("Sign this message to authenticate with Real Estate Rent DApp.\n\nWallet: %s\nTimestamp: %d", address, now.UnixMilli())
}

// SameChain compares two hex chain ids numerically.
func SameChain(a, b string) bool {
	x, errA := hexutil.DecodeBig(normalizeHex(a))
	y, errB := hexutil.DecodeBig(normalizeHex(b))
	if errA != nil || errB != nil {
		return strings.EqualFold(a, b)
	}
	return x.Cmp(y) == 0
}

// normalizeHex strips leading zeros, which hexutil rejects.
func normalizeHex(s string) string {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return s
	}
	digits := strings.TrimLeft(s[2:], "0")
	if digits == "" {
		digits = "0"
	}
	return "0x" + digits
}

func decodeAccounts(raw json.RawMessage) ([]string, error) {
	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	out := make([]string, 0, len(accounts))
	for _, a := range accounts {
		if !common.IsHexAddress(a) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, a)
		}
		out = append(out, common.HexToAddress(a).Hex())
	}
	return out, nil
}

// IsUserRejected reports whether err came from the user declining a prompt.
func IsUserRejected(err error) bool {
	return errors.Is(err, ErrUserRejected)
}
