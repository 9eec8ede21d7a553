package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Provider error codes defined by EIP-1193 and EIP-3326, plus JSON-RPC ones.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnrecognizedChain = 4902
	CodeMethodNotFound    = -32601
)

// Provider events.
const (
	EventAccountsChanged = "accountsChanged"
	EventChainChanged    = "chainChanged"
)

// Provider is an EIP-1193 style request channel to a wallet.
type Provider interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// Subscriber is implemented by providers that emit account and chain events.
// The returned func removes the listener.
type Subscriber interface {
	Subscribe(event string, fn func(json.RawMessage)) (unsubscribe func())
}

// ProviderError is an error object returned by the wallet.
type ProviderError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// Is makes errors.Is(err, ErrUserRejected) true for code 4001.
func (e *ProviderError) Is(target error) bool {
	return target == ErrUserRejected && e.Code == CodeUserRejected
}

var (
	ErrNoProvider     = errors.New("wallet provider not available")
	ErrNotConnected   = errors.New("wallet not connected")
	ErrUserRejected   = errors.New("request rejected by user")
	ErrInvalidAddress = errors.New("invalid wallet address")
	ErrWrongNetwork   = errors.New("wallet is on the wrong network")
)

// ErrorCode returns the provider code carried by err, or 0.
func ErrorCode(err error) int {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return 0
}
