// Package provider models an EIP-1193 wallet: a request/response channel plus
// pushed account and chain notifications. The rest of zkcstake talks to a
// wallet only through this interface.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Wallet RPC methods.
const (
	MethodRequestAccounts = "eth_requestAccounts"
	MethodAccounts        = "eth_accounts"
	MethodChainID         = "eth_chainId"
	MethodSwitchChain     = "wallet_switchEthereumChain"
	MethodAddChain        = "wallet_addEthereumChain"
	MethodSendTransaction = "eth_sendTransaction"
	MethodCall            = "eth_call"
	MethodGetReceipt      = "eth_getTransactionReceipt"
	MethodGetCode         = "eth_getCode"
	MethodGetStorageAt    = "eth_getStorageAt"
)

// EIP-1193 / EIP-3326 error codes.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupported       = 4200
	CodeDisconnected      = 4900
	CodeUnrecognizedChain = 4902
	CodeInvalidParams     = -32602
	CodeInternal          = -32603
)

// Provider is the injected wallet capability.
type Provider interface {
	// Request performs one JSON-RPC style call against the wallet.
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
	// OnAccountsChanged registers fn for accountsChanged notifications.
	OnAccountsChanged(fn func(accounts []string)) Subscription
	// OnChainChanged registers fn for chainChanged notifications (hex chain id).
	OnChainChanged(fn func(chainID string)) Subscription
}

// Subscription is the handle returned by listener registration.
type Subscription interface {
	Unsubscribe()
}

// Error is a wallet error carrying an EIP-1193 code.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// NewError builds a coded provider error.
func NewError(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrorCode extracts the provider code from err, or 0 when err carries none.
func ErrorCode(err error) int {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return 0
}

// IsUserRejected reports whether the user declined a wallet prompt.
func IsUserRejected(err error) bool { return ErrorCode(err) == CodeUserRejected }

// IsUnrecognizedChain reports whether the wallet does not know the chain.
func IsUnrecognizedChain(err error) bool { return ErrorCode(err) == CodeUnrecognizedChain }

// AddChainParams is the wallet_addEthereumChain payload (EIP-3085).
type AddChainParams struct {
	ChainID           string          `json:"chainId"`
	ChainName         string          `json:"chainName"`
	RPCURLs           []string        `json:"rpcUrls"`
	NativeCurrency    *NativeCurrency `json:"nativeCurrency,omitempty"`
	BlockExplorerURLs []string        `json:"blockExplorerUrls,omitempty"`
}

// NativeCurrency describes a chain's gas token.
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// SwitchChainParams is the wallet_switchEthereumChain payload (EIP-3326).
type SwitchChainParams struct {
	ChainID string `json:"chainId"`
}

// TxRequest is the eth_sendTransaction payload.
type TxRequest struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Data  string `json:"data,omitempty"`
	Value string `json:"value,omitempty"`
	Gas   string `json:"gas,omitempty"`
}
