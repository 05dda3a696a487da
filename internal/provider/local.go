package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"sync"

	"github.com/Mohsinsiddi/zkcstake/internal/wallet"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// DefaultGasFallback is used when eth_estimateGas fails.
const DefaultGasFallback = 120_000

// ErrNoChains is returned by NewLocal when the wallet knows no chain at all.
var ErrNoChains = errors.New("wallet has no chains configured")

// Dialer opens a node connection for a chain's RPC URL.
type Dialer func(ctx context.Context, url string) (*rpc.Client, error)

// Local is a keyring-backed wallet that speaks the Provider protocol. It
// signs with the signing wallets of a wallet.Manager and forwards
// everything it does not handle itself to the active chain's node.
type Local struct {
	mu          sync.Mutex
	wallets     *wallet.Manager
	front       Frontend
	store       StateStore
	builtin     []ChainInfo
	state       *State
	authorized  bool
	dial        Dialer
	clients     map[uint64]*rpc.Client
	gasFallback uint64
	logger      *log.Logger

	accounts Emitter[[]string]
	chains   Emitter[string]
}

// LocalOption configures a Local wallet.
type LocalOption func(*Local)

// WithFrontend sets the consent prompts. Default: reject everything.
func WithFrontend(f Frontend) LocalOption {
	return func(l *Local) { l.front = f }
}

// WithStateStore sets where chain state is persisted. Default: memory.
func WithStateStore(s StateStore) LocalOption {
	return func(l *Local) { l.store = s }
}

// WithChains sets the chains the wallet ships with. The first one is the
// initial active chain.
func WithChains(chains ...ChainInfo) LocalOption {
	return func(l *Local) { l.builtin = append(l.builtin, chains...) }
}

// WithDialer overrides how node connections are opened.
func WithDialer(d Dialer) LocalOption {
	return func(l *Local) { l.dial = d }
}

// WithGasFallback sets the gas limit used when estimation fails.
func WithGasFallback(gas uint64) LocalOption {
	return func(l *Local) { l.gasFallback = gas }
}

// WithLocalLogger sets the wallet's logger.
func WithLocalLogger(lg *log.Logger) LocalOption {
	return func(l *Local) { l.logger = lg }
}

// NewLocal builds a Local wallet over the signing wallets in wallets.
func NewLocal(wallets *wallet.Manager, opts ...LocalOption) (*Local, error) {
	l := &Local{
		wallets:     wallets,
		front:       Approve(false),
		store:       &MemoryState{},
		dial:        rpc.DialContext,
		clients:     make(map[uint64]*rpc.Client),
		gasFallback: DefaultGasFallback,
		logger:      log.New(io.Discard),
	}
	for _, o := range opts {
		o(l)
	}

	signing := wallets.Signing()
	if len(signing) == 0 {
		return nil, ErrNoAccounts
	}

	st, err := l.store.Load()
	if err != nil {
		return nil, err
	}
	l.state = st
	if l.findWallet(st.Account) == nil {
		st.Account = signing[0].Address
	}
	if _, ok := l.chain(st.ActiveChainID); !ok {
		if len(l.builtin) == 0 && len(st.Added) == 0 {
			return nil, ErrNoChains
		}
		if len(l.builtin) > 0 {
			st.ActiveChainID = l.builtin[0].ChainID
		} else {
			st.ActiveChainID = st.Added[0].ChainID
		}
	}
	return l, nil
}

// OnAccountsChanged implements Provider.
func (l *Local) OnAccountsChanged(fn func([]string)) Subscription {
	return l.accounts.Subscribe(fn)
}

// OnChainChanged implements Provider.
func (l *Local) OnChainChanged(fn func(string)) Subscription {
	return l.chains.Subscribe(fn)
}

// Account returns the selected account address.
func (l *Local) Account() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Account
}

// ActiveChain returns the chain the wallet is on.
func (l *Local) ActiveChain() ChainInfo {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, _ := l.chain(l.state.ActiveChainID)
	return c
}

// Chains lists every chain the wallet knows, built-in first.
func (l *Local) Chains() []ChainInfo {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := append([]ChainInfo(nil), l.builtin...)
	for _, c := range l.state.Added {
		if !containsChain(out, c.ChainID) {
			out = append(out, c)
		}
	}
	return out
}

// SelectAccount makes the wallet named (or addressed) by ref the active
// account and notifies listeners when a dapp is connected.
func (l *Local) SelectAccount(ref string) error {
	w, err := l.wallets.Get(ref)
	if err != nil {
		w = l.findWallet(ref)
	}
	if w == nil {
		return fmt.Errorf("%w: %s", wallet.ErrWalletNotFound, ref)
	}
	if !w.CanSign() {
		return fmt.Errorf("wallet %q is watch-only", w.Name)
	}

	l.mu.Lock()
	changed := !strings.EqualFold(l.state.Account, w.Address)
	l.state.Account = w.Address
	notify := changed && l.authorized
	saveErr := l.store.Save(l.state)
	l.mu.Unlock()

	if notify {
		l.accounts.Emit([]string{w.Address})
	}
	return saveErr
}

// Lock revokes the dapp's account access; listeners see an empty list.
func (l *Local) Lock() {
	l.mu.Lock()
	was := l.authorized
	l.authorized = false
	l.mu.Unlock()
	if was {
		l.accounts.Emit([]string{})
	}
}

// Close drops node connections.
func (l *Local) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, c := range l.clients {
		c.Close()
		delete(l.clients, id)
	}
}

// Request implements Provider.
func (l *Local) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	l.logger.Debug("wallet request", "method", method)
	switch method {
	case MethodRequestAccounts:
		return l.requestAccounts()
	case MethodAccounts:
		l.mu.Lock()
		defer l.mu.Unlock()
		if !l.authorized {
			return json.Marshal([]string{})
		}
		return json.Marshal([]string{l.state.Account})
	case MethodChainID:
		return json.Marshal(l.ActiveChain().Hex())
	case MethodSwitchChain:
		var p SwitchChainParams
		if err := decodeParam(params, 0, &p); err != nil {
			return nil, err
		}
		return nullResult(l.switchChain(p.ChainID))
	case MethodAddChain:
		var p AddChainParams
		if err := decodeParam(params, 0, &p); err != nil {
			return nil, err
		}
		return nullResult(l.addChain(p))
	case MethodSendTransaction:
		var p TxRequest
		if err := decodeParam(params, 0, &p); err != nil {
			return nil, err
		}
		return l.sendTransaction(ctx, p)
	default:
		return l.forward(ctx, method, params...)
	}
}

func (l *Local) requestAccounts() (json.RawMessage, error) {
	l.mu.Lock()
	acct, authorized := l.state.Account, l.authorized
	l.mu.Unlock()

	if !authorized {
		if !l.front.ConfirmConnect(acct) {
			return nil, NewError(CodeUserRejected, "user rejected the request")
		}
		l.mu.Lock()
		l.authorized = true
		l.mu.Unlock()
	}
	return json.Marshal([]string{acct})
}

func (l *Local) switchChain(chainHex string) error {
	id, err := ParseChainID(chainHex)
	if err != nil {
		return NewError(CodeInvalidParams, "%v", err)
	}

	l.mu.Lock()
	if _, ok := l.chain(id); !ok {
		l.mu.Unlock()
		return NewError(CodeUnrecognizedChain, "unrecognized chain ID %q", chainHex)
	}
	if l.state.ActiveChainID == id {
		l.mu.Unlock()
		return nil
	}
	l.state.ActiveChainID = id
	err = l.store.Save(l.state)
	l.mu.Unlock()

	if err != nil {
		return NewError(CodeInternal, "saving wallet state: %v", err)
	}
	l.chains.Emit(hexutil.EncodeUint64(id))
	return nil
}

func (l *Local) addChain(p AddChainParams) error {
	id, err := ParseChainID(p.ChainID)
	if err != nil {
		return NewError(CodeInvalidParams, "%v", err)
	}
	if len(p.RPCURLs) == 0 {
		return NewError(CodeInvalidParams, "rpcUrls must not be empty")
	}

	l.mu.Lock()
	_, known := l.chain(id)
	l.mu.Unlock()

	if !known {
		if !l.front.ConfirmAddChain(p) {
			return NewError(CodeUserRejected, "user rejected the request")
		}
		info := ChainInfo{ChainID: id, Name: p.ChainName, RPCURLs: p.RPCURLs}
		if p.NativeCurrency != nil {
			info.Symbol = p.NativeCurrency.Symbol
		}
		if len(p.BlockExplorerURLs) > 0 {
			info.Explorer = p.BlockExplorerURLs[0]
		}
		l.mu.Lock()
		l.state.Added = append(l.state.Added, info)
		err := l.store.Save(l.state)
		l.mu.Unlock()
		if err != nil {
			return NewError(CodeInternal, "saving wallet state: %v", err)
		}
		l.logger.Info("chain added", "chain", id, "name", p.ChainName)
	}

	// Adding a chain also switches to it.
	return l.switchChain(hexutil.EncodeUint64(id))
}

func (l *Local) sendTransaction(ctx context.Context, req TxRequest) (json.RawMessage, error) {
	l.mu.Lock()
	authorized := l.authorized
	acct := l.state.Account
	chain, _ := l.chain(l.state.ActiveChainID)
	l.mu.Unlock()

	if !authorized || !strings.EqualFold(req.From, acct) {
		return nil, NewError(CodeUnauthorized, "account %s is not authorized", req.From)
	}
	if !common.IsHexAddress(req.To) {
		return nil, NewError(CodeInvalidParams, "invalid to address %q", req.To)
	}
	w := l.findWallet(acct)
	if w == nil {
		return nil, NewError(CodeUnauthorized, "account %s is not available", acct)
	}

	data, err := decodeHex(req.Data)
	if err != nil {
		return nil, NewError(CodeInvalidParams, "invalid data: %v", err)
	}
	value := new(big.Int)
	if req.Value != "" {
		if value, err = hexutil.DecodeBig(req.Value); err != nil {
			return nil, NewError(CodeInvalidParams, "invalid value: %v", err)
		}
	}

	if !l.front.ConfirmTransaction(req, chain) {
		return nil, NewError(CodeUserRejected, "user denied transaction signature")
	}

	rc, err := l.client(ctx, chain)
	if err != nil {
		return nil, err
	}
	ec := ethclient.NewClient(rc)
	from := common.HexToAddress(acct)
	to := common.HexToAddress(req.To)

	gas := uint64(0)
	if req.Gas != "" {
		if gas, err = hexutil.DecodeUint64(req.Gas); err != nil {
			return nil, NewError(CodeInvalidParams, "invalid gas: %v", err)
		}
	} else {
		gas, err = ec.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: data, Value: value})
		if err != nil {
			l.logger.Warn("gas estimate failed, using fallback", "err", err, "gas", l.gasFallback)
			gas = l.gasFallback
		}
	}

	gasPrice, err := ec.SuggestGasPrice(ctx)
	if err != nil {
		return nil, mapNodeError(err)
	}
	feeCap := new(big.Int).Mul(gasPrice, big.NewInt(2))
	tip, err := ec.SuggestGasTipCap(ctx)
	if err != nil || tip.Cmp(feeCap) > 0 {
		tip = gasPrice
	}

	nonce, err := ec.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, mapNodeError(err)
	}

	chainID := new(big.Int).SetUint64(chain.ChainID)
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      data,
	})
	signed, err := wallet.NewSigner(w, l.wallets.Keystore()).SignTx(tx, chainID)
	if err != nil {
		return nil, NewError(CodeInternal, "%v", err)
	}
	if err := ec.SendTransaction(ctx, signed); err != nil {
		return nil, mapNodeError(err)
	}
	l.logger.Info("transaction sent", "hash", signed.Hash().Hex(), "chain", chain.ChainID, "nonce", nonce)
	return json.Marshal(signed.Hash().Hex())
}

func (l *Local) forward(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	chain := l.ActiveChain()
	rc, err := l.client(ctx, chain)
	if err != nil {
		return nil, err
	}
	var out json.RawMessage
	if err := rc.CallContext(ctx, &out, method, params...); err != nil {
		return nil, mapNodeError(err)
	}
	return out, nil
}

func (l *Local) client(ctx context.Context, chain ChainInfo) (*rpc.Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.clients[chain.ChainID]; ok {
		return c, nil
	}
	if len(chain.RPCURLs) == 0 {
		return nil, NewError(CodeDisconnected, "no RPC endpoint for chain %d", chain.ChainID)
	}
	c, err := l.dial(ctx, chain.RPCURLs[0])
	if err != nil {
		return nil, NewError(CodeDisconnected, "connecting to %s: %v", chain.RPCURLs[0], err)
	}
	l.clients[chain.ChainID] = c
	return c, nil
}

// chain looks up a known chain. Callers hold l.mu (or are constructing l).
func (l *Local) chain(id uint64) (ChainInfo, bool) {
	for _, c := range l.builtin {
		if c.ChainID == id {
			return c, true
		}
	}
	if l.state != nil {
		for _, c := range l.state.Added {
			if c.ChainID == id {
				return c, true
			}
		}
	}
	return ChainInfo{}, false
}

func (l *Local) findWallet(addr string) *wallet.Wallet {
	if addr == "" {
		return nil
	}
	for _, w := range l.wallets.Signing() {
		if strings.EqualFold(w.Address, addr) {
			return w
		}
	}
	return nil
}

func containsChain(list []ChainInfo, id uint64) bool {
	for _, c := range list {
		if c.ChainID == id {
			return true
		}
	}
	return false
}

// mapNodeError keeps the node's JSON-RPC code when it has one.
func mapNodeError(err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return &Error{Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
	}
	return &Error{Code: CodeInternal, Message: err.Error()}
}

func decodeParam(params []any, i int, dst any) error {
	if len(params) <= i {
		return NewError(CodeInvalidParams, "missing parameter %d", i)
	}
	raw, err := json.Marshal(params[i])
	if err != nil {
		return NewError(CodeInvalidParams, "%v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return NewError(CodeInvalidParams, "%v", err)
	}
	return nil
}

func decodeHex(s string) ([]byte, error) {
	if s == "" || s == "0x" {
		return nil, nil
	}
	return hexutil.Decode(s)
}

func nullResult(err error) (json.RawMessage, error) {
	if err != nil {
		return nil, err
	}
	return json.RawMessage("null"), nil
}
