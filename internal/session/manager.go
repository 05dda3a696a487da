// Package session owns the wallet connection: which account is connected,
// which chain the wallet is on, and the listeners that keep both current.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/Mohsinsiddi/zkcstake/internal/network"
	"github.com/Mohsinsiddi/zkcstake/internal/provider"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
)

// Session errors. Wallet errors are wrapped so the provider code stays
// reachable with errors.As.
var (
	ErrProviderUnavailable = errors.New("no wallet available")
	ErrUserRejected        = errors.New("user rejected the request")
	ErrUnknownChain        = errors.New("chain not registered with wallet")
	ErrNetworkAddFailed    = errors.New("adding network to wallet failed")
	ErrProviderError       = errors.New("wallet error")
)

// Status is the coarse connection state shown to the user.
type Status int

const (
	Disconnected Status = iota
	Connecting
	Connected
	WrongNetwork
)

func (s Status) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case WrongNetwork:
		return "wrong network"
	default:
		return "disconnected"
	}
}

// WalletSession is a point-in-time copy of the connection.
type WalletSession struct {
	Account   common.Address
	ChainID   uint64
	Connected bool
	Err       string
}

// OnChain reports whether the session is connected to profile's chain.
func (s WalletSession) OnChain(p network.Profile) bool {
	return s.Connected && s.ChainID == p.ChainID
}

// Manager is the only writer of the WalletSession.
type Manager struct {
	p      provider.Provider
	client *provider.Client
	logger *log.Logger

	mu         sync.Mutex
	state      WalletSession
	connecting bool
	subs       []provider.Subscription

	observers provider.Emitter[WalletSession]
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger failures and transitions are written to.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager returns a Manager over p. A nil p means no wallet is installed;
// every wallet operation then fails with ErrProviderUnavailable.
func NewManager(p provider.Provider, opts ...Option) *Manager {
	m := &Manager{p: p, logger: log.New(io.Discard)}
	if p != nil {
		m.client = provider.NewClient(p)
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Client is the signer handle reads and writes go through. Nil when no
// wallet is available.
func (m *Manager) Client() *provider.Client { return m.client }

// Snapshot returns the current session.
func (m *Manager) Snapshot() WalletSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status derives the connection status relative to the selected profile.
func (m *Manager) Status(p network.Profile) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.connecting:
		return Connecting
	case !m.state.Connected:
		return Disconnected
	case m.state.ChainID != p.ChainID:
		return WrongNetwork
	default:
		return Connected
	}
}

// OnChange registers fn to run after every session mutation.
func (m *Manager) OnChange(fn func(WalletSession)) provider.Subscription {
	return m.observers.Subscribe(fn)
}

// Connect requests account access and records the first account and the
// wallet's chain. Listeners are registered once per session.
func (m *Manager) Connect(ctx context.Context) error {
	if m.p == nil {
		return m.fail("connect", ErrProviderUnavailable)
	}

	m.mu.Lock()
	m.connecting = true
	m.state.Err = ""
	m.mu.Unlock()
	m.notify()

	accounts, err := m.client.RequestAccounts(ctx)
	if err == nil && len(accounts) == 0 {
		err = provider.ErrNoAccounts
	}
	if err != nil {
		m.setConnecting(false)
		return m.fail("connect", classify(err))
	}
	chainID, err := m.client.ChainID(ctx)
	if err != nil {
		m.setConnecting(false)
		return m.fail("connect", classify(err))
	}

	m.mu.Lock()
	m.connecting = false
	m.state = WalletSession{Account: accounts[0], ChainID: chainID, Connected: true}
	if m.subs == nil {
		m.subs = []provider.Subscription{
			m.p.OnAccountsChanged(m.accountsChanged),
			m.p.OnChainChanged(m.chainChanged),
		}
	}
	m.mu.Unlock()

	m.logger.Info("wallet connected", "account", accounts[0].Hex(), "chain", chainID)
	m.notify()
	return nil
}

// SwitchNetwork asks the wallet to move to target's chain, registering the
// chain first when the wallet does not know it. The session's chain id is
// updated by the wallet's chainChanged notification, not here.
func (m *Manager) SwitchNetwork(ctx context.Context, target network.Profile) error {
	if m.p == nil {
		return m.fail("switch network", ErrProviderUnavailable)
	}

	err := m.client.SwitchChain(ctx, target.ChainIDHex())
	if err == nil {
		m.clearErr()
		return nil
	}
	if !provider.IsUnrecognizedChain(err) {
		return m.fail("switch network", classify(err))
	}

	m.logger.Info("chain unknown to wallet, requesting add", "chain", target.ChainID, "name", target.DisplayName)
	if addErr := m.client.AddChain(ctx, AddChainParams(target)); addErr != nil {
		return m.fail("add network", fmt.Errorf("%w (%w): %w", ErrNetworkAddFailed, ErrUnknownChain, addErr))
	}
	m.clearErr()
	return nil
}

// AddChainParams builds the wallet_addEthereumChain payload for p.
func AddChainParams(p network.Profile) provider.AddChainParams {
	params := provider.AddChainParams{
		ChainID:   p.ChainIDHex(),
		ChainName: p.DisplayName,
		RPCURLs:   []string{p.RPCURL},
	}
	if p.Currency != "" {
		params.NativeCurrency = &provider.NativeCurrency{Name: p.Currency, Symbol: p.Currency, Decimals: 18}
	}
	if p.Explorer != "" {
		params.BlockExplorerURLs = []string{p.Explorer}
	}
	return params
}

// Disconnect forgets the session locally and drops the listeners. The
// wallet's own authorization is untouched.
func (m *Manager) Disconnect() {
	m.reset("disconnected")
}

// Close removes the wallet listeners. The session itself is kept; a later
// Connect registers them again.
func (m *Manager) Close() {
	m.mu.Lock()
	subs := m.subs
	m.subs = nil
	m.mu.Unlock()
	for _, s := range subs {
		s.Unsubscribe()
	}
}

func (m *Manager) reset(reason string) {
	m.mu.Lock()
	was := m.state.Connected
	m.state = WalletSession{}
	subs := m.subs
	m.subs = nil
	m.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
	if was {
		m.logger.Info("wallet session cleared", "reason", reason)
	}
	m.notify()
}

func (m *Manager) accountsChanged(accounts []string) {
	if len(accounts) == 0 {
		m.reset("wallet reported no accounts")
		return
	}
	addrs, err := provider.ParseAccounts(accounts[:1])
	if err != nil {
		m.logger.Warn("ignoring accountsChanged", "err", err)
		return
	}

	m.mu.Lock()
	if !m.state.Connected {
		m.mu.Unlock()
		return
	}
	m.state.Account = addrs[0]
	m.mu.Unlock()

	m.logger.Info("account changed", "account", addrs[0].Hex())
	m.notify()
}

func (m *Manager) chainChanged(hexID string) {
	id, err := provider.ParseChainID(hexID)
	if err != nil {
		m.logger.Warn("ignoring chainChanged", "err", err)
		return
	}

	m.mu.Lock()
	if !m.state.Connected {
		m.mu.Unlock()
		return
	}
	m.state.ChainID = id
	m.mu.Unlock()

	m.logger.Info("chain changed", "chain", id)
	m.notify()
}

func (m *Manager) fail(op string, err error) error {
	m.logger.Error(op+" failed", "err", err)
	m.mu.Lock()
	m.state.Err = err.Error()
	m.mu.Unlock()
	m.notify()
	return err
}

func (m *Manager) clearErr() {
	m.mu.Lock()
	changed := m.state.Err != ""
	m.state.Err = ""
	m.mu.Unlock()
	if changed {
		m.notify()
	}
}

func (m *Manager) setConnecting(v bool) {
	m.mu.Lock()
	m.connecting = v
	m.mu.Unlock()
}

func (m *Manager) notify() {
	m.observers.Emit(m.Snapshot())
}

// classify maps a wallet error onto the session taxonomy.
func classify(err error) error {
	switch {
	case provider.IsUserRejected(err):
		return fmt.Errorf("%w: %w", ErrUserRejected, err)
	case errors.Is(err, ErrProviderUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrProviderError, err)
	}
}
