// Package stake reads an account's token and staking position and submits
// the approve, stake and delegate transactions that change it.
package stake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/Mohsinsiddi/zkcstake/internal/contract"
	"github.com/Mohsinsiddi/zkcstake/internal/network"
	"github.com/Mohsinsiddi/zkcstake/internal/provider"
	"github.com/Mohsinsiddi/zkcstake/internal/session"
	"github.com/Mohsinsiddi/zkcstake/internal/units"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotConnected        = errors.New("wallet not connected")
	ErrWrongNetwork        = errors.New("wallet is on a different network")
	ErrReadFailed          = errors.New("reading account state failed")
	ErrTransactionRejected = errors.New("transaction rejected in wallet")
	ErrTransactionReverted = errors.New("transaction reverted")
	ErrApprovalRequired    = errors.New("allowance too low, approve first")
	ErrActionInFlight      = errors.New("another transaction is still pending")
	ErrInvalidDelegate     = errors.New("invalid delegate address")
	ErrInvalidAmount       = errors.New("invalid amount")
)

// DefaultPollInterval is how often a pending receipt is polled.
const DefaultPollInterval = 2 * time.Second

// Wallet is what the coordinator needs from the connected wallet.
// *provider.Client satisfies it.
type Wallet interface {
	ethereum.ContractCaller
	SendTransaction(ctx context.Context, from, to common.Address, data []byte) (common.Hash, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// SessionSource exposes the current wallet session. *session.Manager
// satisfies it.
type SessionSource interface {
	Snapshot() session.WalletSession
}

// FinancialState is one consistent read of an account's position. It is
// replaced wholesale on every refresh and never modified.
type FinancialState struct {
	Account        common.Address
	ChainID        uint64
	TokenBalance   *big.Int
	StakedAmount   *big.Int
	WithdrawalTime *big.Int
	Allowance      *big.Int
	Delegate       common.Address
	FetchedAt      time.Time
}

// HasDelegate reports whether a reward delegate is set.
func (s *FinancialState) HasDelegate() bool {
	return s.Delegate != (common.Address{})
}

// Withdrawable returns the withdrawal time, or the zero time when the
// contract reports none.
func (s *FinancialState) Withdrawable() time.Time {
	if s.WithdrawalTime == nil || s.WithdrawalTime.Sign() == 0 || !s.WithdrawalTime.IsInt64() {
		return time.Time{}
	}
	return time.Unix(s.WithdrawalTime.Int64(), 0)
}

// Result describes a confirmed write.
type Result struct {
	Hash    common.Hash
	Receipt *types.Receipt

	// Staked is the decoded Staked event of a stake transaction, if emitted.
	Staked *contract.StakedEvent

	// ClearInput tells the caller to reset the amount field.
	ClearInput bool

	// RefreshErr is set when the transaction confirmed but the follow-up
	// read failed; the previous state is kept.
	RefreshErr error
}

// Coordinator owns FinancialState for the selected network.
type Coordinator struct {
	sess    SessionSource
	wallet  Wallet
	logger  *log.Logger
	poll    time.Duration
	timeout time.Duration

	mu        sync.Mutex
	profile   network.Profile
	state     *FinancialState
	busy      bool
	lastErr   error
	seq       uint64 // refreshes started
	committed uint64 // seq of the refresh that produced state
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithPollInterval sets how often pending receipts are polled.
func WithPollInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.poll = d }
}

// WithConfirmTimeout bounds the wait for a receipt. Zero waits until the
// caller's context ends.
func WithConfirmTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.timeout = d }
}

// NewCoordinator returns a Coordinator showing profile.
func NewCoordinator(sess SessionSource, w Wallet, profile network.Profile, opts ...Option) *Coordinator {
	c := &Coordinator{
		sess:    sess,
		wallet:  w,
		profile: profile,
		logger:  log.New(io.Discard),
		poll:    DefaultPollInterval,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Network returns the selected profile.
func (c *Coordinator) Network() network.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

// SelectNetwork changes the displayed network. State read for another
// network is dropped.
func (c *Coordinator) SelectNetwork(p network.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.profile.Key != p.Key || c.profile.ChainID != p.ChainID {
		c.state = nil
	}
	c.profile = p
}

// Busy reports whether a write is pending.
func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// LastError returns the error of the most recent failed operation, cleared
// by the next successful one.
func (c *Coordinator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Current returns the last state if it still describes the connected
// account on the selected network. Anything else is withheld.
func (c *Coordinator) Current() (*FinancialState, bool) {
	s := c.sess.Snapshot()
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state
	if st == nil || !s.OnChain(c.profile) || st.Account != s.Account || st.ChainID != s.ChainID {
		return nil, false
	}
	return st, true
}

// Refresh reads balance, staked position, allowance and delegate
// concurrently. Either all four land in a new FinancialState or the old
// one is kept. Overlapping refreshes land in the order they started: a read
// begun before a newer one committed returns the newer state instead.
func (c *Coordinator) Refresh(ctx context.Context) (*FinancialState, error) {
	s := c.sess.Snapshot()
	c.mu.Lock()
	c.seq++
	seq := c.seq
	p := c.profile
	c.mu.Unlock()
	if err := checkSession(s, p); err != nil {
		return nil, c.record(err)
	}

	token := contract.NewToken(p.Token, c.wallet)
	staking, err := contract.NewStaking(p.Staking, p.StakingABI, c.wallet)
	if err != nil {
		return nil, c.record(fmt.Errorf("%w: %w", ErrReadFailed, err))
	}

	var (
		balance, allowance *big.Int
		position           contract.Position
		delegate           common.Address
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		balance, err = token.BalanceOf(gctx, s.Account)
		return err
	})
	g.Go(func() (err error) {
		position, err = staking.Position(gctx, s.Account)
		return err
	})
	g.Go(func() (err error) {
		allowance, err = token.Allowance(gctx, s.Account, p.Staking)
		return err
	})
	g.Go(func() (err error) {
		delegate, err = staking.RewardDelegate(gctx, s.Account)
		return err
	})
	if err := g.Wait(); err != nil {
		c.logger.Error("refresh failed", "network", p.Key, "account", s.Account.Hex(), "err", err)
		return nil, c.record(fmt.Errorf("%w: %w", ErrReadFailed, err))
	}

	st := &FinancialState{
		Account:        s.Account,
		ChainID:        s.ChainID,
		TokenBalance:   balance,
		StakedAmount:   position.Amount,
		WithdrawalTime: position.WithdrawableAt,
		Allowance:      allowance,
		Delegate:       delegate,
		FetchedAt:      time.Now(),
	}

	c.mu.Lock()
	// The user may have switched network while the reads were in flight.
	if c.profile.ChainID != p.ChainID {
		c.mu.Unlock()
		return nil, c.record(fmt.Errorf("%w: network changed during refresh", ErrReadFailed))
	}
	if seq < c.committed && c.state != nil {
		cur := c.state
		c.mu.Unlock()
		c.logger.Debug("dropping stale refresh", "network", p.Key, "seq", seq)
		return cur, nil
	}
	c.state = st
	c.committed = seq
	c.lastErr = nil
	c.mu.Unlock()
	c.logger.Debug("state refreshed", "network", p.Key, "balance", units.FormatEther(balance), "allowance", units.FormatEther(allowance))
	return st, nil
}

// Approve sets the staking contract's allowance to amount, waits for the
// receipt and refreshes.
func (c *Coordinator) Approve(ctx context.Context, amount string) (*Result, error) {
	wei, err := parseAmount(amount)
	if err != nil {
		return nil, c.record(err)
	}
	p := c.Network()
	data, err := contract.NewToken(p.Token, c.wallet).PackApprove(p.Staking, wei)
	if err != nil {
		return nil, c.record(err)
	}
	return c.submit(ctx, "approve", p.Token, data, nil)
}

// Stake stakes amount. The current allowance must already cover it.
func (c *Coordinator) Stake(ctx context.Context, amount string) (*Result, error) {
	wei, err := parseAmount(amount)
	if err != nil {
		return nil, c.record(err)
	}

	st, ok := c.Current()
	if !ok {
		if st, err = c.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	needs, err := NeedsApproval(amount, st.Allowance)
	if err != nil {
		return nil, c.record(fmt.Errorf("%w: %w", ErrInvalidAmount, err))
	}
	if needs {
		return nil, c.record(fmt.Errorf("%w: allowance %s < %s", ErrApprovalRequired,
			units.FormatEther(st.Allowance), units.FormatEther(wei)))
	}

	p := c.Network()
	staking, err := contract.NewStaking(p.Staking, p.StakingABI, c.wallet)
	if err != nil {
		return nil, c.record(err)
	}
	data, err := staking.PackStake(wei)
	if err != nil {
		return nil, c.record(err)
	}
	return c.submit(ctx, "stake", p.Staking, data, func(r *Result) {
		r.ClearInput = true
		if ev, ok := contract.StakedFromReceipt(r.Receipt, p.Staking); ok {
			r.Staked = ev
		}
	})
}

// DelegateRewards assigns reward rights to delegatee.
func (c *Coordinator) DelegateRewards(ctx context.Context, delegatee string) (*Result, error) {
	delegatee = strings.TrimSpace(delegatee)
	if delegatee == "" || !common.IsHexAddress(delegatee) {
		return nil, c.record(fmt.Errorf("%w: %q", ErrInvalidDelegate, delegatee))
	}
	p := c.Network()
	staking, err := contract.NewStaking(p.Staking, p.StakingABI, c.wallet)
	if err != nil {
		return nil, c.record(err)
	}
	data, err := staking.PackDelegate(common.HexToAddress(delegatee))
	if err != nil {
		return nil, c.record(err)
	}
	return c.submit(ctx, "delegate", p.Staking, data, nil)
}

// submit sends one write and blocks until it is mined, then refreshes.
// Only one write may be pending at a time.
func (c *Coordinator) submit(ctx context.Context, kind string, to common.Address, data []byte, done func(*Result)) (*Result, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return nil, ErrActionInFlight
	}
	c.busy = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	s := c.sess.Snapshot()
	if err := checkSession(s, c.Network()); err != nil {
		return nil, c.record(err)
	}

	hash, err := c.wallet.SendTransaction(ctx, s.Account, to, data)
	if err != nil {
		if provider.IsUserRejected(err) {
			c.logger.Info(kind+" rejected in wallet")
			return nil, c.record(fmt.Errorf("%w: %w", ErrTransactionRejected, err))
		}
		c.logger.Error(kind+" failed", "err", err)
		return nil, c.record(fmt.Errorf("sending %s: %w", kind, err))
	}
	c.logger.Info(kind+" sent", "hash", hash.Hex())

	receipt, err := c.waitReceipt(ctx, hash)
	if err != nil {
		c.logger.Error(kind+" confirmation failed", "hash", hash.Hex(), "err", err)
		return nil, c.record(fmt.Errorf("waiting for %s %s: %w", kind, hash.Hex(), err))
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		c.logger.Error(kind+" reverted", "hash", hash.Hex(), "block", receipt.BlockNumber)
		return &Result{Hash: hash, Receipt: receipt}, c.record(fmt.Errorf("%w: %s %s", ErrTransactionReverted, kind, hash.Hex()))
	}
	c.logger.Info(kind+" confirmed", "hash", hash.Hex(), "block", receipt.BlockNumber, "gas", receipt.GasUsed)

	res := &Result{Hash: hash, Receipt: receipt}
	if done != nil {
		done(res)
	}
	if _, err := c.Refresh(ctx); err != nil {
		res.RefreshErr = err
	}
	return res, nil
}

func (c *Coordinator) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()
	for {
		r, err := c.wallet.TransactionReceipt(ctx, hash)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Coordinator) record(err error) error {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	return err
}

func checkSession(s session.WalletSession, p network.Profile) error {
	if !s.Connected {
		return ErrNotConnected
	}
	if s.ChainID != p.ChainID {
		return fmt.Errorf("%w: wallet on chain %d, %s is chain %d", ErrWrongNetwork, s.ChainID, p.DisplayName, p.ChainID)
	}
	return nil
}

func parseAmount(s string) (*big.Int, error) {
	wei, err := units.ParseEther(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}
	if wei.Sign() == 0 {
		return nil, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidAmount)
	}
	return wei, nil
}
