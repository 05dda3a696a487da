package ui

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/Mohsinsiddi/zkcstake/internal/contract"
	"github.com/Mohsinsiddi/zkcstake/internal/network"
	"github.com/Mohsinsiddi/zkcstake/internal/provider"
	"github.com/Mohsinsiddi/zkcstake/internal/session"
	"github.com/Mohsinsiddi/zkcstake/internal/stake"
	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sepolia = network.NewRegistry().Get("sepolia")
	mainnet = network.NewRegistry().Get("mainnet")
	acct    = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

type fakeSession struct {
	s           session.WalletSession
	connectErr  error
	switchedTo  []string
	disconnects int
	obs         provider.Emitter[session.WalletSession]
}

func (f *fakeSession) Snapshot() session.WalletSession { return f.s }

func (f *fakeSession) Status(p network.Profile) session.Status {
	switch {
	case !f.s.Connected:
		return session.Disconnected
	case f.s.ChainID != p.ChainID:
		return session.WrongNetwork
	}
	return session.Connected
}

func (f *fakeSession) Connect(context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.s = session.WalletSession{Account: acct, ChainID: sepolia.ChainID, Connected: true}
	return nil
}

func (f *fakeSession) SwitchNetwork(_ context.Context, p network.Profile) error {
	f.switchedTo = append(f.switchedTo, p.Key)
	return nil
}

func (f *fakeSession) Disconnect() {
	f.disconnects++
	f.s = session.WalletSession{}
}

func (f *fakeSession) OnChange(fn func(session.WalletSession)) provider.Subscription {
	return f.obs.Subscribe(fn)
}

type fakeStaker struct {
	profile   network.Profile
	state     *stake.FinancialState
	refreshes int
	approved  []string
	staked    []string
	delegated []string
	writeErr  error
}

func (f *fakeStaker) Network() network.Profile        { return f.profile }
func (f *fakeStaker) SelectNetwork(p network.Profile) { f.profile = p }
func (f *fakeStaker) Busy() bool                      { return false }

func (f *fakeStaker) Current() (*stake.FinancialState, bool) {
	if f.state == nil || f.state.ChainID != f.profile.ChainID {
		return nil, false
	}
	return f.state, true
}

func (f *fakeStaker) Refresh(context.Context) (*stake.FinancialState, error) {
	f.refreshes++
	return f.state, nil
}

func (f *fakeStaker) result() (*stake.Result, error) {
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	return &stake.Result{Hash: common.HexToHash("0xabc")}, nil
}

func (f *fakeStaker) Approve(_ context.Context, amount string) (*stake.Result, error) {
	f.approved = append(f.approved, amount)
	return f.result()
}

func (f *fakeStaker) Stake(_ context.Context, amount string) (*stake.Result, error) {
	f.staked = append(f.staked, amount)
	res, err := f.result()
	if err == nil {
		res.ClearInput = true
		res.Staked = &contract.StakedEvent{User: acct, Amount: ether(10)}
	}
	return res, err
}

func (f *fakeStaker) DelegateRewards(_ context.Context, to string) (*stake.Result, error) {
	f.delegated = append(f.delegated, to)
	return f.result()
}

// newDash builds a dashboard with non-blinking cursors so input commands
// never wait on a timer.
func newDash(cfg DashboardConfig) DashboardModel {
	m := NewDashboard(context.Background(), cfg)
	m.amount.Cursor.SetMode(cursor.CursorStatic)
	m.deleg.Cursor.SetMode(cursor.CursorStatic)
	return m
}

func connectedDash(t *testing.T) (DashboardModel, *fakeSession, *fakeStaker) {
	t.Helper()
	sess := &fakeSession{s: session.WalletSession{Account: acct, ChainID: sepolia.ChainID, Connected: true}}
	st := &fakeStaker{profile: sepolia, state: &stake.FinancialState{
		Account:        acct,
		ChainID:        sepolia.ChainID,
		TokenBalance:   ether(1000),
		StakedAmount:   ether(5),
		WithdrawalTime: big.NewInt(0),
		Allowance:      ether(50),
		FetchedAt:      time.Now(),
	}}
	m := newDash(DashboardConfig{
		Session:  sess,
		Staker:   st,
		Networks: []network.Profile{sepolia, mainnet},
		Copy:     func(string) error { return nil },
	})
	return m, sess, st
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send applies msg and then runs any command it produced, feeding the
// non-batch results back in, until the model settles.
func send(t *testing.T, m DashboardModel, msg tea.Msg) DashboardModel {
	t.Helper()
	queue := []tea.Msg{msg}
	for i := 0; len(queue) > 0 && i < 20; i++ {
		next, cmd := m.Update(queue[0])
		queue = queue[1:]
		m = next.(DashboardModel)
		queue = append(queue, drain(cmd)...)
	}
	return m
}

// drain runs cmd, unpacking batches and skipping timer-driven messages.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, drain(c)...)
		}
		return out
	case refreshedMsg, connectedMsg, switchedMsg, copiedMsg, txMsg:
		return []tea.Msg{msg}
	}
	return nil
}

func typeAmount(t *testing.T, m DashboardModel, s string) DashboardModel {
	for _, r := range s {
		m = send(t, m, keys(string(r)))
	}
	return m
}

func TestDashboardInitLoadsPosition(t *testing.T) {
	m, _, st := connectedDash(t)
	assert.Equal(t, "Loading position", m.inFlight)

	for _, msg := range drain(m.Init()) {
		m = send(t, m, msg)
	}
	assert.Equal(t, 1, st.refreshes)
	assert.Empty(t, m.inFlight)

	v := m.View()
	assert.Contains(t, v, "1000.0000 ZKC")
	assert.Contains(t, v, "5.0000 veZKC")
	assert.Contains(t, v, "50.0000 ZKC")
	assert.Contains(t, v, "Instructions")
	assert.Contains(t, v, "not set")
}

func TestDashboardApproveThenStakeFlow(t *testing.T) {
	m, _, st := connectedDash(t)
	m.inFlight = ""

	m = typeAmount(t, m, "100")
	assert.Equal(t, "100", m.entered())
	assert.Contains(t, m.View(), "[a] Approve 100 ZKC")

	// Stake is disabled while the allowance is short.
	m = send(t, m, keys("s"))
	assert.Equal(t, modeAmount, m.mode)

	m = send(t, m, keys("a"))
	require.Equal(t, modeConfirm, m.mode)
	assert.Contains(t, m.View(), "Approve the staking contract to spend 100 ZKC?")

	m = send(t, m, keys("y"))
	assert.Equal(t, []string{"100"}, st.approved)
	assert.Contains(t, m.notice, "Approval confirmed")
	assert.Contains(t, m.notice, "sepolia.etherscan.io/tx/")

	st.state.Allowance = ether(100)
	assert.NotContains(t, m.View(), "[a] Approve")

	m = send(t, m, keys("s"))
	require.Equal(t, modeConfirm, m.mode)
	m = send(t, m, keys("y"))
	assert.Equal(t, []string{"100"}, st.staked)
	assert.Empty(t, m.entered(), "input is cleared after a stake")
	assert.Contains(t, m.notice, "Staked 10.0000 ZKC")
}

func TestDashboardConfirmCancel(t *testing.T) {
	m, _, st := connectedDash(t)
	m.inFlight = ""
	m = typeAmount(t, m, "10")
	m = send(t, m, keys("s"))
	require.Equal(t, modeConfirm, m.mode)

	m = send(t, m, keys("n"))
	assert.Equal(t, modeAmount, m.mode)
	assert.Empty(t, st.staked)
	assert.Equal(t, "10", m.entered())
}

func TestDashboardIgnoresLettersInAmount(t *testing.T) {
	m, _, _ := connectedDash(t)
	m.inFlight = ""
	m = typeAmount(t, m, "1.5e")
	assert.Equal(t, "1.5", m.entered())

	m = send(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, "1.", m.entered())
}

func TestDashboardWriteError(t *testing.T) {
	m, _, st := connectedDash(t)
	m.inFlight = ""
	st.writeErr = stake.ErrTransactionRejected

	m = typeAmount(t, m, "10")
	m = send(t, m, keys("s"))
	m = send(t, m, keys("y"))
	assert.ErrorIs(t, m.err, stake.ErrTransactionRejected)
	assert.Equal(t, "10", m.entered(), "input is kept when the stake fails")
	assert.Contains(t, m.View(), "rejected")
}

func TestDashboardDelegate(t *testing.T) {
	m, _, st := connectedDash(t)
	m.inFlight = ""

	m = send(t, m, keys("d"))
	require.Equal(t, modeDelegate, m.mode)

	m = send(t, m, keys("0x1234"))
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.ErrorIs(t, m.err, stake.ErrInvalidDelegate)
	assert.Equal(t, modeDelegate, m.mode)

	m.deleg.SetValue("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, modeConfirm, m.mode)
	m = send(t, m, keys("y"))
	assert.Equal(t, []string{"0x70997970C51812dc3A010C7d01b50e0d17dc79C8"}, st.delegated)
	assert.Contains(t, m.notice, "Reward delegate updated")
}

func TestDashboardWrongNetworkView(t *testing.T) {
	m, sess, st := connectedDash(t)
	m.inFlight = ""
	sess.s.ChainID = 1

	v := m.View()
	assert.Contains(t, v, "Wallet is on chain 1")
	assert.Contains(t, v, "wrong network")
	assert.NotContains(t, v, "1000.0000", "balances are withheld off-network")

	m = send(t, m, keys("w"))
	assert.Equal(t, []string{"sepolia"}, sess.switchedTo)

	// Showing mainnet instead matches the wallet and loads that position.
	before := st.refreshes
	m = send(t, m, keys("n"))
	assert.Equal(t, "mainnet", st.profile.Key)
	assert.Equal(t, before+1, st.refreshes)
	assert.Contains(t, m.View(), "Ethereum Mainnet")
}

func TestDashboardConnectAndSessionEvents(t *testing.T) {
	sess := &fakeSession{}
	st := &fakeStaker{profile: sepolia}
	m := newDash(DashboardConfig{Session: sess, Staker: st, Copy: func(string) error { return nil }})
	assert.Empty(t, m.inFlight)
	assert.Contains(t, m.View(), "Press c to connect")

	m = send(t, m, keys("c"))
	assert.True(t, sess.s.Connected)
	assert.Equal(t, "Wallet connected", m.notice)

	m = send(t, m, sessionMsg{s: sess.s})
	assert.Equal(t, 1, st.refreshes)

	// The same session again is not a change.
	m = send(t, m, sessionMsg{s: sess.s})
	assert.Equal(t, 1, st.refreshes)

	m = send(t, m, keys("x"))
	assert.Equal(t, 1, sess.disconnects)
	assert.Contains(t, m.View(), "Press c to connect")
}

func TestDashboardConnectRejected(t *testing.T) {
	sess := &fakeSession{connectErr: session.ErrUserRejected}
	m := newDash(DashboardConfig{Session: sess, Staker: &fakeStaker{profile: sepolia}})
	m = send(t, m, keys("c"))
	assert.ErrorIs(t, m.err, session.ErrUserRejected)
	assert.Empty(t, m.inFlight)
}

func TestDashboardCopyAddress(t *testing.T) {
	m, _, _ := connectedDash(t)
	m.inFlight = ""
	var copied string
	m.cfg.Copy = func(s string) error { copied = s; return nil }

	m = send(t, m, keys("c"))
	assert.Equal(t, acct.Hex(), copied)
	assert.Equal(t, "Address copied to clipboard", m.notice)

	m.cfg.Copy = func(string) error { return errors.New("no clipboard") }
	m = send(t, m, keys("c"))
	assert.ErrorContains(t, m.err, "no clipboard")
}

func TestDashboardQuit(t *testing.T) {
	m, _, _ := connectedDash(t)
	next, cmd := m.Update(keys("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, next.View())
}
