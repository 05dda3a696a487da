package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Mohsinsiddi/zkcstake/internal/network"
	"github.com/Mohsinsiddi/zkcstake/internal/provider"
	"github.com/Mohsinsiddi/zkcstake/internal/session"
	"github.com/Mohsinsiddi/zkcstake/internal/stake"
	"github.com/Mohsinsiddi/zkcstake/internal/units"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
)

// Session is the wallet connection the dashboard drives.
// *session.Manager satisfies it.
type Session interface {
	Snapshot() session.WalletSession
	Status(p network.Profile) session.Status
	Connect(ctx context.Context) error
	SwitchNetwork(ctx context.Context, p network.Profile) error
	Disconnect()
	OnChange(fn func(session.WalletSession)) provider.Subscription
}

// Staker reads and writes the staking position. *stake.Coordinator
// satisfies it.
type Staker interface {
	Network() network.Profile
	SelectNetwork(p network.Profile)
	Current() (*stake.FinancialState, bool)
	Busy() bool
	Refresh(ctx context.Context) (*stake.FinancialState, error)
	Approve(ctx context.Context, amount string) (*stake.Result, error)
	Stake(ctx context.Context, amount string) (*stake.Result, error)
	DelegateRewards(ctx context.Context, delegatee string) (*stake.Result, error)
}

// DashboardConfig wires the dashboard to a session and a coordinator.
type DashboardConfig struct {
	Session  Session
	Staker   Staker
	Networks []network.Profile
	Symbol   string             // token symbol, "ZKC" if empty
	Copy     func(string) error // clipboard writer, atotto/clipboard if nil
}

type dashMode int

const (
	modeAmount dashMode = iota
	modeDelegate
	modeConfirm
)

// places is the number of decimals balances are shown with.
const places = 4

type (
	sessionMsg   struct{ s session.WalletSession }
	refreshedMsg struct{ err error }
	connectedMsg struct{ err error }
	switchedMsg  struct{ err error }
	copiedMsg    struct{ err error }
	txMsg        struct {
		kind string
		res  *stake.Result
		err  error
	}
)

// pendingTx is an action waiting for the user's y/n.
type pendingTx struct {
	kind   string // "approve", "stake" or "delegate"
	amount string
	target string
}

// DashboardModel is the Bubble Tea model for the staking dashboard.
type DashboardModel struct {
	ctx    context.Context
	cfg    DashboardConfig
	amount textinput.Model
	deleg  textinput.Model
	spin   spinner.Model

	mode     dashMode
	confirm  pendingTx
	inFlight string // label of the running operation, "" when idle
	seen     session.WalletSession
	notice   string
	err      error
	quitting bool
}

// NewDashboard builds the model. ctx bounds every wallet call it makes.
func NewDashboard(ctx context.Context, cfg DashboardConfig) DashboardModel {
	if cfg.Symbol == "" {
		cfg.Symbol = "ZKC"
	}
	if cfg.Copy == nil {
		cfg.Copy = clipboard.WriteAll
	}

	amt := textinput.New()
	amt.Placeholder = "Enter amount to stake"
	amt.Prompt = "Stake amount (" + cfg.Symbol + "): "
	amt.PromptStyle = lipgloss.NewStyle().Foreground(ColorChain)
	amt.TextStyle = lipgloss.NewStyle().Foreground(ColorValue)
	amt.CharLimit = 40
	amt.Width = 30
	amt.Focus()

	del := textinput.New()
	del.Placeholder = "0x..."
	del.Prompt = "Delegate rewards to: "
	del.PromptStyle = lipgloss.NewStyle().Foreground(ColorChain)
	del.CharLimit = 42
	del.Width = 44

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorChain)

	m := DashboardModel{
		ctx:    ctx,
		cfg:    cfg,
		amount: amt,
		deleg:  del,
		spin:   sp,
		seen:   cfg.Session.Snapshot(),
	}
	if m.seen.OnChain(cfg.Staker.Network()) {
		m.inFlight = "Loading position"
	}
	return m
}

// RunDashboard runs the dashboard until the user quits. Session changes
// from the wallet are fed into the program as they happen.
func RunDashboard(ctx context.Context, cfg DashboardConfig) error {
	m := NewDashboard(ctx, cfg)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	sub := cfg.Session.OnChange(func(s session.WalletSession) {
		p.Send(sessionMsg{s: s})
	})
	defer sub.Unsubscribe()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m DashboardModel) Init() tea.Cmd {
	if m.inFlight != "" {
		return tea.Batch(textinput.Blink, m.spin.Tick, m.refreshCmd())
	}
	return textinput.Blink
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.mode {
		case modeConfirm:
			return m.updateConfirm(msg)
		case modeDelegate:
			return m.updateDelegate(msg)
		}
		return m.updateAmount(msg)

	case spinner.TickMsg:
		if m.inFlight == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case sessionMsg:
		prev := m.seen
		m.seen = msg.s
		changed := prev.Account != msg.s.Account || prev.ChainID != msg.s.ChainID || prev.Connected != msg.s.Connected
		if changed && m.inFlight == "" && msg.s.OnChain(m.cfg.Staker.Network()) {
			return m, m.start("Loading position", m.refreshCmd())
		}
		return m, nil

	case refreshedMsg:
		m.inFlight = ""
		m.err = msg.err
		return m, nil

	case connectedMsg:
		m.inFlight = ""
		m.err = msg.err
		if msg.err == nil {
			m.notice = "Wallet connected"
		}
		return m, nil

	case switchedMsg:
		m.inFlight = ""
		m.err = msg.err
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("copy address: %w", msg.err)
		} else {
			m.notice = "Address copied to clipboard"
		}
		return m, nil

	case txMsg:
		m.inFlight = ""
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.notice = m.describeResult(msg.kind, msg.res)
		if msg.res.ClearInput {
			m.amount.SetValue("")
		}
		if msg.res.RefreshErr != nil {
			m.err = msg.res.RefreshErr
		}
		return m, nil
	}
	return m, nil
}

func (m DashboardModel) updateAmount(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	acts := m.actions()
	st := m.status()

	switch key {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "esc":
		m.amount.SetValue("")
		return m, nil
	case "a":
		if acts.ApproveEnabled {
			m.ask(pendingTx{kind: "approve", amount: m.entered()})
		}
		return m, nil
	case "s", "enter":
		if acts.StakeEnabled {
			m.ask(pendingTx{kind: "stake", amount: m.entered()})
		}
		return m, nil
	case "d":
		if st == session.Connected && m.inFlight == "" {
			m.mode = modeDelegate
			m.amount.Blur()
			m.deleg.SetValue("")
			return m, m.deleg.Focus()
		}
		return m, nil
	case "n":
		m.cycleNetwork()
		if m.inFlight == "" && m.cfg.Session.Snapshot().OnChain(m.cfg.Staker.Network()) {
			return m, m.start("Loading position", m.refreshCmd())
		}
		return m, nil
	case "w":
		if st == session.WrongNetwork && m.inFlight == "" {
			target := m.cfg.Staker.Network()
			return m, m.start("Switching wallet to "+target.DisplayName, m.switchCmd(target))
		}
		return m, nil
	case "r":
		if st == session.Connected && m.inFlight == "" {
			return m, m.start("Refreshing", m.refreshCmd())
		}
		return m, nil
	case "c":
		if st == session.Disconnected && m.inFlight == "" {
			return m, m.start("Waiting for wallet", m.connectCmd())
		}
		if s := m.cfg.Session.Snapshot(); s.Connected {
			return m, m.copyCmd(s.Account.Hex())
		}
		return m, nil
	case "x":
		if st != session.Disconnected && m.inFlight == "" {
			m.cfg.Session.Disconnect()
			m.seen = m.cfg.Session.Snapshot()
			m.notice = "Disconnected"
			m.err = nil
		}
		return m, nil
	}

	if amountKey(msg) {
		var cmd tea.Cmd
		m.amount, cmd = m.amount.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m DashboardModel) updateDelegate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeAmount
		m.deleg.Blur()
		return m, m.amount.Focus()
	case tea.KeyEnter:
		v := strings.TrimSpace(m.deleg.Value())
		if err := ValidateAddress(v); err != nil {
			m.err = fmt.Errorf("%w: %v", stake.ErrInvalidDelegate, err)
			return m, nil
		}
		m.deleg.Blur()
		m.amount.Focus()
		m.ask(pendingTx{kind: "delegate", target: common.HexToAddress(v).Hex()})
		return m, nil
	}
	var cmd tea.Cmd
	m.deleg, cmd = m.deleg.Update(msg)
	return m, cmd
}

func (m DashboardModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		p := m.confirm
		m.mode = modeAmount
		m.confirm = pendingTx{}
		switch p.kind {
		case "approve":
			return m, m.start(fmt.Sprintf("Approving %s %s", p.amount, m.cfg.Symbol), m.txCmd(p))
		case "stake":
			return m, m.start(fmt.Sprintf("Staking %s %s", p.amount, m.cfg.Symbol), m.txCmd(p))
		case "delegate":
			return m, m.start("Delegating rewards to "+TruncateAddr(p.target), m.txCmd(p))
		}
		return m, nil
	case "n", "N", "esc", "q":
		m.mode = modeAmount
		m.confirm = pendingTx{}
		m.notice = "Cancelled"
	}
	return m, nil
}

func (m *DashboardModel) ask(p pendingTx) {
	m.mode = modeConfirm
	m.confirm = p
	m.notice = ""
	m.err = nil
}

// start marks an operation in flight and runs cmd alongside the spinner.
func (m *DashboardModel) start(label string, cmd tea.Cmd) tea.Cmd {
	m.inFlight = label
	m.notice = ""
	m.err = nil
	return tea.Batch(m.spin.Tick, cmd)
}

func (m *DashboardModel) cycleNetwork() {
	nets := m.cfg.Networks
	if len(nets) < 2 {
		return
	}
	cur := m.cfg.Staker.Network().Key
	next := nets[0]
	for i, p := range nets {
		if p.Key == cur {
			next = nets[(i+1)%len(nets)]
			break
		}
	}
	m.cfg.Staker.SelectNetwork(next)
	m.notice = "Showing " + next.DisplayName
	m.err = nil
}

func (m DashboardModel) entered() string {
	return strings.TrimSpace(m.amount.Value())
}

func (m DashboardModel) status() session.Status {
	return m.cfg.Session.Status(m.cfg.Staker.Network())
}

func (m DashboardModel) actions() stake.Actions {
	st, _ := m.cfg.Staker.Current()
	busy := m.inFlight != "" || m.cfg.Staker.Busy() || m.status() != session.Connected
	return stake.DeriveActions(m.entered(), st, busy)
}

// amountKey reports whether k edits a decimal amount.
func amountKey(k tea.KeyMsg) bool {
	switch k.Type {
	case tea.KeyBackspace, tea.KeyDelete, tea.KeyLeft, tea.KeyRight, tea.KeyHome, tea.KeyEnd:
		return true
	case tea.KeyRunes:
		for _, r := range k.Runes {
			if (r < '0' || r > '9') && r != '.' {
				return false
			}
		}
		return true
	}
	return false
}

// --- commands ---

func (m DashboardModel) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		_, err := m.cfg.Staker.Refresh(m.ctx)
		return refreshedMsg{err: err}
	}
}

func (m DashboardModel) connectCmd() tea.Cmd {
	return func() tea.Msg {
		return connectedMsg{err: m.cfg.Session.Connect(m.ctx)}
	}
}

func (m DashboardModel) switchCmd(p network.Profile) tea.Cmd {
	return func() tea.Msg {
		return switchedMsg{err: m.cfg.Session.SwitchNetwork(m.ctx, p)}
	}
}

func (m DashboardModel) copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{err: m.cfg.Copy(text)}
	}
}

func (m DashboardModel) txCmd(p pendingTx) tea.Cmd {
	return func() tea.Msg {
		var (
			res *stake.Result
			err error
		)
		switch p.kind {
		case "approve":
			res, err = m.cfg.Staker.Approve(m.ctx, p.amount)
		case "stake":
			res, err = m.cfg.Staker.Stake(m.ctx, p.amount)
		case "delegate":
			res, err = m.cfg.Staker.DelegateRewards(m.ctx, p.target)
		}
		return txMsg{kind: p.kind, res: res, err: err}
	}
}

func (m DashboardModel) describeResult(kind string, res *stake.Result) string {
	var what string
	switch kind {
	case "approve":
		what = "Approval confirmed"
	case "stake":
		what = "Stake confirmed"
		if res.Staked != nil {
			what = fmt.Sprintf("Staked %s %s", units.Display(res.Staked.Amount, units.Decimals, places), m.cfg.Symbol)
		}
	case "delegate":
		what = "Reward delegate updated"
	}
	link := m.cfg.Staker.Network().TxURL(res.Hash.Hex())
	if link == "" {
		link = res.Hash.Hex()
	}
	return what + " · " + link
}

// --- view ---

func (m DashboardModel) View() string {
	if m.quitting {
		return ""
	}
	prof := m.cfg.Staker.Network()
	st := m.status()

	var sb strings.Builder
	sb.WriteString(StyleTitle.Render(m.cfg.Symbol+" Staking") + "\n")
	sb.WriteString(fmt.Sprintf("Network: %s  %s\n", ChainName(prof.DisplayName), statusBadge(st)))

	switch st {
	case session.Disconnected, session.Connecting:
		sb.WriteString("\n" + Meta("No wallet connected. Press c to connect.") + "\n")
	case session.WrongNetwork:
		sb.WriteString("\n" + m.wrongNetworkView(prof) + "\n")
	default:
		sb.WriteString(m.positionView())
	}

	if m.mode == modeConfirm {
		sb.WriteString("\n" + StyleWarning.Render(m.confirmPrompt()) + "  " + Meta("[y] yes  [n] no") + "\n")
	}
	if m.mode == modeDelegate {
		sb.WriteString("\n" + m.deleg.View() + "\n" + Meta("  [enter] confirm  [esc] cancel") + "\n")
	}

	if m.inFlight != "" {
		sb.WriteString("\n" + m.spin.View() + " " + m.inFlight + "...\n")
	}
	if m.err != nil {
		sb.WriteString("\n" + Err(m.err.Error()) + "\n")
	} else if m.notice != "" {
		sb.WriteString("\n" + Success(m.notice) + "\n")
	}

	sb.WriteString("\n" + m.help(st) + "\n")
	return sb.String()
}

func (m DashboardModel) positionView() string {
	var sb strings.Builder
	s := m.cfg.Session.Snapshot()
	sb.WriteString("Account: " + Addr(s.Account.Hex()) + "\n\n")

	fs, ok := m.cfg.Staker.Current()
	if !ok {
		sb.WriteString(Meta("Position not loaded yet. Press r to refresh.") + "\n")
	} else {
		sym := m.cfg.Symbol
		delegate := "not set"
		if fs.HasDelegate() {
			delegate = fs.Delegate.Hex()
		}
		withdraw := "-"
		if t := fs.Withdrawable(); !t.IsZero() {
			withdraw = t.Local().Format(time.DateTime)
		}
		sb.WriteString(KeyValueBlock("", [][2]string{
			{sym + " balance", units.Display(fs.TokenBalance, units.Decimals, places) + " " + sym},
			{"Staked balance", units.Display(fs.StakedAmount, units.Decimals, places) + " ve" + sym},
			{"Allowance", units.Display(fs.Allowance, units.Decimals, places) + " " + sym},
			{"Withdrawable at", withdraw},
			{"Reward delegate", delegate},
		}) + "\n")
		sb.WriteString(Meta("Updated "+fs.FetchedAt.Local().Format("15:04:05")) + "\n")
	}

	sb.WriteString("\n" + m.amount.View() + "\n")
	sb.WriteString(m.buttons() + "\n")
	sb.WriteString("\n" + instructions(m.cfg.Symbol) + "\n")
	return sb.String()
}

func (m DashboardModel) wrongNetworkView(prof network.Profile) string {
	s := m.cfg.Session.Snapshot()
	return Warn(fmt.Sprintf("Wallet is on chain %d; this view shows %s (chain %d).", s.ChainID, prof.DisplayName, prof.ChainID)) +
		"\n" + Meta("Press w to switch the wallet to "+prof.DisplayName+", or n to show another network.")
}

func (m DashboardModel) buttons() string {
	acts := m.actions()
	amt := m.entered()
	var parts []string
	if acts.ShowApprove {
		parts = append(parts, button("[a] Approve "+amt+" "+m.cfg.Symbol, acts.ApproveEnabled))
	}
	parts = append(parts, button("[s] Stake "+amt+" "+m.cfg.Symbol, acts.StakeEnabled))
	out := strings.Join(parts, "   ")
	if acts.InputErr != nil {
		out += "\n" + Err(acts.InputErr.Error())
	}
	return out
}

func (m DashboardModel) confirmPrompt() string {
	switch m.confirm.kind {
	case "approve":
		return fmt.Sprintf("Approve the staking contract to spend %s %s?", m.confirm.amount, m.cfg.Symbol)
	case "stake":
		return fmt.Sprintf("Stake %s %s?", m.confirm.amount, m.cfg.Symbol)
	case "delegate":
		return "Delegate staking rewards to " + m.confirm.target + "?"
	}
	return ""
}

func (m DashboardModel) help(st session.Status) string {
	keys := []string{"[n] network"}
	switch st {
	case session.Disconnected:
		keys = append(keys, "[c] connect")
	case session.WrongNetwork:
		keys = append(keys, "[w] switch wallet", "[x] disconnect")
	case session.Connected:
		keys = append(keys, "[a] approve", "[s] stake", "[d] delegate", "[r] refresh", "[c] copy address", "[x] disconnect")
	}
	keys = append(keys, "[q] quit")
	return Meta(strings.Join(keys, "  "))
}

func button(label string, enabled bool) string {
	if enabled {
		return StyleSelected.Render(" " + label + " ")
	}
	return StyleDim.Render(" " + label + " ")
}

func statusBadge(s session.Status) string {
	switch s {
	case session.Connected:
		return StyleSuccess.Render("● " + s.String())
	case session.WrongNetwork:
		return StyleWarning.Render("● " + s.String())
	case session.Connecting:
		return StyleAddress.Render("● " + s.String())
	}
	return StyleDim.Render("○ " + s.String())
}

func instructions(sym string) string {
	return Meta(strings.Join([]string{
		"Instructions:",
		"  1. Enter the amount of " + sym + " you want to stake",
		"  2. Press a to approve the staking contract to spend your " + sym,
		"  3. After the approval confirms, press s to stake",
	}, "\n"))
}
