package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/zkcstake/internal/config"
	"github.com/Mohsinsiddi/zkcstake/internal/contract"
	"github.com/Mohsinsiddi/zkcstake/internal/network"
	"github.com/Mohsinsiddi/zkcstake/internal/provider"
	"github.com/Mohsinsiddi/zkcstake/internal/rpc"
	"github.com/Mohsinsiddi/zkcstake/internal/session"
	"github.com/Mohsinsiddi/zkcstake/internal/stake"
	"github.com/Mohsinsiddi/zkcstake/internal/ui"
	"github.com/Mohsinsiddi/zkcstake/internal/wallet"
	"github.com/ethereum/go-ethereum/ethclient"
)

// openKeystore opens the key backend for signing wallets. Tests swap it for
// an in-memory one.
var openKeystore = func(dir string) wallet.KeystoreBackend {
	return wallet.DefaultKeystore(dir)
}

// newWalletManager creates a Manager backed by the config-dir JSON store.
func newWalletManager() *wallet.Manager {
	return wallet.NewManager(
		wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())),
		wallet.WithKeystore(openKeystore(cfg.Dir())),
	)
}

// selectedNetwork is the network key for this invocation: --network, then
// the configured default.
func selectedNetwork() string {
	if networkFlag != "" {
		return strings.ToLower(networkFlag)
	}
	return cfg.DefaultNetwork
}

// lookupNetwork returns the profile for key, refusing unknown keys.
func lookupNetwork(reg *network.Registry, key string) (network.Profile, error) {
	if !reg.Has(key) {
		return network.Profile{}, fmt.Errorf("unknown network %q (known: %s)", key, strings.Join(reg.Keys(), ", "))
	}
	return reg.Get(key), nil
}

// rpcCandidates lists the endpoints for a profile, custom ones first.
func rpcCandidates(c *config.Config, p network.Profile) []string {
	out := append([]string(nil), c.GetRPCs(p.Key)...)
	for _, u := range out {
		if u == p.RPCURL {
			return out
		}
	}
	return append(out, p.RPCURL)
}

// resolveRPC picks the endpoint the profile will use. A failed probe keeps
// the first candidate so the wallet can still report a useful error.
func resolveRPC(ctx context.Context, c *config.Config, p network.Profile) network.Profile {
	urls := rpcCandidates(c, p)
	ctx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
	defer cancel()

	best, err := rpc.SelectBest(ctx, urls, p.ChainID, c.RPCAlgorithm)
	if err != nil {
		logger.Warn("no healthy RPC, using first candidate", "network", p.Key, "err", err)
		best = urls[0]
	}
	logger.Debug("rpc selected", "network", p.Key, "url", best, "algorithm", c.RPCAlgorithm)
	p.RPCURL = best
	return p
}

// codeReaderFor dials the node detection reads from. Tests replace it.
var codeReaderFor = func(ctx context.Context, url string) (contract.CodeReader, func(), error) {
	cl, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	return cl, cl.Close, nil
}

// resolveStakingABI applies the staking_abi setting. "auto" inspects the
// deployed bytecode and keeps the profile's own variant when that fails.
func resolveStakingABI(ctx context.Context, c *config.Config, p network.Profile) network.Profile {
	switch v := c.StakingVariant(p.Key); v {
	case config.StakingABIV1, config.StakingABIV2:
		p.StakingABI = network.StakingABI(v)
		return p
	case config.StakingABIAuto:
	default:
		return p
	}

	ctx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
	defer cancel()
	r, closeFn, err := codeReaderFor(ctx, p.RPCURL)
	if err != nil {
		logger.Warn("staking ABI detection skipped", "network", p.Key, "err", err)
		return p
	}
	defer closeFn()

	v, err := contract.DetectVariant(ctx, r, p.Staking)
	if err != nil {
		logger.Warn("staking ABI detection failed, using profile default", "network", p.Key, "default", p.StakingABI, "err", err)
		return p
	}
	logger.Debug("staking ABI detected", "network", p.Key, "variant", v)
	p.StakingABI = v
	return p
}

// chainInfos lists every registry network as a wallet chain. selected
// replaces its registry entry so the wallet talks to the chosen endpoint.
func chainInfos(c *config.Config, reg *network.Registry, selected network.Profile) []provider.ChainInfo {
	out := make([]provider.ChainInfo, 0, len(reg.Keys()))
	for _, p := range reg.All() {
		urls := rpcCandidates(c, p)
		if p.Key == selected.Key {
			urls = append([]string{selected.RPCURL}, without(urls, selected.RPCURL)...)
		}
		out = append(out, provider.ChainInfo{
			ChainID:  p.ChainID,
			Name:     p.DisplayName,
			RPCURLs:  urls,
			Symbol:   p.Currency,
			Explorer: p.Explorer,
		})
	}
	return out
}

func without(list []string, drop string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s != drop {
			out = append(out, s)
		}
	}
	return out
}

// networksFrom lists the profiles the dashboard can cycle through. The
// selected one is the resolved profile; pinned staking ABIs apply to the
// rest.
func networksFrom(a *app) []network.Profile {
	out := make([]network.Profile, 0, len(a.reg.Keys()))
	for _, p := range a.reg.All() {
		if p.Key == a.profile.Key {
			out = append(out, a.profile)
			continue
		}
		switch v := cfg.StakingVariant(p.Key); v {
		case config.StakingABIV1, config.StakingABIV2:
			p.StakingABI = network.StakingABI(v)
		}
		out = append(out, p)
	}
	return out
}

// consent is the terminal Frontend for commands. Once a transaction is
// approved it starts the armed wait spinner.
type consent struct {
	ui.Prompter
	spin    *ui.Spinner
	started bool
}

func (c *consent) ConfirmTransaction(tx provider.TxRequest, chain provider.ChainInfo) bool {
	if !c.Prompter.ConfirmTransaction(tx, chain) {
		return false
	}
	if c.spin != nil && !c.started {
		c.spin.Start()
		c.started = true
	}
	return true
}

func (c *consent) arm(s *ui.Spinner) {
	c.spin, c.started = s, false
}

func (c *consent) disarm() {
	if c.started {
		c.spin.Stop()
	}
	c.spin, c.started = nil, false
}

// app is everything a wallet command needs, wired for one invocation.
type app struct {
	reg     *network.Registry
	profile network.Profile
	wallets *wallet.Manager
	local   *provider.Local
	sess    *session.Manager
	coord   *stake.Coordinator
	prompt  *consent
}

// newApp resolves the selected network and builds the wallet, session and
// coordinator. front overrides the terminal prompts when set.
func newApp(ctx context.Context, front provider.Frontend) (*app, error) {
	reg := network.NewRegistry()
	p, err := lookupNetwork(reg, selectedNetwork())
	if err != nil {
		return nil, err
	}
	p = resolveRPC(ctx, cfg, p)
	p = resolveStakingABI(ctx, cfg, p)

	a := &app{
		reg:     reg,
		profile: p,
		wallets: newWalletManager(),
		prompt:  &consent{Prompter: ui.Prompter{AssumeYes: assumeYes}},
	}
	if front == nil {
		front = a.prompt
	}

	a.local, err = provider.NewLocal(a.wallets,
		provider.WithFrontend(front),
		provider.WithStateStore(provider.NewFileState(cfg.ProviderStatePath())),
		provider.WithChains(chainInfos(cfg, reg, p)...),
		provider.WithGasFallback(cfg.GasFallback),
		provider.WithLocalLogger(logger),
	)
	if errors.Is(err, provider.ErrNoAccounts) {
		return nil, fmt.Errorf("no signing wallet configured\n  Add one with: zkcstake wallet add <name> --key")
	}
	if err != nil {
		return nil, err
	}

	if ref := signingWalletRef(a.wallets); ref != "" {
		if err := a.local.SelectAccount(ref); err != nil {
			a.local.Close()
			return nil, err
		}
	}

	a.sess = session.NewManager(a.local, session.WithLogger(logger))
	a.coord = stake.NewCoordinator(a.sess, a.sess.Client(), p,
		stake.WithLogger(logger),
		stake.WithPollInterval(cfg.PollInterval()),
		stake.WithConfirmTimeout(cfg.ConfirmTimeout()),
	)
	return a, nil
}

// signingWalletRef is the wallet to sign with: --wallet, then the
// configured default, then the manager's default. "" leaves the wallet's
// own choice.
func signingWalletRef(m *wallet.Manager) string {
	if walletFlag != "" {
		return walletFlag
	}
	if cfg.DefaultWallet != "" {
		if w, err := m.Get(cfg.DefaultWallet); err == nil && w.CanSign() {
			return w.Name
		}
	}
	if w := m.Default(); w != nil && w.CanSign() {
		return w.Name
	}
	return ""
}

func (a *app) Close() {
	a.sess.Close()
	a.local.Close()
}

// connect opens the wallet session.
func (a *app) connect(ctx context.Context) error {
	return a.sess.Connect(ctx)
}

// ensureNetwork connects and moves the wallet onto the selected network
// when it is elsewhere.
func (a *app) ensureNetwork(ctx context.Context) error {
	if err := a.connect(ctx); err != nil {
		return err
	}
	if a.sess.Status(a.profile) == session.Connected {
		return nil
	}
	fmt.Println(ui.Warn(fmt.Sprintf("Wallet is on chain %d, switching to %s...",
		a.sess.Snapshot().ChainID, a.profile.DisplayName)))
	if err := a.sess.SwitchNetwork(ctx, a.profile); err != nil {
		return err
	}
	if a.sess.Status(a.profile) != session.Connected {
		return stake.ErrWrongNetwork
	}
	return nil
}

// write runs one transaction with the wait spinner armed and prints the
// outcome.
func (a *app) write(kind string, fn func() (*stake.Result, error)) (*stake.Result, error) {
	a.prompt.arm(ui.NewSpinner("Waiting for " + kind + " confirmation..."))
	res, err := fn()
	a.prompt.disarm()

	if res != nil {
		printTx(a.profile, kind, res)
	}
	return res, err
}
