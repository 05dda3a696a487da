package cmd

import (
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Mohsinsiddi/zkcstake/internal/config"
	"github.com/Mohsinsiddi/zkcstake/internal/contract"
	"github.com/Mohsinsiddi/zkcstake/internal/logging"
	"github.com/Mohsinsiddi/zkcstake/internal/network"
	"github.com/Mohsinsiddi/zkcstake/internal/provider"
	"github.com/Mohsinsiddi/zkcstake/internal/session"
	"github.com/Mohsinsiddi/zkcstake/internal/stake"
	"github.com/Mohsinsiddi/zkcstake/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Hardhat/Anvil test account #0. Never fund it on mainnet.
const (
	testKey  = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

// setup points the package at a fresh config dir with an in-memory
// keystore and resets the global flags.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	ks := wallet.NewInMemoryKeystore()
	prev := openKeystore
	openKeystore = func(string) wallet.KeystoreBackend { return ks }
	t.Cleanup(func() { openKeystore = prev })

	var err error
	cfg, err = config.Load(dir)
	require.NoError(t, err)
	logger = logging.Discard()
	resetFlags()
	return dir
}

func resetFlags() {
	cfgDir, verbose, assumeYes, networkFlag, walletFlag = "", false, false, "", ""
	walletKeyFlag, walletUnlockAll, stakeApproveFlag, dashboardNoConnect = false, false, false, false
}

// run executes the CLI against dir.
func run(t *testing.T, dir string, args ...string) error {
	t.Helper()
	resetFlags()
	rootCmd.SetArgs(append([]string{"--config", dir}, args...))
	return rootCmd.ExecuteContext(context.Background())
}

func addSigner(t *testing.T, name string) {
	t.Helper()
	require.NoError(t, newWalletManager().AddWithKey(name, testKey))
}

// ---------------------------------------------------------------------------
// network and RPC resolution
// ---------------------------------------------------------------------------

func TestLookupNetwork(t *testing.T) {
	reg := network.NewRegistry()
	p, err := lookupNetwork(reg, "mainnet")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.ChainID)

	_, err = lookupNetwork(reg, "goerli")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sepolia")
}

func TestSelectedNetworkPrefersFlag(t *testing.T) {
	setup(t)
	assert.Equal(t, "sepolia", selectedNetwork())
	networkFlag = "MAINNET"
	assert.Equal(t, "mainnet", selectedNetwork())
}

func TestRPCCandidatesCustomFirst(t *testing.T) {
	setup(t)
	p := network.NewRegistry().Get("sepolia")
	assert.Equal(t, []string{p.RPCURL}, rpcCandidates(cfg, p))

	require.NoError(t, cfg.AddRPC("sepolia", "https://custom.example"))
	assert.Equal(t, []string{"https://custom.example", p.RPCURL}, rpcCandidates(cfg, p))

	require.NoError(t, cfg.AddRPC("sepolia", p.RPCURL))
	assert.Equal(t, []string{"https://custom.example", p.RPCURL}, rpcCandidates(cfg, p), "no duplicate")
}

func TestResolveRPCSingleCandidateSkipsProbe(t *testing.T) {
	setup(t)
	p := network.NewRegistry().Get("mainnet")
	assert.Equal(t, p.RPCURL, resolveRPC(context.Background(), cfg, p).RPCURL)
}

func TestChainInfosPutSelectedEndpointFirst(t *testing.T) {
	setup(t)
	reg := network.NewRegistry()
	require.NoError(t, cfg.AddRPC("mainnet", "https://custom.example"))

	sel := reg.Get("mainnet")
	infos := chainInfos(cfg, reg, sel)
	require.Len(t, infos, 2)

	assert.Equal(t, uint64(11155111), infos[0].ChainID)
	assert.Equal(t, uint64(1), infos[1].ChainID)
	assert.Equal(t, []string{sel.RPCURL, "https://custom.example"}, infos[1].RPCURLs)
	assert.Equal(t, "ETH", infos[1].Symbol)
	assert.Equal(t, "https://etherscan.io", infos[1].Explorer)
}

type codeOnly struct{ code []byte }

func (c codeOnly) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return c.code, nil
}

func (c codeOnly) StorageAt(context.Context, common.Address, common.Hash, *big.Int) ([]byte, error) {
	return make([]byte, 32), nil
}

func withCode(t *testing.T, code []byte) {
	t.Helper()
	prev := codeReaderFor
	codeReaderFor = func(context.Context, string) (contract.CodeReader, func(), error) {
		return codeOnly{code: code}, func() {}, nil
	}
	t.Cleanup(func() { codeReaderFor = prev })
}

func dispatcher(sigs ...string) []byte {
	var code []byte
	for _, s := range sigs {
		sel := contract.Selector(s)
		code = append(code, 0x63)
		code = append(code, sel[:]...)
	}
	return code
}

func TestResolveStakingABI(t *testing.T) {
	setup(t)
	p := network.NewRegistry().Get("sepolia")
	require.Equal(t, network.StakingV2, p.StakingABI)

	assert.Equal(t, network.StakingV2, resolveStakingABI(context.Background(), cfg, p).StakingABI, "no setting")

	require.NoError(t, cfg.SetStakingVariant("sepolia", "v1"))
	assert.Equal(t, network.StakingV1, resolveStakingABI(context.Background(), cfg, p).StakingABI, "pinned")

	require.NoError(t, cfg.SetStakingVariant("sepolia", "auto"))
	withCode(t, dispatcher("delegates(address)", "balanceOf(address)"))
	assert.Equal(t, network.StakingV1, resolveStakingABI(context.Background(), cfg, p).StakingABI, "detected")
}

func TestResolveStakingABIAutoFallsBack(t *testing.T) {
	setup(t)
	require.NoError(t, cfg.SetStakingVariant("sepolia", "auto"))
	withCode(t, []byte{0x60, 0x80})
	p := network.NewRegistry().Get("sepolia")
	assert.Equal(t, network.StakingV2, resolveStakingABI(context.Background(), cfg, p).StakingABI)
}

// ---------------------------------------------------------------------------
// wallet selection
// ---------------------------------------------------------------------------

func TestSigningWalletRef(t *testing.T) {
	setup(t)
	mgr := newWalletManager()
	assert.Equal(t, "", signingWalletRef(mgr))

	require.NoError(t, mgr.Add("watcher", "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"))
	require.NoError(t, mgr.AddWithKey("alice", testKey))
	require.NoError(t, mgr.SetDefault("watcher"))
	assert.Equal(t, "", signingWalletRef(mgr), "watch-only default is skipped")

	cfg.DefaultWallet = "alice"
	assert.Equal(t, "alice", signingWalletRef(mgr))

	walletFlag = "bob"
	assert.Equal(t, "bob", signingWalletRef(mgr))
}

func TestNewAppNeedsSigningWallet(t *testing.T) {
	setup(t)
	_, err := newApp(context.Background(), provider.AutoApprove)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zkcstake wallet add")
}

func TestNewAppRejectsWatchOnlyWalletFlag(t *testing.T) {
	setup(t)
	addSigner(t, "alice")
	require.NoError(t, newWalletManager().Add("watcher", "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"))
	walletFlag = "watcher"
	_, err := newApp(context.Background(), provider.AutoApprove)
	assert.ErrorContains(t, err, "watch-only")
}

func TestNewAppConnects(t *testing.T) {
	setup(t)
	addSigner(t, "alice")

	a, err := newApp(context.Background(), provider.AutoApprove)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.connect(context.Background()))
	s := a.sess.Snapshot()
	assert.Equal(t, common.HexToAddress(testAddr), s.Account)
	assert.Equal(t, uint64(11155111), s.ChainID)
	assert.Equal(t, session.Connected, a.sess.Status(a.profile))
	assert.Equal(t, a.profile.Key, a.coord.Network().Key)
}

func TestNetworksFromAppliesPinnedABI(t *testing.T) {
	setup(t)
	addSigner(t, "alice")
	require.NoError(t, cfg.SetStakingVariant("mainnet", "v1"))

	a, err := newApp(context.Background(), provider.AutoApprove)
	require.NoError(t, err)
	defer a.Close()

	nets := networksFrom(a)
	require.Len(t, nets, 2)
	assert.Equal(t, a.profile, nets[0])
	assert.Equal(t, network.StakingV1, nets[1].StakingABI)
}

// ---------------------------------------------------------------------------
// commands
// ---------------------------------------------------------------------------

func TestConfigSetCommand(t *testing.T) {
	dir := setup(t)
	require.NoError(t, run(t, dir, "config", "set", "tx_confirm_timeout_seconds", "90"))

	loaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, loaded.ConfirmTimeout())

	assert.Error(t, run(t, dir, "config", "set", "default_network", "goerli"))
	assert.Error(t, run(t, dir, "config", "set", "nope", "1"))
}

func TestConfigStakingABICommand(t *testing.T) {
	dir := setup(t)
	require.NoError(t, run(t, dir, "config", "staking-abi", "mainnet", "V1"))
	loaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "v1", loaded.StakingVariant("mainnet"))

	assert.Error(t, run(t, dir, "config", "staking-abi", "mainnet", "v3"))
}

func TestNetworksUseCommand(t *testing.T) {
	dir := setup(t)
	require.NoError(t, run(t, dir, "networks", "use", "mainnet"))
	loaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "mainnet", loaded.DefaultNetwork)

	assert.Error(t, run(t, dir, "networks", "use", "goerli"))
}

func TestRPCAddRemoveCommands(t *testing.T) {
	dir := setup(t)
	require.NoError(t, run(t, dir, "rpc", "add", "sepolia", "https://rpc.example"))
	assert.Error(t, run(t, dir, "rpc", "add", "sepolia", "https://rpc.example"), "duplicate")
	assert.Error(t, run(t, dir, "rpc", "add", "sepolia", "rpc.example"), "scheme")
	assert.Error(t, run(t, dir, "rpc", "add", "goerli", "https://rpc.example"))

	loaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://rpc.example"}, loaded.GetRPCs("sepolia"))

	require.NoError(t, run(t, dir, "rpc", "remove", "sepolia", "https://rpc.example"))
	loaded, err = config.Load(dir)
	require.NoError(t, err)
	assert.Empty(t, loaded.GetRPCs("sepolia"))
}

func TestWalletAddUseRemoveCommands(t *testing.T) {
	dir := setup(t)
	require.NoError(t, run(t, dir, "wallet", "add", "watcher", "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"))
	assert.Error(t, run(t, dir, "wallet", "add", "nokey"), "watch-only needs an address")

	require.NoError(t, run(t, dir, "wallet", "use", "watcher"))
	loaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "watcher", loaded.DefaultWallet)

	require.NoError(t, run(t, dir, "--yes", "wallet", "remove", "watcher"))
	loaded, err = config.Load(dir)
	require.NoError(t, err)
	assert.Empty(t, loaded.DefaultWallet)

	data, err := os.ReadFile(filepath.Join(dir, "wallets.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "watcher")
}

func TestWalletQRCommand(t *testing.T) {
	dir := setup(t)
	assert.Error(t, run(t, dir, "wallet", "qr"), "no wallet to show")

	require.NoError(t, run(t, dir, "wallet", "add", "watcher", "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"))
	require.NoError(t, run(t, dir, "wallet", "qr", "watcher"))
	assert.ErrorIs(t, run(t, dir, "wallet", "qr", "nobody"), wallet.ErrWalletNotFound)
}

func TestConnectAndSwitchCommands(t *testing.T) {
	dir := setup(t)
	addSigner(t, "alice")

	require.NoError(t, run(t, dir, "--yes", "connect"))
	require.NoError(t, run(t, dir, "--yes", "switch", "mainnet"))

	data, err := os.ReadFile(filepath.Join(dir, "provider.json"))
	require.NoError(t, err)
	var st provider.State
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Equal(t, uint64(1), st.ActiveChainID, "wallet moved to mainnet")
	assert.True(t, strings.EqualFold(testAddr, st.Account))
}

func TestStakeRejectsBadAmountArgument(t *testing.T) {
	_, err := amountArg([]string{"-1"}, "", "")
	assert.ErrorIs(t, err, stake.ErrInvalidAmount)
	_, err = amountArg([]string{"0"}, "", "")
	assert.ErrorIs(t, err, stake.ErrInvalidAmount)

	v, err := amountArg([]string{" 1.5 "}, "", "")
	require.NoError(t, err)
	assert.Equal(t, "1.5", v)
}

// ---------------------------------------------------------------------------
// output
// ---------------------------------------------------------------------------

func TestErrorLineHints(t *testing.T) {
	assert.Contains(t, errorLine(stake.ErrApprovalRequired), "--approve")
	assert.Contains(t, errorLine(stake.ErrWrongNetwork), "zkcstake switch")
	assert.Contains(t, errorLine(session.ErrUserRejected), "nothing was sent")
	assert.NotContains(t, errorLine(assert.AnError), "→")
}

func TestPositionPairs(t *testing.T) {
	p := network.NewRegistry().Get("sepolia")
	oneAndHalf, _ := new(big.Int).SetString("1500000000000000000", 10)
	st := &stake.FinancialState{
		Account:        common.HexToAddress(testAddr),
		TokenBalance:   oneAndHalf,
		StakedAmount:   big.NewInt(0),
		WithdrawalTime: big.NewInt(0),
		Allowance:      big.NewInt(0),
	}
	got := map[string]string{}
	for _, kv := range positionPairs(p, st, "") {
		got[kv[0]] = kv[1]
	}
	assert.Equal(t, "1.5000 ZKC", got["Balance"])
	assert.Equal(t, "0.0000 veZKC", got["Staked"])
	assert.Equal(t, "none", got["Withdrawable"])
	assert.Equal(t, "not set", got["Delegate"])
	assert.Equal(t, "Sepolia (11155111)", got["Network"])

	st.Delegate = common.HexToAddress(testAddr)
	got = map[string]string{}
	for _, kv := range positionPairs(p, st, "delegate.eth") {
		got[kv[0]] = kv[1]
	}
	assert.Equal(t, common.HexToAddress(testAddr).Hex()+" (delegate.eth)", got["Delegate"])
	assert.Equal(t, "1.5000 ZKC", got["Balance"], "delegate name does not displace other rows")
}
