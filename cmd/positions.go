package cmd

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/Mohsinsiddi/zkcstake/internal/contract"
	"github.com/Mohsinsiddi/zkcstake/internal/network"
	"github.com/Mohsinsiddi/zkcstake/internal/ui"
	"github.com/Mohsinsiddi/zkcstake/internal/units"
	"github.com/Mohsinsiddi/zkcstake/internal/wallet"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// positionReads bounds concurrent wallet reads against one node.
const positionReads = 4

const positionTimeout = 15 * time.Second

// callerFor dials the node positions are read from. Tests replace it.
var callerFor = func(ctx context.Context, url string) (ethereum.ContractCaller, func(), error) {
	cl, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	return cl, cl.Close, nil
}

type walletPosition struct {
	wallet   *wallet.Wallet
	balance  *big.Int
	staked   *big.Int
	delegate common.Address
	err      error
}

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Show the ZKC position of every saved wallet",
	Long: `Read balance, staked amount and reward delegate for every saved wallet,
watch-only ones included, straight from the selected network's RPC.

No wallet connection is needed and nothing is signed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		reg := network.NewRegistry()
		p, err := lookupNetwork(reg, selectedNetwork())
		if err != nil {
			return err
		}

		wallets := newWalletManager().List()
		if len(wallets) == 0 {
			fmt.Println(ui.Info("No wallets saved."))
			fmt.Println(ui.Hint("Add one with: zkcstake wallet add <name> <address>"))
			return nil
		}

		spin := ui.NewSpinner(fmt.Sprintf("Reading %d wallet(s) on %s...", len(wallets), p.DisplayName))
		spin.Start()
		p = resolveStakingABI(ctx, cfg, resolveRPC(ctx, cfg, p))
		rows, err := readPositions(ctx, p, wallets)
		spin.Stop()
		if err != nil {
			return err
		}

		fmt.Println(ui.StyleTitle.Render(fmt.Sprintf("ZKC positions on %s", p.DisplayName)))
		fmt.Println(renderPositions(rows))
		return nil
	},
}

// readPositions reads every wallet concurrently. A failed wallet is
// reported in its row rather than failing the whole read.
func readPositions(ctx context.Context, p network.Profile, wallets []*wallet.Wallet) ([]walletPosition, error) {
	ctx, cancel := context.WithTimeout(ctx, positionTimeout)
	defer cancel()

	caller, closeFn, err := callerFor(ctx, p.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", p.RPCURL, err)
	}
	defer closeFn()

	token := contract.NewToken(p.Token, caller)
	staking, err := contract.NewStaking(p.Staking, p.StakingABI, caller)
	if err != nil {
		return nil, err
	}

	out := make([]walletPosition, len(wallets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(positionReads)
	for i, w := range wallets {
		g.Go(func() error {
			out[i] = readPosition(gctx, token, staking, w)
			return nil
		})
	}
	g.Wait() //nolint:errcheck

	sort.SliceStable(out, func(i, j int) bool { return out[i].wallet.Name < out[j].wallet.Name })
	return out, nil
}

func readPosition(ctx context.Context, token *contract.Token, staking contract.Staking, w *wallet.Wallet) walletPosition {
	r := walletPosition{wallet: w}
	owner := w.Account()
	if r.balance, r.err = token.BalanceOf(ctx, owner); r.err != nil {
		return r
	}
	pos, err := staking.Position(ctx, owner)
	if err != nil {
		r.err = err
		return r
	}
	r.staked = pos.Amount
	r.delegate, r.err = staking.RewardDelegate(ctx, owner)
	return r
}

func renderPositions(rows []walletPosition) string {
	t := ui.NewTable([]ui.Column{
		{Title: "NAME", Width: 14},
		{Title: "ADDRESS", Width: 14},
		{Title: "TYPE", Width: 10},
		{Title: "BALANCE", Width: 16, Right: true},
		{Title: "STAKED", Width: 16, Right: true},
		{Title: "DELEGATE", Width: 14},
	})
	for _, r := range rows {
		row := ui.Row{r.wallet.Name, ui.TruncateAddr(r.wallet.Address), walletTypeLabel(r.wallet.Type)}
		if r.err != nil {
			row = append(row, "—", "—", ui.Warn(shortError(r.err)))
			t.AddRow(row)
			continue
		}
		delegate := "—"
		if r.delegate != (common.Address{}) {
			delegate = ui.TruncateAddr(r.delegate.Hex())
		}
		row = append(row,
			units.Display(r.balance, units.Decimals, places),
			units.Display(r.staked, units.Decimals, places),
			delegate,
		)
		t.AddRow(row)
	}
	return t.Render()
}

func shortError(err error) string {
	s := err.Error()
	if i := strings.LastIndex(s, ": "); i >= 0 {
		s = s[i+2:]
	}
	if r := []rune(s); len(r) > 24 {
		s = string(r[:24]) + "…"
	}
	return s
}
