package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/zkcstake/internal/ens"
	"github.com/Mohsinsiddi/zkcstake/internal/network"
	"github.com/Mohsinsiddi/zkcstake/internal/session"
	"github.com/Mohsinsiddi/zkcstake/internal/ui"
	"github.com/spf13/cobra"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect the wallet and show which account and chain it is on",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.connect(ctx); err != nil {
			return err
		}
		printSession(a.reg, a.profile, a.sess.Snapshot(), a.sess.Status(a.profile))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show balance, allowance, staked position and reward delegate",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.connect(ctx); err != nil {
			return err
		}
		st := a.sess.Status(a.profile)
		if st != session.Connected {
			printSession(a.reg, a.profile, a.sess.Snapshot(), st)
			return nil
		}
		return printPosition(ctx, a)
	},
}

func printPosition(ctx context.Context, a *app) error {
	spin := ui.NewSpinner(fmt.Sprintf("Reading position on %s...", a.profile.DisplayName))
	spin.Start()
	fs, err := a.coord.Refresh(ctx)
	spin.Stop()
	if err != nil {
		return err
	}
	var name string
	if fs.HasDelegate() {
		lctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		name, err = ens.ReverseLookup(lctx, a.sess.Client(), fs.Delegate)
		cancel()
		if err != nil {
			logger.Debug("delegate has no ENS name", "delegate", fs.Delegate.Hex(), "err", err)
			name = ""
		}
	}
	fmt.Println(ui.KeyValueBlock("ZKC position", positionPairs(a.profile, fs, name)))
	return nil
}

// printSession describes the connection relative to the selected network.
func printSession(reg *network.Registry, p network.Profile, s session.WalletSession, st session.Status) {
	switch st {
	case session.Connected:
		fmt.Println(ui.Success(fmt.Sprintf("Connected to %s", ui.ChainName(p.DisplayName))))
	case session.WrongNetwork:
		on := fmt.Sprintf("chain %d", s.ChainID)
		if other, err := reg.ByChainID(s.ChainID); err == nil {
			on = other.DisplayName
		}
		fmt.Println(ui.Warn(fmt.Sprintf("Wallet is on %s, not %s", on, p.DisplayName)))
		fmt.Println(ui.Hint("Switch with: zkcstake switch " + p.Key))
	default:
		fmt.Println(ui.Info("Wallet not connected."))
		return
	}
	fmt.Printf("  %s  %s\n", ui.Meta("Account:"), ui.Addr(s.Account.Hex()))
	fmt.Printf("  %s  %s\n", ui.Meta("Chain:  "), ui.Val(fmt.Sprintf("%d", s.ChainID)))
}
