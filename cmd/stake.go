package cmd

import (
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/zkcstake/internal/ens"
	"github.com/Mohsinsiddi/zkcstake/internal/stake"
	"github.com/Mohsinsiddi/zkcstake/internal/ui"
	"github.com/Mohsinsiddi/zkcstake/internal/units"
	"github.com/spf13/cobra"
)

var stakeApproveFlag bool

var approveCmd = &cobra.Command{
	Use:   "approve [amount]",
	Short: "Allow the staking contract to spend ZKC",
	Long: `Set the staking contract's allowance to amount (in ZKC, up to 18 decimals).

Without an amount argument you are prompted for one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ensureNetwork(ctx); err != nil {
			return err
		}
		amount, err := amountArg(args, "Amount to approve", "")
		if err != nil {
			return err
		}
		_, err = a.write("approve", func() (*stake.Result, error) {
			return a.coord.Approve(ctx, amount)
		})
		return err
	},
}

var stakeCmd = &cobra.Command{
	Use:   "stake [amount]",
	Short: "Stake ZKC",
	Long: `Stake amount ZKC. The allowance must already cover it; pass --approve to
send the approval first when it does not.

Without an amount argument you are prompted for one, with your balance shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ensureNetwork(ctx); err != nil {
			return err
		}
		st, err := a.coord.Refresh(ctx)
		if err != nil {
			return err
		}
		hint := "Balance: " + units.Display(st.TokenBalance, units.Decimals, places) + " ZKC"
		amount, err := amountArg(args, "Amount to stake", hint)
		if err != nil {
			return err
		}

		needs, err := stake.NeedsApproval(amount, st.Allowance)
		if err != nil {
			return err
		}
		if needs {
			if !stakeApproveFlag {
				return fmt.Errorf("%w: allowance is %s ZKC", stake.ErrApprovalRequired, units.FormatEther(st.Allowance))
			}
			fmt.Println(ui.Info(fmt.Sprintf("Allowance %s ZKC is below %s, approving first.", units.FormatEther(st.Allowance), amount)))
			if _, err := a.write("approve", func() (*stake.Result, error) {
				return a.coord.Approve(ctx, amount)
			}); err != nil {
				return err
			}
		}

		_, err = a.write("stake", func() (*stake.Result, error) {
			return a.coord.Stake(ctx, amount)
		})
		if err != nil {
			return err
		}
		if fs, ok := a.coord.Current(); ok {
			fmt.Println(ui.KeyValueBlock("ZKC position", positionPairs(a.profile, fs, "")))
		}
		return nil
	},
}

var delegateCmd = &cobra.Command{
	Use:   "delegate [address]",
	Short: "Delegate staking rewards to an address",
	Long: `Assign the reward rights of your staked position to another address.

The delegate may be given as a hex address or an ENS name (vitalik.eth),
which is resolved on the selected network before anything is sent.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ensureNetwork(ctx); err != nil {
			return err
		}
		var to string
		if len(args) > 0 {
			to = strings.TrimSpace(args[0])
		} else if to, err = ui.AskAddress("Delegate rewards to"); err != nil {
			return err
		}
		if ens.IsName(to) {
			addr, err := ens.Resolve(ctx, a.sess.Client(), to)
			if err != nil {
				return fmt.Errorf("%w: %v", stake.ErrInvalidDelegate, err)
			}
			fmt.Println(ui.Info(fmt.Sprintf("%s resolves to %s", to, ui.Addr(addr.Hex()))))
			to = addr.Hex()
		}
		_, err = a.write("delegate", func() (*stake.Result, error) {
			return a.coord.DelegateRewards(ctx, to)
		})
		return err
	},
}

// amountArg takes the amount from args or prompts for it.
func amountArg(args []string, title, hint string) (string, error) {
	if len(args) > 0 {
		s := strings.TrimSpace(args[0])
		if err := ui.ValidateAmount(s); err != nil {
			return "", fmt.Errorf("%w: %v", stake.ErrInvalidAmount, err)
		}
		return s, nil
	}
	return ui.AskAmount(title, hint)
}

func init() {
	stakeCmd.Flags().BoolVar(&stakeApproveFlag, "approve", false, "approve the amount first when the allowance is too low")
}
