package cmd

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Mohsinsiddi/zkcstake/internal/provider"
	"github.com/Mohsinsiddi/zkcstake/internal/session"
	"github.com/Mohsinsiddi/zkcstake/internal/ui"
	"github.com/spf13/cobra"
)

var dashboardNoConnect bool

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"ui"},
	Short:   "Interactive staking dashboard",
	Long: `Open the full-screen staking dashboard.

The wallet is connected before the dashboard opens. Inside it, transactions
are confirmed with y/n on the dashboard itself.

Keys: a approve · s stake · d delegate · n network · w switch wallet network
      r refresh · c connect / copy address · x disconnect · q quit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Once the program owns the terminal, consent is given by the
		// dashboard's own keys.
		var inTUI atomic.Bool
		prompter := ui.Prompter{AssumeYes: assumeYes}
		front := provider.FrontendFuncs{
			Connect: func(account string) bool {
				return inTUI.Load() || prompter.ConfirmConnect(account)
			},
		}

		a, err := newApp(ctx, front)
		if err != nil {
			return err
		}
		defer a.Close()

		if !dashboardNoConnect {
			err := a.connect(ctx)
			if errors.Is(err, session.ErrUserRejected) {
				fmt.Println(ui.Meta("Not connected; press c in the dashboard to connect."))
			} else if err != nil {
				return err
			}
		}

		inTUI.Store(true)
		return ui.RunDashboard(ctx, ui.DashboardConfig{
			Session:  a.sess,
			Staker:   a.coord,
			Networks: networksFrom(a),
		})
	},
}

func init() {
	dashboardCmd.Flags().BoolVar(&dashboardNoConnect, "no-connect", false, "open the dashboard without connecting the wallet")
}
