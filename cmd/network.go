package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/zkcstake/internal/network"
	"github.com/Mohsinsiddi/zkcstake/internal/ui"
	"github.com/spf13/cobra"
)

var switchCmd = &cobra.Command{
	Use:   "switch [network]",
	Short: "Move the wallet to a network, adding it to the wallet if needed",
	Long: `Ask the wallet to switch to the network's chain. When the wallet does not
know the chain it is asked to add it first.

Without an argument the selected network is used (--network or the default).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			networkFlag = args[0]
		}
		ctx := cmd.Context()
		a, err := newApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.connect(ctx); err != nil {
			return err
		}
		if err := a.sess.SwitchNetwork(ctx, a.profile); err != nil {
			return err
		}
		printSession(a.reg, a.profile, a.sess.Snapshot(), a.sess.Status(a.profile))
		return nil
	},
}

var networksCmd = &cobra.Command{
	Use:     "networks",
	Aliases: []string{"network"},
	Short:   "List and select staking deployments",
}

var networksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported networks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := network.NewRegistry()
		t := ui.NewTable([]ui.Column{
			{Title: "Key", Width: 9},
			{Title: "Name", Width: 18},
			{Title: "Chain ID", Width: 10, Right: true},
			{Title: "Staking ABI", Width: 11},
			{Title: "Token", Width: 42},
			{Title: "", Width: 7},
		})
		for _, p := range reg.All() {
			abi := string(p.StakingABI)
			if v := cfg.StakingVariant(p.Key); v != "" {
				abi = v
			}
			def := ""
			if p.Key == cfg.DefaultNetwork {
				def = ui.StyleSuccess.Render("default")
			}
			t.AddRow(ui.Row{
				ui.ChainName(p.Key),
				p.DisplayName,
				fmt.Sprintf("%d", p.ChainID),
				abi,
				ui.Addr(p.Token.Hex()),
				def,
			})
		}
		fmt.Println(t.Render())
		return nil
	},
}

var networksUseCmd = &cobra.Command{
	Use:   "use [network]",
	Short: "Set the default network",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := network.NewRegistry()
		var key string
		if len(args) > 0 {
			key = args[0]
		} else {
			var err error
			if key, err = ui.PickNetwork(reg.All(), cfg.DefaultNetwork); err != nil {
				return err
			}
		}
		p, err := lookupNetwork(reg, key)
		if err != nil {
			return err
		}
		cfg.DefaultNetwork = p.Key
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Default network set to %s.", ui.ChainName(p.DisplayName))))
		fmt.Println(ui.Hint("Move the wallet there with: zkcstake switch"))
		return nil
	},
}

var networksShowCmd = &cobra.Command{
	Use:   "show [network]",
	Short: "Show a network's contracts and endpoints",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := selectedNetwork()
		if len(args) > 0 {
			key = args[0]
		}
		p, err := lookupNetwork(network.NewRegistry(), key)
		if err != nil {
			return err
		}
		fmt.Println(ui.KeyValueBlock(p.DisplayName, [][2]string{
			{"Key", p.Key},
			{"Chain ID", fmt.Sprintf("%d (%s)", p.ChainID, p.ChainIDHex())},
			{"Token", p.Token.Hex()},
			{"Staking", p.Staking.Hex()},
			{"Staking ABI", string(p.StakingABI)},
			{"RPC", p.RPCURL},
			{"Explorer", p.Explorer},
		}))
		if custom := cfg.GetRPCs(p.Key); len(custom) > 0 {
			fmt.Println(ui.Meta(fmt.Sprintf("%d custom RPC(s), see: zkcstake rpc list %s", len(custom), p.Key)))
		}
		return nil
	},
}

func init() {
	networksCmd.AddCommand(networksListCmd, networksUseCmd, networksShowCmd)
}
