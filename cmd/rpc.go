package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Mohsinsiddi/zkcstake/internal/config"
	"github.com/Mohsinsiddi/zkcstake/internal/network"
	"github.com/Mohsinsiddi/zkcstake/internal/rpc"
	"github.com/Mohsinsiddi/zkcstake/internal/ui"
	"github.com/spf13/cobra"
)

var rpcCmd = &cobra.Command{
	Use:   "rpc",
	Short: "Manage RPC endpoints",
}

var rpcAddCmd = &cobra.Command{
	Use:   "add <network> <url>",
	Short: "Add a custom RPC URL for a network",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := lookupNetwork(network.NewRegistry(), args[0])
		if err != nil {
			return err
		}
		url := args[1]
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") &&
			!strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
			return fmt.Errorf("RPC URL must start with http(s):// or ws(s)://")
		}
		if err := cfg.AddRPC(p.Key, url); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Added RPC for %s: %s", ui.ChainName(p.Key), url)))
		return nil
	},
}

var rpcRemoveCmd = &cobra.Command{
	Use:   "remove <network> <url>",
	Short: "Remove a custom RPC URL",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, url := strings.ToLower(args[0]), args[1]
		if err := cfg.RemoveRPC(key, url); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Removed RPC for %s: %s", key, url)))
		return nil
	},
}

var rpcListCmd = &cobra.Command{
	Use:   "list [network]",
	Short: "List the RPCs for a network",
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

		fmt.Println(ui.StyleTitle.Render(fmt.Sprintf("RPCs for %s", p.DisplayName)))
		fmt.Println(ui.StyleHeader.Render("Built-in RPC:"))
		fmt.Printf("  %s\n", p.RPCURL)
		if custom := cfg.GetRPCs(p.Key); len(custom) > 0 {
			fmt.Println(ui.StyleHeader.Render("Custom RPCs:"))
			for _, r := range custom {
				fmt.Printf("  %s\n", r)
			}
		}
		fmt.Println(ui.Meta("Selection: " + cfg.RPCAlgorithm))
		return nil
	},
}

var rpcTestCmd = &cobra.Command{
	Use:     "test [network]",
	Aliases: []string{"benchmark"},
	Short:   "Probe every RPC for a network and show which one would be used",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := selectedNetwork()
		if len(args) > 0 {
			key = args[0]
		}
		p, err := lookupNetwork(network.NewRegistry(), key)
		if err != nil {
			return err
		}
		urls := rpcCandidates(cfg, p)

		ctx, cancel := context.WithTimeout(cmd.Context(), config.RPCSelectTimeout+5*time.Second)
		defer cancel()

		spin := ui.NewSpinner(fmt.Sprintf("Probing %d %s RPC(s)...", len(urls), p.DisplayName))
		spin.Start()
		results := rpc.ProbeAll(ctx, urls, p.ChainID)
		spin.Stop()

		fmt.Println(renderProbe(results))
		picked, err := rpc.NewPicker(rpc.ParseAlgorithm(cfg.RPCAlgorithm)).Pick(results)
		if err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("%s would use %s", cfg.RPCAlgorithm, picked.URL)))
		return nil
	},
}

var rpcAlgorithmCmd = &cobra.Command{
	Use:       "algorithm <fastest|round-robin|failover>",
	Short:     "Set how the RPC endpoint is chosen",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{config.AlgoFastest, config.AlgoRoundRobin, config.AlgoFailover},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Set("rpc_algorithm", args[0]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success("RPC selection set to " + args[0]))
		return nil
	},
}

func renderProbe(results []rpc.Endpoint) string {
	t := ui.NewTable([]ui.Column{
		{Title: "RPC URL", Width: 44},
		{Title: "Latency", Width: 9, Right: true},
		{Title: "Block #", Width: 10, Right: true},
		{Title: "Status", Width: 24},
	})
	for _, r := range results {
		latency := fmt.Sprintf("%dms", r.Latency.Milliseconds())
		block := fmt.Sprintf("%d", r.BlockNumber)
		var status string
		switch {
		case r.Err != nil && r.BlockNumber == 0:
			status = ui.Err("down")
			latency, block = "-", "-"
		case r.Err != nil:
			status = ui.Warn(r.Err.Error())
		default:
			status = ui.Success("healthy")
		}
		t.AddRow(ui.Row{r.URL, latency, block, status})
	}
	return t.Render()
}

func init() {
	rpcCmd.AddCommand(rpcAddCmd, rpcRemoveCmd, rpcListCmd, rpcTestCmd, rpcAlgorithmCmd)
}
