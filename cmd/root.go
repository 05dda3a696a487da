package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/Mohsinsiddi/zkcstake/internal/config"
	"github.com/Mohsinsiddi/zkcstake/internal/logging"
	"github.com/Mohsinsiddi/zkcstake/internal/ui"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/zkcstake/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir      string
	cfg         *config.Config
	logger      *log.Logger
	verbose     bool
	assumeYes   bool
	networkFlag string
	walletFlag  string
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "zkcstake",
	Short: "Stake ZKC from the terminal",
	Long: `zkcstake connects a local wallet to the ZKC token and staking contracts.

  Check your balance, allowance, staked position and reward delegate,
  then approve, stake and delegate rewards from the CLI or the dashboard.

The --network flag selects the deployment for a single invocation. Without
it the configured default is used (default: sepolia).
Persist with: zkcstake networks use <network>`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger = logging.New(os.Stderr, verbose)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(ui.Banner())
		return cmd.Help()
	},
}

// Execute runs the root command. An interrupt cancels the command's
// context, which stops any receipt wait in progress.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorLine(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "config directory (default: $"+config.EnvDir+" or ~/.zkcstake)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging to stderr")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "approve wallet prompts without asking")
	rootCmd.PersistentFlags().StringVarP(&networkFlag, "network", "n", "", "network to use (sepolia, mainnet)")
	rootCmd.PersistentFlags().StringVarP(&walletFlag, "wallet", "w", "", "signing wallet to use")

	rootCmd.AddCommand(
		connectCmd,
		statusCmd,
		approveCmd,
		stakeCmd,
		delegateCmd,
		switchCmd,
		networksCmd,
		walletCmd,
		rpcCmd,
		positionsCmd,
		dashboardCmd,
		configCmd,
	)
}
