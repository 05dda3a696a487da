package cmd

import (
	"fmt"
	"time"

	"github.com/Mohsinsiddi/zkcstake/internal/network"
	"github.com/Mohsinsiddi/zkcstake/internal/ui"
	"github.com/Mohsinsiddi/zkcstake/internal/wallet"
	"github.com/spf13/cobra"
)

var (
	walletKeyFlag   bool
	walletUnlockAll bool
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage wallets",
}

var walletAddCmd = &cobra.Command{
	Use:   "add <name> [address]",
	Short: "Add a wallet",
	Long: `Add a signing wallet (--key, the private key is prompted for and stored in
the OS keychain) or a watch-only address.

  zkcstake wallet add alice --key
  zkcstake wallet add treasury 0xAbC...`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		mgr := newWalletManager()

		if walletKeyFlag {
			hexKey, err := ui.AskSecret("Private key for " + name)
			if err != nil {
				return err
			}
			if err := mgr.AddWithKey(name, hexKey); err != nil {
				return err
			}
			w, _ := mgr.Get(name)
			fmt.Println(ui.Success(fmt.Sprintf("Signing wallet %q added: %s", name, ui.Addr(w.Address))))
			fmt.Println(ui.Hint(fmt.Sprintf("Set as default with: zkcstake wallet use %s", name)))
			return nil
		}

		if len(args) < 2 {
			return fmt.Errorf("address required for watch-only wallet\n  Usage: zkcstake wallet add <name> <address>\n  Or for signing: zkcstake wallet add <name> --key")
		}
		if err := mgr.Add(name, args[1]); err != nil {
			return err
		}
		w, _ := mgr.Get(name)
		fmt.Println(ui.Success(fmt.Sprintf("Watch-only wallet %q added: %s", name, ui.Addr(w.Address))))
		fmt.Println(ui.Meta("Watch-only wallets cannot approve or stake."))
		return nil
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all wallets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wallets := newWalletManager().List()
		if len(wallets) == 0 {
			fmt.Println(ui.Info("No wallets configured yet."))
			fmt.Println(ui.Hint("Add one with: zkcstake wallet add myWallet --key"))
			return nil
		}

		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 16},
			{Title: "Address", Width: 44},
			{Title: "Type", Width: 12},
			{Title: "Default", Width: 8},
		})
		for _, w := range wallets {
			def := ""
			if w.IsDefault {
				def = ui.StyleSuccess.Render("✓")
			}
			t.AddRow(ui.Row{
				ui.Val(w.Name),
				ui.Addr(w.Address),
				ui.Meta(walletTypeLabel(w.Type)),
				def,
			})
		}
		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("%d wallet(s) configured", len(wallets))))
		return nil
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a wallet and its stored key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if !assumeYes && !ui.Confirm(fmt.Sprintf("Remove wallet %q?", name)) {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}
		if err := newWalletManager().Remove(name); err != nil {
			return err
		}
		if cfg.DefaultWallet == name {
			cfg.DefaultWallet = ""
			if err := cfg.Save(); err != nil {
				return err
			}
		}
		fmt.Println(ui.Success(fmt.Sprintf("Wallet %q removed.", name)))
		return nil
	},
}

var walletUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Set the default signing wallet",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := newWalletManager()
		var name string
		if len(args) > 0 {
			name = args[0]
		} else {
			picked, err := pickSigningWallet(mgr, "Default wallet")
			if err != nil {
				return err
			}
			name = picked
		}
		if err := mgr.SetDefault(name); err != nil {
			return err
		}
		cfg.DefaultWallet = name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Default wallet set to %q.", name)))
		fmt.Println(ui.Hint("Used for every command when --wallet is not given."))
		return nil
	},
}

var walletQRCmd = &cobra.Command{
	Use:   "qr [name]",
	Short: "Show a QR code for receiving ZKC",
	Long: `Print an EIP-681 token transfer request for the wallet as a QR code, so a
mobile wallet can send ZKC to it on the selected network.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := lookupNetwork(network.NewRegistry(), selectedNetwork())
		if err != nil {
			return err
		}
		mgr := newWalletManager()
		name := walletFlag
		if len(args) > 0 {
			name = args[0]
		}
		var w *wallet.Wallet
		switch {
		case name != "":
			if w, err = mgr.Get(name); err != nil {
				return err
			}
		case cfg.DefaultWallet != "":
			if w, err = mgr.Get(cfg.DefaultWallet); err != nil {
				return err
			}
		default:
			if w = mgr.Default(); w == nil {
				return fmt.Errorf("no wallet given and no default set")
			}
		}

		uri := p.TokenTransferURI(w.Account())
		fmt.Println(ui.QRCode(uri))
		fmt.Printf("  %s  %s\n", ui.Meta("Wallet: "), ui.Val(w.Name))
		fmt.Printf("  %s  %s\n", ui.Meta("Address:"), ui.Addr(w.Account().Hex()))
		fmt.Printf("  %s  %s\n", ui.Meta("Network:"), ui.ChainName(p.DisplayName))
		fmt.Println(ui.Hint(uri))
		return nil
	},
}

var walletUnlockCmd = &cobra.Command{
	Use:   "unlock [name]",
	Short: "Cache wallet key(s) for the session (skips future keychain prompts)",
	Long: `Retrieve private keys from the OS keychain once and cache them in a
restricted session file so later approve / stake / delegate runs do not
prompt the keychain again. Cached keys expire after eight hours.

  zkcstake wallet unlock          # pick a wallet
  zkcstake wallet unlock alice
  zkcstake wallet unlock --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := newWalletManager()
		signing := mgr.Signing()
		if len(signing) == 0 {
			fmt.Println(ui.Info("No signing wallets found."))
			fmt.Println(ui.Hint("Add one with: zkcstake wallet add <name> --key"))
			return nil
		}

		var targets []*wallet.Wallet
		switch {
		case walletUnlockAll:
			targets = signing
		default:
			name := ""
			if len(args) > 0 {
				name = args[0]
			} else {
				picked, err := pickSigningWallet(mgr, "Unlock wallet")
				if err != nil {
					return err
				}
				name = picked
			}
			w, err := mgr.Get(name)
			if err != nil {
				return fmt.Errorf("%w: %s", err, name)
			}
			if !w.CanSign() {
				return fmt.Errorf("wallet %q is watch-only", name)
			}
			targets = []*wallet.Wallet{w}
		}

		ks, ok := mgr.Keystore().(*wallet.Keystore)
		if !ok {
			return fmt.Errorf("keystore does not support unlocking")
		}
		fmt.Println(ui.Info("Your OS keychain may prompt once per wallet being unlocked."))

		refs := make([]string, len(targets))
		byRef := make(map[string]string, len(targets))
		for i, w := range targets {
			refs[i] = w.KeyRef
			byRef[w.KeyRef] = w.Name
		}
		failed, err := ks.Unlock(refs)
		if err != nil {
			return fmt.Errorf("caching keys: %w", err)
		}
		for _, ref := range failed {
			fmt.Println(ui.Err(fmt.Sprintf("  %-20s could not be read", byRef[ref])))
		}
		if n := len(refs) - len(failed); n > 0 {
			until := ks.Session().Expiry().Local().Format(time.DateTime)
			fmt.Println(ui.Success(fmt.Sprintf("%d wallet(s) cached until %s.", n, until)))
			fmt.Println(ui.Hint("Clear earlier with: zkcstake wallet lock"))
		}
		if len(failed) > 0 {
			return fmt.Errorf("%d wallet(s) could not be unlocked", len(failed))
		}
		return nil
	},
}

var walletLockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Clear the session cache (re-enables keychain prompts)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session := wallet.NewSessionCache(wallet.DefaultSessionPath(), wallet.DefaultSessionTTL)
		if ks, ok := newWalletManager().Keystore().(*wallet.Keystore); ok && ks.Session() != nil {
			session = ks.Session()
		}
		if !session.Active() {
			fmt.Println(ui.Meta("No active session, nothing to clear."))
			return nil
		}
		if err := session.Clear(); err != nil {
			return fmt.Errorf("clearing session: %w", err)
		}
		fmt.Println(ui.Success("Session cleared. Keychain will be used on next access."))
		return nil
	},
}

func init() {
	walletAddCmd.Flags().BoolVar(&walletKeyFlag, "key", false, "prompt for a private key and add a signing wallet")
	walletUnlockCmd.Flags().BoolVar(&walletUnlockAll, "all", false, "unlock all signing wallets")
	walletCmd.AddCommand(walletAddCmd, walletListCmd, walletRemoveCmd, walletUseCmd, walletQRCmd, walletUnlockCmd, walletLockCmd)
}

func pickSigningWallet(mgr *wallet.Manager, title string) (string, error) {
	signing := mgr.Signing()
	items := make([]ui.PickerItem, len(signing))
	for i, w := range signing {
		items[i] = ui.PickerItem{Label: w.Name, SubLabel: ui.TruncateAddr(w.Address), Value: w.Name}
	}
	return ui.PickItem(title, items)
}

// walletTypeLabel converts an internal wallet type to a user-friendly label.
func walletTypeLabel(t string) string {
	switch t {
	case wallet.TypeSigning:
		return "signing"
	default:
		return t
	}
}
