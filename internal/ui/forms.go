package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/zkcstake/internal/contract"
	"github.com/Mohsinsiddi/zkcstake/internal/network"
	"github.com/Mohsinsiddi/zkcstake/internal/provider"
	"github.com/Mohsinsiddi/zkcstake/internal/units"
	"github.com/charmbracelet/huh"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrAborted is returned when the user cancels a prompt.
var ErrAborted = errors.New("aborted")

func run(fields ...huh.Field) error {
	err := huh.NewForm(huh.NewGroup(fields...)).WithTheme(huh.ThemeCatppuccin()).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}
	return err
}

// ValidateAmount accepts a positive token amount with at most 18 decimals.
func ValidateAmount(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("amount is required")
	}
	v, err := units.ParseEther(s)
	if err != nil {
		return err
	}
	if v.Sign() == 0 {
		return errors.New("amount must be greater than 0")
	}
	return nil
}

// ValidateAddress accepts a non-zero 0x-prefixed hex address.
func ValidateAddress(s string) error {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) || !strings.HasPrefix(s, "0x") {
		return errors.New("invalid address")
	}
	if common.HexToAddress(s) == (common.Address{}) {
		return errors.New("zero address")
	}
	return nil
}

// AskAmount prompts for a token amount. hint is shown under the title,
// typically the available balance.
func AskAmount(title, hint string) (string, error) {
	var v string
	err := run(huh.NewInput().
		Title(title).
		Description(hint).
		Placeholder("0.0").
		Value(&v).
		Validate(ValidateAmount))
	return strings.TrimSpace(v), err
}

// AskAddress prompts for an address.
func AskAddress(title string) (string, error) {
	var v string
	err := run(huh.NewInput().
		Title(title).
		Placeholder("0x...").
		CharLimit(42).
		Value(&v).
		Validate(ValidateAddress))
	return strings.TrimSpace(v), err
}

// AskSecret prompts for hidden input such as a private key.
func AskSecret(title string) (string, error) {
	var v string
	err := run(huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(&v).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("required")
			}
			return nil
		}))
	return strings.TrimSpace(v), err
}

// PickNetwork offers the given profiles and returns the chosen key.
func PickNetwork(profiles []network.Profile, current string) (string, error) {
	opts := make([]huh.Option[string], 0, len(profiles))
	for _, p := range profiles {
		opts = append(opts, huh.NewOption(fmt.Sprintf("%s (chain %d)", p.DisplayName, p.ChainID), p.Key))
	}
	v := current
	err := run(huh.NewSelect[string]().Title("Network").Options(opts...).Value(&v))
	return v, err
}

// PickerItem is one choice in PickItem.
type PickerItem struct {
	Label    string
	SubLabel string
	Value    string
}

// PickItem offers items and returns the chosen Value.
func PickItem(title string, items []PickerItem) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("no items to pick from")
	}
	opts := make([]huh.Option[string], 0, len(items))
	for _, it := range items {
		label := it.Label
		if it.SubLabel != "" {
			label += "  " + StyleMeta.Render(it.SubLabel)
		}
		opts = append(opts, huh.NewOption(label, it.Value))
	}
	var v string
	err := run(huh.NewSelect[string]().Title(title).Options(opts...).Value(&v))
	return v, err
}

// Confirm asks a yes/no question. A cancelled prompt counts as no.
func Confirm(prompt string) bool {
	ok := false
	if err := run(huh.NewConfirm().Title(prompt).Affirmative("Yes").Negative("No").Value(&ok)); err != nil {
		return false
	}
	return ok
}

// Prompter is the terminal Frontend for the local wallet: each consent
// request becomes a confirm prompt, unless AssumeYes is set.
type Prompter struct {
	AssumeYes bool
}

var _ provider.Frontend = Prompter{}

func (p Prompter) ConfirmConnect(account string) bool {
	return p.AssumeYes || Confirm("Connect account "+account+"?")
}

func (p Prompter) ConfirmAddChain(params provider.AddChainParams) bool {
	return p.AssumeYes || Confirm(fmt.Sprintf("Add network %s (%s) via %s?",
		params.ChainName, params.ChainID, strings.Join(params.RPCURLs, ", ")))
}

func (p Prompter) ConfirmTransaction(tx provider.TxRequest, chain provider.ChainInfo) bool {
	if p.AssumeYes {
		return true
	}
	fmt.Println(KeyValueBlock("Transaction", TxSummary(tx, chain)))
	return Confirm("Sign and send?")
}

// TxSummary lists what the user is being asked to sign.
func TxSummary(tx provider.TxRequest, chain provider.ChainInfo) [][2]string {
	pairs := [][2]string{
		{"Network", fmt.Sprintf("%s (%d)", chain.Name, chain.ChainID)},
		{"From", tx.From},
		{"To", tx.To},
	}
	if data, err := decodeHex(tx.Data); err == nil && len(data) > 0 {
		pairs = append(pairs, [2]string{"Call", contract.DescribeCall(data)})
	}
	if v, err := hexutil.DecodeBig(tx.Value); err == nil && v.Sign() > 0 {
		pairs = append(pairs, [2]string{"Value", units.FormatEther(v) + " " + chain.Symbol})
	}
	return pairs
}

func decodeHex(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return hexutil.Decode(s)
}
