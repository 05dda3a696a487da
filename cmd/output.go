package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Mohsinsiddi/zkcstake/internal/network"
	"github.com/Mohsinsiddi/zkcstake/internal/session"
	"github.com/Mohsinsiddi/zkcstake/internal/stake"
	"github.com/Mohsinsiddi/zkcstake/internal/ui"
	"github.com/Mohsinsiddi/zkcstake/internal/units"
)

// places is the number of decimals amounts are printed with.
const places = 4

// errorLine renders a command error with a hint for the errors a user can
// act on.
func errorLine(err error) string {
	var hint string
	switch {
	case errors.Is(err, stake.ErrApprovalRequired):
		hint = "Approve first with: zkcstake approve <amount>, or pass --approve to stake"
	case errors.Is(err, stake.ErrWrongNetwork):
		hint = "Move the wallet with: zkcstake switch"
	case errors.Is(err, session.ErrUserRejected), errors.Is(err, stake.ErrTransactionRejected):
		hint = "The request was declined; nothing was sent"
	case errors.Is(err, session.ErrNetworkAddFailed):
		hint = "Check the network's RPC with: zkcstake rpc test"
	case errors.Is(err, stake.ErrActionInFlight):
		hint = "Wait for the pending transaction to confirm"
	}
	out := ui.Err(err.Error())
	if hint != "" {
		out += "\n" + ui.Hint(hint)
	}
	return out
}

// printTx prints a confirmed (or reverted) write with its explorer link.
func printTx(p network.Profile, kind string, res *stake.Result) {
	link := p.TxURL(res.Hash.Hex())
	if link == "" {
		link = res.Hash.Hex()
	}
	if res.Receipt != nil && res.Receipt.Status == 0 {
		fmt.Println(ui.Err(fmt.Sprintf("%s reverted", titleCase(kind))))
	} else {
		fmt.Println(ui.Success(fmt.Sprintf("%s confirmed", titleCase(kind))))
	}
	pairs := [][2]string{{"Tx", res.Hash.Hex()}}
	if res.Receipt != nil {
		pairs = append(pairs,
			[2]string{"Block", res.Receipt.BlockNumber.String()},
			[2]string{"Gas used", fmt.Sprintf("%d", res.Receipt.GasUsed)},
		)
	}
	if res.Staked != nil {
		pairs = append(pairs, [2]string{"Staked", units.FormatEther(res.Staked.Amount) + " ZKC"})
	}
	fmt.Println(ui.KeyValueBlock("", pairs))
	fmt.Println(ui.Hint(link))
	if res.RefreshErr != nil {
		fmt.Println(ui.Warn("Position not refreshed: " + res.RefreshErr.Error()))
	}
}

// positionPairs lays out a financial state for KeyValueBlock. delegateName,
// when set, is shown after the delegate address.
func positionPairs(p network.Profile, st *stake.FinancialState, delegateName string) [][2]string {
	withdraw := "none"
	if t := st.Withdrawable(); !t.IsZero() {
		withdraw = t.Local().Format(time.DateTime)
	}
	delegate := "not set"
	if st.HasDelegate() {
		delegate = st.Delegate.Hex()
		if delegateName != "" {
			delegate += " (" + delegateName + ")"
		}
	}
	return [][2]string{
		{"Network", fmt.Sprintf("%s (%d)", p.DisplayName, p.ChainID)},
		{"Account", st.Account.Hex()},
		{"Balance", units.Display(st.TokenBalance, units.Decimals, places) + " ZKC"},
		{"Staked", units.Display(st.StakedAmount, units.Decimals, places) + " veZKC"},
		{"Withdrawable", withdraw},
		{"Allowance", units.Display(st.Allowance, units.Decimals, places) + " ZKC"},
		{"Delegate", delegate},
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
