package stake

import (
	"math/big"
	"strings"

	"github.com/Mohsinsiddi/zkcstake/internal/units"
)

// NeedsApproval reports whether entered (a decimal token amount) exceeds
// allowance (base units). An empty entry never needs approval. A nil
// allowance counts as zero.
func NeedsApproval(entered string, allowance *big.Int) (bool, error) {
	if strings.TrimSpace(entered) == "" {
		return false, nil
	}
	amt, err := units.ParseEther(entered)
	if err != nil {
		return false, err
	}
	if allowance == nil {
		allowance = new(big.Int)
	}
	return amt.Cmp(allowance) > 0, nil
}

// Actions is the derived state of the approve and stake controls.
type Actions struct {
	NeedsApproval  bool
	ShowApprove    bool
	ApproveEnabled bool
	StakeEnabled   bool
	InputErr       error // set when the entered amount does not parse
}

// DeriveActions computes the controls for entered against st. It is
// recomputed on every change of either input and never cached. A zero
// amount enables neither control.
func DeriveActions(entered string, st *FinancialState, busy bool) Actions {
	var allowance *big.Int
	if st != nil {
		allowance = st.Allowance
	}
	needs, err := NeedsApproval(entered, allowance)
	if err != nil {
		return Actions{InputErr: err}
	}
	filled := false
	if strings.TrimSpace(entered) != "" {
		amt, _ := units.ParseEther(entered)
		filled = amt.Sign() > 0
	}
	return Actions{
		NeedsApproval:  needs,
		ShowApprove:    needs,
		ApproveEnabled: needs && filled && !busy && st != nil,
		StakeEnabled:   !needs && filled && !busy && st != nil,
	}
}
