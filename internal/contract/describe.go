package contract

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/Mohsinsiddi/zkcstake/internal/units"
	"github.com/ethereum/go-ethereum/common"
)

// DescribeCall renders calldata for one of the embedded ABIs as a readable
// call, e.g. "approve(spender=0xc233…, value=10.0)". Token amounts are
// shown in whole tokens. Unknown selectors come back as the raw selector.
func DescribeCall(data []byte) string {
	if len(data) < 4 {
		return "transfer"
	}
	for _, b := range AllBuiltins() {
		m, err := b.ABI.MethodById(data[:4])
		if err != nil {
			continue
		}
		args, err := m.Inputs.Unpack(data[4:])
		if err != nil {
			return m.Name + "(<malformed>)"
		}
		parts := make([]string, len(args))
		for i, a := range args {
			name := m.Inputs[i].Name
			if name == "" {
				name = fmt.Sprintf("arg%d", i)
			}
			parts[i] = name + "=" + describeArg(a)
		}
		return m.Name + "(" + strings.Join(parts, ", ") + ")"
	}
	return fmt.Sprintf("0x%x(…)", data[:4])
}

func describeArg(v any) string {
	switch x := v.(type) {
	case *big.Int:
		return units.FormatEther(x)
	case common.Address:
		return x.Hex()
	default:
		return fmt.Sprint(x)
	}
}
