package contract_test

import (
	"math/big"
	"testing"

	"github.com/Mohsinsiddi/zkcstake/internal/contract"
	"github.com/Mohsinsiddi/zkcstake/internal/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeCall(t *testing.T) {
	tok := contract.NewToken(tokenAddr, nil)
	data, err := tok.PackApprove(stakingAddr, new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18)))
	require.NoError(t, err)
	assert.Equal(t, "approve(spender="+stakingAddr.Hex()+", value=10.0)", contract.DescribeCall(data))

	st, err := contract.NewStaking(stakingAddr, network.StakingV2, nil)
	require.NoError(t, err)
	data, err = st.PackDelegate(delegatee)
	require.NoError(t, err)
	assert.Equal(t, "delegateRewards(delegatee="+delegatee.Hex()+")", contract.DescribeCall(data))

	data, err = st.PackStake(big.NewInt(5e17))
	require.NoError(t, err)
	assert.Equal(t, "stake(amount=0.5)", contract.DescribeCall(data))
}

func TestDescribeCallUnknown(t *testing.T) {
	assert.Equal(t, "transfer", contract.DescribeCall(nil))
	assert.Equal(t, "0xdeadbeef(…)", contract.DescribeCall([]byte{0xde, 0xad, 0xbe, 0xef, 0x00}))
}
