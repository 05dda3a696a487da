package contract

// Two staking contract generations are deployed. v1 is the plain vote-escrow
// surface; v2 adds withdrawal times and separates reward delegation.
//
//	v1: stake(u256) balanceOf(a) totalSupply() delegate(a) delegates(a)
//	v2: stake(u256) getStakedAmountAndWithdrawalTime(a) delegateRewards(a) rewardDelegates(a)
func init() {
	RegisterBuiltin(BuiltinKind{
		ID:          BuiltinStakingV1,
		Name:        "Staking (v1)",
		Description: "Legacy staking: balanceOf / delegate / delegates.",
		JSON:        stakingV1JSON,
	})
	RegisterBuiltin(BuiltinKind{
		ID:          BuiltinStakingV2,
		Name:        "Staking (v2)",
		Description: "Staking with withdrawal time and reward delegation.",
		JSON:        stakingV2JSON,
	})
}

// Registry IDs of the staking ABIs.
const (
	BuiltinStakingV1 = "staking-v1"
	BuiltinStakingV2 = "staking-v2"
)

const stakedEventJSON = `{"type":"event","name":"Staked","inputs":[{"name":"user","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}],"anonymous":false}`

const stakingV1JSON = `[
  {"type":"function","name":"stake","inputs":[{"name":"amount","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"balanceOf","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
  {"type":"function","name":"totalSupply","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
  {"type":"function","name":"delegate","inputs":[{"name":"delegatee","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"delegates","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
  ` + stakedEventJSON + `
]`

const stakingV2JSON = `[
  {"type":"function","name":"stake","inputs":[{"name":"amount","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"getStakedAmountAndWithdrawalTime","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"amount","type":"uint256"},{"name":"withdrawableAt","type":"uint256"}],"stateMutability":"view"},
  {"type":"function","name":"delegateRewards","inputs":[{"name":"delegatee","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"rewardDelegates","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
  ` + stakedEventJSON + `
]`
