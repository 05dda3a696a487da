package config

import "time"

// Gas limits used as EstimateGas fallbacks when the node cannot simulate the tx.
// These are conservative upper bounds; actual gas used will be lower.
const (
	GasLimitApprove  = uint64(60_000)
	GasLimitStake    = uint64(150_000)
	GasLimitDelegate = uint64(120_000)
)

// Timeouts used across cmd.
const (
	RPCSelectTimeout = 10 * time.Second // endpoint benchmark before picking an RPC
	TxConfirmTimeout = 3 * time.Minute  // default wait for a receipt
	ReceiptPoll      = 2 * time.Second
)

// Staking ABI choices accepted in staking_abi. "auto" inspects the deployed
// bytecode.
const (
	StakingABIAuto = "auto"
	StakingABIV1   = "v1"
	StakingABIV2   = "v2"
)

// RPC selection algorithms.
const (
	AlgoFastest    = "fastest"
	AlgoRoundRobin = "round-robin"
	AlgoFailover   = "failover"
)
