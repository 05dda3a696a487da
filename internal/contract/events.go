package contract

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// StakedEvent is a decoded Staked(user, amount) log.
type StakedEvent struct {
	User   common.Address
	Amount *big.Int
	TxHash common.Hash
}

// StakedTopic is the Staked event signature hash (identical in v1 and v2).
func StakedTopic() common.Hash {
	return mustABI(BuiltinStakingV2).Events["Staked"].ID
}

// ParseStaked decodes a Staked log.
func ParseStaked(lg *types.Log) (*StakedEvent, error) {
	if len(lg.Topics) != 2 || lg.Topics[0] != StakedTopic() {
		return nil, fmt.Errorf("log is not a Staked event")
	}
	vals, err := mustABI(BuiltinStakingV2).Unpack("Staked", lg.Data)
	if err != nil {
		return nil, fmt.Errorf("decoding Staked: %w", err)
	}
	amt, err := asBig("Staked", vals, 0)
	if err != nil {
		return nil, err
	}
	return &StakedEvent{
		User:   common.BytesToAddress(lg.Topics[1].Bytes()),
		Amount: amt,
		TxHash: lg.TxHash,
	}, nil
}

// StakedFromReceipt returns the first Staked event emitted by staking in r.
func StakedFromReceipt(r *types.Receipt, staking common.Address) (*StakedEvent, bool) {
	if r == nil {
		return nil, false
	}
	for _, lg := range r.Logs {
		if lg.Address != staking {
			continue
		}
		if ev, err := ParseStaked(lg); err == nil {
			return ev, true
		}
	}
	return nil, false
}
