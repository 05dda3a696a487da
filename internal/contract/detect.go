package contract

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/zkcstake/internal/network"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// eip1967ImplSlot is bytes32(uint256(keccak256("eip1967.proxy.implementation")) - 1).
var eip1967ImplSlot = common.HexToHash("0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc")

// CodeReader reads deployed bytecode and storage. Both ethclient.Client and
// provider.Client satisfy it.
type CodeReader interface {
	CodeAt(ctx context.Context, addr common.Address, block *big.Int) ([]byte, error)
	StorageAt(ctx context.Context, addr common.Address, key common.Hash, block *big.Int) ([]byte, error)
}

// Selector returns the 4-byte function selector for a canonical signature.
func Selector(sig string) [4]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(sig))
	var out [4]byte
	copy(out[:], h.Sum(nil))
	return out
}

var variantMarkers = []struct {
	variant network.StakingABI
	sigs    []string
}{
	{network.StakingV2, []string{"getStakedAmountAndWithdrawalTime(address)", "rewardDelegates(address)"}},
	{network.StakingV1, []string{"delegates(address)", "balanceOf(address)"}},
}

// DetectVariant inspects the bytecode at addr (following an EIP-1967 proxy
// once) and reports which staking ABI it dispatches.
func DetectVariant(ctx context.Context, r CodeReader, addr common.Address) (network.StakingABI, error) {
	code, err := r.CodeAt(ctx, addr, nil)
	if err != nil {
		return "", fmt.Errorf("reading code: %w", err)
	}
	if len(code) == 0 {
		return "", fmt.Errorf("%s: %w", addr.Hex(), ErrNoContract)
	}
	if v, ok := variantFromCode(code); ok {
		return v, nil
	}

	slot, err := r.StorageAt(ctx, addr, eip1967ImplSlot, nil)
	if err != nil {
		return "", fmt.Errorf("reading proxy slot: %w", err)
	}
	impl := common.BytesToAddress(slot)
	if impl == (common.Address{}) {
		return "", ErrUnknownVariant
	}
	code, err = r.CodeAt(ctx, impl, nil)
	if err != nil {
		return "", fmt.Errorf("reading implementation code: %w", err)
	}
	if v, ok := variantFromCode(code); ok {
		return v, nil
	}
	return "", ErrUnknownVariant
}

// variantFromCode looks for PUSH4 <selector> in the function dispatcher.
func variantFromCode(code []byte) (network.StakingABI, bool) {
	for _, m := range variantMarkers {
		all := true
		for _, sig := range m.sigs {
			sel := Selector(sig)
			if !bytes.Contains(code, append([]byte{0x63}, sel[:]...)) {
				all = false
				break
			}
		}
		if all {
			return m.variant, true
		}
	}
	return "", false
}
