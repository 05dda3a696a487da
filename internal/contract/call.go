package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ErrNoContract is returned when a call returns no data, which is what a
// node answers for an address without code.
var ErrNoContract = errors.New("empty call result (no contract at address?)")

// bound is an ABI attached to a deployed address.
type bound struct {
	addr   common.Address
	abi    abi.ABI
	caller ethereum.ContractCaller
}

// call packs method(args...), runs it at latest and unpacks the outputs.
func (b *bound) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}
	out, err := b.caller.CallContract(ctx, ethereum.CallMsg{To: &b.addr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", method, ErrNoContract)
	}
	vals, err := b.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", method, err)
	}
	return vals, nil
}

func (b *bound) callBig(ctx context.Context, method string, args ...any) (*big.Int, error) {
	vals, err := b.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	return asBig(method, vals, 0)
}

func (b *bound) callAddress(ctx context.Context, method string, args ...any) (common.Address, error) {
	vals, err := b.call(ctx, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	if len(vals) == 0 {
		return common.Address{}, fmt.Errorf("decoding %s: no outputs", method)
	}
	a, ok := vals[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("decoding %s: unexpected %T", method, vals[0])
	}
	return a, nil
}

func asBig(method string, vals []any, i int) (*big.Int, error) {
	if len(vals) <= i {
		return nil, fmt.Errorf("decoding %s: missing output %d", method, i)
	}
	n, ok := vals[i].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("decoding %s: unexpected %T", method, vals[i])
	}
	return n, nil
}
