package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// Token is the ERC-20 being staked.
type Token struct {
	bound
}

// NewToken binds the ERC-20 ABI to addr. Reads go through caller.
func NewToken(addr common.Address, caller ethereum.ContractCaller) *Token {
	return &Token{bound{addr: addr, abi: mustABI(BuiltinERC20), caller: caller}}
}

// Address returns the token contract address.
func (t *Token) Address() common.Address { return t.addr }

// BalanceOf returns owner's balance in base units.
func (t *Token) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return t.callBig(ctx, "balanceOf", owner)
}

// Allowance returns how much spender may pull from owner.
func (t *Token) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return t.callBig(ctx, "allowance", owner, spender)
}

// Symbol returns the token ticker.
func (t *Token) Symbol(ctx context.Context) (string, error) {
	vals, err := t.call(ctx, "symbol")
	if err != nil {
		return "", err
	}
	s, ok := vals[0].(string)
	if !ok {
		return "", fmt.Errorf("decoding symbol: unexpected %T", vals[0])
	}
	return s, nil
}

// Decimals returns the token's decimal places.
func (t *Token) Decimals(ctx context.Context) (uint8, error) {
	vals, err := t.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	d, ok := vals[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decoding decimals: unexpected %T", vals[0])
	}
	return d, nil
}

// PackApprove encodes approve(spender, amount).
func (t *Token) PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	return t.abi.Pack("approve", spender, amount)
}
