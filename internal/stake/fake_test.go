package stake_test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/Mohsinsiddi/zkcstake/internal/contract"
	"github.com/Mohsinsiddi/zkcstake/internal/network"
	"github.com/Mohsinsiddi/zkcstake/internal/session"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

type staticSession struct {
	mu sync.Mutex
	s  session.WalletSession
}

func (s *staticSession) Snapshot() session.WalletSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.s
}

func (s *staticSession) set(ws session.WalletSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.s = ws
}

type sent struct {
	to   common.Address
	data []byte
}

// fakeChain plays token + staking contract for one account and applies the
// effects of mined writes.
type fakeChain struct {
	mu      sync.Mutex
	profile network.Profile

	balance, staked, withdrawAt, allowance *big.Int
	delegate                               common.Address

	failRead   string // method name whose eth_call fails
	sendErr    error
	revert     bool
	pending    int           // receipt polls answered with NotFound
	hold       chan struct{} // when set, receipt lookups block until closed
	stall      chan struct{} // when set, the next allowance read blocks until closed
	stalled    chan struct{} // closed once that read has taken its value
	sentTxs    []sent
	receipts   map[common.Hash]*types.Receipt
	receiptReq int
}

func newFakeChain(p network.Profile) *fakeChain {
	return &fakeChain{
		profile:    p,
		balance:    ether(1000),
		staked:     new(big.Int),
		withdrawAt: big.NewInt(1_750_000_000),
		allowance:  ether(50),
		receipts:   make(map[common.Hash]*types.Receipt),
	}
}

func (f *fakeChain) abiFor(to common.Address) abi.ABI {
	id := contract.BuiltinERC20
	if to == f.profile.Staking {
		id = contract.BuiltinStakingV2
		if f.profile.StakingABI == network.StakingV1 {
			id = contract.BuiltinStakingV1
		}
	}
	b, _ := contract.GetBuiltin(id)
	return b.ABI
}

func (f *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	a := f.abiFor(*msg.To)
	m, err := a.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}

	if m.Name == "allowance" {
		f.mu.Lock()
		gate, v := f.stall, new(big.Int).Set(f.allowance)
		f.stall = nil
		f.mu.Unlock()
		if gate != nil {
			close(f.stalled)
			<-gate
			return m.Outputs.Pack(v)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if m.Name == f.failRead {
		return nil, fmt.Errorf("execution reverted: %s", m.Name)
	}
	switch m.Name {
	case "balanceOf":
		if *msg.To == f.profile.Staking {
			return m.Outputs.Pack(new(big.Int).Set(f.staked))
		}
		return m.Outputs.Pack(new(big.Int).Set(f.balance))
	case "allowance":
		return m.Outputs.Pack(new(big.Int).Set(f.allowance))
	case "getStakedAmountAndWithdrawalTime":
		return m.Outputs.Pack(new(big.Int).Set(f.staked), new(big.Int).Set(f.withdrawAt))
	case "rewardDelegates", "delegates":
		return m.Outputs.Pack(f.delegate)
	}
	return nil, fmt.Errorf("unexpected call %s", m.Name)
}

func (f *fakeChain) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x00}, nil
}

func (f *fakeChain) SendTransaction(_ context.Context, _, to common.Address, data []byte) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return common.Hash{}, f.sendErr
	}
	f.sentTxs = append(f.sentTxs, sent{to: to, data: data})
	hash := crypto.Keccak256Hash(data, big.NewInt(int64(len(f.sentTxs))).Bytes())

	r := &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      hash,
		BlockNumber: big.NewInt(int64(100 + len(f.sentTxs))),
		GasUsed:     50_000,
	}
	if f.revert {
		r.Status = types.ReceiptStatusFailed
	} else {
		r.Logs = f.apply(to, data, hash)
	}
	f.receipts[hash] = r
	return hash, nil
}

// apply mutates chain state for a successful write. Callers hold f.mu.
func (f *fakeChain) apply(to common.Address, data []byte, hash common.Hash) []*types.Log {
	a := f.abiFor(to)
	m, err := a.MethodById(data[:4])
	if err != nil {
		return nil
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return nil
	}
	switch m.Name {
	case "approve":
		f.allowance = args[1].(*big.Int)
	case "stake":
		amt := args[0].(*big.Int)
		f.staked = new(big.Int).Add(f.staked, amt)
		f.balance = new(big.Int).Sub(f.balance, amt)
		f.allowance = new(big.Int).Sub(f.allowance, amt)
		ev := a.Events["Staked"]
		payload, _ := ev.Inputs.NonIndexed().Pack(amt)
		return []*types.Log{{
			Address: to,
			Topics:  []common.Hash{ev.ID, common.BytesToHash(owner.Bytes())},
			Data:    payload,
			TxHash:  hash,
		}}
	case "delegateRewards", "delegate":
		f.delegate = args[0].(common.Address)
	}
	return nil
}

func (f *fakeChain) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	hold := f.hold
	f.receiptReq++
	f.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending > 0 {
		f.pending--
		return nil, ethereum.NotFound
	}
	r, ok := f.receipts[hash]
	if !ok {
		return nil, errors.New("unknown transaction")
	}
	return r, nil
}

// stallAllowance holds the next allowance read open after it has read the
// current value. Closing the returned gate lets it finish.
func (f *fakeChain) stallAllowance() (gate chan struct{}, stalled <-chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stall = make(chan struct{})
	f.stalled = make(chan struct{})
	return f.stall, f.stalled
}

func (f *fakeChain) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sentTxs)
}
