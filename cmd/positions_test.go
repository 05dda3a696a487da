package cmd

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/Mohsinsiddi/zkcstake/internal/network"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordCaller answers every view call with a single 32-byte word chosen by
// the contract called. v1 staking reads are all single-word.
type wordCaller struct {
	words map[common.Address]*big.Int
	fail  map[common.Address]bool
}

func (c *wordCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if c.fail[*msg.To] {
		return nil, errors.New("execution reverted")
	}
	return common.LeftPadBytes(c.words[*msg.To].Bytes(), 32), nil
}

func stubCaller(t *testing.T, c ethereum.ContractCaller) {
	t.Helper()
	prev := callerFor
	callerFor = func(context.Context, string) (ethereum.ContractCaller, func(), error) {
		return c, func() {}, nil
	}
	t.Cleanup(func() { callerFor = prev })
}

func TestReadPositions(t *testing.T) {
	setup(t)
	addSigner(t, "main")
	require.NoError(t, newWalletManager().Add("cold", "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"))

	p := network.NewRegistry().Get("sepolia")
	p.StakingABI = network.StakingV1
	five, _ := new(big.Int).SetString("5000000000000000000", 10)
	two, _ := new(big.Int).SetString("2000000000000000000", 10)
	stubCaller(t, &wordCaller{words: map[common.Address]*big.Int{
		p.Token:   five,
		p.Staking: two,
	}})

	rows, err := readPositions(context.Background(), p, newWalletManager().List())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "cold", rows[0].wallet.Name)
	assert.Equal(t, "main", rows[1].wallet.Name)
	for _, r := range rows {
		require.NoError(t, r.err)
		assert.Equal(t, 0, five.Cmp(r.balance))
		assert.Equal(t, 0, two.Cmp(r.staked))
	}

	out := renderPositions(rows)
	assert.Contains(t, out, "5.0000")
	assert.Contains(t, out, "2.0000")
}

func TestReadPositionsRowError(t *testing.T) {
	setup(t)
	addSigner(t, "main")

	p := network.NewRegistry().Get("sepolia")
	p.StakingABI = network.StakingV1
	stubCaller(t, &wordCaller{
		words: map[common.Address]*big.Int{p.Token: big.NewInt(1)},
		fail:  map[common.Address]bool{p.Staking: true},
	})

	rows, err := readPositions(context.Background(), p, newWalletManager().List())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Error(t, rows[0].err)
	assert.True(t, strings.Contains(renderPositions(rows), "reverted"))
}

func TestPositionsNoWallets(t *testing.T) {
	dir := setup(t)
	require.NoError(t, run(t, dir, "positions"))
}

func TestShortError(t *testing.T) {
	assert.Equal(t, "execution reverted", shortError(errors.New("balanceOf: execution reverted")))
	assert.Len(t, []rune(shortError(errors.New("a very long message that keeps going on"))), 25)

	got := shortError(errors.New("nœud indisponible: réponse invalide reçue du nœud ééé"))
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "réponse invalide reçue d…", got)
}
