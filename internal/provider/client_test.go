package provider_test

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/Mohsinsiddi/zkcstake/internal/provider"
	"github.com/Mohsinsiddi/zkcstake/internal/provider/providertest"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const acct = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

func TestClientRequestAccounts(t *testing.T) {
	fake := providertest.New().Returns(provider.MethodRequestAccounts, []string{acct})
	got, err := provider.NewClient(fake).RequestAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, common.HexToAddress(acct), got[0])
}

func TestClientAccountsRejectsJunk(t *testing.T) {
	fake := providertest.New().Returns(provider.MethodAccounts, []string{"nope"})
	_, err := provider.NewClient(fake).Accounts(context.Background())
	assert.Error(t, err)
}

func TestClientPassesProviderErrorThrough(t *testing.T) {
	fake := providertest.New().Fails(provider.MethodRequestAccounts, provider.NewError(provider.CodeUserRejected, "no"))
	_, err := provider.NewClient(fake).RequestAccounts(context.Background())
	assert.True(t, provider.IsUserRejected(err))
}

func TestClientChainID(t *testing.T) {
	fake := providertest.New().Returns(provider.MethodChainID, "0xaa36a7")
	id, err := provider.NewClient(fake).ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(11155111), id)
}

func TestParseChainID(t *testing.T) {
	cases := map[string]uint64{"0x1": 1, "0xAA36A7": 11155111, "1": 1, "0x01": 1, " 11155111 ": 11155111}
	for in, want := range cases {
		got, err := provider.ParseChainID(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "0x", "0xzz", "-1"} {
		_, err := provider.ParseChainID(bad)
		assert.Error(t, err, bad)
	}
}

func TestClientSwitchChainSendsHexParam(t *testing.T) {
	fake := providertest.New().Returns(provider.MethodSwitchChain, nil)
	require.NoError(t, provider.NewClient(fake).SwitchChain(context.Background(), "0x1"))

	calls := fake.CallsTo(provider.MethodSwitchChain)
	require.Len(t, calls, 1)
	assert.Equal(t, provider.SwitchChainParams{ChainID: "0x1"}, calls[0].Params[0])
}

func TestClientCallContract(t *testing.T) {
	to := common.HexToAddress("0xb4FC69A452D09D2662BD8C3B5BB756902260aE28")
	fake := providertest.New().Handle(provider.MethodCall, func(params []any) (any, error) {
		call := params[0].(map[string]string)
		assert.Equal(t, to.Hex(), call["to"])
		assert.Equal(t, "0x70a08231", call["data"])
		assert.Equal(t, "latest", params[1])
		return "0x2a", nil
	})

	out, err := provider.NewClient(fake).CallContract(context.Background(),
		ethereum.CallMsg{To: &to, Data: []byte{0x70, 0xa0, 0x82, 0x31}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x2a}, out)
}

func TestClientCallContractAtBlock(t *testing.T) {
	fake := providertest.New().Handle(provider.MethodCall, func(params []any) (any, error) {
		assert.Equal(t, "0x10", params[1])
		return "0x", nil
	})
	_, err := provider.NewClient(fake).CallContract(context.Background(), ethereum.CallMsg{}, big.NewInt(16))
	require.NoError(t, err)
}

func TestClientSendTransaction(t *testing.T) {
	hash := common.HexToHash("0xabc")
	fake := providertest.New().Handle(provider.MethodSendTransaction, func(params []any) (any, error) {
		req := params[0].(provider.TxRequest)
		assert.Equal(t, acct, req.From)
		assert.Equal(t, "0x095ea7b3", req.Data)
		return hash.Hex(), nil
	})

	got, err := provider.NewClient(fake).SendTransaction(context.Background(),
		common.HexToAddress(acct), common.HexToAddress("0x1"), []byte{0x09, 0x5e, 0xa7, 0xb3})
	require.NoError(t, err)
	assert.Equal(t, hash, got)
}

func TestClientReceiptPendingIsNotFound(t *testing.T) {
	fake := providertest.New().Returns(provider.MethodGetReceipt, nil)
	_, err := provider.NewClient(fake).TransactionReceipt(context.Background(), common.Hash{})
	assert.ErrorIs(t, err, ethereum.NotFound)
}

func TestClientReceiptDecodes(t *testing.T) {
	want := &types.Receipt{
		Type:              types.DynamicFeeTxType,
		Status:            types.ReceiptStatusSuccessful,
		CumulativeGasUsed: 50_000,
		GasUsed:           46_000,
		TxHash:            common.HexToHash("0xfeed"),
		Logs:              []*types.Log{},
		BlockNumber:       big.NewInt(7),
	}
	raw, err := json.Marshal(want)
	require.NoError(t, err)

	fake := providertest.New().Returns(provider.MethodGetReceipt, json.RawMessage(raw))
	got, err := provider.NewClient(fake).TransactionReceipt(context.Background(), want.TxHash)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, got.Status)
	assert.Equal(t, want.TxHash, got.TxHash)
	assert.Equal(t, uint64(46_000), got.GasUsed)
}
