package ui

import (
	"testing"

	"github.com/Mohsinsiddi/zkcstake/internal/provider"
	"github.com/stretchr/testify/assert"
)

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount("10"))
	assert.NoError(t, ValidateAmount("0.000000000000000001"))
	assert.Error(t, ValidateAmount(""))
	assert.Error(t, ValidateAmount("0"))
	assert.Error(t, ValidateAmount("-1"))
	assert.Error(t, ValidateAmount("1.0000000000000000001"))
	assert.Error(t, ValidateAmount("ten"))
}

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"))
	assert.NoError(t, ValidateAddress(" 0x70997970c51812dc3a010c7d01b50e0d17dc79c8 "))
	assert.Error(t, ValidateAddress(""))
	assert.Error(t, ValidateAddress("70997970C51812dc3A010C7d01b50e0d17dc79C8"))
	assert.Error(t, ValidateAddress("0x1234"))
	assert.Error(t, ValidateAddress("0x0000000000000000000000000000000000000000"))
}

func TestTxSummaryDecodesCall(t *testing.T) {
	tx := provider.TxRequest{
		From: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		To:   "0xc23340732038ca6C5765763180E81B395d2e9cCA",
		// stake(1e18)
		Data: "0xa694fc3a0000000000000000000000000000000000000000000000000de0b6b3a7640000",
	}
	pairs := TxSummary(tx, provider.ChainInfo{ChainID: 11155111, Name: "Sepolia", Symbol: "ETH"})

	got := map[string]string{}
	for _, p := range pairs {
		got[p[0]] = p[1]
	}
	assert.Equal(t, "Sepolia (11155111)", got["Network"])
	assert.Equal(t, "stake(amount=1.0)", got["Call"])
	assert.NotContains(t, got, "Value")
}

func TestTxSummaryValue(t *testing.T) {
	tx := provider.TxRequest{From: "0x01", To: "0x02", Value: "0xde0b6b3a7640000"}
	pairs := TxSummary(tx, provider.ChainInfo{ChainID: 1, Name: "Ethereum Mainnet", Symbol: "ETH"})
	assert.Contains(t, pairs, [2]string{"Value", "1.0 ETH"})
}
