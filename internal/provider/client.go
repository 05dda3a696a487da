package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrNoAccounts is returned when the wallet exposes no account.
var ErrNoAccounts = errors.New("wallet returned no accounts")

// Client is a typed view over a Provider. It satisfies ethereum.ContractCaller
// so contract reads can run through the wallet like a browser dapp does.
type Client struct {
	p Provider
}

// NewClient wraps p.
func NewClient(p Provider) *Client {
	return &Client{p: p}
}

// Provider returns the wrapped provider.
func (c *Client) Provider() Provider { return c.p }

// RequestAccounts asks the wallet for account access (may prompt the user).
func (c *Client) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	return c.accounts(ctx, MethodRequestAccounts)
}

// Accounts returns the accounts already authorised, without prompting.
func (c *Client) Accounts(ctx context.Context) ([]common.Address, error) {
	return c.accounts(ctx, MethodAccounts)
}

func (c *Client) accounts(ctx context.Context, method string) ([]common.Address, error) {
	raw, err := c.p.Request(ctx, method)
	if err != nil {
		return nil, err
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", method, err)
	}
	return ParseAccounts(list)
}

// ChainID returns the wallet's active chain id.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	raw, err := c.p.Request(ctx, MethodChainID)
	if err != nil {
		return 0, err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("decoding chain id: %w", err)
	}
	return ParseChainID(s)
}

// SwitchChain asks the wallet to change its active chain.
func (c *Client) SwitchChain(ctx context.Context, chainIDHex string) error {
	_, err := c.p.Request(ctx, MethodSwitchChain, SwitchChainParams{ChainID: chainIDHex})
	return err
}

// AddChain asks the wallet to register a chain.
func (c *Client) AddChain(ctx context.Context, params AddChainParams) error {
	_, err := c.p.Request(ctx, MethodAddChain, params)
	return err
}

// CallContract executes a read-only call at block (nil = latest).
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	call := map[string]string{"data": hexutil.Encode(msg.Data)}
	if msg.To != nil {
		call["to"] = msg.To.Hex()
	}
	if msg.From != (common.Address{}) {
		call["from"] = msg.From.Hex()
	}
	raw, err := c.p.Request(ctx, MethodCall, call, blockTag(block))
	if err != nil {
		return nil, err
	}
	var out hexutil.Bytes
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding call result: %w", err)
	}
	return out, nil
}

// CodeAt returns the deployed bytecode at addr.
func (c *Client) CodeAt(ctx context.Context, addr common.Address, block *big.Int) ([]byte, error) {
	raw, err := c.p.Request(ctx, MethodGetCode, addr.Hex(), blockTag(block))
	if err != nil {
		return nil, err
	}
	var out hexutil.Bytes
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding code: %w", err)
	}
	return out, nil
}

// StorageAt returns the 32-byte storage word at key.
func (c *Client) StorageAt(ctx context.Context, addr common.Address, key common.Hash, block *big.Int) ([]byte, error) {
	raw, err := c.p.Request(ctx, MethodGetStorageAt, addr.Hex(), key.Hex(), blockTag(block))
	if err != nil {
		return nil, err
	}
	var out hexutil.Bytes
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding storage: %w", err)
	}
	return out, nil
}

// SendTransaction hands a call to the wallet for signing and broadcast and
// returns the transaction hash.
func (c *Client) SendTransaction(ctx context.Context, from, to common.Address, data []byte) (common.Hash, error) {
	raw, err := c.p.Request(ctx, MethodSendTransaction, TxRequest{
		From: from.Hex(),
		To:   to.Hex(),
		Data: hexutil.Encode(data),
	})
	if err != nil {
		return common.Hash{}, err
	}
	var h common.Hash
	if err := json.Unmarshal(raw, &h); err != nil {
		return common.Hash{}, fmt.Errorf("decoding tx hash: %w", err)
	}
	return h, nil
}

// TransactionReceipt returns the receipt for hash, or ethereum.NotFound while
// the transaction is pending.
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	raw, err := c.p.Request(ctx, MethodGetReceipt, hash.Hex())
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ethereum.NotFound
	}
	var r types.Receipt
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decoding receipt: %w", err)
	}
	return &r, nil
}

// ParseChainID accepts "0xaa36a7" or a decimal string.
func ParseChainID(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	base, digits := 10, s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base, digits = 16, s[2:]
	}
	n, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chain id %q", s)
	}
	return n, nil
}

// ParseAccounts validates and converts wallet account strings.
func ParseAccounts(list []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(list))
	for _, a := range list {
		if !common.IsHexAddress(a) {
			return nil, fmt.Errorf("wallet returned invalid address %q", a)
		}
		out = append(out, common.HexToAddress(a))
	}
	return out, nil
}

func blockTag(block *big.Int) string {
	if block == nil {
		return "latest"
	}
	return hexutil.EncodeBig(block)
}
