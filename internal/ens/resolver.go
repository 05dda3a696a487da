// Package ens resolves ENS names so reward delegates can be given as
// "name.eth" instead of a hex address.
package ens

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// RegistryAddress is the ENS registry, deployed at the same address on
// mainnet and Sepolia.
var RegistryAddress = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

var (
	ErrNoResolver = errors.New("no ENS resolver set")
	ErrNoRecord   = errors.New("no ENS address record")
)

const registryABI = `[{"type":"function","name":"resolver","stateMutability":"view",
 "inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]}]`

const resolverABI = `[
 {"type":"function","name":"addr","stateMutability":"view",
  "inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
 {"type":"function","name":"name","stateMutability":"view",
  "inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"string"}]}]`

var (
	registry = mustParse(registryABI)
	resolver = mustParse(resolverABI)
)

func mustParse(s string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic("ens: " + err.Error())
	}
	return a
}

// IsName reports whether s looks like an ENS name rather than an address.
func IsName(s string) bool {
	s = strings.TrimSpace(s)
	return strings.Contains(s, ".") && !strings.HasPrefix(s, "0x")
}

// Resolve returns the address name points at. The name is lower-cased
// before hashing.
func Resolve(ctx context.Context, c ethereum.ContractCaller, name string) (common.Address, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	node := Namehash(name)

	res, err := resolverFor(ctx, c, node)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", name, err)
	}
	out, err := call(ctx, c, res, resolver, "addr", node)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: querying resolver: %w", name, err)
	}
	addr, _ := out[0].(common.Address)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%s: %w", name, ErrNoRecord)
	}
	return addr, nil
}

// ReverseLookup returns the primary name of addr, or an error when none is
// set. Anyone can point a reverse record at any name, so the name is only
// returned when it resolves back to addr.
func ReverseLookup(ctx context.Context, c ethereum.ContractCaller, addr common.Address) (string, error) {
	node := Namehash(strings.ToLower(strings.TrimPrefix(addr.Hex(), "0x")) + ".addr.reverse")

	res, err := resolverFor(ctx, c, node)
	if err != nil {
		return "", err
	}
	out, err := call(ctx, c, res, resolver, "name", node)
	if err != nil {
		return "", fmt.Errorf("querying reverse resolver: %w", err)
	}
	name, _ := out[0].(string)
	if name == "" {
		return "", ErrNoRecord
	}
	fwd, err := Resolve(ctx, c, name)
	if err != nil {
		return "", err
	}
	if fwd != addr {
		return "", fmt.Errorf("%s resolves to %s: %w", name, fwd.Hex(), ErrNoRecord)
	}
	return name, nil
}

// Namehash implements the EIP-137 namehash. namehash("") is 32 zero bytes.
func Namehash(name string) common.Hash {
	var node common.Hash
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		label := keccak256([]byte(labels[i]))
		node = common.BytesToHash(keccak256(node[:], label))
	}
	return node
}

func resolverFor(ctx context.Context, c ethereum.ContractCaller, node common.Hash) (common.Address, error) {
	out, err := call(ctx, c, RegistryAddress, registry, "resolver", node)
	if err != nil {
		return common.Address{}, fmt.Errorf("querying ENS registry: %w", err)
	}
	res, _ := out[0].(common.Address)
	if res == (common.Address{}) {
		return common.Address{}, ErrNoResolver
	}
	return res, nil
}

func call(ctx context.Context, c ethereum.ContractCaller, to common.Address, a abi.ABI, method string, node common.Hash) ([]any, error) {
	data, err := a.Pack(method, node)
	if err != nil {
		return nil, err
	}
	raw, err := c.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s: empty result", method)
	}
	out, err := a.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("decoding %s: no outputs", method)
	}
	return out, nil
}

func keccak256(parts ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}
