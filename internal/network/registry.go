package network

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNetworkNotFound is returned when a chain id has no registered profile.
var ErrNetworkNotFound = errors.New("network not found")

// DefaultKey selects the fallback network for unknown keys.
const DefaultKey = "sepolia"

// StakingABI names the staking contract interface a deployment speaks.
type StakingABI string

const (
	// StakingV1 is the legacy interface: balanceOf / delegate / delegates.
	StakingV1 StakingABI = "v1"
	// StakingV2 exposes getStakedAmountAndWithdrawalTime / delegateRewards / rewardDelegates.
	StakingV2 StakingABI = "v2"
)

// Valid reports whether v is a known interface version.
func (v StakingABI) Valid() bool { return v == StakingV1 || v == StakingV2 }

// Profile is the static description of one deployment.
type Profile struct {
	Key         string         `json:"key"`
	ChainID     uint64         `json:"chain_id"`
	DisplayName string         `json:"display_name"`
	RPCURL      string         `json:"rpc_url"`
	Explorer    string         `json:"explorer"`
	Currency    string         `json:"currency"`
	Token       common.Address `json:"token"`
	Staking     common.Address `json:"staking"`
	StakingABI  StakingABI     `json:"staking_abi"`
}

// ChainIDHex returns the chain id in the 0x-prefixed form wallets expect.
func (p Profile) ChainIDHex() string {
	return fmt.Sprintf("0x%x", p.ChainID)
}

// TxURL returns the explorer link for a transaction hash, or "" when the
// profile has no explorer.
func (p Profile) TxURL(hash string) string {
	if p.Explorer == "" {
		return ""
	}
	return strings.TrimRight(p.Explorer, "/") + "/tx/" + hash
}

// TokenTransferURI returns an EIP-681 request for sending the token to addr
// on this network, suitable for a QR code.
func (p Profile) TokenTransferURI(addr common.Address) string {
	return fmt.Sprintf("ethereum:%s@%d/transfer?address=%s", p.Token.Hex(), p.ChainID, addr.Hex())
}

// Registry is the fixed table of supported deployments.
type Registry struct {
	keys     []string
	profiles map[string]Profile
	byID     map[uint64]string
}

// NewRegistry returns the built-in registry.
func NewRegistry() *Registry {
	r := &Registry{
		profiles: make(map[string]Profile),
		byID:     make(map[uint64]string),
	}
	for _, p := range builtin() {
		r.keys = append(r.keys, p.Key)
		r.profiles[p.Key] = p
		r.byID[p.ChainID] = p.Key
	}
	return r
}

// Keys returns network keys in display order.
func (r *Registry) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// All returns every profile in display order.
func (r *Registry) All() []Profile {
	out := make([]Profile, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, r.profiles[k])
	}
	return out
}

// Has reports whether key names a registered network.
func (r *Registry) Has(key string) bool {
	_, ok := r.profiles[strings.ToLower(key)]
	return ok
}

// Get returns the profile for key, falling back to DefaultKey when the key is
// unknown or empty.
func (r *Registry) Get(key string) Profile {
	if p, ok := r.profiles[strings.ToLower(key)]; ok {
		return p
	}
	return r.profiles[DefaultKey]
}

// ByChainID finds the profile deployed on chain id.
func (r *Registry) ByChainID(id uint64) (Profile, error) {
	k, ok := r.byID[id]
	if !ok {
		return Profile{}, fmt.Errorf("%w: chain id %d", ErrNetworkNotFound, id)
	}
	return r.profiles[k], nil
}

// KeyForChain maps a wallet-reported chain id back to a network key, or
// DefaultKey when the chain is not one of ours.
func (r *Registry) KeyForChain(id uint64) string {
	if k, ok := r.byID[id]; ok {
		return k
	}
	return DefaultKey
}

// --- deployment data ---

func builtin() []Profile {
	return []Profile{
		{
			Key:         "sepolia",
			ChainID:     11155111,
			DisplayName: "Sepolia",
			RPCURL:      "https://ethereum-sepolia-rpc.publicnode.com",
			Explorer:    "https://sepolia.etherscan.io",
			Currency:    "ETH",
			Token:       common.HexToAddress("0xb4FC69A452D09D2662BD8C3B5BB756902260aE28"),
			Staking:     common.HexToAddress("0xc23340732038ca6C5765763180E81B395d2e9cCA"),
			StakingABI:  StakingV2,
		},
		{
			Key:         "mainnet",
			ChainID:     1,
			DisplayName: "Ethereum Mainnet",
			RPCURL:      "https://ethereum-rpc.publicnode.com",
			Explorer:    "https://etherscan.io",
			Currency:    "ETH",
			Token:       common.HexToAddress("0x000006c2A22ff4A44ff1f5d0F2ed65F781F55555"),
			Staking:     common.HexToAddress("0xE8Ae8eE8ffa57F6a79B6Cbe06BAFc0b05F3ffbf4"),
			StakingABI:  StakingV2,
		},
	}
}
