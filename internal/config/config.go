package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	defaultNetwork = "sepolia"

	// EnvDir overrides the config directory.
	EnvDir = "ZKCSTAKE_CONFIG_DIR"

	configFile   = "config.json"
	walletsFile  = "wallets.json"
	providerFile = "provider.json"
)

// Load reads config from dir (or creates defaults). dir defaults to
// $ZKCSTAKE_CONFIG_DIR, then ~/.zkcstake.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = os.Getenv(EnvDir)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".zkcstake")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	path := filepath.Join(dir, configFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.configDir = dir
	if cfg.CustomRPCs == nil {
		cfg.CustomRPCs = make(map[string][]string)
	}
	if cfg.StakingABI == nil {
		cfg.StakingABI = make(map[string]string)
	}

	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// AddRPC adds a custom RPC URL for a network.
func (c *Config) AddRPC(network, url string) error {
	if c.CustomRPCs == nil {
		c.CustomRPCs = make(map[string][]string)
	}
	if slices.Contains(c.CustomRPCs[network], url) {
		return fmt.Errorf("RPC %s already exists for network %s", url, network)
	}
	c.CustomRPCs[network] = append(c.CustomRPCs[network], url)
	return nil
}

// RemoveRPC removes a custom RPC URL for a network.
func (c *Config) RemoveRPC(network, url string) error {
	rpcs := c.CustomRPCs[network]
	idx := slices.Index(rpcs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found for network %s", url, network)
	}
	c.CustomRPCs[network] = slices.Delete(rpcs, idx, idx+1)
	return nil
}

// GetRPCs returns custom RPCs for a network.
func (c *Config) GetRPCs(network string) []string {
	return c.CustomRPCs[network]
}

// StakingVariant returns the configured staking ABI for network, or "" to
// use the network profile's own.
func (c *Config) StakingVariant(network string) string {
	return c.StakingABI[network]
}

// SetStakingVariant pins the staking ABI for network.
func (c *Config) SetStakingVariant(network, v string) error {
	switch v {
	case StakingABIAuto, StakingABIV1, StakingABIV2:
	default:
		return fmt.Errorf("invalid staking ABI %q (want auto, v1 or v2)", v)
	}
	if c.StakingABI == nil {
		c.StakingABI = make(map[string]string)
	}
	c.StakingABI[network] = v
	return nil
}

// ConfirmTimeout is how long to wait for a transaction receipt.
func (c *Config) ConfirmTimeout() time.Duration {
	if c.TxConfirmTimeout <= 0 {
		return TxConfirmTimeout
	}
	return time.Duration(c.TxConfirmTimeout) * time.Second
}

// PollInterval is how often a pending receipt is polled.
func (c *Config) PollInterval() time.Duration {
	if c.ReceiptPollSeconds <= 0 {
		return ReceiptPoll
	}
	return time.Duration(c.ReceiptPollSeconds) * time.Second
}

// Set updates one scalar setting by its JSON key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "default_network":
		c.DefaultNetwork = strings.ToLower(value)
	case "default_wallet":
		c.DefaultWallet = value
	case "rpc_algorithm":
		switch value {
		case AlgoFastest, AlgoRoundRobin, AlgoFailover:
			c.RPCAlgorithm = value
		default:
			return fmt.Errorf("invalid rpc_algorithm %q", value)
		}
	case "tx_confirm_timeout_seconds", "receipt_poll_seconds":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive number of seconds", key)
		}
		if key == "receipt_poll_seconds" {
			c.ReceiptPollSeconds = n
		} else {
			c.TxConfirmTimeout = n
		}
	case "gas_fallback":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil || n == 0 {
			return fmt.Errorf("gas_fallback must be a positive integer")
		}
		c.GasFallback = n
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// WalletsPath is where wallet metadata is stored.
func (c *Config) WalletsPath() string {
	return filepath.Join(c.configDir, walletsFile)
}

// ProviderStatePath is where the local wallet keeps its chain state.
func (c *Config) ProviderStatePath() string {
	return filepath.Join(c.configDir, providerFile)
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		DefaultNetwork:     defaultNetwork,
		RPCAlgorithm:       AlgoFastest,
		CustomRPCs:         make(map[string][]string),
		StakingABI:         make(map[string]string),
		TxConfirmTimeout:   int(TxConfirmTimeout / time.Second),
		ReceiptPollSeconds: int(ReceiptPoll / time.Second),
		GasFallback:        GasLimitStake,
		configDir:          dir,
	}
}
