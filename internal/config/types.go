package config

// Config holds all zkcstake configuration.
type Config struct {
	DefaultNetwork     string              `json:"default_network"`
	DefaultWallet      string              `json:"default_wallet"`
	RPCAlgorithm       string              `json:"rpc_algorithm"` // "fastest" | "round-robin" | "failover"
	CustomRPCs         map[string][]string `json:"custom_rpcs"`
	StakingABI         map[string]string   `json:"staking_abi,omitempty"` // network key -> "v1" | "v2" | "auto"
	TxConfirmTimeout   int                 `json:"tx_confirm_timeout_seconds"`
	ReceiptPollSeconds int                 `json:"receipt_poll_seconds"`
	GasFallback        uint64              `json:"gas_fallback"`

	// internal: config dir path used for Save()
	configDir string
}
