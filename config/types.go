// Package config loads the chain topology and server settings and wires
// them into running per-chain services.
package config

// FactoryConfig describes one AMM factory contract on a chain.
type FactoryConfig struct {
	DEX         string `toml:"dex" json:"dex"`
	Address     string `toml:"address" json:"address"`
	FeeBps      uint32 `toml:"fee_bps" json:"feeBps"`
	SubgraphURL string `toml:"subgraph_url" json:"subgraphUrl"`
}

// ChainConfig describes one chain: its endpoints, the factories to
// ingest pairs from and the well-known token category table.
type ChainConfig struct {
	Name        string          `toml:"name" json:"name"`
	ChainID     uint64          `toml:"chain_id" json:"chainId"`
	RPCURL      string          `toml:"rpc_url" json:"rpcUrl"`
	SubgraphURL string          `toml:"subgraph_url" json:"subgraphUrl"`
	Factories   []FactoryConfig `toml:"factories" json:"factories"`

	// TokenCategories maps token addresses to native/stable/bluechip.
	// Anything absent is treated as alt.
	TokenCategories map[string]string `toml:"token_categories" json:"tokenCategories"`

	// PruneBelowUSD drops edges under this liquidity after each build.
	// Zero disables pruning for the chain.
	PruneBelowUSD float64 `toml:"prune_below_usd" json:"pruneBelowUsd"`
}

// ChainsConfig is the root of the chain topology file.
type ChainsConfig struct {
	Chains []ChainConfig `toml:"chains" json:"chains"`
}

// ServerConfig carries the HTTP surface and background refresh settings.
// Loaded through viper, so keys bind via mapstructure tags.
type ServerConfig struct {
	// http configs
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`

	// CORS configs
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// rate limiting configs
	RatePerMinute         int `mapstructure:"rate_per_minute"`
	MaxConcurrentRequests int `mapstructure:"max_concurrent_requests"`

	// background refresh configs
	UpdateIntervalMinutes int `mapstructure:"update_interval_minutes"`
	BuildTimeoutMinutes   int `mapstructure:"build_timeout_minutes"`

	// cache configs
	CacheCapacity   int `mapstructure:"cache_capacity"`
	CacheTTLMinutes int `mapstructure:"cache_ttl_minutes"`

	// ingestion configs
	OracleURL     string `mapstructure:"oracle_url"`
	BulkPairLimit int    `mapstructure:"bulk_pair_limit"`
	VerifyTopN    int    `mapstructure:"verify_top_n"`
}
