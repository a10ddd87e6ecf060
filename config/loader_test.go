package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zeebo/assert"

	"github.com/helioswap/routegraph/config"
	"github.com/helioswap/routegraph/graph"
)

const chainsTOML = `
[[chains]]
name = "ethereum"
chain_id = 1
rpc_url = "https://eth.example.org"
subgraph_url = "https://subgraph.example.org/uniswap-v2"
prune_below_usd = 1000.0

[[chains.factories]]
dex = "uniswap-v2"
address = "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"
fee_bps = 30

[[chains.factories]]
dex = "sushiswap"
address = "0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac"
fee_bps = 30
subgraph_url = "https://subgraph.example.org/sushiswap"

[chains.token_categories]
"0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2" = "native"
"0xA0b86991C6218b36c1d19D4a2e9Eb0cE3606eB48" = "stable"

[[chains]]
name = "base"
chain_id = 8453
subgraph_url = "https://subgraph.example.org/base"

[[chains.factories]]
dex = "aerodrome"
address = "0x420DD381b31aEf6683db6B902084cB0FFECe40Da"
fee_bps = 5
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadChainsFromTOML(t *testing.T) {
	path := writeConfig(t, "chains.toml", chainsTOML)

	cfg, err := config.NewChainConfigLoader().LoadFromFile(path)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(cfg.Chains))

	eth := cfg.Chains[0]
	assert.Equal(t, "ethereum", eth.Name)
	assert.Equal(t, uint64(1), eth.ChainID)
	assert.Equal(t, 2, len(eth.Factories))
	assert.Equal(t, 1000.0, eth.PruneBelowUSD)
	assert.Equal(t, "https://subgraph.example.org/sushiswap", eth.Factories[1].SubgraphURL)

	table := eth.CategoryTable()
	assert.Equal(t, graph.CategoryNative, table["0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"])
	assert.Equal(t, graph.CategoryStable, table["0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"])

	base := cfg.Chains[1]
	assert.Equal(t, uint64(8453), base.ChainID)
	assert.Equal(t, "", base.RPCURL)
}

func TestLoadChainsRejectsInvalidConfigs(t *testing.T) {
	cases := []struct {
		name string
		toml string
	}{
		{"no chains", `chains = []`},
		{"missing factory", `
[[chains]]
name = "ethereum"
chain_id = 1
subgraph_url = "https://x.example.org"
`},
		{"bad factory address", `
[[chains]]
name = "ethereum"
chain_id = 1
subgraph_url = "https://x.example.org"
[[chains.factories]]
dex = "uniswap-v2"
address = "not-hex"
`},
		{"no endpoint at all", `
[[chains]]
name = "ethereum"
chain_id = 1
[[chains.factories]]
dex = "uniswap-v2"
address = "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"
`},
		{"unknown category", `
[[chains]]
name = "ethereum"
chain_id = 1
subgraph_url = "https://x.example.org"
[[chains.factories]]
dex = "uniswap-v2"
address = "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"
[chains.token_categories]
"0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2" = "memecoin"
`},
		{"duplicate chain id", `
[[chains]]
name = "ethereum"
chain_id = 1
subgraph_url = "https://x.example.org"
[[chains.factories]]
dex = "uniswap-v2"
address = "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"
[[chains]]
name = "ethereum-again"
chain_id = 1
subgraph_url = "https://x.example.org"
[[chains.factories]]
dex = "uniswap-v2"
address = "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, "chains.toml", tc.toml)
			_, err := config.NewChainConfigLoader().LoadFromFile(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadServerConfigFromTOML(t *testing.T) {
	path := writeConfig(t, "server.toml", `
port = 8080
host = "0.0.0.0"
allowed_origins = ["https://app.example.org"]
rate_per_minute = 120
max_concurrent_requests = 50
update_interval_minutes = 5
build_timeout_minutes = 2
cache_capacity = 2000
cache_ttl_minutes = 10
oracle_url = "https://oracle.example.org"
bulk_pair_limit = 100
verify_top_n = 25
`)

	cfg, err := config.LoadServerConfig(&path)
	assert.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.DeepEqual(t, []string{"https://app.example.org"}, cfg.AllowedOrigins)
	assert.Equal(t, 5, cfg.UpdateIntervalMinutes)
	assert.Equal(t, 2000, cfg.CacheCapacity)
	assert.Equal(t, "https://oracle.example.org", cfg.OracleURL)
}

func TestLoadServerConfigValidation(t *testing.T) {
	badPort := writeConfig(t, "server.toml", `
port = 99999
host = "0.0.0.0"
allowed_origins = ["*"]
`)
	_, err := config.LoadServerConfig(&badPort)
	assert.Error(t, err)

	noOrigins := writeConfig(t, "server.toml", `
port = 8080
host = "0.0.0.0"
`)
	_, err = config.LoadServerConfig(&noOrigins)
	assert.Error(t, err)

	notTOML := filepath.Join(t.TempDir(), "server.yaml")
	assert.NoError(t, os.WriteFile(notTOML, []byte("port: 8080"), 0o600))
	_, err = config.LoadServerConfig(&notTOML)
	assert.Error(t, err)
}

func TestBuildRegistryWiresEveryChain(t *testing.T) {
	path := writeConfig(t, "chains.toml", chainsTOML)
	chains, err := config.NewChainConfigLoader().LoadFromFile(path)
	assert.NoError(t, err)

	// No rpc_url on chain 8453 and an unreachable one on chain 1; both
	// must still come up with their bulk sources.
	chains.Chains[0].RPCURL = ""

	server := &config.ServerConfig{
		Port:           8080,
		Host:           "localhost",
		AllowedOrigins: []string{"*"},
		CacheCapacity:  100,
	}

	registry, err := config.BuildRegistry(chains, server)
	assert.NoError(t, err)
	assert.DeepEqual(t, []uint64{1, 8453}, registry.ChainIDs())

	svc, ok := registry.Service(1)
	assert.True(t, ok)
	assert.NotNil(t, svc.Graph)
	assert.NotNil(t, svc.Cache)
	assert.NotNil(t, svc.Builder)
	assert.NotNil(t, svc.Pathfinder)
}
