package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/helioswap/routegraph/graph"
)

// ChainConfigLoader loads and validates the chain topology file.
type ChainConfigLoader struct{}

// NewChainConfigLoader creates a new chain config loader.
func NewChainConfigLoader() *ChainConfigLoader {
	return &ChainConfigLoader{}
}

// LoadFromFile loads a chain topology from a TOML or JSON file.
func (l *ChainConfigLoader) LoadFromFile(filePath string) (*ChainsConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain config file: %w", err)
	}

	var cfg ChainsConfig

	if strings.HasSuffix(filePath, ".json") {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	} else {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	}

	if err := verifyChains(&cfg); err != nil {
		return nil, fmt.Errorf("failed to verify chain config: %w", err)
	}
	return &cfg, nil
}

func verifyChains(cfg *ChainsConfig) error {
	if len(cfg.Chains) == 0 {
		return fmt.Errorf("no chains in config")
	}

	seen := make(map[uint64]bool, len(cfg.Chains))
	for i, chain := range cfg.Chains {
		if chain.ChainID == 0 {
			return fmt.Errorf("chain %d: chain_id is required", i)
		}
		if seen[chain.ChainID] {
			return fmt.Errorf("chain id %d configured twice", chain.ChainID)
		}
		seen[chain.ChainID] = true

		if chain.Name == "" {
			return fmt.Errorf("chain %d: name is required", chain.ChainID)
		}
		if len(chain.Factories) == 0 {
			return fmt.Errorf("chain %s: at least one factory is required", chain.Name)
		}
		for _, factory := range chain.Factories {
			if factory.DEX == "" {
				return fmt.Errorf("chain %s: factory dex name is required", chain.Name)
			}
			if _, err := graph.CanonicalAddress(factory.Address); err != nil {
				return fmt.Errorf("chain %s, dex %s: %w", chain.Name, factory.DEX, err)
			}
			if factory.SubgraphURL == "" && chain.SubgraphURL == "" && chain.RPCURL == "" {
				return fmt.Errorf("chain %s, dex %s: needs a subgraph url or an rpc url", chain.Name, factory.DEX)
			}
		}
		for addr, category := range chain.TokenCategories {
			if _, err := graph.CanonicalAddress(addr); err != nil {
				return fmt.Errorf("chain %s token_categories: %w", chain.Name, err)
			}
			if !graph.Category(category).Valid() {
				return fmt.Errorf("chain %s: unknown token category %q", chain.Name, category)
			}
		}
	}
	return nil
}

// CategoryTable converts a chain's category map to canonical graph keys.
func (c *ChainConfig) CategoryTable() map[string]graph.Category {
	table := make(map[string]graph.Category, len(c.TokenCategories))
	for addr, category := range c.TokenCategories {
		canon, err := graph.CanonicalAddress(addr)
		if err != nil {
			continue // verified at load time, unreachable in practice
		}
		table[canon] = graph.Category(category)
	}
	return table
}
