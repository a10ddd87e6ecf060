package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/helioswap/routegraph/cache"
	"github.com/helioswap/routegraph/graph"
	"github.com/helioswap/routegraph/ingest"
	"github.com/helioswap/routegraph/router"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "config").Logger()
}

// SetLogger allows setting a custom logger for the config package.
func SetLogger(l zerolog.Logger) {
	log = l.With().Str("component", "config").Logger()
}

// BuildRegistry turns the loaded configuration into running per-chain
// services: one graph, cache, builder and pathfinder per chain. RPC
// dial failures are soft; a chain without a reachable RPC keeps its
// bulk sources and simply loses the on-demand strategy.
func BuildRegistry(chains *ChainsConfig, server *ServerConfig) (*ingest.Registry, error) {
	var oracle ingest.PriceOracle
	if server.OracleURL != "" {
		oracle = ingest.NewHTTPOracle(server.OracleURL)
	}

	registry := ingest.NewRegistry()
	for _, chain := range chains.Chains {
		svc, err := buildChainService(chain, server, oracle)
		if err != nil {
			return nil, fmt.Errorf("chain %s: %w", chain.Name, err)
		}
		registry.Register(svc)
	}
	return registry, nil
}

func buildChainService(chain ChainConfig, server *ServerConfig, oracle ingest.PriceOracle) (*ingest.ChainService, error) {
	g := graph.NewLiquidityGraph(chain.ChainID)
	c := cache.NewManager(server.CacheCapacity, time.Duration(server.CacheTTLMinutes)*time.Minute)

	var client *ethclient.Client
	if chain.RPCURL != "" {
		var err error
		client, err = ethclient.Dial(chain.RPCURL)
		if err != nil {
			log.Warn().
				Str("chain", chain.Name).
				Err(err).
				Msg("RPC dial failed, on-demand strategy disabled for chain")
			client = nil
		}
	}

	sources := make([]ingest.Source, 0, len(chain.Factories))
	for _, factory := range chain.Factories {
		canonFactory, err := graph.CanonicalAddress(factory.Address)
		if err != nil {
			return nil, err
		}

		src := ingest.Source{DEX: factory.DEX, Factory: canonFactory}

		subgraphURL := factory.SubgraphURL
		if subgraphURL == "" {
			subgraphURL = chain.SubgraphURL
		}
		if subgraphURL != "" {
			src.Bulk = ingest.NewSubgraphFetcher(subgraphURL, chain.ChainID, factory.DEX, factory.FeeBps)
		}
		if client != nil {
			onchain, err := ingest.NewOnchainFetcher(client, chain.ChainID, factory.DEX, factory.FeeBps, oracle)
			if err != nil {
				return nil, fmt.Errorf("dex %s: %w", factory.DEX, err)
			}
			src.OnDemand = onchain
		}
		sources = append(sources, src)
	}

	builderCfg := ingest.DefaultBuilderConfig()
	if server.BulkPairLimit > 0 {
		builderCfg.BulkLimit = server.BulkPairLimit
	}
	if server.VerifyTopN > 0 {
		builderCfg.VerifyTopN = server.VerifyTopN
	}
	builderCfg.PruneBelowUSD = chain.PruneBelowUSD

	builder := ingest.NewGraphBuilder(chain.ChainID, g, c, sources, chain.CategoryTable(), builderCfg)
	selector := router.NewIntermediarySelector(g, 0)

	return &ingest.ChainService{
		ChainID:    chain.ChainID,
		Graph:      g,
		Cache:      c,
		Builder:    builder,
		Pathfinder: router.NewPathfinder(g, selector),
	}, nil
}
