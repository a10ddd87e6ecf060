package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/helioswap/routegraph/cache"
	"github.com/helioswap/routegraph/graph"
	"github.com/helioswap/routegraph/models"
)

// Source pairs one AMM factory with the fetch strategies that can serve
// it. Bulk or OnDemand may be nil when a chain has no subgraph or no
// RPC endpoint configured for that DEX.
type Source struct {
	DEX      string
	Factory  string
	Bulk     PairFetcher
	OnDemand PairFetcher
}

// BuilderConfig bounds the work done per build.
type BuilderConfig struct {
	// BulkLimit caps how many pairs one bulk call may return.
	BulkLimit int
	// VerifyTopN caps how many high-liquidity edges get re-verified
	// on-chain after the bulk pass.
	VerifyTopN int
	// VerifyWorkers bounds the parallelism of the verification pass.
	VerifyWorkers int
	// PruneBelowUSD drops edges under this liquidity at the end of each
	// build. Zero disables pruning.
	PruneBelowUSD float64
}

// DefaultBuilderConfig returns the bounds used in production: the
// dataset is capped at ~100 pairs per build specifically to keep the
// verification pass cheap.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{BulkLimit: 100, VerifyTopN: 25, VerifyWorkers: 8}
}

// GraphBuilder is the single entry point to materialize or refresh one
// chain's graph. It is not safe for concurrent invocation for the same
// chain; the updater serializes builds per chain.
type GraphBuilder struct {
	chainID    uint64
	graph      *graph.LiquidityGraph
	cache      *cache.Manager
	sources    []Source
	categories map[string]graph.Category
	cfg        BuilderConfig
}

// NewGraphBuilder wires a builder over its chain's graph and cache.
// categories maps canonical token addresses to their well-known
// category; unknown tokens default to alt.
func NewGraphBuilder(chainID uint64, g *graph.LiquidityGraph, c *cache.Manager, sources []Source, categories map[string]graph.Category, cfg BuilderConfig) *GraphBuilder {
	if cfg.BulkLimit <= 0 {
		cfg.BulkLimit = DefaultBuilderConfig().BulkLimit
	}
	if cfg.VerifyWorkers <= 0 {
		cfg.VerifyWorkers = DefaultBuilderConfig().VerifyWorkers
	}
	return &GraphBuilder{
		chainID:    chainID,
		graph:      g,
		cache:      c,
		sources:    sources,
		categories: categories,
		cfg:        cfg,
	}
}

// Graph exposes the underlying graph for read-side consumers.
func (b *GraphBuilder) Graph() *graph.LiquidityGraph { return b.graph }

// BuildGraph runs the bulk fetch for every configured source, merges
// results into the graph, then re-verifies a bounded top-N of
// high-liquidity edges via the on-demand strategy. Partial failures
// accumulate in the returned status; only a chain with no configured
// source at all yields ErrUnsupportedChain.
func (b *GraphBuilder) BuildGraph(ctx context.Context) (models.BuildStatus, error) {
	start := time.Now()
	status := models.BuildStatus{
		ChainID:   b.chainID,
		Timestamp: start,
	}

	if len(b.sources) == 0 {
		status.Errors = append(status.Errors, fmt.Sprintf("no factory configured for chain %d", b.chainID))
		status.Duration = time.Since(start)
		return status, ErrUnsupportedChain
	}

	for _, src := range b.sources {
		if src.Bulk == nil {
			continue
		}
		result, err := src.Bulk.FetchBulk(ctx, src.Factory, b.cfg.BulkLimit)
		if err != nil {
			// Source unavailable: degrade to an empty partial result.
			log.Warn().
				Uint64("chain", b.chainID).
				Str("dex", src.DEX).
				Err(err).
				Msg("Bulk fetch failed, continuing with remaining sources")
			status.Errors = append(status.Errors, fmt.Sprintf("%s bulk fetch: %v", src.DEX, err))
			continue
		}
		status.Errors = append(status.Errors, result.Skipped...)
		status.PairsTotal += len(result.Pairs) + len(result.Skipped)
		status.PairsUpdated += b.merge(result)
	}

	b.verifyTopPairs(ctx, &status)

	if b.cfg.PruneBelowUSD > 0 {
		if pruned := b.graph.Prune(b.cfg.PruneBelowUSD); pruned > 0 {
			log.Debug().
				Uint64("chain", b.chainID).
				Int("pruned", pruned).
				Float64("threshold", b.cfg.PruneBelowUSD).
				Msg("Pruned low-liquidity edges")
		}
	}
	b.graph.RefreshNodeLiquidity()

	status.Duration = time.Since(start)
	buildsTotal.WithLabelValues(fmt.Sprint(b.chainID), buildResult(status)).Inc()
	buildDuration.WithLabelValues(fmt.Sprint(b.chainID)).Observe(status.Duration.Seconds())

	log.Info().
		Uint64("chain", b.chainID).
		Int("updated", status.PairsUpdated).
		Int("total", status.PairsTotal).
		Int("errors", len(status.Errors)).
		Dur("duration", status.Duration).
		Msg("Graph build complete")
	return status, nil
}

func buildResult(status models.BuildStatus) string {
	if status.PairsUpdated == 0 && len(status.Errors) > 0 {
		return "failed"
	}
	if len(status.Errors) > 0 {
		return "partial"
	}
	return "ok"
}

// merge writes fetched records through the cache into the graph and
// creates placeholder nodes for tokens seen only as edge endpoints.
func (b *GraphBuilder) merge(result BulkResult) int {
	for _, token := range result.Tokens {
		b.mergeNode(token)
	}
	for i := range result.Pairs {
		edge := result.Pairs[i]
		b.ensureNode(edge.TokenA)
		b.ensureNode(edge.TokenB)
		b.cache.SetHot(pairCacheKey(edge.ChainID, edge.TokenA, edge.TokenB), edge)
		b.graph.AddEdge(edge)
	}
	return len(result.Pairs)
}

// mergeNode refreshes a node's metadata without clobbering an already
// assigned category or aggregate liquidity.
func (b *GraphBuilder) mergeNode(incoming graph.TokenNode) {
	existing, ok := b.graph.Node(incoming.Address)
	if ok {
		existing.Symbol = incoming.Symbol
		existing.Decimals = incoming.Decimals
		existing.LastUpdated = incoming.LastUpdated
		b.graph.AddNode(existing)
		return
	}
	incoming.Category = b.categoryFor(incoming.Address)
	b.graph.AddNode(incoming)
}

// ensureNode creates a placeholder node with sensible defaults for a
// token seen only as an edge endpoint.
func (b *GraphBuilder) ensureNode(address string) {
	if _, ok := b.graph.Node(address); ok {
		return
	}
	b.graph.AddNode(graph.TokenNode{
		Address:     address,
		ChainID:     b.chainID,
		Decimals:    18,
		Category:    b.categoryFor(address),
		LastUpdated: time.Now(),
	})
}

func (b *GraphBuilder) categoryFor(address string) graph.Category {
	if cat, ok := b.categories[address]; ok && cat.Valid() {
		return cat
	}
	return graph.CategoryAlt
}

// verifyTopPairs re-fetches the currently highest-liquidity edges via
// the on-demand strategy. More accurate but slower, so it is bounded to
// the pairs that matter most. Failures are soft.
func (b *GraphBuilder) verifyTopPairs(ctx context.Context, status *models.BuildStatus) {
	if b.cfg.VerifyTopN <= 0 {
		return
	}
	onDemand := b.onDemandByDEX()
	if len(onDemand) == 0 {
		return
	}

	top := b.graph.EdgesByLiquidity(0)
	if len(top) > b.cfg.VerifyTopN {
		top = top[:b.cfg.VerifyTopN]
	}

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(b.cfg.VerifyWorkers)
	errCh := make(chan string, len(top))

	for _, edge := range top {
		src, ok := onDemand[edge.DEX]
		if !ok {
			continue
		}
		edge := edge
		group.Go(func() error {
			fresh, err := src.OnDemand.FetchOnDemand(ctx, src.Factory, edge.TokenA, edge.TokenB)
			if err != nil {
				errCh <- fmt.Sprintf("verify %s: %v", edge.ID, err)
				return nil // soft failure, never cancels siblings
			}
			if fresh == nil {
				return nil
			}
			b.cache.SetHot(pairCacheKey(fresh.ChainID, fresh.TokenA, fresh.TokenB), *fresh)
			b.graph.AddEdge(*fresh)
			return nil
		})
	}
	_ = group.Wait()
	close(errCh)
	for msg := range errCh {
		status.Errors = append(status.Errors, msg)
	}
}

func (b *GraphBuilder) onDemandByDEX() map[string]Source {
	out := make(map[string]Source, len(b.sources))
	for _, src := range b.sources {
		if src.OnDemand != nil {
			out[src.DEX] = src
		}
	}
	return out
}

// GetPair resolves a single pair cache-first, then from the graph, then
// via the on-demand strategy as a last resort, writing any fresh result
// back into both cache and graph. Returns (nil, nil) when no pool
// exists anywhere on the chain.
func (b *GraphBuilder) GetPair(ctx context.Context, tokenA, tokenB string) (*graph.PairEdge, error) {
	canonA, err := graph.CanonicalAddress(tokenA)
	if err != nil {
		return nil, err
	}
	canonB, err := graph.CanonicalAddress(tokenB)
	if err != nil {
		return nil, err
	}

	if v, ok := b.cache.GetHot(pairCacheKey(b.chainID, canonA, canonB)); ok {
		if edge, ok := v.(graph.PairEdge); ok {
			return &edge, nil
		}
	}

	if edge, ok := b.graph.Edge(canonA, canonB, ""); ok {
		b.cache.SetHot(pairCacheKey(b.chainID, canonA, canonB), edge)
		return &edge, nil
	}

	for _, src := range b.sources {
		if src.OnDemand == nil {
			continue
		}
		fresh, err := src.OnDemand.FetchOnDemand(ctx, src.Factory, canonA, canonB)
		if err != nil {
			if errors.Is(err, ErrNotSupported) {
				continue
			}
			log.Debug().
				Uint64("chain", b.chainID).
				Str("dex", src.DEX).
				Err(err).
				Msg("On-demand pair fetch failed, trying next source")
			continue
		}
		if fresh == nil {
			continue
		}
		b.ensureNode(fresh.TokenA)
		b.ensureNode(fresh.TokenB)
		b.cache.SetHot(pairCacheKey(fresh.ChainID, fresh.TokenA, fresh.TokenB), *fresh)
		b.graph.AddEdge(*fresh)
		return fresh, nil
	}
	return nil, nil
}

// PruneGraph removes every edge below the liquidity threshold.
func (b *GraphBuilder) PruneGraph(minLiquidityUSD float64) int {
	return b.graph.Prune(minLiquidityUSD)
}

// GraphStats combines graph and cache statistics for this chain.
func (b *GraphBuilder) GraphStats() models.GraphStats {
	stats := b.graph.Stats()
	cs := b.cache.Stats()
	stats.CacheEntries = cs.Entries
	stats.CacheCapacity = cs.Capacity
	return stats
}

func pairCacheKey(chainID uint64, tokenA, tokenB string) string {
	a, b := graph.SortAddresses(tokenA, tokenB)
	return fmt.Sprintf("pair:%d:%s-%s", chainID, a, b)
}
