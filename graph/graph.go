package graph

import (
	"sort"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/helioswap/routegraph/models"
)

// LiquidityGraph is the authoritative in-memory representation of one
// chain's token/pool topology. It is shared by one writer (the graph
// builder) and any number of concurrent readers (route queries); all
// index mutations happen under the mutex and accessors hand out copies,
// so readers never observe torn records. There is deliberately no
// atomicity across a whole build: pathfinding is a best-effort search
// over possibly half-refreshed data.
type LiquidityGraph struct {
	mu      sync.RWMutex
	chainID uint64

	nodes map[string]*TokenNode
	edges map[string]*PairEdge

	// adjacency: token -> set of directly poolable neighbor tokens
	adjacency map[string]mapset.Set[string]
	// pairEdges: pair key -> ids of every edge between the two tokens
	pairEdges map[string][]string
}

// NewLiquidityGraph creates an empty graph for one chain.
func NewLiquidityGraph(chainID uint64) *LiquidityGraph {
	return &LiquidityGraph{
		chainID:   chainID,
		nodes:     make(map[string]*TokenNode),
		edges:     make(map[string]*PairEdge),
		adjacency: make(map[string]mapset.Set[string]),
		pairEdges: make(map[string][]string),
	}
}

// ChainID returns the chain this graph represents.
func (g *LiquidityGraph) ChainID() uint64 { return g.chainID }

// AddNode inserts or replaces a node by its canonical address.
func (g *LiquidityGraph) AddNode(node TokenNode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := node
	g.nodes[n.Address] = &n
}

// Node returns a copy of the node for the given canonical address.
func (g *LiquidityGraph) Node(address string) (TokenNode, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[address]
	if !ok {
		return TokenNode{}, false
	}
	return *n, true
}

// AddEdge inserts or replaces an edge by its deterministic id and keeps
// the adjacency index consistent in both directions.
func (g *LiquidityGraph) AddEdge(edge PairEdge) {
	a, b := SortAddresses(edge.TokenA, edge.TokenB)
	e := edge
	e.TokenA, e.TokenB = a, b
	if e.ID == "" {
		e.ID = EdgeID(e.ChainID, e.DEX, a, b)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	_, existed := g.edges[e.ID]
	g.edges[e.ID] = &e

	if !existed {
		pk := pairKey(e.ChainID, a, b)
		g.pairEdges[pk] = append(g.pairEdges[pk], e.ID)
	}
	g.neighborSet(a).Add(b)
	g.neighborSet(b).Add(a)
}

// neighborSet returns the adjacency set for a token, creating it when
// absent. Callers must hold the write lock.
func (g *LiquidityGraph) neighborSet(token string) mapset.Set[string] {
	set, ok := g.adjacency[token]
	if !ok {
		set = mapset.NewThreadUnsafeSet[string]()
		g.adjacency[token] = set
	}
	return set
}

// Edge resolves an edge between two tokens in either orientation. With
// dex == "" the highest-liquidity edge across all DEXes is returned.
func (g *LiquidityGraph) Edge(tokenA, tokenB, dex string) (PairEdge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var best *PairEdge
	for _, id := range g.pairEdges[pairKey(g.chainID, tokenA, tokenB)] {
		e := g.edges[id]
		if e == nil {
			continue
		}
		if dex != "" {
			if e.DEX == dex {
				return *e, true
			}
			continue
		}
		if best == nil || e.LiquidityUSD > best.LiquidityUSD {
			best = e
		}
	}
	if best == nil {
		return PairEdge{}, false
	}
	return *best, true
}

// EdgesBetween returns copies of every edge between two tokens,
// regardless of orientation, sorted by descending liquidity.
func (g *LiquidityGraph) EdgesBetween(tokenA, tokenB string) []PairEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := g.pairEdges[pairKey(g.chainID, tokenA, tokenB)]
	out := make([]PairEdge, 0, len(ids))
	for _, id := range ids {
		if e := g.edges[id]; e != nil {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LiquidityUSD > out[j].LiquidityUSD })
	return out
}

// Neighbors returns the set of tokens directly poolable with the given
// token. Unknown or isolated tokens yield an empty set, not an error.
func (g *LiquidityGraph) Neighbors(token string) mapset.Set[string] {
	g.mu.RLock()
	defer g.mu.RUnlock()
	set, ok := g.adjacency[token]
	if !ok {
		return mapset.NewSet[string]()
	}
	out := mapset.NewSet[string]()
	set.Each(func(t string) bool {
		out.Add(t)
		return false
	})
	return out
}

// NodesByLiquidity returns copies of every node with aggregate
// liquidity >= minUSD, sorted by descending liquidity.
func (g *LiquidityGraph) NodesByLiquidity(minUSD float64) []TokenNode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]TokenNode, 0, len(g.nodes))
	for _, n := range g.nodes {
		if n.LiquidityUSD >= minUSD {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LiquidityUSD != out[j].LiquidityUSD {
			return out[i].LiquidityUSD > out[j].LiquidityUSD
		}
		return out[i].Address < out[j].Address
	})
	return out
}

// EdgesByLiquidity returns copies of every edge with liquidity >=
// minUSD, sorted by descending liquidity.
func (g *LiquidityGraph) EdgesByLiquidity(minUSD float64) []PairEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]PairEdge, 0, len(g.edges))
	for _, e := range g.edges {
		if e.LiquidityUSD >= minUSD {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LiquidityUSD != out[j].LiquidityUSD {
			return out[i].LiquidityUSD > out[j].LiquidityUSD
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Prune removes every edge strictly below the liquidity threshold and
// detaches it from both adjacency entries. Nodes are never removed;
// orphaned nodes are harmless. Returns the number of edges removed.
// Pruning twice at the same threshold removes nothing the second time.
func (g *LiquidityGraph) Prune(minLiquidityUSD float64) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for id, e := range g.edges {
		if e.LiquidityUSD >= minLiquidityUSD {
			continue
		}
		delete(g.edges, id)
		removed++

		pk := pairKey(e.ChainID, e.TokenA, e.TokenB)
		ids := g.pairEdges[pk]
		for i, eid := range ids {
			if eid == id {
				g.pairEdges[pk] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
		if len(g.pairEdges[pk]) == 0 {
			delete(g.pairEdges, pk)
			g.detach(e.TokenA, e.TokenB)
			g.detach(e.TokenB, e.TokenA)
		}
	}
	return removed
}

// detach removes neighbor from token's adjacency set. Callers must hold
// the write lock.
func (g *LiquidityGraph) detach(token, neighbor string) {
	if set, ok := g.adjacency[token]; ok {
		set.Remove(neighbor)
	}
}

// RefreshNodeLiquidity recomputes every node's aggregate USD liquidity
// as the sum of its edges. Best-effort: nodes with no surviving edges
// keep liquidity 0.
func (g *LiquidityGraph) RefreshNodeLiquidity() {
	g.mu.Lock()
	defer g.mu.Unlock()

	totals := make(map[string]float64, len(g.nodes))
	for _, e := range g.edges {
		totals[e.TokenA] += e.LiquidityUSD
		totals[e.TokenB] += e.LiquidityUSD
	}
	now := time.Now()
	for addr, n := range g.nodes {
		n.LiquidityUSD = totals[addr]
		n.LastUpdated = now
	}
}

// Stats returns node/edge counts and liquidity aggregates. Zero-safe:
// an empty graph reports zero averages rather than dividing by zero.
func (g *LiquidityGraph) Stats() models.GraphStats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	stats := models.GraphStats{
		ChainID:   g.chainID,
		NodeCount: len(g.nodes),
		EdgeCount: len(g.edges),
	}
	for _, e := range g.edges {
		stats.TotalLiquidityUSD += e.LiquidityUSD
		if e.LiquiditySource == LiquidityUnpriced {
			stats.UnpricedEdgeCount++
		}
	}
	if stats.EdgeCount > 0 {
		stats.AvgEdgeLiquidityUSD = stats.TotalLiquidityUSD / float64(stats.EdgeCount)
	}
	return stats
}
