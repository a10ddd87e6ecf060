package router

import (
	"container/heap"

	"github.com/helioswap/routegraph/graph"
)

// zeroLiquidityCost is the traversal cost assigned to an edge with no
// (or unpriced) liquidity. It must stay strictly positive and finite:
// Dijkstra's correctness depends on positive weights, and an infinite
// cost would poison path sums.
const zeroLiquidityCost = 1e12

// DijkstraPathfinder finds the single liquidity-weighted shortest path:
// each edge costs the inverse of its USD liquidity, so the search
// prefers deep pools.
type DijkstraPathfinder struct {
	graph *graph.LiquidityGraph
}

// NewDijkstraPathfinder creates a weighted searcher over the graph.
func NewDijkstraPathfinder(g *graph.LiquidityGraph) *DijkstraPathfinder {
	return &DijkstraPathfinder{graph: g}
}

// edgeCost converts liquidity to a strictly positive traversal cost.
func edgeCost(e graph.PairEdge) float64 {
	if e.LiquidityUSD <= 0 {
		return zeroLiquidityCost
	}
	return 1 / e.LiquidityUSD
}

type frontierItem struct {
	token string
	hops  int
	cost  float64
	path  []graph.PairEdge
	index int
}

type frontier []*frontierItem

func (f frontier) Len() int            { return len(f) }
func (f frontier) Less(i, j int) bool  { return f[i].cost < f[j].cost }
func (f frontier) Swap(i, j int)       { f[i], f[j] = f[j], f[i]; f[i].index = i; f[j].index = j }
func (f *frontier) Push(x any)         { item := x.(*frontierItem); item.index = len(*f); *f = append(*f, item) }
func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*f = old[:n-1]
	return item
}

// FindPath returns the cheapest path from from to to within maxHops, or
// nil when none exists. allowed restricts intermediary tokens; nil
// means unrestricted. Termination is guaranteed by the visited set even
// on a fully-connected graph.
func (p *DijkstraPathfinder) FindPath(from, to string, maxHops int, allowed func(string) bool) []graph.PairEdge {
	if maxHops <= 0 || from == to {
		return nil
	}

	visited := make(map[string]bool)
	f := &frontier{}
	heap.Init(f)
	heap.Push(f, &frontierItem{token: from})

	for f.Len() > 0 {
		current := heap.Pop(f).(*frontierItem)
		if current.token == to {
			return current.path
		}
		if visited[current.token] {
			continue
		}
		visited[current.token] = true

		if current.hops >= maxHops {
			continue
		}

		p.graph.Neighbors(current.token).Each(func(next string) bool {
			if visited[next] {
				return false
			}
			if next != to && allowed != nil && !allowed(next) {
				return false
			}
			edge, ok := p.graph.Edge(current.token, next, "")
			if !ok {
				return false
			}
			path := make([]graph.PairEdge, len(current.path), len(current.path)+1)
			copy(path, current.path)
			path = append(path, edge)
			heap.Push(f, &frontierItem{
				token: next,
				hops:  current.hops + 1,
				cost:  current.cost + edgeCost(edge),
				path:  path,
			})
			return false
		})
	}

	return nil
}
