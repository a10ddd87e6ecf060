package router

import (
	"container/list"

	"github.com/helioswap/routegraph/graph"
)

// BFSPathfinder enumerates all simple paths from a source token to a
// target within a hop bound, breadth-first and unweighted. It serves as
// the correctness baseline: for shallow bounds an exhaustive
// enumeration is cheap and more reliable than a greedy weighted search.
type BFSPathfinder struct {
	graph *graph.LiquidityGraph
}

// NewBFSPathfinder creates a BFS searcher over the graph.
func NewBFSPathfinder(g *graph.LiquidityGraph) *BFSPathfinder {
	return &BFSPathfinder{graph: g}
}

// FindPaths returns every simple token path (no repeated token) from
// from to to within maxHops, each rendered as the best-liquidity edge
// per hop. allowed restricts which tokens may appear as intermediaries;
// a nil allowed means no restriction. No path is an empty result, never
// an error.
func (p *BFSPathfinder) FindPaths(from, to string, maxHops int, allowed func(string) bool) [][]graph.PairEdge {
	if maxHops <= 0 || from == to {
		return nil
	}

	var paths [][]graph.PairEdge

	queue := list.New()
	queue.PushBack([]string{from})

	for queue.Len() > 0 {
		element := queue.Front()
		tokens := element.Value.([]string)
		queue.Remove(element)

		last := tokens[len(tokens)-1]
		if last == to {
			if edges := p.edgesForTokenPath(tokens); edges != nil {
				paths = append(paths, edges)
			}
			continue
		}

		// Path length in tokens is hops + 1; stop descending at bound.
		if len(tokens) > maxHops {
			continue
		}

		p.graph.Neighbors(last).Each(func(next string) bool {
			if next != to && allowed != nil && !allowed(next) {
				return false
			}
			for _, visited := range tokens {
				if visited == next {
					return false
				}
			}
			extended := make([]string, len(tokens), len(tokens)+1)
			copy(extended, tokens)
			extended = append(extended, next)
			queue.PushBack(extended)
			return false
		})
	}

	return paths
}

// edgesForTokenPath picks the best-liquidity edge for every consecutive
// token pair. Returns nil if any hop lost its edge since the token path
// was enumerated (possible under a concurrent prune).
func (p *BFSPathfinder) edgesForTokenPath(tokens []string) []graph.PairEdge {
	edges := make([]graph.PairEdge, 0, len(tokens)-1)
	for i := 0; i+1 < len(tokens); i++ {
		edge, ok := p.graph.Edge(tokens[i], tokens[i+1], "")
		if !ok {
			return nil
		}
		edges = append(edges, edge)
	}
	return edges
}
