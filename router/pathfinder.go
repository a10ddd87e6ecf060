package router

import (
	"errors"
	"fmt"
	"strings"

	"github.com/helioswap/routegraph/graph"
	"github.com/helioswap/routegraph/models"
)

// Search bounds. BFS enumerates every simple path, which is exhaustive
// but exponential in hop depth, so it is reserved for shallow queries;
// deeper ones fall to the weighted single-path search.
const (
	defaultMaxHops   = 3
	maxHopsCeiling   = 4
	defaultMaxRoutes = 5
	bfsDepthLimit    = 3

	// How many intermediaries the selector may propose per query, and
	// the liquidity floor for fallback seeds when the endpoints share no
	// direct bridge token.
	selectorBudget     = 8
	fallbackSeedMinUSD = 100_000.0
	fallbackSeedBudget = 4
)

// ErrSameToken is returned when a query names the same token on both
// ends.
var ErrSameToken = errors.New("source and destination token are identical")

// Pathfinder is the query façade over one chain's graph: it validates
// the request, picks a search strategy, restricts the search space via
// the intermediary selector and returns scored, ranked routes.
type Pathfinder struct {
	graph    *graph.LiquidityGraph
	selector *IntermediarySelector
	bfs      *BFSPathfinder
	dijkstra *DijkstraPathfinder
	scorer   *RouteScorer
}

// NewPathfinder wires a pathfinder over the given graph.
func NewPathfinder(g *graph.LiquidityGraph, selector *IntermediarySelector) *Pathfinder {
	if selector == nil {
		selector = NewIntermediarySelector(g, 0)
	}
	return &Pathfinder{
		graph:    g,
		selector: selector,
		bfs:      NewBFSPathfinder(g),
		dijkstra: NewDijkstraPathfinder(g),
		scorer:   NewRouteScorer(),
	}
}

/*
FindRoutes resolves a route query into ranked routes, best first.

Parameters:
  - req: the chain, endpoint tokens and hop bound of the query
  - opts: result cap and search algorithm

Returns an error only for a malformed request (bad address, identical
endpoints, unknown algorithm). An unroutable pair is not an error: it
yields an empty slice.
*/
func (p *Pathfinder) FindRoutes(req models.RouteRequest, opts models.RouteOptions) ([]models.Route, error) {
	from, err := graph.CanonicalAddress(req.FromToken)
	if err != nil {
		return nil, fmt.Errorf("fromToken: %w", err)
	}
	to, err := graph.CanonicalAddress(req.ToToken)
	if err != nil {
		return nil, fmt.Errorf("toToken: %w", err)
	}
	if from == to {
		return nil, ErrSameToken
	}

	maxHops := req.MaxHops
	if maxHops <= 0 {
		maxHops = defaultMaxHops
	}
	if maxHops > maxHopsCeiling {
		maxHops = maxHopsCeiling
	}

	maxRoutes := opts.MaxRoutes
	if maxRoutes <= 0 {
		maxRoutes = defaultMaxRoutes
	}

	algorithm := opts.Algorithm
	if algorithm == "" {
		algorithm = models.AlgorithmAuto
	}
	if !algorithm.Valid() {
		return nil, fmt.Errorf("unknown algorithm %q", algorithm)
	}

	allowed := p.allowedIntermediaries(from, to)

	var paths [][]graph.PairEdge
	switch algorithm {
	case models.AlgorithmBFS:
		paths = p.bfs.FindPaths(from, to, maxHops, allowed)
	case models.AlgorithmDijkstra:
		if path := p.dijkstra.FindPath(from, to, maxHops, allowed); path != nil {
			paths = [][]graph.PairEdge{path}
		}
	case models.AlgorithmAuto:
		if maxHops <= bfsDepthLimit {
			paths = p.bfs.FindPaths(from, to, maxHops, allowed)
		}
		if len(paths) == 0 {
			if path := p.dijkstra.FindPath(from, to, maxHops, allowed); path != nil {
				paths = [][]graph.PairEdge{path}
			}
		}
	}

	routes := make([]models.Route, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		key := pathKey(path)
		if seen[key] {
			continue
		}
		seen[key] = true
		routes = append(routes, p.scorer.BuildRoute(from, path))
	}

	p.scorer.RankRoutes(routes)
	if len(routes) > maxRoutes {
		routes = routes[:maxRoutes]
	}

	routerLog.Debug().
		Str("from", from).
		Str("to", to).
		Int("maxHops", maxHops).
		Str("algorithm", string(algorithm)).
		Int("routes", len(routes)).
		Msg("Route query resolved")

	return routes, nil
}

// allowedIntermediaries builds the hop-token filter for one query: the
// endpoints themselves, the selector's bridge candidates, and when no
// bridge exists, the chain's deepest tokens as seeds so multi-hop
// discovery still has somewhere to go.
func (p *Pathfinder) allowedIntermediaries(from, to string) func(string) bool {
	set := map[string]bool{from: true, to: true}

	candidates := p.selector.Select(from, to, selectorBudget)
	if len(candidates) == 0 {
		candidates = p.selector.HighLiquidity(fallbackSeedMinUSD, fallbackSeedBudget)
	}
	for _, c := range candidates {
		set[c.Token] = true
	}

	return func(token string) bool { return set[token] }
}

// pathKey is the structural identity of a path: its ordered edge ids.
func pathKey(path []graph.PairEdge) string {
	ids := make([]string, len(path))
	for i, e := range path {
		ids[i] = e.ID
	}
	return strings.Join(ids, "|")
}
